package machine

import (
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	old := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(old)
		_ = tp.Shutdown(t.Context())
	})

	return exporter
}

func attrs(span tracetest.SpanStub) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value, len(span.Attributes))
	for _, kv := range span.Attributes {
		out[kv.Key] = kv.Value
	}

	return out
}

//nolint:paralleltest // replaces the global tracer provider
func TestApplySpans(t *testing.T) {
	exporter := setupTestTracer(t)

	const kind fsm.Kind = "toggle-spans"

	h := spawnToggle(t, kind)

	_, err := h.Apply(t.Context(), signal{kind: kind, id: "Toggle"})
	require.NoError(t, err)

	_, err = h.Apply(t.Context(), signal{kind: kind, id: "Jam"})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	accepted := attrs(spans[0])
	assert.Equal(t, "machine.apply", spans[0].Name)
	assert.Equal(t, string(kind), accepted["machine.kind"].AsString())
	assert.Equal(t, "Off", accepted["machine.state"].AsString())
	assert.Equal(t, "Toggle", accepted["machine.event"].AsString())
	assert.Equal(t, "On", accepted["machine.next_state"].AsString())
	assert.True(t, accepted["machine.accepted"].AsBool())
	assert.Equal(t, h.ID().String(), accepted["machine.id"].AsString())

	rejected := attrs(spans[1])
	assert.False(t, rejected["machine.accepted"].AsBool())
	assert.Equal(t, "On", rejected["machine.next_state"].AsString())
	require.Len(t, spans[1].Events, 1)
	assert.Equal(t, "rejected", spans[1].Events[0].Name)
}

//nolint:paralleltest // reads shared collectors
func TestTransitionMetrics(t *testing.T) {
	const kind fsm.Kind = "toggle-metrics"

	alive := machinesAlive.WithLabelValues(string(kind))

	h := spawnToggle(t, kind)
	assert.InDelta(t, 1, testutil.ToFloat64(alive), 0)

	for _, id := range []fsm.EventID{"Toggle", "Toggle", "Jam", "Toggle"} {
		_, err := h.Apply(t.Context(), signal{kind: kind, id: id})
		require.NoError(t, err)
	}

	assert.InDelta(t, 2, testutil.ToFloat64(transitionsTotal.WithLabelValues(string(kind), "Off", "On")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(transitionsTotal.WithLabelValues(string(kind), "On", "Off")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rejectionsTotal.WithLabelValues(string(kind), "Off", "Jam")), 0)

	h.Close()
	h.Wait()

	assert.InDelta(t, 0, testutil.ToFloat64(alive), 0)
}
