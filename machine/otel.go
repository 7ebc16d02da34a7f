package machine

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/amp-fsm/machine"

// startApplySpan opens the span covering one Apply on the actor goroutine.
// The caller ends it.
//
//nolint:spancheck
func startApplySpan(
	ctx context.Context, kind fsm.Kind, id uuid.UUID, state fsm.StateID, event fsm.EventID,
) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "machine.apply",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("machine.kind", string(kind)),
			attribute.String("machine.id", id.String()),
			attribute.String("machine.state", string(state)),
			attribute.String("machine.event", string(event)),
		))
}

func endApplySpan(span trace.Span, next fsm.StateID, outcome fsm.Outcome) {
	span.SetAttributes(
		attribute.Bool("machine.accepted", outcome.Accepted),
		attribute.String("machine.next_state", string(next)),
	)

	// A rejection is an ordinary answer, not a failed span.
	if !outcome.Accepted && outcome.Reason != nil {
		span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", outcome.Reason.Error())))
	}
}

func failApplySpan(span trace.Span, cause any) {
	span.SetStatus(codes.Error, "apply panicked")
	span.SetAttributes(attribute.String("machine.panic", fmt.Sprint(cause)))
}
