package shutdown

import (
	"context"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reset() {
	mut.Lock()
	defer mut.Unlock()

	hooks = nil
	channel = nil
}

func waitDone(t *testing.T, ctx context.Context) {
	t.Helper()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled")
	}
}

func TestHooksRunInReverseOrder(t *testing.T) { //nolint:paralleltest
	reset()

	var order []string

	BeforeShutdown("telemetry", func(context.Context) { order = append(order, "telemetry") })
	BeforeShutdown("fleet", func(context.Context) { order = append(order, "fleet") })
	BeforeShutdown("server", func(context.Context) { order = append(order, "server") })

	cleanup(t.Context())

	assert.Equal(t, []string{"server", "fleet", "telemetry"}, order)

	mut.Lock()
	assert.Nil(t, hooks)
	mut.Unlock()
}

func TestSignalRunsHooksThenCancels(t *testing.T) { //nolint:paralleltest
	for _, sig := range []syscall.Signal{syscall.SIGTERM, syscall.SIGINT} {
		reset()

		ctx := SetupHandler(t.Context())
		require.NoError(t, ctx.Err())

		var liveDuringHook atomic.Bool

		BeforeShutdown("probe", func(hookCtx context.Context) {
			liveDuringHook.Store(hookCtx.Err() == nil)
		})

		mut.Lock()
		ch := channel
		mut.Unlock()
		require.NotNil(t, ch)

		ch <- sig

		waitDone(t, ctx)
		assert.True(t, liveDuringHook.Load(), sig.String())

		mut.Lock()
		assert.Nil(t, channel)
		mut.Unlock()
	}
}

func TestShutdown(t *testing.T) { //nolint:paralleltest
	reset()

	ctx := SetupHandler(t.Context())

	var called atomic.Int32

	BeforeShutdown("count", func(context.Context) { called.Add(1) })

	Shutdown()
	waitDone(t, ctx)

	assert.Equal(t, int32(1), called.Load())

	assert.NotPanics(t, Shutdown)
}

func TestShutdownWithoutSetup(t *testing.T) { //nolint:paralleltest
	reset()

	assert.NotPanics(t, Shutdown)
}

func TestParentCancelRunsHooks(t *testing.T) { //nolint:paralleltest
	reset()

	parent, cancel := context.WithCancel(t.Context())
	ctx := SetupHandler(parent)

	var wg sync.WaitGroup

	wg.Add(1)
	BeforeShutdown("done", func(context.Context) { wg.Done() })

	cancel()
	waitDone(t, ctx)
	wg.Wait()
}
