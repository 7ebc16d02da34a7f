// Package shutdown runs cleanup hooks when the process is asked to stop,
// before the root context is canceled.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/amp-labs/amp-fsm/logger"
)

type hook struct {
	name string
	fn   func(ctx context.Context)
}

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []hook         //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers fn to run once shutdown starts. Hooks run in
// reverse registration order, so something registered after its
// dependencies is torn down before them. On a signal the context passed to
// fn is still alive; when the parent context ended it is not.
func BeforeShutdown(name string, fn func(ctx context.Context)) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, hook{name: name, fn: fn})
}

// Shutdown starts the shutdown programmatically, as if SIGINT had arrived.
// It does nothing when no handler is installed or shutdown already began.
func Shutdown() {
	mut.Lock()
	defer mut.Unlock()

	if channel == nil {
		return
	}

	select {
	case channel <- os.Interrupt:
	default:
	}
}

// SetupHandler installs a SIGINT/SIGTERM handler and returns a child of
// parent that is canceled after every hook has run.
func SetupHandler(parent context.Context) context.Context {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = sigs
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case sig := <-sigs:
			logger.Get(ctx).Warn("Received " + sig.String() + ", shutting down...")
		case <-parent.Done():
			logger.Get(ctx).Debug("Parent context done, shutting down")
		}

		signal.Stop(sigs)

		mut.Lock()
		if channel == sigs {
			channel = nil
		}
		mut.Unlock()

		cleanup(ctx)
		cancel()
	}()

	return ctx
}

func cleanup(ctx context.Context) {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	log := logger.Get(ctx)

	for i := len(pending) - 1; i >= 0; i-- {
		start := time.Now()

		pending[i].fn(ctx)

		log.Debug("shutdown hook finished", "hook", pending[i].name, "took", time.Since(start))
	}
}
