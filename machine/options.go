package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/fsm"
)

const (
	DefaultMailboxDepth = 16
	DefaultOutboxSize   = 64
)

var errNegative = errors.New("must not be negative")

type config struct {
	name         string
	mailboxDepth int
	outboxSize   int
	lockThread   bool
	logger       *slog.Logger
	observers    []func(fsm.Response)
}

// Option configures Spawn.
type Option func(*config)

// WithName sets the actor name used in logs and metrics. Defaults to the
// machine kind.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithMailboxDepth sets the inbound buffer. Zero makes every Send wait for
// the actor to dequeue.
func WithMailboxDepth(depth int) Option {
	return func(c *config) {
		c.mailboxDepth = max(depth, 0)
	}
}

// WithOutboxSize sets how many responses may wait unread before new ones
// are dropped.
func WithOutboxSize(size int) Option {
	return func(c *config) {
		c.outboxSize = max(size, 0)
	}
}

// WithSharedThread lets the actor goroutine float between OS threads.
func WithSharedThread() Option {
	return func(c *config) {
		c.lockThread = false
	}
}

// WithLogger replaces the context logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithObserver registers a hook called on the actor goroutine for every
// response, before it is offered to the outbox. Observers must not block.
func WithObserver(fn func(fsm.Response)) Option {
	return func(c *config) {
		c.observers = append(c.observers, fn)
	}
}

func nonNegative(n int) error {
	if n < 0 {
		return fmt.Errorf("%d: %w", n, errNegative)
	}

	return nil
}

func newConfig(ctx context.Context, kind fsm.Kind, opts []Option) *config {
	cfg := &config{
		name: string(kind),
		mailboxDepth: envutil.Int(ctx, "MACHINE_MAILBOX_DEPTH",
			envutil.Validate(nonNegative)).ValueOrElse(DefaultMailboxDepth),
		outboxSize: envutil.Int(ctx, "MACHINE_OUTBOX_SIZE",
			envutil.Validate(nonNegative)).ValueOrElse(DefaultOutboxSize),
		lockThread: true,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}
