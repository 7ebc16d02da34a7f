// Package fleet groups running machines of any kind so that one event can
// be fanned out to all of them.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/google/uuid"
)

var (
	ErrClosed    = errors.New("fleet is closed")
	ErrDuplicate = errors.New("machine already in fleet")
	ErrNoMembers = errors.New("no machine of this kind in fleet")

	errNoWorkers = errors.New("must be at least 1")
)

// Delivery is what one member made of a broadcast event.
type Delivery struct {
	ID      uuid.UUID
	Name    string
	Outcome fsm.Outcome
	Err     error
}

// Fleet owns a set of controllers. It is safe for concurrent use.
type Fleet struct {
	mu      sync.RWMutex
	members map[uuid.UUID]catalog.Controller
	order   []uuid.UUID
	closed  bool

	pool pond.Pool
	log  *slog.Logger
}

type Option func(*config)

type config struct {
	workers int
}

// WithWorkers caps how many members are sent to at once.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// New creates an empty fleet. The worker count comes from FLEET_WORKERS
// and defaults to the number of CPUs.
func New(ctx context.Context, opts ...Option) (*Fleet, error) {
	workers, err := envutil.Int(ctx, "FLEET_WORKERS",
		envutil.Default(runtime.NumCPU()),
		envutil.Validate(func(n int) error {
			if n < 1 {
				return errNoWorkers
			}

			return nil
		})).Value()
	if err != nil {
		return nil, err
	}

	cfg := &config{workers: workers}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workers < 1 {
		cfg.workers = 1
	}

	log := logger.Get(logger.WithSubsystem(ctx, "fleet"))
	log.Debug("fleet created", "workers", cfg.workers)

	return &Fleet{
		members: make(map[uuid.UUID]catalog.Controller),
		pool:    pond.NewPool(cfg.workers),
		log:     log,
	}, nil
}

// Add puts ctrl under the fleet's ownership. CloseAll will close it.
func (f *Fleet) Add(ctrl catalog.Controller) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}

	id := ctrl.ID()
	if _, ok := f.members[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}

	f.members[id] = ctrl
	f.order = append(f.order, id)
	fleetMembers.WithLabelValues(string(ctrl.Kind())).Inc()

	f.log.Debug("machine joined fleet", "kind", ctrl.Kind(), "id", id, "name", ctrl.Name())

	return nil
}

// Spawn starts a machine through cat and adds it.
func (f *Fleet) Spawn(
	ctx context.Context, cat *catalog.Catalog, kind fsm.Kind, initial fsm.StateID, opts ...machine.Option,
) (catalog.Controller, error) {
	ctrl, err := cat.Spawn(ctx, kind, initial, opts...)
	if err != nil {
		return nil, err
	}

	if err := f.Add(ctrl); err != nil {
		ctrl.Close()
		ctrl.Wait()

		return nil, err
	}

	return ctrl, nil
}

func (f *Fleet) Get(id uuid.UUID) (catalog.Controller, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, ok := f.members[id]

	return c, ok
}

// Members returns the controllers in the order they were added.
func (f *Fleet) Members() []catalog.Controller {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]catalog.Controller, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.members[id])
	}

	return out
}

func (f *Fleet) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return len(f.members)
}

func (f *Fleet) ofKind(kind fsm.Kind) []catalog.Controller {
	var out []catalog.Controller

	for _, c := range f.Members() {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}

	return out
}

// Broadcast sends event to every member of the event's kind without
// waiting for the outcomes. Failed sends are joined into the error.
func (f *Fleet) Broadcast(ctx context.Context, event fsm.Event) error {
	deliveries, err := f.fanOut(ctx, event, func(c catalog.Controller) (fsm.Outcome, error) {
		return fsm.Outcome{}, c.Send(ctx, event)
	})
	if err != nil {
		return err
	}

	return joinErrors(deliveries)
}

// ApplyAll applies event to every member of the event's kind and returns
// one delivery per member, in fleet order. Rejections are outcomes, not
// errors; the returned error joins the members that could not be reached.
func (f *Fleet) ApplyAll(ctx context.Context, event fsm.Event) ([]Delivery, error) {
	deliveries, err := f.fanOut(ctx, event, func(c catalog.Controller) (fsm.Outcome, error) {
		return c.Apply(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	return deliveries, joinErrors(deliveries)
}

func (f *Fleet) fanOut(
	ctx context.Context, event fsm.Event, deliver func(catalog.Controller) (fsm.Outcome, error),
) ([]Delivery, error) {
	f.mu.RLock()
	closed := f.closed
	f.mu.RUnlock()

	if closed {
		return nil, ErrClosed
	}

	targets := f.ofKind(event.Kind())
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoMembers, event.Kind())
	}

	broadcastsTotal.WithLabelValues(string(event.Kind()), string(event.EventID())).Inc()

	logger.Get(ctx).Info("broadcasting event",
		"kind", event.Kind(), "event", event.EventID(), "machines", len(targets))

	deliveries := make([]Delivery, len(targets))
	tasks := make([]pond.Task, len(targets))

	for i, c := range targets {
		deliveries[i] = Delivery{ID: c.ID(), Name: c.Name()}

		tasks[i] = f.pool.SubmitErr(func() error {
			outcome, err := deliver(c)
			deliveries[i].Outcome = outcome

			return err
		})
	}

	for i, task := range tasks {
		if err := task.Wait(); err != nil {
			deliveries[i].Err = fmt.Errorf("%s %s: %w", targets[i].Kind(), deliveries[i].ID, err)
		}
	}

	return deliveries, nil
}

func joinErrors(deliveries []Delivery) error {
	errs := make([]error, 0, len(deliveries))

	for _, d := range deliveries {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}

	return errors.Join(errs...)
}

// CloseAll closes every member's inbound queue, waits for the queued
// events to drain and stops the worker pool. It is safe to call twice.
func (f *Fleet) CloseAll() {
	f.mu.Lock()

	if f.closed {
		f.mu.Unlock()

		return
	}

	f.closed = true
	members := make([]catalog.Controller, 0, len(f.order))

	for _, id := range f.order {
		members = append(members, f.members[id])
	}

	f.mu.Unlock()

	f.log.Debug("closing fleet", "machines", len(members))

	for _, c := range members {
		c.Close()
	}

	for _, c := range members {
		c.Wait()
		fleetMembers.WithLabelValues(string(c.Kind())).Dec()
	}

	f.pool.StopAndWait()

	f.log.Debug("fleet closed")
}
