// Package machine runs one finite-state machine per actor. The actor
// goroutine is the only owner of the current state wrapper; the outside
// world talks to it through a FIFO mailbox of events and reads what it
// did from a bounded response channel.
package machine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amp-labs/amp-fsm/actor"
	"github.com/amp-labs/amp-fsm/channels"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/google/uuid"
)

var (
	// ErrChannelClosed is returned by every Handle operation once the machine
	// has shut down.
	ErrChannelClosed = fmt.Errorf("%w: machine channel closed", actor.ErrDeadActor)
	// ErrNilDefinition is returned by Spawn without a definition.
	ErrNilDefinition = errors.New("machine definition is nil")
)

type op uint8

const (
	opEvent op = iota
	opSnapshot
	opTerminate
)

type command[E fsm.Event] struct {
	op    op
	event E
}

type reply[D any] struct {
	state   fsm.Wrapper[D]
	outcome fsm.Outcome
}

// Handle is the outside view of a running machine: the sending half of its
// mailbox and the receiving half of its response channel.
type Handle[D any, E fsm.Event] struct {
	def       *fsm.Definition[D, E]
	ref       *actor.Ref[command[E], reply[D]]
	out       chan fsm.Response
	log       *slog.Logger
	observers []func(fsm.Response)
}

// Spawn starts a machine in initial on its own goroutine, locked to an OS
// thread unless WithSharedThread is given. The machine shuts down when ctx
// is cancelled, Close is called and the mailbox drains, or Terminate is
// dequeued.
func Spawn[D any, E fsm.Event](
	ctx context.Context, def *fsm.Definition[D, E], initial fsm.Wrapper[D], opts ...Option,
) (*Handle[D, E], error) {
	if def == nil {
		return nil, ErrNilDefinition
	}

	switch {
	case !initial.Valid():
		return nil, fmt.Errorf("%w: initial state of %s was not promoted", fsm.ErrCorruptedState, def.Kind())
	case initial.Kind() != def.Kind():
		return nil, fmt.Errorf("%w: %s state given to %s", fsm.ErrKindMismatch, initial.Kind(), def.Kind())
	case !def.HasState(initial.State()):
		return nil, fmt.Errorf("%w: %s has no state %q", fsm.ErrCorruptedState, def.Kind(), initial.State())
	}

	cfg := newConfig(ctx, def.Kind(), opts)
	kind := string(def.Kind())

	h := &Handle[D, E]{
		def:       def,
		out:       make(chan fsm.Response, cfg.outboxSize),
		observers: cfg.observers,
	}

	runOpts := []actor.RunOption{
		actor.WithHaltOnPanic(),
		actor.WithOnStop(func() {
			close(h.out)
			machinesAlive.WithLabelValues(kind).Dec()
			h.log.Debug("machine stopped")
		}),
	}

	if cfg.lockThread {
		runOpts = append(runOpts, actor.WithLockedThread())
	}

	act := actor.New(func(ref *actor.Ref[command[E], reply[D]]) actor.Processor[command[E], reply[D]] {
		runCtx := logger.With(ctx, "machine", kind, "name", cfg.name, "machine_id", ref.ID().String())

		h.log = cfg.logger
		if h.log == nil {
			h.log = logger.Get(runCtx)
		} else {
			h.log = h.log.With("machine", kind, "name", cfg.name, "machine_id", ref.ID().String())
		}

		return h.processor(runCtx, ref, initial)
	})

	machinesAlive.WithLabelValues(kind).Inc()

	h.ref = act.Run(ctx, cfg.name, cfg.mailboxDepth, runOpts...)

	h.log.Debug("machine started", "state", initial.State(), "locked_thread", cfg.lockThread)

	return h, nil
}

func (h *Handle[D, E]) processor(
	ctx context.Context, ref *actor.Ref[command[E], reply[D]], initial fsm.Wrapper[D],
) actor.Processor[command[E], reply[D]] {
	current := initial

	return actor.NewProcessor(func(msg actor.Message[command[E], reply[D]]) {
		switch msg.Request.op {
		case opTerminate:
			ref.Halt()
			h.log.Debug("terminate received", "state", current.State())
			msg.Reply(reply[D]{state: current}, nil)
		case opSnapshot:
			msg.Reply(reply[D]{state: current}, nil)
		case opEvent:
			next, outcome := h.step(ctx, ref.ID(), current, msg.Request.event)
			current = next

			msg.Reply(reply[D]{state: current, outcome: outcome}, nil)
		}
	})
}

// step applies one event. It runs on the actor goroutine only.
func (h *Handle[D, E]) step(
	ctx context.Context, id uuid.UUID, current fsm.Wrapper[D], event E,
) (fsm.Wrapper[D], fsm.Outcome) {
	kind := h.def.Kind()
	from := current.State()
	eventID := event.EventID()

	_, span := startApplySpan(ctx, kind, id, from, eventID)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			failApplySpan(span, r)
			h.log.Error("machine wiring error, stopping", "state", from, "event", eventID, "error", r)

			panic(r)
		}
	}()

	next, outcome := h.def.Apply(current, event)

	endApplySpan(span, next.State(), outcome)

	if outcome.Accepted {
		transitionsTotal.WithLabelValues(string(kind), string(from), string(next.State())).Inc()
		h.log.Debug("transition accepted", "from", from, "to", next.State(), "event", eventID)
	} else {
		rejectionsTotal.WithLabelValues(string(kind), string(from), string(eventID)).Inc()
		h.log.Info("event rejected", "state", from, "event", eventID, "error", outcome.Reason)
	}

	if outcome.Response != nil {
		h.emit(*outcome.Response)
	}

	return next, outcome
}

func (h *Handle[D, E]) emit(resp fsm.Response) {
	for _, observe := range h.observers {
		observe(resp)
	}

	if !channels.TrySend(h.out, resp) {
		responsesDropped.WithLabelValues(string(h.def.Kind())).Inc()
		h.log.Warn("outbox full, response dropped", "response", resp.String())
	}
}

// mustOwn rejects foreign events on the caller's goroutine, before they
// reach the mailbox.
func (h *Handle[D, E]) mustOwn(event E) {
	if any(event) == nil {
		panic(fmt.Errorf("%w: nil event sent to %s", fsm.ErrKindMismatch, h.def.Kind()))
	}

	if k := event.Kind(); k != h.def.Kind() {
		panic(fmt.Errorf("%w: %s event %s sent to %s", fsm.ErrKindMismatch, k, event.EventID(), h.def.Kind()))
	}
}

func closedErr(err error) error {
	if errors.Is(err, actor.ErrDeadActor) && !errors.Is(err, actor.ErrActorPanic) {
		return ErrChannelClosed
	}

	return err
}

// Send enqueues event. Events from one goroutine are applied in the order
// they were sent. It blocks while the mailbox is full.
func (h *Handle[D, E]) Send(ctx context.Context, event E) error {
	h.mustOwn(event)

	return closedErr(h.ref.Tell(ctx, command[E]{op: opEvent, event: event}))
}

// Apply enqueues event and waits for its outcome.
func (h *Handle[D, E]) Apply(ctx context.Context, event E) (fsm.Outcome, error) {
	h.mustOwn(event)

	r, err := h.ref.RequestCtx(ctx, command[E]{op: opEvent, event: event})
	if err != nil {
		return fsm.Outcome{}, closedErr(err)
	}

	return r.outcome, nil
}

// State asks the actor for its current state. The snapshot is taken in
// mailbox order, after every event sent before it.
func (h *Handle[D, E]) State(ctx context.Context) (fsm.Wrapper[D], error) {
	r, err := h.ref.RequestCtx(ctx, command[E]{op: opSnapshot})
	if err != nil {
		return fsm.Wrapper[D]{}, closedErr(err)
	}

	return r.state, nil
}

// Terminate enqueues a stop request. Events queued before it are applied;
// events queued after it are not.
func (h *Handle[D, E]) Terminate(ctx context.Context) error {
	return closedErr(h.ref.Tell(ctx, command[E]{op: opTerminate}))
}

// Close drops the sending side. Events already queued are still applied.
func (h *Handle[D, E]) Close() {
	h.ref.Stop()
}

// Responses yields accepted and rejected responses in the order they were
// produced. It is closed once the machine has stopped.
func (h *Handle[D, E]) Responses() <-chan fsm.Response {
	return h.out
}

// Pending returns the responses waiting in the outbox without blocking.
func (h *Handle[D, E]) Pending() []fsm.Response {
	var pending []fsm.Response

	for {
		select {
		case resp, ok := <-h.out:
			if !ok {
				return pending
			}

			pending = append(pending, resp)
		default:
			return pending
		}
	}
}

// Wait blocks until the actor goroutine has exited.
func (h *Handle[D, E]) Wait() {
	h.ref.Wait()
}

func (h *Handle[D, E]) Done() <-chan struct{} {
	return h.ref.Done()
}

// Alive reports whether the machine still accepts events.
func (h *Handle[D, E]) Alive() bool {
	return h.ref.Alive()
}

func (h *Handle[D, E]) Kind() fsm.Kind {
	return h.def.Kind()
}

func (h *Handle[D, E]) ID() uuid.UUID {
	return h.ref.ID()
}

func (h *Handle[D, E]) Name() string {
	return h.ref.Name()
}

func (h *Handle[D, E]) Definition() *fsm.Definition[D, E] {
	return h.def
}
