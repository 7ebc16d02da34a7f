// Package actor provides an implementation of the actor model for concurrent message processing.
// Actors are concurrent entities that process messages sequentially through a mailbox (inbox channel).
// Each actor can handle requests and optionally return responses, with built-in panic recovery and
// Prometheus metrics integration for monitoring.
package actor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/amp-labs/amp-fsm/channels"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const (
	// actorMetricsTickerTime is the interval at which the queue depth gauge is refreshed.
	actorMetricsTickerTime = 10 * time.Second
	// actorPanicReturnTimeout is the maximum time to wait when returning panic errors to callers.
	actorPanicReturnTimeout = 5 * time.Second
)

var (
	// ErrDeadActor is returned when attempting to interact with a stopped actor.
	ErrDeadActor = errors.New("actor is dead")
	// ErrActorPanic is returned when an actor's processor panics during message processing.
	ErrActorPanic = errors.New("panic in actor")
)

// Actor is a concurrent entity that processes messages of type Request and produces responses of type Response.
// Actors are created using New and started with Run. Messages are processed sequentially through a mailbox.
type Actor[Request, Response any] struct {
	factory func(ref *Ref[Request, Response]) Processor[Request, Response]
}

// New creates a new Actor with the given processor factory function.
// The factory is called when the actor is started via Run, receiving a reference to the actor
// which can be used to halt it or to talk to itself.
func New[Request, Response any](
	processorFactory func(ref *Ref[Request, Response]) Processor[Request, Response],
) *Actor[Request, Response] {
	return &Actor[Request, Response]{
		factory: processorFactory,
	}
}

type runConfig struct {
	lockThread  bool
	haltOnPanic bool
	onStop      []func()
}

// RunOption configures a single Run.
type RunOption func(*runConfig)

// WithLockedThread pins the actor goroutine to its own OS thread for its
// whole lifetime.
func WithLockedThread() RunOption {
	return func(c *runConfig) {
		c.lockThread = true
	}
}

// WithHaltOnPanic stops the actor after a recovered panic instead of moving
// on to the next message.
func WithHaltOnPanic() RunOption {
	return func(c *runConfig) {
		c.haltOnPanic = true
	}
}

// WithOnStop registers a function run on the actor goroutine after the last
// message has been handled. Functions run in registration order.
func WithOnStop(fn func()) RunOption {
	return func(c *runConfig) {
		c.onStop = append(c.onStop, fn)
	}
}

// getPanicErr wraps a panic value into an error, preserving the original error if possible.
func getPanicErr(name string, err any) error {
	if e, ok := err.(error); ok {
		return fmt.Errorf("%w %s: %w", ErrActorPanic, name, e)
	}

	return fmt.Errorf("%w %s: %v", ErrActorPanic, name, err)
}

// informCallerOfPanic attempts to send a panic error to a message's response channel if one exists.
// It uses a timeout to avoid blocking indefinitely if the caller has stopped listening.
func informCallerOfPanic[Request, Response any](
	ctx context.Context,
	name string,
	msg Message[Request, Response],
	err any,
) {
	if msg.ResponseChan == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), actorPanicReturnTimeout)
	defer cancel()

	_ = channels.SendContextCatchPanic(ctx, msg.ResponseChan, Result[Response]{Error: getPanicErr(name, err)})

	channels.CloseChannelIgnorePanic(msg.ResponseChan)
}

// runProcessor executes the processor's Process method with panic recovery.
// It reports whether the processor panicked.
func (a *Actor[Request, Response]) runProcessor(
	ctx context.Context,
	proc Processor[Request, Response],
	msg Message[Request, Response],
	name string,
) (panicked bool) {
	defer func() {
		if err := recover(); err != nil {
			panicked = true

			actorPanics.WithLabelValues(logger.GetSubsystem(ctx), name).Inc()

			logger.Get(ctx).Error("actor recovered from panic",
				"actor", name,
				"request", msg.Request,
				"error", err,
				"stack", string(debug.Stack()))

			informCallerOfPanic(ctx, name, msg, err)
		}
	}()

	proc.Process(msg)

	return false
}

// Run starts the actor and returns a reference that can be used to send messages to it.
// The name parameter is used for logging and metrics. The depth parameter specifies the mailbox
// buffer size (0 for unbuffered). The actor runs until the context is canceled, Stop is called
// on the returned reference and the mailbox drains, or the processor calls Halt.
func (a *Actor[Request, Response]) Run(
	ctx context.Context, name string, depth int, opts ...RunOption,
) *Ref[Request, Response] {
	var cfg runConfig

	for _, opt := range opts {
		opt(&cfg)
	}

	w, r, count := channels.Create[Message[Request, Response]](depth)

	ref := &Ref[Request, Response]{
		inboxRead:  r,
		inboxWrite: w,
		getCount:   count,
		name:       name,
		id:         uuid.New(),
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}

	ref.wg.Add(1)

	proc := a.factory(ref)

	subsystem := logger.GetSubsystem(ctx)

	processedMessages.WithLabelValues(subsystem, name).Add(0)
	enqueuedMessages.WithLabelValues(subsystem, name).Set(0)
	actorPanics.WithLabelValues(subsystem, name).Add(0)
	aliveActors.WithLabelValues(subsystem, name).Inc()

	go func() {
		if cfg.lockThread {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
		}

		ticker := time.NewTicker(actorMetricsTickerTime)

		actorStarted.Inc()

		defer ref.wg.Done()
		defer close(ref.done)
		defer func() {
			for _, fn := range cfg.onStop {
				fn()
			}
		}()
		defer aliveActors.WithLabelValues(subsystem, name).Dec()
		defer actorStopped.Inc()
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				ref.reject(ctx)

				return
			case <-ticker.C:
				if depth > 0 {
					enqueuedMessages.WithLabelValues(subsystem, name).Set(float64(ref.getCount()))
				}
			case <-ref.closing:
				a.drain(ctx, ref, proc, name, cfg.haltOnPanic)

				return
			case msg := <-ref.inboxRead:
				if !a.handle(ctx, ref, proc, msg, name, cfg.haltOnPanic) {
					ref.reject(ctx)

					return
				}
			}
		}
	}()

	return ref
}

// handle processes one message and reports whether the actor keeps running.
func (a *Actor[Request, Response]) handle(
	ctx context.Context,
	ref *Ref[Request, Response],
	proc Processor[Request, Response],
	msg Message[Request, Response],
	name string,
	haltOnPanic bool,
) bool {
	subsystem := logger.GetSubsystem(ctx)
	start := time.Now()

	if a.runProcessor(ctx, proc, msg, name) && haltOnPanic {
		ref.Halt()
	}

	processedMessages.WithLabelValues(subsystem, name).Inc()
	processingTime.WithLabelValues(subsystem, name).Observe(time.Since(start).Seconds())

	return !ref.halted.Load()
}

// drain processes what was queued before Stop, then returns.
func (a *Actor[Request, Response]) drain(
	ctx context.Context,
	ref *Ref[Request, Response],
	proc Processor[Request, Response],
	name string,
	haltOnPanic bool,
) {
	ref.seal()

	for !ref.halted.Load() {
		select {
		case msg := <-ref.inboxRead:
			a.handle(ctx, ref, proc, msg, name, haltOnPanic)
		default:
			return
		}
	}

	ref.reject(ctx)
}

// Ref is a reference to a running actor. It provides methods to send messages,
// make requests, and control the actor's lifecycle.
type Ref[Request, Response any] struct {
	wg         sync.WaitGroup
	inboxRead  <-chan Message[Request, Response]
	inboxWrite chan<- Message[Request, Response]
	getCount   func() int
	dead       atomic.Bool
	halted     atomic.Bool
	name       string
	id         uuid.UUID
	done       chan struct{}

	// The inbox is never closed. Senders hold sendMu for reading while they
	// send; closing is closed first so blocked senders give up, then seal
	// takes sendMu for writing. Once seal returns nothing can enter the inbox.
	sendMu    sync.RWMutex
	closing   chan struct{}
	closeOnce sync.Once
}

// Name returns the actor's name.
func (r *Ref[Request, Response]) Name() string {
	return r.name
}

// ID returns the identifier assigned when the actor started.
func (r *Ref[Request, Response]) ID() uuid.UUID {
	return r.id
}

// Alive returns true if the actor still accepts messages.
func (r *Ref[Request, Response]) Alive() bool {
	return !r.dead.Load()
}

// Stop stops accepting messages. Messages already queued are still
// processed, then the actor exits. It is safe to call multiple times and
// from any goroutine.
func (r *Ref[Request, Response]) Stop() {
	r.seal()
}

// Halt ends the actor once the message being processed returns. Queued
// messages are not processed; waiting requesters get ErrDeadActor. Halt is
// meant to be called from inside the processor.
func (r *Ref[Request, Response]) Halt() {
	r.halted.Store(true)
	r.seal()
}

// seal stops accepting messages and returns once no sender can still put
// one into the inbox.
func (r *Ref[Request, Response]) seal() {
	r.closeOnce.Do(func() {
		r.dead.Store(true)
		close(r.closing)

		r.sendMu.Lock()
		defer r.sendMu.Unlock()
	})
}

// Wait blocks until the actor has fully stopped processing messages.
func (r *Ref[Request, Response]) Wait() {
	r.wg.Wait()
}

// Done is closed once the actor goroutine has exited.
func (r *Ref[Request, Response]) Done() <-chan struct{} {
	return r.done
}

// reject seals the inbox and answers whatever is still queued with ErrDeadActor.
func (r *Ref[Request, Response]) reject(ctx context.Context) {
	r.seal()

	dropped := 0

queued:
	for {
		select {
		case msg := <-r.inboxRead:
			dropped++

			msg.Reply(*new(Response), ErrDeadActor)
		default:
			break queued
		}
	}

	if dropped > 0 {
		logger.Get(ctx).Debug("actor stopped with queued messages", "actor", r.name, "dropped", dropped)
	}
}

// submit is an internal method that sends a message to the actor's inbox,
// tracking submission metrics and respecting context cancellation.
func (r *Ref[Request, Response]) submit(ctx context.Context, message Message[Request, Response]) error {
	subsystem := logger.GetSubsystem(ctx)

	if r.dead.Load() {
		rejectedSubmits.WithLabelValues(subsystem, r.name).Inc()

		return ErrDeadActor
	}

	r.sendMu.RLock()
	defer r.sendMu.RUnlock()

	select {
	case <-r.closing:
		rejectedSubmits.WithLabelValues(subsystem, r.name).Inc()

		return ErrDeadActor
	default:
	}

	submitCount.WithLabelValues(subsystem, r.name).Inc()

	begin := time.Now()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.closing:
		rejectedSubmits.WithLabelValues(subsystem, r.name).Inc()

		return ErrDeadActor
	case r.inboxWrite <- message:
	}

	submitTime.WithLabelValues(subsystem, r.name).Observe(time.Since(begin).Seconds())

	return nil
}

// Publish sends a complete message to the actor without waiting for a response.
// Errors are logged but not returned. Uses context.Background().
func (r *Ref[Request, Response]) Publish(message Message[Request, Response]) {
	r.PublishCtx(context.Background(), message)
}

// PublishCtx sends a complete message to the actor without waiting for a response.
// Errors are logged but not returned. Respects the provided context for cancellation.
func (r *Ref[Request, Response]) PublishCtx(ctx context.Context, message Message[Request, Response]) {
	if err := r.submit(ctx, message); err != nil {
		logger.Get(ctx).Error("PublishCtx: error publishing actor message", "actor", r.name, "error", err)
	}
}

// Send sends a request to the actor without waiting for a response.
// This is a fire-and-forget operation. Errors are logged but not returned.
func (r *Ref[Request, Response]) Send(request Request) {
	r.SendCtx(context.Background(), request)
}

// SendCtx is Send bounded by ctx.
func (r *Ref[Request, Response]) SendCtx(ctx context.Context, request Request) {
	if err := r.Tell(ctx, request); err != nil {
		logger.Get(ctx).Error("SendCtx: error sending actor message", "actor", r.name, "error", err)
	}
}

// Tell enqueues a request without waiting for it to be processed and
// returns the enqueue error, if any.
func (r *Ref[Request, Response]) Tell(ctx context.Context, request Request) error {
	return r.submit(ctx, Message[Request, Response]{Request: request})
}

// Request sends a request to the actor and blocks until a response is received.
// Uses context.Background(). Returns ErrDeadActor if the actor is stopped.
func (r *Ref[Request, Response]) Request(request Request) (Response, error) { //nolint:ireturn
	return r.RequestCtx(context.Background(), request)
}

// RequestCtx sends a request to the actor and blocks until a response is received or the context is canceled.
// Returns ErrDeadActor if the actor is stopped, or context error if context is canceled.
func (r *Ref[Request, Response]) RequestCtx(ctx context.Context, request Request) (Response, error) { //nolint:ireturn
	var zero Response

	// Buffered so the actor never blocks on a requester that gave up.
	replies := make(chan Result[Response], 1)

	err := r.submit(ctx, Message[Request, Response]{
		Request:      request,
		ResponseChan: replies,
	})
	if err != nil {
		return zero, err
	}

	start := time.Now()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case val, ok := <-replies:
		if !ok {
			return zero, ErrDeadActor
		}

		receiveTime.WithLabelValues(logger.GetSubsystem(ctx), r.name).Observe(time.Since(start).Seconds())

		return val.Get()
	}
}
