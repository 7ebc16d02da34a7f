package catalog

import (
	"context"
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/google/uuid"
)

// Snapshot is the type-erased view of a machine's current state.
type Snapshot struct {
	Kind  fsm.Kind    `json:"kind"  yaml:"kind"`
	State fsm.StateID `json:"state" yaml:"state"`
	Data  any         `json:"data"  yaml:"data"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("%s(%s) %+v", s.Kind, s.State, s.Data)
}

// Controller drives a machine of any kind. Sending an event of another kind
// panics with fsm.ErrKindMismatch.
type Controller interface {
	Kind() fsm.Kind
	ID() uuid.UUID
	Name() string
	Send(ctx context.Context, event fsm.Event) error
	Apply(ctx context.Context, event fsm.Event) (fsm.Outcome, error)
	State(ctx context.Context) (Snapshot, error)
	Responses() <-chan fsm.Response
	Pending() []fsm.Response
	Terminate(ctx context.Context) error
	Close()
	Wait()
	Done() <-chan struct{}
	Alive() bool
}

type controller[D any, E fsm.Event] struct {
	h *machine.Handle[D, E]
}

func (c *controller[D, E]) typed(event fsm.Event) E {
	if event == nil {
		panic(fmt.Errorf("%w: nil event sent to %s", fsm.ErrKindMismatch, c.h.Kind()))
	}

	ev, ok := event.(E)
	if !ok {
		panic(fmt.Errorf("%w: %s event %s (%T) sent to %s",
			fsm.ErrKindMismatch, event.Kind(), event.EventID(), event, c.h.Kind()))
	}

	return ev
}

func (c *controller[D, E]) Kind() fsm.Kind { return c.h.Kind() }
func (c *controller[D, E]) ID() uuid.UUID  { return c.h.ID() }
func (c *controller[D, E]) Name() string   { return c.h.Name() }

func (c *controller[D, E]) Send(ctx context.Context, event fsm.Event) error {
	return c.h.Send(ctx, c.typed(event))
}

func (c *controller[D, E]) Apply(ctx context.Context, event fsm.Event) (fsm.Outcome, error) {
	return c.h.Apply(ctx, c.typed(event))
}

func (c *controller[D, E]) State(ctx context.Context) (Snapshot, error) {
	w, err := c.h.State(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Kind: w.Kind(), State: w.State(), Data: w.Data()}, nil
}

func (c *controller[D, E]) Responses() <-chan fsm.Response       { return c.h.Responses() }
func (c *controller[D, E]) Pending() []fsm.Response              { return c.h.Pending() }
func (c *controller[D, E]) Terminate(ctx context.Context) error { return c.h.Terminate(ctx) }
func (c *controller[D, E]) Close()                              { c.h.Close() }
func (c *controller[D, E]) Wait()                               { c.h.Wait() }
func (c *controller[D, E]) Done() <-chan struct{}               { return c.h.Done() }
func (c *controller[D, E]) Alive() bool                         { return c.h.Alive() }
