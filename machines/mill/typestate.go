package mill

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
)

// State is implemented by the typed mill states.
type State interface {
	ID() fsm.StateID
	Data() Data
	Promote() fsm.Wrapper[Data]
}

type (
	Off      struct{ data Data }
	Spinning struct{ data Data }
	Moving   struct{ data Data }
)

func New(data Data) Off {
	return Off{data: data}
}

// Typed recovers the typed state held by w.
func Typed(w fsm.Wrapper[Data]) (State, error) {
	if w.Kind() != Kind {
		return nil, fmt.Errorf("%w: %s wrapper is not a mill", fsm.ErrKindMismatch, w.Kind())
	}

	switch w.State() {
	case StateOff:
		return Off{data: w.Data()}, nil
	case StateSpinning:
		return Spinning{data: w.Data()}, nil
	case StateMoving:
		return Moving{data: w.Data()}, nil
	default:
		return nil, fmt.Errorf("%w: mill has no state %q", fsm.ErrCorruptedState, w.State())
	}
}

func promote(state fsm.StateID, data Data) fsm.Wrapper[Data] {
	return Definition().Promote(state, &data)
}

func apply(w fsm.Wrapper[Data], e Event) (Data, error) {
	next, outcome := Definition().Apply(w, e)
	if !outcome.Accepted {
		return w.Data(), outcome.Reason
	}

	return next.Data(), nil
}

func mustApply(w fsm.Wrapper[Data], e Event) Data {
	data, err := apply(w, e)
	if err != nil {
		panic(err)
	}

	return data
}

func (s Off) ID() fsm.StateID                 { return StateOff }
func (s Off) Data() Data                      { return s.data }
func (s Off) Promote() fsm.Wrapper[Data]      { return promote(StateOff, s.data) }
func (s Spinning) ID() fsm.StateID            { return StateSpinning }
func (s Spinning) Data() Data                 { return s.data }
func (s Spinning) Promote() fsm.Wrapper[Data] { return promote(StateSpinning, s.data) }
func (s Moving) ID() fsm.StateID              { return StateMoving }
func (s Moving) Data() Data                   { return s.data }
func (s Moving) Promote() fsm.Wrapper[Data]   { return promote(StateMoving, s.data) }

// StartSpinning spins the spindle up to revs. A zero speed is refused.
func (s Off) StartSpinning(revs uint32) (Spinning, error) {
	data, err := apply(s.Promote(), StartSpinning{Revs: revs})
	if err != nil {
		return Spinning{}, err
	}

	return Spinning{data: data}, nil
}

func (s Spinning) StopSpinning() Off {
	return Off{data: mustApply(s.Promote(), StopSpinning{})}
}

func (s Spinning) Move(m LinearMove) Moving {
	return Moving{data: mustApply(s.Promote(), Move{Move: m})}
}

func (s Moving) StopMoving() Spinning {
	return Spinning{data: mustApply(s.Promote(), StopMoving{})}
}
