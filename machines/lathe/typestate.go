package lathe

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/fsm"
)

// State is implemented by the typed lathe states. Each typed state exposes
// only the operations legal in it; Promote lifts it into the wrapper an
// actor stores.
type State interface {
	ID() fsm.StateID
	Data() Data
	Promote() fsm.Wrapper[Data]
}

type (
	Off      struct{ data Data }
	Spinning struct{ data Data }
	Feeding  struct{ data Data }
	// Stopped is the emergency stop.
	Stopped struct{ data Data }
)

// New returns a lathe that is switched off.
func New(data Data) Off {
	return Off{data: data}
}

// Typed recovers the typed state held by w.
func Typed(w fsm.Wrapper[Data]) (State, error) {
	if w.Kind() != Kind {
		return nil, fmt.Errorf("%w: %s wrapper is not a lathe", fsm.ErrKindMismatch, w.Kind())
	}

	switch w.State() {
	case StateOff:
		return Off{data: w.Data()}, nil
	case StateSpinning:
		return Spinning{data: w.Data()}, nil
	case StateFeeding:
		return Feeding{data: w.Data()}, nil
	case StateEmergencyStop:
		return Stopped{data: w.Data()}, nil
	default:
		return nil, fmt.Errorf("%w: lathe has no state %q", fsm.ErrCorruptedState, w.State())
	}
}

func promote(state fsm.StateID, data Data) fsm.Wrapper[Data] {
	return Definition().Promote(state, &data)
}

// apply runs e through the table so the typed API and the actor agree.
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
func (s Feeding) ID() fsm.StateID             { return StateFeeding }
func (s Feeding) Data() Data                  { return s.data }
func (s Feeding) Promote() fsm.Wrapper[Data]  { return promote(StateFeeding, s.data) }
func (s Stopped) ID() fsm.StateID             { return StateEmergencyStop }
func (s Stopped) Data() Data                  { return s.data }
func (s Stopped) Promote() fsm.Wrapper[Data]  { return promote(StateEmergencyStop, s.data) }

// StartSpinning spins the spindle up to revs. A zero speed is refused.
func (s Off) StartSpinning(revs uint32) (Spinning, error) {
	data, err := apply(s.Promote(), StartSpinning{Revs: revs})
	if err != nil {
		return Spinning{}, err
	}

	return Spinning{data: data}, nil
}

func (s Off) EmergencyStop() Stopped {
	return Stopped{data: mustApply(s.Promote(), EmergencyStop{})}
}

// Feed engages the feed at rate. A zero rate is refused.
func (s Spinning) Feed(rate uint32) (Feeding, error) {
	data, err := apply(s.Promote(), Feed{Rate: rate})
	if err != nil {
		return Feeding{}, err
	}

	return Feeding{data: data}, nil
}

// Off stops the spindle.
func (s Spinning) Off() Off {
	return Off{data: mustApply(s.Promote(), StopSpinning{})}
}

func (s Spinning) EmergencyStop() Stopped {
	return Stopped{data: mustApply(s.Promote(), EmergencyStop{})}
}

func (s Feeding) StopFeed() Spinning {
	return Spinning{data: mustApply(s.Promote(), StopFeed{})}
}

func (s Feeding) EmergencyStop() Stopped {
	return Stopped{data: mustApply(s.Promote(), EmergencyStop{})}
}

// Acknowledge clears the emergency stop.
func (s Stopped) Acknowledge() Off {
	return Off{data: mustApply(s.Promote(), Acknowledge{})}
}
