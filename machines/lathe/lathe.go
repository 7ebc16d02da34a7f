// Package lathe is the hand-written lathe machine: a spindle that can be
// spun up, fed into the work piece and stopped, with an emergency stop that
// can be hit from anywhere and only cleared by an explicit acknowledgement.
package lathe

import (
	"errors"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-fsm/fsm"
)

const Kind fsm.Kind = "lathe"

const (
	StateOff           fsm.StateID = "Off"
	StateSpinning      fsm.StateID = "Spinning"
	StateFeeding       fsm.StateID = "Feeding"
	StateEmergencyStop fsm.StateID = "EmergencyStop"
)

const (
	EventStartSpinning fsm.EventID = "StartSpinning"
	EventStopSpinning  fsm.EventID = "StopSpinning"
	EventFeed          fsm.EventID = "Feed"
	EventStopFeed      fsm.EventID = "StopFeed"
	EventEmergencyStop fsm.EventID = "EmergencyStop"
	EventAcknowledge   fsm.EventID = "Acknowledge"
)

var (
	ErrZeroRevs = errors.New("spindle speed must be greater than zero")
	ErrZeroFeed = errors.New("feed rate must be greater than zero")
)

// Data is carried through every state.
type Data struct {
	Revs uint32 `json:"revs" yaml:"revs"`
	Feed uint32 `json:"feed" yaml:"feed"`
}

// Event is implemented only by the lathe events below.
type Event interface {
	fsm.Event
	lathe()
}

// StartSpinning is rejected when Revs is zero.
type StartSpinning struct{ Revs uint32 }

type StopSpinning struct{}

// Feed is rejected when Rate is zero.
type Feed struct{ Rate uint32 }

type StopFeed struct{}

type EmergencyStop struct{}

type Acknowledge struct{}

func (StartSpinning) Kind() fsm.Kind { return Kind }
func (StopSpinning) Kind() fsm.Kind  { return Kind }
func (Feed) Kind() fsm.Kind          { return Kind }
func (StopFeed) Kind() fsm.Kind      { return Kind }
func (EmergencyStop) Kind() fsm.Kind { return Kind }
func (Acknowledge) Kind() fsm.Kind   { return Kind }

func (StartSpinning) EventID() fsm.EventID { return EventStartSpinning }
func (StopSpinning) EventID() fsm.EventID  { return EventStopSpinning }
func (Feed) EventID() fsm.EventID          { return EventFeed }
func (StopFeed) EventID() fsm.EventID      { return EventStopFeed }
func (EmergencyStop) EventID() fsm.EventID { return EventEmergencyStop }
func (Acknowledge) EventID() fsm.EventID   { return EventAcknowledge }

func (StartSpinning) lathe() {}
func (StopSpinning) lathe()  {}
func (Feed) lathe()          {}
func (StopFeed) lathe()      {}
func (EmergencyStop) lathe() {}
func (Acknowledge) lathe()   {}

func (e StartSpinning) String() string { return fmt.Sprintf("StartSpinning(%d)", e.Revs) }
func (e Feed) String() string          { return fmt.Sprintf("Feed(%d)", e.Rate) }

var definition = sync.OnceValue(func() *fsm.Definition[Data, Event] { //nolint:gochecknoglobals
	def, err := build()
	if err != nil {
		panic(err)
	}

	return def
})

// Definition returns the lathe transition table.
func Definition() *fsm.Definition[Data, Event] {
	return definition()
}

func build() (*fsm.Definition[Data, Event], error) {
	return fsm.NewBuilder[Data, Event](Kind).
		States(StateOff, StateSpinning, StateFeeding, StateEmergencyStop).
		Events(EventStartSpinning, EventStopSpinning, EventFeed, EventStopFeed, EventEmergencyStop, EventAcknowledge).
		Initial(StateOff).
		Transition(StateOff, EventStartSpinning, StateSpinning,
			fsm.WithNamedGuard("positive_revs", spinGuard), fsm.WithNamedUpdate("set_revs", spinUp)).
		Transition(StateSpinning, EventFeed, StateFeeding,
			fsm.WithNamedGuard("positive_feed", feedGuard), fsm.WithNamedUpdate("set_feed", engageFeed)).
		Transition(StateFeeding, EventStopFeed, StateSpinning, fsm.WithNamedUpdate("clear_feed", disengageFeed)).
		Transition(StateSpinning, EventStopSpinning, StateOff, fsm.WithNamedUpdate("reset", reset)).
		FromAny(EventEmergencyStop, StateEmergencyStop).
		Transition(StateEmergencyStop, EventAcknowledge, StateOff, fsm.WithNamedUpdate("reset", reset)).
		Build()
}

func spinGuard(_ Data, e Event) error {
	if ev, ok := e.(StartSpinning); ok && ev.Revs == 0 {
		return ErrZeroRevs
	}

	return nil
}

func spinUp(d Data, e Event) Data {
	d.Revs = e.(StartSpinning).Revs

	return d
}

func feedGuard(_ Data, e Event) error {
	if ev, ok := e.(Feed); ok && ev.Rate == 0 {
		return ErrZeroFeed
	}

	return nil
}

func engageFeed(d Data, e Event) Data {
	d.Feed = e.(Feed).Rate

	return d
}

func disengageFeed(d Data, _ Event) Data {
	d.Feed = 0

	return d
}

// The emergency stop keeps speed and feed so they can be inspected; leaving
// it through Acknowledge clears them.
func reset(Data, Event) Data {
	return Data{}
}
