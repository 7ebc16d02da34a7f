// Package fsm defines strongly-typed finite-state machines as data: a closed
// set of states and events per machine kind, a transition table built once
// and never changed, and a pure Apply function that moves a Wrapper from one
// state to the next or rejects the event.
//
// A Wrapper is the single storage slot an actor owns for "the current state,
// whichever it is". It can only be produced by promoting a boxed payload into
// a declared state, so its tag and payload always agree.
package fsm

import "fmt"

// Kind names a family of machines sharing one transition table, e.g. "lathe".
type Kind string

// StateID names one state of a machine kind.
type StateID string

// EventID names one event variant of a machine kind.
type EventID string

// Event is an immutable input message for one machine kind.
type Event interface {
	Kind() Kind
	EventID() EventID
}

// Status tells whether a transition was accepted.
type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Response is the externally visible effect of applying an event: either the
// state the machine moved to, or the reason the event was refused.
type Response struct {
	Kind   Kind    `json:"kind"             yaml:"kind"`
	Status Status  `json:"status"           yaml:"status"`
	From   StateID `json:"from"             yaml:"from"`
	To     StateID `json:"to"               yaml:"to"`
	Event  EventID `json:"event"            yaml:"event"`
	Reason string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Accepted reports whether the response acknowledges a completed transition.
func (r Response) Accepted() bool {
	return r.Status == StatusAccepted
}

func (r Response) String() string {
	if r.Accepted() {
		return fmt.Sprintf("%s: %s --%s--> %s", r.Kind, r.From, r.Event, r.To)
	}

	return fmt.Sprintf("%s: %s rejected in %s: %s", r.Kind, r.Event, r.From, r.Reason)
}

// Outcome is the result of applying one event.
// Response is nil for accepted transitions declared silent.
// Reason is nil exactly when Accepted is true.
type Outcome struct {
	Accepted bool
	Response *Response
	Reason   error
}
