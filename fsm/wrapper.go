package fsm

import "fmt"

// Wrapper holds exactly one active state of a machine together with its boxed
// payload. Boxes are never mutated once promoted: every accepted transition
// produces a fresh box, so a Wrapper may be handed to another goroutine as a
// read-only snapshot.
//
// The zero Wrapper is invalid.
type Wrapper[D any] struct {
	kind  Kind
	state StateID
	data  *D
}

// Promote lifts a boxed payload into the wrapper variant for state. It takes
// ownership of payload; the caller must not modify it afterwards. A nil
// payload is replaced by a zero value.
//
// Promote does not check that state belongs to kind. Use
// Definition.Promote for a checked promotion.
func Promote[D any](kind Kind, state StateID, payload *D) Wrapper[D] {
	if payload == nil {
		payload = new(D)
	}

	return Wrapper[D]{
		kind:  kind,
		state: state,
		data:  payload,
	}
}

// Kind returns the machine kind the wrapper belongs to.
func (w Wrapper[D]) Kind() Kind {
	return w.kind
}

// State returns the tag of the active state.
func (w Wrapper[D]) State() StateID {
	return w.state
}

// Is reports whether state is the active state.
func (w Wrapper[D]) Is(state StateID) bool {
	return w.state == state
}

// Data returns a copy of the payload.
func (w Wrapper[D]) Data() D {
	if w.data == nil {
		var zero D

		return zero
	}

	return *w.data
}

// Valid reports whether the wrapper was produced by a promotion.
func (w Wrapper[D]) Valid() bool {
	return w.kind != "" && w.state != "" && w.data != nil
}

// Same reports whether both wrappers hold the same tag and the same box.
func (w Wrapper[D]) Same(other Wrapper[D]) bool {
	return w.kind == other.kind && w.state == other.state && w.data == other.data
}

func (w Wrapper[D]) String() string {
	if !w.Valid() {
		return "<invalid>"
	}

	return fmt.Sprintf("%s(%s) %+v", w.kind, w.state, *w.data)
}
