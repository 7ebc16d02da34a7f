package fsm

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is the root of every rejection.
	ErrRejected = errors.New("event rejected")
	// ErrNoTransition means no rule leaves the current state on the event.
	ErrNoTransition = fmt.Errorf("%w: no transition", ErrRejected)
	// ErrGuardRejected means a rule matched but its guard refused the event.
	ErrGuardRejected = fmt.Errorf("%w: guard failed", ErrRejected)

	// ErrKindMismatch means an event or wrapper of another machine kind was
	// routed here. It is a wiring bug and is raised as a panic.
	ErrKindMismatch = errors.New("machine kind mismatch")
	// ErrCorruptedState means a wrapper is invalid or tagged with an
	// undeclared state. Raised as a panic.
	ErrCorruptedState = errors.New("corrupted state wrapper")
	// ErrUndeclaredEvent means an event of the right kind carries an event id
	// missing from the definition. Raised as a panic.
	ErrUndeclaredEvent = errors.New("undeclared event")

	ErrKindRequired         = errors.New("machine kind is required")
	ErrInitialStateRequired = errors.New("initial state is required")
	ErrStateRequired        = errors.New("at least one state is required")
	ErrEventRequired        = errors.New("at least one event is required")
	ErrDuplicateState       = errors.New("duplicate state")
	ErrDuplicateEvent       = errors.New("duplicate event")
	ErrDuplicateRule        = errors.New("duplicate transition")
	ErrUnknownState         = errors.New("unknown state")
	ErrUnknownEvent         = errors.New("unknown event")
	ErrUnreachableState     = errors.New("state is unreachable from the initial state")
	ErrUnknownHook          = errors.New("unknown hook")
)

// RejectionError describes why an event was refused in a given state.
type RejectionError struct {
	Kind  Kind
	State StateID
	Event EventID
	Err   error
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s rejected in state %s: %v", e.Kind, e.Event, e.State, e.Err)
}

func (e *RejectionError) Unwrap() error {
	return e.Err
}

func wiringPanic(sentinel error, format string, args ...any) {
	panic(fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}
