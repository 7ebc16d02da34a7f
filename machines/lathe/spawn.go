package lathe

import (
	"context"

	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines"
)

// Handle is a running lathe.
type Handle = machine.Handle[Data, Event]

// Spawn starts a lathe actor that is switched off.
func Spawn(ctx context.Context, opts ...machine.Option) (*Handle, error) {
	return SpawnFrom(ctx, New(Data{}), opts...)
}

// SpawnFrom starts a lathe actor in the given typed state.
func SpawnFrom(ctx context.Context, state State, opts ...machine.Option) (*Handle, error) {
	return machine.Spawn(ctx, Definition(), state.Promote(), opts...)
}

// ParseEvent turns a command line such as "start_spinning 800" into an event.
func ParseEvent(text string) (Event, error) {
	cmd, err := machines.ParseCommand(text)
	if err != nil {
		return nil, err
	}

	switch cmd.Verb {
	case "start_spinning", "start":
		if err := cmd.Want(1); err != nil {
			return nil, err
		}

		revs, err := cmd.Uint32(0)
		if err != nil {
			return nil, err
		}

		return StartSpinning{Revs: revs}, nil
	case "feed":
		if err := cmd.Want(1); err != nil {
			return nil, err
		}

		rate, err := cmd.Uint32(0)
		if err != nil {
			return nil, err
		}

		return Feed{Rate: rate}, nil
	}

	var ev Event

	switch cmd.Verb {
	case "stop_spinning", "stop", "off":
		ev = StopSpinning{}
	case "stop_feed":
		ev = StopFeed{}
	case "emergency_stop", "notaus", "estop":
		ev = EmergencyStop{}
	case "acknowledge", "ack":
		ev = Acknowledge{}
	default:
		return nil, cmd.Unknown(string(Kind))
	}

	if err := cmd.Want(0); err != nil {
		return nil, err
	}

	return ev, nil
}
