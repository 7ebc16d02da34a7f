package mill

import (
	"context"

	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines"
)

// Handle is a running mill.
type Handle = machine.Handle[Data, Event]

// Spawn starts a mill actor that is switched off.
func Spawn(ctx context.Context, opts ...machine.Option) (*Handle, error) {
	return SpawnFrom(ctx, New(Data{}), opts...)
}

// SpawnFrom starts a mill actor in the given typed state.
func SpawnFrom(ctx context.Context, state State, opts ...machine.Option) (*Handle, error) {
	return machine.Spawn(ctx, Definition(), state.Promote(), opts...)
}

// ParseEvent turns a command line into an event:
//
//	start_spinning <revs>
//	stop_spinning
//	move <x> <y> <z> <feed>
//	stop_moving
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
	case "move":
		return parseMove(cmd)
	}

	var ev Event

	switch cmd.Verb {
	case "stop_spinning", "stop", "off":
		ev = StopSpinning{}
	case "stop_moving":
		ev = StopMoving{}
	default:
		return nil, cmd.Unknown(string(Kind))
	}

	if err := cmd.Want(0); err != nil {
		return nil, err
	}

	return ev, nil
}

func parseMove(cmd machines.Command) (Event, error) {
	if err := cmd.Want(4); err != nil {
		return nil, err
	}

	var (
		m   LinearMove
		err error
	)

	if m.X, err = cmd.Int32(0); err != nil {
		return nil, err
	}

	if m.Y, err = cmd.Int32(1); err != nil {
		return nil, err
	}

	if m.Z, err = cmd.Int32(2); err != nil {
		return nil, err
	}

	if m.Feed, err = cmd.Uint32(3); err != nil {
		return nil, err
	}

	return Move{Move: m}, nil
}
