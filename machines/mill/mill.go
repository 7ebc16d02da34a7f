// Package mill is the declarative mill machine. Its transition table lives
// in mill.yaml; this package supplies the payload, the events and the named
// hooks the table refers to.
package mill

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/amp-labs/amp-fsm/fsm"
)

//go:embed mill.yaml
var table []byte

const Kind fsm.Kind = "mill"

const (
	StateOff      fsm.StateID = "Off"
	StateSpinning fsm.StateID = "Spinning"
	StateMoving   fsm.StateID = "Moving"
)

const (
	EventStartSpinning fsm.EventID = "StartSpinning"
	EventStopSpinning  fsm.EventID = "StopSpinning"
	EventMove          fsm.EventID = "Move"
	EventStopMoving    fsm.EventID = "StopMoving"
)

var ErrZeroRevs = errors.New("spindle speed must be greater than zero")

// LinearMove describes one linear motion of the table. The machine does
// not interpret it.
type LinearMove struct {
	X    int32  `json:"x"    yaml:"x"`
	Y    int32  `json:"y"    yaml:"y"`
	Z    int32  `json:"z"    yaml:"z"`
	Feed uint32 `json:"feed" yaml:"feed"`
}

func (m LinearMove) String() string {
	return fmt.Sprintf("(%d,%d,%d)@%d", m.X, m.Y, m.Z, m.Feed)
}

type Data struct {
	Revs uint32     `json:"revs" yaml:"revs"`
	Move LinearMove `json:"move" yaml:"move"`
}

// Event is implemented only by the mill events below.
type Event interface {
	fsm.Event
	mill()
}

// StartSpinning is rejected when Revs is zero.
type StartSpinning struct{ Revs uint32 }

type StopSpinning struct{}

type Move struct{ Move LinearMove }

type StopMoving struct{}

func (StartSpinning) Kind() fsm.Kind { return Kind }
func (StopSpinning) Kind() fsm.Kind  { return Kind }
func (Move) Kind() fsm.Kind          { return Kind }
func (StopMoving) Kind() fsm.Kind    { return Kind }

func (StartSpinning) EventID() fsm.EventID { return EventStartSpinning }
func (StopSpinning) EventID() fsm.EventID  { return EventStopSpinning }
func (Move) EventID() fsm.EventID          { return EventMove }
func (StopMoving) EventID() fsm.EventID    { return EventStopMoving }

func (StartSpinning) mill() {}
func (StopSpinning) mill()  {}
func (Move) mill()          {}
func (StopMoving) mill()    {}

func (e StartSpinning) String() string { return fmt.Sprintf("StartSpinning(%d)", e.Revs) }
func (e Move) String() string          { return "Move" + e.Move.String() }

// Hooks are the guards and updates mill.yaml refers to by name.
func Hooks() fsm.Hooks[Data, Event] {
	return fsm.Hooks[Data, Event]{
		Guards: map[string]func(Data, Event) error{
			"positive_revs": func(_ Data, e Event) error {
				if ev, ok := e.(StartSpinning); ok && ev.Revs == 0 {
					return ErrZeroRevs
				}

				return nil
			},
		},
		Updates: map[string]func(Data, Event) Data{
			"set_revs": func(d Data, e Event) Data {
				d.Revs = e.(StartSpinning).Revs

				return d
			},
			"stop_spindle": func(d Data, _ Event) Data {
				d.Revs = 0

				return d
			},
			"set_move": func(d Data, e Event) Data {
				d.Move = e.(Move).Move

				return d
			},
			"clear_move": func(d Data, _ Event) Data {
				d.Move = LinearMove{}

				return d
			},
		},
	}
}

// Table returns the parsed embedded table.
func Table() (*fsm.TableConfig, error) {
	return fsm.LoadTable(table)
}

var definition = sync.OnceValue(func() *fsm.Definition[Data, Event] { //nolint:gochecknoglobals
	cfg, err := Table()
	if err != nil {
		panic(fmt.Errorf("mill.yaml: %w", err))
	}

	b, err := fsm.BuilderFromTable(cfg, Hooks())
	if err != nil {
		panic(fmt.Errorf("mill.yaml: %w", err))
	}

	def, err := b.Build()
	if err != nil {
		panic(fmt.Errorf("mill.yaml: %w", err))
	}

	return def
})

// Definition returns the mill transition table.
func Definition() *fsm.Definition[Data, Event] {
	return definition()
}
