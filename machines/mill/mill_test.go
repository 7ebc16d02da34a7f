package mill_test

import (
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines"
	"github.com/amp-labs/amp-fsm/machines/mill"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var descriptor = mill.LinearMove{X: 120, Y: -40, Z: 5, Feed: 300}

func TestEmbeddedTable(t *testing.T) {
	t.Parallel()

	cfg, err := mill.Table()
	require.NoError(t, err)

	assert.Equal(t, "mill", cfg.Kind)
	assert.Equal(t, "Off", cfg.Initial)
	assert.Equal(t, []string{"Off", "Spinning", "Moving"}, cfg.States)
	assert.Len(t, cfg.Transitions, 4)
}

func TestTableMatchesBuilder(t *testing.T) {
	t.Parallel()

	hooks := mill.Hooks()

	byHand, err := fsm.NewBuilder[mill.Data, mill.Event](mill.Kind).
		States(mill.StateOff, mill.StateSpinning, mill.StateMoving).
		Events(mill.EventStartSpinning, mill.EventStopSpinning, mill.EventMove, mill.EventStopMoving).
		Initial(mill.StateOff).
		Transition(mill.StateOff, mill.EventStartSpinning, mill.StateSpinning,
			fsm.WithGuard(hooks.Guards["positive_revs"]), fsm.WithUpdate(hooks.Updates["set_revs"])).
		Transition(mill.StateSpinning, mill.EventStopSpinning, mill.StateOff,
			fsm.WithUpdate(hooks.Updates["stop_spindle"])).
		Transition(mill.StateSpinning, mill.EventMove, mill.StateMoving,
			fsm.WithUpdate(hooks.Updates["set_move"])).
		Transition(mill.StateMoving, mill.EventStopMoving, mill.StateSpinning,
			fsm.WithUpdate(hooks.Updates["clear_move"])).
		Build()
	require.NoError(t, err)

	assert.Equal(t, byHand.Fingerprint(), mill.Definition().Fingerprint())
	assert.Equal(t, byHand.Describe().Transitions, mill.Definition().Describe().Transitions)
}

func TestScenario(t *testing.T) {
	t.Parallel()

	def := mill.Definition()
	state := def.New(mill.Data{})

	steps := []struct {
		event mill.Event
		want  fsm.StateID
		data  mill.Data
	}{
		{mill.StartSpinning{Revs: 500}, mill.StateSpinning, mill.Data{Revs: 500}},
		{mill.Move{Move: descriptor}, mill.StateMoving, mill.Data{Revs: 500, Move: descriptor}},
		{mill.StopMoving{}, mill.StateSpinning, mill.Data{Revs: 500}},
		{mill.StopSpinning{}, mill.StateOff, mill.Data{}},
	}

	for _, step := range steps {
		var outcome fsm.Outcome

		state, outcome = def.Apply(state, step.event)
		require.True(t, outcome.Accepted, "%v: %v", step.event, outcome.Reason)
		assert.Equal(t, step.want, state.State())
		assert.Equal(t, step.data, state.Data())
	}
}

func TestMoveRejectedWhenOff(t *testing.T) {
	t.Parallel()

	def := mill.Definition()
	off := def.New(mill.Data{})

	next, outcome := def.Apply(off, mill.Move{Move: descriptor})

	assert.False(t, outcome.Accepted)
	require.ErrorIs(t, outcome.Reason, fsm.ErrNoTransition)
	assert.True(t, next.Same(off))
	assert.Equal(t, mill.StateOff, next.State())
	assert.Equal(t, mill.Data{}, next.Data())
}

func TestZeroRevsRejected(t *testing.T) {
	t.Parallel()

	_, err := mill.New(mill.Data{}).StartSpinning(0)
	require.ErrorIs(t, err, mill.ErrZeroRevs)
}

func TestEveryStateReachable(t *testing.T) {
	t.Parallel()

	def := mill.Definition()
	seen := map[fsm.StateID]bool{def.Initial(): true}
	queue := []fsm.StateID{def.Initial()}

	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for _, r := range def.Rules() {
			if r.From == s && !seen[r.To] {
				seen[r.To] = true
				queue = append(queue, r.To)
			}
		}
	}

	for _, s := range def.States() {
		assert.True(t, seen[s], "%s is unreachable", s)
	}
}

func TestTypeState(t *testing.T) {
	t.Parallel()

	spinning, err := mill.New(mill.Data{}).StartSpinning(900)
	require.NoError(t, err)

	moving := spinning.Move(descriptor)
	assert.Equal(t, descriptor, moving.Data().Move)
	assert.Equal(t, mill.StateMoving, moving.Promote().State())

	off := moving.StopMoving().StopSpinning()
	assert.Equal(t, mill.Data{}, off.Data())

	typed, err := mill.Typed(moving.Promote())
	require.NoError(t, err)
	assert.Equal(t, moving, typed)

	_, err = mill.Typed(fsm.Promote("lathe", mill.StateOff, &mill.Data{}))
	require.ErrorIs(t, err, fsm.ErrKindMismatch)
}

func TestParseEvent(t *testing.T) {
	t.Parallel()

	ev, err := mill.ParseEvent("move 120 -40 5 300")
	require.NoError(t, err)
	assert.Equal(t, mill.Move{Move: descriptor}, ev)

	ev, err = mill.ParseEvent("StartSpinning 500")
	require.NoError(t, err)
	assert.Equal(t, mill.StartSpinning{Revs: 500}, ev)

	ev, err = mill.ParseEvent("stop_moving")
	require.NoError(t, err)
	assert.Equal(t, mill.StopMoving{}, ev)

	_, err = mill.ParseEvent("move 1 2")
	require.ErrorIs(t, err, machines.ErrArgument)

	_, err = mill.ParseEvent("move 1 2 x 4")
	require.ErrorIs(t, err, machines.ErrArgument)

	_, err = mill.ParseEvent("stop_moving now")
	require.ErrorIs(t, err, machines.ErrArgument)

	_, err = mill.ParseEvent("feed 20")
	require.ErrorIs(t, err, machines.ErrUnknownCommand)
}

func TestSpawnRejection(t *testing.T) {
	t.Parallel()

	h, err := mill.Spawn(t.Context(), machine.WithLogger(slogt.New(t)))
	require.NoError(t, err)

	require.NoError(t, h.Send(t.Context(), mill.Move{Move: descriptor}))

	resp := <-h.Responses()
	assert.Equal(t, fsm.StatusRejected, resp.Status)
	assert.Equal(t, mill.StateOff, resp.From)
	assert.Equal(t, mill.EventMove, resp.Event)

	state, err := h.State(t.Context())
	require.NoError(t, err)
	assert.True(t, state.Is(mill.StateOff))

	h.Close()
	h.Wait()

	_, open := <-h.Responses()
	assert.False(t, open)
}

func TestDefinitionTableMatchesEmbedded(t *testing.T) {
	t.Parallel()

	cfg, err := mill.Table()
	require.NoError(t, err)

	assert.Equal(t, cfg.Transitions, mill.Definition().Table().Transitions)
}
