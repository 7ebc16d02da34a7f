package catalog_test

import (
	"testing"

	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines/lathe"
	"github.com/amp-labs/amp-fsm/machines/mill"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawn(t *testing.T, kind fsm.Kind, initial fsm.StateID) catalog.Controller {
	t.Helper()

	ctrl, err := catalog.Default().Spawn(t.Context(), kind, initial, machine.WithLogger(slogt.New(t)))
	require.NoError(t, err)

	t.Cleanup(func() {
		ctrl.Close()
		ctrl.Wait()
	})

	return ctrl
}

func TestDefaultKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []fsm.Kind{lathe.Kind, mill.Kind}, catalog.Default().Kinds())
	assert.Same(t, catalog.Default(), catalog.Default())

	_, ok := catalog.Default().Lookup("drill")
	assert.False(t, ok)
}

func TestKindsNaturalOrder(t *testing.T) {
	t.Parallel()

	c := catalog.New()

	for _, k := range []fsm.Kind{"press10", "press2", "lathe", "press1"} {
		entry := catalog.NewEntry(lathe.Definition(), lathe.ParseEvent)
		entry.Kind = k
		require.NoError(t, c.Register(entry))
	}

	assert.Equal(t, []fsm.Kind{"lathe", "press1", "press2", "press10"}, c.Kinds())

	err := c.Register(catalog.NewEntry(lathe.Definition(), lathe.ParseEvent))
	require.ErrorIs(t, err, catalog.ErrDuplicateKind)
}

func TestSpawnUnknownKind(t *testing.T) {
	t.Parallel()

	_, err := catalog.Default().Spawn(t.Context(), "drill", "")
	require.ErrorIs(t, err, catalog.ErrUnknownKind)

	_, err = catalog.Default().ParseEvent("drill", "start")
	require.ErrorIs(t, err, catalog.ErrUnknownKind)

	_, err = catalog.Default().Describe("drill")
	require.ErrorIs(t, err, catalog.ErrUnknownKind)
}

func TestSpawnUnknownState(t *testing.T) {
	t.Parallel()

	_, err := catalog.Default().Spawn(t.Context(), mill.Kind, "Feeding")
	require.ErrorIs(t, err, fsm.ErrUnknownState)
}

func TestLatheThroughController(t *testing.T) {
	t.Parallel()

	ctrl := spawn(t, lathe.Kind, "")

	assert.Equal(t, lathe.Kind, ctrl.Kind())
	assert.True(t, ctrl.Alive())

	for _, text := range []string{"start_spinning 800", "feed 20", "stop_feed", "emergency_stop", "acknowledge"} {
		ev, err := catalog.Default().ParseEvent(lathe.Kind, text)
		require.NoError(t, err, text)

		outcome, err := ctrl.Apply(t.Context(), ev)
		require.NoError(t, err)
		require.True(t, outcome.Accepted, text)
	}

	snap, err := ctrl.State(t.Context())
	require.NoError(t, err)
	assert.Equal(t, catalog.Snapshot{Kind: lathe.Kind, State: lathe.StateOff, Data: lathe.Data{}}, snap)
	assert.Equal(t, "lathe(Off) {Revs:0 Feed:0}", snap.String())

	pending := ctrl.Pending()
	require.Len(t, pending, 5)
	assert.Equal(t, lathe.StateOff, pending[4].To)
}

func TestMillStartsInRequestedState(t *testing.T) {
	t.Parallel()

	ctrl := spawn(t, mill.Kind, mill.StateSpinning)

	require.NoError(t, ctrl.Send(t.Context(), mill.Move{Move: mill.LinearMove{X: 1, Feed: 10}}))

	resp := <-ctrl.Responses()
	assert.True(t, resp.Accepted())
	assert.Equal(t, mill.StateMoving, resp.To)
}

func TestForeignEventPanics(t *testing.T) {
	t.Parallel()

	ctrl := spawn(t, mill.Kind, "")

	defer func() {
		r := recover()
		require.NotNil(t, r)

		err, ok := r.(error)
		require.True(t, ok)
		require.ErrorIs(t, err, fsm.ErrKindMismatch)
		assert.Contains(t, err.Error(), "lathe event Feed")
	}()

	_ = ctrl.Send(t.Context(), lathe.Feed{Rate: 3})
}

func TestTerminateThroughController(t *testing.T) {
	t.Parallel()

	ctrl := spawn(t, lathe.Kind, "")

	require.NoError(t, ctrl.Terminate(t.Context()))
	<-ctrl.Done()

	require.ErrorIs(t, ctrl.Send(t.Context(), lathe.Acknowledge{}), machine.ErrChannelClosed)

	_, err := ctrl.State(t.Context())
	require.ErrorIs(t, err, machine.ErrChannelClosed)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	desc, err := catalog.Default().Describe(mill.Kind)
	require.NoError(t, err)
	assert.Equal(t, mill.Definition().Fingerprint(), desc.Fingerprint)
	assert.Len(t, desc.States, 3)
}
