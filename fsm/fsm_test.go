package fsm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const door fsm.Kind = "door"

const (
	closed fsm.StateID = "Closed"
	opened fsm.StateID = "Open"
	locked fsm.StateID = "Locked"
)

type doorData struct {
	Opens int
	Code  string
}

type openDoor struct{}

func (openDoor) Kind() fsm.Kind       { return door }
func (openDoor) EventID() fsm.EventID { return "Open" }

type closeDoor struct{}

func (closeDoor) Kind() fsm.Kind       { return door }
func (closeDoor) EventID() fsm.EventID { return "Close" }

type lockDoor struct{ Code string }

func (lockDoor) Kind() fsm.Kind       { return door }
func (lockDoor) EventID() fsm.EventID { return "Lock" }

type unlockDoor struct{ Code string }

func (unlockDoor) Kind() fsm.Kind       { return door }
func (unlockDoor) EventID() fsm.EventID { return "Unlock" }

type knock struct{}

func (knock) Kind() fsm.Kind       { return door }
func (knock) EventID() fsm.EventID { return "Knock" }

type spin struct{}

func (spin) Kind() fsm.Kind       { return "lathe" }
func (spin) EventID() fsm.EventID { return "StartSpinning" }

var errWrongCode = errors.New("wrong code")

func doorBuilder() *fsm.Builder[doorData, fsm.Event] {
	return fsm.NewBuilder[doorData, fsm.Event](door).
		States(closed, opened, locked).
		Events("Open", "Close", "Lock", "Unlock", "Knock").
		Initial(closed).
		Transition(closed, "Open", opened, fsm.WithUpdate(func(d doorData, _ fsm.Event) doorData {
			d.Opens++

			return d
		})).
		Transition(opened, "Close", closed).
		Transition(closed, "Lock", locked, fsm.WithUpdate(func(d doorData, e fsm.Event) doorData {
			d.Code = e.(lockDoor).Code

			return d
		})).
		Transition(locked, "Unlock", closed,
			fsm.WithGuard(func(d doorData, e fsm.Event) error {
				if e.(unlockDoor).Code != d.Code {
					return errWrongCode
				}

				return nil
			}),
			fsm.WithUpdate(func(d doorData, _ fsm.Event) doorData {
				d.Code = ""

				return d
			})).
		Transition(opened, "Knock", opened, fsm.Silently[doorData, fsm.Event]())
}

func mustDoor(t *testing.T) *fsm.Definition[doorData, fsm.Event] {
	t.Helper()

	def, err := doorBuilder().Build()
	require.NoError(t, err)

	return def
}

func panicErr(t *testing.T, fn func()) (err error) {
	t.Helper()

	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")

		var ok bool

		err, ok = r.(error)
		require.True(t, ok, "panic value is %T, not error", r)
	}()

	fn()

	return nil
}

func TestApplyAccepted(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)
	start := def.New(doorData{})

	next, outcome := def.Apply(start, openDoor{})

	require.True(t, outcome.Accepted)
	require.NoError(t, outcome.Reason)
	require.NotNil(t, outcome.Response)
	assert.Equal(t, fsm.Response{
		Kind:   door,
		Status: fsm.StatusAccepted,
		From:   closed,
		To:     opened,
		Event:  "Open",
	}, *outcome.Response)

	assert.True(t, next.Is(opened))
	assert.Equal(t, 1, next.Data().Opens)

	// The input box is untouched.
	assert.True(t, start.Is(closed))
	assert.Equal(t, 0, start.Data().Opens)
}

func TestApplyNoTransition(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)
	start := def.New(doorData{Opens: 3})

	next, outcome := def.Apply(start, closeDoor{})

	assert.False(t, outcome.Accepted)
	assert.True(t, next.Same(start))
	require.ErrorIs(t, outcome.Reason, fsm.ErrNoTransition)
	require.ErrorIs(t, outcome.Reason, fsm.ErrRejected)

	var rejection *fsm.RejectionError
	require.ErrorAs(t, outcome.Reason, &rejection)
	assert.Equal(t, closed, rejection.State)
	assert.Equal(t, fsm.EventID("Close"), rejection.Event)

	require.NotNil(t, outcome.Response)
	assert.Equal(t, fsm.StatusRejected, outcome.Response.Status)
	assert.Equal(t, closed, outcome.Response.From)
	assert.Equal(t, closed, outcome.Response.To)
	assert.NotEmpty(t, outcome.Response.Reason)
}

func TestApplyGuard(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)

	lockedDoor, outcome := def.Apply(def.New(doorData{}), lockDoor{Code: "1234"})
	require.True(t, outcome.Accepted)
	assert.Equal(t, "1234", lockedDoor.Data().Code)

	after, outcome := def.Apply(lockedDoor, unlockDoor{Code: "0000"})
	assert.False(t, outcome.Accepted)
	assert.True(t, after.Same(lockedDoor))
	require.ErrorIs(t, outcome.Reason, fsm.ErrGuardRejected)
	require.ErrorIs(t, outcome.Reason, errWrongCode)

	after, outcome = def.Apply(lockedDoor, unlockDoor{Code: "1234"})
	require.True(t, outcome.Accepted)
	assert.True(t, after.Is(closed))
	assert.Empty(t, after.Data().Code)
}

func TestApplySilent(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)
	open, _ := def.Apply(def.New(doorData{}), openDoor{})

	next, outcome := def.Apply(open, knock{})

	assert.True(t, outcome.Accepted)
	assert.Nil(t, outcome.Response)
	assert.True(t, next.Is(opened))
	assert.False(t, next.Same(open), "accepted transitions always box a fresh payload")
}

func TestApplyDeterministic(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)
	start := def.New(doorData{Opens: 7})

	a, oa := def.Apply(start, openDoor{})
	b, ob := def.Apply(start, openDoor{})

	assert.Equal(t, a.State(), b.State())
	assert.Equal(t, a.Data(), b.Data())
	assert.Equal(t, oa, ob)
}

func TestApplyKindMismatchPanics(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)

	err := panicErr(t, func() { def.Apply(def.New(doorData{}), spin{}) })
	require.ErrorIs(t, err, fsm.ErrKindMismatch)

	foreign := fsm.Promote("lathe", closed, &doorData{})
	err = panicErr(t, func() { def.Apply(foreign, openDoor{}) })
	require.ErrorIs(t, err, fsm.ErrKindMismatch)

	err = panicErr(t, func() { def.Apply(def.New(doorData{}), nil) })
	require.ErrorIs(t, err, fsm.ErrKindMismatch)
}

func TestApplyCorruptedWrapperPanics(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)

	err := panicErr(t, func() { def.Apply(fsm.Wrapper[doorData]{}, openDoor{}) })
	require.ErrorIs(t, err, fsm.ErrCorruptedState)

	bogus := fsm.Promote(door, "Ajar", &doorData{})
	err = panicErr(t, func() { def.Apply(bogus, openDoor{}) })
	require.ErrorIs(t, err, fsm.ErrCorruptedState)

	err = panicErr(t, func() { def.Promote("Ajar", nil) })
	require.ErrorIs(t, err, fsm.ErrCorruptedState)
}

func TestApplyUndeclaredEventPanics(t *testing.T) {
	t.Parallel()

	def, err := fsm.NewBuilder[doorData, fsm.Event](door).
		States(closed, opened).
		Events("Open").
		Initial(closed).
		Transition(closed, "Open", opened).
		Build()
	require.NoError(t, err)

	err = panicErr(t, func() { def.Apply(def.New(doorData{}), knock{}) })
	require.ErrorIs(t, err, fsm.ErrUndeclaredEvent)
}

func TestCanAndAllowed(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)

	assert.True(t, def.Can(closed, "Open"))
	assert.False(t, def.Can(closed, "Close"))
	assert.Equal(t, []fsm.EventID{"Open", "Lock"}, def.Allowed(closed))
	assert.Equal(t, []fsm.EventID{"Close", "Knock"}, def.Allowed(opened))
	assert.Equal(t, []fsm.EventID{"Unlock"}, def.Allowed(locked))
	assert.Empty(t, def.Allowed("Ajar"))
}

func TestNewAt(t *testing.T) {
	t.Parallel()

	def := mustDoor(t)

	w, err := def.NewAt(locked, doorData{Code: "42"})
	require.NoError(t, err)
	assert.Equal(t, door, w.Kind())
	assert.True(t, w.Is(locked))
	assert.Equal(t, "42", w.Data().Code)

	_, err = def.NewAt("Ajar", doorData{})
	require.ErrorIs(t, err, fsm.ErrUnknownState)
}

func TestWrapper(t *testing.T) {
	t.Parallel()

	var zero fsm.Wrapper[doorData]

	assert.False(t, zero.Valid())
	assert.Equal(t, "<invalid>", zero.String())
	assert.Equal(t, doorData{}, zero.Data())

	w := fsm.Promote[doorData](door, closed, nil)
	assert.True(t, w.Valid())
	assert.Equal(t, "door(Closed) {Opens:0 Code:}", w.String())

	data := w.Data()
	data.Opens = 9
	assert.Equal(t, 0, w.Data().Opens, "Data returns a copy")
}

func TestBuildValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		build  func() *fsm.Builder[doorData, fsm.Event]
		expect error
	}{
		{
			name:   "missing kind",
			build:  func() *fsm.Builder[doorData, fsm.Event] { return fsm.NewBuilder[doorData, fsm.Event]("") },
			expect: fsm.ErrKindRequired,
		},
		{
			name: "missing initial",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return fsm.NewBuilder[doorData, fsm.Event](door).States(closed).Events("Open")
			},
			expect: fsm.ErrInitialStateRequired,
		},
		{
			name: "unknown initial",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return fsm.NewBuilder[doorData, fsm.Event](door).States(closed).Events("Open").Initial("Ajar")
			},
			expect: fsm.ErrUnknownState,
		},
		{
			name: "duplicate state",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().States(closed)
			},
			expect: fsm.ErrDuplicateState,
		},
		{
			name: "duplicate event",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().Events("Open")
			},
			expect: fsm.ErrDuplicateEvent,
		},
		{
			name: "duplicate rule",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().Transition(closed, "Open", locked)
			},
			expect: fsm.ErrDuplicateRule,
		},
		{
			name: "undeclared target",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().Transition(opened, "Lock", "Ajar")
			},
			expect: fsm.ErrUnknownState,
		},
		{
			name: "undeclared event",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().Transition(opened, "Slam", closed)
			},
			expect: fsm.ErrUnknownEvent,
		},
		{
			name: "unreachable state",
			build: func() *fsm.Builder[doorData, fsm.Event] {
				return doorBuilder().States("Broken")
			},
			expect: fsm.ErrUnreachableState,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			def, err := tt.build().Build()
			require.ErrorIs(t, err, tt.expect)
			assert.Nil(t, def)
		})
	}
}

func TestFromAny(t *testing.T) {
	t.Parallel()

	def, err := fsm.NewBuilder[doorData, fsm.Event](door).
		States(closed, opened, locked, "Broken").
		Events("Open", "Close", "Lock", "Knock").
		Initial(closed).
		Transition(closed, "Open", opened).
		Transition(opened, "Close", closed).
		Transition(closed, "Lock", locked).
		FromAny("Knock", "Broken", fsm.Except[doorData, fsm.Event](locked)).
		Build()
	require.NoError(t, err)

	assert.True(t, def.Can(closed, "Knock"))
	assert.True(t, def.Can(opened, "Knock"))
	assert.False(t, def.Can(locked, "Knock"))
	assert.False(t, def.Can("Broken", "Knock"), "the target state is skipped")

	// A wildcard colliding with an explicit rule is a duplicate.
	_, err = doorBuilder().FromAny("Open", opened).Build()
	require.ErrorIs(t, err, fsm.ErrDuplicateRule)
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := mustDoor(t)

	reordered, err := fsm.NewBuilder[doorData, fsm.Event](door).
		States(locked, opened, closed).
		Events("Knock", "Unlock", "Lock", "Close", "Open").
		Initial(closed).
		Transition(opened, "Knock", opened, fsm.Silently[doorData, fsm.Event]()).
		Transition(locked, "Unlock", closed,
			fsm.WithGuard(func(doorData, fsm.Event) error { return nil }),
			fsm.WithUpdate(func(d doorData, _ fsm.Event) doorData { return d })).
		Transition(closed, "Lock", locked, fsm.WithUpdate(func(d doorData, _ fsm.Event) doorData { return d })).
		Transition(opened, "Close", closed).
		Transition(closed, "Open", opened, fsm.WithUpdate(func(d doorData, _ fsm.Event) doorData { return d })).
		Build()
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), mustDoor(t).Fingerprint())
	assert.Equal(t, a.Fingerprint(), reordered.Fingerprint())
	assert.Len(t, a.Fingerprint(), 16)

	changed, err := doorBuilder().Transition(locked, "Knock", locked).Build()
	require.NoError(t, err)
	assert.NotEqual(t, a.Fingerprint(), changed.Fingerprint())
}

func TestRejectionError(t *testing.T) {
	t.Parallel()

	err := &fsm.RejectionError{Kind: door, State: closed, Event: "Close", Err: fsm.ErrNoTransition}

	assert.Equal(t, "door: Close rejected in state Closed: event rejected: no transition", err.Error())
	assert.ErrorIs(t, err, fsm.ErrNoTransition)
}

func ExampleDefinition_Apply() {
	def, err := fsm.NewBuilder[doorData, fsm.Event](door).
		States(closed, opened).
		Events("Open", "Close").
		Initial(closed).
		Transition(closed, "Open", opened).
		Transition(opened, "Close", closed).
		Build()
	if err != nil {
		panic(err)
	}

	state := def.New(doorData{})

	state, outcome := def.Apply(state, openDoor{})
	fmt.Println(outcome.Response)

	_, outcome = def.Apply(state, openDoor{})
	fmt.Println(outcome.Response)

	// Output:
	// door: Closed --Open--> Open
	// door: Open rejected in Open: event rejected: no transition
}
