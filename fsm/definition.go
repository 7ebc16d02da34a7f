package fsm

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

type ruleKey struct {
	from  StateID
	event EventID
}

// Definition is a validated, immutable transition table for one machine
// kind. It is safe for concurrent use.
type Definition[D any, E Event] struct {
	kind        Kind
	initial     StateID
	states      []StateID
	events      []EventID
	stateOK     map[StateID]struct{}
	eventOK     map[EventID]struct{}
	rules       []Rule[D, E]
	table       map[ruleKey]Rule[D, E]
	fingerprint uint64
}

func (d *Definition[D, E]) Kind() Kind {
	return d.kind
}

func (d *Definition[D, E]) Initial() StateID {
	return d.initial
}

// States returns the declared states in declaration order.
func (d *Definition[D, E]) States() []StateID {
	return slices.Clone(d.states)
}

// Events returns the declared events in declaration order.
func (d *Definition[D, E]) Events() []EventID {
	return slices.Clone(d.events)
}

// Rules returns every rule, with FromAny rules expanded.
func (d *Definition[D, E]) Rules() []Rule[D, E] {
	return slices.Clone(d.rules)
}

// HasState reports whether state is declared.
func (d *Definition[D, E]) HasState(state StateID) bool {
	_, ok := d.stateOK[state]

	return ok
}

// HasEvent reports whether event is declared.
func (d *Definition[D, E]) HasEvent(event EventID) bool {
	_, ok := d.eventOK[event]

	return ok
}

// Can reports whether a rule leaves state on event. Guards are not run.
func (d *Definition[D, E]) Can(state StateID, event EventID) bool {
	_, ok := d.table[ruleKey{from: state, event: event}]

	return ok
}

// Allowed lists the events that have a rule out of state, in declaration order.
func (d *Definition[D, E]) Allowed(state StateID) []EventID {
	var out []EventID

	for _, e := range d.events {
		if d.Can(state, e) {
			out = append(out, e)
		}
	}

	return out
}

// Fingerprint identifies the shape of the table. Two definitions with the
// same kind, states, events and rule shapes share a fingerprint regardless
// of declaration order.
func (d *Definition[D, E]) Fingerprint() string {
	return fmt.Sprintf("%016x", d.fingerprint)
}

// New promotes payload into the initial state.
func (d *Definition[D, E]) New(payload D) Wrapper[D] {
	return Promote(d.kind, d.initial, &payload)
}

// NewAt promotes payload into the given state.
func (d *Definition[D, E]) NewAt(state StateID, payload D) (Wrapper[D], error) {
	if !d.HasState(state) {
		return Wrapper[D]{}, fmt.Errorf("%w: %s has no state %q", ErrUnknownState, d.kind, state)
	}

	return Promote(d.kind, state, &payload), nil
}

// Promote is the checked form of the package level Promote. An undeclared
// state is a wiring bug and panics.
func (d *Definition[D, E]) Promote(state StateID, payload *D) Wrapper[D] {
	if !d.HasState(state) {
		wiringPanic(ErrCorruptedState, "%s has no state %q", d.kind, state)
	}

	return Promote(d.kind, state, payload)
}

// Apply computes the successor of current on event.
//
// On rejection the returned wrapper is current itself. On acceptance the
// returned wrapper holds a fresh box; the box of current is never written.
// An event or wrapper of another kind, or a wrapper with an undeclared tag,
// panics.
func (d *Definition[D, E]) Apply(current Wrapper[D], event E) (Wrapper[D], Outcome) {
	d.mustOwn(current, event)

	from := current.state
	id := event.EventID()

	rule, ok := d.table[ruleKey{from: from, event: id}]
	if !ok {
		return current, d.reject(from, id, ErrNoTransition)
	}

	data := *current.data

	if rule.Guard != nil {
		if err := rule.Guard(data, event); err != nil {
			return current, d.reject(from, id, fmt.Errorf("%w: %w", ErrGuardRejected, err))
		}
	}

	if rule.Update != nil {
		data = rule.Update(data, event)
	}

	next := Promote(d.kind, rule.To, &data)
	outcome := Outcome{Accepted: true}

	if !rule.Silent {
		outcome.Response = &Response{
			Kind:   d.kind,
			Status: StatusAccepted,
			From:   from,
			To:     rule.To,
			Event:  id,
		}
	}

	return next, outcome
}

func (d *Definition[D, E]) reject(state StateID, event EventID, err error) Outcome {
	return Outcome{
		Response: &Response{
			Kind:   d.kind,
			Status: StatusRejected,
			From:   state,
			To:     state,
			Event:  event,
			Reason: err.Error(),
		},
		Reason: &RejectionError{Kind: d.kind, State: state, Event: event, Err: err},
	}
}

func (d *Definition[D, E]) mustOwn(current Wrapper[D], event E) {
	if any(event) == nil {
		wiringPanic(ErrKindMismatch, "nil event routed to %s", d.kind)
	}

	if k := event.Kind(); k != d.kind {
		wiringPanic(ErrKindMismatch, "%s event %s routed to %s", k, event.EventID(), d.kind)
	}

	if !d.HasEvent(event.EventID()) {
		wiringPanic(ErrUndeclaredEvent, "%s has no event %q", d.kind, event.EventID())
	}

	if !current.Valid() {
		wiringPanic(ErrCorruptedState, "%s wrapper was not promoted", d.kind)
	}

	if current.kind != d.kind {
		wiringPanic(ErrKindMismatch, "%s wrapper applied to %s", current.kind, d.kind)
	}

	if !d.HasState(current.state) {
		wiringPanic(ErrCorruptedState, "%s has no state %q", d.kind, current.state)
	}
}

// unreachable returns declared states not reachable from the initial state.
func (d *Definition[D, E]) unreachable() []StateID {
	reachable := map[StateID]bool{d.initial: true}
	queue := []StateID{d.initial}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, r := range d.rules {
			if r.From == current && !reachable[r.To] {
				reachable[r.To] = true
				queue = append(queue, r.To)
			}
		}
	}

	var out []StateID

	for _, s := range d.states {
		if !reachable[s] {
			out = append(out, s)
		}
	}

	return out
}

func fingerprint[D any, E Event](d *Definition[D, E]) uint64 {
	states := make([]string, len(d.states))
	for i, s := range d.states {
		states[i] = string(s)
	}

	events := make([]string, len(d.events))
	for i, e := range d.events {
		events[i] = string(e)
	}

	rows := make([]string, len(d.rules))
	for i, r := range d.rules {
		info := r.info()
		rows[i] = fmt.Sprintf("%s|%s|%s|%t|%t|%t", info.From, info.Event, info.To, info.Guarded, info.Updates, info.Silent)
	}

	sort.Strings(states)
	sort.Strings(events)
	sort.Strings(rows)

	var sb strings.Builder

	sb.WriteString(string(d.kind))
	sb.WriteString("\n")
	sb.WriteString(string(d.initial))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(states, ","))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(events, ","))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(rows, "\n"))

	return xxh3.HashString(sb.String())
}
