package fsm

import (
	"errors"
	"fmt"
)

// Builder provides a fluent API for constructing a Definition.
// Errors are collected and reported together by Build.
type Builder[D any, E Event] struct {
	kind     Kind
	initial  StateID
	states   []StateID
	events   []EventID
	rules    []Rule[D, E]
	wildcard []wildcardRule[D, E]
}

type wildcardRule[D any, E Event] struct {
	rule   Rule[D, E]
	except map[StateID]struct{}
}

// NewBuilder creates a builder for machines of the given kind.
func NewBuilder[D any, E Event](kind Kind) *Builder[D, E] {
	return &Builder[D, E]{kind: kind}
}

// States declares states in display order.
func (b *Builder[D, E]) States(states ...StateID) *Builder[D, E] {
	b.states = append(b.states, states...)

	return b
}

// Events declares events in display order.
func (b *Builder[D, E]) Events(events ...EventID) *Builder[D, E] {
	b.events = append(b.events, events...)

	return b
}

// Initial sets the state new machines start in.
func (b *Builder[D, E]) Initial(state StateID) *Builder[D, E] {
	b.initial = state

	return b
}

// Transition adds the rule from --event--> to.
func (b *Builder[D, E]) Transition(
	from StateID, event EventID, to StateID, opts ...TransitionOption[D, E],
) *Builder[D, E] {
	rule, _ := newRule(from, event, to, opts)
	b.rules = append(b.rules, rule)

	return b
}

// FromAny adds event --> to from every declared state except the target
// itself and any state excluded with Except.
func (b *Builder[D, E]) FromAny(event EventID, to StateID, opts ...TransitionOption[D, E]) *Builder[D, E] {
	rule, scope := newRule("", event, to, opts)
	b.wildcard = append(b.wildcard, wildcardRule[D, E]{rule: rule, except: scope.except})

	return b
}

func newRule[D any, E Event](
	from StateID, event EventID, to StateID, opts []TransitionOption[D, E],
) (Rule[D, E], ruleScope) {
	rule := Rule[D, E]{From: from, Event: event, To: to}

	var scope ruleScope

	for _, opt := range opts {
		opt(&rule, &scope)
	}

	return rule, scope
}

// Build validates the table and returns an immutable Definition.
func (b *Builder[D, E]) Build() (*Definition[D, E], error) {
	var errs []error

	if b.kind == "" {
		errs = append(errs, ErrKindRequired)
	}

	if len(b.states) == 0 {
		errs = append(errs, ErrStateRequired)
	}

	if len(b.events) == 0 {
		errs = append(errs, ErrEventRequired)
	}

	states := make(map[StateID]struct{}, len(b.states))

	for _, s := range b.states {
		if _, dup := states[s]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateState, s))
		}

		states[s] = struct{}{}
	}

	events := make(map[EventID]struct{}, len(b.events))

	for _, e := range b.events {
		if _, dup := events[e]; dup {
			errs = append(errs, fmt.Errorf("%w: %s", ErrDuplicateEvent, e))
		}

		events[e] = struct{}{}
	}

	switch _, ok := states[b.initial]; {
	case b.initial == "":
		errs = append(errs, ErrInitialStateRequired)
	case !ok:
		errs = append(errs, fmt.Errorf("%w: initial state %s", ErrUnknownState, b.initial))
	}

	rules := b.expand()
	table := make(map[ruleKey]Rule[D, E], len(rules))

	for _, r := range rules {
		if err := checkRule(r, states, events); err != nil {
			errs = append(errs, err)

			continue
		}

		key := ruleKey{from: r.From, event: r.Event}
		if _, dup := table[key]; dup {
			errs = append(errs, fmt.Errorf("%w: %s on %s", ErrDuplicateRule, r.From, r.Event))

			continue
		}

		table[key] = r
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("building %q: %w", b.kind, errors.Join(errs...))
	}

	def := &Definition[D, E]{
		kind:    b.kind,
		initial: b.initial,
		states:  append([]StateID(nil), b.states...),
		events:  append([]EventID(nil), b.events...),
		stateOK: states,
		eventOK: events,
		rules:   rules,
		table:   table,
	}

	if unreachable := def.unreachable(); len(unreachable) > 0 {
		for _, s := range unreachable {
			errs = append(errs, fmt.Errorf("%w: %s", ErrUnreachableState, s))
		}

		return nil, fmt.Errorf("building %q: %w", b.kind, errors.Join(errs...))
	}

	def.fingerprint = fingerprint(def)

	return def, nil
}

// expand resolves FromAny rules against the declared states. Explicit rules
// come first so a duplicate is reported against the wildcard.
func (b *Builder[D, E]) expand() []Rule[D, E] {
	rules := append([]Rule[D, E](nil), b.rules...)

	for _, w := range b.wildcard {
		for _, s := range b.states {
			if s == w.rule.To {
				continue
			}

			if _, skip := w.except[s]; skip {
				continue
			}

			r := w.rule
			r.From = s
			rules = append(rules, r)
		}
	}

	return rules
}

func checkRule[D any, E Event](r Rule[D, E], states map[StateID]struct{}, events map[EventID]struct{}) error {
	var errs []error

	if _, ok := states[r.From]; !ok {
		errs = append(errs, fmt.Errorf("%w: %q (source of %s)", ErrUnknownState, r.From, r.Event))
	}

	if _, ok := states[r.To]; !ok {
		errs = append(errs, fmt.Errorf("%w: %q (target of %s)", ErrUnknownState, r.To, r.Event))
	}

	if _, ok := events[r.Event]; !ok {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEvent, r.Event))
	}

	return errors.Join(errs...)
}
