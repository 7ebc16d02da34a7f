package fsm

import "fmt"

// Rule is one row of a transition table: leaving From on Event moves to To.
//
// Guard, when set, may refuse the event; it sees a copy of the payload.
// Update, when set, receives a copy of the payload and returns the payload of
// the target state. Neither may hold on to references inside the payload.
// Silent rules complete without an externally visible response.
// GuardName and UpdateName are the hook names a table refers to them by.
type Rule[D any, E Event] struct {
	From       StateID
	Event      EventID
	To         StateID
	Guard      func(data D, event E) error
	GuardName  string
	Update     func(data D, event E) D
	UpdateName string
	Silent     bool
}

// TransitionOption customises a rule added through the Builder.
type TransitionOption[D any, E Event] func(*Rule[D, E], *ruleScope)

type ruleScope struct {
	except map[StateID]struct{}
}

// WithGuard sets the guard of a rule.
func WithGuard[D any, E Event](guard func(data D, event E) error) TransitionOption[D, E] {
	return func(r *Rule[D, E], _ *ruleScope) {
		r.Guard = guard
	}
}

// WithNamedGuard is WithGuard with the hook name used by Definition.Table.
func WithNamedGuard[D any, E Event](name string, guard func(data D, event E) error) TransitionOption[D, E] {
	return func(r *Rule[D, E], _ *ruleScope) {
		r.Guard = guard
		r.GuardName = name
	}
}

// WithUpdate sets the payload update of a rule.
func WithUpdate[D any, E Event](update func(data D, event E) D) TransitionOption[D, E] {
	return func(r *Rule[D, E], _ *ruleScope) {
		r.Update = update
	}
}

// WithNamedUpdate is WithUpdate with the hook name used by Definition.Table.
func WithNamedUpdate[D any, E Event](name string, update func(data D, event E) D) TransitionOption[D, E] {
	return func(r *Rule[D, E], _ *ruleScope) {
		r.Update = update
		r.UpdateName = name
	}
}

// Silently marks a rule as producing no response.
func Silently[D any, E Event]() TransitionOption[D, E] {
	return func(r *Rule[D, E], _ *ruleScope) {
		r.Silent = true
	}
}

// Except removes source states from a FromAny rule. It has no effect on
// rules added with Transition.
func Except[D any, E Event](states ...StateID) TransitionOption[D, E] {
	return func(_ *Rule[D, E], scope *ruleScope) {
		if scope.except == nil {
			scope.except = make(map[StateID]struct{}, len(states))
		}

		for _, s := range states {
			scope.except[s] = struct{}{}
		}
	}
}

// TransitionInfo is the shape of a rule without its functions.
type TransitionInfo struct {
	From    StateID `json:"from"    yaml:"from"`
	Event   EventID `json:"event"   yaml:"event"`
	To      StateID `json:"to"      yaml:"to"`
	Guarded bool    `json:"guarded" yaml:"guarded"`
	Updates bool    `json:"updates" yaml:"updates"`
	Silent  bool    `json:"silent"  yaml:"silent"`
}

func (r Rule[D, E]) info() TransitionInfo {
	return TransitionInfo{
		From:    r.From,
		Event:   r.Event,
		To:      r.To,
		Guarded: r.Guard != nil,
		Updates: r.Update != nil,
		Silent:  r.Silent,
	}
}

// guardName returns the hook name of the guard, making one up from the rule
// position when the guard was added without a name.
func (r Rule[D, E]) guardName() string {
	switch {
	case r.Guard == nil:
		return ""
	case r.GuardName != "":
		return r.GuardName
	default:
		return fmt.Sprintf("%s.%s.guard", r.From, r.Event)
	}
}

func (r Rule[D, E]) updateName() string {
	switch {
	case r.Update == nil:
		return ""
	case r.UpdateName != "":
		return r.UpdateName
	default:
		return fmt.Sprintf("%s.%s.update", r.From, r.Event)
	}
}
