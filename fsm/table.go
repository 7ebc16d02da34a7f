package fsm

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// AnyState as the source of a table transition expands like Builder.FromAny.
const AnyState = "*"

// TableConfig is the declarative form of a transition table.
type TableConfig struct {
	Kind        string             `json:"kind"        yaml:"kind"`
	Initial     string             `json:"initial"     yaml:"initial"`
	States      []string           `json:"states"      yaml:"states"`
	Events      []string           `json:"events"      yaml:"events"`
	Transitions []TransitionConfig `json:"transitions" yaml:"transitions"`
}

// TransitionConfig is one row of a TableConfig. Guard and Update name hooks
// supplied to BuilderFromTable.
type TransitionConfig struct {
	From   string   `json:"from"             yaml:"from"`
	Event  string   `json:"event"            yaml:"event"`
	To     string   `json:"to"               yaml:"to"`
	Except []string `json:"except,omitempty" yaml:"except,omitempty"`
	Guard  string   `json:"guard,omitempty"  yaml:"guard,omitempty"`
	Update string   `json:"update,omitempty" yaml:"update,omitempty"`
	Silent bool     `json:"silent,omitempty" yaml:"silent,omitempty"`
}

// Hooks holds the named guards and updates a table may reference.
type Hooks[D any, E Event] struct {
	Guards  map[string]func(data D, event E) error
	Updates map[string]func(data D, event E) D
}

// LoadTable parses a YAML transition table.
func LoadTable(data []byte) (*TableConfig, error) {
	var cfg TableConfig

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadTableFS reads and parses a YAML transition table from fsys.
func LoadTableFS(fsys fs.FS, path string) (*TableConfig, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table from FS: %w", err)
	}

	return LoadTable(data)
}

// Validate checks the fields a table cannot be built without. The full
// graph checks happen in Builder.Build.
func (c *TableConfig) Validate() error {
	if c.Kind == "" {
		return ErrKindRequired
	}

	if c.Initial == "" {
		return ErrInitialStateRequired
	}

	if len(c.States) == 0 {
		return ErrStateRequired
	}

	if len(c.Events) == 0 {
		return ErrEventRequired
	}

	return nil
}

// BuilderFromTable turns a table into a Builder. The returned builder may be
// extended before Build is called.
func BuilderFromTable[D any, E Event](cfg *TableConfig, hooks Hooks[D, E]) (*Builder[D, E], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	b := NewBuilder[D, E](Kind(cfg.Kind)).Initial(StateID(cfg.Initial))

	for _, s := range cfg.States {
		b.States(StateID(s))
	}

	for _, e := range cfg.Events {
		b.Events(EventID(e))
	}

	for i, t := range cfg.Transitions {
		opts, err := hookOptions(t, hooks)
		if err != nil {
			return nil, fmt.Errorf("transition %d (%s on %s): %w", i, t.From, t.Event, err)
		}

		if t.From == AnyState {
			except := make([]StateID, len(t.Except))
			for j, s := range t.Except {
				except[j] = StateID(s)
			}

			opts = append(opts, Except[D, E](except...))
			b.FromAny(EventID(t.Event), StateID(t.To), opts...)

			continue
		}

		b.Transition(StateID(t.From), EventID(t.Event), StateID(t.To), opts...)
	}

	return b, nil
}

func hookOptions[D any, E Event](t TransitionConfig, hooks Hooks[D, E]) ([]TransitionOption[D, E], error) {
	var opts []TransitionOption[D, E]

	if t.Guard != "" {
		guard, ok := hooks.Guards[t.Guard]
		if !ok {
			return nil, fmt.Errorf("%w: guard %q", ErrUnknownHook, t.Guard)
		}

		opts = append(opts, WithNamedGuard(t.Guard, guard))
	}

	if t.Update != "" {
		update, ok := hooks.Updates[t.Update]
		if !ok {
			return nil, fmt.Errorf("%w: update %q", ErrUnknownHook, t.Update)
		}

		opts = append(opts, WithNamedUpdate(t.Update, update))
	}

	if t.Silent {
		opts = append(opts, Silently[D, E]())
	}

	return opts, nil
}

// Table returns the declarative form of a definition. Guards and updates
// added without a name get one derived from their rule; Hooks returns the
// functions under the same names, so BuilderFromTable(d.Table(), d.Hooks())
// rebuilds the same definition.
func (d *Definition[D, E]) Table() *TableConfig {
	cfg := &TableConfig{
		Kind:    string(d.kind),
		Initial: string(d.initial),
	}

	for _, s := range d.states {
		cfg.States = append(cfg.States, string(s))
	}

	for _, e := range d.events {
		cfg.Events = append(cfg.Events, string(e))
	}

	for _, r := range d.rules {
		cfg.Transitions = append(cfg.Transitions, TransitionConfig{
			From:   string(r.From),
			Event:  string(r.Event),
			To:     string(r.To),
			Guard:  r.guardName(),
			Update: r.updateName(),
			Silent: r.Silent,
		})
	}

	return cfg
}

// Hooks returns the guards and updates of every rule keyed by the names
// Table uses for them.
func (d *Definition[D, E]) Hooks() Hooks[D, E] {
	hooks := Hooks[D, E]{
		Guards:  make(map[string]func(data D, event E) error),
		Updates: make(map[string]func(data D, event E) D),
	}

	for _, r := range d.rules {
		if name := r.guardName(); name != "" {
			hooks.Guards[name] = r.Guard
		}

		if name := r.updateName(); name != "" {
			hooks.Updates[name] = r.Update
		}
	}

	return hooks
}
