// Package catalog is the type-erased front door to the machine kinds: it
// spawns a machine by kind name and initial state and hands back a
// Controller that accepts any fsm.Event, checking at runtime what the typed
// handles check at compile time.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"facette.io/natsort"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines/lathe"
	"github.com/amp-labs/amp-fsm/machines/mill"
)

var (
	ErrUnknownKind   = errors.New("unknown machine kind")
	ErrDuplicateKind = errors.New("machine kind already registered")
)

// Entry describes one machine kind.
type Entry struct {
	Kind fsm.Kind
	// Definition is the transition table, for diagrams and listings.
	Definition fsm.Describer
	// Spawn starts a machine in the given state; an empty state means the
	// initial state.
	Spawn func(ctx context.Context, initial fsm.StateID, opts ...machine.Option) (Controller, error)
	// Parse turns a command line into an event of this kind.
	Parse func(text string) (fsm.Event, error)
}

// NewEntry builds the entry for a typed definition. Spawned machines start
// with a zero payload.
func NewEntry[D any, E fsm.Event](def *fsm.Definition[D, E], parse func(string) (E, error)) Entry {
	return Entry{
		Kind:       def.Kind(),
		Definition: def,
		Spawn: func(ctx context.Context, initial fsm.StateID, opts ...machine.Option) (Controller, error) {
			if initial == "" {
				initial = def.Initial()
			}

			var zero D

			start, err := def.NewAt(initial, zero)
			if err != nil {
				return nil, err
			}

			h, err := machine.Spawn(ctx, def, start, opts...)
			if err != nil {
				return nil, err
			}

			return &controller[D, E]{h: h}, nil
		},
		Parse: func(text string) (fsm.Event, error) {
			ev, err := parse(text)
			if err != nil {
				return nil, err
			}

			return ev, nil
		},
	}
}

// Catalog is a registry of machine kinds. It is safe for concurrent use.
type Catalog struct {
	mu      sync.RWMutex
	entries map[fsm.Kind]Entry
}

func New() *Catalog {
	return &Catalog{entries: make(map[fsm.Kind]Entry)}
}

var defaultCatalog = sync.OnceValue(func() *Catalog { //nolint:gochecknoglobals
	c := New()

	for _, e := range []Entry{
		NewEntry(lathe.Definition(), lathe.ParseEvent),
		NewEntry(mill.Definition(), mill.ParseEvent),
	} {
		if err := c.Register(e); err != nil {
			panic(err)
		}
	}

	return c
})

// Default returns the catalog holding the lathe and the mill.
func Default() *Catalog {
	return defaultCatalog()
}

func (c *Catalog) Register(e Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[e.Kind]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, e.Kind)
	}

	c.entries[e.Kind] = e

	return nil
}

// Kinds lists the registered kinds in natural order.
func (c *Catalog) Kinds() []fsm.Kind {
	c.mu.RLock()

	names := make([]string, 0, len(c.entries))
	for k := range c.entries {
		names = append(names, string(k))
	}

	c.mu.RUnlock()

	natsort.Sort(names)

	kinds := make([]fsm.Kind, len(names))
	for i, n := range names {
		kinds[i] = fsm.Kind(n)
	}

	return kinds
}

func (c *Catalog) Lookup(kind fsm.Kind) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[kind]

	return e, ok
}

func (c *Catalog) lookup(kind fsm.Kind) (Entry, error) {
	e, ok := c.Lookup(kind)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	return e, nil
}

// Spawn starts a machine of kind in initial, or in its initial state when
// initial is empty.
func (c *Catalog) Spawn(
	ctx context.Context, kind fsm.Kind, initial fsm.StateID, opts ...machine.Option,
) (Controller, error) {
	e, err := c.lookup(kind)
	if err != nil {
		return nil, err
	}

	return e.Spawn(ctx, initial, opts...)
}

// ParseEvent parses a command line for kind.
func (c *Catalog) ParseEvent(kind fsm.Kind, text string) (fsm.Event, error) {
	e, err := c.lookup(kind)
	if err != nil {
		return nil, err
	}

	return e.Parse(text)
}

// Describe returns the table of kind.
func (c *Catalog) Describe(kind fsm.Kind) (fsm.Description, error) {
	e, err := c.lookup(kind)
	if err != nil {
		return fsm.Description{}, err
	}

	return e.Definition.Describe(), nil
}
