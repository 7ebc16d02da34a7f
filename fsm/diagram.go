package fsm

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Description is the non-generic view of a Definition, used by tooling that
// handles machines of any kind.
type Description struct {
	Kind        Kind             `json:"kind"        yaml:"kind"`
	Initial     StateID          `json:"initial"     yaml:"initial"`
	States      []StateID        `json:"states"      yaml:"states"`
	Events      []EventID        `json:"events"      yaml:"events"`
	Transitions []TransitionInfo `json:"transitions" yaml:"transitions"`
	Fingerprint string           `json:"fingerprint" yaml:"fingerprint"`
}

// Describer is implemented by every Definition.
type Describer interface {
	Describe() Description
}

// Describe returns the non-generic view of the definition.
func (d *Definition[D, E]) Describe() Description {
	desc := Description{
		Kind:        d.kind,
		Initial:     d.initial,
		States:      d.States(),
		Events:      d.Events(),
		Fingerprint: d.Fingerprint(),
	}

	for _, r := range d.rules {
		desc.Transitions = append(desc.Transitions, r.info())
	}

	return desc
}

// DiagramOptions configures Mermaid output.
type DiagramOptions struct {
	// Direction is "LR" or "TB". Empty means top to bottom.
	Direction string
	// ShowGuards marks guarded transitions with a [guarded] suffix.
	ShowGuards bool
	// Highlight states, typically the current state of a running machine.
	Highlight []StateID
	// Fenced wraps the diagram in a markdown code fence.
	Fenced bool
}

// Mermaid renders a stateDiagram-v2 for any definition.
func Mermaid(def Describer, opts DiagramOptions) string {
	desc := def.Describe()

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		fmt.Fprintf(&sb, "    direction %s\n", opts.Direction)
	}

	for _, s := range desc.States {
		if id := mermaidID(string(s)); id != string(s) {
			fmt.Fprintf(&sb, "    state %q as %s\n", string(s), id)
		}
	}

	fmt.Fprintf(&sb, "    [*] --> %s\n", mermaidID(string(desc.Initial)))

	for _, t := range desc.Transitions {
		label := string(t.Event)
		if opts.ShowGuards && t.Guarded {
			label += " [guarded]"
		}

		fmt.Fprintf(&sb, "    %s --> %s: %s\n", mermaidID(string(t.From)), mermaidID(string(t.To)), label)
	}

	if len(opts.Highlight) > 0 {
		sb.WriteString("\n")
		sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

		for _, s := range opts.Highlight {
			fmt.Fprintf(&sb, "    class %s highlighted\n", mermaidID(string(s)))
		}
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String()
}

// mermaidID folds a state name into an identifier Mermaid accepts: accents
// are stripped after compatibility decomposition and anything else that is
// not a letter, digit or underscore becomes an underscore.
func mermaidID(name string) string {
	var sb strings.Builder

	for _, r := range norm.NFKD.String(name) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}

	if sb.Len() == 0 {
		return "_"
	}

	return sb.String()
}
