package main

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/fsm"
	"gopkg.in/yaml.v3"
)

func kindArg(fs *flag.FlagSet, args []string) (fsm.Kind, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if fs.NArg() != 1 {
		return "", fmt.Errorf("%w: %s needs exactly one kind", errUsage, fs.Name())
	}

	return fsm.Kind(fs.Arg(0)), nil
}

func listKinds(cat *catalog.Catalog, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0) //nolint:mnd

	fmt.Fprintln(tw, "KIND\tINITIAL\tSTATES\tEVENTS\tFINGERPRINT")

	for _, kind := range cat.Kinds() {
		desc, err := cat.Describe(kind)
		if err != nil {
			return err
		}

		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			desc.Kind, desc.Initial, len(desc.States), len(desc.Events), desc.Fingerprint)
	}

	return tw.Flush()
}

func diagram(cat *catalog.Catalog, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("diagram", flag.ContinueOnError)
	fs.SetOutput(out)

	var (
		opts      fsm.DiagramOptions
		highlight string
	)

	fs.BoolVar(&opts.ShowGuards, "guards", false, "mark guarded transitions")
	fs.StringVar(&opts.Direction, "dir", "", "LR or TB")
	fs.BoolVar(&opts.Fenced, "fenced", false, "wrap in a markdown code fence")
	fs.StringVar(&highlight, "highlight", "", "comma separated states to highlight")

	kind, err := kindArg(fs, args)
	if err != nil {
		return err
	}

	entry, ok := cat.Lookup(kind)
	if !ok {
		return fmt.Errorf("%w: %q", catalog.ErrUnknownKind, kind)
	}

	for _, s := range strings.Split(highlight, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.Highlight = append(opts.Highlight, fsm.StateID(s))
		}
	}

	_, err = io.WriteString(out, fsm.Mermaid(entry.Definition, opts))

	return err
}

func describe(cat *catalog.Catalog, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("describe", flag.ContinueOnError)
	fs.SetOutput(out)

	kind, err := kindArg(fs, args)
	if err != nil {
		return err
	}

	desc, err := cat.Describe(kind)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2) //nolint:mnd

	if err := enc.Encode(desc); err != nil {
		return err
	}

	return enc.Close()
}
