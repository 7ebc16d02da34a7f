package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/logger"
	"github.com/amp-labs/amp-fsm/machine"
)

var errScriptFailed = errors.New("script had failing lines")

func runScript(ctx context.Context, cat *catalog.Catalog, args []string, in io.Reader, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(out)

	initial := fs.String("state", "", "state to start in, defaults to the initial state")
	file := fs.String("file", "", "read commands from this file instead of stdin")

	kind, err := kindArg(fs, args)
	if err != nil {
		return err
	}

	if *file != "" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}

		defer f.Close() //nolint:errcheck

		in = f
	}

	if err := startMetrics(ctx); err != nil {
		return err
	}

	return playScript(ctx, cat, kind, fsm.StateID(*initial), in, out)
}

// playScript applies one command per line to a fresh machine and prints
// each outcome. Blank lines and lines starting with # are skipped; "state"
// prints a snapshot. Unparsable lines are reported and skipped.
func playScript(
	ctx context.Context, cat *catalog.Catalog, kind fsm.Kind, initial fsm.StateID, in io.Reader, out io.Writer,
) error {
	ctrl, err := cat.Spawn(ctx, kind, initial, machine.WithName(string(kind)+"-script"))
	if err != nil {
		return err
	}

	drained := make(chan struct{})

	go func() {
		defer close(drained)

		for range ctrl.Responses() { //nolint:revive
		}
	}()

	defer func() {
		ctrl.Close()
		ctrl.Wait()
		<-drained
	}()

	log := logger.Get(ctx)
	scanner := bufio.NewScanner(in)
	failed := 0

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fmt.Fprintf(out, "> %s\n", line)

		if line == "state" {
			snap, err := ctrl.State(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "  %s\n", snap)

			continue
		}

		event, err := cat.ParseEvent(kind, line)
		if err != nil {
			failed++

			fmt.Fprintf(out, "  line %d: %v\n", lineNo, err)
			log.Debug("unparsable script line", "line", lineNo, "error", err)

			continue
		}

		outcome, err := ctrl.Apply(ctx, event)
		if err != nil {
			return err
		}

		printOutcome(out, outcome)
	}

	if err := scanner.Err(); err != nil {
		return err
	}

	snap, err := ctrl.State(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "final: %s\n", snap)

	if failed > 0 {
		return fmt.Errorf("%w: %d", errScriptFailed, failed)
	}

	return nil
}

func printOutcome(out io.Writer, outcome fsm.Outcome) {
	if outcome.Response == nil {
		fmt.Fprintln(out, "  (silent)")

		return
	}

	fmt.Fprintf(out, "  %s\n", outcome.Response)
}
