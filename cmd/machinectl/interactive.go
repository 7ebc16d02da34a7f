package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/cli"
	"github.com/amp-labs/amp-fsm/fleet"
	"github.com/amp-labs/amp-fsm/fsm"
	"github.com/amp-labs/amp-fsm/machine"
	"github.com/amp-labs/amp-fsm/machines/lathe"
	"github.com/amp-labs/amp-fsm/machines/mill"
	"github.com/amp-labs/amp-fsm/shutdown"
	"github.com/manifoldco/promptui"
)

const (
	actionStopAll = "[emergency-stop-all]"
	actionStates  = "[states]"
	actionQuit    = "[quit]"
)

func runFleet(ctx context.Context, cat *catalog.Catalog, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("fleet", flag.ContinueOnError)
	fs.SetOutput(out)

	lathes := fs.Int("lathes", 2, "number of lathes") //nolint:mnd
	mills := fs.Int("mills", 1, "number of mills")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fl, err := buildFleet(ctx, cat, map[fsm.Kind]int{lathe.Kind: *lathes, mill.Kind: *mills})
	if err != nil {
		return err
	}

	shutdown.BeforeShutdown("fleet", func(context.Context) { fl.CloseAll() })

	if err := startMetrics(ctx); err != nil {
		return err
	}

	fmt.Fprint(out, cli.BannerAutoWidth(fmt.Sprintf("machinectl fleet: %d machines", fl.Len()), cli.AlignCenter))

	return interact(ctx, cat, fl, out)
}

// buildFleet spawns count machines of each kind, in catalog order, named
// kind-1, kind-2 and so on.
func buildFleet(ctx context.Context, cat *catalog.Catalog, counts map[fsm.Kind]int) (*fleet.Fleet, error) {
	fl, err := fleet.New(ctx)
	if err != nil {
		return nil, err
	}

	for _, kind := range cat.Kinds() {
		for i := range counts[kind] {
			name := string(kind) + "-" + strconv.Itoa(i+1)

			if _, err := fl.Spawn(ctx, cat, kind, "", machine.WithName(name)); err != nil {
				fl.CloseAll()

				return nil, err
			}
		}
	}

	go drainAll(fl)

	return fl, nil
}

// Responses are read back through Apply; the outboxes only need emptying.
func drainAll(fl *fleet.Fleet) {
	for _, c := range fl.Members() {
		go func() {
			for range c.Responses() { //nolint:revive
			}
		}()
	}
}

func interact(ctx context.Context, cat *catalog.Catalog, fl *fleet.Fleet, out io.Writer) error {
	for ctx.Err() == nil {
		members := fl.Members()

		items := make([]string, 0, len(members)+3) //nolint:mnd
		for _, c := range members {
			items = append(items, c.Name())
		}

		items = append(items, actionStopAll, actionStates, actionQuit)

		idx, choice, err := cli.Select("machine", items...)
		if err != nil {
			return quitErr(err)
		}

		switch {
		case choice == actionQuit:
			return nil
		case choice == actionStates:
			printStates(ctx, fl, out)
		case choice == actionStopAll:
			emergencyStopAll(ctx, fl, out)
		default:
			if err := promptEvent(ctx, cat, members[idx], out); err != nil {
				return err
			}
		}
	}

	return nil
}

func promptEvent(ctx context.Context, cat *catalog.Catalog, ctrl catalog.Controller, out io.Writer) error {
	line, err := cli.PromptLine(ctrl.Name()+" event", func(s string) error {
		_, err := cat.ParseEvent(ctrl.Kind(), s)

		return err
	})
	if err != nil {
		return quitErr(err)
	}

	event, err := cat.ParseEvent(ctrl.Kind(), line)
	if err != nil {
		return err
	}

	outcome, err := ctrl.Apply(ctx, event)
	if err != nil {
		fmt.Fprintf(out, "  %s: %v\n", ctrl.Name(), err)

		return nil
	}

	printOutcome(out, outcome)

	return nil
}

func printStates(ctx context.Context, fl *fleet.Fleet, out io.Writer) {
	for _, c := range fl.Members() {
		snap, err := c.State(ctx)
		if err != nil {
			fmt.Fprintf(out, "  %-10s %v\n", c.Name(), err)

			continue
		}

		fmt.Fprintf(out, "  %-10s %s\n", c.Name(), snap)
	}
}

func emergencyStopAll(ctx context.Context, fl *fleet.Fleet, out io.Writer) {
	deliveries, err := fl.ApplyAll(ctx, lathe.EmergencyStop{})

	for _, d := range deliveries {
		if d.Err == nil {
			fmt.Fprintf(out, "  %-10s ", d.Name)
			printOutcome(out, d.Outcome)
		}
	}

	if err != nil {
		fmt.Fprintf(out, "  %v\n", err)
	}
}

func quitErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return nil
	}

	return err
}
