// Command machinectl lists machine kinds, draws their transition tables and
// drives running machines, either from a script or interactively.
//
//	machinectl list
//	machinectl diagram [-guards] [-dir LR] [-fenced] [-highlight Spinning] lathe
//	machinectl describe mill
//	machinectl run [-state Spinning] [-file moves.txt] mill
//	machinectl fleet [-lathes 2] [-mills 1]
//
// Configuration comes from the environment, .env and machinectl.yaml:
// MACHINE_MAILBOX_DEPTH, MACHINE_OUTBOX_SIZE, FLEET_WORKERS, METRICS_ADDR,
// LOG_LEVEL and the OTEL_* variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/amp-labs/amp-fsm/catalog"
	"github.com/amp-labs/amp-fsm/envutil"
	"github.com/amp-labs/amp-fsm/script"
)

var errUsage = errors.New("usage: machinectl list|diagram|describe|run|fleet [flags] [kind]")

func main() {
	env := envutil.String(context.Background(), "ENVIRONMENT", envutil.Default("local")).ValueOrElse("local")

	script.New("machinectl",
		script.WithEnvFiles(".env", "machinectl.yaml"),
		script.WithTelemetry(env),
	).Run(func(ctx context.Context) error {
		return dispatch(ctx, catalog.Default(), flag.Args(), os.Stdin, os.Stdout)
	})
}

func dispatch(ctx context.Context, cat *catalog.Catalog, args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return script.ExitWithError(errUsage)
	}

	cmd, rest := args[0], args[1:]

	var err error

	switch cmd {
	case "list":
		err = listKinds(cat, out)
	case "diagram":
		err = diagram(cat, rest, out)
	case "describe":
		err = describe(cat, rest, out)
	case "run":
		err = runScript(ctx, cat, rest, in, out)
	case "fleet":
		err = runFleet(ctx, cat, rest, out)
	default:
		return script.ExitWithError(fmt.Errorf("%w: unknown command %q", errUsage, cmd))
	}

	return err
}
