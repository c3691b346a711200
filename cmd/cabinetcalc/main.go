// cabinetcalc - Cabinet Depth Calculator with Calculation Audits
//
// A command-line tool that resolves construction standards through the
// project hierarchy, calculates cabinet depth breakdowns and stretchers,
// records calculation audits and keeps complexity aggregates current.
//
// Build:
//   go build -o cabinetcalc ./cmd/cabinetcalc
//
// Typical session:
//   cabinetcalc init-db --with-default-template
//   cabinetcalc import-schedule kitchen.csv --project "Smith Kitchen"
//   cabinetcalc recalc-subtree run <run-id>
//   cabinetcalc review

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one command line and releases the database afterwards.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close(context.Background()))
}
