// Package app runs the eruption-sdk command line and maps failures to exit
// codes.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/eruption-project/eruption-sdk/internal/cli"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

// Execute returns 0 on success, 2 for usage errors, and 1 for everything
// else.
func (r Runner) Execute(ctx context.Context, args []string) int {
	env := &cli.Env{Stdout: r.Stdout, Stderr: r.Stderr, Logger: r.Logger}
	defer func() {
		if err := env.Close(); err != nil {
			fmt.Fprintf(r.Stderr, "warning: %v\n", err)
		}
	}()

	root := cli.NewRootCommand(env)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return 1
	}

	fmt.Fprintf(r.Stderr, "error: %v\n", err)
	if cli.IsUsage(err) {
		cmd := root
		if found, _, findErr := root.Find(args); findErr == nil && found != nil {
			cmd = found
		}
		fmt.Fprintf(r.Stderr, "\n%s", cmd.UsageString())
		return 2
	}
	return 1
}
