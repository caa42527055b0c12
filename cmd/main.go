package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/melodyforge/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			runner.Close()
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "mforge",
		Usage:    "Search, recommend & download tracks",
		Version:  "0.1.0",
		Flags:    globalFlags(),
		Before:   r.Init,
		Commands: r.register(),
	}
}
