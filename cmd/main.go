package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/ndx/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := runner.App().Run(ctx, os.Args)
	stop()

	if err != nil {
		if errors.Is(err, shared.ErrCancelled) || errors.Is(err, context.Canceled) {
			logger.Warn("cancelled, partial results were kept", "error", err)
			os.Exit(130)
		}
		logger.Fatalf("application error: %v", err)
	}
}
