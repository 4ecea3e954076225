// File: cmd/vitals/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/vitals-cli/cmd"
	"github.com/xkilldash9x/vitals-cli/internal/observability"
)

func main() {
	defer observability.Sync()

	// Honor SIGINT/SIGTERM at the cooperative cancellation points; an
	// in-flight monitor cycle always finishes first.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		os.Exit(1)
	}
}
