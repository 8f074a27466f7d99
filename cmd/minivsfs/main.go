package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"code.cloudfoundry.org/clock"
	"github.com/containerd/log"

	"minivsfs/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log.L.Logger.SetOutput(os.Stderr)

	cmd := cli.NewRootCommand(clock.NewClock())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}
