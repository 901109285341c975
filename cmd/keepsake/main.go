// Command keepsake exports, imports and merges goal-tracking datasets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/keepsake/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, &cli.RootOptions{}, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
