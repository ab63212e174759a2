// ./main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fracalo/electron-playwright-mcp/cmd"
)

// main is the entry point for the electron-mcp server.
func main() {
	// Cancel the root context on SIGINT or SIGTERM so the serve loop
	// can shut the browser down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
