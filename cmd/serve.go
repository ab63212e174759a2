// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
	"github.com/fracalo/electron-playwright-mcp/internal/observability"
	"github.com/fracalo/electron-playwright-mcp/internal/protocol"
	"github.com/fracalo/electron-playwright-mcp/internal/tools"
)

const shutdownTimeout = 15 * time.Second

// newServeCmd creates and configures the `serve` command.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the automation RPC protocol over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := configFromContext(ctx)

			manager, err := browser.NewManager(ctx, logger, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize browser manager: %w", err)
			}

			session := browser.NewSession(manager, logger, cfg)

			registry := tools.NewRegistry()
			tools.RegisterAll(registry, cfg)
			dispatcher := tools.NewDispatcher(registry, session, logger)

			server := protocol.NewServer(registry, dispatcher, protocol.ServerInfo{
				Name:    cfg.Server.Name,
				Version: Version,
			}, os.Stdin, os.Stdout, logger)

			logger.Info("Serving RPC protocol on stdio",
				zap.String("server", cfg.Server.Name),
				zap.Int("tools", registry.Len()),
			)

			// The serve loop blocks on stdin and ends on EOF or a stream
			// error. A signal cancels the group context instead; the
			// blocked stdin read is abandoned, not waited for.
			g, gctx := errgroup.WithContext(ctx)
			serveErr := make(chan error, 1)
			g.Go(func() error {
				err := server.Serve(gctx)
				serveErr <- err
				return err
			})

			var runErr error
			select {
			case <-gctx.Done():
				// Interrupted while reading stdin; the read is abandoned.
			case runErr = <-serveErr:
			}

			shutdown(session, manager, logger)

			if runErr == nil {
				select {
				case runErr = <-serveErr:
				default:
				}
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			return nil
		},
	}
}

// shutdown tears down the session and browser with a bounded deadline.
func shutdown(session *browser.Session, manager *browser.Manager, logger *zap.Logger) {
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := session.Close(shutdownCtx); err != nil {
		logger.Warn("Session close reported an error", zap.Error(err))
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Browser shutdown reported an error", zap.Error(err))
	}
	observability.Sync()
}
