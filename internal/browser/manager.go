// File: internal/browser/manager.go

// Package browser owns the automation session against the controlled
// application: the browser process (launched or attached), its open
// pages, and the element reference map produced by snapshots.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/config"
)

// Manager handles the lifecycle of the browser process all pages derive from.
type Manager struct {
	logger       *zap.Logger
	globalConfig *config.Config

	// allocatorCtx manages the browser process. All page contexts are derived from this.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// wg tracks open pages for a graceful shutdown.
	wg sync.WaitGroup
}

// NewManager connects to the automation target. With browser.remote_url
// set it attaches to the running application's DevTools endpoint,
// otherwise it launches a browser process. The target is probed before
// returning; an unreachable target is a startup failure.
func NewManager(ctx context.Context, logger *zap.Logger, cfg *config.Config) (*Manager, error) {
	m := &Manager{
		logger:       logger.Named("browser_manager"),
		globalConfig: cfg,
	}

	if err := m.connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return m, nil
}

func (m *Manager) connect(ctx context.Context) error {
	if remote := m.globalConfig.Browser.RemoteURL; remote != "" {
		m.logger.Info("Attaching to running application.", zap.String("remote_url", remote))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewRemoteAllocator(ctx, remote)
	} else {
		m.logger.Info("Initializing browser allocator...")
		opts := m.buildAllocatorOptions()
		m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	}

	// Create a temporary context with a timeout to verify the browser is responsive.
	testCtx, cancelTest := context.WithTimeout(m.allocatorCtx, 30*time.Second)
	testCtx, cancelTestCtx := chromedp.NewContext(testCtx)
	defer cancelTestCtx()
	defer cancelTest()

	// Run a simple task to confirm the browser is alive.
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser is connected and responsive.")
	return nil
}

// buildAllocatorOptions assembles the launch flags for a freshly spawned instance.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	// Start with default options, filtering out the automation banner flag.
	// Flags are stored in a map, so setting "enable-automation" to false
	// overrides the default and keeps it off the command line.
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("enable-automation", false))

	opts = append(opts,
		chromedp.Flag("headless", m.globalConfig.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", m.globalConfig.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.globalConfig.Browser.Headless),
	)

	if m.globalConfig.Browser.DisableCache {
		opts = append(opts, chromedp.Flag("disable-application-cache", true))
	}
	if execPath := m.globalConfig.Browser.ExecPath; execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	// Add custom arguments from config.yaml.
	for _, arg := range m.globalConfig.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")

		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// Shutdown waits for open pages to close and then terminates the browser process.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Browser manager shutdown initiated. Waiting for open pages to close...")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("All pages have closed.")
	case <-ctx.Done():
		m.logger.Warn("Shutdown deadline exceeded. Forcing browser termination.", zap.Error(ctx.Err()))
	}

	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down browser process...")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
	return nil
}
