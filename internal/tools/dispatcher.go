// File: internal/tools/dispatcher.go
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
	"github.com/fracalo/electron-playwright-mcp/internal/schema"
)

// Dispatcher bridges untyped remote calls to typed handler invocations.
// It holds no per-call state; the mutex serializes calls because the
// session (one active page, one ref map) is not safe for interleaved
// mutation.
type Dispatcher struct {
	registry *Registry
	session  *browser.Session
	logger   *zap.Logger

	mu sync.Mutex
}

func NewDispatcher(registry *Registry, session *browser.Session, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		session:  session,
		logger:   logger.Named("dispatcher"),
	}
}

// Dispatch runs one call to completion: lookup, validate, execute,
// normalize. Protocol-level failures (unknown tool, schema violation)
// come back as errors for the transport to classify. Handler failures
// come back as a Result with IsError set, carrying the original
// message; they are never wrapped into protocol errors, and protocol
// errors are never double-wrapped.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (*Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tool, ok := d.registry.Lookup(name)
	if !ok {
		d.logger.Warn("Call to unregistered tool.", zap.String("tool", name))
		return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := tool.InputSchema.Validate(args); err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			return nil, &InvalidArgumentsError{Tool: name, Field: verr.Field, Reason: verr.Reason}
		}
		return nil, &InvalidArgumentsError{Tool: name, Reason: err.Error()}
	}

	start := time.Now()
	result, err := tool.Handler(ctx, d.session, args)
	elapsed := time.Since(start)

	if err != nil {
		if isProtocolError(err) {
			return nil, err
		}
		d.logger.Warn("Tool execution failed.",
			zap.String("tool", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return &Result{
			Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf("Error: %s", err.Error())}},
			IsError: true,
		}, nil
	}

	d.logger.Debug("Tool executed.",
		zap.String("tool", name),
		zap.Duration("elapsed", elapsed))

	if result == nil {
		result = TextResult("done")
	}
	return result, nil
}
