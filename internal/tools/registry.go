// File: internal/tools/registry.go

// Package tools binds operation names to their argument schemas and
// handlers, and dispatches validated calls against the automation
// session.
package tools

import (
	"context"
	"fmt"
	"iter"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
	"github.com/fracalo/electron-playwright-mcp/internal/schema"
)

// ContentBlock is one entry of a tool result, discriminated by type.
// Currently every block is textual.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the normalized output contract every handler returns.
type Result struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// TextResult builds a single-block textual result.
func TextResult(format string, args ...any) *Result {
	return &Result{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

// Handler implements one operation against the shared session.
type Handler func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error)

// Tool is one registered operation descriptor.
type Tool struct {
	Name        string
	Description string
	InputSchema schema.Schema
	Handler     Handler
}

// Registry is the single source of truth for callable operations. It is
// populated once at process start and immutable afterwards.
type Registry struct {
	order  []*Tool
	byName map[string]*Tool
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Tool)}
}

// Register adds a tool. Registration happens once at startup; a
// duplicate or empty name is a programming error and aborts.
func (r *Registry) Register(t Tool) {
	if t.Name == "" {
		panic("tools: cannot register a tool with an empty name")
	}
	if t.Handler == nil {
		panic(fmt.Sprintf("tools: tool %q registered without a handler", t.Name))
	}
	if _, exists := r.byName[t.Name]; exists {
		panic(fmt.Sprintf("tools: tool %q is already registered", t.Name))
	}
	tool := t
	r.byName[t.Name] = &tool
	r.order = append(r.order, &tool)
}

// Lookup returns the descriptor for a name. Unknown names report false
// rather than failing, so the caller can classify the miss.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// List yields the registered tools in registration order. The sequence
// is restartable; each range starts from the beginning.
func (r *Registry) List() iter.Seq[*Tool] {
	return func(yield func(*Tool) bool) {
		for _, t := range r.order {
			if !yield(t) {
				return
			}
		}
	}
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.order) }
