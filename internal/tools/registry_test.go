// File: internal/tools/registry_test.go
package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
)

func noopHandler(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
	return TextResult("ok"), nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Tool{Name: "alpha", Description: "first", Handler: noopHandler})
	reg.Register(Tool{Name: "beta", Description: "second", Handler: noopHandler})

	tool, ok := reg.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "first", tool.Description)

	_, ok = reg.Lookup("gamma")
	assert.False(t, ok, "unknown names report absent, they never panic")
	assert.Equal(t, 2, reg.Len())
}

func TestRegistryDuplicatePanics(t *testing.T) {
	reg := NewRegistry()
	reg.Register(Tool{Name: "alpha", Handler: noopHandler})
	assert.Panics(t, func() {
		reg.Register(Tool{Name: "alpha", Handler: noopHandler})
	})
}

func TestRegistryRejectsMalformedTools(t *testing.T) {
	reg := NewRegistry()
	assert.Panics(t, func() { reg.Register(Tool{Name: "", Handler: noopHandler}) })
	assert.Panics(t, func() { reg.Register(Tool{Name: "no-handler"}) })
}

func TestRegistryListOrderAndRestartability(t *testing.T) {
	reg := NewRegistry()
	names := []string{"one", "two", "three"}
	for _, name := range names {
		reg.Register(Tool{Name: name, Handler: noopHandler})
	}

	collect := func() []string {
		var got []string
		for tool := range reg.List() {
			got = append(got, tool.Name)
		}
		return got
	}

	assert.Equal(t, names, collect(), "listing preserves registration order")
	assert.Equal(t, names, collect(), "the sequence restarts from the beginning")

	// Early break must not disturb later iterations.
	for range reg.List() {
		break
	}
	assert.Equal(t, names, collect())
}
