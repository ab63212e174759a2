// File: internal/browser/refmap_test.go
package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefMapResolve(t *testing.T) {
	m := NewRefMap()

	_, ok := m.Resolve("e100")
	assert.False(t, ok, "empty map resolves nothing")

	m.Replace(map[string]string{"e100": "#submit", "e101": "input[name=\"q\"]"})
	sel, ok := m.Resolve("e100")
	require.True(t, ok)
	assert.Equal(t, "#submit", sel)
	assert.Equal(t, 2, m.Len())
}

func TestRefMapWholesaleInvalidation(t *testing.T) {
	m := NewRefMap()
	m.Replace(map[string]string{"e100": "#a", "e101": "#b"})

	// The next generation replaces everything at once.
	m.Replace(map[string]string{"e100": "#c"})

	sel, ok := m.Resolve("e100")
	require.True(t, ok)
	assert.Equal(t, "#c", sel, "a reused ref resolves against the new generation only")

	_, ok = m.Resolve("e101")
	assert.False(t, ok, "refs absent from the new generation are stale")
}

func TestRefMapReplaceNil(t *testing.T) {
	m := NewRefMap()
	m.Replace(map[string]string{"e100": "#a"})
	m.Replace(nil)
	assert.Equal(t, 0, m.Len())
	_, ok := m.Resolve("e100")
	assert.False(t, ok)
}

func TestSnapshotGenerationsEndToEnd(t *testing.T) {
	// Two successive snapshots of different documents: the second
	// snapshot's refs supersede the first's entirely.
	m := NewRefMap()

	first := BuildSnapshot(body(
		elem("button", []string{"id", "save"}, textNode("Save")),
		elem("button", []string{"id", "cancel"}, textNode("Cancel")),
	), "u", "t")
	m.Replace(first.Refs())
	require.Equal(t, 2, m.Len())

	second := BuildSnapshot(body(
		elem("button", []string{"id", "confirm"}, textNode("Confirm")),
	), "u", "t")
	m.Replace(second.Refs())

	sel, ok := m.Resolve("e100")
	require.True(t, ok)
	assert.Equal(t, "#confirm", sel)
	_, ok = m.Resolve("e101")
	assert.False(t, ok, "the first generation's e101 must be gone")
}
