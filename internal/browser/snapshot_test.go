// File: internal/browser/snapshot_test.go
package browser

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chromedp/cdproto/cdp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Node Fabrication Helpers --

func elem(tag string, attrs []string, children ...*cdp.Node) *cdp.Node {
	return &cdp.Node{
		NodeType:   cdp.NodeTypeElement,
		NodeName:   strings.ToUpper(tag),
		Attributes: attrs,
		Children:   children,
	}
}

func textNode(s string) *cdp.Node {
	return &cdp.Node{
		NodeType:  cdp.NodeTypeText,
		NodeName:  "#text",
		NodeValue: s,
	}
}

func body(children ...*cdp.Node) *cdp.Node {
	return elem("body", nil, children...)
}

// -- Snapshot Construction Tests --

func TestBuildSnapshotSingleButton(t *testing.T) {
	// A page with one visible button labeled "Submit".
	root := body(elem("button", nil, textNode("Submit")))

	snap := BuildSnapshot(root, "https://app.local/", "Demo")
	require.Len(t, snap.Elements, 1)

	el := snap.Elements[0]
	assert.Equal(t, "e100", el.Ref, "first ref must be the base value")
	assert.Equal(t, "button", el.Tag)
	assert.Equal(t, "Submit", el.Name)
	assert.True(t, el.Clickable)
	assert.Equal(t, 0, el.Depth)
}

func TestBuildSnapshotRefsStrictlyIncreasing(t *testing.T) {
	root := body(
		elem("h1", nil, textNode("Login")),
		elem("div", nil,
			elem("input", []string{"type", "text", "name", "user"}),
			elem("input", []string{"type", "password", "name", "pass"}),
		),
		elem("button", nil, textNode("Sign in")),
	)

	snap := BuildSnapshot(root, "https://app.local/login", "Login")
	require.NotEmpty(t, snap.Elements)

	prev := refBase - 1
	seen := map[string]bool{}
	for _, el := range snap.Elements {
		require.True(t, strings.HasPrefix(el.Ref, "e"))
		n, err := strconv.Atoi(strings.TrimPrefix(el.Ref, "e"))
		require.NoError(t, err)
		assert.Greater(t, n, prev, "refs must be strictly increasing in pre-order")
		assert.False(t, seen[el.Ref], "refs must not repeat within one snapshot")
		seen[el.Ref] = true
		prev = n
	}
	assert.Equal(t, "e100", snap.Elements[0].Ref)
}

func TestBuildSnapshotContainerTraversal(t *testing.T) {
	// An empty wrapper is not captured, but its children are, at increased depth.
	root := body(
		elem("div", nil,
			elem("button", nil, textNode("Inner")),
		),
	)

	snap := BuildSnapshot(root, "u", "t")
	// The div carries the descendant text, so both are captured; the
	// button's depth reflects nesting either way.
	var btn *Element
	for i := range snap.Elements {
		if snap.Elements[i].Tag == "button" {
			btn = &snap.Elements[i]
		}
	}
	require.NotNil(t, btn)
	assert.Equal(t, 1, btn.Depth)

	// A wrapper with no text at all is excluded while its child survives.
	root2 := body(
		elem("div", nil,
			elem("input", []string{"type", "text"}),
		),
	)
	snap2 := BuildSnapshot(root2, "u", "t")
	require.Len(t, snap2.Elements, 1)
	assert.Equal(t, "input", snap2.Elements[0].Tag)
	assert.Equal(t, "e100", snap2.Elements[0].Ref)
}

func TestBuildSnapshotSkipsScriptSubtrees(t *testing.T) {
	root := body(
		elem("script", nil, textNode("var secret = 1;")),
		elem("style", nil, textNode("body { color: red }")),
		elem("p", nil, textNode("Visible")),
	)

	snap := BuildSnapshot(root, "u", "t")
	require.Len(t, snap.Elements, 1)
	assert.Equal(t, "p", snap.Elements[0].Tag)
	assert.Equal(t, "Visible", snap.Elements[0].Name)
}

func TestBuildSnapshotTextHandling(t *testing.T) {
	t.Run("collapses whitespace", func(t *testing.T) {
		root := body(elem("p", nil, textNode("  hello\n\t world  ")))
		snap := BuildSnapshot(root, "u", "t")
		require.Len(t, snap.Elements, 1)
		assert.Equal(t, "hello world", snap.Elements[0].Name)
	})

	t.Run("truncates to the bound", func(t *testing.T) {
		long := strings.Repeat("x", 300)
		root := body(elem("p", nil, textNode(long)))
		snap := BuildSnapshot(root, "u", "t")
		require.Len(t, snap.Elements, 1)
		assert.Len(t, snap.Elements[0].Name, maxNameLength)
	})

	t.Run("truncates multibyte text on a rune boundary", func(t *testing.T) {
		long := strings.Repeat("ü", 300)
		root := body(elem("p", nil, textNode(long)))
		snap := BuildSnapshot(root, "u", "t")
		require.Len(t, snap.Elements, 1)

		name := snap.Elements[0].Name
		assert.True(t, utf8.ValidString(name), "truncation must not split a rune")
		assert.Equal(t, maxNameLength, utf8.RuneCountInString(name))
	})
}

func TestBuildSnapshotClickableRules(t *testing.T) {
	cases := []struct {
		name      string
		node      *cdp.Node
		clickable bool
	}{
		{"anchor", elem("a", []string{"href", "/x"}, textNode("link")), true},
		{"select", elem("select", nil), true},
		{"onclick attribute", elem("div", []string{"onclick", "go()"}, textNode("go")), true},
		{"role button", elem("span", []string{"role", "button"}, textNode("press")), true},
		{"plain heading", elem("h2", nil, textNode("About")), false},
		{"plain paragraph", elem("p", nil, textNode("text")), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := BuildSnapshot(body(tc.node), "u", "t")
			require.NotEmpty(t, snap.Elements)
			assert.Equal(t, tc.clickable, snap.Elements[0].Clickable)
		})
	}
}

func TestBuildSnapshotRoles(t *testing.T) {
	root := body(
		elem("button", nil, textNode("b")),
		elem("a", []string{"href", "/"}, textNode("a")),
		elem("h3", nil, textNode("h")),
		elem("div", []string{"role", "dialog"}, textNode("d")),
	)
	snap := BuildSnapshot(root, "u", "t")
	require.Len(t, snap.Elements, 4)
	assert.Equal(t, "button", snap.Elements[0].Role)
	assert.Equal(t, "link", snap.Elements[1].Role)
	assert.Equal(t, "heading", snap.Elements[2].Role)
	assert.Equal(t, "dialog", snap.Elements[3].Role, "explicit role attribute wins")
}

func TestBuildSnapshotNilBody(t *testing.T) {
	snap := BuildSnapshot(nil, "u", "t")
	assert.Empty(t, snap.Elements)
	assert.Empty(t, snap.Refs())
}

// -- Output Tests --

func TestSnapshotRefsMapping(t *testing.T) {
	root := body(
		elem("input", []string{"id", "user"}),
		elem("button", nil, textNode("Go")),
	)
	snap := BuildSnapshot(root, "u", "t")
	refs := snap.Refs()
	require.Len(t, refs, 2)
	assert.Equal(t, "#user", refs["e100"])
	assert.Equal(t, "button", refs["e101"])
}

func TestSnapshotRender(t *testing.T) {
	root := body(
		elem("h1", nil, textNode("Title")),
		elem("form", nil,
			elem("input", []string{"type", "checkbox", "name", "agree"}),
		),
	)
	snap := BuildSnapshot(root, "https://app.local/", "Demo")
	out := snap.Render()

	assert.Contains(t, out, fmt.Sprintf("Page snapshot: %d elements", len(snap.Elements)))
	assert.Contains(t, out, "URL: https://app.local/")
	assert.Contains(t, out, "Title: Demo")
	assert.Contains(t, out, "[ref=e100]")
	assert.Contains(t, out, "[type=checkbox]")
	assert.NotContains(t, out, "[selector", "selectors are internal and not echoed")

	// The nested input is indented one level deeper than the heading.
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "[tag=input]") {
			assert.True(t, strings.HasPrefix(line, "  "), "nested element must be indented")
		}
		if strings.Contains(line, "[tag=h1]") {
			assert.False(t, strings.HasPrefix(line, " "))
		}
	}
}
