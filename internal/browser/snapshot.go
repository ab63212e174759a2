// File: internal/browser/snapshot.go
package browser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/cdproto/cdp"
)

// refBase seeds the reference counter at the start of every snapshot.
const refBase = 100

// maxNameLength bounds the visible text carried per element.
const maxNameLength = 100

// structuralTags are captured even without visible text.
var structuralTags = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"a": true, "label": true, "option": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// skippedTags never contribute text and their subtrees are not traversed.
var skippedTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
}

// clickableTags are interactive by their nature alone.
var clickableTags = map[string]bool{
	"button": true, "a": true, "input": true, "select": true, "textarea": true,
}

// implicitRoles maps tags to the role reported when no role attribute is set.
var implicitRoles = map[string]string{
	"button": "button", "a": "link", "input": "textbox", "select": "combobox",
	"textarea": "textbox", "label": "label", "option": "option",
	"h1": "heading", "h2": "heading", "h3": "heading",
	"h4": "heading", "h5": "heading", "h6": "heading",
}

// Element is one captured row of a snapshot.
type Element struct {
	Ref       string
	Role      string
	Name      string
	Tag       string
	Depth     int
	Clickable bool
	Type      string
	Value     string
	Selector  string
}

// Snapshot is a point-in-time structural capture of the active page.
type Snapshot struct {
	URL      string
	Title    string
	Elements []Element
}

// BuildSnapshot walks the document tree rooted at body in pre-order,
// minting a fresh reference for every captured element. The counter
// restarts at the base value, so references from any earlier snapshot
// are retired as soon as the result's ref map replaces the session's.
func BuildSnapshot(body *cdp.Node, url, title string) *Snapshot {
	snap := &Snapshot{URL: url, Title: title}
	if body == nil {
		return snap
	}
	counter := refBase
	for _, child := range body.Children {
		walkNode(child, 0, &counter, snap)
	}
	return snap
}

func walkNode(node *cdp.Node, depth int, counter *int, snap *Snapshot) {
	if node == nil || node.NodeType != cdp.NodeTypeElement {
		return
	}
	tag := strings.ToLower(node.NodeName)
	if skippedTags[tag] {
		return
	}

	name := visibleText(node)
	if name != "" || structuralTags[tag] {
		ref := fmt.Sprintf("e%d", *counter)
		*counter++

		snap.Elements = append(snap.Elements, Element{
			Ref:       ref,
			Role:      roleFor(node, tag),
			Name:      name,
			Tag:       tag,
			Depth:     depth,
			Clickable: isClickable(node, tag),
			Type:      node.AttributeValue("type"),
			Value:     node.AttributeValue("value"),
			Selector:  SelectorFor(node),
		})
	}

	// Containers that were not captured still contribute their children.
	for _, child := range node.Children {
		walkNode(child, depth+1, counter, snap)
	}
}

// visibleText collapses the whitespace of all descendant text nodes and
// truncates the result on a rune boundary.
func visibleText(node *cdp.Node) string {
	var parts []string
	collectText(node, &parts)
	text := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if utf8.RuneCountInString(text) > maxNameLength {
		text = string([]rune(text)[:maxNameLength])
	}
	return text
}

func collectText(node *cdp.Node, parts *[]string) {
	for _, child := range node.Children {
		switch child.NodeType {
		case cdp.NodeTypeText:
			*parts = append(*parts, child.NodeValue)
		case cdp.NodeTypeElement:
			if !skippedTags[strings.ToLower(child.NodeName)] {
				collectText(child, parts)
			}
		}
	}
}

func roleFor(node *cdp.Node, tag string) string {
	if role := node.AttributeValue("role"); role != "" {
		return role
	}
	if role, ok := implicitRoles[tag]; ok {
		return role
	}
	return "generic"
}

func isClickable(node *cdp.Node, tag string) bool {
	if clickableTags[tag] {
		return true
	}
	if node.AttributeValue("onclick") != "" {
		return true
	}
	return node.AttributeValue("role") == "button"
}

// Refs produces the ref to selector mapping used to replace the
// session's ref map after a snapshot.
func (s *Snapshot) Refs() map[string]string {
	refs := make(map[string]string, len(s.Elements))
	for _, e := range s.Elements {
		refs[e.Ref] = e.Selector
	}
	return refs
}

// Render serializes the snapshot as an indentation-nested textual
// report. Selectors are internal and deliberately not echoed.
func (s *Snapshot) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page snapshot: %d elements\n", len(s.Elements))
	fmt.Fprintf(&b, "URL: %s\n", s.URL)
	fmt.Fprintf(&b, "Title: %s\n", s.Title)
	for _, e := range s.Elements {
		b.WriteByte('\n')
		b.WriteString(strings.Repeat("  ", e.Depth))
		fmt.Fprintf(&b, "- %s %q [ref=%s] [tag=%s]", e.Role, e.Name, e.Ref, e.Tag)
		if e.Clickable {
			b.WriteString(" [clickable]")
		}
		if e.Type != "" {
			fmt.Fprintf(&b, " [type=%s]", e.Type)
		}
		if e.Value != "" {
			fmt.Fprintf(&b, " [value=%s]", e.Value)
		}
	}
	b.WriteByte('\n')
	return b.String()
}
