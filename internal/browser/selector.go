// File: internal/browser/selector.go
package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
)

// discriminatingAttrs are consulted in priority order when a node has no
// id attribute. The first non-empty one is appended to the selector.
var discriminatingAttrs = []string{"name", "type", "placeholder", "aria-label"}

// SelectorFor builds a best-effort CSS selector for a node. Priority: id
// attribute, then tag plus class list plus the first discriminating
// attribute, then the bare tag. The result is not guaranteed unique in
// the document; first match wins at resolution time.
func SelectorFor(node *cdp.Node) string {
	if id := node.AttributeValue("id"); id != "" {
		return "#" + id
	}

	tag := strings.ToLower(node.NodeName)
	var b strings.Builder
	b.WriteString(tag)

	if classes := node.AttributeValue("class"); classes != "" {
		for _, cls := range strings.Fields(classes) {
			b.WriteByte('.')
			b.WriteString(cls)
		}
	}

	for _, attr := range discriminatingAttrs {
		if v := node.AttributeValue(attr); v != "" {
			fmt.Fprintf(&b, "[%s=%q]", attr, v)
			break
		}
	}

	return b.String()
}
