// File: internal/tools/tools.go
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fracalo/electron-playwright-mcp/internal/browser"
	"github.com/fracalo/electron-playwright-mcp/internal/config"
	"github.com/fracalo/electron-playwright-mcp/internal/schema"
)

// RegisterAll installs every operation into the registry. Called once at
// process start, before the first call is accepted.
func RegisterAll(reg *Registry, cfg *config.Config) {
	registerNavigation(reg)
	registerInteraction(reg)
	registerSnapshot(reg, cfg)
	registerUtility(reg, cfg)
}

// evaluateScopeRef decides whether an evaluate call is element-scoped.
// Scoping needs both the description and the ref; anything less runs in
// whole-page scope.
func evaluateScopeRef(args map[string]any) (string, bool) {
	if strArg(args, "element") != "" && strArg(args, "ref") != "" {
		return strArg(args, "ref"), true
	}
	return "", false
}

// fillFieldLine renders one row of the fill_form report.
func fillFieldLine(name, fieldType, value string) string {
	switch fieldType {
	case "checkbox", "radio":
		if value == "true" {
			return name + ": checked"
		}
		return name + ": unchecked"
	case "combobox":
		return fmt.Sprintf("%s: selected %q", name, value)
	default:
		return fmt.Sprintf("%s: set to %q", name, value)
	}
}

func refProps(elementDesc string) map[string]schema.Property {
	return map[string]schema.Property{
		"element": {Type: "string", Description: elementDesc},
		"ref":     {Type: "string", Description: "Element reference from the latest page snapshot"},
	}
}

func registerNavigation(reg *Registry) {
	reg.Register(Tool{
		Name:        "navigate",
		Description: "Navigate to a URL. With an empty url, report the current page instead.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"url": {Type: "string", Description: "Destination URL; empty reports the current page"},
			},
			Required: []string{"url"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			url := strArg(args, "url")
			page, err := sess.EnsurePage()
			if err != nil {
				return nil, err
			}
			if url == "" {
				current, title, err := page.Info()
				if err != nil {
					return nil, err
				}
				return TextResult("Current page: %s\nTitle: %s", current, title), nil
			}
			if err := page.Navigate(url); err != nil {
				return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
			}
			final, title, err := page.Info()
			if err != nil {
				return nil, err
			}
			return TextResult("Navigated to %s\nTitle: %s", final, title), nil
		},
	})

	reg.Register(Tool{
		Name:        "navigate_back",
		Description: "Go back one entry in the page's history.",
		InputSchema: schema.Schema{},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			if err := page.NavigateBack(); err != nil {
				return nil, err
			}
			url, title, err := page.Info()
			if err != nil {
				return nil, err
			}
			return TextResult("Navigated back to %s\nTitle: %s", url, title), nil
		},
	})

	reg.Register(Tool{
		Name:        "tabs",
		Description: "Manage browser tabs: list, new, close, select.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"action": {Type: "string", Enum: []string{"list", "new", "close", "select"}},
				"index":  {Type: "integer", Description: "Tab index for close/select"},
			},
			Required: []string{"action"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			switch strArg(args, "action") {
			case "list":
				tabs := sess.ListTabs()
				if len(tabs) == 0 {
					return TextResult("No open tabs."), nil
				}
				var b strings.Builder
				for _, tab := range tabs {
					marker := " "
					if tab.Active {
						marker = "*"
					}
					fmt.Fprintf(&b, "%s [%d] %s  %s\n", marker, tab.Index, tab.URL, tab.Title)
				}
				return TextResult("%s", strings.TrimRight(b.String(), "\n")), nil
			case "new":
				if _, err := sess.NewTab(); err != nil {
					return nil, err
				}
				return TextResult("Opened a new tab (%d open).", len(sess.ListTabs())), nil
			case "close":
				index := -1
				if n, ok := numArg(args, "index"); ok {
					index = int(n)
				}
				if err := sess.CloseTab(index); err != nil {
					return nil, err
				}
				return TextResult("Closed tab."), nil
			case "select":
				n, ok := numArg(args, "index")
				if !ok {
					return nil, fmt.Errorf("tabs select requires an index")
				}
				if err := sess.SelectTab(int(n)); err != nil {
					return nil, err
				}
				return TextResult("Selected tab %d.", int(n)), nil
			default:
				return nil, fmt.Errorf("unsupported tabs action")
			}
		},
	})
}

func registerInteraction(reg *Registry) {
	clickProps := refProps("Human-readable element description")
	clickProps["button"] = schema.Property{Type: "string", Enum: []string{"left", "right", "middle"}}
	clickProps["doubleClick"] = schema.Property{Type: "boolean"}
	reg.Register(Tool{
		Name:        "click",
		Description: "Click an element identified by its snapshot reference.",
		InputSchema: schema.Schema{Properties: clickProps, Required: []string{"element", "ref"}},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			sel, err := sess.Resolve(strArg(args, "ref"))
			if err != nil {
				return nil, err
			}
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			button := strArg(args, "button")
			if button == "" {
				button = "left"
			}
			if err := page.Click(sel, button, boolArg(args, "doubleClick")); err != nil {
				return nil, err
			}
			return TextResult("Clicked %s", strArg(args, "element")), nil
		},
	})

	typeProps := refProps("Human-readable element description")
	typeProps["text"] = schema.Property{Type: "string", Description: "Text to enter"}
	typeProps["slowly"] = schema.Property{Type: "boolean", Description: "Type one character at a time"}
	typeProps["submit"] = schema.Property{Type: "boolean", Description: "Press Enter afterwards"}
	reg.Register(Tool{
		Name:        "type",
		Description: "Type text into an editable element.",
		InputSchema: schema.Schema{Properties: typeProps, Required: []string{"element", "ref", "text"}},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			sel, err := sess.Resolve(strArg(args, "ref"))
			if err != nil {
				return nil, err
			}
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			text := strArg(args, "text")
			if err := page.Type(sel, text, boolArg(args, "slowly"), boolArg(args, "submit")); err != nil {
				return nil, err
			}
			return TextResult("Typed %q into %s", text, strArg(args, "element")), nil
		},
	})

	reg.Register(Tool{
		Name:        "press_key",
		Description: "Press a key or key combination on the focused element.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"key": {Type: "string", Description: "Key name, e.g. Enter, Tab, ArrowDown, or a character"},
			},
			Required: []string{"key"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			key := strArg(args, "key")
			if err := page.PressKey(key); err != nil {
				return nil, err
			}
			return TextResult("Pressed key %s", key), nil
		},
	})

	reg.Register(Tool{
		Name:        "fill_form",
		Description: "Fill multiple form fields in one call.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"fields": {
					Type: "array",
					Items: &schema.Property{
						Type: "object",
						Properties: map[string]schema.Property{
							"name":  {Type: "string", Description: "Field label"},
							"type":  {Type: "string", Enum: []string{"textbox", "checkbox", "radio", "combobox", "slider"}},
							"ref":   {Type: "string"},
							"value": {Type: "string"},
						},
						Required: []string{"name", "type", "ref", "value"},
					},
				},
			},
			Required: []string{"fields"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			var lines []string
			for _, field := range objSliceArg(args, "fields") {
				name := strArg(field, "name")
				sel, err := sess.Resolve(strArg(field, "ref"))
				if err != nil {
					return nil, err
				}
				value := strArg(field, "value")
				fieldType := strArg(field, "type")
				switch fieldType {
				case "checkbox", "radio":
					if err := page.SetChecked(sel, value == "true"); err != nil {
						return nil, fmt.Errorf("failed to fill %q: %w", name, err)
					}
				case "combobox":
					if err := page.SelectOptions(sel, []string{value}); err != nil {
						return nil, fmt.Errorf("failed to fill %q: %w", name, err)
					}
				default:
					if err := page.Type(sel, value, false, false); err != nil {
						return nil, fmt.Errorf("failed to fill %q: %w", name, err)
					}
				}
				lines = append(lines, fillFieldLine(name, fieldType, value))
			}
			return TextResult("Filled %d field(s)\n%s", len(lines), strings.Join(lines, "\n")), nil
		},
	})

	selectProps := refProps("Human-readable element description")
	selectProps["values"] = schema.Property{
		Type:  "array",
		Items: &schema.Property{Type: "string"},
	}
	reg.Register(Tool{
		Name:        "select_option",
		Description: "Select one or more options in a dropdown.",
		InputSchema: schema.Schema{Properties: selectProps, Required: []string{"element", "ref", "values"}},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			sel, err := sess.Resolve(strArg(args, "ref"))
			if err != nil {
				return nil, err
			}
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			values := strSliceArg(args, "values")
			if err := page.SelectOptions(sel, values); err != nil {
				return nil, err
			}
			return TextResult("Selected %v in %s", values, strArg(args, "element")), nil
		},
	})

	reg.Register(Tool{
		Name:        "hover",
		Description: "Hover the pointer over an element.",
		InputSchema: schema.Schema{Properties: refProps("Human-readable element description"), Required: []string{"element", "ref"}},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			sel, err := sess.Resolve(strArg(args, "ref"))
			if err != nil {
				return nil, err
			}
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			if err := page.Hover(sel); err != nil {
				return nil, err
			}
			return TextResult("Hovered over %s", strArg(args, "element")), nil
		},
	})

	reg.Register(Tool{
		Name:        "drag",
		Description: "Drag one element onto another.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"startElement": {Type: "string"},
				"startRef":     {Type: "string"},
				"endElement":   {Type: "string"},
				"endRef":       {Type: "string"},
			},
			Required: []string{"startElement", "startRef", "endElement", "endRef"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			startSel, err := sess.Resolve(strArg(args, "startRef"))
			if err != nil {
				return nil, err
			}
			endSel, err := sess.Resolve(strArg(args, "endRef"))
			if err != nil {
				return nil, err
			}
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			if err := page.Drag(startSel, endSel); err != nil {
				return nil, err
			}
			return TextResult("Dragged %s to %s", strArg(args, "startElement"), strArg(args, "endElement")), nil
		},
	})

	reg.Register(Tool{
		Name:        "file_upload",
		Description: "Attach local files to the first file input on the page.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"paths": {Type: "array", Items: &schema.Property{Type: "string"}},
			},
			Required: []string{"paths"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			paths := strSliceArg(args, "paths")
			if len(paths) == 0 {
				return nil, fmt.Errorf("file_upload requires at least one path")
			}
			if err := page.SetUploadFiles(paths); err != nil {
				return nil, err
			}
			return TextResult("Uploaded %d file(s)", len(paths)), nil
		},
	})

	reg.Register(Tool{
		Name:        "handle_dialog",
		Description: "Arm a one-shot responder for the next JavaScript dialog.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"accept":     {Type: "boolean"},
				"promptText": {Type: "string", Description: "Text entered when accepting a prompt"},
			},
			Required: []string{"accept"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			accept := boolArg(args, "accept")
			sess.ArmDialog(browser.DialogResponse{Accept: accept, PromptText: strArg(args, "promptText")})
			verb := "dismiss"
			if accept {
				verb = "accept"
			}
			return TextResult("Armed to %s the next dialog.", verb), nil
		},
	})
}

func registerSnapshot(reg *Registry, cfg *config.Config) {
	reg.Register(Tool{
		Name:        "snapshot",
		Description: "Capture a structural snapshot of the page and mint fresh element references.",
		InputSchema: schema.Schema{},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			snap, err := sess.TakeSnapshot()
			if err != nil {
				return nil, err
			}
			return TextResult("%s", snap.Render()), nil
		},
	})

	screenshotProps := map[string]schema.Property{
		"filename": {Type: "string", Description: "Target file name; defaults to a timestamped name"},
		"element":  {Type: "string"},
		"ref":      {Type: "string", Description: "Capture only this element"},
		"fullPage": {Type: "boolean"},
		"type":     {Type: "string", Enum: []string{"png", "jpeg"}},
	}
	reg.Register(Tool{
		Name:        "take_screenshot",
		Description: "Capture the page or a single element to an image file.",
		InputSchema: schema.Schema{Properties: screenshotProps},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.EnsurePage()
			if err != nil {
				return nil, err
			}
			format := strArg(args, "type")
			if format == "" {
				format = "png"
			}
			var sel string
			if ref := strArg(args, "ref"); ref != "" {
				if sel, err = sess.Resolve(ref); err != nil {
					return nil, err
				}
			}
			data, err := page.Screenshot(sel, boolArg(args, "fullPage"), format)
			if err != nil {
				return nil, err
			}
			path, err := browser.WriteScreenshot(cfg.Screenshot.Dir, strArg(args, "filename"), format, data)
			if err != nil {
				return nil, err
			}
			return TextResult("Screenshot saved to %s", path), nil
		},
	})

	evalProps := map[string]schema.Property{
		"function": {Type: "string", Description: "A JavaScript function expression, e.g. () => document.title"},
		"element":  {Type: "string"},
		"ref":      {Type: "string", Description: "Run scoped to this element"},
	}
	reg.Register(Tool{
		Name:        "evaluate",
		Description: "Evaluate a JavaScript function in page scope, or scoped to one element.",
		InputSchema: schema.Schema{Properties: evalProps, Required: []string{"function"}},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			var sel string
			if ref, scoped := evaluateScopeRef(args); scoped {
				if sel, err = sess.Resolve(ref); err != nil {
					return nil, err
				}
			}
			result, err := page.Evaluate(strArg(args, "function"), sel)
			if err != nil {
				return nil, err
			}
			if result == "" {
				result = "undefined"
			}
			return TextResult("Result: %s", result), nil
		},
	})
}

func registerUtility(reg *Registry, cfg *config.Config) {
	reg.Register(Tool{
		Name:        "wait_for",
		Description: "Wait for text to appear or disappear, or for a fixed time.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"text":     {Type: "string", Description: "Wait until this text is visible"},
				"textGone": {Type: "string", Description: "Wait until this text is gone"},
				"time":     {Type: "number", Description: "Seconds to sleep"},
			},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			text := strArg(args, "text")
			textGone := strArg(args, "textGone")
			seconds, hasTime := numArg(args, "time")
			if text == "" && textGone == "" && !hasTime {
				return nil, fmt.Errorf("wait_for requires text, textGone or time")
			}

			var waited []string
			if hasTime {
				if err := page.Sleep(time.Duration(seconds * float64(time.Second))); err != nil {
					return nil, err
				}
				waited = append(waited, fmt.Sprintf("slept %.1fs", seconds))
			}
			if text != "" {
				if err := page.WaitForText(text, false, cfg.Network.WaitTimeout); err != nil {
					return nil, err
				}
				waited = append(waited, fmt.Sprintf("text %q appeared", text))
			}
			if textGone != "" {
				if err := page.WaitForText(textGone, true, cfg.Network.WaitTimeout); err != nil {
					return nil, err
				}
				waited = append(waited, fmt.Sprintf("text %q gone", textGone))
			}
			return TextResult("Wait complete: %s", strings.Join(waited, ", ")), nil
		},
	})

	reg.Register(Tool{
		Name:        "resize",
		Description: "Resize the page viewport.",
		InputSchema: schema.Schema{
			Properties: map[string]schema.Property{
				"width":  {Type: "integer"},
				"height": {Type: "integer"},
			},
			Required: []string{"width", "height"},
		},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			w, _ := numArg(args, "width")
			h, _ := numArg(args, "height")
			if w <= 0 || h <= 0 {
				return nil, fmt.Errorf("viewport dimensions must be positive")
			}
			if err := page.Resize(int64(w), int64(h)); err != nil {
				return nil, err
			}
			return TextResult("Viewport resized to %dx%d", int(w), int(h)), nil
		},
	})

	reg.Register(Tool{
		Name:        "close",
		Description: "Close every page and release session resources.",
		InputSchema: schema.Schema{},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			if err := sess.Close(ctx); err != nil {
				return nil, err
			}
			return TextResult("Session closed."), nil
		},
	})

	reg.Register(Tool{
		Name:        "network_requests",
		Description: "List the network requests captured since the page opened.",
		InputSchema: schema.Schema{},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			reqs := page.NetworkRequests()
			if len(reqs) == 0 {
				return TextResult("No network requests recorded."), nil
			}
			var b strings.Builder
			for _, req := range reqs {
				fmt.Fprintf(&b, "%s %s", req.Method, req.URL)
				if req.Status != 0 {
					fmt.Fprintf(&b, " => %d", req.Status)
				}
				if req.MimeType != "" {
					fmt.Fprintf(&b, " (%s)", req.MimeType)
				}
				b.WriteByte('\n')
			}
			return TextResult("%d request(s)\n%s", len(reqs), strings.TrimRight(b.String(), "\n")), nil
		},
	})

	reg.Register(Tool{
		Name:        "console_messages",
		Description: "List the console messages captured since the page opened.",
		InputSchema: schema.Schema{},
		Handler: func(ctx context.Context, sess *browser.Session, args map[string]any) (*Result, error) {
			page, err := sess.ActivePage()
			if err != nil {
				return nil, err
			}
			msgs := page.ConsoleMessages()
			if len(msgs) == 0 {
				return TextResult("No console messages recorded."), nil
			}
			var b strings.Builder
			for _, msg := range msgs {
				fmt.Fprintf(&b, "[%s] %s\n", msg.Level, msg.Text)
			}
			return TextResult("%d message(s)\n%s", len(msgs), strings.TrimRight(b.String(), "\n")), nil
		},
	})
}
