// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/config"
)

// ConsoleMessage is one captured console entry.
type ConsoleMessage struct {
	Level string
	Text  string
	URL   string
	Time  time.Time
}

// NetworkRequest is one captured request/response pair. Status stays
// zero until the response arrives.
type NetworkRequest struct {
	Method   string
	URL      string
	Status   int64
	MimeType string
	Time     time.Time
}

// Page wraps one browser tab. Console and network events are recorded
// from the moment the tab opens.
type Page struct {
	id     string
	logger *zap.Logger
	cfg    *config.Config

	pageCtx    context.Context
	pageCancel context.CancelFunc

	mu       sync.Mutex
	console  []ConsoleMessage
	requests []*NetworkRequest
	inflight map[network.RequestID]*NetworkRequest

	dialogs *dialogSlot

	closeOnce sync.Once
	onClose   func()
}

// newPage opens a fresh tab derived from the allocator context and wires
// the event listeners before any navigation happens.
func newPage(allocatorCtx context.Context, cfg *config.Config, logger *zap.Logger, dialogs *dialogSlot, onClose func()) (*Page, error) {
	pageCtx, cancel := chromedp.NewContext(allocatorCtx)

	id := uuid.New().String()
	p := &Page{
		id:         id,
		logger:     logger.Named("page").With(zap.String("page_id", id[:8])),
		cfg:        cfg,
		pageCtx:    pageCtx,
		pageCancel: cancel,
		inflight:   make(map[network.RequestID]*NetworkRequest),
		dialogs:    dialogs,
		onClose:    onClose,
	}
	p.listen()

	// Materialize the target, enable the event domains and apply the
	// configured viewport.
	initCtx, cancelInit := context.WithTimeout(pageCtx, cfg.Network.Timeout)
	defer cancelInit()
	err := chromedp.Run(initCtx,
		chromedp.Navigate("about:blank"),
		cdplog.Enable(),
		network.Enable(),
		chromedp.EmulateViewport(int64(cfg.Browser.ViewportWidth), int64(cfg.Browser.ViewportHeight)),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	p.logger.Debug("Page opened.")
	return p, nil
}

// listen registers the CDP event handlers for console output, network
// traffic and JavaScript dialogs.
func (p *Page) listen() {
	chromedp.ListenTarget(p.pageCtx, func(ev interface{}) {
		switch ev := ev.(type) {
		case *cdpruntime.EventConsoleAPICalled:
			p.appendConsole(ConsoleMessage{
				Level: string(ev.Type),
				Text:  formatConsoleArgs(ev.Args),
				Time:  time.Now(),
			})
		case *cdplog.EventEntryAdded:
			p.appendConsole(ConsoleMessage{
				Level: string(ev.Entry.Level),
				Text:  ev.Entry.Text,
				URL:   ev.Entry.URL,
				Time:  time.Now(),
			})
		case *network.EventRequestWillBeSent:
			p.mu.Lock()
			req := &NetworkRequest{
				Method: ev.Request.Method,
				URL:    ev.Request.URL,
				Time:   time.Now(),
			}
			p.requests = append(p.requests, req)
			p.inflight[ev.RequestID] = req
			p.mu.Unlock()
		case *network.EventResponseReceived:
			p.mu.Lock()
			if req, ok := p.inflight[ev.RequestID]; ok {
				req.Status = ev.Response.Status
				req.MimeType = ev.Response.MimeType
				delete(p.inflight, ev.RequestID)
			}
			p.mu.Unlock()
		case *page.EventJavascriptDialogOpening:
			p.respondToDialog(ev)
		}
	})
}

func (p *Page) appendConsole(msg ConsoleMessage) {
	p.mu.Lock()
	p.console = append(p.console, msg)
	p.mu.Unlock()
}

// respondToDialog consumes the session's one-shot responder, or
// dismisses the dialog when nothing is armed so the page never hangs.
func (p *Page) respondToDialog(ev *page.EventJavascriptDialogOpening) {
	resp, armed := p.dialogs.consume()
	p.logger.Info("JavaScript dialog opened.",
		zap.String("type", string(ev.Type)),
		zap.String("message", ev.Message),
		zap.Bool("responder_armed", armed))

	action := page.HandleJavaScriptDialog(armed && resp.Accept)
	if armed && resp.PromptText != "" {
		action = action.WithPromptText(resp.PromptText)
	}
	go func() {
		if err := chromedp.Run(p.pageCtx, action); err != nil {
			p.logger.Warn("Failed to respond to dialog.", zap.Error(err))
		}
	}()
}

func formatConsoleArgs(args []*cdpruntime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == nil:
			continue
		case arg.Value != nil:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

// run executes chromedp actions against this tab under the given timeout.
func (p *Page) run(timeout time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.pageCtx, timeout)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}

// Navigate loads the URL and waits for the document to become ready.
func (p *Page) Navigate(url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	return p.run(p.cfg.Network.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(p.cfg.Network.PostLoadWait),
	)
}

// NavigateBack walks one entry back in the tab's history.
func (p *Page) NavigateBack() error {
	return p.run(p.cfg.Network.NavigationTimeout,
		chromedp.NavigateBack(),
		chromedp.Sleep(p.cfg.Network.PostLoadWait),
	)
}

// Info reports the tab's current URL and title.
func (p *Page) Info() (url, title string, err error) {
	err = p.run(p.cfg.Network.Timeout,
		chromedp.Location(&url),
		chromedp.Title(&title),
	)
	return url, title, err
}

// DocumentTree fetches the full flattened DOM of the tab and returns the
// body element, ready for snapshot traversal.
func (p *Page) DocumentTree() (*cdp.Node, error) {
	var root *cdp.Node
	err := p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		root, err = dom.GetDocument().WithDepth(-1).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document tree: %w", err)
	}
	return findBody(root), nil
}

func findBody(node *cdp.Node) *cdp.Node {
	if node == nil {
		return nil
	}
	if strings.EqualFold(node.NodeName, "body") {
		return node
	}
	for _, child := range node.Children {
		if body := findBody(child); body != nil {
			return body
		}
	}
	return nil
}

// Click dispatches a click on the first element matching the selector.
func (p *Page) Click(selector, button string, double bool) error {
	switch {
	case button == "right" || button == "middle":
		return p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
			x, y, err := centerOf(ctx, selector)
			if err != nil {
				return err
			}
			return chromedp.MouseClickXY(x, y, chromedp.Button(button)).Do(ctx)
		}))
	case double:
		return p.run(p.cfg.Network.Timeout, chromedp.DoubleClick(selector, chromedp.ByQuery))
	default:
		return p.run(p.cfg.Network.Timeout, chromedp.Click(selector, chromedp.ByQuery))
	}
}

// Type writes text into the element. The fast path sets the value
// outright; slowly dispatches real key events one character at a time.
func (p *Page) Type(selector, text string, slowly, submit bool) error {
	actions := chromedp.Tasks{}
	if slowly {
		actions = append(actions,
			chromedp.Click(selector, chromedp.ByQuery),
			chromedp.SendKeys(selector, text, chromedp.ByQuery),
		)
	} else {
		actions = append(actions, chromedp.SetValue(selector, text, chromedp.ByQuery))
	}
	if submit {
		actions = append(actions, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
	}
	return p.run(p.cfg.Network.Timeout, actions)
}

// namedKeys translates human key names into their DOM key runes.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"Escape":     kb.Escape,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Home":       kb.Home,
	"End":        kb.End,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
}

// PressKey dispatches a key press to whatever currently holds focus.
func (p *Page) PressKey(key string) error {
	if mapped, ok := namedKeys[key]; ok {
		key = mapped
	}
	return p.run(p.cfg.Network.Timeout, chromedp.KeyEvent(key))
}

// SetChecked drives a checkbox or radio control into the wanted state
// and fires the change event the page's scripts listen for.
func (p *Page) SetChecked(selector string, checked bool) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) throw new Error("no element matches " + %q);
		el.checked = %t;
		el.dispatchEvent(new Event("change", { bubbles: true }));
		return el.checked;
	})()`, selector, selector, checked)
	var result bool
	return p.run(p.cfg.Network.Timeout, chromedp.Evaluate(script, &result))
}

// SelectOptions marks the options with the given values as selected and
// fires the change event.
func (p *Page) SelectOptions(selector string, values []string) error {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) throw new Error("no element matches " + %q);
		const wanted = new Set([%s]);
		for (const opt of el.options) {
			opt.selected = wanted.has(opt.value) || wanted.has(opt.textContent.trim());
		}
		el.dispatchEvent(new Event("change", { bubbles: true }));
		return Array.from(el.selectedOptions).map(o => o.value);
	})()`, selector, selector, strings.Join(quoted, ", "))
	var selected []string
	return p.run(p.cfg.Network.Timeout, chromedp.Evaluate(script, &selected))
}

// centerOf resolves the selector to its first node and computes the
// geometric center of the node's content box.
func centerOf(ctx context.Context, selector string) (x, y float64, err error) {
	var nodes []*cdp.Node
	tasks := chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Nodes(selector, &nodes, chromedp.ByQuery),
	}
	if err := tasks.Do(ctx); err != nil {
		return 0, 0, fmt.Errorf("failed to locate %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return 0, 0, fmt.Errorf("selector %q matched no nodes", selector)
	}

	box, err := dom.GetBoxModel().WithNodeID(nodes[0].NodeID).Do(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get element geometry for %q: %w", selector, err)
	}
	if box == nil || len(box.Content) < 8 {
		return 0, 0, fmt.Errorf("element %q has no geometric representation", selector)
	}
	// Content is [x0, y0, x1, y1, x2, y2, x3, y3].
	x = (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4
	y = (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4
	return x, y, nil
}

// Hover moves the pointer to the center of the element.
func (p *Page) Hover(selector string) error {
	return p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		x, y, err := centerOf(ctx, selector)
		if err != nil {
			return err
		}
		return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

// Drag presses at the source center, moves the pointer to the target
// center and releases.
func (p *Page) Drag(startSelector, endSelector string) error {
	return p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		startX, startY, err := centerOf(ctx, startSelector)
		if err != nil {
			return fmt.Errorf("could not get starting element position: %w", err)
		}
		endX, endY, err := centerOf(ctx, endSelector)
		if err != nil {
			return fmt.Errorf("could not get ending element position: %w", err)
		}

		steps := []chromedp.Action{
			chromedp.MouseEvent(input.MouseMoved, startX, startY),
			chromedp.MouseEvent(input.MousePressed, startX, startY, chromedp.Button("left"), chromedp.ClickCount(1)),
			chromedp.MouseEvent(input.MouseMoved, (startX+endX)/2, (startY+endY)/2),
			chromedp.MouseEvent(input.MouseMoved, endX, endY),
			chromedp.MouseEvent(input.MouseReleased, endX, endY, chromedp.Button("left"), chromedp.ClickCount(1)),
		}
		for _, step := range steps {
			if err := step.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Evaluate runs a caller-supplied function expression. With a selector
// the resolved element is passed as the function's sole argument,
// otherwise the function runs with no arguments in page scope. The
// JSON-serialized result is returned verbatim.
func (p *Page) Evaluate(fn, selector string) (string, error) {
	var expr string
	if selector != "" {
		expr = fmt.Sprintf(`(%s)(document.querySelector(%q))`, fn, selector)
	} else {
		expr = fmt.Sprintf(`(%s)()`, fn)
	}

	var raw []byte
	err := p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(expr, &raw,
			func(ep *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
				return ep.WithAwaitPromise(true).WithReturnByValue(true)
			}).Do(ctx)
	}))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetUploadFiles attaches local files to the first file input on the page.
func (p *Page) SetUploadFiles(paths []string) error {
	return p.run(p.cfg.Network.Timeout,
		chromedp.SetUploadFiles(`input[type="file"]`, paths, chromedp.ByQuery),
	)
}

// WaitForText blocks until the page's visible text contains (or no
// longer contains, with gone set) the given needle, polling at a short
// interval until the deadline.
func (p *Page) WaitForText(text string, gone bool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(p.pageCtx, timeout)
	defer cancel()

	check := fmt.Sprintf(`document.body.innerText.includes(%q)`, text)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		var present bool
		if err := chromedp.Run(ctx, chromedp.Evaluate(check, &present)); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("timed out waiting for text %q (gone=%t)", text, gone)
			}
			return err
		}
		if present != gone {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for text %q (gone=%t)", text, gone)
		case <-ticker.C:
		}
	}
}

// Sleep pauses for the given duration, honoring page shutdown.
func (p *Page) Sleep(d time.Duration) error {
	select {
	case <-p.pageCtx.Done():
		return p.pageCtx.Err()
	case <-time.After(d):
		return nil
	}
}

// Resize sets the emulated viewport dimensions.
func (p *Page) Resize(width, height int64) error {
	return p.run(p.cfg.Network.Timeout, chromedp.EmulateViewport(width, height))
}

// Screenshot captures the page or a single element into the buffer.
// Quality below 100 switches full-page captures to jpeg.
func (p *Page) Screenshot(selector string, fullPage bool, format string) ([]byte, error) {
	var buf []byte
	var err error
	switch {
	case selector != "":
		err = p.run(p.cfg.Network.Timeout, chromedp.Screenshot(selector, &buf, chromedp.ByQuery))
	case fullPage:
		quality := 100
		if format == "jpeg" {
			quality = 90
		}
		err = p.run(p.cfg.Network.Timeout, chromedp.FullScreenshot(&buf, quality))
	default:
		err = p.run(p.cfg.Network.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
			params := page.CaptureScreenshot()
			if format == "jpeg" {
				params = params.WithFormat(page.CaptureScreenshotFormatJpeg).WithQuality(90)
			} else {
				params = params.WithFormat(page.CaptureScreenshotFormatPng)
			}
			var err error
			buf, err = params.Do(ctx)
			return err
		}))
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

// ConsoleMessages returns a copy of the captured console log.
func (p *Page) ConsoleMessages() []ConsoleMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConsoleMessage, len(p.console))
	copy(out, p.console)
	return out
}

// NetworkRequests returns a copy of the captured request log.
func (p *Page) NetworkRequests() []NetworkRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]NetworkRequest, len(p.requests))
	for i, req := range p.requests {
		out[i] = *req
	}
	return out
}

// Close tears down the tab. Safe to call more than once.
func (p *Page) Close() {
	p.closeOnce.Do(func() {
		p.logger.Debug("Closing page.")
		p.pageCancel()
		if p.onClose != nil {
			p.onClose()
		}
	})
}
