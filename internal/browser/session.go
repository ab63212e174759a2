// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fracalo/electron-playwright-mcp/internal/config"
)

// ErrNoActivePage signals that an operation needs a page before the
// first navigation opened one.
var ErrNoActivePage = fmt.Errorf("browser not initialized: no active page, navigate to a URL first")

// DialogResponse is the armed reply for the next JavaScript dialog.
type DialogResponse struct {
	Accept     bool
	PromptText string
}

// dialogSlot is a single-slot one-shot responder. Arming twice before a
// dialog fires overwrites the previous response; consumption clears it.
type dialogSlot struct {
	mu   sync.Mutex
	resp *DialogResponse
}

func (s *dialogSlot) arm(resp DialogResponse) {
	s.mu.Lock()
	s.resp = &resp
	s.mu.Unlock()
}

func (s *dialogSlot) consume() (DialogResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resp == nil {
		return DialogResponse{}, false
	}
	resp := *s.resp
	s.resp = nil
	return resp, true
}

// TabInfo is one row of the tabs listing.
type TabInfo struct {
	Index  int
	URL    string
	Title  string
	Active bool
}

// Session is the one automation target the dispatcher hands to every
// handler. It tracks the open pages, the active page, the element
// reference map and the armed dialog responder.
type Session struct {
	id      string
	logger  *zap.Logger
	cfg     *config.Config
	manager *Manager

	mu     sync.Mutex
	pages  []*Page
	active int
	closed bool

	refs    *RefMap
	dialogs *dialogSlot
}

// NewSession wires a session against an already connected manager. No
// page is opened until the first operation needs one.
func NewSession(manager *Manager, logger *zap.Logger, cfg *config.Config) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		logger:  logger.Named("session").With(zap.String("session_id", id[:8])),
		cfg:     cfg,
		manager: manager,
		active:  -1,
		refs:    NewRefMap(),
		dialogs: &dialogSlot{},
	}
}

// Refs exposes the session's element reference map.
func (s *Session) Refs() *RefMap { return s.refs }

// Resolve translates a snapshot reference into a selector. Absence is a
// recoverable caller error, phrased so the remedy is obvious.
func (s *Session) Resolve(ref string) (string, error) {
	sel, ok := s.refs.Resolve(ref)
	if !ok {
		return "", fmt.Errorf("reference %q not found, take a new snapshot", ref)
	}
	return sel, nil
}

// ArmDialog installs the one-shot responder for the next dialog.
// Last writer wins until a dialog consumes the slot.
func (s *Session) ArmDialog(resp DialogResponse) {
	s.dialogs.arm(resp)
	s.logger.Debug("Dialog responder armed.", zap.Bool("accept", resp.Accept))
}

// ActivePage returns the current page or ErrNoActivePage.
func (s *Session) ActivePage() (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}
	if s.active < 0 || s.active >= len(s.pages) {
		return nil, ErrNoActivePage
	}
	return s.pages[s.active], nil
}

// EnsurePage returns the active page, opening the first one on demand.
func (s *Session) EnsurePage() (*Page, error) {
	if page, err := s.ActivePage(); err == nil {
		return page, nil
	} else if err != ErrNoActivePage {
		return nil, err
	}
	return s.NewTab()
}

// NewTab opens a page, appends it to the tab order and makes it active.
func (s *Session) NewTab() (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("session is closed")
	}

	s.manager.wg.Add(1)
	page, err := newPage(s.manager.allocatorCtx, s.cfg, s.logger, s.dialogs, s.manager.wg.Done)
	if err != nil {
		s.manager.wg.Done()
		return nil, err
	}

	s.pages = append(s.pages, page)
	s.active = len(s.pages) - 1
	s.logger.Info("Opened new tab.", zap.Int("index", s.active))
	return page, nil
}

// ListTabs reports every open tab in creation order.
func (s *Session) ListTabs() []TabInfo {
	s.mu.Lock()
	pages := make([]*Page, len(s.pages))
	copy(pages, s.pages)
	active := s.active
	s.mu.Unlock()

	tabs := make([]TabInfo, len(pages))
	for i, page := range pages {
		url, title, err := page.Info()
		if err != nil {
			url, title = "<unavailable>", ""
		}
		tabs[i] = TabInfo{Index: i, URL: url, Title: title, Active: i == active}
	}
	return tabs
}

// SelectTab makes the tab at index active. Stale refs from the previous
// tab's snapshot are cleared rather than left dangling against the
// wrong document.
func (s *Session) SelectTab(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.pages) {
		return fmt.Errorf("no tab at index %d (have %d)", index, len(s.pages))
	}
	if index != s.active {
		s.refs.Replace(nil)
	}
	s.active = index
	return nil
}

// CloseTab closes the tab at index, or the active one with a negative
// index. The active slot moves to the last remaining tab.
func (s *Session) CloseTab(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 {
		index = s.active
	}
	if index < 0 || index >= len(s.pages) {
		return fmt.Errorf("no tab at index %d (have %d)", index, len(s.pages))
	}

	closingActive := index == s.active
	s.pages[index].Close()
	s.pages = append(s.pages[:index], s.pages[index+1:]...)

	// Refs belong to the active page's latest snapshot; closing a
	// background tab leaves them valid.
	switch {
	case len(s.pages) == 0:
		s.active = -1
		s.refs.Replace(nil)
	case closingActive:
		if s.active >= len(s.pages) {
			s.active = len(s.pages) - 1
		}
		s.refs.Replace(nil)
	case index < s.active:
		s.active--
	}
	return nil
}

// Close releases every page and marks the session unusable.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pages := s.pages
	s.pages = nil
	s.active = -1
	s.mu.Unlock()

	s.logger.Info("Closing session.", zap.Int("open_pages", len(pages)))
	for _, page := range pages {
		page.Close()
	}
	s.refs.Replace(nil)
	return nil
}

// TakeSnapshot re-scans the active page and replaces the ref map with
// the fresh generation.
func (s *Session) TakeSnapshot() (*Snapshot, error) {
	page, err := s.ActivePage()
	if err != nil {
		return nil, err
	}

	url, title, err := page.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to read page state: %w", err)
	}
	body, err := page.DocumentTree()
	if err != nil {
		return nil, err
	}

	snap := BuildSnapshot(body, url, title)
	s.refs.Replace(snap.Refs())
	s.logger.Debug("Snapshot taken.", zap.Int("elements", len(snap.Elements)))
	return snap, nil
}
