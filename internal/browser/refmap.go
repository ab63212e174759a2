// File: internal/browser/refmap.go
package browser

import "sync"

// RefMap owns the mapping from minted element references to resolvable
// selectors. It is rebuilt wholesale by each snapshot; interaction
// handlers only ever read it.
type RefMap struct {
	mu   sync.RWMutex
	refs map[string]string
}

// NewRefMap returns an empty map. Resolving against it reports absent
// until the first snapshot populates it.
func NewRefMap() *RefMap {
	return &RefMap{refs: make(map[string]string)}
}

// Replace swaps the entire mapping. Previous references become invalid
// in one step; there is no partial update path.
func (m *RefMap) Replace(refs map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if refs == nil {
		refs = make(map[string]string)
	}
	m.refs = refs
}

// Resolve translates a reference into its selector. The second return
// reports whether the reference exists in the current generation.
func (m *RefMap) Resolve(ref string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sel, ok := m.refs[ref]
	return sel, ok
}

// Len reports how many references the current generation holds.
func (m *RefMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.refs)
}
