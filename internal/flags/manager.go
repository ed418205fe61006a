package flags

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/citeguard/citeguard/internal/model"
)

// ErrUnknownCode indicates a flag code missing from the definition table:
// a programming or configuration defect, so it fails fast instead of
// silently no-opping.
type ErrUnknownCode struct {
	Code model.FlagCode
}

func (e *ErrUnknownCode) Error() string {
	return fmt.Sprintf("unknown flag code: %s", e.Code)
}

// managerNow is injectable for tests.
var managerNow = time.Now

// Manager is a deduplicating keyed store of flags. The key is
// (code, citation), so the same code against different citations coexists.
// Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	items map[string]*model.Flag
}

// NewManager creates an empty flag manager.
func NewManager() *Manager {
	return &Manager{items: make(map[string]*model.Flag)}
}

// Add raises a flag, looking up category, severity, and message from the
// static definition table. Re-adding an existing (code, citation) pair is
// a no-op that returns the existing flag. Unknown codes return
// *ErrUnknownCode.
func (m *Manager) Add(code model.FlagCode, citation, origin string) (*model.Flag, error) {
	category, severity, message, ok := Lookup(code)
	if !ok {
		return nil, &ErrUnknownCode{Code: code}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(code) + "|" + citation
	if existing, found := m.items[key]; found {
		return existing, nil
	}

	f := &model.Flag{
		Code:      code,
		Category:  category,
		Severity:  severity,
		Message:   message,
		Citation:  citation,
		Origin:    origin,
		CreatedAt: managerNow().UTC(),
	}
	m.items[key] = f
	return f, nil
}

// Remove deletes a flag entirely. Resolution does not remove flags; only
// this does.
func (m *Manager) Remove(code model.FlagCode, citation string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(code) + "|" + citation
	if _, found := m.items[key]; !found {
		return false
	}
	delete(m.items, key)
	return true
}

// Resolve marks a flag resolved in place, recording who and why. The flag
// remains in the store for the audit trail.
func (m *Manager) Resolve(code model.FlagCode, citation, resolvedBy, resolution string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(code) + "|" + citation
	f, found := m.items[key]
	if !found {
		return fmt.Errorf("flag not found: %s (citation %q)", code, citation)
	}

	now := managerNow().UTC()
	f.Resolved = true
	f.ResolvedBy = resolvedBy
	f.Resolution = resolution
	f.ResolvedAt = &now
	return nil
}

// Active returns all unresolved flags, ordered by code then citation.
func (m *Manager) Active() []*model.Flag {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Flag
	for _, f := range m.items {
		if !f.Resolved {
			out = append(out, f)
		}
	}
	sortFlags(out)
	return out
}

// ByCategory returns all flags in a category, resolved or not.
func (m *Manager) ByCategory(cat model.FlagCategory) []*model.Flag {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Flag
	for _, f := range m.items {
		if f.Category == cat {
			out = append(out, f)
		}
	}
	sortFlags(out)
	return out
}

// Blocking returns unresolved BLOCKING flags.
func (m *Manager) Blocking() []*model.Flag {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*model.Flag
	for _, f := range m.items {
		if f.Category == model.FlagBlocking && !f.Resolved {
			out = append(out, f)
		}
	}
	sortFlags(out)
	return out
}

// Summary counts flags per category and resolution state.
type Summary struct {
	Total      int `json:"total"`
	Unresolved int `json:"unresolved"`
	Blocking   int `json:"blocking"`
	Review     int `json:"review"`
	Info       int `json:"info"`
}

// Summarize returns aggregate counts.
func (m *Manager) Summarize() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	var s Summary
	for _, f := range m.items {
		s.Total++
		if !f.Resolved {
			s.Unresolved++
		}
		switch f.Category {
		case model.FlagBlocking:
			s.Blocking++
		case model.FlagAttorneyReview:
			s.Review++
		case model.FlagInfo:
			s.Info++
		}
	}
	return s
}

// CanProceed reports whether the order may move forward: false whenever
// any unresolved BLOCKING flag exists, with a reason listing the offending
// codes.
func (m *Manager) CanProceed() (bool, string) {
	blocking := m.Blocking()
	if len(blocking) == 0 {
		return true, ""
	}

	codes := make([]string, 0, len(blocking))
	seen := make(map[string]bool)
	for _, f := range blocking {
		c := string(f.Code)
		if !seen[c] {
			seen[c] = true
			codes = append(codes, c)
		}
	}
	return false, fmt.Sprintf("blocked by unresolved flags: %s", strings.Join(codes, ", "))
}

func sortFlags(fs []*model.Flag) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].Code != fs[j].Code {
			return fs[i].Code < fs[j].Code
		}
		return fs[i].Citation < fs[j].Citation
	})
}
