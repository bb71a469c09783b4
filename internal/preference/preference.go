// Package preference tracks the languages the user wants replies in.
package preference

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ashureev/wazobia-session/internal/domain"
)

// ErrUnsupportedLanguage is returned when toggling a code the service does not support.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Mode is the cardinality of the language selection.
type Mode int

const (
	// ModeAuto lets the service pick the reply language.
	ModeAuto Mode = iota
	// ModeSingle pins replies to one language.
	ModeSingle
	// ModeMixed allows replies mixing two or more languages.
	ModeMixed
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModeSingle:
		return "single"
	case ModeMixed:
		return "mixed"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Preference is a snapshot of the selection. Selected is empty iff Mode is ModeAuto.
type Preference struct {
	Mode     Mode
	Selected []domain.LanguageCode
}

// Contains reports whether code is selected.
func (p Preference) Contains(code domain.LanguageCode) bool {
	return slices.Contains(p.Selected, code)
}

// PreferredLanguages returns the preferred_languages payload, nil in auto mode.
func (p Preference) PreferredLanguages() []domain.LanguageCode {
	if p.Mode == ModeAuto {
		return nil
	}
	return slices.Clone(p.Selected)
}

// Listener is notified after every successful toggle.
type Listener func(Preference)

// Manager owns the language selection for the lifetime of the process.
type Manager struct {
	mu        sync.Mutex
	selected  []domain.LanguageCode
	listeners []Listener
}

// NewManager returns a manager in auto mode.
func NewManager() *Manager {
	return &Manager{}
}

// Current returns the current selection.
func (m *Manager) Current() Preference {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

// OnChange registers fn to receive every new preference.
func (m *Manager) OnChange(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Toggle flips code in or out of the selection.
//
// Auto becomes Single{code}. Toggling the lone Single language returns to
// Auto. Removing from Mixed never skips to Auto: the last remaining member
// becomes Single.
func (m *Manager) Toggle(code domain.LanguageCode) (Preference, error) {
	if !domain.IsSupported(code) {
		return m.Current(), fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}

	m.mu.Lock()
	idx := slices.Index(m.selected, code)
	switch {
	case idx < 0:
		m.selected = append(m.selected, code)
	case len(m.selected) == 1:
		m.selected = nil
	default:
		m.selected = slices.Delete(m.selected, idx, idx+1)
	}
	p := m.snapshot()
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
	return p, nil
}

func (m *Manager) snapshot() Preference {
	p := Preference{Selected: slices.Clone(m.selected)}
	switch len(m.selected) {
	case 0:
		p.Mode = ModeAuto
		p.Selected = nil
	case 1:
		p.Mode = ModeSingle
	default:
		p.Mode = ModeMixed
	}
	return p
}
