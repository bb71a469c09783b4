// Package translation holds on-demand translations shown over chat messages.
package translation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/remote"
)

// FailureText replaces the translation when the request fails.
const FailureText = "Translation failed. Please try again."

var (
	// ErrSameLanguage is returned when the target equals the source language.
	ErrSameLanguage = errors.New("target language equals source language")
	// ErrUnsupportedTarget is returned for targets outside the supported table.
	ErrUnsupportedTarget = errors.New("unsupported target language")
)

// Status is the lifecycle of an overlay.
type Status int

const (
	Idle Status = iota
	Pending
	Done
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Overlay is the translation state for one message.
type Overlay struct {
	MessageID      string
	Status         Status
	TargetLanguage domain.LanguageCode
	Text           string
}

// Translator performs the remote translation call.
type Translator interface {
	Translate(ctx context.Context, req remote.TranslateRequest) (*remote.TranslateResponse, error)
}

type entry struct {
	overlay Overlay
	gen     uint64
}

// Manager keeps at most one overlay per message.
type Manager struct {
	translator Translator
	logger     *slog.Logger

	mu       sync.Mutex
	overlays map[string]*entry
	nextGen  uint64
}

// NewManager creates an empty overlay manager.
func NewManager(translator Translator, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		translator: translator,
		logger:     logger,
		overlays:   make(map[string]*entry),
	}
}

// Candidates lists the languages a message written in source can be
// translated into.
func Candidates(source domain.LanguageCode) []domain.LanguageInfo {
	if source == "" {
		source = domain.LanguageEnglish
	}
	var out []domain.LanguageInfo
	for _, l := range domain.SupportedLanguages() {
		if l.Code != source {
			out = append(out, l)
		}
	}
	return out
}

// Get returns the overlay for messageID, Idle if none exists.
func (m *Manager) Get(messageID string) Overlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.overlays[messageID]; ok {
		return e.overlay
	}
	return Overlay{MessageID: messageID}
}

// Clear drops any translation for messageID. An in-flight request for it
// will not write its result.
func (m *Manager) Clear(messageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overlays, messageID)
}

// Translate replaces the overlay for messageID with a pending request for
// target and blocks until it resolves. Only the most recently issued request
// for a message may write its result; superseded or cleared requests are
// discarded and the current overlay is returned instead.
func (m *Manager) Translate(ctx context.Context, messageID, text string, source, target domain.LanguageCode) (Overlay, error) {
	if source == "" {
		source = domain.LanguageEnglish
	}
	if target == source {
		return m.Get(messageID), ErrSameLanguage
	}
	if !domain.IsSupported(target) {
		return m.Get(messageID), fmt.Errorf("%w: %q", ErrUnsupportedTarget, target)
	}

	m.mu.Lock()
	m.nextGen++
	gen := m.nextGen
	m.overlays[messageID] = &entry{
		overlay: Overlay{MessageID: messageID, Status: Pending, TargetLanguage: target},
		gen:     gen,
	}
	m.mu.Unlock()

	resp, err := m.translator.Translate(ctx, remote.TranslateRequest{
		Text:           text,
		SourceLanguage: source,
		TargetLanguage: target,
	})

	result := Overlay{MessageID: messageID, TargetLanguage: target}
	if err != nil {
		m.logger.Warn("Translation failed", "message_id", messageID, "target", target, "error", err)
		result.Status = Failed
		result.Text = FailureText
	} else {
		result.Status = Done
		result.Text = resp.TranslatedText
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.overlays[messageID]
	if !ok || e.gen != gen {
		m.logger.Debug("Discarding superseded translation", "message_id", messageID, "target", target)
		if ok {
			return e.overlay, nil
		}
		return Overlay{MessageID: messageID}, nil
	}
	e.overlay = result
	return result, nil
}
