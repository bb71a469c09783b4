package preference

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/ashureev/wazobia-session/internal/domain"
)

func mustToggle(t *testing.T, m *Manager, code domain.LanguageCode) Preference {
	t.Helper()
	p, err := m.Toggle(code)
	if err != nil {
		t.Fatalf("Toggle(%q) failed: %v", code, err)
	}
	return p
}

func TestToggleRoundTripFromAuto(t *testing.T) {
	m := NewManager()

	p := mustToggle(t, m, domain.LanguageYoruba)
	if p.Mode != ModeSingle || !slices.Equal(p.Selected, []domain.LanguageCode{"yo"}) {
		t.Fatalf("Expected single{yo}, got %v %v", p.Mode, p.Selected)
	}

	p = mustToggle(t, m, domain.LanguageYoruba)
	if p.Mode != ModeAuto || len(p.Selected) != 0 {
		t.Fatalf("Expected auto, got %v %v", p.Mode, p.Selected)
	}
	if p.PreferredLanguages() != nil {
		t.Error("auto mode must omit preferred languages")
	}
}

func TestToggleSingleToMixedAndBack(t *testing.T) {
	m := NewManager()
	mustToggle(t, m, domain.LanguageHausa)

	p := mustToggle(t, m, domain.LanguageEnglish)
	if p.Mode != ModeMixed || !slices.Equal(p.Selected, []domain.LanguageCode{"ha", "en"}) {
		t.Fatalf("Expected mixed{ha,en}, got %v %v", p.Mode, p.Selected)
	}

	p = mustToggle(t, m, domain.LanguagePidgin)
	if p.Mode != ModeMixed || len(p.Selected) != 3 {
		t.Fatalf("Expected mixed of 3, got %v %v", p.Mode, p.Selected)
	}

	mustToggle(t, m, domain.LanguagePidgin)
	p = mustToggle(t, m, domain.LanguageHausa)
	if p.Mode != ModeSingle || !slices.Equal(p.Selected, []domain.LanguageCode{"en"}) {
		t.Fatalf("Removing from mixed{ha,en} should leave single{en}, got %v %v", p.Mode, p.Selected)
	}
}

func TestToggleRejectsUnsupported(t *testing.T) {
	m := NewManager()
	mustToggle(t, m, domain.LanguageYoruba)

	p, err := m.Toggle("fr")
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("Expected ErrUnsupportedLanguage, got %v", err)
	}
	if p.Mode != ModeSingle {
		t.Errorf("State should be unchanged, got %v", p.Mode)
	}
}

func TestModeInvariantHoldsForRandomSequences(t *testing.T) {
	codes := []domain.LanguageCode{"ha", "pcm", "yo", "en"}
	rng := rand.New(rand.NewPCG(1, 2))

	for run := 0; run < 50; run++ {
		m := NewManager()
		prev := m.Current()
		for step := 0; step < 40; step++ {
			p := mustToggle(t, m, codes[rng.IntN(len(codes))])

			switch p.Mode {
			case ModeAuto:
				if len(p.Selected) != 0 {
					t.Fatalf("auto with selection %v", p.Selected)
				}
				if prev.Mode == ModeMixed {
					t.Fatalf("mixed %v jumped straight to auto", prev.Selected)
				}
			case ModeSingle:
				if len(p.Selected) != 1 {
					t.Fatalf("single with %d languages", len(p.Selected))
				}
			case ModeMixed:
				if len(p.Selected) < 2 {
					t.Fatalf("mixed with %d languages", len(p.Selected))
				}
			}
			prev = p
		}
	}
}

func TestOnChangeReceivesNewPreference(t *testing.T) {
	m := NewManager()
	var got []Mode
	m.OnChange(func(p Preference) { got = append(got, p.Mode) })

	mustToggle(t, m, domain.LanguageEnglish)
	mustToggle(t, m, domain.LanguageYoruba)
	mustToggle(t, m, domain.LanguageEnglish)

	want := []Mode{ModeSingle, ModeMixed, ModeSingle}
	if !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
