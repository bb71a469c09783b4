package domain

import "testing"

func TestHistoryKeepsMostRecent(t *testing.T) {
	msgs := []Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
		{Role: RoleUser, Content: "c"},
	}

	got := History(msgs, 2)
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0].Content != "b" || got[1].Content != "c" {
		t.Errorf("Unexpected history: %+v", got)
	}

	if empty := History(msgs, 0); empty == nil || len(empty) != 0 {
		t.Errorf("Expected empty non-nil history, got %#v", empty)
	}
}

func TestLookupLanguageFallsBackToEnglish(t *testing.T) {
	if got := LookupLanguage("xx"); got.Code != LanguageEnglish {
		t.Errorf("Expected English fallback, got %q", got.Code)
	}
	if got := LookupLanguage(LanguageYoruba); got.Name != "Yoruba" {
		t.Errorf("Expected Yoruba, got %q", got.Name)
	}
	if IsSupported("fr") {
		t.Error("fr should not be supported")
	}
}
