package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ashureev/wazobia-session/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestChatOmitsPreferredLanguagesWhenEmpty(t *testing.T) {
	var raw map[string]json.RawMessage
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Expected no Authorization header, got %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"Sannu","language":"ha","intent":"greeting","metadata":{"detection_confidence":0.9}}`))
	}))

	resp, err := c.Chat(context.Background(), "", ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if resp.Response != "Sannu" || resp.Language != domain.LanguageHausa {
		t.Errorf("Unexpected response: %+v", resp)
	}
	if resp.Metadata.DetectionConfidence != 0.9 {
		t.Errorf("Expected confidence 0.9, got %v", resp.Metadata.DetectionConfidence)
	}
	if _, ok := raw["preferred_languages"]; ok {
		t.Error("preferred_languages should be omitted")
	}
	if string(raw["conversation_history"]) != "[]" {
		t.Errorf("Expected empty history array, got %s", raw["conversation_history"])
	}
}

func TestChatAttachesBearerAndPreferences(t *testing.T) {
	var body ChatRequest
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Expected bearer token, got %q", got)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"response":"ok","language":"yo","intent":"x","metadata":{}}`))
	}))

	_, err := c.Chat(context.Background(), "tok", ChatRequest{
		Message:            "bawo",
		PreferredLanguages: []domain.LanguageCode{domain.LanguageYoruba, domain.LanguageEnglish},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if len(body.PreferredLanguages) != 2 || body.PreferredLanguages[0] != domain.LanguageYoruba {
		t.Errorf("Unexpected preferred languages: %v", body.PreferredLanguages)
	}
}

func TestAPIErrorDetail(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Email already registered"}`))
	}))

	_, err := c.Signup(context.Background(), SignupRequest{Email: "a@b.c", Username: "a", Password: "p"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", apiErr.Status)
	}
	if got := Detail(err, "fallback"); got != "Email already registered" {
		t.Errorf("Unexpected detail %q", got)
	}
}

func TestUnauthorizedMatchesSentinel(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Me(context.Background(), "stale")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestPingReportsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(ClientConfig{BaseURL: url}, nil)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Expected ErrUnavailable, got %v", err)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{BaseURL: "not a url"}, nil); err == nil {
		t.Fatal("Expected error for invalid URL")
	}
}
