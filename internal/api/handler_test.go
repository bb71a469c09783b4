//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestServer(t *testing.T, coldStart time.Duration) (*remote.Client, *manualClock) {
	t.Helper()

	clock := &manualClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	h := NewHandler(
		NewAccounts(bcrypt.MinCost),
		NewConversations(clock.Now),
		HandlerConfig{ColdStart: coldStart, Now: clock.Now},
		nil,
	)
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	client, err := remote.NewClient(remote.ClientConfig{BaseURL: srv.URL, RequestTimeout: 5 * time.Second}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, clock
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	data := map[string]string{"foo": "bar"}

	JSON(w, http.StatusOK, data)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if got["foo"] != "bar" {
		t.Errorf("Expected foo=bar, got %v", got["foo"])
	}
}

func TestErrorUsesDetailKey(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusBadRequest, "Email already registered")

	var got map[string]string
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if got["detail"] != "Email already registered" {
		t.Errorf("Expected detail message, got %v", got)
	}
}

func TestHealthColdStart(t *testing.T) {
	client, clock := newTestServer(t, 10*time.Second)
	ctx := context.Background()

	var apiErr *remote.APIError
	if err := client.Ping(ctx); !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503 during cold start, got %v", err)
	}

	clock.Advance(10 * time.Second)
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Expected healthy after cold start, got %v", err)
	}
}

func TestAuthLifecycle(t *testing.T) {
	client, _ := newTestServer(t, 0)
	ctx := context.Background()

	signup, err := client.Signup(ctx, remote.SignupRequest{Email: "Ada@Example.com", Username: "ada", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if signup.Token == "" || signup.User.ID == 0 {
		t.Fatalf("Expected token and user id, got %+v", signup)
	}
	if signup.User.Email != "ada@example.com" {
		t.Errorf("Expected normalised email, got %q", signup.User.Email)
	}

	_, err = client.Signup(ctx, remote.SignupRequest{Email: "ada@example.com", Username: "other", Password: "secret1"})
	if got := remote.Detail(err, ""); got != "Email already registered" {
		t.Errorf("Expected duplicate email detail, got %q (%v)", got, err)
	}

	if _, err := client.Login(ctx, remote.LoginRequest{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, remote.ErrUnauthorized) {
		t.Errorf("Expected unauthorized for bad password, got %v", err)
	}

	login, err := client.Login(ctx, remote.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	me, err := client.Me(ctx, login.Token)
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Username != "ada" {
		t.Errorf("Expected ada, got %+v", me)
	}

	if err := client.Logout(ctx, login.Token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := client.Me(ctx, login.Token); !errors.Is(err, remote.ErrUnauthorized) {
		t.Errorf("Expected revoked token to be rejected, got %v", err)
	}
	if _, err := client.Me(ctx, signup.Token); err != nil {
		t.Errorf("Expected signup token to stay valid, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	client, _ := newTestServer(t, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		req  remote.SignupRequest
		want int
	}{
		{name: "short password", req: remote.SignupRequest{Email: "a@b.c", Username: "a", Password: "123"}, want: http.StatusUnprocessableEntity},
		{name: "missing username", req: remote.SignupRequest{Email: "a@b.c", Password: "secret1"}, want: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Signup(ctx, tt.req)
			var apiErr *remote.APIError
			if !errors.As(err, &apiErr) || apiErr.Status != tt.want {
				t.Errorf("Expected status %d, got %v", tt.want, err)
			}
		})
	}
}

func TestChatHonoursPreferredLanguage(t *testing.T) {
	client, _ := newTestServer(t, 0)
	ctx := context.Background()

	resp, err := client.Chat(ctx, "", remote.ChatRequest{
		Message:            "Hello there",
		PreferredLanguages: []domain.LanguageCode{domain.LanguageYoruba, domain.LanguageHausa},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Language != domain.LanguageYoruba {
		t.Errorf("Expected yo, got %s", resp.Language)
	}

	resp, err = client.Chat(ctx, "", remote.ChatRequest{Message: "wetin dey happen"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Language != domain.LanguagePidgin {
		t.Errorf("Expected detected pcm, got %s", resp.Language)
	}
}

func TestChatRejectsUnknownToken(t *testing.T) {
	client, _ := newTestServer(t, 0)

	_, err := client.Chat(context.Background(), "stale-token", remote.ChatRequest{Message: "hi"})
	if !errors.Is(err, remote.ErrUnauthorized) {
		t.Errorf("Expected unauthorized, got %v", err)
	}
}

func TestTranslateAndDetect(t *testing.T) {
	client, _ := newTestServer(t, 0)
	ctx := context.Background()

	tr, err := client.Translate(ctx, remote.TranslateRequest{Text: "Good morning", TargetLanguage: domain.LanguageHausa})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if tr.TranslatedText != "[ha] Good morning" || tr.SourceLanguage != domain.LanguageEnglish {
		t.Errorf("Unexpected translation %+v", tr)
	}

	if _, err := client.Translate(ctx, remote.TranslateRequest{Text: "x", TargetLanguage: "fr"}); err == nil {
		t.Error("Expected unsupported target to fail")
	}

	tests := []struct {
		text string
		want domain.LanguageCode
	}{
		{text: "Sannu, yaya aiki?", want: domain.LanguageHausa},
		{text: "Bawo ni, mo fe owo", want: domain.LanguageYoruba},
		{text: "Abeg wetin dey", want: domain.LanguagePidgin},
		{text: "What is the weather today", want: domain.LanguageEnglish},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			d, err := client.DetectLanguage(ctx, tt.text)
			if err != nil {
				t.Fatalf("DetectLanguage: %v", err)
			}
			if d.Language != tt.want {
				t.Errorf("Expected %s, got %s (%v)", tt.want, d.Language, d.AllScores)
			}
		})
	}
}

func TestConversationsRecordAuthenticatedChat(t *testing.T) {
	client, _ := newTestServer(t, 0)
	ctx := context.Background()

	auth, err := client.Signup(ctx, remote.SignupRequest{Email: "bola@example.com", Username: "bola", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}

	if _, err := client.Conversations(ctx, ""); !errors.Is(err, remote.ErrUnauthorized) {
		t.Errorf("Expected anonymous listing to be rejected, got %v", err)
	}

	if _, err := client.Chat(ctx, auth.Token, remote.ChatRequest{Message: "Sannu"}); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	convs, err := client.Conversations(ctx, auth.Token)
	if err != nil {
		t.Fatalf("Conversations: %v", err)
	}
	if len(convs) != 1 || convs[0].Title != "Sannu" || convs[0].MessageCount != 2 {
		t.Fatalf("Expected one recorded conversation, got %+v", convs)
	}

	msgs, err := client.ConversationMessages(ctx, auth.Token, convs[0].ID)
	if err != nil {
		t.Fatalf("ConversationMessages: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Errorf("Unexpected transcript %+v", msgs)
	}

	created, err := client.CreateConversation(ctx, auth.Token, remote.CreateConversationRequest{Title: "Fresh"})
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if created.Title != "Fresh" {
		t.Errorf("Expected title Fresh, got %q", created.Title)
	}

	stats, err := client.ConversationStats(ctx, auth.Token)
	if err != nil {
		t.Fatalf("ConversationStats: %v", err)
	}
	if stats["total_conversations"] != float64(2) || stats["total_messages"] != float64(2) {
		t.Errorf("Unexpected stats %v", stats)
	}

	var apiErr *remote.APIError
	if _, err := client.ConversationMessages(ctx, auth.Token, 999); !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown conversation, got %v", err)
	}
}
