package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
)

// maxErrorBody caps how much of an error reply is read for its detail.
const maxErrorBody = 64 << 10

// Client is an HTTP client for the assistant service.
type Client struct {
	baseURL    string
	healthPath string
	http       *http.Client
	logger     *slog.Logger
}

// ClientConfig holds configuration for the HTTP client.
type ClientConfig struct {
	BaseURL        string
	HealthPath     string
	RequestTimeout time.Duration
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:        "http://localhost:8001",
		HealthPath:     "/health",
		RequestTimeout: 30 * time.Second,
	}
}

// NewClient creates a client for the service at cfg.BaseURL.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultClientConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = def.HealthPath
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid service URL %q", cfg.BaseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		healthPath: cfg.HealthPath,
		http:       &http.Client{Timeout: cfg.RequestTimeout},
		logger:     logger,
	}, nil
}

// Ping performs the lightweight reachability check used by readiness probing.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.healthPath, "", nil, nil)
}

// Chat sends a chat message. token may be empty for anonymous visitors.
func (c *Client) Chat(ctx context.Context, token string, req ChatRequest) (*ChatResponse, error) {
	if req.ConversationHistory == nil {
		req.ConversationHistory = []domain.HistoryEntry{}
	}
	var resp ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat", token, req, &resp); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return &resp, nil
}

// Translate requests a translation of text.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	var resp TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/translate", "", req, &resp); err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return &resp, nil
}

// DetectLanguage asks the service which language text is written in.
func (c *Client) DetectLanguage(ctx context.Context, text string) (*Detection, error) {
	var resp Detection
	body := map[string]string{"text": text}
	if err := c.do(ctx, http.MethodPost, "/detect-language", "", body, &resp); err != nil {
		return nil, fmt.Errorf("detect language: %w", err)
	}
	return &resp, nil
}

// Stats returns service statistics.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var resp Stats
	if err := c.do(ctx, http.MethodGet, "/stats", "", nil, &resp); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return resp, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup", "", req, &resp); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return &resp, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", req, &resp); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// Logout invalidates token on the service.
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.do(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Me returns the user owning token.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &user); err != nil {
		return nil, fmt.Errorf("me: %w", err)
	}
	return &user, nil
}

// Conversations lists the caller's saved conversations.
func (c *Client) Conversations(ctx context.Context, token string) ([]Conversation, error) {
	var resp []Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return resp, nil
}

// ConversationStats returns per-user conversation statistics.
func (c *Client) ConversationStats(ctx context.Context, token string) (Stats, error) {
	var resp Stats
	if err := c.do(ctx, http.MethodGet, "/conversations/stats", token, nil, &resp); err != nil {
		return nil, fmt.Errorf("conversation stats: %w", err)
	}
	return resp, nil
}

// CreateConversation starts a new saved conversation.
func (c *Client) CreateConversation(ctx context.Context, token string, req CreateConversationRequest) (*Conversation, error) {
	var resp Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations/", token, req, &resp); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &resp, nil
}

// ConversationMessages returns the messages of conversation id.
func (c *Client) ConversationMessages(ctx context.Context, token string, id int64) ([]StoredMessage, error) {
	var resp []StoredMessage
	path := "/conversations/" + strconv.FormatInt(id, 10) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("conversation messages: %w", err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Debug("failed to close response body", "path", path, "error", closeErr)
		}
	}()

	c.logger.Debug("remote call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return apiErr
	}

	switch {
	case len(payload.Detail) > 0:
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil {
			apiErr.Detail = s
		} else {
			// Validation errors arrive as a list of objects.
			apiErr.Detail = string(payload.Detail)
		}
	case payload.Error != "":
		apiErr.Detail = payload.Error
	}

	if errors.Is(apiErr, ErrUnauthorized) && apiErr.Detail == "" {
		apiErr.Detail = "session expired, please log in again"
	}
	return apiErr
}
