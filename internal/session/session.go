// Package session is the composition root of the client: it gates every send
// on readiness and quota, attaches identity and language preference, and
// keeps the conversation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/wazobia-session/internal/auth"
	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/preference"
	"github.com/ashureev/wazobia-session/internal/quota"
	"github.com/ashureev/wazobia-session/internal/readiness"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/ashureev/wazobia-session/internal/store"
	"github.com/ashureev/wazobia-session/internal/translation"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Placeholder replies appended when a chat call fails.
const (
	PlaceholderReply    = "Sorry, I encountered an error. Please try again in a moment."
	SessionExpiredReply = "Your session has expired. Please sign in again to continue."
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrMessageNotFound is returned when a message id is unknown.
	ErrMessageNotFound = errors.New("message not found")
	// ErrNotAuthenticated is returned by calls that need a signed-in user.
	ErrNotAuthenticated = errors.New("sign in required")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Service is everything the session needs from the remote service.
type Service interface {
	auth.API
	readiness.Checker
	translation.Translator
	Chat(ctx context.Context, token string, req remote.ChatRequest) (*remote.ChatResponse, error)
	DetectLanguage(ctx context.Context, text string) (*remote.Detection, error)
	Stats(ctx context.Context) (remote.Stats, error)
	Conversations(ctx context.Context, token string) ([]remote.Conversation, error)
	ConversationStats(ctx context.Context, token string) (remote.Stats, error)
	CreateConversation(ctx context.Context, token string, req remote.CreateConversationRequest) (*remote.Conversation, error)
	ConversationMessages(ctx context.Context, token string, id int64) ([]remote.StoredMessage, error)
}

// PromptReason tells the UI why it should show the sign-in form.
type PromptReason int

const (
	// PromptBlocked means a send was refused because the quota is used up.
	PromptBlocked PromptReason = iota
	// PromptLimitReached means the last allowed anonymous message was sent.
	PromptLimitReached
)

// Config holds session tuning.
type Config struct {
	Readiness       readiness.Config
	AuthPromptDelay time.Duration
	HistoryLimit    int
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Readiness:       readiness.DefaultConfig(),
		AuthPromptDelay: 1500 * time.Millisecond,
		HistoryLimit:    10,
	}
}

// Option customizes a Session.
type Option func(*Session)

// WithProbeOptions forwards options to the readiness probe.
func WithProbeOptions(opts ...readiness.Option) Option {
	return func(s *Session) { s.probeOpts = append(s.probeOpts, opts...) }
}

// WithAuthPrompt registers the callback that shows the sign-in form.
func WithAuthPrompt(fn func(PromptReason)) Option {
	return func(s *Session) { s.onPrompt = fn }
}

// WithIDGenerator replaces the message id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// SendResult describes one completed send.
type SendResult struct {
	User  domain.Message
	Reply domain.Message
	Quota quota.Status
	// Err is set when the reply is a placeholder for a failed call.
	Err error
}

// Session owns the conversation and the managers it coordinates.
type Session struct {
	svc     Service
	cfg     Config
	logger  *slog.Logger
	auth    *auth.Manager
	quota   *quota.Gate
	prefs   *preference.Manager
	probe   *readiness.Probe
	overlay *translation.Manager

	probeOpts []readiness.Option
	onPrompt  func(PromptReason)
	newID     func() string

	mu       sync.Mutex
	messages []domain.Message
	closed   bool
}

// New wires a session. Call Start before sending.
func New(ctx context.Context, svc Service, st store.Store, cfg Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.AuthPromptDelay < 0 {
		cfg.AuthPromptDelay = 0
	}

	s := &Session{
		svc:      svc,
		cfg:      cfg,
		logger:   logger,
		onPrompt: func(PromptReason) {},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	gate, err := quota.NewGate(ctx, st, logger.With("component", "quota"))
	if err != nil {
		return nil, fmt.Errorf("init quota gate: %w", err)
	}
	s.quota = gate
	s.auth = auth.NewManager(svc, st, gate, logger.With("component", "auth"))
	s.prefs = preference.NewManager()
	s.probe = readiness.NewProbe(svc, cfg.Readiness, logger.With("component", "readiness"), s.probeOpts...)
	s.overlay = translation.NewManager(svc, logger.With("component", "translation"))
	return s, nil
}

// Auth returns the auth manager.
func (s *Session) Auth() *auth.Manager { return s.auth }

// Quota returns the anonymous quota gate.
func (s *Session) Quota() *quota.Gate { return s.quota }

// Preferences returns the language preference manager.
func (s *Session) Preferences() *preference.Manager { return s.prefs }

// Probe returns the readiness probe.
func (s *Session) Probe() *readiness.Probe { return s.probe }

// Overlays returns the translation overlay manager.
func (s *Session) Overlays() *translation.Manager { return s.overlay }

// Start restores the persisted identity and probes the service concurrently.
// Input should stay disabled until it returns.
func (s *Session) Start(ctx context.Context) (readiness.State, error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := s.auth.Restore(gctx); err != nil {
			s.logger.Warn("Failed to restore session, continuing anonymously", "error", err)
		}
		return nil
	})

	var state readiness.State
	g.Go(func() error {
		var err error
		state, err = s.probe.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return state, err
	}
	return state, nil
}

// Messages returns a copy of the conversation.
func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Message looks up a message by id.
func (s *Session) Message(id string) (domain.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID == id {
			return m, true
		}
	}
	return domain.Message{}, false
}

// TogglePreference flips a language in the reply preference.
func (s *Session) TogglePreference(code domain.LanguageCode) (preference.Preference, error) {
	return s.prefs.Toggle(code)
}

// Send delivers text to the assistant and appends both sides of the exchange.
//
// The order is fixed: readiness and quota checks, identity and preference
// attachment, the network call, then the append. Overlapping sends are
// allowed and their replies land in arrival order.
func (s *Session) Send(ctx context.Context, text string) (*SendResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if s.isClosed() {
		return nil, ErrClosed
	}
	if err := s.probe.Gate(); err != nil {
		return nil, err
	}

	sess := s.auth.Session()
	if !s.quota.CanSend(sess) {
		s.onPrompt(PromptBlocked)
		return nil, quota.ErrQuotaExceeded
	}

	req := remote.ChatRequest{
		Message:             text,
		ConversationHistory: domain.History(s.Messages(), s.cfg.HistoryLimit),
		PreferredLanguages:  s.prefs.Current().PreferredLanguages(),
	}

	userMsg := domain.Message{ID: s.newID(), Role: domain.RoleUser, Content: text, CreatedAt: time.Now()}
	if !s.appendMessage(userMsg) {
		return nil, ErrClosed
	}

	resp, err := s.svc.Chat(ctx, sess.Token, req)
	if err != nil {
		return s.failSend(ctx, sess, userMsg, err)
	}

	confidence := resp.Metadata.DetectionConfidence
	reply := domain.Message{
		ID:         s.newID(),
		Role:       domain.RoleAssistant,
		Content:    resp.Response,
		Language:   resp.Language,
		Intent:     resp.Intent,
		Confidence: &confidence,
		CreatedAt:  time.Now(),
	}
	if !s.appendMessage(reply) {
		s.logger.Debug("Dropping reply that arrived after close", "message_id", reply.ID)
		return nil, ErrClosed
	}

	status, err := s.quota.RecordSend(ctx, s.countedSession(sess))
	if err != nil {
		s.logger.Warn("Failed to record anonymous send", "error", err)
	}
	if status.PromptAuth {
		s.quota.ScheduleAuthPrompt(s.cfg.AuthPromptDelay, func() {
			s.onPrompt(PromptLimitReached)
		})
	}

	return &SendResult{User: userMsg, Reply: reply, Quota: status}, nil
}

func (s *Session) failSend(ctx context.Context, sess domain.Session, userMsg domain.Message, cause error) (*SendResult, error) {
	content := PlaceholderReply
	cur := s.auth.Session()
	switch {
	case errors.Is(cause, remote.ErrUnauthorized) && sess.Token != "" && cur.Token == sess.Token:
		content = SessionExpiredReply
		if err := s.auth.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to clear rejected session", "error", err)
		}
	case errors.Is(cause, remote.ErrUnauthorized) && sess.Token != "":
		s.logger.Info("Ignoring rejection of a credential that was already replaced")
	default:
		s.logger.Warn("Chat request failed", "error", cause)
	}

	reply := domain.Message{ID: s.newID(), Role: domain.RoleAssistant, Content: content, CreatedAt: time.Now()}
	if !s.appendMessage(reply) {
		return nil, ErrClosed
	}
	return &SendResult{
		User:  userMsg,
		Reply: reply,
		Quota: quota.Status{
			Count:     s.quota.Count(),
			Remaining: s.quota.Remaining(),
			Low:       s.quota.Low(s.auth.Session()),
		},
		Err:   cause,
	}, nil
}

// countedSession decides which session a finished send is charged to. A
// sign-in or sign-out during the call wins: a send is counted only if the
// session was anonymous both when it started and when it finished.
func (s *Session) countedSession(started domain.Session) domain.Session {
	if started.Authenticated() {
		return started
	}
	return s.auth.Session()
}

// Translate shows message id in target.
func (s *Session) Translate(ctx context.Context, id string, target domain.LanguageCode) (translation.Overlay, error) {
	if err := s.probe.Gate(); err != nil {
		return translation.Overlay{}, err
	}
	msg, ok := s.Message(id)
	if !ok {
		return translation.Overlay{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	return s.overlay.Translate(ctx, msg.ID, msg.Content, msg.Language, target)
}

// ClearTranslation removes the overlay for message id.
func (s *Session) ClearTranslation(id string) {
	s.overlay.Clear(id)
}

// DetectLanguage asks the service which language text is in.
func (s *Session) DetectLanguage(ctx context.Context, text string) (*remote.Detection, error) {
	if err := s.probe.Gate(); err != nil {
		return nil, err
	}
	return s.svc.DetectLanguage(ctx, text)
}

// Stats returns service-wide statistics.
func (s *Session) Stats(ctx context.Context) (remote.Stats, error) {
	if err := s.probe.Gate(); err != nil {
		return nil, err
	}
	return s.svc.Stats(ctx)
}

// Conversations lists the signed-in user's saved conversations.
func (s *Session) Conversations(ctx context.Context) ([]remote.Conversation, error) {
	return withToken(ctx, s, func(token string) ([]remote.Conversation, error) {
		return s.svc.Conversations(ctx, token)
	})
}

// ConversationStats returns the signed-in user's conversation statistics.
func (s *Session) ConversationStats(ctx context.Context) (remote.Stats, error) {
	return withToken(ctx, s, func(token string) (remote.Stats, error) {
		return s.svc.ConversationStats(ctx, token)
	})
}

// CreateConversation starts a saved conversation.
func (s *Session) CreateConversation(ctx context.Context, title string) (*remote.Conversation, error) {
	return withToken(ctx, s, func(token string) (*remote.Conversation, error) {
		return s.svc.CreateConversation(ctx, token, remote.CreateConversationRequest{Title: title})
	})
}

// ConversationMessages returns the messages of a saved conversation.
func (s *Session) ConversationMessages(ctx context.Context, id int64) ([]remote.StoredMessage, error) {
	return withToken(ctx, s, func(token string) ([]remote.StoredMessage, error) {
		return s.svc.ConversationMessages(ctx, token, id)
	})
}

// Close cancels the pending auth prompt. Replies that arrive afterwards are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.quota.CancelAuthPrompt()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) appendMessage(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.messages = append(s.messages, m)
	return true
}

// withToken runs an authenticated call and signs out locally if the service
// rejects the credential.
func withToken[T any](ctx context.Context, s *Session, call func(token string) (T, error)) (T, error) {
	var zero T
	if err := s.probe.Gate(); err != nil {
		return zero, err
	}
	token := s.auth.Session().Token
	if token == "" {
		return zero, ErrNotAuthenticated
	}

	out, err := call(token)
	if errors.Is(err, remote.ErrUnauthorized) {
		if clearErr := s.auth.Invalidate(ctx); clearErr != nil {
			s.logger.Warn("Failed to clear rejected session", "error", clearErr)
		}
	}
	return out, err
}
