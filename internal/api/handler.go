// Package api implements an in-memory development double of the Wazobia
// assistant service. It speaks the same JSON wire format so the session
// orchestrator can be exercised without the real backend.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ashureev/wazobia-session/internal/identity"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// HandlerConfig controls the simulated service behaviour.
type HandlerConfig struct {
	// ColdStart is how long /health answers 503 after startup.
	ColdStart time.Duration
	// Now overrides the clock, mainly for tests.
	Now func() time.Time
}

// Handler serves the assistant API from memory.
type Handler struct {
	accounts      *Accounts
	conversations *Conversations
	logger        *slog.Logger

	now       func() time.Time
	startedAt time.Time
	coldStart time.Duration

	chatRequests      atomic.Int64
	translateRequests atomic.Int64
	detectRequests    atomic.Int64
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(accounts *Accounts, conversations *Conversations, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Handler{
		accounts:      accounts,
		conversations: conversations,
		logger:        logger,
		now:           now,
		startedAt:     now(),
		coldStart:     cfg.ColdStart,
	}
}

// RegisterRoutes mounts the service endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(h.accounts))

		r.Post("/chat", h.chat)
		r.Post("/translate", h.translate)
		r.Post("/detect-language", h.detect)
		r.Get("/stats", h.stats)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.signup)
			r.Post("/login", h.login)
			r.With(identity.Require).Post("/logout", h.logout)
			r.With(identity.Require).Get("/me", h.me)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Use(identity.Require)
			r.Get("/", h.listConversations)
			r.Post("/", h.createConversation)
			r.Get("/stats", h.conversationStats)
			r.Get("/{id}/messages", h.conversationMessages)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"detail": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response in the service's {"detail": ...} shape.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"detail": message})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) {
		Error(w, http.StatusUnprocessableEntity, "Request body is required")
		return false
	}
	Error(w, http.StatusUnprocessableEntity, "Invalid request body")
	return false
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	if wait := h.coldStart - h.now().Sub(h.startedAt); wait > 0 {
		w.Header().Set("Retry-After", retryAfter(wait))
		Error(w, http.StatusServiceUnavailable, "Service is starting up")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]any{
		"uptime_seconds":       int64(h.now().Sub(h.startedAt).Seconds()),
		"chat_requests":        h.chatRequests.Load(),
		"translation_requests": h.translateRequests.Load(),
		"detection_requests":   h.detectRequests.Load(),
		"registered_users":     h.accounts.Count(),
		"supported_languages":  supportedCodes(),
	})
}

func retryAfter(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	return strconv.FormatInt(secs, 10)
}
