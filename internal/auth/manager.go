// Package auth owns the signed-in identity and its persisted credential.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/ashureev/wazobia-session/internal/store"
)

// ErrMissingField is returned when a required credential field is empty.
var ErrMissingField = errors.New("missing required field")

// API is the subset of the remote client used for authentication.
type API interface {
	Signup(ctx context.Context, req remote.SignupRequest) (*remote.AuthResponse, error)
	Login(ctx context.Context, req remote.LoginRequest) (*remote.AuthResponse, error)
	Logout(ctx context.Context, token string) error
	Me(ctx context.Context, token string) (*domain.User, error)
}

// QuotaResetter is notified when a session is established or ended.
type QuotaResetter interface {
	OnAuthenticated(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Manager holds the current session.
type Manager struct {
	api    API
	store  store.Store
	quota  QuotaResetter
	logger *slog.Logger

	mu      sync.RWMutex
	session domain.Session
}

// NewManager creates a manager with an empty session. Call Restore to load a
// persisted one.
func NewManager(api API, st store.Store, quota QuotaResetter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{api: api, store: st, quota: quota, logger: logger}
}

// Session returns a copy of the current session.
func (m *Manager) Session() domain.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.session
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Restore hydrates the session from the store without contacting the
// service. A partial or unreadable record is discarded.
func (m *Manager) Restore(ctx context.Context) (domain.Session, error) {
	token, hasToken, err := m.store.Get(ctx, store.KeyAuthToken)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load auth token: %w", err)
	}
	raw, hasUser, err := m.store.Get(ctx, store.KeyUserData)
	if err != nil {
		return domain.Session{}, fmt.Errorf("load user data: %w", err)
	}

	if !hasToken && !hasUser {
		return domain.Session{}, nil
	}

	var user domain.User
	if !hasToken || !hasUser || token == "" || json.Unmarshal([]byte(raw), &user) != nil {
		m.logger.Warn("Discarding incomplete persisted session", "has_token", hasToken, "has_user", hasUser)
		if err := m.store.Remove(ctx, store.KeyAuthToken, store.KeyUserData); err != nil {
			return domain.Session{}, fmt.Errorf("discard persisted session: %w", err)
		}
		return domain.Session{}, nil
	}

	m.mu.Lock()
	m.session = domain.Session{User: &user, Token: token}
	m.mu.Unlock()

	m.logger.Info("Restored session", "user_id", user.ID, "username", user.Username)
	return m.Session(), nil
}

// Signup registers an account and signs in with it.
func (m *Manager) Signup(ctx context.Context, email, username, password string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return m.Session(), fmt.Errorf("%w: email, username and password are required", ErrMissingField)
	}

	resp, err := m.api.Signup(ctx, remote.SignupRequest{Email: email, Username: username, Password: password})
	if err != nil {
		return m.Session(), err
	}
	return m.establish(ctx, resp)
}

// Login signs in with existing credentials.
func (m *Manager) Login(ctx context.Context, email, password string) (domain.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return m.Session(), fmt.Errorf("%w: email and password are required", ErrMissingField)
	}

	resp, err := m.api.Login(ctx, remote.LoginRequest{Email: email, Password: password})
	if err != nil {
		return m.Session(), err
	}
	return m.establish(ctx, resp)
}

// Logout asks the service to invalidate the credential and clears local
// state. Local cleanup happens on every path; a remote failure is only logged.
func (m *Manager) Logout(ctx context.Context) (err error) {
	cur := m.Session()
	if !cur.Authenticated() && cur.Token == "" {
		return nil
	}

	defer func() {
		if clearErr := m.clearLocal(ctx); clearErr != nil {
			err = clearErr
		}
		if resetErr := m.resetQuota(ctx); resetErr != nil && err == nil {
			err = resetErr
		}
	}()

	if cur.Token == "" {
		return nil
	}
	if remoteErr := m.api.Logout(ctx, cur.Token); remoteErr != nil {
		m.logger.Warn("Remote logout failed, clearing local session anyway", "error", remoteErr)
	}
	return nil
}

// Invalidate drops the session without a remote call. Used when the service
// rejects the stored credential.
func (m *Manager) Invalidate(ctx context.Context) error {
	m.logger.Info("Credential rejected, signing out locally")
	return m.clearLocal(ctx)
}

// Refresh reloads the user record from the service. A rejected credential
// invalidates the session.
func (m *Manager) Refresh(ctx context.Context) (domain.Session, error) {
	cur := m.Session()
	if cur.Token == "" {
		return cur, nil
	}

	user, err := m.api.Me(ctx, cur.Token)
	if errors.Is(err, remote.ErrUnauthorized) {
		if clearErr := m.Invalidate(ctx); clearErr != nil {
			return domain.Session{}, clearErr
		}
		return domain.Session{}, err
	}
	if err != nil {
		return cur, err
	}

	m.mu.Lock()
	if m.session.Token == cur.Token {
		m.session.User = user
	}
	m.mu.Unlock()

	if err := m.persistUser(ctx, user); err != nil {
		m.logger.Warn("Failed to persist refreshed user", "error", err)
	}
	return m.Session(), nil
}

func (m *Manager) establish(ctx context.Context, resp *remote.AuthResponse) (domain.Session, error) {
	if resp.Token == "" {
		return m.Session(), errors.New("auth response missing token")
	}
	user := resp.User

	m.mu.Lock()
	m.session = domain.Session{User: &user, Token: resp.Token}
	m.mu.Unlock()

	if err := m.store.Set(ctx, store.KeyAuthToken, resp.Token); err != nil {
		m.logger.Warn("Failed to persist auth token", "error", err)
	}
	if err := m.persistUser(ctx, &user); err != nil {
		m.logger.Warn("Failed to persist user data", "error", err)
	}
	if m.quota != nil {
		if err := m.quota.OnAuthenticated(ctx); err != nil {
			m.logger.Warn("Failed to reset anonymous quota", "error", err)
		}
	}

	m.logger.Info("Signed in", "user_id", user.ID, "username", user.Username)
	return m.Session(), nil
}

func (m *Manager) persistUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return m.store.Set(ctx, store.KeyUserData, string(data))
}

// resetQuota starts the next anonymous visitor with a full quota. Without a
// gate only the persisted counter is removed.
func (m *Manager) resetQuota(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	if m.quota == nil {
		if err := m.store.Remove(ctx, store.KeyAnonymousCount); err != nil {
			return fmt.Errorf("clear anonymous count: %w", err)
		}
		return nil
	}
	if err := m.quota.Reset(ctx); err != nil {
		return fmt.Errorf("reset anonymous quota: %w", err)
	}
	return nil
}

// clearLocal resets the in-memory session before touching the store so the
// caller is signed out even if storage fails.
func (m *Manager) clearLocal(ctx context.Context, extraKeys ...string) error {
	m.mu.Lock()
	m.session = domain.Session{}
	m.mu.Unlock()

	keys := append([]string{store.KeyAuthToken, store.KeyUserData}, extraKeys...)
	if err := m.store.Remove(context.WithoutCancel(ctx), keys...); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}
