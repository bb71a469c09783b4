package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/identity"
	"github.com/ashureev/wazobia-session/internal/remote"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", minPasswordLength)
)

type account struct {
	user domain.User
	hash []byte
}

// Accounts is an in-memory user directory with bearer tokens.
type Accounts struct {
	cost int

	mu      sync.RWMutex
	nextID  int64
	byEmail map[string]*account
	tokens  map[string]int64
	byID    map[int64]*account
}

// NewAccounts creates an empty directory. cost is the bcrypt cost; values
// below bcrypt.MinCost use bcrypt.DefaultCost.
func NewAccounts(cost int) *Accounts {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{
		cost:    cost,
		byEmail: make(map[string]*account),
		tokens:  make(map[string]int64),
		byID:    make(map[int64]*account),
	}
}

// Register creates an account and returns a fresh token for it.
func (a *Accounts) Register(email, username, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if len(password) < minPasswordLength {
		return domain.User{}, "", ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byEmail[email]; ok {
		return domain.User{}, "", ErrEmailTaken
	}
	for _, acc := range a.byID {
		if strings.EqualFold(acc.user.Username, username) {
			return domain.User{}, "", ErrUsernameTaken
		}
	}

	a.nextID++
	acc := &account{
		user: domain.User{ID: a.nextID, Username: username, Email: email},
		hash: hash,
	}
	a.byEmail[email] = acc
	a.byID[acc.user.ID] = acc
	return acc.user, a.issueLocked(acc.user.ID), nil
}

// Authenticate checks credentials and returns a fresh token.
func (a *Accounts) Authenticate(email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	a.mu.RLock()
	acc, ok := a.byEmail[email]
	a.mu.RUnlock()
	if !ok {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return domain.User{}, "", ErrInvalidCredentials
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return acc.user, a.issueLocked(acc.user.ID), nil
}

// Revoke invalidates token. Unknown tokens are ignored.
func (a *Accounts) Revoke(token string) {
	a.mu.Lock()
	delete(a.tokens, token)
	a.mu.Unlock()
}

// UserForToken implements identity.Resolver.
func (a *Accounts) UserForToken(token string) (*domain.User, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	id, ok := a.tokens[token]
	if !ok {
		return nil, false
	}
	u := a.byID[id].user
	return &u, true
}

// Count returns the number of registered accounts.
func (a *Accounts) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byID)
}

func (a *Accounts) issueLocked(userID int64) string {
	token := uuid.NewString()
	a.tokens[token] = userID
	return token
}

func (h *Handler) signup(w http.ResponseWriter, r *http.Request) {
	var req remote.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Username) == "" {
		Error(w, http.StatusUnprocessableEntity, "Email and username are required")
		return
	}

	user, token, err := h.accounts.Register(req.Email, req.Username, req.Password)
	switch {
	case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
		Error(w, http.StatusBadRequest, capitalize(err.Error()))
		return
	case errors.Is(err, ErrWeakPassword):
		Error(w, http.StatusUnprocessableEntity, capitalize(err.Error()))
		return
	case err != nil:
		h.logger.Error("Signup failed", "error", err)
		Error(w, http.StatusInternalServerError, "Signup failed")
		return
	}

	h.logger.Info("Account created", "user_id", user.ID, "username", user.Username)
	JSON(w, http.StatusOK, remote.AuthResponse{User: user, Token: token})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	user, token, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		Error(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	JSON(w, http.StatusOK, remote.AuthResponse{User: user, Token: token})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.accounts.Revoke(identity.TokenFromContext(r.Context()))
	JSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, identity.UserFromContext(r.Context()))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
