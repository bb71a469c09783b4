// Package quota limits how many messages an anonymous visitor may send
// before signing in.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/store"
)

// Limit is the number of messages an anonymous visitor may send.
const Limit = 5

// lowThreshold is the remaining count at or below which Low reports true.
const lowThreshold = 2

// ErrQuotaExceeded is returned when an anonymous visitor has used the quota.
var ErrQuotaExceeded = errors.New("anonymous message limit reached, please sign in")

// Status summarizes the gate after a send.
type Status struct {
	Count      int
	Remaining  int
	Low        bool
	PromptAuth bool
}

// Gate tracks anonymous usage.
type Gate struct {
	store  store.Store
	logger *slog.Logger

	mu     sync.Mutex
	count  int
	prompt *time.Timer
}

// NewGate loads the persisted counter from st.
func NewGate(ctx context.Context, st store.Store, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{store: st, logger: logger}

	raw, ok, err := st.Get(ctx, store.KeyAnonymousCount)
	if err != nil {
		return nil, fmt.Errorf("load anonymous count: %w", err)
	}
	if ok {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 0 {
			logger.Warn("Ignoring corrupt anonymous message count", "value", raw)
			n = 0
		}
		g.count = n
	}
	return g, nil
}

// Count returns the number of anonymous messages sent.
func (g *Gate) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count
}

// Remaining returns how many anonymous messages are left.
func (g *Gate) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return max(Limit-g.count, 0)
}

// CanSend returns true for authenticated sessions and for anonymous ones
// still under the limit.
func (g *Gate) CanSend(s domain.Session) bool {
	if s.Authenticated() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count < Limit
}

// ShouldPromptAuth returns true when an anonymous session has hit the limit.
func (g *Gate) ShouldPromptAuth(s domain.Session) bool {
	if s.Authenticated() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.count >= Limit
}

// Low reports the non-blocking "running low" advisory.
func (g *Gate) Low(s domain.Session) bool {
	if s.Authenticated() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return isLow(g.count)
}

// RecordSend counts a completed anonymous send and persists the counter.
// Authenticated sends are not counted.
func (g *Gate) RecordSend(ctx context.Context, s domain.Session) (Status, error) {
	if s.Authenticated() {
		return Status{Remaining: Limit}, nil
	}

	g.mu.Lock()
	g.count++
	count := g.count
	g.mu.Unlock()

	st := Status{
		Count:      count,
		Remaining:  max(Limit-count, 0),
		Low:        isLow(count),
		PromptAuth: count >= Limit,
	}

	if err := g.store.Set(ctx, store.KeyAnonymousCount, strconv.Itoa(count)); err != nil {
		return st, fmt.Errorf("persist anonymous count: %w", err)
	}
	return st, nil
}

// OnAuthenticated resets the counter, clears the persisted value and cancels
// any pending auth prompt.
func (g *Gate) OnAuthenticated(ctx context.Context) error {
	return g.Reset(ctx)
}

// Reset zeroes the counter in memory and in the store and cancels any
// pending auth prompt.
func (g *Gate) Reset(ctx context.Context) error {
	g.mu.Lock()
	g.count = 0
	g.stopPromptLocked()
	g.mu.Unlock()

	if err := g.store.Remove(ctx, store.KeyAnonymousCount); err != nil {
		return fmt.Errorf("clear anonymous count: %w", err)
	}
	return nil
}

// ScheduleAuthPrompt runs fire once after delay unless cancelled first.
// A pending prompt is replaced.
func (g *Gate) ScheduleAuthPrompt(delay time.Duration, fire func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopPromptLocked()

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		g.mu.Lock()
		current := g.prompt == t
		if current {
			g.prompt = nil
		}
		g.mu.Unlock()
		if current {
			fire()
		}
	})
	g.prompt = t
}

// CancelAuthPrompt cancels a pending prompt. It returns false if none was pending.
func (g *Gate) CancelAuthPrompt() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopPromptLocked()
}

// PromptPending reports whether an auth prompt is scheduled.
func (g *Gate) PromptPending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompt != nil
}

func (g *Gate) stopPromptLocked() bool {
	if g.prompt == nil {
		return false
	}
	g.prompt.Stop()
	g.prompt = nil
	return true
}

func isLow(count int) bool {
	remaining := Limit - count
	return remaining >= 1 && remaining <= lowThreshold
}
