// Package readiness waits for the assistant service to wake up while keeping
// the "waking up" notice on screen for a minimum time.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrNotReady is returned by Gate while the probe is still running.
var ErrNotReady = errors.New("service readiness is still being probed")

// Phase is the probe's externally visible state.
type Phase int

const (
	Probing Phase = iota
	Ready
	Unreachable
)

func (p Phase) String() string {
	switch p {
	case Probing:
		return "probing"
	case Ready:
		return "ready"
	case Unreachable:
		return "unreachable"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of the probe.
type State struct {
	Phase          Phase
	Attempt        int
	Elapsed        time.Duration
	MinimumDisplay time.Duration
}

// Checker performs one reachability check.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) error

// Ping calls f.
func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Config holds probe parameters.
type Config struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
	MinimumDisplay DisplayPolicy
}

// DefaultConfig returns the default probe configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    20,
		RetryDelay:     3 * time.Second,
		AttemptTimeout: 10 * time.Second,
		MinimumDisplay: Fixed(12 * time.Second),
	}
}

// Option customizes a Probe.
type Option func(*Probe)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(p *Probe) { p.clock = c }
}

// Probe polls the service until it answers or attempts run out. It runs once.
type Probe struct {
	checker Checker
	cfg     Config
	clock   Clock
	logger  *slog.Logger

	mu      sync.Mutex
	state   State
	err     error
	started bool
	done    chan struct{}
}

// NewProbe creates a probe in the Probing phase.
func NewProbe(checker Checker, cfg Config, logger *slog.Logger, opts ...Option) *Probe {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	if cfg.MinimumDisplay == nil {
		cfg.MinimumDisplay = def.MinimumDisplay
	}

	p := &Probe{
		checker: checker,
		cfg:     cfg,
		clock:   realClock{},
		logger:  logger,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current snapshot.
func (p *Probe) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Phase returns the current phase.
func (p *Probe) Phase() Phase {
	return p.State().Phase
}

// Gate returns ErrNotReady while probing. Unreachable does not block callers.
func (p *Probe) Gate() error {
	if p.Phase() == Probing {
		return ErrNotReady
	}
	return nil
}

// Done is closed once the probe has resolved or was aborted.
func (p *Probe) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the probe resolves or ctx ends.
func (p *Probe) Wait(ctx context.Context) (State, error) {
	select {
	case <-p.done:
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.state, p.err
	case <-ctx.Done():
		return p.State(), ctx.Err()
	}
}

// Run probes the service. The first call does the work; later calls wait for
// and return the same result. If ctx is cancelled the probe is aborted, its
// timers are released and the phase stays Probing.
func (p *Probe) Run(ctx context.Context) (State, error) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return p.Wait(ctx)
	}
	p.started = true
	p.mu.Unlock()

	err := p.run(ctx)

	p.mu.Lock()
	p.err = err
	st := p.state
	p.mu.Unlock()
	close(p.done)

	return st, err
}

func (p *Probe) run(ctx context.Context) error {
	start := p.clock.Now()
	minDisplay := p.cfg.MinimumDisplay.Resolve()

	p.mu.Lock()
	p.state.MinimumDisplay = minDisplay
	p.mu.Unlock()

	p.logger.Info("Probing assistant service",
		"max_attempts", p.cfg.MaxAttempts,
		"retry_delay", p.cfg.RetryDelay,
		"minimum_display", minDisplay,
	)

	reachable := false
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		p.mu.Lock()
		p.state.Attempt = attempt
		p.mu.Unlock()

		err := p.ping(ctx)
		if err == nil {
			reachable = true
			break
		}
		p.logger.Debug("Readiness check failed", "attempt", attempt, "error", err)

		if err := p.clock.Sleep(ctx, p.cfg.RetryDelay); err != nil {
			return fmt.Errorf("readiness probe aborted: %w", err)
		}
	}

	if elapsed := p.clock.Now().Sub(start); elapsed < minDisplay {
		if err := p.clock.Sleep(ctx, minDisplay-elapsed); err != nil {
			return fmt.Errorf("readiness probe aborted: %w", err)
		}
	}

	p.mu.Lock()
	p.state.Elapsed = p.clock.Now().Sub(start)
	if reachable {
		p.state.Phase = Ready
	} else {
		p.state.Phase = Unreachable
	}
	st := p.state
	p.mu.Unlock()

	if reachable {
		p.logger.Info("Assistant service ready", "attempts", st.Attempt, "elapsed", st.Elapsed)
	} else {
		p.logger.Warn("Assistant service unreachable", "attempts", st.Attempt, "elapsed", st.Elapsed)
	}
	return nil
}

func (p *Probe) ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.AttemptTimeout)
	defer cancel()
	return p.checker.Ping(attemptCtx)
}
