package readiness

import (
	"context"
	"math/rand/v2"
	"time"
)

// Clock abstracts time for the probe.
type Clock interface {
	Now() time.Time
	// Sleep waits for d or until ctx ends, releasing its timer either way.
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// DisplayPolicy yields the minimum time the wake-up notice stays visible.
// It is resolved once per probe run.
type DisplayPolicy interface {
	Resolve() time.Duration
}

// Fixed always shows the notice for the same duration.
type Fixed time.Duration

// Resolve returns f.
func (f Fixed) Resolve() time.Duration { return time.Duration(f) }

// Uniform picks a duration uniformly in [Min, Max].
type Uniform struct {
	Min time.Duration
	Max time.Duration
}

// Resolve returns a random duration in range. A degenerate range yields Min.
func (u Uniform) Resolve() time.Duration {
	if u.Max <= u.Min {
		return u.Min
	}
	return u.Min + rand.N(u.Max-u.Min+1)
}
