package readiness

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultNoticeMessages are rotated while the service wakes up.
var DefaultNoticeMessages = []string{
	"Waking the Lagos desk from its afternoon nap",
	"The Kano team is warming up the servers",
	"Someone in Ibadan is finding the right keyboard",
	"Port Harcourt is bringing the translators online",
	"Abuja just finished its tea break",
	"Enugu is loading a fresh batch of proverbs",
}

// NoticeConfig controls the wake-up notice animation.
type NoticeConfig struct {
	Messages    []string
	RotateEvery time.Duration
	DotsEvery   time.Duration
	MaxDots     int
	Render      func(line string)
}

// Notice animates a rotating message with trailing dots until stopped.
type Notice struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// StartNotice renders the first line immediately and then animates it on a
// background goroutine. Stop, or cancellation of ctx, releases both tickers.
func StartNotice(ctx context.Context, cfg NoticeConfig) *Notice {
	if len(cfg.Messages) == 0 {
		cfg.Messages = DefaultNoticeMessages
	}
	if cfg.RotateEvery <= 0 {
		cfg.RotateEvery = 3 * time.Second
	}
	if cfg.DotsEvery <= 0 {
		cfg.DotsEvery = 500 * time.Millisecond
	}
	if cfg.MaxDots <= 0 {
		cfg.MaxDots = 3
	}
	render := cfg.Render
	if render == nil {
		render = func(string) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	n := &Notice{cancel: cancel}

	index, dots := 0, 0
	line := func() string {
		return cfg.Messages[index] + strings.Repeat(".", dots)
	}
	render(line())

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		rotate := time.NewTicker(cfg.RotateEvery)
		defer rotate.Stop()
		dotTicker := time.NewTicker(cfg.DotsEvery)
		defer dotTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-rotate.C:
				index = (index + 1) % len(cfg.Messages)
			case <-dotTicker.C:
				if dots >= cfg.MaxDots {
					dots = 0
				} else {
					dots++
				}
			}
			render(line())
		}
	}()
	return n
}

// Stop halts the animation and waits for the goroutine to exit.
func (n *Notice) Stop() {
	n.cancel()
	n.wg.Wait()
}
