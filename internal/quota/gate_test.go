package quota

import (
	"context"
	"testing"
	"time"

	"github.com/ashureev/wazobia-session/internal/domain"
	"github.com/ashureev/wazobia-session/internal/store"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var anon = domain.Session{}

func newGate(t *testing.T, st store.Store) *Gate {
	t.Helper()
	g, err := NewGate(context.Background(), st, nil)
	if err != nil {
		t.Fatalf("NewGate failed: %v", err)
	}
	return g
}

func TestAnonymousLimitSequence(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	g := newGate(t, st)

	for i := 1; i <= 4; i++ {
		if !g.CanSend(anon) {
			t.Fatalf("send %d should be allowed", i)
		}
		status, err := g.RecordSend(ctx, anon)
		if err != nil {
			t.Fatalf("RecordSend %d failed: %v", i, err)
		}
		if status.Count != i || status.PromptAuth {
			t.Fatalf("send %d: unexpected status %+v", i, status)
		}
	}

	if !g.CanSend(anon) {
		t.Fatal("send 5 should be allowed")
	}
	status, err := g.RecordSend(ctx, anon)
	if err != nil {
		t.Fatalf("RecordSend 5 failed: %v", err)
	}
	if !status.PromptAuth || status.Remaining != 0 {
		t.Fatalf("send 5 should request an auth prompt, got %+v", status)
	}

	if g.CanSend(anon) {
		t.Fatal("send 6 must be blocked")
	}
	if !g.ShouldPromptAuth(anon) {
		t.Fatal("gate should prompt for auth at the limit")
	}

	v, ok, _ := st.Get(ctx, store.KeyAnonymousCount)
	if !ok || v != "5" {
		t.Errorf("Expected persisted count 5, got %q ok=%v", v, ok)
	}
}

func TestLowAdvisory(t *testing.T) {
	ctx := context.Background()
	g := newGate(t, store.NewMemory())

	var lows []bool
	for i := 0; i < Limit; i++ {
		status, err := g.RecordSend(ctx, anon)
		if err != nil {
			t.Fatalf("RecordSend failed: %v", err)
		}
		lows = append(lows, status.Low)
	}

	want := []bool{false, false, true, true, false}
	for i := range want {
		if lows[i] != want[i] {
			t.Fatalf("Low after send %d: expected %v, got %v", i+1, want[i], lows[i])
		}
	}
}

func TestAuthenticatedSessionsAreUnlimited(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_ = st.Set(ctx, store.KeyAnonymousCount, "5")
	g := newGate(t, st)

	user := domain.Session{User: &domain.User{ID: 1}, Token: "tok"}
	if g.CanSend(anon) {
		t.Fatal("anonymous send should be blocked at 5")
	}
	if !g.CanSend(user) {
		t.Fatal("authenticated send should be allowed")
	}
	if _, err := g.RecordSend(ctx, user); err != nil {
		t.Fatalf("RecordSend failed: %v", err)
	}
	if g.Count() != 5 {
		t.Errorf("authenticated send must not count, got %d", g.Count())
	}
}

func TestOnAuthenticatedResets(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	g := newGate(t, st)
	for i := 0; i < 3; i++ {
		_, _ = g.RecordSend(ctx, anon)
	}

	if err := g.OnAuthenticated(ctx); err != nil {
		t.Fatalf("OnAuthenticated failed: %v", err)
	}
	if g.Count() != 0 {
		t.Errorf("Expected count 0, got %d", g.Count())
	}
	if _, ok, _ := st.Get(ctx, store.KeyAnonymousCount); ok {
		t.Error("persisted counter should be cleared")
	}
}

func TestCorruptCounterLoadsAsZero(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	_ = st.Set(ctx, store.KeyAnonymousCount, "many")

	g := newGate(t, st)
	if g.Count() != 0 {
		t.Errorf("Expected 0, got %d", g.Count())
	}
}

func TestScheduledPromptFires(t *testing.T) {
	g := newGate(t, store.NewMemory())
	fired := make(chan struct{})

	g.ScheduleAuthPrompt(10*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("prompt did not fire")
	}
	if g.PromptPending() {
		t.Error("prompt should no longer be pending")
	}
}

func TestScheduledPromptCancelledByAuthentication(t *testing.T) {
	g := newGate(t, store.NewMemory())
	fired := make(chan struct{}, 1)

	g.ScheduleAuthPrompt(50*time.Millisecond, func() { fired <- struct{}{} })
	if err := g.OnAuthenticated(context.Background()); err != nil {
		t.Fatalf("OnAuthenticated failed: %v", err)
	}

	select {
	case <-fired:
		t.Fatal("prompt fired after authentication")
	case <-time.After(150 * time.Millisecond):
	}
	if g.CancelAuthPrompt() {
		t.Error("nothing should be pending")
	}
}
