package store

import (
	"context"
	"path/filepath"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "state", "session.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := s.Get(ctx, KeyAuthToken); err != nil || ok {
				t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
			}

			if err := s.Set(ctx, KeyAuthToken, "tok-1"); err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			if err := s.Set(ctx, KeyAuthToken, "tok-2"); err != nil {
				t.Fatalf("Set overwrite failed: %v", err)
			}

			v, ok, err := s.Get(ctx, KeyAuthToken)
			if err != nil || !ok || v != "tok-2" {
				t.Fatalf("Expected tok-2, got %q ok=%v err=%v", v, ok, err)
			}
		})
	}
}

func TestStoreRemoveMany(t *testing.T) {
	ctx := context.Background()
	for name, s := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, k := range []string{KeyAuthToken, KeyUserData, KeyAnonymousCount} {
				if err := s.Set(ctx, k, "x"); err != nil {
					t.Fatalf("Set %s failed: %v", k, err)
				}
			}

			if err := s.Remove(ctx, KeyAuthToken, KeyUserData, "never-set"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}

			if _, ok, _ := s.Get(ctx, KeyAuthToken); ok {
				t.Error("auth_token should be removed")
			}
			if _, ok, _ := s.Get(ctx, KeyUserData); ok {
				t.Error("user_data should be removed")
			}
			if _, ok, _ := s.Get(ctx, KeyAnonymousCount); !ok {
				t.Error("anonymous_message_count should survive")
			}
		})
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	if err := s.Set(ctx, KeyAnonymousCount, "3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	v, ok, err := reopened.Get(ctx, KeyAnonymousCount)
	if err != nil || !ok || v != "3" {
		t.Fatalf("Expected 3 after reopen, got %q ok=%v err=%v", v, ok, err)
	}
}
