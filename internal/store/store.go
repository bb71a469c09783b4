// Package store provides persistence for client-side session state.
package store

import (
	"context"
)

// Keys persisted by the session managers.
const (
	KeyAuthToken      = "auth_token"
	KeyUserData       = "user_data"
	KeyAnonymousCount = "anonymous_message_count"
)

// Store is a small key-value store for state that must survive restarts.
type Store interface {
	// Get returns the value for key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set creates or replaces the value for key.
	Set(ctx context.Context, key, value string) error

	// Remove deletes the given keys. Missing keys are not an error.
	Remove(ctx context.Context, keys ...string) error

	// Close releases underlying resources.
	Close() error
}
