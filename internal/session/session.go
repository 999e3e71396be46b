// Package session keeps in-progress intake conversations between HTTP turns.
package session

import (
	"context"
	"errors"
	"time"

	"basegraph.app/intake/internal/dialogue"
)

var (
	// ErrNotFound is returned for unknown or expired sessions.
	ErrNotFound = errors.New("session not found")
	// ErrBusy is returned when another turn holds the session lock.
	ErrBusy = errors.New("session busy")
)

// Store persists dialogue state keyed by session id. Entries expire after ttl.
type Store interface {
	Get(ctx context.Context, id string) (dialogue.State, error)
	Save(ctx context.Context, id string, st dialogue.State, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Locker serializes turns on one session. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, id string) (func(), error)
}
