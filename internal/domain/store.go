package domain

import (
	"context"
	"time"
)

// SessionStore is the durable keyed storage contract the context manager
// requires. Implementations must provide read-after-write consistency for
// a single (userID, sessionID) key.
type SessionStore interface {
	// Get returns the memory for the key, or ErrSessionNotFound when absent
	// or expired past the store's sweep horizon.
	Get(ctx context.Context, userID, sessionID string) (*ConversationMemory, error)

	// Upsert writes the full memory record (metadata, patterns, alerts,
	// bounded history snapshot).
	Upsert(ctx context.Context, mem *ConversationMemory) error

	// AppendMessage durably appends one message, atomically assigning the
	// next per-session sequence number, which it returns.
	AppendMessage(ctx context.Context, userID, sessionID string, msg Message) (int64, error)

	// Delete removes the session unconditionally. Callers enforce the
	// anonymous-versus-authenticated deletion policy.
	Delete(ctx context.Context, userID, sessionID string) error

	// SweepExpired deletes sessions idle longer than maxIdle and returns
	// the count removed.
	SweepExpired(ctx context.Context, maxIdle time.Duration) (int, error)
}

// ProfileStore persists long-lived user profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error) // ErrNotFound when absent
	UpsertProfile(ctx context.Context, profile *UserProfile) error
}
