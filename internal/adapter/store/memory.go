// Package store provides the session and profile storage backends: an
// in-memory store for development and tests, and a SQLite store for
// single-node durable deployments.
package store

import (
	"context"
	"sync"
	"time"

	"caregate/internal/domain"
)

// MemoryStore is an in-process implementation of domain.SessionStore and
// domain.ProfileStore. All reads return deep copies so callers can mutate
// freely between commits.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ConversationMemory
	seqs     map[string]int64
	logs     map[string][]domain.Message
	profiles map[string]*domain.UserProfile
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*domain.ConversationMemory),
		seqs:     make(map[string]int64),
		logs:     make(map[string][]domain.Message),
		profiles: make(map[string]*domain.UserProfile),
	}
}

func sessionKey(userID, sessionID string) string {
	return userID + "\x00" + sessionID
}

// Get implements domain.SessionStore.
func (s *MemoryStore) Get(ctx context.Context, userID, sessionID string) (*domain.ConversationMemory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	mem, ok := s.sessions[sessionKey(userID, sessionID)]
	if !ok {
		return nil, domain.NewDomainError("MemoryStore.Get", domain.ErrSessionNotFound, sessionID)
	}
	return cloneMemory(mem), nil
}

// Upsert implements domain.SessionStore.
func (s *MemoryStore) Upsert(ctx context.Context, mem *domain.ConversationMemory) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionKey(mem.UserID, mem.SessionID)] = cloneMemory(mem)
	return nil
}

// AppendMessage implements domain.SessionStore. The full message log is
// retained separately from the bounded history snapshot inside the record.
func (s *MemoryStore) AppendMessage(ctx context.Context, userID, sessionID string, msg domain.Message) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(userID, sessionID)
	s.seqs[key]++
	msg.Seq = s.seqs[key]
	s.logs[key] = append(s.logs[key], msg)
	return msg.Seq, nil
}

// Messages returns the full append log for a session, in sequence order.
func (s *MemoryStore) Messages(ctx context.Context, userID, sessionID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.logs[sessionKey(userID, sessionID)]...), nil
}

// Delete implements domain.SessionStore.
func (s *MemoryStore) Delete(ctx context.Context, userID, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sessionKey(userID, sessionID)
	if _, ok := s.sessions[key]; !ok {
		return domain.NewDomainError("MemoryStore.Delete", domain.ErrSessionNotFound, sessionID)
	}
	delete(s.sessions, key)
	delete(s.seqs, key)
	delete(s.logs, key)
	return nil
}

// SweepExpired implements domain.SessionStore.
func (s *MemoryStore) SweepExpired(ctx context.Context, maxIdle time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-maxIdle)
	removed := 0
	for key, mem := range s.sessions {
		if mem.LastActivityAt.Before(cutoff) {
			delete(s.sessions, key)
			delete(s.seqs, key)
			delete(s.logs, key)
			removed++
		}
	}
	return removed, nil
}

// GetProfile implements domain.ProfileStore.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, domain.NewDomainError("MemoryStore.GetProfile", domain.ErrNotFound, userID)
	}
	cp := profile.Clone()
	return &cp, nil
}

// UpsertProfile implements domain.ProfileStore.
func (s *MemoryStore) UpsertProfile(ctx context.Context, profile *domain.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := profile.Clone()
	s.profiles[profile.UserID] = &cp
	return nil
}

// cloneMemory deep-copies a session record.
func cloneMemory(mem *domain.ConversationMemory) *domain.ConversationMemory {
	out := *mem
	out.AgentHistory = append([]domain.AgentTransition(nil), mem.AgentHistory...)
	out.History = append([]domain.Message(nil), mem.History...)
	out.HealthTopics = append([]string(nil), mem.HealthTopics...)
	out.Alerts = make([]domain.Alert, len(mem.Alerts))
	for i, a := range mem.Alerts {
		a.NotifyTargets = append([]domain.NotifyTarget(nil), a.NotifyTargets...)
		out.Alerts[i] = a
	}
	out.HealthPatterns = make(map[string]domain.HealthPattern, len(mem.HealthPatterns))
	for k, v := range mem.HealthPatterns {
		out.HealthPatterns[k] = v
	}
	return &out
}

var (
	_ domain.SessionStore = (*MemoryStore)(nil)
	_ domain.ProfileStore = (*MemoryStore)(nil)
)
