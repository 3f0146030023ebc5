package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/domain"
)

func TestMemoryStoreSessionRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	mem := domain.NewConversationMemory("u1", "s1")
	mem.ActiveAgentID = "wellness_coach"
	mem.AddHealthTopic("sleep", 20)
	require.NoError(t, s.Upsert(ctx, mem))

	got, err := s.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "wellness_coach", got.ActiveAgentID)
	assert.Equal(t, []string{"sleep"}, got.HealthTopics)

	_, err = s.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	mem := domain.NewConversationMemory("u1", "s1")
	mem.AddHealthTopic("sleep", 20)
	require.NoError(t, s.Upsert(ctx, mem))

	got, _ := s.Get(ctx, "u1", "s1")
	got.HealthTopics[0] = "tampered"
	got.HealthPatterns["x"] = domain.HealthPattern{}

	again, _ := s.Get(ctx, "u1", "s1")
	assert.Equal(t, []string{"sleep"}, again.HealthTopics)
	assert.Empty(t, again.HealthPatterns)
}

func TestMemoryStoreAppendMessageSequencing(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		seq, err := s.AppendMessage(ctx, "u1", "s1", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"})
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}

	// A different session has its own sequence.
	seq, err := s.AppendMessage(ctx, "u1", "s2", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	msgs, err := s.Messages(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(1), msgs[0].Seq)
	assert.Equal(t, int64(3), msgs[2].Seq)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, domain.NewConversationMemory("u1", "s1")))
	_, err := s.AppendMessage(ctx, "u1", "s1", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "u1", "s1"))

	_, err = s.Get(ctx, "u1", "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	msgs, err := s.Messages(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	// Sequence restarts after deletion.
	seq, err := s.AppendMessage(ctx, "u1", "s1", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	assert.ErrorIs(t, s.Delete(ctx, "u1", "missing"), domain.ErrSessionNotFound)
}

func TestMemoryStoreSweepExpired(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	stale := domain.NewConversationMemory("u1", "old")
	stale.LastActivityAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.Upsert(ctx, stale))
	require.NoError(t, s.Upsert(ctx, domain.NewConversationMemory("u1", "new")))

	removed, err := s.SweepExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, "u1", "old")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = s.Get(ctx, "u1", "new")
	assert.NoError(t, err)
}

func TestMemoryStoreProfiles(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := domain.NewUserProfile("u1")
	p.AgeGroup = domain.AgeTeen
	p.HealthConditions = []string{"asthma"}
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgeTeen, got.AgeGroup)

	// Mutating the returned copy must not affect the stored profile.
	got.HealthConditions[0] = "tampered"
	again, _ := s.GetProfile(ctx, "u1")
	assert.Equal(t, []string{"asthma"}, again.HealthConditions)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendMessage(ctx, "u1", "s1", domain.Message{ID: "m", Role: domain.RoleUser, Content: "hi"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	msgs, err := s.Messages(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 50)

	seen := make(map[int64]bool, len(msgs))
	for _, msg := range msgs {
		assert.False(t, seen[msg.Seq], "duplicate seq %d", msg.Seq)
		seen[msg.Seq] = true
	}
}

func TestMemoryStoreContextCancellation(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, "u1", "s1")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.Upsert(ctx, domain.NewConversationMemory("u1", "s1")), context.Canceled)
}
