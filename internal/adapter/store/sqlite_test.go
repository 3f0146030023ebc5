package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/domain"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteSessionRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	mem := domain.NewConversationMemory("u1", "s1")
	mem.ActiveAgentID = "vitals_monitor"
	mem.AddHealthTopic("pain", 20)
	mem.UpsertPattern(domain.HealthPattern{
		PatternType:      "pain",
		Description:      "headache",
		FirstMentionedAt: time.Now().UTC(),
		LastMentionedAt:  time.Now().UTC(),
		SeverityTrend:    domain.TrendWorsening,
	})
	require.NoError(t, s.Upsert(ctx, mem))

	got, err := s.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "vitals_monitor", got.ActiveAgentID)
	assert.Equal(t, []string{"pain"}, got.HealthTopics)

	pattern, ok := got.HealthPatterns[domain.PatternKey("pain", "headache")]
	require.True(t, ok)
	assert.Equal(t, domain.TrendWorsening, pattern.SeverityTrend)

	_, err = s.Get(ctx, "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSQLiteUpsertOverwrites(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	mem := domain.NewConversationMemory("u1", "s1")
	require.NoError(t, s.Upsert(ctx, mem))

	mem.ActiveAgentID = "safety_guardian"
	mem.Escalate()
	require.NoError(t, s.Upsert(ctx, mem))

	got, err := s.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "safety_guardian", got.ActiveAgentID)
	assert.Equal(t, domain.SessionEscalated, got.State)
}

func TestSQLiteAppendMessageSequencing(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	msg := domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hello", Timestamp: time.Now().UTC()}
	for i := 1; i <= 3; i++ {
		seq, err := s.AppendMessage(ctx, "u1", "s1", msg)
		require.NoError(t, err)
		assert.Equal(t, int64(i), seq)
	}

	seq, err := s.AppendMessage(ctx, "u2", "s1", msg)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	msgs, err := s.Messages(ctx, "u1", "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, int64(1), msgs[0].Seq)
	assert.Equal(t, int64(3), msgs[2].Seq)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSQLiteDeleteRemovesMessages(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, domain.NewConversationMemory("u1", "s1")))
	_, err := s.AppendMessage(ctx, "u1", "s1", domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi", Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "u1", "s1"))

	_, err = s.Get(ctx, "u1", "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	msgs, err := s.Messages(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, s.Delete(ctx, "u1", "missing"), domain.ErrSessionNotFound)
}

func TestSQLiteSweepExpired(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	stale := domain.NewConversationMemory("u1", "old")
	stale.LastActivityAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, s.Upsert(ctx, stale))
	_, err := s.AppendMessage(ctx, "u1", "old", domain.Message{ID: "m1", Role: domain.RoleUser, Content: "hi", Timestamp: time.Now().UTC()})
	require.NoError(t, err)

	require.NoError(t, s.Upsert(ctx, domain.NewConversationMemory("u1", "new")))

	removed, err := s.SweepExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = s.Get(ctx, "u1", "old")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	msgs, err := s.Messages(ctx, "u1", "old")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	_, err = s.Get(ctx, "u1", "new")
	assert.NoError(t, err)
}

func TestSQLiteProfileRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	p := domain.NewUserProfile("u1")
	p.AgeGroup = domain.AgeElderly
	p.AgeExplicit = true
	p.HealthConditions = []string{"diabetes", "hypertension"}
	p.LanguagePreference = domain.LanguageVI
	require.NoError(t, s.UpsertProfile(ctx, p))

	got, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.AgeElderly, got.AgeGroup)
	assert.True(t, got.AgeExplicit)
	assert.Equal(t, []string{"diabetes", "hypertension"}, got.HealthConditions)
	assert.Equal(t, domain.LanguageVI, got.LanguagePreference)

	p.HealthConditions = append(p.HealthConditions, "asthma")
	require.NoError(t, s.UpsertProfile(ctx, p))
	got, err = s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, got.HealthConditions, 3)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	mem := domain.NewConversationMemory("u1", "s1")
	mem.ActiveAgentID = "wellness_coach"
	require.NoError(t, s.Upsert(ctx, mem))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "wellness_coach", got.ActiveAgentID)
}
