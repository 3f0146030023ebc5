// Package usecase contains the routing engine and the conversation
// context manager: the decision logic between the transport layer and
// the agents, stores, and inference collaborator.
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"caregate/internal/domain"
	"caregate/internal/usecase/detect"
)

// SessionKey normalizes a (user, session) pair into the single key used
// for locking and logging.
func SessionKey(userID, sessionID string) string {
	return userID + ":" + sessionID
}

// ContextManagerConfig bounds the session lifecycle.
type ContextManagerConfig struct {
	SessionTimeout time.Duration // inactivity horizon after which a session is replaced
	HistoryLimit   int           // stored messages per session
	TopicLimit     int           // stored health topics per session
	ContextWindow  int           // last-N history handed to agents
	StoreTimeout   time.Duration // bound on individual store operations
}

// ContextManager owns the lifecycle of UserProfile and ConversationMemory
// and is the sole writer of both. Callers must serialize per session key
// (see SessionLocker).
type ContextManager struct {
	store    domain.SessionStore
	profiles domain.ProfileStore
	bus      domain.EventBus
	cfg      ContextManagerConfig
	logger   *slog.Logger
}

// NewContextManager wires a context manager. bus may be nil.
func NewContextManager(store domain.SessionStore, profiles domain.ProfileStore, bus domain.EventBus, cfg ContextManagerConfig, logger *slog.Logger) *ContextManager {
	return &ContextManager{store: store, profiles: profiles, bus: bus, cfg: cfg, logger: logger}
}

// Turn is the mutable working state of one message exchange. It stays
// purely in memory until CommitExchange; abandoning a Turn writes nothing.
type Turn struct {
	Context *domain.ConversationContext
	Memory  *domain.ConversationMemory
	Profile *domain.UserProfile
	userMsg domain.Message
}

// CreateContext loads or creates the profile and session memory, applies
// attribute detection, appends the inbound message, detects health
// patterns, and returns an immutable context snapshot for the agents.
func (m *ContextManager) CreateContext(ctx context.Context, userID, sessionID, text string) (*Turn, error) {
	profile := m.loadProfile(ctx, userID)

	upd := detect.Attributes(text)
	profile.Merge(upd)

	mem := m.loadMemory(ctx, userID, sessionID)

	userMsg := domain.Message{
		ID:        ulid.Make().String(),
		Role:      domain.RoleUser,
		Content:   text,
		Timestamp: time.Now().UTC(),
	}
	mem.AppendHistory(userMsg, m.cfg.HistoryLimit)
	mem.Touch()

	now := time.Now().UTC()
	trend := detect.TrendOf(text)
	for _, hit := range detect.Topics(text) {
		mem.AddHealthTopic(hit.PatternType, m.cfg.TopicLimit)
		mem.UpsertPattern(domain.HealthPattern{
			PatternType:      hit.PatternType,
			Description:      hit.Term,
			FirstMentionedAt: now,
			LastMentionedAt:  now,
			SeverityTrend:    trend,
		})
	}

	language := upd.Language
	if language == "" {
		language = profile.LanguagePreference
	}

	snapshot := &domain.ConversationContext{
		UserID:    userID,
		SessionID: sessionID,
		Profile:   profile.Clone(),
		History:   lastN(mem.History, m.cfg.ContextWindow),
		Cultural:  detect.Cultural(text, profile),
		Language:  language,
	}

	return &Turn{Context: snapshot, Memory: mem, Profile: profile, userMsg: userMsg}, nil
}

// CommitExchange appends the assistant message, records agent transitions
// and alerts, applies escalation, and persists the whole turn. Persistence
// is the single commit point: before this call nothing has been written.
// A store failure is returned so the caller can log the data-loss risk,
// but the in-memory state remains coherent for the response already held.
func (m *ContextManager) CommitExchange(ctx context.Context, turn *Turn, decision *domain.OrchestrationDecision, resp *domain.AgentResponse) error {
	mem := turn.Memory

	assistantMsg := domain.Message{
		ID:        ulid.Make().String(),
		Role:      domain.RoleAssistant,
		AgentID:   resp.AgentID,
		Content:   resp.Content,
		Timestamp: time.Now().UTC(),
	}
	mem.AppendHistory(assistantMsg, m.cfg.HistoryLimit)

	// Agent transition bookkeeping.
	if mem.ActiveAgentID != resp.AgentID {
		reason := string(decision.Strategy)
		if len(decision.Reasons) > 0 {
			reason = decision.Reasons[0]
		}
		mem.AgentHistory = append(mem.AgentHistory, domain.AgentTransition{
			AgentID: resp.AgentID,
			Reason:  reason,
			At:      time.Now().UTC(),
		})
		if mem.ActiveAgentID != "" {
			m.publish(ctx, domain.EventAgentChanged, mem, map[string]string{
				"from": mem.ActiveAgentID,
				"to":   resp.AgentID,
			})
		}
		mem.ActiveAgentID = resp.AgentID
	}

	if mem.State == domain.SessionNew {
		mem.State = domain.SessionActive
	}

	// Alerts are append-only; High and Critical urgency escalates the session.
	if resp.Alert != nil {
		mem.Alerts = append(mem.Alerts, *resp.Alert)
		m.publish(ctx, domain.EventAlertRaised, mem, resp.Alert)
		if resp.Alert.Urgency == domain.UrgencyHigh || resp.Alert.Urgency == domain.UrgencyCritical {
			mem.Escalate()
			m.publish(ctx, domain.EventSessionEscalated, mem, map[string]string{
				"alert_id": resp.Alert.ID,
				"urgency":  string(resp.Alert.Urgency),
			})
		}
	}

	// Patterns detected this turn are attributed to the responding agent.
	for key, p := range mem.HealthPatterns {
		if p.DetectingAgentID == "" {
			p.DetectingAgentID = resp.AgentID
			mem.HealthPatterns[key] = p
		}
	}

	mem.Touch()
	return m.persistTurn(ctx, turn, assistantMsg)
}

func (m *ContextManager) persistTurn(ctx context.Context, turn *Turn, assistantMsg domain.Message) error {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()

	mem := turn.Memory

	seq, err := m.store.AppendMessage(sctx, mem.UserID, mem.SessionID, turn.userMsg)
	if err != nil {
		return domain.WrapOp("ContextManager.persistTurn", err)
	}
	setSeq(mem.History, turn.userMsg.ID, seq)

	seq, err = m.store.AppendMessage(sctx, mem.UserID, mem.SessionID, assistantMsg)
	if err != nil {
		return domain.WrapOp("ContextManager.persistTurn", err)
	}
	setSeq(mem.History, assistantMsg.ID, seq)

	if err := m.store.Upsert(sctx, mem); err != nil {
		return domain.WrapOp("ContextManager.persistTurn", err)
	}
	if err := m.profiles.UpsertProfile(sctx, turn.Profile); err != nil {
		return domain.WrapOp("ContextManager.persistTurn", err)
	}
	return nil
}

// DeleteSession erases one session. Anonymous-user sessions are eagerly
// deletable; authenticated-user sessions require an explicit data-deletion
// request (the expiry sweep is the only other removal path).
func (m *ContextManager) DeleteSession(ctx context.Context, userID, sessionID string, explicit bool) error {
	if !domain.IsAnonymousUser(userID) && !explicit {
		return domain.NewDomainError("ContextManager.DeleteSession", domain.ErrPermissionDenied,
			"authenticated sessions are removed only by expiry or explicit data-deletion request")
	}
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()
	return m.store.Delete(sctx, userID, sessionID)
}

// SweepExpired removes sessions idle past the configured timeout.
func (m *ContextManager) SweepExpired(ctx context.Context) (int, error) {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()
	return m.store.SweepExpired(sctx, m.cfg.SessionTimeout)
}

// SessionSummary is a read-only overview of one conversation.
type SessionSummary struct {
	SessionID     string                 `json:"session_id"`
	UserID        string                 `json:"user_id"`
	State         domain.SessionState    `json:"state"`
	ActiveAgentID string                 `json:"active_agent_id,omitempty"`
	StartedAt     time.Time              `json:"started_at"`
	LastActivity  time.Time              `json:"last_activity_at"`
	MessageCount  int                    `json:"message_count"`
	HealthTopics  []string               `json:"health_topics,omitempty"`
	Patterns      []domain.HealthPattern `json:"patterns,omitempty"`
	AlertCount    int                    `json:"alert_count"`
}

// Summary loads a session and computes its overview.
func (m *ContextManager) Summary(ctx context.Context, userID, sessionID string) (*SessionSummary, error) {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()

	mem, err := m.store.Get(sctx, userID, sessionID)
	if err != nil {
		return nil, domain.WrapOp("ContextManager.Summary", err)
	}
	if m.expired(mem) {
		return nil, domain.NewDomainError("ContextManager.Summary", domain.ErrSessionExpired, SessionKey(userID, sessionID))
	}

	patterns := make([]domain.HealthPattern, 0, len(mem.HealthPatterns))
	for _, p := range mem.HealthPatterns {
		patterns = append(patterns, p)
	}
	return &SessionSummary{
		SessionID:     mem.SessionID,
		UserID:        mem.UserID,
		State:         mem.State,
		ActiveAgentID: mem.ActiveAgentID,
		StartedAt:     mem.StartedAt,
		LastActivity:  mem.LastActivityAt,
		MessageCount:  len(mem.History),
		HealthTopics:  mem.HealthTopics,
		Patterns:      patterns,
		AlertCount:    len(mem.Alerts),
	}, nil
}

func (m *ContextManager) loadProfile(ctx context.Context, userID string) *domain.UserProfile {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()

	profile, err := m.profiles.GetProfile(sctx, userID)
	switch {
	case err == nil:
		return profile
	case errors.Is(err, domain.ErrNotFound):
		return domain.NewUserProfile(userID)
	default:
		// Degraded mode: route with a fresh profile, but say so loudly.
		m.logger.Error("profile load failed, continuing with empty profile (data-loss risk)",
			"user_id", userID, "error", err)
		return domain.NewUserProfile(userID)
	}
}

func (m *ContextManager) loadMemory(ctx context.Context, userID, sessionID string) *domain.ConversationMemory {
	sctx, cancel := context.WithTimeout(ctx, m.storeTimeout())
	defer cancel()

	mem, err := m.store.Get(sctx, userID, sessionID)
	switch {
	case err == nil:
		if m.expired(mem) {
			m.logger.Info("session expired, starting fresh",
				"session", SessionKey(userID, sessionID),
				"idle_since", mem.LastActivityAt)
			return domain.NewConversationMemory(userID, sessionID)
		}
		return mem
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrSessionExpired):
		return domain.NewConversationMemory(userID, sessionID)
	default:
		m.logger.Error("session load failed, continuing with empty memory (data-loss risk)",
			"session", SessionKey(userID, sessionID), "error", err)
		return domain.NewConversationMemory(userID, sessionID)
	}
}

func (m *ContextManager) expired(mem *domain.ConversationMemory) bool {
	return m.cfg.SessionTimeout > 0 &&
		time.Since(mem.LastActivityAt) > m.cfg.SessionTimeout
}

func (m *ContextManager) storeTimeout() time.Duration {
	if m.cfg.StoreTimeout > 0 {
		return m.cfg.StoreTimeout
	}
	return 5 * time.Second
}

func (m *ContextManager) publish(ctx context.Context, eventType domain.EventType, mem *domain.ConversationMemory, payload any) {
	if m.bus == nil {
		return
	}
	var raw json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			raw = data
		}
	}
	m.bus.Publish(ctx, domain.Event{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		UserID:    mem.UserID,
		SessionID: mem.SessionID,
		Payload:   raw,
	})
}

func lastN(msgs []domain.Message, n int) []domain.Message {
	if n <= 0 || len(msgs) <= n {
		return append([]domain.Message(nil), msgs...)
	}
	return append([]domain.Message(nil), msgs[len(msgs)-n:]...)
}

func setSeq(history []domain.Message, id string, seq int64) {
	for i := range history {
		if history[i].ID == id {
			history[i].Seq = seq
			return
		}
	}
}

// joinReasons renders decision reasons for transition records and logs.
func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
