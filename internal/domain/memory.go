package domain

import (
	"strings"
	"time"
)

// Role constants for message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// AnonymousPrefix marks guest identities. Sessions of anonymous users are
// eagerly deletable; authenticated-user sessions are retained until expiry
// or an explicit data-deletion request.
const AnonymousPrefix = "anon-"

// IsAnonymousUser reports whether userID denotes a guest identity.
func IsAnonymousUser(userID string) bool {
	return strings.HasPrefix(userID, AnonymousPrefix)
}

// Message is a single conversation turn.
type Message struct {
	ID        string    `json:"id"`  // ULID
	Seq       int64     `json:"seq"` // per-session arrival order, assigned by the store
	Role      string    `json:"role"`
	AgentID   string    `json:"agent_id,omitempty"` // assistant messages only
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionState is the lifecycle state of a conversation.
// Transitions are forward-only except Active<->Escalated.
type SessionState string

const (
	SessionNew       SessionState = "new"
	SessionActive    SessionState = "active"
	SessionEscalated SessionState = "escalated"
	SessionConcluded SessionState = "concluded"
)

// Trend classifies how a recurring pattern is developing.
type Trend string

const (
	TrendUnknown   Trend = "unknown"
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// HealthPattern is a recurring health topic detected across turns of one
// session. Keyed by (PatternType, Description); upserted, never deleted
// within the session lifetime.
type HealthPattern struct {
	PatternType      string    `json:"pattern_type"`
	Description      string    `json:"description"`
	FirstMentionedAt time.Time `json:"first_mentioned_at"`
	LastMentionedAt  time.Time `json:"last_mentioned_at"`
	Frequency        int       `json:"frequency"`
	SeverityTrend    Trend     `json:"severity_trend"`
	DetectingAgentID string    `json:"detecting_agent_id,omitempty"`
}

// PatternKey builds the map key for a health pattern.
func PatternKey(patternType, description string) string {
	return patternType + "|" + description
}

// Urgency grades how pressing a response or alert is.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// NotifyTarget names a party that should be informed about an alert.
type NotifyTarget string

const (
	NotifyEmergencyServices  NotifyTarget = "emergency_services"
	NotifyGuardian           NotifyTarget = "guardian"
	NotifyHealthcareProvider NotifyTarget = "healthcare_provider"
	NotifySocialServices     NotifyTarget = "social_services"
)

// Alert signals that a human or professional notification is warranted.
// Append-only inside ConversationMemory; never mutated after creation.
type Alert struct {
	ID                string         `json:"id"` // UUID
	Type              string         `json:"type"`
	Urgency           Urgency        `json:"urgency"`
	Reason            string         `json:"reason"`
	InputSummary      string         `json:"input_summary"` // truncated, privacy-bounded
	RecommendedAction string         `json:"recommended_action"`
	NotifyTargets     []NotifyTarget `json:"notify_targets,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// AgentTransition records a change of active agent within a session.
type AgentTransition struct {
	AgentID string    `json:"agent_id"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
}

// ConversationMemory is the per-(user, session) conversation state.
// LastActivityAt increases monotonically. The Context Manager is the
// sole writer.
type ConversationMemory struct {
	SessionID      string                   `json:"session_id"`
	UserID         string                   `json:"user_id"`
	StartedAt      time.Time                `json:"started_at"`
	LastActivityAt time.Time                `json:"last_activity_at"`
	State          SessionState             `json:"state"`
	ActiveAgentID  string                   `json:"active_agent_id,omitempty"`
	AgentHistory   []AgentTransition        `json:"agent_history,omitempty"`
	History        []Message                `json:"history"`                 // bounded to last N, oldest evicted
	HealthTopics   []string                 `json:"health_topics,omitempty"` // bounded, oldest evicted
	HealthPatterns map[string]HealthPattern `json:"health_patterns,omitempty"`
	Alerts         []Alert                  `json:"alerts,omitempty"`
}

// NewConversationMemory creates a fresh session record.
func NewConversationMemory(userID, sessionID string) *ConversationMemory {
	now := time.Now().UTC()
	return &ConversationMemory{
		SessionID:      sessionID,
		UserID:         userID,
		StartedAt:      now,
		LastActivityAt: now,
		State:          SessionNew,
		HealthPatterns: make(map[string]HealthPattern),
	}
}

// Touch advances LastActivityAt, keeping it monotonic.
func (m *ConversationMemory) Touch() {
	if now := time.Now().UTC(); now.After(m.LastActivityAt) {
		m.LastActivityAt = now
	}
}

// AppendHistory appends msg and evicts the oldest entries beyond maxLen.
func (m *ConversationMemory) AppendHistory(msg Message, maxLen int) {
	m.History = append(m.History, msg)
	if maxLen > 0 && len(m.History) > maxLen {
		m.History = m.History[len(m.History)-maxLen:]
	}
}

// AddHealthTopic records a topic, deduplicated, evicting the oldest
// beyond maxLen.
func (m *ConversationMemory) AddHealthTopic(topic string, maxLen int) {
	for _, t := range m.HealthTopics {
		if t == topic {
			return
		}
	}
	m.HealthTopics = append(m.HealthTopics, topic)
	if maxLen > 0 && len(m.HealthTopics) > maxLen {
		m.HealthTopics = m.HealthTopics[len(m.HealthTopics)-maxLen:]
	}
}

// UpsertPattern merges a detection into HealthPatterns: first detection
// inserts, repeats bump Frequency and LastMentionedAt. A known trend
// always replaces TrendUnknown.
func (m *ConversationMemory) UpsertPattern(p HealthPattern) {
	key := PatternKey(p.PatternType, p.Description)
	if m.HealthPatterns == nil {
		m.HealthPatterns = make(map[string]HealthPattern)
	}
	existing, ok := m.HealthPatterns[key]
	if !ok {
		if p.Frequency == 0 {
			p.Frequency = 1
		}
		m.HealthPatterns[key] = p
		return
	}
	existing.Frequency++
	existing.LastMentionedAt = p.LastMentionedAt
	if p.SeverityTrend != TrendUnknown {
		existing.SeverityTrend = p.SeverityTrend
	}
	if existing.DetectingAgentID == "" {
		existing.DetectingAgentID = p.DetectingAgentID
	}
	m.HealthPatterns[key] = existing
}

// Escalate moves the session to Escalated. Concluded sessions stay
// concluded; state transitions are otherwise forward-only.
func (m *ConversationMemory) Escalate() {
	if m.State != SessionConcluded {
		m.State = SessionEscalated
	}
}

// Deescalate returns an escalated session to Active.
func (m *ConversationMemory) Deescalate() {
	if m.State == SessionEscalated {
		m.State = SessionActive
	}
}
