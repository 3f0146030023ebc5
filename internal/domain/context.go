package domain

// CulturalContext is the per-turn projection of cultural and tone markers
// derived from the current message plus the stored profile. It is cheap to
// compute and message-dependent, so it is recomputed every turn rather
// than cached.
type CulturalContext struct {
	LanguageMix   bool               `json:"language_mix"` // both scripts present in one message
	Formality     CommunicationStyle `json:"formality"`
	FamilyContext bool               `json:"family_context"`
	WorkStress    bool               `json:"work_stress"`
}

// ConversationContext is the immutable snapshot handed to the orchestrator
// and agents for a single message. Agents must never mutate it; all fields
// are copies of the live profile and memory.
type ConversationContext struct {
	UserID    string
	SessionID string
	Profile   UserProfile
	History   []Message // last N turns, oldest first
	Cultural  CulturalContext
	Language  Language // effective language for this turn
}

// LastAgentID returns the agent that produced the most recent assistant
// message, or "" for a fresh session.
func (c *ConversationContext) LastAgentID() string {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleAssistant {
			return c.History[i].AgentID
		}
	}
	return ""
}
