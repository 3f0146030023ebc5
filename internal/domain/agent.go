package domain

import "context"

// CapabilityTag classifies a problem area an agent can handle.
type CapabilityTag string

const (
	CapPhysicalHealth CapabilityTag = "physical_health"
	CapSymptomTriage  CapabilityTag = "symptom_triage"
	CapMedication     CapabilityTag = "medication"
	CapMentalHealth   CapabilityTag = "mental_health"
	CapStressSupport  CapabilityTag = "stress_support"
	CapEmergency      CapabilityTag = "emergency"
	CapCrisisResponse CapabilityTag = "crisis_response"
	CapWellness       CapabilityTag = "wellness"
	CapNutrition      CapabilityTag = "nutrition"
	CapExercise       CapabilityTag = "exercise"
	CapSleepHygiene   CapabilityTag = "sleep_hygiene"
)

// Personality styles an agent's responses. Routing never reads it.
type Personality string

const (
	PersonalityCalm        Personality = "calm"
	PersonalityWarm        Personality = "warm"
	PersonalityDirect      Personality = "direct"
	PersonalityEncouraging Personality = "encouraging"
)

// AgentDescriptor identifies a roster entry. Constructed at startup,
// never mutated.
type AgentDescriptor struct {
	ID              string          `json:"id"`
	Capabilities    []CapabilityTag `json:"capabilities"`
	Personality     Personality     `json:"personality"`
	PrimaryLanguage Language        `json:"primary_language"`
}

// HasCapability reports whether the descriptor carries the given tag.
func (d AgentDescriptor) HasCapability(tag CapabilityTag) bool {
	for _, c := range d.Capabilities {
		if c == tag {
			return true
		}
	}
	return false
}

// EvaluationResult is the per-agent output of routing evaluation.
// Created fresh per message; never persisted.
type EvaluationResult struct {
	AgentID             string          `json:"agent_id"`
	CanHandle           bool            `json:"can_handle"`
	Confidence          float64         `json:"confidence"` // always in [0,1]
	Reasons             []string        `json:"reasons"`
	MatchedCapabilities []CapabilityTag `json:"matched_capabilities,omitempty"`
}

// RoutingStrategy names how an orchestration decision was reached.
type RoutingStrategy string

const (
	StrategyConfidenceBased   RoutingStrategy = "confidence_based"
	StrategyEmergencyOverride RoutingStrategy = "emergency_override"
	StrategyMultiAgent        RoutingStrategy = "multi_agent"
	StrategyManualSelection   RoutingStrategy = "manual_selection"
)

// OrchestrationDecision records one routing outcome. It is returned to the
// caller and written into session metadata; never re-read except for logging.
type OrchestrationDecision struct {
	SelectedAgentID     string          `json:"selected_agent_id"`
	Strategy            RoutingStrategy `json:"strategy"`
	Confidence          float64         `json:"confidence"`
	AlternativeAgentIDs []string        `json:"alternative_agent_ids,omitempty"`
	Reasons             []string        `json:"reasons"`
	EmergencyOverride   bool            `json:"emergency_override"`
	MultiAgentNeeded    bool            `json:"multi_agent_needed"`
}

// AgentResponse is the generated reply plus response metadata.
type AgentResponse struct {
	AgentID          string   `json:"agent_id"`
	Content          string   `json:"content"`
	Confidence       float64  `json:"confidence"`
	Urgency          Urgency  `json:"urgency"`
	RequiresFollowup bool     `json:"requires_followup"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	Alert            *Alert   `json:"alert,omitempty"` // non-nil when professional notification is warranted
	UsedFallback     bool     `json:"used_fallback"`   // static fallback content, inference unavailable
}

// Agent is the capability contract every roster entry implements.
//
// Evaluate must be deterministic, side-effect-free and must not make
// external calls. Respond may call the inference collaborator but must
// degrade to a pre-authored fallback on failure rather than returning
// an inference error.
type Agent interface {
	Descriptor() AgentDescriptor
	Evaluate(text string, cctx *ConversationContext) EvaluationResult
	Respond(ctx context.Context, text string, cctx *ConversationContext) (*AgentResponse, error)
	SystemPrompt(cctx *ConversationContext) string
}

// RouteResult is the full payload returned to the calling transport layer.
type RouteResult struct {
	Content          string                `json:"content"`
	AgentID          string                `json:"agent_id"`
	Confidence       float64               `json:"confidence"`
	Urgency          Urgency               `json:"urgency"`
	SuggestedActions []string              `json:"suggested_actions,omitempty"`
	RequiresFollowup bool                  `json:"requires_followup"`
	AlertRaised      bool                  `json:"alert_raised"`
	Orchestration    OrchestrationDecision `json:"orchestration"`
}
