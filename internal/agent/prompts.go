package agent

import (
	"strings"

	"caregate/internal/domain"
)

// audienceInstructions renders the prompt fragment shared by all agents:
// how to address the user given their detected age group, language, and
// the urgency of the current turn.
func audienceInstructions(cctx *domain.ConversationContext, urgency domain.Urgency) string {
	var sb strings.Builder

	switch cctx.Profile.AgeGroup {
	case domain.AgeChild:
		sb.WriteString("The conversation concerns a young child; use very simple words and address the caretaker where appropriate.\n")
	case domain.AgeTeen:
		sb.WriteString("The user is a teenager; be supportive and plain-spoken, never condescending.\n")
	case domain.AgeElderly:
		sb.WriteString("The user is elderly; be respectful, unhurried, and avoid jargon.\n")
	}

	switch cctx.Language {
	case domain.LanguageVI:
		sb.WriteString("Respond in Vietnamese.\n")
	case domain.LanguageAuto:
		sb.WriteString("The user mixes English and Vietnamese; mirror their language choice sentence by sentence.\n")
	default:
		sb.WriteString("Respond in English.\n")
	}

	if cctx.Cultural.Formality == domain.StyleFormal {
		sb.WriteString("Keep a polite, formal register.\n")
	}
	if cctx.Cultural.FamilyContext {
		sb.WriteString("Family members are part of this situation; acknowledge them.\n")
	}

	switch urgency {
	case domain.UrgencyCritical:
		sb.WriteString("This is an emergency. Be direct, give immediate concrete steps first, and keep sentences short.\n")
	case domain.UrgencyHigh:
		sb.WriteString("The situation is urgent. Lead with the most important guidance.\n")
	}

	return sb.String()
}

// historyDigest summarizes the last few turns for prompt grounding.
func historyDigest(cctx *domain.ConversationContext, maxTurns int) string {
	if len(cctx.History) == 0 {
		return ""
	}
	start := len(cctx.History) - maxTurns
	if start < 0 {
		start = 0
	}
	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, msg := range cctx.History[start:] {
		sb.WriteString("- ")
		sb.WriteString(msg.Role)
		sb.WriteString(": ")
		sb.WriteString(truncateSummary(msg.Content, 160))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// conditionsDigest lists known health conditions for prompt grounding.
func conditionsDigest(cctx *domain.ConversationContext) string {
	if len(cctx.Profile.HealthConditions) == 0 {
		return ""
	}
	return "Known health conditions: " + strings.Join(cctx.Profile.HealthConditions, ", ") + ".\n"
}
