package detect

import "caregate/internal/domain"

// Cultural derives the per-turn cultural projection from the current
// message and the stored profile. Recomputed every turn; never cached.
func Cultural(text string, profile *domain.UserProfile) domain.CulturalContext {
	normalized := Normalize(text)

	formality := styleOf(normalized)
	if formality == domain.StyleUnknown {
		formality = profile.CommunicationStyle
	}

	// Mixed means Vietnamese script appears but the message does not read
	// as Vietnamese overall. Unlike the ratio-based LanguageOf this also
	// catches short messages.
	return domain.CulturalContext{
		LanguageMix:   HasVietnameseScript(text) && LanguageOf(text) != domain.LanguageVI,
		Formality:     formality,
		FamilyContext: matchFirst(normalized, familyTerms) != "",
		WorkStress:    matchFirst(normalized, workStressTerms) != "",
	}
}
