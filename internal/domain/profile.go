package domain

import (
	"sort"
	"time"
)

// Language is a detected or preferred conversation language.
type Language string

const (
	LanguageAuto Language = "auto" // mixed-script input, serve bilingually
	LanguageEN   Language = "en"
	LanguageVI   Language = "vi"
)

// AgeGroup is a coarse age bucket inferred from vocabulary or an
// explicit age mention.
type AgeGroup string

const (
	AgeUnknown AgeGroup = ""
	AgeChild   AgeGroup = "child"
	AgeTeen    AgeGroup = "teen"
	AgeAdult   AgeGroup = "adult"
	AgeElderly AgeGroup = "elderly"
)

// CommunicationStyle captures how the user writes.
type CommunicationStyle string

const (
	StyleUnknown CommunicationStyle = ""
	StyleFormal  CommunicationStyle = "formal"
	StyleCasual  CommunicationStyle = "casual"
)

// UserProfile is the per-user long-lived record of detected attributes.
// HealthConditions only ever grows; single-valued fields may be
// overwritten by a stronger signal.
type UserProfile struct {
	UserID             string             `json:"user_id"`
	LanguagePreference Language           `json:"language_preference"`
	AgeGroup           AgeGroup           `json:"age_group,omitempty"`
	AgeExplicit        bool               `json:"age_explicit,omitempty"` // set when a numeric age fixed the group
	CulturalContext    map[string]any     `json:"cultural_context,omitempty"`
	HealthConditions   []string           `json:"health_conditions,omitempty"` // sorted, deduplicated
	CommunicationStyle CommunicationStyle `json:"communication_style,omitempty"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewUserProfile returns an empty profile for userID.
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:             userID,
		LanguagePreference: LanguageAuto,
		CulturalContext:    make(map[string]any),
		UpdatedAt:          time.Now().UTC(),
	}
}

// ProfileUpdate is the partial result of attribute detection on one message.
// Zero-valued fields mean "no signal this turn".
type ProfileUpdate struct {
	AgeGroup           AgeGroup
	AgeExplicit        bool // numeric age seen in text, overrides cluster inference
	Language           Language
	HealthConditions   []string
	CommunicationStyle CommunicationStyle
	Cultural           map[string]any
}

// Merge applies upd additively. Conditions are unioned (never removed),
// cultural keys are overlaid, and single-valued fields are replaced only
// when the update carries a signal at least as strong as what is stored.
func (p *UserProfile) Merge(upd ProfileUpdate) {
	if upd.AgeGroup != AgeUnknown {
		// Cluster inference never downgrades an explicitly stated age.
		if upd.AgeExplicit || !p.AgeExplicit {
			p.AgeGroup = upd.AgeGroup
			p.AgeExplicit = p.AgeExplicit || upd.AgeExplicit
		}
	}
	if upd.Language != "" {
		p.LanguagePreference = upd.Language
	}
	if upd.CommunicationStyle != StyleUnknown {
		p.CommunicationStyle = upd.CommunicationStyle
	}
	if len(upd.HealthConditions) > 0 {
		p.HealthConditions = unionSorted(p.HealthConditions, upd.HealthConditions)
	}
	if len(upd.Cultural) > 0 {
		if p.CulturalContext == nil {
			p.CulturalContext = make(map[string]any, len(upd.Cultural))
		}
		for k, v := range upd.Cultural {
			p.CulturalContext[k] = v
		}
	}
	p.UpdatedAt = time.Now().UTC()
}

// HasCondition reports whether the profile already records condition.
func (p *UserProfile) HasCondition(condition string) bool {
	i := sort.SearchStrings(p.HealthConditions, condition)
	return i < len(p.HealthConditions) && p.HealthConditions[i] == condition
}

// Clone returns a deep copy suitable for an immutable context snapshot.
func (p *UserProfile) Clone() UserProfile {
	cp := *p
	cp.HealthConditions = append([]string(nil), p.HealthConditions...)
	if p.CulturalContext != nil {
		cp.CulturalContext = make(map[string]any, len(p.CulturalContext))
		for k, v := range p.CulturalContext {
			cp.CulturalContext[k] = v
		}
	}
	return cp
}

func unionSorted(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	merged := make([]string, 0, len(existing)+len(add))
	for _, s := range existing {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	for _, s := range add {
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	sort.Strings(merged)
	return merged
}
