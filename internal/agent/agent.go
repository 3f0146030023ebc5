// Package agent implements the fixed roster of specialized conversational
// agents. Every agent satisfies domain.Agent: a pure Evaluate used by the
// routing engine, a Respond that delegates generation to the inference
// collaborator with a pre-authored fallback, and a SystemPrompt adapted to
// the detected age group, language, and urgency.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"caregate/internal/domain"
	"caregate/internal/usecase/detect"
)

// Roster agent IDs. The registration order below is the tie-break order
// for equal confidence scores.
const (
	SafetyGuardianID    = "safety_guardian"
	VitalsMonitorID     = "vitals_monitor"
	MindcareCompanionID = "mindcare_companion"
	WellnessCoachID     = "wellness_coach"
)

// Params carries the tunables shared by all agents.
type Params struct {
	AgeGroupBoost    float64       // added when the profile age group matches the agent's preference
	InferenceTimeout time.Duration // bound on a single generation call
	Model            string        // model hint forwarded to the inference service
}

// Roster constructs the full fixed roster in tie-break order.
func Roster(inference domain.InferenceService, params Params, logger *slog.Logger) []domain.Agent {
	return []domain.Agent{
		NewSafetyGuardian(inference, params, logger),
		NewVitalsMonitor(inference, params, logger),
		NewMindcareCompanion(inference, params, logger),
		NewWellnessCoach(inference, params, logger),
	}
}

// base holds the plumbing common to all four agents.
type base struct {
	desc          domain.AgentDescriptor
	inference     domain.InferenceService
	logger        *slog.Logger
	params        Params
	preferredAges []domain.AgeGroup
	fallbacks     map[domain.Language]string
}

func (b *base) Descriptor() domain.AgentDescriptor { return b.desc }

// termGroup is one weighted vocabulary group used for scoring.
type termGroup struct {
	weight     float64
	capability domain.CapabilityTag
	terms      []string
}

// score sums group weights per matched term and collects the evidence.
func score(normalized string, groups []termGroup) (float64, []string, []domain.CapabilityTag) {
	var (
		total   float64
		matched []string
		caps    []domain.CapabilityTag
		capSeen = map[domain.CapabilityTag]bool{}
	)
	for _, g := range groups {
		hit := false
		for _, term := range g.terms {
			if containsTerm(normalized, term) {
				total += g.weight
				matched = append(matched, term)
				hit = true
			}
		}
		if hit && !capSeen[g.capability] {
			capSeen[g.capability] = true
			caps = append(caps, g.capability)
		}
	}
	return total, matched, caps
}

// containsTerm matches multi-word terms as substrings and single words on
// word boundaries over already-normalized text.
func containsTerm(normalized, term string) bool {
	term = detect.Normalize(term)
	if strings.ContainsRune(term, ' ') {
		return strings.Contains(normalized, term)
	}
	return strings.Contains(" "+normalized+" ", " "+term+" ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ageBoost returns the configured bonus when the detected age group is one
// the agent is tuned for.
func (b *base) ageBoost(profile *domain.UserProfile) (float64, bool) {
	for _, g := range b.preferredAges {
		if profile.AgeGroup == g {
			return b.params.AgeGroupBoost, true
		}
	}
	return 0, false
}

// generate calls the inference collaborator with a bounded timeout. On any
// failure it returns the agent's static, language-aware fallback instead of
// an error: generation failures must never surface to the end user.
func (b *base) generate(ctx context.Context, systemPrompt, text string, lang domain.Language) (string, bool) {
	timeout := b.params.InferenceTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := b.inference.Generate(gctx, domain.GenerateRequest{
		SystemPrompt: systemPrompt,
		UserText:     text,
		ModelHint:    b.params.Model,
	})
	if err != nil || res == nil || strings.TrimSpace(res.Content) == "" {
		b.logger.Warn("inference failed, serving static fallback",
			"agent_id", b.desc.ID,
			"provider", b.inference.Name(),
			"error", err,
		)
		return b.fallbackFor(lang), true
	}
	return res.Content, false
}

// fallbackFor picks the pre-authored message for the effective language.
// Mixed-language sessions get both renderings.
func (b *base) fallbackFor(lang domain.Language) string {
	if msg, ok := b.fallbacks[lang]; ok {
		return msg
	}
	return b.fallbacks[domain.LanguageEN] + "\n\n" + b.fallbacks[domain.LanguageVI]
}

// truncateSummary bounds alert input summaries for privacy.
func truncateSummary(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "..."
}
