package agent

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"caregate/internal/domain"
	"caregate/internal/usecase/detect"
)

// Mental-health vocabulary, split by signal strength.
var (
	distressStrongTerms = []string{
		"panic attack", "anxiety attack", "depressed", "depression",
		"hopeless", "worthless", "can't go on", "breaking down",
		"trầm cảm", "tuyệt vọng", "vô dụng", "suy sụp",
	}
	distressMildTerms = []string{
		"stressed", "stress", "anxious", "anxiety", "sad", "lonely",
		"overwhelmed", "worried", "crying", "upset",
		"căng thẳng", "lo lắng", "buồn", "cô đơn", "áp lực", "khóc",
	}
	emotionalSleepTerms = []string{
		"can't sleep", "cannot sleep", "sleepless", "nightmares",
		"mất ngủ", "ác mộng",
	}
)

const mentalResourcesEN = "If these feelings become overwhelming, please reach out to a mental health professional or a support hotline; you do not have to handle this alone."
const mentalResourcesVI = "Nếu cảm xúc trở nên quá sức chịu đựng, hãy liên hệ chuyên gia tâm lý hoặc đường dây hỗ trợ; bạn không phải vượt qua một mình."

// MindcareCompanion is the mental-health support agent. It disqualifies
// itself whenever crisis keywords are present so the routing engine sends
// those messages to the safety guardian instead.
type MindcareCompanion struct {
	base
}

// NewMindcareCompanion constructs the mental-health agent.
func NewMindcareCompanion(inference domain.InferenceService, params Params, logger *slog.Logger) *MindcareCompanion {
	return &MindcareCompanion{base{
		desc: domain.AgentDescriptor{
			ID:              MindcareCompanionID,
			Capabilities:    []domain.CapabilityTag{domain.CapMentalHealth, domain.CapStressSupport},
			Personality:     domain.PersonalityWarm,
			PrimaryLanguage: domain.LanguageEN,
		},
		inference:     inference,
		logger:        logger,
		params:        params,
		preferredAges: []domain.AgeGroup{domain.AgeTeen},
		fallbacks: map[domain.Language]string{
			domain.LanguageEN: "I'm having trouble reaching my full service right now, but what you're feeling matters. " +
				"Try to take a few slow breaths, and consider talking to someone you trust. " +
				"If the distress feels unmanageable, please contact a mental health professional or a support hotline.",
			domain.LanguageVI: "Hiện tại tôi không kết nối được với dịch vụ đầy đủ, nhưng cảm xúc của bạn rất quan trọng. " +
				"Hãy thử hít thở chậm vài nhịp và tâm sự với người bạn tin tưởng. " +
				"Nếu cảm giác quá sức chịu đựng, hãy liên hệ chuyên gia tâm lý hoặc đường dây hỗ trợ.",
		},
	}}
}

// Evaluate scores emotional-distress vocabulary. Crisis keywords are a
// disqualifier, not a lower score: those messages belong to the emergency
// agent.
func (a *MindcareCompanion) Evaluate(text string, cctx *domain.ConversationContext) domain.EvaluationResult {
	res := domain.EvaluationResult{AgentID: a.desc.ID}

	if critical, _ := detect.Critical(text); critical {
		res.Reasons = []string{"crisis signals present, deferring to emergency response"}
		return res
	}

	normalized := detect.Normalize(text)
	conf, matched, caps := score(normalized, []termGroup{
		{weight: 0.4, capability: domain.CapMentalHealth, terms: distressStrongTerms},
		{weight: 0.25, capability: domain.CapStressSupport, terms: distressMildTerms},
		{weight: 0.15, capability: domain.CapMentalHealth, terms: emotionalSleepTerms},
	})
	if conf == 0 {
		return res
	}

	reasons := []string{"emotional distress signals: " + strings.Join(matched, ", ")}
	if boost, ok := a.ageBoost(&cctx.Profile); ok {
		conf += boost
		reasons = append(reasons, "age group match: "+string(cctx.Profile.AgeGroup))
	}

	res.CanHandle = true
	res.Confidence = clamp01(conf)
	res.Reasons = reasons
	res.MatchedCapabilities = caps
	return res
}

// Respond generates supportive guidance with resource injection for high
// urgency, and raises a professional alert on strong distress.
func (a *MindcareCompanion) Respond(ctx context.Context, text string, cctx *domain.ConversationContext) (*domain.AgentResponse, error) {
	normalized := detect.Normalize(text)
	strong := matchedTerms(normalized, distressStrongTerms)

	urgency := domain.UrgencyMedium
	if len(strong) > 0 {
		urgency = domain.UrgencyHigh
	}

	content, usedFallback := a.generate(ctx, a.promptFor(cctx, urgency), text, cctx.Language)
	if urgency == domain.UrgencyHigh {
		content = appendResources(content, cctx.Language, mentalResourcesEN, mentalResourcesVI)
	}

	confidence := 0.8
	if usedFallback {
		confidence = 0.4
	}

	resp := &domain.AgentResponse{
		AgentID:          a.desc.ID,
		Content:          content,
		Confidence:       confidence,
		Urgency:          urgency,
		RequiresFollowup: urgency == domain.UrgencyHigh,
		SuggestedActions: []string{"practice a grounding exercise", "talk to someone you trust"},
		UsedFallback:     usedFallback,
	}

	if len(strong) > 0 {
		targets := []domain.NotifyTarget{domain.NotifyHealthcareProvider}
		if cctx.Profile.AgeGroup == domain.AgeChild || cctx.Profile.AgeGroup == domain.AgeTeen {
			targets = append(targets, domain.NotifyGuardian)
		}
		resp.Alert = &domain.Alert{
			ID:                uuid.NewString(),
			Type:              "mental_health_concern",
			Urgency:           domain.UrgencyHigh,
			Reason:            "strong distress signals: " + strings.Join(strong, ", "),
			InputSummary:      truncateSummary(text, 120),
			RecommendedAction: "schedule a mental health check-in",
			NotifyTargets:     targets,
			CreatedAt:         time.Now().UTC(),
		}
	}
	return resp, nil
}

// SystemPrompt derives urgency from the latest user turn.
func (a *MindcareCompanion) SystemPrompt(cctx *domain.ConversationContext) string {
	urgency := domain.UrgencyMedium
	if len(cctx.History) > 0 {
		last := detect.Normalize(cctx.History[len(cctx.History)-1].Content)
		if len(matchedTerms(last, distressStrongTerms)) > 0 {
			urgency = domain.UrgencyHigh
		}
	}
	return a.promptFor(cctx, urgency)
}

func (a *MindcareCompanion) promptFor(cctx *domain.ConversationContext, urgency domain.Urgency) string {
	var sb strings.Builder
	sb.WriteString("You are a compassionate mental health support companion. ")
	sb.WriteString("Listen first, validate feelings, and offer small practical coping steps. ")
	sb.WriteString("You are not a therapist and must encourage professional help for persistent distress.\n")
	sb.WriteString(audienceInstructions(cctx, urgency))
	sb.WriteString(conditionsDigest(cctx))
	sb.WriteString(historyDigest(cctx, 6))
	return sb.String()
}

func matchedTerms(normalized string, terms []string) []string {
	var hits []string
	for _, term := range terms {
		if containsTerm(normalized, term) {
			hits = append(hits, term)
		}
	}
	return hits
}
