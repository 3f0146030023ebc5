package agent

import (
	"context"
	"log/slog"
	"strings"

	"caregate/internal/domain"
	"caregate/internal/usecase/detect"
)

// Preventive-wellness vocabulary.
var (
	exerciseTerms = []string{
		"exercise", "exercising", "work out", "workout", "gym", "running",
		"jogging", "yoga", "swimming", "get in shape",
		"tập thể dục", "chạy bộ", "tập gym", "bơi lội",
	}
	nutritionTerms = []string{
		"diet", "nutrition", "eat healthier", "healthy eating", "meal plan",
		"vitamins", "lose weight", "gain weight",
		"ăn uống", "dinh dưỡng", "giảm cân", "tăng cân",
	}
	lifestyleTerms = []string{
		"sleep schedule", "routine", "habit", "quit smoking", "quit drinking",
		"checkup", "check-up", "screening", "prevention",
		"thói quen", "bỏ thuốc lá", "khám sức khỏe", "phòng ngừa",
	}
	generalWellnessTerms = []string{
		"healthy", "wellness", "energy", "lifestyle",
		"khỏe mạnh", "sức khỏe",
	}
)

// WellnessCoach is the preventive-guidance agent and the designated
// default when no agent claims a message.
type WellnessCoach struct {
	base
}

// NewWellnessCoach constructs the wellness agent.
func NewWellnessCoach(inference domain.InferenceService, params Params, logger *slog.Logger) *WellnessCoach {
	return &WellnessCoach{base{
		desc: domain.AgentDescriptor{
			ID:              WellnessCoachID,
			Capabilities:    []domain.CapabilityTag{domain.CapWellness, domain.CapNutrition, domain.CapExercise, domain.CapSleepHygiene},
			Personality:     domain.PersonalityEncouraging,
			PrimaryLanguage: domain.LanguageEN,
		},
		inference:     inference,
		logger:        logger,
		params:        params,
		preferredAges: []domain.AgeGroup{domain.AgeAdult},
		fallbacks: map[domain.Language]string{
			domain.LanguageEN: "I can't reach my full service right now, but a good start is always available: " +
				"a short daily walk, regular meals with vegetables, a consistent sleep time, and a yearly checkup. " +
				"Ask me again soon and I can build a more personal plan.",
			domain.LanguageVI: "Hiện tại tôi không kết nối được với dịch vụ đầy đủ, nhưng bạn luôn có thể bắt đầu từ những điều đơn giản: " +
				"đi bộ mỗi ngày, ăn uống điều độ nhiều rau xanh, ngủ đúng giờ và khám sức khỏe định kỳ. " +
				"Hãy quay lại sau để tôi lập kế hoạch chi tiết hơn cho bạn.",
		},
	}}
}

// Evaluate scores lifestyle and prevention vocabulary.
func (a *WellnessCoach) Evaluate(text string, cctx *domain.ConversationContext) domain.EvaluationResult {
	res := domain.EvaluationResult{AgentID: a.desc.ID}
	normalized := detect.Normalize(text)

	conf, matched, caps := score(normalized, []termGroup{
		{weight: 0.35, capability: domain.CapExercise, terms: exerciseTerms},
		{weight: 0.3, capability: domain.CapNutrition, terms: nutritionTerms},
		{weight: 0.25, capability: domain.CapSleepHygiene, terms: lifestyleTerms},
		{weight: 0.15, capability: domain.CapWellness, terms: generalWellnessTerms},
	})
	if conf == 0 {
		return res
	}

	reasons := []string{"wellness signals: " + strings.Join(matched, ", ")}
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

// Respond generates preventive guidance with concrete suggested actions
// derived from the matched topics.
func (a *WellnessCoach) Respond(ctx context.Context, text string, cctx *domain.ConversationContext) (*domain.AgentResponse, error) {
	normalized := detect.Normalize(text)

	content, usedFallback := a.generate(ctx, a.promptFor(cctx, domain.UrgencyLow), text, cctx.Language)

	confidence := 0.75
	if usedFallback {
		confidence = 0.4
	}

	actions := []string{"set one small, measurable goal for this week"}
	if len(matchedTerms(normalized, exerciseTerms)) > 0 {
		actions = append(actions, "start with 20 minutes of light activity, three days a week")
	}
	if len(matchedTerms(normalized, nutritionTerms)) > 0 {
		actions = append(actions, "add one serving of vegetables to each main meal")
	}
	if len(matchedTerms(normalized, lifestyleTerms)) > 0 {
		actions = append(actions, "keep a fixed wake-up time, including weekends")
	}

	return &domain.AgentResponse{
		AgentID:          a.desc.ID,
		Content:          content,
		Confidence:       confidence,
		Urgency:          domain.UrgencyLow,
		SuggestedActions: actions,
		UsedFallback:     usedFallback,
	}, nil
}

// SystemPrompt for the wellness coach; urgency is always low.
func (a *WellnessCoach) SystemPrompt(cctx *domain.ConversationContext) string {
	return a.promptFor(cctx, domain.UrgencyLow)
}

func (a *WellnessCoach) promptFor(cctx *domain.ConversationContext, urgency domain.Urgency) string {
	var sb strings.Builder
	sb.WriteString("You are an encouraging preventive wellness coach. ")
	sb.WriteString("Offer small, sustainable lifestyle changes around exercise, nutrition, and sleep, ")
	sb.WriteString("and celebrate progress. Keep advice practical and realistic.\n")
	sb.WriteString(audienceInstructions(cctx, urgency))
	sb.WriteString(conditionsDigest(cctx))
	sb.WriteString(historyDigest(cctx, 6))
	return sb.String()
}
