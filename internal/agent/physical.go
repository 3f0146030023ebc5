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

// Physical-health vocabulary.
var (
	acuteSymptomTerms = []string{
		"fever", "cough", "vomiting", "nausea", "dizzy", "dizziness",
		"rash", "swelling", "diarrhea", "infection",
		"sốt", "ho", "buồn nôn", "nôn", "chóng mặt", "phát ban", "sưng", "tiêu chảy",
	}
	painTerms = []string{
		"headache", "back pain", "stomach ache", "sore throat", "joint pain",
		"cramp", "toothache",
		"đau đầu", "đau lưng", "đau bụng", "đau họng", "đau khớp", "đau răng",
	}
	vitalsTerms = []string{
		"blood pressure", "blood sugar", "heart rate", "pulse", "temperature",
		"medication", "prescription", "dose", "side effect",
		"huyết áp", "đường huyết", "nhịp tim", "thuốc", "liều", "tác dụng phụ",
	}
	severeIndicatorTerms = []string{
		"severe", "getting worse", "won't stop", "blood in stool", "blood in urine",
		"high fever for days", "nặng hơn", "không dứt", "ra máu",
	}
)

const physicalAdviceEN = "This guidance does not replace a medical examination; see a doctor if symptoms persist or worsen."
const physicalAdviceVI = "Hướng dẫn này không thay thế việc khám bệnh; hãy đi khám nếu triệu chứng kéo dài hoặc nặng hơn."

// VitalsMonitor is the physical-health monitoring agent: symptoms,
// vital signs, medication questions, and chronic-condition tracking.
type VitalsMonitor struct {
	base
}

// NewVitalsMonitor constructs the physical-health agent.
func NewVitalsMonitor(inference domain.InferenceService, params Params, logger *slog.Logger) *VitalsMonitor {
	return &VitalsMonitor{base{
		desc: domain.AgentDescriptor{
			ID:              VitalsMonitorID,
			Capabilities:    []domain.CapabilityTag{domain.CapPhysicalHealth, domain.CapSymptomTriage, domain.CapMedication},
			Personality:     domain.PersonalityCalm,
			PrimaryLanguage: domain.LanguageEN,
		},
		inference:     inference,
		logger:        logger,
		params:        params,
		preferredAges: []domain.AgeGroup{domain.AgeElderly},
		fallbacks: map[domain.Language]string{
			domain.LanguageEN: "I can't reach my full service right now. For symptom concerns, monitor how you feel, " +
				"rest and stay hydrated, and see a doctor if symptoms persist, worsen, or worry you. " +
				"For severe symptoms, seek medical care immediately.",
			domain.LanguageVI: "Hiện tại tôi không kết nối được với dịch vụ đầy đủ. Hãy theo dõi triệu chứng, nghỉ ngơi, " +
				"uống đủ nước, và đi khám nếu triệu chứng kéo dài, nặng hơn hoặc khiến bạn lo lắng. " +
				"Nếu triệu chứng nghiêm trọng, hãy đến cơ sở y tế ngay.",
		},
	}}
}

// Evaluate scores symptom, pain, and vitals vocabulary, with boosts for a
// matching age group and for conditions already on the profile.
func (a *VitalsMonitor) Evaluate(text string, cctx *domain.ConversationContext) domain.EvaluationResult {
	res := domain.EvaluationResult{AgentID: a.desc.ID}
	normalized := detect.Normalize(text)

	conf, matched, caps := score(normalized, []termGroup{
		{weight: 0.35, capability: domain.CapSymptomTriage, terms: acuteSymptomTerms},
		{weight: 0.3, capability: domain.CapPhysicalHealth, terms: painTerms},
		{weight: 0.3, capability: domain.CapMedication, terms: vitalsTerms},
	})
	if conf == 0 {
		return res
	}

	reasons := []string{"physical health signals: " + strings.Join(matched, ", ")}
	if boost, ok := a.ageBoost(&cctx.Profile); ok {
		conf += boost
		reasons = append(reasons, "age group match: "+string(cctx.Profile.AgeGroup))
	}
	if cond := mentionedCondition(normalized, cctx.Profile.HealthConditions); cond != "" {
		conf += 0.15
		reasons = append(reasons, "known condition mentioned: "+cond)
	}

	res.CanHandle = true
	res.Confidence = clamp01(conf)
	res.Reasons = reasons
	res.MatchedCapabilities = caps
	return res
}

// Respond generates symptom guidance and flags worsening courses for a
// professional follow-up.
func (a *VitalsMonitor) Respond(ctx context.Context, text string, cctx *domain.ConversationContext) (*domain.AgentResponse, error) {
	normalized := detect.Normalize(text)
	severe := matchedTerms(normalized, severeIndicatorTerms)
	worsening := detect.TrendOf(text) == domain.TrendWorsening

	urgency := domain.UrgencyMedium
	if len(severe) > 0 {
		urgency = domain.UrgencyHigh
	}

	content, usedFallback := a.generate(ctx, a.promptFor(cctx, urgency), text, cctx.Language)
	content = appendResources(content, cctx.Language, physicalAdviceEN, physicalAdviceVI)

	confidence := 0.8
	if usedFallback {
		confidence = 0.4
	}

	resp := &domain.AgentResponse{
		AgentID:          a.desc.ID,
		Content:          content,
		Confidence:       confidence,
		Urgency:          urgency,
		RequiresFollowup: worsening || urgency == domain.UrgencyHigh,
		SuggestedActions: []string{"track the symptom over the next days", "note anything that makes it better or worse"},
		UsedFallback:     usedFallback,
	}

	if len(severe) > 0 {
		resp.Alert = &domain.Alert{
			ID:                uuid.NewString(),
			Type:              "physical_health_concern",
			Urgency:           domain.UrgencyHigh,
			Reason:            "severe symptom indicators: " + strings.Join(severe, ", "),
			InputSummary:      truncateSummary(text, 120),
			RecommendedAction: "arrange a medical examination",
			NotifyTargets:     []domain.NotifyTarget{domain.NotifyHealthcareProvider},
			CreatedAt:         time.Now().UTC(),
		}
	}
	return resp, nil
}

// SystemPrompt derives urgency from the latest user turn.
func (a *VitalsMonitor) SystemPrompt(cctx *domain.ConversationContext) string {
	urgency := domain.UrgencyMedium
	if len(cctx.History) > 0 {
		last := detect.Normalize(cctx.History[len(cctx.History)-1].Content)
		if len(matchedTerms(last, severeIndicatorTerms)) > 0 {
			urgency = domain.UrgencyHigh
		}
	}
	return a.promptFor(cctx, urgency)
}

func (a *VitalsMonitor) promptFor(cctx *domain.ConversationContext, urgency domain.Urgency) string {
	var sb strings.Builder
	sb.WriteString("You are a physical health monitoring assistant. ")
	sb.WriteString("Help the user understand symptoms, vital signs, and medication questions in plain language. ")
	sb.WriteString("Never diagnose; recommend professional care whenever symptoms are serious, persistent, or unclear.\n")
	sb.WriteString(audienceInstructions(cctx, urgency))
	sb.WriteString(conditionsDigest(cctx))
	sb.WriteString(historyDigest(cctx, 6))
	return sb.String()
}

// mentionedCondition returns the first profile condition referenced in the
// current message, or "".
func mentionedCondition(normalized string, conditions []string) string {
	for _, cond := range conditions {
		if containsTerm(normalized, cond) {
			return cond
		}
	}
	return ""
}
