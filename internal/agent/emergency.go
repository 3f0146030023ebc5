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

// urgentTerms are serious-but-not-critical signals the guardian still
// claims, below override level.
var urgentTerms = []string{
	"accident", "injured", "injury", "fell down", "bad fall", "burn",
	"severe pain", "very high fever", "allergic reaction",
	"tai nạn", "bị thương", "bỏng", "đau dữ dội", "sốt rất cao", "dị ứng nặng",
}

const emergencyResourcesEN = "If you are in immediate danger, call your local emergency number now (911 in the US, 115 in Vietnam)."
const emergencyResourcesVI = "Nếu bạn đang gặp nguy hiểm, hãy gọi ngay số cấp cứu (115 tại Việt Nam)."

// SafetyGuardian is the emergency and crisis response agent. It is the
// designated target of the routing engine's emergency override.
type SafetyGuardian struct {
	base
}

// NewSafetyGuardian constructs the emergency agent.
func NewSafetyGuardian(inference domain.InferenceService, params Params, logger *slog.Logger) *SafetyGuardian {
	return &SafetyGuardian{base{
		desc: domain.AgentDescriptor{
			ID:              SafetyGuardianID,
			Capabilities:    []domain.CapabilityTag{domain.CapEmergency, domain.CapCrisisResponse},
			Personality:     domain.PersonalityDirect,
			PrimaryLanguage: domain.LanguageEN,
		},
		inference: inference,
		logger:    logger,
		params:    params,
		fallbacks: map[domain.Language]string{
			domain.LanguageEN: "I can't reach my full guidance service right now, but your safety comes first. " +
				"If you or someone near you is in danger, call your local emergency number immediately " +
				"(911 in the US, 115 in Vietnam). If this is a mental health crisis, contact a crisis hotline now. " +
				"Do not wait for this service to recover.",
			domain.LanguageVI: "Hiện tại tôi không kết nối được với dịch vụ tư vấn đầy đủ, nhưng an toàn của bạn là trên hết. " +
				"Nếu bạn hoặc người bên cạnh đang gặp nguy hiểm, hãy gọi ngay số cấp cứu 115. " +
				"Nếu đây là khủng hoảng tâm lý, hãy liên hệ đường dây nóng hỗ trợ ngay. Đừng chờ hệ thống hoạt động trở lại.",
		},
	}}
}

// Evaluate claims any message carrying critical or urgent signals.
func (a *SafetyGuardian) Evaluate(text string, cctx *domain.ConversationContext) domain.EvaluationResult {
	res := domain.EvaluationResult{AgentID: a.desc.ID}
	normalized := detect.Normalize(text)

	if critical, hits := detect.Critical(text); critical {
		res.CanHandle = true
		res.Confidence = 0.95
		res.Reasons = []string{"critical keywords detected: " + strings.Join(hits, ", ")}
		res.MatchedCapabilities = []domain.CapabilityTag{domain.CapEmergency, domain.CapCrisisResponse}
		return res
	}

	conf, matched, caps := score(normalized, []termGroup{
		{weight: 0.35, capability: domain.CapEmergency, terms: urgentTerms},
	})
	if conf == 0 {
		return res
	}
	res.CanHandle = true
	res.Confidence = clamp01(conf)
	res.Reasons = []string{"urgent signals: " + strings.Join(matched, ", ")}
	res.MatchedCapabilities = caps
	return res
}

// Respond generates crisis guidance. It always appends emergency resources
// and raises a professional alert for critical input. Inference failure is
// absorbed by the static fallback: this agent must never propagate one.
func (a *SafetyGuardian) Respond(ctx context.Context, text string, cctx *domain.ConversationContext) (*domain.AgentResponse, error) {
	critical, hits := detect.Critical(text)
	urgency := domain.UrgencyHigh
	if critical {
		urgency = domain.UrgencyCritical
	}

	content, usedFallback := a.generate(ctx, a.promptFor(cctx, urgency), text, cctx.Language)
	content = appendResources(content, cctx.Language, emergencyResourcesEN, emergencyResourcesVI)

	confidence := 0.95
	if usedFallback {
		confidence = 0.5
	}

	resp := &domain.AgentResponse{
		AgentID:          a.desc.ID,
		Content:          content,
		Confidence:       confidence,
		Urgency:          urgency,
		RequiresFollowup: true,
		SuggestedActions: []string{"contact emergency services", "stay with the person until help arrives"},
		UsedFallback:     usedFallback,
	}

	if critical {
		targets := []domain.NotifyTarget{domain.NotifyEmergencyServices}
		if cctx.Profile.AgeGroup == domain.AgeChild || cctx.Profile.AgeGroup == domain.AgeTeen {
			targets = append(targets, domain.NotifyGuardian)
		}
		resp.Alert = &domain.Alert{
			ID:                uuid.NewString(),
			Type:              "emergency",
			Urgency:           domain.UrgencyCritical,
			Reason:            "critical keywords detected: " + strings.Join(hits, ", "),
			InputSummary:      truncateSummary(text, 120),
			RecommendedAction: "dispatch emergency services and notify listed contacts",
			NotifyTargets:     targets,
			CreatedAt:         time.Now().UTC(),
		}
	}
	return resp, nil
}

// SystemPrompt derives urgency from the latest turn so the instruction
// payload matches what Respond would send.
func (a *SafetyGuardian) SystemPrompt(cctx *domain.ConversationContext) string {
	urgency := domain.UrgencyHigh
	if len(cctx.History) > 0 {
		if critical, _ := detect.Critical(cctx.History[len(cctx.History)-1].Content); critical {
			urgency = domain.UrgencyCritical
		}
	}
	return a.promptFor(cctx, urgency)
}

func (a *SafetyGuardian) promptFor(cctx *domain.ConversationContext, urgency domain.Urgency) string {
	var sb strings.Builder
	sb.WriteString("You are an emergency response assistant for a health companion service. ")
	sb.WriteString("Assess danger first, give immediate concrete steps, and always direct the user to real emergency services. ")
	sb.WriteString("Never diagnose; never downplay symptoms.\n")
	sb.WriteString(audienceInstructions(cctx, urgency))
	sb.WriteString(conditionsDigest(cctx))
	sb.WriteString(historyDigest(cctx, 4))
	return sb.String()
}

// appendResources adds the language-appropriate safety footer unless the
// generated content already includes an emergency number.
func appendResources(content string, lang domain.Language, en, vi string) string {
	if strings.Contains(content, "115") || strings.Contains(content, "911") {
		return content
	}
	switch lang {
	case domain.LanguageVI:
		return content + "\n\n" + vi
	case domain.LanguageAuto:
		return content + "\n\n" + en + "\n" + vi
	default:
		return content + "\n\n" + en
	}
}
