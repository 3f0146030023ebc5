package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/adapter/inference"
	"caregate/internal/domain"
	"caregate/internal/infra/logger"
)

func testParams() Params {
	return Params{AgeGroupBoost: 0.3}
}

func testContext(profile domain.UserProfile, lang domain.Language) *domain.ConversationContext {
	return &domain.ConversationContext{
		UserID:    "u1",
		SessionID: "s1",
		Profile:   profile,
		Language:  lang,
	}
}

func TestRosterOrderAndIDs(t *testing.T) {
	roster := Roster(inference.NewMock(), testParams(), logger.Discard())
	require.Len(t, roster, 4)

	var ids []string
	for _, a := range roster {
		ids = append(ids, a.Descriptor().ID)
	}
	// Registration order doubles as the confidence tie-break order.
	assert.Equal(t, []string{
		SafetyGuardianID, VitalsMonitorID, MindcareCompanionID, WellnessCoachID,
	}, ids)
}

func TestRosterCapabilitiesDisjointEnough(t *testing.T) {
	roster := Roster(inference.NewMock(), testParams(), logger.Discard())

	emergency := 0
	wellness := 0
	for _, a := range roster {
		if a.Descriptor().HasCapability(domain.CapEmergency) {
			emergency++
		}
		if a.Descriptor().HasCapability(domain.CapWellness) {
			wellness++
		}
	}
	// Exactly one override target and one default fallback.
	assert.Equal(t, 1, emergency)
	assert.Equal(t, 1, wellness)
}

func TestSafetyGuardianEvaluateCritical(t *testing.T) {
	a := NewSafetyGuardian(inference.NewMock(), testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	res := a.Evaluate("I have chest pain and I can't breathe", cctx)
	assert.True(t, res.CanHandle)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)
	require.NotEmpty(t, res.Reasons)
	assert.Contains(t, res.Reasons[0], "critical keywords")
}

func TestSafetyGuardianEvaluateUrgentOnly(t *testing.T) {
	a := NewSafetyGuardian(inference.NewMock(), testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	res := a.Evaluate("my mother had a bad fall and is injured", cctx)
	assert.True(t, res.CanHandle)
	assert.Greater(t, res.Confidence, 0.0)
	assert.Less(t, res.Confidence, 0.95)

	res = a.Evaluate("what should I cook for dinner", cctx)
	assert.False(t, res.CanHandle)
	assert.Zero(t, res.Confidence)
}

func TestMindcareDisqualifiesOnCrisis(t *testing.T) {
	a := NewMindcareCompanion(inference.NewMock(), testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	res := a.Evaluate("I am depressed and I want to die", cctx)
	assert.False(t, res.CanHandle)
	assert.Zero(t, res.Confidence)
	require.NotEmpty(t, res.Reasons)
	assert.Contains(t, res.Reasons[0], "deferring to emergency response")
}

func TestMindcareTeenBoost(t *testing.T) {
	a := NewMindcareCompanion(inference.NewMock(), testParams(), logger.Discard())

	adult := *domain.NewUserProfile("u1")
	baseline := a.Evaluate("I feel depressed and lonely", testContext(adult, domain.LanguageEN))
	require.True(t, baseline.CanHandle)

	teen := *domain.NewUserProfile("u1")
	teen.AgeGroup = domain.AgeTeen
	boosted := a.Evaluate("I feel depressed and lonely", testContext(teen, domain.LanguageEN))
	require.True(t, boosted.CanHandle)

	assert.InDelta(t, baseline.Confidence+0.3, boosted.Confidence, 1e-9)
	assert.Contains(t, strings.Join(boosted.Reasons, " "), "age group match")
}

func TestVitalsKnownConditionBoost(t *testing.T) {
	a := NewVitalsMonitor(inference.NewMock(), testParams(), logger.Discard())

	plain := *domain.NewUserProfile("u1")
	baseline := a.Evaluate("I feel dizzy since this morning", testContext(plain, domain.LanguageEN))
	require.True(t, baseline.CanHandle)

	diabetic := *domain.NewUserProfile("u1")
	diabetic.HealthConditions = []string{"diabetes"}
	boosted := a.Evaluate("my diabetes is acting up and I feel dizzy", testContext(diabetic, domain.LanguageEN))
	require.True(t, boosted.CanHandle)

	assert.Greater(t, boosted.Confidence, baseline.Confidence)
	assert.Contains(t, strings.Join(boosted.Reasons, " "), "known condition mentioned: diabetes")
}

func TestWellnessEvaluate(t *testing.T) {
	a := NewWellnessCoach(inference.NewMock(), testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	res := a.Evaluate("I want to exercise more and improve my diet", cctx)
	assert.True(t, res.CanHandle)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)

	res = a.Evaluate("asdf qwerty", cctx)
	assert.False(t, res.CanHandle)
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	roster := Roster(inference.NewMock(), testParams(), logger.Discard())
	texts := []string{
		"",
		"chest pain can't breathe unconscious overdose seizure stroke",
		"depressed hopeless worthless panic attack stressed anxious sad lonely",
		"fever cough headache back pain blood pressure medication dose",
		"exercise workout gym diet nutrition sleep schedule routine healthy wellness",
	}
	elderly := *domain.NewUserProfile("u1")
	elderly.AgeGroup = domain.AgeElderly
	for _, a := range roster {
		for _, text := range texts {
			res := a.Evaluate(text, testContext(elderly, domain.LanguageEN))
			assert.GreaterOrEqual(t, res.Confidence, 0.0, "%s / %q", a.Descriptor().ID, text)
			assert.LessOrEqual(t, res.Confidence, 1.0, "%s / %q", a.Descriptor().ID, text)
		}
	}
}

func TestSafetyGuardianRespondCritical(t *testing.T) {
	mock := inference.NewMock().Script("Stay where you are. Help is on the way.")
	a := NewSafetyGuardian(mock, testParams(), logger.Discard())

	teen := *domain.NewUserProfile("u1")
	teen.AgeGroup = domain.AgeTeen
	cctx := testContext(teen, domain.LanguageEN)

	resp, err := a.Respond(context.Background(), "I want to die", cctx)
	require.NoError(t, err)

	assert.Equal(t, domain.UrgencyCritical, resp.Urgency)
	assert.True(t, resp.RequiresFollowup)
	assert.False(t, resp.UsedFallback)
	// Emergency resources are appended when the reply has no hotline number.
	assert.Contains(t, resp.Content, "911")

	require.NotNil(t, resp.Alert)
	assert.Equal(t, "emergency", resp.Alert.Type)
	assert.Equal(t, domain.UrgencyCritical, resp.Alert.Urgency)
	assert.Contains(t, resp.Alert.NotifyTargets, domain.NotifyEmergencyServices)
	// Minors additionally notify a guardian.
	assert.Contains(t, resp.Alert.NotifyTargets, domain.NotifyGuardian)
	assert.NotEmpty(t, resp.Alert.ID)
}

func TestSafetyGuardianRespondKeepsExistingHotline(t *testing.T) {
	mock := inference.NewMock().Script("Call 115 now and stay on the line.")
	a := NewSafetyGuardian(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageVI)

	resp, err := a.Respond(context.Background(), "tôi khó thở", cctx)
	require.NoError(t, err)
	assert.Equal(t, "Call 115 now and stay on the line.", resp.Content)
}

func TestRespondFallbackOnInferenceFailure(t *testing.T) {
	mock := inference.NewMock().FailWith(errors.New("provider down"))
	roster := Roster(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	for _, a := range roster {
		resp, err := a.Respond(context.Background(), "I have a headache and feel stressed", cctx)
		require.NoError(t, err, a.Descriptor().ID)
		assert.True(t, resp.UsedFallback, a.Descriptor().ID)
		assert.NotEmpty(t, resp.Content, a.Descriptor().ID)
	}
}

func TestFallbackLanguageSelection(t *testing.T) {
	mock := inference.NewMock().FailWith(errors.New("provider down"))
	a := NewWellnessCoach(mock, testParams(), logger.Discard())

	resp, err := a.Respond(context.Background(), "tôi muốn tập thể dục nhiều hơn", testContext(*domain.NewUserProfile("u1"), domain.LanguageVI))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "đi bộ")

	// Mixed-language sessions get both renderings.
	resp, err = a.Respond(context.Background(), "I want tập thể dục more", testContext(*domain.NewUserProfile("u1"), domain.LanguageAuto))
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "daily walk")
	assert.Contains(t, resp.Content, "đi bộ")
}

func TestMindcareRespondStrongDistressRaisesAlert(t *testing.T) {
	mock := inference.NewMock().Script("I hear you. Let's take this one step at a time.")
	a := NewMindcareCompanion(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	resp, err := a.Respond(context.Background(), "I feel hopeless, like I'm breaking down", cctx)
	require.NoError(t, err)

	assert.Equal(t, domain.UrgencyHigh, resp.Urgency)
	assert.True(t, resp.RequiresFollowup)
	require.NotNil(t, resp.Alert)
	assert.Equal(t, "mental_health_concern", resp.Alert.Type)
	assert.Contains(t, resp.Alert.NotifyTargets, domain.NotifyHealthcareProvider)
}

func TestMindcareRespondMildDistressNoAlert(t *testing.T) {
	mock := inference.NewMock().Script("That sounds stressful. What usually helps you unwind?")
	a := NewMindcareCompanion(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	resp, err := a.Respond(context.Background(), "work has me a bit stressed lately", cctx)
	require.NoError(t, err)
	assert.Equal(t, domain.UrgencyMedium, resp.Urgency)
	assert.Nil(t, resp.Alert)
}

func TestVitalsRespondSevereAndWorsening(t *testing.T) {
	mock := inference.NewMock().Script("Please get that checked soon.")
	a := NewVitalsMonitor(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	resp, err := a.Respond(context.Background(), "the fever is severe and getting worse", cctx)
	require.NoError(t, err)

	assert.Equal(t, domain.UrgencyHigh, resp.Urgency)
	assert.True(t, resp.RequiresFollowup)
	require.NotNil(t, resp.Alert)
	assert.Equal(t, "physical_health_concern", resp.Alert.Type)
	// The medical disclaimer footer is always appended.
	assert.Contains(t, resp.Content, "does not replace a medical examination")
}

func TestWellnessRespondSuggestedActions(t *testing.T) {
	mock := inference.NewMock().Script("Great goals! Here's how to start.")
	a := NewWellnessCoach(mock, testParams(), logger.Discard())
	cctx := testContext(*domain.NewUserProfile("u1"), domain.LanguageEN)

	resp, err := a.Respond(context.Background(), "I want to exercise and fix my diet and sleep schedule", cctx)
	require.NoError(t, err)

	assert.Equal(t, domain.UrgencyLow, resp.Urgency)
	assert.Nil(t, resp.Alert)
	joined := strings.Join(resp.SuggestedActions, " | ")
	assert.Contains(t, joined, "light activity")
	assert.Contains(t, joined, "vegetables")
	assert.Contains(t, joined, "wake-up time")
}

func TestSystemPromptAudienceAdaptation(t *testing.T) {
	a := NewVitalsMonitor(inference.NewMock(), testParams(), logger.Discard())

	elderly := *domain.NewUserProfile("u1")
	elderly.AgeGroup = domain.AgeElderly
	elderly.HealthConditions = []string{"hypertension"}
	cctx := testContext(elderly, domain.LanguageVI)
	cctx.History = []domain.Message{
		{Role: domain.RoleUser, Content: "huyết áp của tôi hơi cao"},
	}

	prompt := a.SystemPrompt(cctx)
	assert.Contains(t, prompt, "elderly")
	assert.Contains(t, prompt, "Respond in Vietnamese")
	assert.Contains(t, prompt, "hypertension")
	assert.Contains(t, prompt, "Recent conversation")
}
