package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caregate/internal/domain"
)

func TestLanguageOf(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Language
	}{
		{"plain english", "I have a headache and feel tired today", domain.LanguageEN},
		{"plain vietnamese", "tôi bị đau đầu và mệt mỏi hôm nay", domain.LanguageVI},
		{"mixed input", "I feel mệt mỏi and stressed about deadline at công ty", domain.LanguageAuto},
		{"too short for a signal", "đau đầu", ""},
		{"short english no signal", "hi there", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageOf(tt.text))
		})
	}
}

func TestAgeGroupOf(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		want         domain.AgeGroup
		wantExplicit bool
	}{
		{"explicit teen", "i am 15 and stressed about exams", domain.AgeTeen, true},
		{"explicit contraction", "i'm 72 years old", domain.AgeElderly, true},
		{"explicit vietnamese", "tôi 45 tuổi", domain.AgeAdult, true},
		{"explicit child", "i am 9", domain.AgeChild, true},
		{"teen cluster", "so much homework and my teacher keeps piling on", domain.AgeTeen, false},
		{"elderly cluster", "since my retirement i visit my grandchildren weekly", domain.AgeElderly, false},
		{"caretaker maps to child", "my toddler has a fever", domain.AgeChild, false},
		{"no signal", "the weather is nice", domain.AgeUnknown, false},
		{"implausible age ignored", "i am 500 and immortal", domain.AgeUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, explicit := AgeGroupOf(Normalize(tt.text))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantExplicit, explicit)
		})
	}
}

func TestAgeGroupOfMultiClusterIsDeterministic(t *testing.T) {
	// Touches both the teen and elderly clusters. The fixed priority order
	// must resolve it the same way on every call, or routing confidence
	// would drift between identical turns.
	normalized := Normalize("the exams are stressful and my grandchildren visit often")
	want, wantExplicit := AgeGroupOf(normalized)
	assert.Equal(t, domain.AgeTeen, want)
	assert.False(t, wantExplicit)
	for i := 0; i < 200; i++ {
		got, explicit := AgeGroupOf(normalized)
		require.Equal(t, want, got)
		require.Equal(t, wantExplicit, explicit)
	}

	// Caretaker-of-child language outranks every other cluster.
	got, _ := AgeGroupOf(Normalize("my kid hates homework and my pension barely covers rent"))
	assert.Equal(t, domain.AgeChild, got)
}

func TestAgeGroupOfExplicitWinsOverCluster(t *testing.T) {
	// Teen vocabulary plus a stated adult age: the number wins.
	got, explicit := AgeGroupOf(Normalize("i am 34 and stressed about my homework"))
	assert.Equal(t, domain.AgeAdult, got)
	assert.True(t, explicit)
}

func TestConditions(t *testing.T) {
	got := Conditions(Normalize("I have diabetes and high blood pressure, always tired"))
	assert.ElementsMatch(t, []string{"diabetes", "hypertension"}, got)

	got = Conditions(Normalize("tôi bị tiểu đường và mất ngủ"))
	assert.ElementsMatch(t, []string{"diabetes", "insomnia"}, got)

	assert.Empty(t, Conditions(Normalize("just saying hello")))
}

func TestAttributes(t *testing.T) {
	upd := Attributes("Please help, I am 15, I have asthma and I can't sleep before exams")

	assert.Equal(t, domain.AgeTeen, upd.AgeGroup)
	assert.True(t, upd.AgeExplicit)
	assert.Equal(t, domain.LanguageEN, upd.Language)
	assert.Contains(t, upd.HealthConditions, "asthma")
	assert.Equal(t, domain.StyleFormal, upd.CommunicationStyle)
}

func TestAttributesNoSignal(t *testing.T) {
	upd := Attributes("ok")
	assert.Equal(t, domain.AgeUnknown, upd.AgeGroup)
	assert.Equal(t, domain.Language(""), upd.Language)
	assert.Empty(t, upd.HealthConditions)
	assert.Equal(t, domain.StyleUnknown, upd.CommunicationStyle)
}

func TestCritical(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"I have chest pain and can't breathe", true},
		{"my father is unconscious", true},
		{"tôi khó thở quá", true},
		{"I want to die", true},
		{"I watched a movie about a heart attack", true}, // keyword scan has no semantics, by contract
		{"I have a mild headache", false},
		{"feeling a bit stressed", false},
	}
	for _, tt := range tests {
		got, hits := Critical(tt.text)
		assert.Equal(t, tt.want, got, tt.text)
		if tt.want {
			assert.NotEmpty(t, hits)
		}
	}
}

func TestCriticalTableCoversBothLanguages(t *testing.T) {
	require.GreaterOrEqual(t, CriticalTermCount(), 30)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "i can t sleep", Normalize("I CAN'T sleep!!!"))
	assert.Equal(t, "đau đầu quá", Normalize("  Đau   đầu, quá. "))
}

func TestTopicsDeterministicOrder(t *testing.T) {
	text := "I'm stressed, can't sleep, and so tired with this headache"
	first := Topics(text)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Topics(text))
	}

	types := map[string]bool{}
	for _, hit := range first {
		types[hit.PatternType] = true
	}
	assert.True(t, types["sleep"])
	assert.True(t, types["stress"])
	assert.True(t, types["fatigue"])
	assert.True(t, types["pain"])
}

func TestTrendOf(t *testing.T) {
	assert.Equal(t, domain.TrendWorsening, TrendOf("my headaches are getting worse"))
	assert.Equal(t, domain.TrendImproving, TrendOf("sleeping much better lately"))
	assert.Equal(t, domain.TrendUnknown, TrendOf("I have a headache"))
	assert.Equal(t, domain.TrendWorsening, TrendOf("đau đầu nặng hơn rồi"))
}

func TestCultural(t *testing.T) {
	profile := domain.NewUserProfile("u1")

	cc := Cultural("my boss set an impossible deadline and my family is worried", profile)
	assert.True(t, cc.WorkStress)
	assert.True(t, cc.FamilyContext)
	assert.False(t, cc.LanguageMix)

	cc = Cultural("I feel mệt mỏi after tăng ca at the office every night", profile)
	assert.True(t, cc.LanguageMix)

	// Too short for a ratio signal, still visibly mixed-script.
	cc = Cultural("mệt please", profile)
	assert.True(t, cc.LanguageMix)

	cc = Cultural("tôi bị đau đầu và mệt mỏi hôm nay", profile)
	assert.False(t, cc.LanguageMix)
}

func TestCulturalFormalityFallsBackToProfile(t *testing.T) {
	profile := domain.NewUserProfile("u1")
	profile.CommunicationStyle = domain.StyleFormal

	cc := Cultural("headache again", profile)
	assert.Equal(t, domain.StyleFormal, cc.Formality)
}
