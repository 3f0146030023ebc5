package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeAgeGroup(t *testing.T) {
	p := NewUserProfile("u1")

	// Cluster inference sets the group when nothing is known.
	p.Merge(ProfileUpdate{AgeGroup: AgeTeen})
	assert.Equal(t, AgeTeen, p.AgeGroup)
	assert.False(t, p.AgeExplicit)

	// A stated age replaces the inferred group and pins it.
	p.Merge(ProfileUpdate{AgeGroup: AgeAdult, AgeExplicit: true})
	assert.Equal(t, AgeAdult, p.AgeGroup)
	assert.True(t, p.AgeExplicit)

	// Later cluster signals never downgrade a stated age.
	p.Merge(ProfileUpdate{AgeGroup: AgeTeen})
	assert.Equal(t, AgeAdult, p.AgeGroup)
	assert.True(t, p.AgeExplicit)

	// A new stated age still wins.
	p.Merge(ProfileUpdate{AgeGroup: AgeElderly, AgeExplicit: true})
	assert.Equal(t, AgeElderly, p.AgeGroup)
}

func TestMergeConditionsUnion(t *testing.T) {
	p := NewUserProfile("u1")

	p.Merge(ProfileUpdate{HealthConditions: []string{"diabetes"}})
	p.Merge(ProfileUpdate{HealthConditions: []string{"asthma", "diabetes"}})
	p.Merge(ProfileUpdate{}) // no signal, no change

	assert.Equal(t, []string{"asthma", "diabetes"}, p.HealthConditions)
	assert.True(t, p.HasCondition("asthma"))
	assert.False(t, p.HasCondition("hypertension"))
}

func TestMergeZeroValuesAreNoSignal(t *testing.T) {
	p := NewUserProfile("u1")
	p.LanguagePreference = LanguageVI
	p.CommunicationStyle = StyleFormal

	p.Merge(ProfileUpdate{})
	assert.Equal(t, LanguageVI, p.LanguagePreference)
	assert.Equal(t, StyleFormal, p.CommunicationStyle)

	p.Merge(ProfileUpdate{Language: LanguageEN, CommunicationStyle: StyleCasual})
	assert.Equal(t, LanguageEN, p.LanguagePreference)
	assert.Equal(t, StyleCasual, p.CommunicationStyle)
}

func TestMergeCulturalOverlay(t *testing.T) {
	p := NewUserProfile("u1")
	p.Merge(ProfileUpdate{Cultural: map[string]any{"family_context": true}})
	p.Merge(ProfileUpdate{Cultural: map[string]any{"work_stress": true}})

	assert.Equal(t, true, p.CulturalContext["family_context"])
	assert.Equal(t, true, p.CulturalContext["work_stress"])
}

func TestCloneIsDeep(t *testing.T) {
	p := NewUserProfile("u1")
	p.HealthConditions = []string{"asthma"}
	p.CulturalContext["k"] = "v"

	cp := p.Clone()
	cp.HealthConditions[0] = "tampered"
	cp.CulturalContext["k"] = "tampered"

	assert.Equal(t, []string{"asthma"}, p.HealthConditions)
	assert.Equal(t, "v", p.CulturalContext["k"])
}
