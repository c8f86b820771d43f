package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateTransitions(t *testing.T) {
	next, ok := StateStep1Entity.Next()
	require.True(t, ok)
	assert.Equal(t, StateStep2Delegate, next)

	assert.True(t, CanTransition(StateStep2Delegate, StateStep3Payment))
	assert.False(t, CanTransition(StateStep1Entity, StateStep3Payment))
	assert.False(t, CanTransition(StateSubmitted, StateStep1Entity))

	_, ok = StateSubmitted.Next()
	assert.False(t, ok)
	assert.Equal(t, 3, StateStep3Payment.Number())
	assert.False(t, State("step9").Valid())
}

func TestParseStep(t *testing.T) {
	s, ok := ParseStep("2")
	assert.True(t, ok)
	assert.Equal(t, StateStep2Delegate, s)

	s, ok = ParseStep("step3_payment")
	assert.True(t, ok)
	assert.Equal(t, StateStep3Payment, s)

	_, ok = ParseStep("submitted")
	assert.False(t, ok)
}

func TestDraftPatchApplyReplacesSections(t *testing.T) {
	draft := &FormDraft{Entity: Entity{LegalName: "Club Deportivo"}, PlanTier: "1-50"}
	tier := " 51-200 "
	DraftPatch{
		Contractor: &Contractor{Name: "Ana"},
		PlanTier:   &tier,
		Substitute: &DelegatePerson{Name: "Luis"},
	}.Apply(draft)

	assert.Equal(t, "Club Deportivo", draft.Entity.LegalName)
	assert.Equal(t, "Ana", draft.Contractor.Name)
	assert.Equal(t, "51-200", draft.PlanTier)
	require.NotNil(t, draft.Delegate.Substitute)
	assert.Equal(t, "Luis", draft.Delegate.Substitute.Name)
}

func TestIsEmptyIgnoresAddOnFlags(t *testing.T) {
	draft := &FormDraft{AddOns: AddOns{IncludeCommunicationKit: true}}
	assert.True(t, draft.IsEmpty())

	draft.AdministrativeContact.Phone = "600000000"
	assert.False(t, draft.IsEmpty())
}

func TestCloneAndWipeSecrets(t *testing.T) {
	draft := &FormDraft{
		Contractor: Contractor{Secret: "s1"},
		Delegate: Delegate{
			Principal:  DelegatePerson{Secret: "s2"},
			Substitute: &DelegatePerson{Secret: "s3"},
		},
	}
	clone := draft.Clone()
	draft.WipeSecrets()

	assert.Empty(t, draft.Contractor.Secret)
	assert.Empty(t, draft.Delegate.Substitute.Secret)
	assert.Equal(t, "s1", clone.Contractor.Secret)
	assert.Equal(t, "s3", clone.Delegate.Substitute.Secret)
}

func TestErrorMessages(t *testing.T) {
	err := &ValidationError{Step: StateStep1Entity, Missing: []FieldPath{"entity.taxId", "planTier"}}
	assert.Equal(t, "step1_entity: missing required fields: entity.taxId, planTier", err.Error())

	inc := &IncompleteStepError{Step: StateStep1Entity}
	assert.Equal(t, "step 1 (step1_entity) is incomplete", inc.Error())
}
