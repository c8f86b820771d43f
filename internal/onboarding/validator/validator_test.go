package validator

import (
	"testing"

	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeStep1() *domain.FormDraft {
	return &domain.FormDraft{
		Entity: domain.Entity{
			LegalName:    "Club Deportivo Norte",
			TaxID:        "G12345678",
			Type:         "deportivo",
			Address:      "Calle Mayor 1, Madrid",
			Phone:        "910000000",
			ChildBracket: "51-200",
		},
		Contractor: domain.Contractor{
			Name:       "Ana Ruiz",
			NationalID: "12345678Z",
			Role:       "Presidenta",
			Phone:      "600000001",
			Email:      "ana@example.org",
			Secret:     "s3cret",
		},
		AdministrativeContact: domain.AdministrativeContact{
			Name:         "Pedro Gil",
			BillingEmail: "admin@example.org",
		},
		PlanTier: "51-200",
	}
}

func person(name string) domain.DelegatePerson {
	return domain.DelegatePerson{
		Name:       name,
		NationalID: "87654321X",
		BirthDate:  "1985-04-12",
		Phone:      "600000002",
		Email:      "delegado@example.org",
		Secret:     "pw",
		Role:       "Entrenador",
	}
}

func TestStep1Complete(t *testing.T) {
	assert.True(t, Validate(domain.StateStep1Entity, completeStep1(), nil).Valid())
}

func TestStep1ReportsMissingInOrder(t *testing.T) {
	draft := completeStep1()
	draft.Entity.TaxID = "   "
	draft.PlanTier = ""

	result := Validate(domain.StateStep1Entity, draft, nil)
	assert.Equal(t, []domain.FieldPath{"entity.taxId", "planTier"}, result.Missing)

	var verr *domain.ValidationError
	require.ErrorAs(t, result.Err(), &verr)
	assert.Equal(t, domain.StateStep1Entity, verr.Step)
}

func TestStep1OptionalFieldsIgnored(t *testing.T) {
	draft := completeStep1()
	draft.Entity.Site = ""
	draft.AdministrativeContact.Role = ""
	draft.AdministrativeContact.Phone = ""
	assert.True(t, Validate(domain.StateStep1Entity, draft, nil).Valid())
}

func TestStep2SubstituteRuleIsReactive(t *testing.T) {
	draft := completeStep1()
	draft.Delegate.Principal = person("Marta")

	assert.True(t, Validate(domain.StateStep2Delegate, draft, nil).Valid())

	draft.AddOns.IncludeSubstituteDelegate = true
	result := Validate(domain.StateStep2Delegate, draft, nil)
	assert.Len(t, result.Missing, 7)
	assert.Contains(t, RequiredFields(domain.StateStep2Delegate, draft), domain.FieldPath("delegate.substitute.email"))

	sub := person("Luis")
	sub.Email = ""
	draft.Delegate.Substitute = &sub
	result = Validate(domain.StateStep2Delegate, draft, nil)
	assert.Equal(t, []domain.FieldPath{"delegate.substitute.email"}, result.Missing)

	// Stale substitute data stays on the draft but is no longer required.
	draft.AddOns.IncludeSubstituteDelegate = false
	assert.True(t, Validate(domain.StateStep2Delegate, draft, nil).Valid())
	assert.NotContains(t, RequiredFields(domain.StateStep2Delegate, draft), domain.FieldPath("delegate.substitute.email"))
}

func TestStep3OnlyChecksPayment(t *testing.T) {
	empty := &domain.FormDraft{}

	result := Validate(domain.StateStep3Payment, empty, nil)
	assert.Len(t, result.Missing, 3)

	payment := &domain.PaymentDetails{Method: "card", HolderName: "Ana Ruiz"}
	result = Validate(domain.StateStep3Payment, empty, payment)
	assert.Equal(t, []domain.FieldPath{"payment.acceptTerms"}, result.Missing)

	payment.AcceptTerms = true
	assert.True(t, Validate(domain.StateStep3Payment, empty, payment).Valid())
}

func TestNilDraftMissesEverything(t *testing.T) {
	result := Validate(domain.StateStep1Entity, nil, nil)
	assert.Len(t, result.Missing, len(step1Fields))
}

func TestUnknownStepHasNoRequirements(t *testing.T) {
	assert.Empty(t, RequiredFields(domain.StateSubmitted, completeStep1()))
}

func TestEveryRequiredPathMapsToAStructField(t *testing.T) {
	draft := &domain.FormDraft{AddOns: domain.AddOns{IncludeSubstituteDelegate: true}}
	steps := []domain.State{domain.StateStep1Entity, domain.StateStep2Delegate, domain.StateStep3Payment}
	for _, step := range steps {
		for _, path := range RequiredFields(step, draft) {
			_, ok := structPaths[path]
			assert.True(t, ok, "no struct field for %s", path)
		}
	}
}

func TestFilledRejectsWhitespaceAndFalse(t *testing.T) {
	payment := &domain.PaymentDetails{Method: " \t", HolderName: "Ana Ruiz", AcceptTerms: false}
	result := Validate(domain.StateStep3Payment, nil, payment)
	assert.Equal(t, []domain.FieldPath{"payment.method", "payment.acceptTerms"}, result.Missing)
}

func TestValidateDoesNotTouchTheDraft(t *testing.T) {
	draft := completeStep1()
	draft.AddOns.IncludeSubstituteDelegate = true

	Validate(domain.StateStep2Delegate, draft, nil)
	assert.Nil(t, draft.Delegate.Substitute)
}
