package checkout

import (
	"encoding/json"
	"testing"

	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readyDraft() *domain.FormDraft {
	return &domain.FormDraft{
		Entity: domain.Entity{
			LegalName:    "Asociación Juvenil Río",
			TaxID:        "G11223344",
			Type:         "ocio",
			Address:      "Plaza Nueva 3, Sevilla",
			Phone:        "954000000",
			ChildBracket: "51-200",
		},
		Contractor: domain.Contractor{
			Name:   "Rocío Díaz",
			Email:  "rocio@example.org",
			Secret: "c0ntr4",
			Phone:  "600111222",
		},
		Delegate: domain.Delegate{
			Principal: domain.DelegatePerson{
				Name:       "Manuel Gómez",
				Email:      "manuel@example.org",
				Phone:      "600333444",
				NationalID: "11223344B",
				Secret:     "d3l",
			},
			Substitute: &domain.DelegatePerson{Name: "Sara León", Email: "sara@example.org"},
		},
		PlanTier: "51-200",
		AddOns:   domain.AddOns{IncludeCommunicationKit: true},
	}
}

func TestBuildPayload(t *testing.T) {
	p, err := BuildPayload(readyDraft(), "https://preview.custodia360.es/")
	require.NoError(t, err)

	assert.Equal(t, "51-200", p.Plan)
	assert.True(t, p.IncludeKit)
	assert.False(t, p.IncludeSubstitute)
	assert.Equal(t, "https://preview.custodia360.es", p.ReturnBaseURL)
	assert.Equal(t, "ocio", p.Entity.Sector)
	assert.Equal(t, "c0ntr4", p.Contractor.Secret)
	assert.Equal(t, "11223344B", p.Delegate.NationalID)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Sara León", "substitute data is not sent")
	assert.NotContains(t, string(raw), "d3l", "delegate secret is not sent")
	assert.Contains(t, string(raw), `"returnBaseUrl":"https://preview.custodia360.es"`)
}

func TestBuildPayloadRejectsRelativeBaseURL(t *testing.T) {
	for _, raw := range []string{"", "/contratar", "ftp://x.example", "https://"} {
		_, err := BuildPayload(readyDraft(), raw)
		assert.ErrorIs(t, err, ErrInvalidReturnURL, raw)
	}
}
