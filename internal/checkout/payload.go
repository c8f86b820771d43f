package checkout

import (
	"net/url"
	"strings"

	"github.com/ramonsune/custodia360/internal/onboarding/domain"
)

// BuildPayload assembles the payment-session request from a validated draft.
// Substitute data is never sent; only the flag travels.
func BuildPayload(draft *domain.FormDraft, returnBaseURL string) (domain.CheckoutPayload, error) {
	base, err := normalizeBaseURL(returnBaseURL)
	if err != nil {
		return domain.CheckoutPayload{}, err
	}
	if draft == nil {
		return domain.CheckoutPayload{}, &domain.IncompleteStepError{Step: domain.StateStep1Entity}
	}

	principal := draft.Delegate.Principal
	return domain.CheckoutPayload{
		Plan:              draft.PlanTier,
		IncludeKit:        draft.AddOns.IncludeCommunicationKit,
		IncludeSubstitute: draft.AddOns.IncludeSubstituteDelegate,
		ReturnBaseURL:     base,
		Entity: domain.CheckoutEntity{
			Name:         strings.TrimSpace(draft.Entity.LegalName),
			TaxID:        strings.TrimSpace(draft.Entity.TaxID),
			Address:      strings.TrimSpace(draft.Entity.Address),
			Phone:        strings.TrimSpace(draft.Entity.Phone),
			Sector:       strings.TrimSpace(draft.Entity.Type),
			ChildBracket: strings.TrimSpace(draft.Entity.ChildBracket),
		},
		Contractor: domain.CheckoutContractor{
			Name:   strings.TrimSpace(draft.Contractor.Name),
			Email:  strings.TrimSpace(draft.Contractor.Email),
			Secret: draft.Contractor.Secret,
			Phone:  strings.TrimSpace(draft.Contractor.Phone),
		},
		Delegate: domain.CheckoutDelegate{
			Name:       strings.TrimSpace(principal.Name),
			Email:      strings.TrimSpace(principal.Email),
			Phone:      strings.TrimSpace(principal.Phone),
			NationalID: strings.TrimSpace(principal.NationalID),
		},
	}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	u, ok := absoluteURL(raw)
	if !ok {
		return "", ErrInvalidReturnURL
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}

func absoluteURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, false
	}
	return u, true
}
