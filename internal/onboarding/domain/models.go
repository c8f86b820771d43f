package domain

import (
	"strings"
	"time"
)

// DraftName is the fixed logical name of the onboarding draft record.
const DraftName = "custodia360_contratacion_draft"

// DraftKey scopes the draft record to one draft session.
func DraftKey(sessionID string) string {
	return DraftName + ":" + sessionID
}

type Entity struct {
	LegalName    string `json:"legalName" validate:"filled"`
	TaxID        string `json:"taxId" validate:"filled"`
	Type         string `json:"type" validate:"filled"`
	Address      string `json:"address" validate:"filled"`
	Phone        string `json:"phone" validate:"filled"`
	Site         string `json:"site,omitempty"`
	ChildBracket string `json:"childBracket" validate:"filled"`
}

type Contractor struct {
	Name       string `json:"name" validate:"filled"`
	NationalID string `json:"nationalId" validate:"filled"`
	Role       string `json:"role" validate:"filled"`
	Phone      string `json:"phone" validate:"filled"`
	Email      string `json:"email" validate:"filled"`
	Secret     string `json:"secret" validate:"filled"`
}

type AdministrativeContact struct {
	Name         string `json:"name" validate:"filled"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	BillingEmail string `json:"billingEmail" validate:"filled"`
}

type DelegatePerson struct {
	Name          string `json:"name" validate:"filled"`
	NationalID    string `json:"nationalId" validate:"filled"`
	BirthDate     string `json:"birthDate" validate:"filled"`
	Phone         string `json:"phone" validate:"filled"`
	Email         string `json:"email" validate:"filled"`
	Secret        string `json:"secret" validate:"filled"`
	Role          string `json:"role" validate:"filled"`
	PriorTraining string `json:"priorTraining,omitempty"`
}

type Delegate struct {
	Principal  DelegatePerson  `json:"principal"`
	Substitute *DelegatePerson `json:"substitute,omitempty"`
}

type AddOns struct {
	IncludeCommunicationKit   bool `json:"includeCommunicationKit"`
	IncludeSubstituteDelegate bool `json:"includeSubstituteDelegate"`
}

// FormDraft is the accumulated, not yet submitted onboarding record.
type FormDraft struct {
	Entity                Entity                `json:"entity"`
	Contractor            Contractor            `json:"contractor"`
	AdministrativeContact AdministrativeContact `json:"administrativeContact"`
	Delegate              Delegate              `json:"delegate"`
	PlanTier              string                `json:"planTier" validate:"filled"`
	AddOns                AddOns                `json:"addOns"`
	SavedAt               time.Time             `json:"savedAt"`
}

// PaymentDetails is collected on the payment step and never persisted.
type PaymentDetails struct {
	Method      string `json:"method" validate:"filled"`
	HolderName  string `json:"holderName" validate:"filled"`
	AcceptTerms bool   `json:"acceptTerms" validate:"filled"`
}

// HasEntity reports whether any entity data was captured.
func (d *FormDraft) HasEntity() bool {
	return d != nil && d.Entity != (Entity{})
}

// HasDelegate reports whether any principal delegate data was captured.
func (d *FormDraft) HasDelegate() bool {
	return d != nil && d.Delegate.Principal != (DelegatePerson{})
}

// IsEmpty reports whether the user typed nothing yet. Add-on flags alone do not count.
func (d *FormDraft) IsEmpty() bool {
	if d == nil {
		return true
	}
	if d.HasEntity() || d.HasDelegate() {
		return false
	}
	if d.Contractor != (Contractor{}) || d.AdministrativeContact != (AdministrativeContact{}) {
		return false
	}
	if d.Delegate.Substitute != nil && *d.Delegate.Substitute != (DelegatePerson{}) {
		return false
	}
	return strings.TrimSpace(d.PlanTier) == ""
}

// Clone returns a deep copy.
func (d *FormDraft) Clone() *FormDraft {
	if d == nil {
		return nil
	}
	out := *d
	if d.Delegate.Substitute != nil {
		sub := *d.Delegate.Substitute
		out.Delegate.Substitute = &sub
	}
	return &out
}

// WipeSecrets blanks the access-credential secrets held in memory.
func (d *FormDraft) WipeSecrets() {
	if d == nil {
		return
	}
	d.Contractor.Secret = ""
	d.Delegate.Principal.Secret = ""
	if d.Delegate.Substitute != nil {
		d.Delegate.Substitute.Secret = ""
	}
}

// DraftPatch carries partial form input. Present sections replace the stored section.
type DraftPatch struct {
	Entity                *Entity                `json:"entity,omitempty"`
	Contractor            *Contractor            `json:"contractor,omitempty"`
	AdministrativeContact *AdministrativeContact `json:"administrativeContact,omitempty"`
	Principal             *DelegatePerson        `json:"principal,omitempty"`
	Substitute            *DelegatePerson        `json:"substitute,omitempty"`
	PlanTier              *string                `json:"planTier,omitempty"`
	AddOns                *AddOns                `json:"addOns,omitempty"`
}

// Apply merges the patch into d.
func (p DraftPatch) Apply(d *FormDraft) {
	if d == nil {
		return
	}
	if p.Entity != nil {
		d.Entity = *p.Entity
	}
	if p.Contractor != nil {
		d.Contractor = *p.Contractor
	}
	if p.AdministrativeContact != nil {
		d.AdministrativeContact = *p.AdministrativeContact
	}
	if p.Principal != nil {
		d.Delegate.Principal = *p.Principal
	}
	if p.Substitute != nil {
		sub := *p.Substitute
		d.Delegate.Substitute = &sub
	}
	if p.PlanTier != nil {
		d.PlanTier = strings.TrimSpace(*p.PlanTier)
	}
	if p.AddOns != nil {
		d.AddOns = *p.AddOns
	}
}
