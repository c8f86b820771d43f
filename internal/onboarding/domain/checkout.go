package domain

import "time"

// CheckoutPayload is the request body sent to the payment-session endpoint.
// It is built once per attempt and never mutated after send.
type CheckoutPayload struct {
	Plan              string             `json:"plan"`
	IncludeKit        bool               `json:"includeKit"`
	IncludeSubstitute bool               `json:"includeSubstitute"`
	ReturnBaseURL     string             `json:"returnBaseUrl"`
	Entity            CheckoutEntity     `json:"entity"`
	Contractor        CheckoutContractor `json:"contractor"`
	Delegate          CheckoutDelegate   `json:"delegate"`
}

type CheckoutEntity struct {
	Name         string `json:"name"`
	TaxID        string `json:"taxId"`
	Address      string `json:"address"`
	Phone        string `json:"phone"`
	Sector       string `json:"sector"`
	ChildBracket string `json:"childBracket"`
}

type CheckoutContractor struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Secret string `json:"secret"`
	Phone  string `json:"phone"`
}

type CheckoutDelegate struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	NationalID string `json:"nationalId"`
}

// CheckoutResult tells the page where to redirect and how long to wait first.
type CheckoutResult struct {
	RedirectURL       string        `json:"redirectUrl"`
	RedirectDelay     time.Duration `json:"-"`
	RedirectDelayMS   int64         `json:"redirectDelayMs"`
	ContractReference string        `json:"contractReference,omitempty"`
}

// ReturnStatus is the outcome reported by the payment provider redirect.
type ReturnStatus string

const (
	ReturnSuccess   ReturnStatus = "success"
	ReturnCancelled ReturnStatus = "cancelled"
	ReturnFailed    ReturnStatus = "failed"
)

func (s ReturnStatus) Valid() bool {
	switch s {
	case ReturnSuccess, ReturnCancelled, ReturnFailed:
		return true
	default:
		return false
	}
}
