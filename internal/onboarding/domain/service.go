package domain

import "context"

// Session is the coordinator view of one draft session.
type Session struct {
	ID      string      `json:"-"`
	State   State       `json:"state"`
	Step    int         `json:"step"`
	Draft   *FormDraft  `json:"draft"`
	Resumed bool        `json:"resumed"`
	Missing []FieldPath `json:"missing,omitempty"`
}

type Service interface {
	Begin(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, sessionID string, patch DraftPatch) (*Session, error)
	Flush(ctx context.Context, sessionID string) error
	Navigate(ctx context.Context, sessionID string, state State) (*Session, error)
	SubmitEntity(ctx context.Context, sessionID string, patch DraftPatch) (*Session, error)
	SubmitDelegate(ctx context.Context, sessionID string, patch DraftPatch) (*Session, error)
	Quote(ctx context.Context, sessionID string) (PricingBreakdown, error)
	Checkout(ctx context.Context, sessionID string, payment PaymentDetails, returnBaseURL string) (*CheckoutResult, error)
	Return(ctx context.Context, sessionID string, status ReturnStatus) (*Session, error)
}
