package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidReturnURL  = errors.New("invalid_return_url")
	ErrNotConfigured     = errors.New("checkout_not_configured")
	ErrTooManyAttempts   = errors.New("too_many_checkout_attempts")
	ErrNoPendingContract = errors.New("no_pending_contract")
	ErrSnapshotInvalid   = errors.New("snapshot_invalid")
)

// ProviderError is any failed exchange with the payment-session endpoint.
// The draft is kept so the attempt can be retried.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("payment provider error (%d): %s", e.StatusCode, e.Message)
	case e.Message != "":
		return "payment provider error: " + e.Message
	case e.Err != nil:
		return "payment provider error: " + e.Err.Error()
	default:
		return "payment provider error"
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable is always true: nothing is committed on the provider failure path.
func (e *ProviderError) Retryable() bool { return true }
