package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSessionRequired     = errors.New("session_required")
	ErrAlreadySubmitted    = errors.New("already_submitted")
	ErrSubmissionInFlight  = errors.New("submission_in_flight")
	ErrInvalidStep         = errors.New("invalid_step")
	ErrInvalidReturnStatus = errors.New("invalid_return_status")
)

// FieldPath addresses one form field, e.g. "delegate.principal.email".
type FieldPath string

// ValidationError lists the required fields still missing on a step.
type ValidationError struct {
	Step    State
	Missing []FieldPath
}

func (e *ValidationError) Error() string {
	paths := make([]string, 0, len(e.Missing))
	for _, path := range e.Missing {
		paths = append(paths, string(path))
	}
	return fmt.Sprintf("%s: missing required fields: %s", e.Step, strings.Join(paths, ", "))
}

// IncompleteStepError refuses checkout because an earlier step has no stored data.
type IncompleteStepError struct {
	Step State
}

func (e *IncompleteStepError) Error() string {
	return fmt.Sprintf("step %d (%s) is incomplete", e.Step.Number(), e.Step)
}
