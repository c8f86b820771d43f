package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ramonsune/custodia360/internal/checkout"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type      string            `json:"type"`
	Message   string            `json:"message"`
	Step      int               `json:"step,omitempty"`
	State     domain.State      `json:"state,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

// bindingError converts request binding failures into field errors.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range verrs {
		out.Errors = append(out.Errors, ValidationError{
			Field:   lowerFirst(fe.Field()),
			Code:    fe.Tag(),
			Message: "invalid value",
		})
	}
	return out
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var stepErr *domain.ValidationError
	if errors.As(err, &stepErr) {
		fields := make([]ValidationError, 0, len(stepErr.Missing))
		for _, path := range stepErr.Missing {
			fields = append(fields, ValidationError{
				Field:   string(path),
				Code:    "required",
				Message: "field is required",
			})
		}
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Step:    stepErr.Step.Number(),
			State:   stepErr.Step,
			Errors:  fields,
		}
	}

	var incomplete *domain.IncompleteStepError
	if errors.As(err, &incomplete) {
		return http.StatusConflict, errorPayload{
			Type:    "incomplete_step",
			Message: incomplete.Error(),
			Step:    incomplete.Step.Number(),
			State:   incomplete.Step,
		}
	}

	if errors.Is(err, checkout.ErrNotConfigured) {
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "payment checkout is not available",
		}
	}

	var providerErr *checkout.ProviderError
	if errors.As(err, &providerErr) {
		return http.StatusBadGateway, errorPayload{
			Type:      "payment_provider_error",
			Message:   "payment session could not be created",
			Retryable: providerErr.Retryable(),
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, domain.ErrSessionRequired),
		errors.Is(err, domain.ErrInvalidReturnStatus):
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	case errors.Is(err, domain.ErrSubmissionInFlight):
		return http.StatusConflict, errorPayload{
			Type:    "submission_in_flight",
			Message: "a checkout attempt is already in progress",
		}
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return http.StatusConflict, errorPayload{
			Type:    "already_submitted",
			Message: "onboarding already submitted",
		}
	case errors.Is(err, checkout.ErrTooManyAttempts):
		return http.StatusTooManyRequests, errorPayload{
			Type:      "too_many_requests",
			Message:   "too many checkout attempts",
			Retryable: true,
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, domain.ErrInvalidStep):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code recorded on the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	var providerErr *checkout.ProviderError
	if errors.As(err, &providerErr) && providerErr.StatusCode != 0 {
		code = http.StatusText(providerErr.StatusCode)
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationErrorField(code string) string {
	switch code {
	case domain.ErrSessionRequired.Error():
		return "session"
	case domain.ErrInvalidReturnStatus.Error():
		return "status"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}
