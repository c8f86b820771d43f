package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/ramonsune/custodia360/internal/observability/tracing"
	"github.com/ramonsune/custodia360/internal/onboarding/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout  = 12 * time.Second
	maxResponseBody = 64 << 10
)

// SessionClient opens a payment session and returns the provider redirect URL.
type SessionClient interface {
	CreateSession(ctx context.Context, payload domain.CheckoutPayload) (string, error)
}

type sessionResponse struct {
	Success bool    `json:"success"`
	URL     *string `json:"url"`
	Error   *string `json:"error"`
}

type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	newKey   func() string
}

func NewHTTPClient(endpoint, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		client:   &http.Client{Timeout: timeout},
		newKey:   func() string { return ulid.Make().String() },
	}
}

// CreateSession posts payload once. Every failure is a *ProviderError.
func (c *HTTPClient) CreateSession(ctx context.Context, payload domain.CheckoutPayload) (string, error) {
	if c.endpoint == "" {
		return "", &ProviderError{Message: "checkout endpoint not configured", Err: ErrNotConfigured}
	}

	ctx, span := otel.Tracer("custodia360/checkout").Start(ctx, "checkout.create_session",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("checkout.plan", payload.Plan),
			attribute.Bool("checkout.include_kit", payload.IncludeKit),
			attribute.Bool("checkout.include_substitute", payload.IncludeSubstitute),
		),
	)
	defer span.End()

	redirect, err := c.do(ctx, span, payload)
	if err != nil {
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, "checkout session failed")
	}
	return redirect, err
}

func (c *HTTPClient) do(ctx context.Context, span trace.Span, payload domain.CheckoutPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Message: "encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Idempotency-Key", c.newKey())
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	tracing.InjectContext(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ProviderError{Err: err}
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	var out sessionResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := http.StatusText(resp.StatusCode)
		if decodeErr == nil && out.Error != nil && strings.TrimSpace(*out.Error) != "" {
			msg = strings.TrimSpace(*out.Error)
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: "malformed response", Err: decodeErr}
	}
	if !out.Success {
		msg := "session rejected"
		if out.Error != nil && strings.TrimSpace(*out.Error) != "" {
			msg = strings.TrimSpace(*out.Error)
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out.URL == nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: "missing redirect url"}
	}
	u, ok := absoluteURL(*out.URL)
	if !ok {
		return "", &ProviderError{StatusCode: resp.StatusCode, Message: "invalid redirect url", Err: errors.New(strings.TrimSpace(*out.URL))}
	}
	return u.String(), nil
}
