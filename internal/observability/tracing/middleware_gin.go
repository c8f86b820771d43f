package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/ramonsune/custodia360/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "custodia360/http"

var untracedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// ErrorTyper names the client-facing error type for a request error.
type ErrorTyper func(error) string

// GinMiddleware opens a server span per onboarding request. The span carries
// the route, the onboarding step when the route has one and whether the caller
// already held a draft session. Session ids themselves are never recorded.
func GinMiddleware(errorType ...ErrorTyper) gin.HandlerFunc {
	var typer ErrorTyper
	if len(errorType) > 0 {
		typer = errorType[0]
	}
	tracer := otel.Tracer(tracerName)

	return func(c *gin.Context) {
		if _, skip := untracedPaths[c.Request.URL.Path]; skip {
			c.Next()
			return
		}

		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withRequestBaggage(ctx, requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		_, cookieErr := c.Request.Cookie("c360_draft_sid")
		span.SetAttributes(attribute.Bool("onboarding.session_present", cookieErr == nil))

		c.Request = c.Request.WithContext(ctx)
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(start).Milliseconds()),
		}
		if step := c.Param("step"); step != "" {
			attrs = append(attrs, attribute.String("onboarding.step", step))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		lastErr := c.Errors.Last()
		switch {
		case status >= http.StatusInternalServerError:
			if lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		case status >= http.StatusBadRequest && lastErr != nil && typer != nil:
			span.AddEvent("onboarding.rejected", trace.WithAttributes(
				attribute.String("error.type", typer(lastErr.Err)),
			))
		}
	}
}

func withRequestBaggage(ctx context.Context, requestID string) context.Context {
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
