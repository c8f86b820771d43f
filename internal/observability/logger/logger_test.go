package logger

import (
	"context"
	"testing"

	obscontext "github.com/ramonsune/custodia360/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithDraftSession(ctx, "sess-1")

	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, SessionFingerprint("sess-1"), fields["draft_session"])
	assert.NotEqual(t, "sess-1", fields["draft_session"])
	assert.Equal(t, "", fields["trace_id"])
}

func TestOperationFromSQL(t *testing.T) {
	assert.Equal(t, "INSERT", operationFromSQL(`INSERT INTO "onboarding_drafts" ("key") VALUES (?)`))
	assert.Equal(t, "SELECT", operationFromSQL("select * from pending_contracts"))
	assert.Equal(t, "UNKNOWN", operationFromSQL(""))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestRedactingCoreMasksSensitiveFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(newRedactingCore(core)).With(zap.String("email", "lucia@example.org"))

	log.Info("draft saved",
		zap.String("secret", "s3cret"),
		zap.String("step", "step1_entity"),
		zap.String("Tax_ID", "G12345678"),
	)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[redacted]", fields["email"])
	assert.Equal(t, "[redacted]", fields["secret"])
	assert.Equal(t, "[redacted]", fields["Tax_ID"])
	assert.Equal(t, "step1_entity", fields["step"])
}

func TestSessionFingerprintIsStable(t *testing.T) {
	a := SessionFingerprint("5f1d7a0e-0000-4000-8000-000000000001")
	assert.Len(t, a, 12)
	assert.Equal(t, a, SessionFingerprint("5f1d7a0e-0000-4000-8000-000000000001"))
	assert.NotEqual(t, a, SessionFingerprint("5f1d7a0e-0000-4000-8000-000000000002"))
}
