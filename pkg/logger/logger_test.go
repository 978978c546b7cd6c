package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "facturier/internal/core/context"
)

func TestFromContext_EnrichesTraceAndUser(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := WithLogger(context.Background(), base)
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "user-42"})

	Info(ctx, "invoice number generated", "number", "FR-2024-000001")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "t-1", fields["trace_id"])
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "user-42", fields["user_id"])
		assert.Equal(t, "FR-2024-000001", fields["number"])
	}
}

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud", OutputPaths: []string{"stderr"}})
	assert.NoError(t, err)
	assert.NotNil(t, l)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
}

func TestWithNumbering_TagsEntries(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := WithLogger(context.Background(), &Logger{zap.New(core).Sugar()})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "user-42"})

	ctx = WithNumbering(ctx, "french", "")
	Info(ctx, "numbering lock acquired")

	ctx = WithNumbering(ctx, "french", "FR-2024-000007")
	Info(ctx, "invoice created")

	entries := logs.All()
	if assert.Len(t, entries, 2) {
		first := entries[0].ContextMap()
		assert.Equal(t, "french", first[FieldNumberingFormat])
		assert.NotContains(t, first, FieldInvoiceNumber)
		assert.Equal(t, "user-42", first[FieldUserID])

		// the second call replaces the fields instead of adding a duplicate set
		assert.Len(t, entries[1].Context, 3)
		second := entries[1].ContextMap()
		assert.Equal(t, "FR-2024-000007", second[FieldInvoiceNumber])
		assert.Equal(t, "user-42", second[FieldUserID])
	}
}
