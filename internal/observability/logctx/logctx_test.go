package logctx

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/stretchr/testify/assert"
)

type recordingLogger struct {
	observability.Logger
	fields []observability.Field
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	return &recordingLogger{Logger: observability.NopLogger(), fields: append(append([]observability.Field(nil), l.fields...), fields...)}
}

func TestFromOrFallsBack(t *testing.T) {
	fallback := observability.NopLogger()
	assert.Equal(t, fallback, FromOr(context.Background(), fallback))
}

func TestEnrichAddsFields(t *testing.T) {
	base := &recordingLogger{Logger: observability.NopLogger()}
	ctx := With(context.Background(), base)

	ctx = Enrich(ctx, observability.F("user_id", uint(7)))

	got, ok := From(ctx).(*recordingLogger)
	if assert.True(t, ok) {
		assert.Equal(t, []observability.Field{observability.F("user_id", uint(7))}, got.fields)
	}
}

func TestEnrichWithoutLoggerIsNoop(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, Enrich(ctx, observability.F("k", "v")))
}
