package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/app/internal/observability/logctx"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DefaultSlowThreshold marks a statement as slow.
const DefaultSlowThreshold = 200 * time.Millisecond

// queryLogger routes gorm's SQL logging into the request-scoped logger.
// Record-not-found is an expected outcome and is never logged as an error.
type queryLogger struct {
	base          observability.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func newQueryLogger(base observability.Logger, slow time.Duration) *queryLogger {
	if base == nil {
		base = observability.NopLogger()
	}
	if slow <= 0 {
		slow = DefaultSlowThreshold
	}
	return &queryLogger{
		base:          base.With(observability.F("component", "gorm")),
		level:         gormlogger.Warn,
		slowThreshold: slow,
	}
}

func (l *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	c := *l
	c.level = level
	return &c
}

func (l *queryLogger) logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, l.base)
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		l.logger(ctx).Info("gorm_info", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		l.logger(ctx).Warn("gorm_warn", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		l.logger(ctx).Error("gorm_error", observability.F("detail", fmt.Sprintf(msg, args...)))
	}
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.logger(ctx).Error("sql_error",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_ms", elapsed.Milliseconds()),
			observability.F("error", err.Error()),
		)
	case elapsed >= l.slowThreshold && l.level >= gormlogger.Warn:
		sql, rows := fc()
		l.logger(ctx).Warn("sql_slow",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_ms", elapsed.Milliseconds()),
			observability.F("threshold_ms", l.slowThreshold.Milliseconds()),
		)
	case l.level >= gormlogger.Info:
		sql, rows := fc()
		l.logger(ctx).Debug("sql",
			observability.F("sql", sql),
			observability.F("rows", rows),
			observability.F("elapsed_ms", elapsed.Milliseconds()),
		)
	}
}
