package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Placeholder trace identity for startup, shutdown and other work that does
// not run inside a request.
const (
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

const unknownID = "unknown"

type Options struct {
	Level string // zap level name, info when empty
	File  string // optional second sink next to stdout
}

// NewLogger builds the storefront's JSON logger. Every entry carries the
// service and env fields. Sampling is off so bursts of payment callbacks are
// never thinned out.
func NewLogger(service, env string, opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	sinks := []string{"stdout"}
	if opts.File != "" {
		if err := touch(opts.File); err != nil {
			return nil, fmt.Errorf("log file %s: %w", opts.File, err)
		}
		sinks = append(sinks, opts.File)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder

	cfg := zap.Config{
		Level:            level,
		Encoding:         "json",
		EncoderConfig:    enc,
		OutputPaths:      sinks,
		ErrorOutputPaths: sinks,
		InitialFields:    map[string]any{"service": service, "env": env},
	}
	return cfg.Build()
}

// MustNewLogger panics on error. Only main should call it.
func MustNewLogger(service, env string, opts Options) *zap.Logger {
	l, err := NewLogger(service, env, opts)
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace pins trace_id and span_id on l, substituting "unknown" for blanks.
// A nil l falls back to the global logger.
func WithTrace(l *zap.Logger, traceID, spanID string) *zap.Logger {
	if l == nil {
		l = zap.L()
	}
	return l.With(
		zap.String("trace_id", orUnknown(traceID)),
		zap.String("span_id", orUnknown(spanID)),
	)
}

func parseLevel(name string) (zap.AtomicLevel, error) {
	if name == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}
	level, err := zap.ParseAtomicLevel(name)
	if err != nil {
		return zap.AtomicLevel{}, fmt.Errorf("log level %q: %w", name, err)
	}
	return level, nil
}

func orUnknown(id string) string {
	if id == "" {
		return unknownID
	}
	return id
}

// touch creates path and its parent directories, leaving existing content alone.
func touch(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}
