package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger("storefront", "test", Options{File: path})
	require.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"service":"storefront"`)
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	_, err := NewLogger("storefront", "test", Options{Level: "loud"})
	assert.Error(t, err)
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger("storefront", "test", Options{})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))

	logger, err = NewLogger("storefront", "test", Options{Level: "debug"})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o644))

	logger, err := NewLogger("storefront", "test", Options{File: path})
	require.NoError(t, err)
	logger.Info("later")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "earlier\n"))
	assert.Contains(t, string(data), `"msg":"later"`)
}

func TestWithTraceFillsBlanks(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	WithTrace(zap.New(core), "abc", "").Info("x")

	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, "abc", fields["trace_id"])
	assert.Equal(t, "unknown", fields["span_id"])
}
