// internal/logger/logger_test.go
package logger

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{Logger: zap.New(core), config: DefaultConfig()}, logs
}

func TestNew_WritesLogFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogFile = filepath.Join(t.TempDir(), "sniper.log")

	log, err := New(cfg)
	require.NoError(t, err)
	log.Info("hello")
	require.NoError(t, log.Sync())
}

func TestWithOperation_AttachesCorrelationID(t *testing.T) {
	log, logs := observedLogger()

	log.WithOperation("buy").Info("submitted")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "buy", fields["operation"])
	assert.NotEmpty(t, fields["correlation_id"])
}

func TestWithMint_AttachesMint(t *testing.T) {
	log, logs := observedLogger()

	log.WithMint("6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump").Info("seen")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "6kPvKNrLqg23mApAvHzMKWohhVdSrA54HvrpYud8pump", logs.All()[0].ContextMap()["mint"])
}

func TestTrackPerformance_LogsDuration(t *testing.T) {
	log, logs := observedLogger()

	end := log.TrackPerformance("snipe")
	end()

	require.Equal(t, 2, logs.Len())
	done := logs.All()[1]
	assert.Equal(t, "Operation completed", done.Message)
	assert.Contains(t, done.ContextMap(), "duration")
}