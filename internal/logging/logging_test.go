package logging_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ScottN-PV/cc-launcher/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := logging.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := logging.ParseLevel("loud")
	assert.Error(t, err)
}

func TestForAddsSubsystem(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.For(logging.New(&buf, slog.LevelDebug), logging.SubsystemStore)
	logger.Debug("saved", "path", "/x")

	assert.Contains(t, buf.String(), "subsystem=store")
	assert.Contains(t, buf.String(), "msg=saved")
}

func TestForNilLogger(t *testing.T) {
	logger := logging.For(nil, logging.SubsystemCLI)
	require.NotNil(t, logger)
	logger.Info("dropped")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "cc.log")
	f, err := logging.OpenFile(path)
	require.NoError(t, err)
	logging.New(f, slog.LevelInfo).Info("hello")
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}
