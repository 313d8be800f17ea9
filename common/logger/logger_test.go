package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	l, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, l)
	l, err = ParseLogLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)
	_, err = ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestNewWritesFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DisableConsole = true
	cfg.EnableFile = true
	cfg.EnableJson = true
	cfg.FileName = filepath.Join(dir, "nav.log")

	l, err := New(&cfg)
	require.NoError(t, err)
	l.Info("tile committed")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(cfg.FileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tile committed")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
