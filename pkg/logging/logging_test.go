package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.log")
	logger, err := New(Config{Level: "warn", Encoding: "json", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("record failed", zap.String("word", "apple"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"message":"record failed"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"word":"apple"`)
}

func TestNewConsoleDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.log")
	logger, err := New(Config{Level: "DEBUG", OutputPaths: []string{path}})
	require.NoError(t, err)

	logger.Debug("resolving source")
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "DEBUG"), "console encoding uses capital levels: %s", raw)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
