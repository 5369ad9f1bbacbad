package paths_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ScottN-PV/cc-launcher/internal/paths"
	"github.com/stretchr/testify/assert"
)

func TestClaudeDir(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, "")
	home, _ := os.UserHomeDir()
	assert.True(t, strings.HasPrefix(paths.ClaudeDir(), home))
	assert.True(t, strings.HasSuffix(paths.ClaudeDir(), ".claude"))
}

func TestClaudeDirOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(paths.EnvConfigDir, dir)
	assert.Equal(t, dir, paths.ClaudeDir())
	assert.Equal(t, filepath.Join(dir, "cc-launch.json"), paths.ConfigFile())
	assert.Equal(t, filepath.Join(dir, "cc-validation-cache.json"), paths.ValidationCacheFile())
}

func TestSiblingFiles(t *testing.T) {
	cfg := filepath.Join("some", "dir", "cc-launch.json")
	assert.Equal(t, filepath.Join("some", "dir", "cc-launch.backup"), paths.BackupFile(cfg))
	assert.Equal(t, filepath.Join("some", "dir", "cc-launch.lock"), paths.LockFile(cfg))
}

func TestLogAndSettingsFiles(t *testing.T) {
	assert.True(t, strings.HasSuffix(paths.LogFile(), "cc-launcher.log"))
	assert.True(t, strings.HasSuffix(paths.SettingsFile(), "cc-launcher.yaml"))
}
