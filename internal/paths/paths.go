package paths

import (
	"os"
	"path/filepath"
)

// EnvConfigDir overrides the directory that holds every cc-launcher file.
const EnvConfigDir = "CCL_CONFIG_DIR"

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

// ClaudeDir returns ~/.claude, or $CCL_CONFIG_DIR when set.
func ClaudeDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	return filepath.Join(home(), ".claude")
}

// ConfigFile returns ~/.claude/cc-launch.json.
func ConfigFile() string {
	return ConfigFileIn(ClaudeDir())
}

// ConfigFileIn returns the config document path inside dir.
func ConfigFileIn(dir string) string {
	return filepath.Join(dir, "cc-launch.json")
}

// BackupFile returns the sibling backup of a config document.
func BackupFile(configFile string) string {
	return trimExt(configFile) + ".backup"
}

// LockFile returns the sibling lock marker of a config document.
func LockFile(configFile string) string {
	return trimExt(configFile) + ".lock"
}

// ValidationCacheFile returns ~/.claude/cc-validation-cache.json.
func ValidationCacheFile() string {
	return ValidationCacheFileIn(ClaudeDir())
}

// ValidationCacheFileIn returns the validation cache path inside dir.
func ValidationCacheFileIn(dir string) string {
	return filepath.Join(dir, "cc-validation-cache.json")
}

// LogFile returns ~/.claude/cc-launcher.log.
func LogFile() string {
	return filepath.Join(ClaudeDir(), "cc-launcher.log")
}

// SettingsFile returns ~/.claude/cc-launcher.yaml, the optional runtime settings file.
func SettingsFile() string {
	return filepath.Join(ClaudeDir(), "cc-launcher.yaml")
}

func trimExt(p string) string {
	return p[:len(p)-len(filepath.Ext(p))]
}
