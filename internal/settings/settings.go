// Package settings loads cc-launcher runtime settings from flags, CCL_*
// environment variables and an optional YAML file, in that precedence.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ScottN-PV/cc-launcher/internal/fsutil"
	"github.com/ScottN-PV/cc-launcher/internal/launch"
	"github.com/ScottN-PV/cc-launcher/internal/paths"
	"github.com/ScottN-PV/cc-launcher/internal/validation"
)

// EnvPrefix prefixes every environment override, e.g. CCL_LOG_LEVEL.
const EnvPrefix = "CCL"

// Settings are the knobs that are not part of the persisted document.
type Settings struct {
	ConfigDir   string        `mapstructure:"config_dir"`
	LogLevel    string        `mapstructure:"log_level"`
	Verbose     bool          `mapstructure:"verbose"`
	Offline     bool          `mapstructure:"offline"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	CLI         string        `mapstructure:"cli"`
	Shell       string        `mapstructure:"shell"`
	RegistryURL string        `mapstructure:"registry_url"`
	Concurrency int           `mapstructure:"concurrency"`
}

// flagKeys maps settings keys to persistent flag names.
var flagKeys = map[string]string{
	"config_dir": "config-dir",
	"log_level":  "log-level",
	"verbose":    "verbose",
	"offline":    "offline",
	"shell":      "shell",
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		ConfigDir:   paths.ClaudeDir(),
		LogLevel:    "info",
		LockTimeout: fsutil.DefaultLockTimeout,
		CLI:         launch.DefaultCLI,
		RegistryURL: validation.DefaultRegistryURL,
		Concurrency: validation.DefaultConcurrency,
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("config_dir", d.ConfigDir)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("offline", d.Offline)
	v.SetDefault("lock_timeout", d.LockTimeout)
	v.SetDefault("cli", d.CLI)
	v.SetDefault("shell", d.Shell)
	v.SetDefault("registry_url", d.RegistryURL)
	v.SetDefault("concurrency", d.Concurrency)
}

// Load resolves settings. file may be empty for the default location; a
// missing file is not an error. flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag %s: %w", name, err)
				}
			}
		}
	}

	if file == "" {
		file = filepath.Join(v.GetString("config_dir"), filepath.Base(paths.SettingsFile()))
	}
	if _, err := os.Stat(file); err == nil {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading settings file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking settings file: %w", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate rejects settings that cannot work.
func (s *Settings) Validate() error {
	if s.ConfigDir == "" {
		return errors.New("config_dir must not be empty")
	}
	if s.LockTimeout <= 0 {
		return fmt.Errorf("lock_timeout must be positive, got %s", s.LockTimeout)
	}
	if strings.TrimSpace(s.CLI) == "" {
		return errors.New("cli must not be empty")
	}
	if s.Shell != "" {
		if _, ok := launch.ParseShell(s.Shell); !ok {
			return fmt.Errorf("unknown shell %q", s.Shell)
		}
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	return nil
}

// ConfigFile returns the config document path.
func (s *Settings) ConfigFile() string {
	return paths.ConfigFileIn(s.ConfigDir)
}

// ValidationCacheFile returns the validation cache path.
func (s *Settings) ValidationCacheFile() string {
	return paths.ValidationCacheFileIn(s.ConfigDir)
}

// LogFile returns the log file path.
func (s *Settings) LogFile() string {
	return filepath.Join(s.ConfigDir, filepath.Base(paths.LogFile()))
}
