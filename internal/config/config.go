package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for a specloom session.
// Values are populated from .specloom.yaml, SPECLOOM_* env vars, and CLI flags.
type Config struct {
	SpecPath      string        `mapstructure:"spec_path"`
	StatePath     string        `mapstructure:"state_path"`
	JournalPath   string        `mapstructure:"journal_path"`
	TelemetryPath string        `mapstructure:"telemetry_path"`
	Strategy      string        `mapstructure:"strategy"`
	LockTimeout   time.Duration `mapstructure:"lock_timeout"`
	Debounce      time.Duration `mapstructure:"debounce"`
	Verbose       bool          `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("spec_path", "SPEC.md")
	viper.SetDefault("state_path", ".specloom.state.toml")
	viper.SetDefault("journal_path", ".specloom.journal.db")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("strategy", "critical_path")
	viper.SetDefault("lock_timeout", 5*time.Second)
	viper.SetDefault("debounce", 100*time.Millisecond)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
