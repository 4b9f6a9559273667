package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// resetViper clears all viper state between tests to avoid cross-contamination.
func resetViper() {
	viper.Reset()
}

func TestLoad_Defaults(t *testing.T) {
	resetViper()

	cfg := Load()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"SpecPath", cfg.SpecPath, "SPEC.md"},
		{"StatePath", cfg.StatePath, ".specloom.state.toml"},
		{"JournalPath", cfg.JournalPath, ".specloom.journal.db"},
		{"TelemetryPath", cfg.TelemetryPath, ""},
		{"Strategy", cfg.Strategy, "critical_path"},
		{"LockTimeout", cfg.LockTimeout, 5 * time.Second},
		{"Debounce", cfg.Debounce, 100 * time.Millisecond},
		{"Verbose", cfg.Verbose, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		field  func(Config) any
		want   any
	}{
		{
			name:   "spec_path",
			envKey: "SPECLOOM_SPEC_PATH",
			envVal: "/srv/project/SPEC.md",
			field:  func(c Config) any { return c.SpecPath },
			want:   "/srv/project/SPEC.md",
		},
		{
			name:   "journal_path",
			envKey: "SPECLOOM_JOURNAL_PATH",
			envVal: "/tmp/journal.db",
			field:  func(c Config) any { return c.JournalPath },
			want:   "/tmp/journal.db",
		},
		{
			name:   "strategy",
			envKey: "SPECLOOM_STRATEGY",
			envVal: "shortest_first",
			field:  func(c Config) any { return c.Strategy },
			want:   "shortest_first",
		},
		{
			name:   "lock_timeout",
			envKey: "SPECLOOM_LOCK_TIMEOUT",
			envVal: "30s",
			field:  func(c Config) any { return c.LockTimeout },
			want:   30 * time.Second,
		},
		{
			name:   "verbose",
			envKey: "SPECLOOM_VERBOSE",
			envVal: "true",
			field:  func(c Config) any { return c.Verbose },
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()
			// Set env prefix so SPECLOOM_* env vars map to config keys.
			viper.SetEnvPrefix("SPECLOOM")
			viper.AutomaticEnv()

			os.Setenv(tt.envKey, tt.envVal)
			defer os.Unsetenv(tt.envKey)

			cfg := Load()
			got := tt.field(cfg)
			if got != tt.want {
				t.Errorf("%s: got %v (%T), want %v (%T)", tt.name, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestLoad_DefaultsAreNotZero(t *testing.T) {
	resetViper()

	cfg := Load()

	if cfg.SpecPath == "" {
		t.Error("SpecPath should not be empty")
	}
	if cfg.Strategy == "" {
		t.Error("Strategy should not be empty")
	}
	if cfg.LockTimeout == 0 {
		t.Error("LockTimeout should not be zero")
	}
	if cfg.Debounce == 0 {
		t.Error("Debounce should not be zero")
	}
}
