// Package config loads recipesync settings from YAML or TOML files.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config is the persistent configuration. Per-invocation switches such as
// --force and --dry-run are flags, not config.
type Config struct {
	// Database is the SQLite file holding recipes, actions and signatures.
	Database string `toml:"database" yaml:"database"`

	Signing        SigningConfig        `toml:"signing" yaml:"signing"`
	RemoteSettings RemoteSettingsConfig `toml:"remote_settings" yaml:"remote_settings"`
	Log            LogConfig            `toml:"log" yaml:"log"`
	Metrics        MetricsConfig        `toml:"metrics" yaml:"metrics"`
}

// SigningConfig selects and configures the Signer.
type SigningConfig struct {
	// Backend is "autograph" or "local". Empty leaves signing unconfigured.
	Backend string `toml:"backend" yaml:"backend"`

	// MaxSignatureAge is the signature lifetime. Zero disables age-based
	// re-signing.
	MaxSignatureAge Duration `toml:"max_signature_age" yaml:"max_signature_age"`

	// BatchSize caps payloads per Signer call. Zero sends one batch.
	BatchSize int `toml:"batch_size" yaml:"batch_size"`

	Autograph AutographConfig `toml:"autograph" yaml:"autograph"`

	// LocalKeyPath points at a hex Ed25519 seed for the "local" backend.
	LocalKeyPath string `toml:"local_key_path" yaml:"local_key_path"`
}

// AutographConfig configures the Autograph client.
type AutographConfig struct {
	URL           string   `toml:"url" yaml:"url"`
	Authorization string   `toml:"authorization" yaml:"authorization"`
	KeyID         string   `toml:"key_id" yaml:"key_id"`
	Timeout       Duration `toml:"timeout" yaml:"timeout"`
}

// RemoteSettingsConfig configures publishing. An empty URL disables sync.
type RemoteSettingsConfig struct {
	URL             string   `toml:"url" yaml:"url"`
	Authorization   string   `toml:"authorization" yaml:"authorization"`
	WorkspaceBucket string   `toml:"workspace_bucket" yaml:"workspace_bucket"`
	PublishBucket   string   `toml:"publish_bucket" yaml:"publish_bucket"`
	Collection      string   `toml:"collection" yaml:"collection"`
	Parallelism     int      `toml:"parallelism" yaml:"parallelism"`
	Timeout         Duration `toml:"timeout" yaml:"timeout"`
}

// Enabled reports whether a Remote Settings server is configured.
func (c RemoteSettingsConfig) Enabled() bool {
	return c.URL != ""
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `toml:"level" yaml:"level"`
	// Format is text or json.
	Format string `toml:"format" yaml:"format"`
}

// MetricsConfig configures gauge emission.
type MetricsConfig struct {
	// Prefix is prepended to every gauge name.
	Prefix string `toml:"prefix" yaml:"prefix"`
}

// Duration is a time.Duration that reads and writes as "168h", "30s", ...
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: "recipesync.db",
		Signing: SigningConfig{
			MaxSignatureAge: Duration{7 * 24 * time.Hour},
			BatchSize:       0,
			Autograph: AutographConfig{
				Timeout: Duration{30 * time.Second},
			},
		},
		RemoteSettings: RemoteSettingsConfig{
			WorkspaceBucket: "main-workspace",
			PublishBucket:   "main",
			Collection:      "normandy-recipes",
			Parallelism:     1,
			Timeout:         Duration{30 * time.Second},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ApplyEnvOverrides overlays RECIPESYNC_* environment variables. Secrets
// belong here rather than in files.
func (c *Config) ApplyEnvOverrides() {
	overrides := []struct {
		env    string
		target *string
	}{
		{"RECIPESYNC_DATABASE", &c.Database},
		{"RECIPESYNC_SIGNING_BACKEND", &c.Signing.Backend},
		{"RECIPESYNC_SIGNING_KEY_PATH", &c.Signing.LocalKeyPath},
		{"RECIPESYNC_AUTOGRAPH_URL", &c.Signing.Autograph.URL},
		{"RECIPESYNC_AUTOGRAPH_AUTHORIZATION", &c.Signing.Autograph.Authorization},
		{"RECIPESYNC_REMOTE_SETTINGS_URL", &c.RemoteSettings.URL},
		{"RECIPESYNC_REMOTE_SETTINGS_AUTHORIZATION", &c.RemoteSettings.Authorization},
		{"RECIPESYNC_LOG_LEVEL", &c.Log.Level},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}
