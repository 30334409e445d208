package testsupport

import (
	"path/filepath"
	"testing"

	"langarr/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with a unique temp data dir per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.General.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Server.Listen = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// NewInstance returns an enabled instance carrying the field defaults the
// config loader would normally fill in.
func NewInstance(name, baseURL, apiKey string) config.Instance {
	return config.Instance{
		Name:                     name,
		BaseURL:                  baseURL,
		APIKey:                   apiKey,
		OriginalProfile:          "Original Preferred",
		DubProfile:               "Dub Preferred",
		TagName:                  "prefer-dub",
		OriginalLanguages:        []string{"en"},
		SearchCooldownSeconds:    60,
		MinSearchIntervalSeconds: 5,
	}
}

// WithRadarr appends a movie instance to the test config.
func WithRadarr(inst config.Instance) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Radarr = append(cfg.Radarr, inst)
	}
}

// WithSonarr appends a series instance to the test config.
func WithSonarr(inst config.Instance) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Sonarr = append(cfg.Sonarr, inst)
	}
}

// WithBroker appends a request-broker instance to the test config.
func WithBroker(broker config.Overseerr) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Overseerr = append(cfg.Overseerr, broker)
	}
}

// WithAudioRules sets the shared audio tag rules on the test config.
func WithAudioRules(rules ...config.AudioTagRule) ConfigOption {
	return func(cfg *config.Config) {
		cfg.AudioTags.Rules = rules
	}
}

// WithDryRun forces dry-run mode on the test config.
func WithDryRun() ConfigOption {
	return func(cfg *config.Config) {
		cfg.General.DryRun = true
	}
}
