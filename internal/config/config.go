package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed langarr.sample.toml
var sampleConfig string

// General contains process-wide settings.
type General struct {
	SyncIntervalHours int    `toml:"sync_interval_hours"`
	RunOnStartup      bool   `toml:"run_on_startup"`
	DryRun            bool   `toml:"dry_run"`
	LogLevel          string `toml:"log_level"`
	LogFormat         string `toml:"log_format"`
	LogRetentionDays  int    `toml:"log_retention_days"`
	DataDir           string `toml:"data_dir"`
}

// Instance configures one Radarr or Sonarr server. Profile and tag names
// are resolved to remote ids at run time and never persisted as ids.
type Instance struct {
	Name                     string   `toml:"name"`
	BaseURL                  string   `toml:"base_url"`
	APIKey                   string   `toml:"api_key"`
	Enabled                  *bool    `toml:"enabled"`
	OriginalProfile          string   `toml:"original_profile"`
	DubProfile               string   `toml:"dub_profile"`
	TagName                  string   `toml:"tag_name"`
	OriginalLanguages        []string `toml:"original_languages"`
	AudioTagsEnabled         bool     `toml:"audio_tags_enabled"`
	OnlyMonitored            bool     `toml:"only_monitored"`
	TriggerSearchOnUpdate    *bool    `toml:"trigger_search_on_update"`
	SearchCooldownSeconds    int      `toml:"search_cooldown_seconds"`
	MinSearchIntervalSeconds int      `toml:"min_search_interval_seconds"`
	UpdateDelaySeconds       int      `toml:"update_delay_seconds"`
	SyncIntervalHours        int      `toml:"sync_interval_hours"`
}

// IsEnabled reports whether the instance takes part in syncs. Instances
// are enabled unless the config says otherwise.
func (i Instance) IsEnabled() bool {
	return i.Enabled == nil || *i.Enabled
}

// SearchOnUpdate reports whether a profile change should trigger a remote
// search. Defaults to true.
func (i Instance) SearchOnUpdate() bool {
	return i.TriggerSearchOnUpdate == nil || *i.TriggerSearchOnUpdate
}

// SearchCooldown is the per-item search spacing. Non-positive values
// disable the check.
func (i Instance) SearchCooldown() time.Duration {
	return time.Duration(i.SearchCooldownSeconds) * time.Second
}

// MinSearchInterval is the instance-wide search spacing. Non-positive
// values disable the check.
func (i Instance) MinSearchInterval() time.Duration {
	return time.Duration(i.MinSearchIntervalSeconds) * time.Second
}

// UpdateDelay paces consecutive remote mutations within one run. Zero
// means no pacing.
func (i Instance) UpdateDelay() time.Duration {
	return time.Duration(i.UpdateDelaySeconds) * time.Second
}

// SyncInterval returns the instance's own interval, falling back to the
// global default when unset.
func (i Instance) SyncInterval(globalHours int) time.Duration {
	hours := i.SyncIntervalHours
	if hours <= 0 {
		hours = globalHours
	}
	if hours <= 0 {
		hours = defaultSyncIntervalHours
	}
	return time.Duration(hours) * time.Hour
}

// AudioTags holds the global audio tagging rule list shared by every
// instance with audio_tags_enabled.
type AudioTags struct {
	Rules []AudioTagRule `toml:"rules"`
}

// AudioTagRule maps a detected audio language to a tag name.
type AudioTagRule struct {
	Language string `toml:"language"`
	Tag      string `toml:"tag"`
}

// Overseerr configures one request broker. Server tables map Overseerr's
// own server ids to instance names from the [[radarr]] / [[sonarr]] blocks.
type Overseerr struct {
	Name                string            `toml:"name"`
	BaseURL             string            `toml:"base_url"`
	APIKey              string            `toml:"api_key"`
	Enabled             *bool             `toml:"enabled"`
	PollIntervalMinutes int               `toml:"poll_interval_minutes"`
	RadarrServers       map[string]string `toml:"radarr_servers"`
	SonarrServers       map[string]string `toml:"sonarr_servers"`
}

// IsEnabled reports whether the broker takes part in syncs.
func (o Overseerr) IsEnabled() bool {
	return o.Enabled == nil || *o.Enabled
}

// PollInterval returns the pending-request poll spacing.
func (o Overseerr) PollInterval() time.Duration {
	minutes := o.PollIntervalMinutes
	if minutes < 1 {
		minutes = defaultPollIntervalMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// RadarrMappings returns the Radarr server table keyed by numeric server
// id. Keys are validated as integers at load time.
func (o Overseerr) RadarrMappings() map[int]string {
	return serverMappings(o.RadarrServers)
}

// SonarrMappings returns the Sonarr server table keyed by numeric server
// id.
func (o Overseerr) SonarrMappings() map[int]string {
	return serverMappings(o.SonarrServers)
}

func serverMappings(table map[string]string) map[int]string {
	if len(table) == 0 {
		return nil
	}
	out := make(map[int]string, len(table))
	for key, name := range table {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		out[id] = strings.TrimSpace(name)
	}
	return out
}

// Server contains the HTTP API and webhook listener settings. One server
// hosts both surfaces.
type Server struct {
	Listen           string `toml:"listen"`
	WebhookEnabled   bool   `toml:"webhook_enabled"`
	WebhookAuthToken string `toml:"webhook_auth_token"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	URL   string `toml:"url"`
	Topic string `toml:"topic"`
	Token string `toml:"token"`
}

// Configured reports whether notifications are set up at all.
func (n Notifications) Configured() bool {
	return strings.TrimSpace(n.URL) != "" && strings.TrimSpace(n.Topic) != ""
}

// Cache contains the profile/tag lookup cache settings.
type Cache struct {
	TTLMinutes int `toml:"ttl_minutes"`
}

// TTL returns the lookup cache time-to-live.
func (c Cache) TTL() time.Duration {
	minutes := c.TTLMinutes
	if minutes <= 0 {
		minutes = defaultCacheTTLMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// Config encapsulates all configuration values for langarr.
//
// Configuration sections by subsystem:
//   - General: sync interval, dry-run, logging, data directory
//   - Radarr/Sonarr: one block per remote instance with its language policy
//   - AudioTags: global audio language → tag rules
//   - Overseerr: request brokers and their server → instance mappings
//   - Server: HTTP API bind address and webhook settings
//   - Notifications: ntfy push notification settings
//   - Cache: profile/tag lookup cache TTL
type Config struct {
	General       General       `toml:"general"`
	Radarr        []Instance    `toml:"radarr"`
	Sonarr        []Instance    `toml:"sonarr"`
	AudioTags     AudioTags     `toml:"audio_tags"`
	Overseerr     []Overseerr   `toml:"overseerr"`
	Server        Server        `toml:"server"`
	Notifications Notifications `toml:"notifications"`
	Cache         Cache         `toml:"cache"`
}

// Instances returns the configured blocks for a service type ("radarr" or
// "sonarr").
func (c *Config) Instances(service string) []Instance {
	switch service {
	case "radarr":
		return c.Radarr
	case "sonarr":
		return c.Sonarr
	default:
		return nil
	}
}

// FindInstance looks up one instance block by service type and name.
func (c *Config) FindInstance(service, name string) (Instance, bool) {
	for _, inst := range c.Instances(service) {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

// DatabasePath returns the sqlite database location under the data dir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.General.DataDir, "langarr.db")
}

// LockPath returns the daemon lock file location under the data dir.
func (c *Config) LockPath() string {
	return filepath.Join(c.General.DataDir, "langarr.lock")
}

// LogDir returns the log directory under the data dir.
func (c *Config) LogDir() string {
	return filepath.Join(c.General.DataDir, "logs")
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, normalizes, and validates a configuration file.
// When the file is absent the returned config carries repository defaults;
// exists reports which case applied.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("LANGARR_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(defaultProjectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories the daemon needs.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.General.DataDir, c.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Save writes the configuration to path in TOML form.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Redacted returns a display-safe copy with credentials masked.
func (c *Config) Redacted() Config {
	out := *c
	out.Radarr = redactInstances(c.Radarr)
	out.Sonarr = redactInstances(c.Sonarr)
	out.Overseerr = redactBrokers(c.Overseerr)
	out.Server.WebhookAuthToken = maskSecret(c.Server.WebhookAuthToken)
	out.Notifications.Token = maskSecret(c.Notifications.Token)
	return out
}

func redactInstances(instances []Instance) []Instance {
	if len(instances) == 0 {
		return nil
	}
	out := make([]Instance, len(instances))
	for i, inst := range instances {
		inst.APIKey = maskSecret(inst.APIKey)
		out[i] = inst
	}
	return out
}

func redactBrokers(brokers []Overseerr) []Overseerr {
	if len(brokers) == 0 {
		return nil
	}
	out := make([]Overseerr, len(brokers))
	for i, broker := range brokers {
		broker.APIKey = maskSecret(broker.APIKey)
		out[i] = broker
	}
	return out
}

func maskSecret(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return "********"
}
