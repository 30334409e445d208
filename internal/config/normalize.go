package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeGeneral(); err != nil {
		return err
	}
	normalizeInstances("radarr", c.Radarr)
	normalizeInstances("sonarr", c.Sonarr)
	c.normalizeBrokers()
	c.normalizeAudioTags()
	c.normalizeServer()
	c.normalizeNotifications()
	c.normalizeCache()
	return nil
}

func (c *Config) normalizeGeneral() error {
	c.General.LogFormat = strings.ToLower(strings.TrimSpace(c.General.LogFormat))
	switch c.General.LogFormat {
	case "", "console":
		c.General.LogFormat = "console"
	case "json":
	default:
		c.General.LogFormat = "console"
	}
	c.General.LogLevel = strings.ToLower(strings.TrimSpace(c.General.LogLevel))
	if c.General.LogLevel == "" {
		c.General.LogLevel = defaultLogLevel
	}
	if c.General.SyncIntervalHours <= 0 {
		c.General.SyncIntervalHours = defaultSyncIntervalHours
	}
	// Zero keeps every log file; negative values make no sense.
	if c.General.LogRetentionDays < 0 {
		c.General.LogRetentionDays = defaultLogRetentionDays
	}
	if strings.TrimSpace(c.General.DataDir) == "" {
		c.General.DataDir = defaultDataDir
	}
	var err error
	if c.General.DataDir, err = expandPath(c.General.DataDir); err != nil {
		return fmt.Errorf("general.data_dir: %w", err)
	}
	if value, ok := os.LookupEnv("LANGARR_DRY_RUN"); ok {
		if forced, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil && forced {
			c.General.DryRun = true
		}
	}
	return nil
}

func normalizeInstances(service string, instances []Instance) {
	for i := range instances {
		inst := &instances[i]
		inst.Name = strings.TrimSpace(inst.Name)
		applyEnvOverrides(service, inst.Name, &inst.BaseURL, &inst.APIKey)
		inst.BaseURL = strings.TrimRight(strings.TrimSpace(inst.BaseURL), "/")
		inst.APIKey = strings.TrimSpace(inst.APIKey)
		inst.OriginalProfile = strings.TrimSpace(inst.OriginalProfile)
		if inst.OriginalProfile == "" {
			inst.OriginalProfile = defaultOriginalProfile
		}
		inst.DubProfile = strings.TrimSpace(inst.DubProfile)
		if inst.DubProfile == "" {
			inst.DubProfile = defaultDubProfile
		}
		inst.TagName = strings.TrimSpace(inst.TagName)
		if inst.TagName == "" {
			inst.TagName = defaultTagName
		}
		inst.OriginalLanguages = normalizeLanguageList(inst.OriginalLanguages)
		// Zero means unset; negative values deliberately disable the check.
		if inst.SearchCooldownSeconds == 0 {
			inst.SearchCooldownSeconds = defaultSearchCooldownSeconds
		}
		if inst.MinSearchIntervalSeconds == 0 {
			inst.MinSearchIntervalSeconds = defaultMinSearchIntervalSeconds
		}
		if inst.UpdateDelaySeconds < 0 {
			inst.UpdateDelaySeconds = 0
		}
		if inst.SyncIntervalHours < 0 {
			inst.SyncIntervalHours = 0
		}
	}
}

func (c *Config) normalizeBrokers() {
	for i := range c.Overseerr {
		broker := &c.Overseerr[i]
		broker.Name = strings.TrimSpace(broker.Name)
		applyEnvOverrides("overseerr", broker.Name, &broker.BaseURL, &broker.APIKey)
		broker.BaseURL = strings.TrimRight(strings.TrimSpace(broker.BaseURL), "/")
		broker.APIKey = strings.TrimSpace(broker.APIKey)
		if broker.PollIntervalMinutes == 0 {
			broker.PollIntervalMinutes = defaultPollIntervalMinutes
		} else if broker.PollIntervalMinutes < 1 {
			broker.PollIntervalMinutes = 1
		}
	}
}

func (c *Config) normalizeAudioTags() {
	for i := range c.AudioTags.Rules {
		rule := &c.AudioTags.Rules[i]
		rule.Language = strings.ToLower(strings.TrimSpace(rule.Language))
		rule.Tag = strings.TrimSpace(rule.Tag)
	}
}

func (c *Config) normalizeServer() {
	c.Server.Listen = strings.TrimSpace(c.Server.Listen)
	if c.Server.Listen == "" {
		c.Server.Listen = defaultListen
	}
	c.Server.WebhookAuthToken = strings.TrimSpace(c.Server.WebhookAuthToken)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.URL = strings.TrimRight(strings.TrimSpace(c.Notifications.URL), "/")
	c.Notifications.Topic = strings.TrimSpace(c.Notifications.Topic)
	c.Notifications.Token = strings.TrimSpace(c.Notifications.Token)
	if c.Notifications.Topic != "" && c.Notifications.URL == "" {
		c.Notifications.URL = defaultNtfyURL
	}
}

func (c *Config) normalizeCache() {
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = defaultCacheTTLMinutes
	}
}

// applyEnvOverrides lets the environment win over file values: the simple
// RADARR_URL / RADARR_API_KEY form for the instance named "main", the
// scoped RADARR_<NAME>_BASE_URL / RADARR_<NAME>_API_KEY form for any
// instance (name uppercased, dashes to underscores). The simple form takes
// precedence for "main".
func applyEnvOverrides(service, name string, baseURL, apiKey *string) {
	if name == "" {
		return
	}
	prefix := envToken(service)
	scoped := prefix + "_" + envToken(name)
	if value := strings.TrimSpace(os.Getenv(scoped + "_BASE_URL")); value != "" {
		*baseURL = value
	}
	if value := strings.TrimSpace(os.Getenv(scoped + "_API_KEY")); value != "" {
		*apiKey = value
	}
	if name != "main" {
		return
	}
	if value := strings.TrimSpace(os.Getenv(prefix + "_URL")); value != "" {
		*baseURL = value
	}
	if value := strings.TrimSpace(os.Getenv(prefix + "_API_KEY")); value != "" {
		*apiKey = value
	}
}

func envToken(value string) string {
	return strings.ToUpper(strings.ReplaceAll(value, "-", "_"))
}

func normalizeLanguageList(values []string) []string {
	if len(values) == 0 {
		return defaultOriginalLanguages()
	}
	langs := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, lang := range values {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		return defaultOriginalLanguages()
	}
	return langs
}
