package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateGeneral(); err != nil {
		return err
	}
	if err := validateInstances("radarr", c.Radarr); err != nil {
		return err
	}
	if err := validateInstances("sonarr", c.Sonarr); err != nil {
		return err
	}
	if err := c.validateAudioTags(); err != nil {
		return err
	}
	if err := c.validateBrokers(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateGeneral() error {
	switch c.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("general.log_level must be one of debug, info, warn, error (got %q)", c.General.LogLevel)
	}
	return nil
}

func validateInstances(service string, instances []Instance) error {
	seen := make(map[string]struct{}, len(instances))
	for i, inst := range instances {
		if inst.Name == "" {
			return fmt.Errorf("%s[%d].name must be set", service, i)
		}
		if _, dup := seen[inst.Name]; dup {
			return fmt.Errorf("%s instance name %q is used more than once", service, inst.Name)
		}
		seen[inst.Name] = struct{}{}
		if !inst.IsEnabled() {
			continue
		}
		label := fmt.Sprintf("%s[%s]", service, inst.Name)
		if inst.BaseURL == "" {
			return fmt.Errorf("%s.base_url is required. Set the %s env var or edit the config file", label, envHint(service, inst.Name, "BASE_URL", "URL"))
		}
		if err := validateBaseURL(inst.BaseURL); err != nil {
			return fmt.Errorf("%s.base_url: %w", label, err)
		}
		if inst.APIKey == "" {
			return fmt.Errorf("%s.api_key is required. Set the %s env var or edit the config file", label, envHint(service, inst.Name, "API_KEY", "API_KEY"))
		}
		if inst.OriginalProfile == "" {
			return fmt.Errorf("%s.original_profile must be set", label)
		}
		if inst.DubProfile == "" {
			return fmt.Errorf("%s.dub_profile must be set", label)
		}
	}
	return nil
}

func (c *Config) validateAudioTags() error {
	for i, rule := range c.AudioTags.Rules {
		if rule.Language == "" {
			return fmt.Errorf("audio_tags.rules[%d].language must be set", i)
		}
		if rule.Tag == "" {
			return fmt.Errorf("audio_tags.rules[%d].tag must be set", i)
		}
	}
	return nil
}

func (c *Config) validateBrokers() error {
	seen := make(map[string]struct{}, len(c.Overseerr))
	for i, broker := range c.Overseerr {
		if broker.Name == "" {
			return fmt.Errorf("overseerr[%d].name must be set", i)
		}
		if _, dup := seen[broker.Name]; dup {
			return fmt.Errorf("overseerr instance name %q is used more than once", broker.Name)
		}
		seen[broker.Name] = struct{}{}
		label := fmt.Sprintf("overseerr[%s]", broker.Name)
		if err := validateServerTable(label+".radarr_servers", broker.RadarrServers); err != nil {
			return err
		}
		if err := validateServerTable(label+".sonarr_servers", broker.SonarrServers); err != nil {
			return err
		}
		if !broker.IsEnabled() {
			continue
		}
		if broker.BaseURL == "" {
			return fmt.Errorf("%s.base_url is required. Set the %s env var or edit the config file", label, envHint("overseerr", broker.Name, "BASE_URL", "URL"))
		}
		if err := validateBaseURL(broker.BaseURL); err != nil {
			return fmt.Errorf("%s.base_url: %w", label, err)
		}
		if broker.APIKey == "" {
			return fmt.Errorf("%s.api_key is required. Set the %s env var or edit the config file", label, envHint("overseerr", broker.Name, "API_KEY", "API_KEY"))
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
		return fmt.Errorf("server.listen must be host:port: %w", err)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.URL == "" {
		return nil
	}
	if err := validateBaseURL(c.Notifications.URL); err != nil {
		return fmt.Errorf("notifications.url: %w", err)
	}
	if c.Notifications.Topic == "" {
		return errors.New("notifications.topic must be set when notifications.url is set")
	}
	return nil
}

func validateBaseURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

func validateServerTable(label string, table map[string]string) error {
	for key, name := range table {
		if _, err := strconv.Atoi(strings.TrimSpace(key)); err != nil {
			return fmt.Errorf("%s: key %q must be an integer Overseerr server id", label, key)
		}
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s: server %s must name an instance", label, key)
		}
	}
	return nil
}

func envHint(service, name, scopedSuffix, simpleSuffix string) string {
	if name == "main" {
		return envToken(service) + "_" + simpleSuffix
	}
	return envToken(service) + "_" + envToken(name) + "_" + scopedSuffix
}
