// Package config loads, normalizes, and validates langarr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// RADARR_API_KEY or SONARR_ANIME_BASE_URL. The Config type centralizes every
// knob the daemon and CLI need: instance language policies, broker mappings,
// scheduler intervals, and the HTTP surface.
//
// Always obtain settings through this package so downstream code receives
// sanitized URLs, canonical log formats, and clear validation errors.
package config
