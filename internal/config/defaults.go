package config

const (
	defaultConfigPath               = "~/.config/langarr/config.toml"
	defaultProjectConfigName        = "langarr.toml"
	defaultDataDir                  = "~/.local/share/langarr"
	defaultSyncIntervalHours        = 24
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 14
	defaultListen                   = "127.0.0.1:8484"
	defaultCacheTTLMinutes          = 60
	defaultPollIntervalMinutes      = 10
	defaultSearchCooldownSeconds    = 60
	defaultMinSearchIntervalSeconds = 5
	defaultTagName                  = "prefer-dub"
	defaultOriginalProfile          = "Original Preferred"
	defaultDubProfile               = "Dub Preferred"
	defaultNtfyURL                  = "https://ntfy.sh"
)

func defaultOriginalLanguages() []string {
	return []string{"en", "de"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		General: General{
			SyncIntervalHours: defaultSyncIntervalHours,
			RunOnStartup:      true,
			LogLevel:          defaultLogLevel,
			LogFormat:         defaultLogFormat,
			LogRetentionDays:  defaultLogRetentionDays,
			DataDir:           defaultDataDir,
		},
		Server: Server{
			Listen: defaultListen,
		},
		Cache: Cache{
			TTLMinutes: defaultCacheTTLMinutes,
		},
	}
}
