package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Tracker: TrackerConfig{
			TickIntervalMs:  1000,
			StripWWW:        true,
			IgnoreDomains:   []string{},
			IgnoreSensitive: false,
			QueueSize:       64,
		},
		Storage: StorageConfig{
			Path:              "~/.config/sitetime",
			SQLiteFile:        "sitetime.db",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:                   "127.0.0.1",
			Port:                   8731,
			AuthToken:              "",
			MaxRequestSize:         1 << 20,
			ShutdownTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultSensitiveDomains returns domains that are skipped when
// tracker.ignore_sensitive is enabled: banking, password managers,
// identity providers and healthcare portals.
func DefaultSensitiveDomains() []string {
	return []string{
		// Banking & Financial
		"chase.com",
		"bankofamerica.com",
		"wellsfargo.com",
		"capitalone.com",
		"schwab.com",
		"fidelity.com",
		"paypal.com",

		// Password Managers
		"1password.com",
		"lastpass.com",
		"bitwarden.com",

		// Authentication & Identity
		"accounts.google.com",
		"login.microsoftonline.com",
		"okta.com",

		// Healthcare
		"mychart.com",
		"kp.org",
	}
}
