package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/sitetime/config.yaml"

// Config holds all sitetime configuration.
type Config struct {
	Tracker TrackerConfig `yaml:"tracker"`
	Storage StorageConfig `yaml:"storage"`
	Daemon  DaemonConfig  `yaml:"daemon"`
	Logging LoggingConfig `yaml:"logging"`
}

type TrackerConfig struct {
	TickIntervalMs  int      `yaml:"tick_interval_ms"`
	StripWWW        bool     `yaml:"strip_www"`
	IgnoreDomains   []string `yaml:"ignore_domains"`
	IgnoreSensitive bool     `yaml:"ignore_sensitive"`
	QueueSize       int      `yaml:"queue_size"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	AuthToken              string `yaml:"auth_token"`
	MaxRequestSize         int    `yaml:"max_request_size"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TickInterval returns the live-duration refresh cadence.
func (c TrackerConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

// Ignored returns the full set of domains that are never tracked.
func (c TrackerConfig) Ignored() []string {
	out := append([]string{}, c.IgnoreDomains...)
	if c.IgnoreSensitive {
		out = append(out, DefaultSensitiveDomains()...)
	}
	return out
}

// Addr returns the host:port the daemon listens on.
func (c DaemonConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ShutdownTimeout returns how long the daemon waits for in-flight requests.
func (c DaemonConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DBPath returns the expanded path of the SQLite database file.
func (c StorageConfig) DBPath() (string, error) {
	dir, err := expandPath(c.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.SQLiteFile), nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Tracker.TickIntervalMs <= 0 {
		return fmt.Errorf("tracker.tick_interval_ms must be positive, got %d", c.Tracker.TickIntervalMs)
	}
	if c.Tracker.QueueSize <= 0 {
		return fmt.Errorf("tracker.queue_size must be positive, got %d", c.Tracker.QueueSize)
	}
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("daemon.port out of range: %d", c.Daemon.Port)
	}
	if c.Storage.SQLiteFile == "" {
		return fmt.Errorf("storage.sqlite_file must be set")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json: %q", c.Logging.Format)
	}
	return nil
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML,
// or fails validation.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}

	return cfg, nil
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	path, err := expandPath(path)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
