// Package appconfig implements TOML configuration loading for the sync
// CLI: data directory, log level, and watch-mode poll interval. Remote
// credentials are not configured here — they live in the encrypted blob
// managed by credstore.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults. The poll interval only matters in watch mode and backs up the
// filesystem watcher, so it can be generous.
const (
	defaultLogLevel     = "info"
	defaultPollInterval = "5m"
)

// appDirName is the per-user directory under os.UserConfigDir.
const appDirName = "aiosync"

// Config is the application configuration parsed from a TOML file.
type Config struct {
	DataDir      string `toml:"data_dir"`
	LogLevel     string `toml:"log_level"`
	PollInterval string `toml:"poll_interval"`
}

// DefaultConfig returns a Config populated with all default values. Used
// as the starting point for TOML decoding (unset fields keep defaults)
// and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      defaultDataDir(),
		LogLevel:     defaultLogLevel,
		PollInterval: defaultPollInterval,
	}
}

// Load reads and parses a TOML config file and validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("appconfig: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("appconfig: %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// all defaults. Supports the zero-config first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// DefaultConfigPath returns the platform-standard config file location.
func DefaultConfigPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}

	return filepath.Join(base, appDirName, "config.toml")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}

	return filepath.Join(base, appDirName)
}

// PollDuration parses the configured poll interval.
func (c *Config) PollDuration() (time.Duration, error) {
	d, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("appconfig: invalid poll_interval %q: %w", c.PollInterval, err)
	}

	return d, nil
}

func (c *Config) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q (want debug, info, warn, or error)", c.LogLevel)
	}

	if _, err := c.PollDuration(); err != nil {
		return err
	}

	if c.DataDir == "" {
		return errors.New("data_dir must not be empty")
	}

	return nil
}
