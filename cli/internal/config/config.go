package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zhaobenny/mpvwatch/internal/policy"
)

const (
	defaultWatchInterval = 15 * time.Minute
	appDir               = "IND8Tracker"
	dbFile               = "indirect_tracking.db"
)

// Config holds the CLI configuration
type Config struct {
	BaseURL       string `yaml:"base_url"`
	WarehouseID   string `yaml:"warehouse_id"`
	Cookie        string `yaml:"cookie,omitempty"`
	CookieSource  string `yaml:"cookie_source,omitempty"`
	DBPath        string `yaml:"db_path,omitempty"`
	CloudSync     bool   `yaml:"cloud_sync"`
	DevToolsURL   string `yaml:"devtools_url,omitempty"`
	LinuxKeyring  bool   `yaml:"linux_keyring"`
	WatchInterval string `yaml:"watch_interval"`
	Notify        bool   `yaml:"notify"`
}

// configPath returns the path to the config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mpvwatch.yaml"), nil
}

// Load loads the configuration from disk
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Save saves the configuration to disk. The file holds the session
// cookie, so only the owner may read it.
func Save(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = policy.DefaultBaseURL
	}
	if c.WarehouseID == "" {
		c.WarehouseID = policy.DefaultWarehouse
	}
	if c.WatchInterval == "" {
		c.WatchInterval = defaultWatchInterval.String()
	}
}

// Interval returns the watch interval, falling back to the default when
// unset or unparsable
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.WatchInterval)
	if err != nil || d < time.Minute {
		return defaultWatchInterval
	}
	return d
}

// Database returns the local session store path. With cloud sync on it
// lives in the OneDrive folder so several machines share it.
func (c *Config) Database() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}

	var base string
	switch {
	case c.CloudSync && os.Getenv("OneDrive") != "":
		base = os.Getenv("OneDrive")
	case os.Getenv("LOCALAPPDATA") != "":
		base = os.Getenv("LOCALAPPDATA")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = dir
	}

	dir := filepath.Join(base, appDir)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.Join(dir, dbFile), nil
}
