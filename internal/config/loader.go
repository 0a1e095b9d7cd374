package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
// The YAML file path is determined by CONFIG_PATH env (fallback "./config.yaml").
// If the file does not exist and CONFIG_PATH was not set explicitly,
// configuration is loaded from ENV + defaults only.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		// No file, load from ENV + defaults only.
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Store.MoodEntryCap <= 0 {
		return fmt.Errorf("store.mood_entry_cap must be > 0 (got %d)", c.Store.MoodEntryCap)
	}
	if c.Store.SessionCap <= 0 {
		return fmt.Errorf("store.session_cap must be > 0 (got %d)", c.Store.SessionCap)
	}
	if c.Store.DefaultRetentionDays <= 0 {
		return fmt.Errorf("store.default_retention_days must be > 0 (got %d)", c.Store.DefaultRetentionDays)
	}
	if c.Sync.MaxRetries <= 0 {
		return fmt.Errorf("sync.max_retries must be > 0 (got %d)", c.Sync.MaxRetries)
	}
	if c.Sync.BaseBackoff <= 0 {
		return fmt.Errorf("sync.base_backoff must be > 0 (got %v)", c.Sync.BaseBackoff)
	}
	if c.Connectivity.ProbeTimeout <= 0 {
		return fmt.Errorf("connectivity.probe_timeout must be > 0 (got %v)", c.Connectivity.ProbeTimeout)
	}
	if c.Connectivity.FastThreshold >= c.Connectivity.GoodThreshold {
		return fmt.Errorf("connectivity.fast_threshold (%v) must be below good_threshold (%v)",
			c.Connectivity.FastThreshold, c.Connectivity.GoodThreshold)
	}
	return nil
}
