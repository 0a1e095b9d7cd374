// Package config provides configuration loading for Stillpoint Core.
package config

import "time"

// Config is the root core configuration.
type Config struct {
	Store        StoreConfig        `yaml:"store"`
	Sync         SyncConfig         `yaml:"sync"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	Remote       RemoteConfig       `yaml:"remote"`
	Log          LogConfig          `yaml:"log"`
}

// StoreConfig holds durable record store settings.
type StoreConfig struct {
	DataDir              string `yaml:"data_dir"               env:"STORE_DATA_DIR"               env-default:"./data"`
	MoodEntryCap         int    `yaml:"mood_entry_cap"         env:"STORE_MOOD_ENTRY_CAP"         env-default:"1000"`
	SessionCap           int    `yaml:"session_cap"            env:"STORE_SESSION_CAP"            env-default:"500"`
	EventLogCap          int    `yaml:"event_log_cap"          env:"STORE_EVENT_LOG_CAP"          env-default:"50"`
	DefaultRetentionDays int    `yaml:"default_retention_days" env:"STORE_DEFAULT_RETENTION_DAYS" env-default:"30"`
}

// SyncConfig holds mutation queue processor settings.
type SyncConfig struct {
	MaxRetries    int           `yaml:"max_retries"    env:"SYNC_MAX_RETRIES"    env-default:"3"`
	BaseBackoff   time.Duration `yaml:"base_backoff"   env:"SYNC_BASE_BACKOFF"   env-default:"2s"`
	MaxJitter     time.Duration `yaml:"max_jitter"     env:"SYNC_MAX_JITTER"     env-default:"500ms"`
	DrainInterval time.Duration `yaml:"drain_interval" env:"SYNC_DRAIN_INTERVAL" env-default:"15m"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SYNC_SWEEP_INTERVAL" env-default:"24h"`
}

// ConnectivityConfig holds network observer settings.
type ConnectivityConfig struct {
	ProbeURL       string        `yaml:"probe_url"       env:"CONNECTIVITY_PROBE_URL"       env-default:"https://clients3.google.com/generate_204"`
	ProbeInterval  time.Duration `yaml:"probe_interval"  env:"CONNECTIVITY_PROBE_INTERVAL"  env-default:"30s"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"   env:"CONNECTIVITY_PROBE_TIMEOUT"   env-default:"5s"`
	FastThreshold  time.Duration `yaml:"fast_threshold"  env:"CONNECTIVITY_FAST_THRESHOLD"  env-default:"300ms"`
	GoodThreshold  time.Duration `yaml:"good_threshold"  env:"CONNECTIVITY_GOOD_THRESHOLD"  env-default:"1s"`
}

// RemoteConfig holds remote backend client settings.
type RemoteConfig struct {
	BaseURL   string        `yaml:"base_url"   env:"REMOTE_BASE_URL"   env-default:""`
	AuthToken string        `yaml:"auth_token" env:"REMOTE_AUTH_TOKEN" env-default:""`
	Timeout   time.Duration `yaml:"timeout"    env:"REMOTE_TIMEOUT"    env-default:"15s"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}
