// Package config loads service configuration from an optional YAML file with
// environment variable overrides. The collector core never reads this
// directly; main resolves a Config once and passes explicit values down.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for zha-status.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	LogLevel    string `yaml:"log_level"`
	DatabaseURL string `yaml:"database_url"`

	Hub       HubConfig       `yaml:"hub"`
	Collector CollectorConfig `yaml:"collector"`
}

// HubConfig describes the hub websocket endpoint and credentials.
type HubConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// TLSMode is "plain" or "encrypted-no-verify".
	TLSMode string `yaml:"tls_mode"`
}

// CollectorConfig tunes the collection runs.
type CollectorConfig struct {
	IntervalMinutes         int    `yaml:"interval_minutes"`
	OfflineThresholdMinutes int    `yaml:"offline_threshold_minutes"`
	DeviceDelayMillis       int    `yaml:"device_delay_ms"`
	SnapshotPath            string `yaml:"snapshot_path"`
	LedgerPath              string `yaml:"ledger_path"`
	NeighborsEnabled        bool   `yaml:"neighbors_enabled"`
}

func (c CollectorConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c CollectorConfig) OfflineThreshold() time.Duration {
	return time.Duration(c.OfflineThresholdMinutes) * time.Minute
}

func (c CollectorConfig) DeviceDelay() time.Duration {
	return time.Duration(c.DeviceDelayMillis) * time.Millisecond
}

func defaults() Config {
	return Config{
		HTTPAddr: ":8081",
		LogLevel: "info",
		Hub: HubConfig{
			URL:     "ws://homeassistant.local:8123/api/websocket",
			TLSMode: "plain",
		},
		Collector: CollectorConfig{
			IntervalMinutes:         15,
			OfflineThresholdMinutes: 60,
			DeviceDelayMillis:       100,
			SnapshotPath:            "data/zha_data.json",
			LedgerPath:              "data/zha_ledger.json",
			NeighborsEnabled:        true,
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then environment overrides, then validation.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.HTTPAddr, "HTTP_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Hub.URL, "HA_URL")
	setString(&cfg.Hub.Token, "HA_TOKEN")
	setString(&cfg.Hub.TLSMode, "HA_TLS_MODE")
	setString(&cfg.Collector.SnapshotPath, "SNAPSHOT_PATH")
	setString(&cfg.Collector.LedgerPath, "LEDGER_PATH")
	setInt(&cfg.Collector.IntervalMinutes, "COLLECT_INTERVAL_MINUTES")
	setInt(&cfg.Collector.OfflineThresholdMinutes, "OFFLINE_THRESHOLD_MINUTES")
	setInt(&cfg.Collector.DeviceDelayMillis, "DEVICE_DELAY_MS")
	setBool(&cfg.Collector.NeighborsEnabled, "NEIGHBORS_ENABLED")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
	}
}

func setBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

func (c Config) validate() error {
	if strings.TrimSpace(c.Hub.URL) == "" {
		return fmt.Errorf("hub.url is required")
	}
	switch c.Hub.TLSMode {
	case "plain", "encrypted-no-verify":
	default:
		return fmt.Errorf("hub.tls_mode must be \"plain\" or \"encrypted-no-verify\" (got %q)", c.Hub.TLSMode)
	}
	if c.Collector.IntervalMinutes <= 0 {
		return fmt.Errorf("collector.interval_minutes must be positive")
	}
	if c.Collector.OfflineThresholdMinutes <= 0 {
		return fmt.Errorf("collector.offline_threshold_minutes must be positive")
	}
	if c.Collector.DeviceDelayMillis < 0 {
		return fmt.Errorf("collector.device_delay_ms must not be negative")
	}
	return nil
}
