package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8081" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Collector.Interval() != 15*time.Minute {
		t.Fatalf("interval = %v", cfg.Collector.Interval())
	}
	if cfg.Collector.OfflineThreshold() != 60*time.Minute {
		t.Fatalf("threshold = %v", cfg.Collector.OfflineThreshold())
	}
	if cfg.Collector.DeviceDelay() != 100*time.Millisecond {
		t.Fatalf("device delay = %v", cfg.Collector.DeviceDelay())
	}
	if !cfg.Collector.NeighborsEnabled {
		t.Fatalf("neighbors should default to enabled")
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
http_addr: ":9090"
hub:
  url: "wss://ha.lan:8123/api/websocket"
  token: "secret"
  tls_mode: "encrypted-no-verify"
collector:
  interval_minutes: 5
  offline_threshold_minutes: 30
  snapshot_path: "/var/lib/zha/zha_data.json"
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.Hub.TLSMode != "encrypted-no-verify" || cfg.Hub.Token != "secret" {
		t.Fatalf("hub = %+v", cfg.Hub)
	}
	if cfg.Collector.Interval() != 5*time.Minute {
		t.Fatalf("interval = %v", cfg.Collector.Interval())
	}
	// Values absent from the file keep their defaults.
	if cfg.Collector.LedgerPath != "data/zha_ledger.json" {
		t.Fatalf("ledger path = %q", cfg.Collector.LedgerPath)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("hub:\n  token: from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HA_TOKEN", "from-env")
	t.Setenv("OFFLINE_THRESHOLD_MINUTES", "120")
	t.Setenv("NEIGHBORS_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Hub.Token != "from-env" {
		t.Fatalf("token = %q", cfg.Hub.Token)
	}
	if cfg.Collector.OfflineThreshold() != 120*time.Minute {
		t.Fatalf("threshold = %v", cfg.Collector.OfflineThreshold())
	}
	if cfg.Collector.NeighborsEnabled {
		t.Fatalf("neighbors should be disabled via env")
	}
}

func TestLoad_RejectsBadTLSMode(t *testing.T) {
	t.Setenv("HA_TLS_MODE", "encrypted-verify-please")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "tls_mode") {
		t.Fatalf("expected tls_mode validation error, got %v", err)
	}
}

func TestLoad_RejectsNonPositiveInterval(t *testing.T) {
	t.Setenv("COLLECT_INTERVAL_MINUTES", "0")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "interval_minutes") {
		t.Fatalf("expected interval validation error, got %v", err)
	}
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("expected error for explicit missing config file")
	}
}
