package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "winsense.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "mqtt:\n  broker: mqtt://broker:1883\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MQTT.DiscoveryPrefix != "homeassistant" {
		t.Errorf("DiscoveryPrefix = %q, want homeassistant", cfg.MQTT.DiscoveryPrefix)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if got := cfg.FallbackDrives; len(got) != 4 || got[0] != "c" || got[3] != "f" {
		t.Errorf("FallbackDrives = %v, want [c d e f]", got)
	}
	if cfg.Query.TimeoutSec != 5 || cfg.Query.MaxMessages != 500 {
		t.Errorf("Query = %+v, want 5s/500", cfg.Query)
	}
	if cfg.HostName == "" {
		t.Error("HostName should default to os.Hostname")
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
mqtt:
  broker: mqtts://broker:8883
  username: agent
  qos: 2
  discovery_prefix: ha
host_name: PC1
legacy:
  slot_models: [samsung_hd103si]
  slot_count: 2
  orphan_topics:
    - ha/sensor/old/config
fallback_drives: [c, d]
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.HostName != "PC1" {
		t.Errorf("HostName = %q, want PC1", cfg.HostName)
	}
	if cfg.MQTT.QoS != 2 {
		t.Errorf("QoS = %d, want 2", cfg.MQTT.QoS)
	}
	if len(cfg.Legacy.SlotModels) != 1 || cfg.Legacy.SlotCount != 2 {
		t.Errorf("Legacy = %+v", cfg.Legacy)
	}
	if len(cfg.Legacy.OrphanTopics) != 1 {
		t.Errorf("OrphanTopics = %v, want one entry", cfg.Legacy.OrphanTopics)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("WINSENSE_TEST_PW", "hunter2")
	path := writeConfig(t, "mqtt:\n  broker: mqtt://broker:1883\n  password: $WINSENSE_TEST_PW\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.MQTT.Password != "hunter2" {
		t.Errorf("Password = %q, want expanded env value", cfg.MQTT.Password)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing broker", func(c *Config) { c.MQTT.Broker = "" }, true},
		{"qos out of range", func(c *Config) { c.MQTT.QoS = 3 }, true},
		{"zero query timeout", func(c *Config) { c.Query.TimeoutSec = 0 }, true},
		{"zero query max", func(c *Config) { c.Query.MaxMessages = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.MQTT.Broker = "mqtt://broker:1883"
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfig_ExplicitMissing(t *testing.T) {
	if _, err := FindConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"DEBUG", slog.LevelDebug, false},
		{"trace", LevelTrace, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
