// Package config handles winsense configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./winsense.yaml, ~/.config/winsense/winsense.yaml,
// /etc/winsense/winsense.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"winsense.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "winsense", "winsense.yaml"))
	}

	paths = append(paths, "/etc/winsense/winsense.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all winsense configuration. It is constructed once at
// process start and passed by value into components; nothing mutates it
// afterwards.
type Config struct {
	MQTT MQTTConfig `yaml:"mqtt"`

	// HostName is the machine name to publish under. Defaults to
	// os.Hostname.
	HostName string `yaml:"host_name"`

	Legacy LegacyConfig `yaml:"legacy"`

	// FallbackDrives are drive letters assumed when decommissioning a
	// host that cannot be enumerated remotely. A documented common-case
	// approximation, not a completeness guarantee.
	FallbackDrives []string `yaml:"fallback_drives"`

	Query QueryConfig `yaml:"query"`

	LogLevel string `yaml:"log_level"`
}

// MQTTConfig defines the broker connection and topic namespace roots.
type MQTTConfig struct {
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	// QoS is the quality-of-service level for every publish (0, 1 or 2).
	QoS int `yaml:"qos"`
}

// LegacyConfig lists topic material from retired schema generations
// that decommission runs must still clean up. Deployment data, never
// compiled in.
type LegacyConfig struct {
	// SlotModels are sanitized disk-model tokens that old agent versions
	// keyed as <model>_slot<N>.
	SlotModels []string `yaml:"slot_models"`
	// SlotCount is how many slots to enumerate per model.
	SlotCount int `yaml:"slot_count"`
	// OrphanTopics are full topic names no current rule derives.
	OrphanTopics []string `yaml:"orphan_topics"`
}

// QueryConfig bounds the live broker query during host decommission.
type QueryConfig struct {
	TimeoutSec  int `yaml:"timeout_sec"`
	MaxMessages int `yaml:"max_messages"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	if cfg.HostName == "" {
		if name, err := os.Hostname(); err == nil {
			cfg.HostName = name
		}
	}

	return cfg, cfg.Validate()
}

// Default returns a configuration with every tunable at its default.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			DiscoveryPrefix: "homeassistant",
			QoS:             1,
		},
		Legacy: LegacyConfig{
			SlotCount: 4,
		},
		FallbackDrives: []string{"c", "d", "e", "f"},
		Query: QueryConfig{
			TimeoutSec:  5,
			MaxMessages: 500,
		},
	}
}

// Validate fails fast on configuration that would only surface as a
// confusing mid-run error.
func (c *Config) Validate() error {
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2 (got %d)", c.MQTT.QoS)
	}
	if c.Query.TimeoutSec <= 0 {
		return fmt.Errorf("query.timeout_sec must be positive")
	}
	if c.Query.MaxMessages <= 0 {
		return fmt.Errorf("query.max_messages must be positive")
	}
	return nil
}
