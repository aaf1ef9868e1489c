// Package topics derives every MQTT topic this agent reads or writes.
// All functions are pure: a (target, metric) pair always maps to the
// same topic string, which is what makes decommission symmetric with
// publication — deleting recomputes exactly the names that publishing
// computed.
//
// Two topic families exist. Data topics live under windows/<host>/ and
// carry sensor values. Discovery topics live under the configurable
// discovery prefix and carry Home Assistant registration documents. Host
// tokens and component IDs share one sanitization alphabet but disjoint
// source material, so the two discovery namespaces never collide.
package topics

import (
	"fmt"
	"strconv"
)

// Namer holds the deployment-specific inputs of topic derivation. The
// legacy catalogue and orphan list are operator-maintained configuration,
// not compiled-in constants; earlier schema generations left retained
// messages on the broker that current naming rules can no longer derive.
type Namer struct {
	// DiscoveryPrefix is the hub's discovery root, normally "homeassistant".
	DiscoveryPrefix string
	// LegacySlotModels lists sanitized disk-model tokens that older agent
	// versions keyed as <model>_slot<N> before serial-based IDs existed.
	LegacySlotModels []string
	// LegacySlotCount is the number of slots enumerated per legacy model.
	LegacySlotCount int
	// OrphanTopics are full topic names from retired schema versions that
	// must be listed explicitly for cleanup.
	OrphanTopics []string
}

// --- data topics ---

func (n Namer) base(host string) string {
	return "windows/" + host
}

// CPULoad returns the CPU load data topic for a host.
func (n Namer) CPULoad(host string) string {
	return n.base(host) + "/system/cpu_load"
}

// CPUTemperature returns the CPU temperature data topic for a host.
func (n Namer) CPUTemperature(host string) string {
	return n.base(host) + "/temp/cpu"
}

// Disks returns the topic carrying the flat per-volume JSON payload.
func (n Namer) Disks(host string) string {
	return n.base(host) + "/disks"
}

// Health returns the topic carrying the flat physical-disk health JSON
// payload.
func (n Namer) Health(host string) string {
	return n.base(host) + "/health"
}

// Availability returns the host's availability topic.
func (n Namer) Availability(host string) string {
	return n.base(host) + "/availability"
}

// DataTopics returns every fixed data topic for a host.
func (n Namer) DataTopics(host string) []string {
	return []string{
		n.CPULoad(host),
		n.CPUTemperature(host),
		n.Disks(host),
		n.Health(host),
		n.Availability(host),
	}
}

// --- discovery topics ---

// HostSensorConfig returns the discovery config topic for a host-scoped
// sensor metric, e.g. cpu_load or disk_c_used_percent.
func (n Namer) HostSensorConfig(host, metric string) string {
	return fmt.Sprintf("%s/sensor/%s/%s/config", n.DiscoveryPrefix, host, metric)
}

// DriveSensorMetrics returns the per-drive metric names published for a
// sanitized drive token.
func DriveSensorMetrics(drive string) []string {
	return []string{
		"disk_" + drive + "_free_bytes",
		"disk_" + drive + "_size_bytes",
		"disk_" + drive + "_used_percent",
	}
}

// HostSensorMetrics returns the host-scoped sensor metric names for the
// given drive tokens: the fixed CPU metrics plus three per drive.
func HostSensorMetrics(drives []string) []string {
	metrics := []string{"cpu_load", "cpu_temperature"}
	for _, d := range drives {
		metrics = append(metrics, DriveSensorMetrics(d)...)
	}
	return metrics
}

// ComponentConfigTopics returns the two discovery config topics of a
// portable component. These sit at the discovery root rather than under a
// host segment, so the component's registration survives host moves.
func (n Namer) ComponentConfigTopics(componentID string) []string {
	return []string{
		fmt.Sprintf("%s/sensor/%s_health/config", n.DiscoveryPrefix, componentID),
		fmt.Sprintf("%s/sensor/%s_operational_status/config", n.DiscoveryPrefix, componentID),
	}
}

// LegacySlotTopics enumerates the discovery topics of the retired
// <model>_slot<N> component keying for the configured model catalogue.
// Returns nil when no catalogue is configured.
func (n Namer) LegacySlotTopics() []string {
	var out []string
	for _, model := range n.LegacySlotModels {
		for slot := 0; slot < n.LegacySlotCount; slot++ {
			out = append(out, n.ComponentConfigTopics(model+"_slot"+strconv.Itoa(slot))...)
		}
	}
	return out
}

// HostWildcard returns the broker subscription filter matching every
// discovery topic under a host's segment.
func (n Namer) HostWildcard(host string) string {
	return fmt.Sprintf("%s/sensor/%s/#", n.DiscoveryPrefix, host)
}

// Dedupe returns topics with duplicates removed, preserving first-seen
// order. Cleanup sets are unions of overlapping enumerations and must not
// hand the same topic to the executor twice.
func Dedupe(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
