package topics

import (
	"reflect"
	"testing"
)

func testNamer() Namer {
	return Namer{DiscoveryPrefix: "homeassistant"}
}

func TestNamer_DataTopics(t *testing.T) {
	n := testNamer()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"cpu load", n.CPULoad("desktop_abc"), "windows/desktop_abc/system/cpu_load"},
		{"cpu temperature", n.CPUTemperature("desktop_abc"), "windows/desktop_abc/temp/cpu"},
		{"disks", n.Disks("desktop_abc"), "windows/desktop_abc/disks"},
		{"health", n.Health("desktop_abc"), "windows/desktop_abc/health"},
		{"availability", n.Availability("desktop_abc"), "windows/desktop_abc/availability"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	if got := len(n.DataTopics("h")); got != 5 {
		t.Errorf("DataTopics length = %d, want 5", got)
	}
}

func TestNamer_HostSensorConfig(t *testing.T) {
	n := testNamer()
	got := n.HostSensorConfig("pc1", "cpu_load")
	want := "homeassistant/sensor/pc1/cpu_load/config"
	if got != want {
		t.Errorf("HostSensorConfig = %q, want %q", got, want)
	}
}

func TestHostSensorMetrics(t *testing.T) {
	got := HostSensorMetrics([]string{"c", "d"})
	want := []string{
		"cpu_load", "cpu_temperature",
		"disk_c_free_bytes", "disk_c_size_bytes", "disk_c_used_percent",
		"disk_d_free_bytes", "disk_d_size_bytes", "disk_d_used_percent",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("HostSensorMetrics = %v, want %v", got, want)
	}
}

func TestNamer_ComponentConfigTopics(t *testing.T) {
	n := testNamer()
	got := n.ComponentConfigTopics("samsung_hd103si_s1vsjd1zb07989")
	want := []string{
		"homeassistant/sensor/samsung_hd103si_s1vsjd1zb07989_health/config",
		"homeassistant/sensor/samsung_hd103si_s1vsjd1zb07989_operational_status/config",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ComponentConfigTopics = %v, want %v", got, want)
	}
}

// Host-scoped discovery topics carry a metric path segment after the host
// token; component topics end directly in _health/_operational_status. The
// namespaces must never overlap for any realistic inputs.
func TestNamer_HostComponentDisjoint(t *testing.T) {
	n := testNamer()

	hosts := []string{"desktop_abc", "pc1", "unknown"}
	components := []string{
		"samsung_hd103si_s1vsjd1zb07989",
		"wdc_wd20ears_unknown",
		"unknown_unknown",
	}

	hostTopics := make(map[string]bool)
	for _, h := range hosts {
		for _, m := range HostSensorMetrics([]string{"c", "d", "e", "f"}) {
			hostTopics[n.HostSensorConfig(h, m)] = true
		}
	}

	for _, c := range components {
		for _, topic := range n.ComponentConfigTopics(c) {
			if hostTopics[topic] {
				t.Errorf("component topic %q collides with a host topic", topic)
			}
		}
	}
}

func TestNamer_LegacySlotTopics(t *testing.T) {
	n := Namer{
		DiscoveryPrefix:  "homeassistant",
		LegacySlotModels: []string{"samsung_hd103si"},
		LegacySlotCount:  2,
	}
	got := n.LegacySlotTopics()
	want := []string{
		"homeassistant/sensor/samsung_hd103si_slot0_health/config",
		"homeassistant/sensor/samsung_hd103si_slot0_operational_status/config",
		"homeassistant/sensor/samsung_hd103si_slot1_health/config",
		"homeassistant/sensor/samsung_hd103si_slot1_operational_status/config",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LegacySlotTopics = %v, want %v", got, want)
	}
}

func TestNamer_LegacySlotTopics_EmptyCatalogue(t *testing.T) {
	n := testNamer()
	if got := n.LegacySlotTopics(); got != nil {
		t.Errorf("LegacySlotTopics with empty catalogue = %v, want nil", got)
	}
}

func TestNamer_HostWildcard(t *testing.T) {
	n := testNamer()
	if got, want := n.HostWildcard("pc1"), "homeassistant/sensor/pc1/#"; got != want {
		t.Errorf("HostWildcard = %q, want %q", got, want)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe([]string{"a", "b", "a", "c", "b"})
	want := []string{"a", "b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Dedupe = %v, want %v", got, want)
	}
}
