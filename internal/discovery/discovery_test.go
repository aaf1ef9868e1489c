package discovery

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewSensor_RequiredFieldsOnly(t *testing.T) {
	doc := NewSensor("CPU Load", "desktop_abc_cpu_load", "windows/desktop_abc/system/cpu_load", Options{})

	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	want := map[string]any{
		"name":        "CPU Load",
		"unique_id":   "desktop_abc_cpu_load",
		"state_topic": "windows/desktop_abc/system/cpu_load",
	}
	if len(got) != len(want) {
		t.Errorf("payload has %d fields, want %d: %s", len(got), len(want), data)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestNewSensor_OptionalFieldsSerialized(t *testing.T) {
	doc := NewSensor("Used Percent", "id", "windows/pc1/disks", Options{
		ObjectID:                  "disk_c_used_percent",
		DeviceClass:               "power_factor",
		StateClass:                "measurement",
		UnitOfMeasurement:         "%",
		SuggestedDisplayPrecision: 1,
		Device:                    HostDevice("pc1", "PC1"),
		JsonAttributesTopic:       "windows/pc1/disks",
		ValueTemplate:             "{{ value_json.c_used_percent }}",
	})

	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	for _, field := range []string{
		`"object_id"`, `"device_class"`, `"state_class"`,
		`"unit_of_measurement"`, `"suggested_display_precision"`,
		`"device"`, `"json_attributes_topic"`, `"value_template"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("payload missing %s:\n%s", field, data)
		}
	}
}

func TestNewSensor_ZeroPrecisionOmitted(t *testing.T) {
	doc := NewSensor("Size", "id", "topic", Options{SuggestedDisplayPrecision: 0})
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if strings.Contains(string(data), "suggested_display_precision") {
		t.Errorf("zero precision should be omitted:\n%s", data)
	}
}

func TestHostDevice(t *testing.T) {
	dev := HostDevice("desktop_abc", "DESKTOP-ABC")
	if len(dev.Identifiers) != 1 || dev.Identifiers[0] != "desktop_abc" {
		t.Errorf("Identifiers = %v, want [desktop_abc]", dev.Identifiers)
	}
	if dev.Name != "DESKTOP-ABC" {
		t.Errorf("Name = %q, want %q", dev.Name, "DESKTOP-ABC")
	}
}

func TestComponentDevice_KeyedByCurrentHost(t *testing.T) {
	// Component sensors group under the machine currently hosting them,
	// even though their unique IDs are host-independent.
	dev := ComponentDevice("pc1", "PC1")
	if dev.Identifiers[0] != "pc1" {
		t.Errorf("Identifiers = %v, want keyed by host token", dev.Identifiers)
	}
}
