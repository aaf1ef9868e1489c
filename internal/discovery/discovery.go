// Package discovery builds Home Assistant MQTT discovery documents. The
// builder is pure: it produces typed, serializable records and never
// publishes anything itself — publication belongs to the executor.
package discovery

import "encoding/json"

// DeviceInfo is the HA device registry block attached to every sensor
// config so the hub clusters entities under one device page.
type DeviceInfo struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
}

// SensorConfig is the JSON payload of an HA MQTT sensor discovery
// message. Optional fields serialize only when set.
type SensorConfig struct {
	Name                      string      `json:"name"`
	UniqueID                  string      `json:"unique_id"`
	StateTopic                string      `json:"state_topic"`
	ObjectID                  string      `json:"object_id,omitempty"`
	DeviceClass               string      `json:"device_class,omitempty"`
	StateClass                string      `json:"state_class,omitempty"`
	UnitOfMeasurement         string      `json:"unit_of_measurement,omitempty"`
	SuggestedDisplayPrecision int         `json:"suggested_display_precision,omitempty"`
	Device                    *DeviceInfo `json:"device,omitempty"`
	JsonAttributesTopic       string      `json:"json_attributes_topic,omitempty"`
	ValueTemplate             string      `json:"value_template,omitempty"`
}

// Options carries the optional fields of a sensor document. Zero values
// mean "omit".
type Options struct {
	ObjectID                  string
	DeviceClass               string
	StateClass                string
	UnitOfMeasurement         string
	SuggestedDisplayPrecision int
	Device                    *DeviceInfo
	JsonAttributesTopic       string
	// ValueTemplate extracts a scalar when the state topic carries a
	// multi-field JSON payload, e.g. "{{ value_json.c_used_percent }}".
	ValueTemplate string
}

// NewSensor builds a sensor discovery document. Total and side-effect
// free; any combination of options yields a valid document.
func NewSensor(name, uniqueID, stateTopic string, opts Options) SensorConfig {
	return SensorConfig{
		Name:                      name,
		UniqueID:                  uniqueID,
		StateTopic:                stateTopic,
		ObjectID:                  opts.ObjectID,
		DeviceClass:               opts.DeviceClass,
		StateClass:                opts.StateClass,
		UnitOfMeasurement:         opts.UnitOfMeasurement,
		SuggestedDisplayPrecision: opts.SuggestedDisplayPrecision,
		Device:                    opts.Device,
		JsonAttributesTopic:       opts.JsonAttributesTopic,
		ValueTemplate:             opts.ValueTemplate,
	}
}

// HostDevice builds the device block for host-scoped sensors, keyed by
// the host token. The display name keeps the machine's original casing.
func HostDevice(hostToken, hostName string) *DeviceInfo {
	return &DeviceInfo{
		Identifiers:  []string{hostToken},
		Name:         hostName,
		Manufacturer: "Hollow Oak",
		Model:        "Winsense Windows Agent",
	}
}

// ComponentDevice builds the device block for a portable component's
// sensors. The block is keyed by the host currently observing the
// component, so the hub shows it under the current machine, while the
// sensor's unique_id stays host-independent and carries the history when
// the component moves.
func ComponentDevice(hostToken, hostName string) *DeviceInfo {
	return HostDevice(hostToken, hostName)
}

// Marshal encodes a document for publication.
func (c SensorConfig) Marshal() ([]byte, error) {
	return json.Marshal(c)
}
