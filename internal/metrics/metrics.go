// Package metrics defines the provider contract for raw host readings
// and the wire payloads derived from them. Hardware enumeration is
// unreliable by nature; everything downstream treats a failed reading as
// "zero items" or "unavailable" and keeps going.
package metrics

import (
	"context"
	"encoding/json"
	"math"

	"github.com/nugget/winsense/internal/identity"
)

// Volume is a fixed volume as reported by the OS, pre-sanitization.
type Volume struct {
	DriveLetter string
	Label       string
	SizeBytes   uint64
	FreeBytes   uint64
}

// PhysicalDisk is a physical, non-removable disk as reported by the OS.
type PhysicalDisk struct {
	Model             string
	Serial            string
	Health            string
	OperationalStatus string
	MediaType         string
}

// RemovableDrive describes removable media. Enumerated for completeness;
// nothing is published for these yet.
type RemovableDrive struct {
	Model        string
	Serial       string
	Manufacturer string
	DriveLetters []string
}

// Provider supplies raw readings. Implementations return an error when a
// reading is unavailable; callers skip that data point and continue.
type Provider interface {
	CPULoadPercent(ctx context.Context) (float64, error)
	CPUTemperatureCelsius(ctx context.Context) (float64, error)
	FixedVolumes(ctx context.Context) ([]Volume, error)
	PhysicalDisks(ctx context.Context) ([]PhysicalDisk, error)
	RemovableDrives(ctx context.Context) ([]RemovableDrive, error)
}

// VolumeMetric is the published view of a volume: sanitized drive token
// plus derived capacity figures.
type VolumeMetric struct {
	DriveToken  string
	VolumeLabel string
	SizeBytes   uint64
	FreeBytes   uint64
	UsedBytes   uint64
	UsedPercent float64
}

// UsedPercent computes used capacity as a percentage rounded to one
// decimal. A zero-size volume (unformatted, mid-enumeration) yields 0
// rather than dividing by zero.
func UsedPercent(sizeBytes, freeBytes uint64) float64 {
	if sizeBytes == 0 {
		return 0
	}
	used := float64(sizeBytes-freeBytes) / float64(sizeBytes) * 100
	return math.Round(used*10) / 10
}

// NewVolumeMetric derives the published metric for a raw volume.
func NewVolumeMetric(v Volume) VolumeMetric {
	return VolumeMetric{
		DriveToken:  identity.Sanitize(v.DriveLetter),
		VolumeLabel: v.Label,
		SizeBytes:   v.SizeBytes,
		FreeBytes:   v.FreeBytes,
		UsedBytes:   v.SizeBytes - v.FreeBytes,
		UsedPercent: UsedPercent(v.SizeBytes, v.FreeBytes),
	}
}

// DiskHealthRecord is the published view of a physical disk, keyed by
// its host-independent component ID.
type DiskHealthRecord struct {
	ComponentID       string
	Health            string
	OperationalStatus string
	MediaType         string
}

// NewDiskHealthRecord derives the published record for a raw disk.
func NewDiskHealthRecord(d PhysicalDisk) DiskHealthRecord {
	return DiskHealthRecord{
		ComponentID:       identity.ComponentID(d.Model, d.Serial),
		Health:            d.Health,
		OperationalStatus: d.OperationalStatus,
		MediaType:         d.MediaType,
	}
}

// DisksPayload builds the flat JSON object for windows/<host>/disks:
// <drive>_size_bytes, _free_bytes, _used_bytes (integers) and
// _used_percent (one decimal) per volume. Keys marshal in sorted order.
func DisksPayload(vols []VolumeMetric) ([]byte, error) {
	flat := make(map[string]any, len(vols)*4)
	for _, v := range vols {
		flat[v.DriveToken+"_size_bytes"] = v.SizeBytes
		flat[v.DriveToken+"_free_bytes"] = v.FreeBytes
		flat[v.DriveToken+"_used_bytes"] = v.UsedBytes
		flat[v.DriveToken+"_used_percent"] = v.UsedPercent
	}
	return json.Marshal(flat)
}

// HealthPayload builds the flat JSON object for windows/<host>/health:
// <componentID>_health, _operational_status, _media_type per disk, all
// string values.
func HealthPayload(records []DiskHealthRecord) ([]byte, error) {
	flat := make(map[string]string, len(records)*3)
	for _, r := range records {
		flat[r.ComponentID+"_health"] = r.Health
		flat[r.ComponentID+"_operational_status"] = r.OperationalStatus
		flat[r.ComponentID+"_media_type"] = r.MediaType
	}
	return json.Marshal(flat)
}
