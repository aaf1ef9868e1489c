// Package sampler is the local-machine MetricsProvider, built on
// gopsutil. Every reading is best-effort: hardware that does not expose
// a sensor yields "unavailable" or zero items, never a failed run.
package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/nugget/winsense/internal/metrics"
)

// cpuSampleWindow is how long the CPU load measurement observes the
// system. One second matches the reading granularity the hub expects.
const cpuSampleWindow = time.Second

// pseudoFilesystems are mount types that are not fixed volumes and
// must not appear in the disks payload.
var pseudoFilesystems = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "devfs": true, "overlay": true,
	"squashfs": true, "proc": true, "sysfs": true, "cgroup": true,
	"cgroup2": true, "ramfs": true, "autofs": true,
}

// Sampler reads metrics from the machine it runs on.
type Sampler struct {
	logger *slog.Logger
}

// New creates a local sampler.
func New(logger *slog.Logger) *Sampler {
	return &Sampler{logger: logger}
}

// CPULoadPercent measures CPU utilization over a one-second window.
func (s *Sampler) CPULoadPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, cpuSampleWindow, false)
	if err != nil {
		return 0, fmt.Errorf("cpu percent: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("cpu percent: no readings")
	}
	return percents[0], nil
}

// CPUTemperatureCelsius returns the first CPU-ish temperature sensor
// reading. Many machines expose none; that is an unavailable reading,
// not an error worth aborting for.
func (s *Sampler) CPUTemperatureCelsius(ctx context.Context) (float64, error) {
	sensors, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("temperature sensors: %w", err)
	}
	for _, sensor := range sensors {
		key := strings.ToLower(sensor.SensorKey)
		if strings.Contains(key, "cpu") || strings.Contains(key, "coretemp") ||
			strings.Contains(key, "k10temp") || strings.Contains(key, "tctl") {
			if sensor.Temperature > 0 {
				return sensor.Temperature, nil
			}
		}
	}
	return 0, fmt.Errorf("no cpu temperature sensor found")
}

// FixedVolumes enumerates mounted fixed volumes with their capacity.
// Volumes whose usage cannot be read are skipped with a warning.
func (s *Sampler) FixedVolumes(ctx context.Context) ([]metrics.Volume, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list partitions: %w", err)
	}

	var vols []metrics.Volume
	for _, part := range parts {
		if part.Fstype == "" || pseudoFilesystems[strings.ToLower(part.Fstype)] {
			continue
		}
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			s.logger.Warn("volume usage unreadable, skipping",
				"mountpoint", part.Mountpoint, "error", err)
			continue
		}
		vols = append(vols, metrics.Volume{
			DriveLetter: driveToken(part.Mountpoint),
			Label:       part.Device,
			SizeBytes:   usage.Total,
			FreeBytes:   usage.Free,
		})
	}
	return vols, nil
}

// driveToken reduces a mountpoint to its drive identity: "C:\" becomes
// "C", unix mountpoints keep their path (sanitization happens
// downstream).
func driveToken(mountpoint string) string {
	trimmed := strings.TrimRight(mountpoint, `:\/`)
	if trimmed == "" {
		return "root"
	}
	return trimmed
}

// PhysicalDisks returns physical-disk health records. The portable
// sources gopsutil offers carry no model/serial/health triple, so the
// local sampler reports zero items and the health payload stays empty;
// deployments feed health through a platform-specific provider.
func (s *Sampler) PhysicalDisks(context.Context) ([]metrics.PhysicalDisk, error) {
	s.logger.Debug("physical disk health not available from this provider")
	return nil, nil
}

// RemovableDrives returns removable media. Informational only; nothing
// is published for these, and the local sampler reports zero items.
func (s *Sampler) RemovableDrives(context.Context) ([]metrics.RemovableDrive, error) {
	return nil, nil
}
