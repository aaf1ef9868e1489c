package plan

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nugget/winsense/internal/discovery"
	"github.com/nugget/winsense/internal/metrics"
	"github.com/nugget/winsense/internal/topics"
)

// TopicQuerier is the read-only slice of the transport the planner needs
// for host decommission: a bounded wildcard query for retained topics.
type TopicQuerier interface {
	QueryRetained(ctx context.Context, filter string, timeout time.Duration, maxMessages int) ([]string, error)
}

// Planner derives topic plans from hardware snapshots. All fields are
// set once at construction; a Planner is safe to reuse across modes
// within a run.
type Planner struct {
	Namer  topics.Namer
	Logger *slog.Logger

	// FallbackDrives are the drive tokens assumed for a host that cannot
	// be enumerated (decommissioning a remote machine). A common-case
	// approximation, not a completeness guarantee.
	FallbackDrives []string

	// QueryTimeout and QueryMax bound the live broker query during host
	// decommission. A slow or unreachable broker yields an empty result,
	// never a hung run.
	QueryTimeout time.Duration
	QueryMax     int
}

// Snapshot is the current state of the monitored machine for one publish
// cycle.
type Snapshot struct {
	HostToken string
	HostName  string

	// CPULoadOK and CPUTempOK report whether the reading was obtainable;
	// an unavailable reading skips that topic and nothing else.
	CPULoad   float64
	CPULoadOK bool
	CPUTemp   float64
	CPUTempOK bool

	Volumes []metrics.VolumeMetric

	// Disks and discovery documents are published only on the full
	// cycle; the lightweight cycle writes data values alone.
	Disks     []metrics.DiskHealthRecord
	FullCycle bool
}

// Publish computes the write-set for one monitoring cycle. No deletions
// occur in this mode. All writes are retained and idempotent: replanning
// from an unchanged snapshot yields an identical plan.
func (pl Planner) Publish(snap Snapshot) (*Plan, error) {
	n := pl.Namer
	p := NewPlan()

	p.Write(n.Availability(snap.HostToken), []byte("online"), true)
	if snap.CPULoadOK {
		p.Write(n.CPULoad(snap.HostToken), formatValue(snap.CPULoad), true)
	}
	if snap.CPUTempOK {
		p.Write(n.CPUTemperature(snap.HostToken), formatValue(snap.CPUTemp), true)
	}

	disks, err := metrics.DisksPayload(snap.Volumes)
	if err != nil {
		return nil, err
	}
	p.Write(n.Disks(snap.HostToken), disks, true)

	if !snap.FullCycle {
		return p, nil
	}

	health, err := metrics.HealthPayload(snap.Disks)
	if err != nil {
		return nil, err
	}
	p.Write(n.Health(snap.HostToken), health, true)

	if err := pl.addHostDiscovery(p, snap); err != nil {
		return nil, err
	}
	if err := pl.addComponentDiscovery(p, snap); err != nil {
		return nil, err
	}
	return p, nil
}

func formatValue(v float64) []byte {
	return []byte(strconv.FormatFloat(v, 'f', 1, 64))
}

// addHostDiscovery writes the host-scoped sensor registration documents:
// CPU load, CPU temperature, and three capacity sensors per volume
// extracted from the disks JSON topic via value templates.
func (pl Planner) addHostDiscovery(p *Plan, snap Snapshot) error {
	n := pl.Namer
	host := snap.HostToken
	dev := discovery.HostDevice(host, snap.HostName)

	type sensorDoc struct {
		metric string
		doc    discovery.SensorConfig
	}
	var docs []sensorDoc
	add := func(metric string, doc discovery.SensorConfig) {
		docs = append(docs, sensorDoc{metric, doc})
	}

	add("cpu_load", discovery.NewSensor("CPU Load", host+"_cpu_load", n.CPULoad(host), discovery.Options{
		ObjectID:                  host + "_cpu_load",
		StateClass:                "measurement",
		UnitOfMeasurement:         "%",
		SuggestedDisplayPrecision: 1,
		Device:                    dev,
	}))
	add("cpu_temperature", discovery.NewSensor("CPU Temperature", host+"_cpu_temperature", n.CPUTemperature(host), discovery.Options{
		ObjectID:                  host + "_cpu_temperature",
		DeviceClass:               "temperature",
		StateClass:                "measurement",
		UnitOfMeasurement:         "°C",
		SuggestedDisplayPrecision: 1,
		Device:                    dev,
	}))

	for _, v := range snap.Volumes {
		d := v.DriveToken
		label := strings.ToUpper(d)
		add("disk_"+d+"_free_bytes", discovery.NewSensor("Disk "+label+" Free", host+"_disk_"+d+"_free_bytes", n.Disks(host), discovery.Options{
			ObjectID:          host + "_disk_" + d + "_free_bytes",
			DeviceClass:       "data_size",
			StateClass:        "measurement",
			UnitOfMeasurement: "B",
			Device:            dev,
			ValueTemplate:     "{{ value_json." + d + "_free_bytes }}",
		}))
		add("disk_"+d+"_size_bytes", discovery.NewSensor("Disk "+label+" Size", host+"_disk_"+d+"_size_bytes", n.Disks(host), discovery.Options{
			ObjectID:          host + "_disk_" + d + "_size_bytes",
			DeviceClass:       "data_size",
			UnitOfMeasurement: "B",
			Device:            dev,
			ValueTemplate:     "{{ value_json." + d + "_size_bytes }}",
		}))
		add("disk_"+d+"_used_percent", discovery.NewSensor("Disk "+label+" Used", host+"_disk_"+d+"_used_percent", n.Disks(host), discovery.Options{
			ObjectID:                  host + "_disk_" + d + "_used_percent",
			StateClass:                "measurement",
			UnitOfMeasurement:         "%",
			SuggestedDisplayPrecision: 1,
			Device:                    dev,
			ValueTemplate:             "{{ value_json." + d + "_used_percent }}",
		}))
	}

	for _, s := range docs {
		payload, err := s.doc.Marshal()
		if err != nil {
			return err
		}
		p.Write(n.HostSensorConfig(host, s.metric), payload, true)
	}
	return nil
}

// addComponentDiscovery writes the registration documents for each
// physical disk's health and operational-status sensors. Unique IDs are
// host-independent (component ID based); the device block groups them
// under the current host.
func (pl Planner) addComponentDiscovery(p *Plan, snap Snapshot) error {
	n := pl.Namer
	dev := discovery.ComponentDevice(snap.HostToken, snap.HostName)

	for _, d := range snap.Disks {
		cfgTopics := n.ComponentConfigTopics(d.ComponentID)
		display := displayName(d.ComponentID)

		healthDoc := discovery.NewSensor(display+" Health", d.ComponentID+"_health", n.Health(snap.HostToken), discovery.Options{
			ObjectID:      d.ComponentID + "_health",
			Device:        dev,
			ValueTemplate: "{{ value_json." + d.ComponentID + "_health }}",
		})
		statusDoc := discovery.NewSensor(display+" Status", d.ComponentID+"_operational_status", n.Health(snap.HostToken), discovery.Options{
			ObjectID:      d.ComponentID + "_operational_status",
			Device:        dev,
			ValueTemplate: "{{ value_json." + d.ComponentID + "_operational_status }}",
		})

		for i, doc := range []discovery.SensorConfig{healthDoc, statusDoc} {
			payload, err := doc.Marshal()
			if err != nil {
				return err
			}
			p.Write(cfgTopics[i], payload, true)
		}
	}
	return nil
}

func displayName(componentID string) string {
	return strings.ToUpper(strings.ReplaceAll(componentID, "_", " "))
}

// HostTarget identifies the host being decommissioned and what can be
// enumerated about it.
type HostTarget struct {
	HostToken string

	// Local reports whether the target is the machine the agent runs on.
	// Remote hosts cannot be enumerated; the planner falls back to
	// FallbackDrives and leaves portable-component topics alone.
	Local bool

	// LocalDrives and LocalComponents are the sanitized drive tokens and
	// component IDs enumerated locally. Ignored unless Local.
	LocalDrives     []string
	LocalComponents []string
}

// HostDecommission computes the delete-set for a host: fixed data and
// discovery topics, per-drive discovery topics (enumerated or fallback),
// the legacy slot catalogue, configured orphans, locally-enumerated
// component topics (local targets only), and whatever a bounded live
// broker query still finds under the host's discovery segment.
//
// Portable-component topics are excluded for remote targets: component
// identity outlives host identity, and deleting another machine's disk
// registrations from a host decommission would break that.
//
// querier may be nil (dry-run), in which case the live query is skipped
// and the broker is not touched at all.
func (pl Planner) HostDecommission(ctx context.Context, target HostTarget, querier TopicQuerier) *Plan {
	n := pl.Namer
	host := target.HostToken

	var del []string
	del = append(del, n.DataTopics(host)...)

	drives := pl.FallbackDrives
	if target.Local {
		drives = target.LocalDrives
	}
	for _, metric := range topics.HostSensorMetrics(drives) {
		del = append(del, n.HostSensorConfig(host, metric))
	}

	del = append(del, n.LegacySlotTopics()...)
	del = append(del, n.OrphanTopics...)

	if target.Local {
		for _, id := range target.LocalComponents {
			del = append(del, n.ComponentConfigTopics(id)...)
		}
	}

	del = append(del, pl.queryLive(ctx, querier, host)...)
	del = append(del, pl.binarySensorTopics(host)...)

	p := NewPlan()
	for _, t := range topics.Dedupe(del) {
		p.Delete(t)
	}
	return p
}

// queryLive asks the broker for retained topics under the host's
// discovery segment that the static rules above did not predict. Best
// effort: a timeout or error is logged and treated as "nothing found".
func (pl Planner) queryLive(ctx context.Context, querier TopicQuerier, host string) []string {
	if querier == nil {
		return nil
	}
	found, err := querier.QueryRetained(ctx, pl.Namer.HostWildcard(host), pl.QueryTimeout, pl.QueryMax)
	if err != nil {
		pl.Logger.Warn("live topic query failed, continuing with static set",
			"host", host, "error", err)
		return nil
	}
	pl.Logger.Debug("live topic query complete", "host", host, "found", len(found))
	return found
}

// binarySensorTopics enumerates binary-sensor discovery topics for a
// host. None are published today; the slot exists so future sensor types
// flow through the same decommission merge.
func (pl Planner) binarySensorTopics(string) []string {
	return nil
}

// ComponentDecommission computes the delete-set for one portable
// component: exactly its two discovery config topics, derived by the
// same naming function that registration uses, so the deletion removes
// precisely what was registered. No data topics, no enumeration, no live
// query.
func (pl Planner) ComponentDecommission(componentID string) *Plan {
	p := NewPlan()
	for _, t := range pl.Namer.ComponentConfigTopics(componentID) {
		p.Delete(t)
	}
	return p
}
