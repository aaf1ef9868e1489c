// Winsense publishes Windows host telemetry to an MQTT broker with
// Home Assistant discovery, and decommissions the retained topics of a
// host or hardware component when one is removed.
//
// Usage:
//
//	winsense publish [-full]        Run one sampling/publication cycle
//	winsense decommission -host <name> | -component <id> [-force] [-dry-run]
//	winsense version                Print version and build information
//
// Configuration is loaded from a single YAML file discovered
// automatically (see [config.DefaultSearchPaths]).
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/nugget/winsense/internal/buildinfo"
	"github.com/nugget/winsense/internal/config"
	"github.com/nugget/winsense/internal/identity"
	"github.com/nugget/winsense/internal/metrics"
	"github.com/nugget/winsense/internal/plan"
	"github.com/nugget/winsense/internal/publish"
	"github.com/nugget/winsense/internal/sampler"
	"github.com/nugget/winsense/internal/topics"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit and os.Args out of the application logic so the full lifecycle
// can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Stdin, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point. Arguments are parsed by hand: the flag
// package relies on package-level globals (flag.CommandLine), which
// makes it impossible to call run() concurrently from tests, and the
// argument surface here is small.
func run(ctx context.Context, stdout, stderr io.Writer, stdin io.Reader, args []string) error {
	var configPath string
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	switch command {
	case "publish":
		full := false
		for _, a := range cmdArgs {
			switch a {
			case "-full":
				full = true
			default:
				return fmt.Errorf("usage: winsense publish [-full]")
			}
		}
		return runPublish(ctx, stdout, configPath, full)
	case "decommission":
		opts, err := parseDecommissionArgs(cmdArgs)
		if err != nil {
			return err
		}
		return runDecommission(ctx, stdout, stdin, configPath, opts)
	case "version":
		return runVersion(stdout)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// decommissionOptions is the parsed surface of the decommission
// subcommand. Exactly one of Host or Component is set.
type decommissionOptions struct {
	Host      string
	Component string
	Force     bool
	DryRun    bool
}

// parseDecommissionArgs validates the mutually-exclusive target flags
// before any network action can happen.
func parseDecommissionArgs(args []string) (decommissionOptions, error) {
	var opts decommissionOptions
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-host" && i+1 < len(args):
			opts.Host = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-host="):
			opts.Host = strings.TrimPrefix(args[i], "-host=")
		case args[i] == "-component" && i+1 < len(args):
			opts.Component = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-component="):
			opts.Component = strings.TrimPrefix(args[i], "-component=")
		case args[i] == "-force":
			opts.Force = true
		case args[i] == "-dry-run":
			opts.DryRun = true
		default:
			return opts, fmt.Errorf("unknown decommission flag: %s", args[i])
		}
	}

	if opts.Host != "" && opts.Component != "" {
		return opts, fmt.Errorf("-host and -component are mutually exclusive")
	}
	if opts.Host == "" && opts.Component == "" {
		return opts, fmt.Errorf("decommission requires -host <name> or -component <id>")
	}
	return opts, nil
}

// setup loads configuration and builds the logger, namer and planner
// shared by both subcommands.
func setup(stdout io.Writer, configPath string) (*config.Config, *slog.Logger, plan.Planner, error) {
	path, err := config.FindConfig(configPath)
	if err != nil {
		return nil, nil, plan.Planner{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, plan.Planner{}, fmt.Errorf("load config %s: %w", path, err)
	}

	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, plan.Planner{}, err
	}
	logger := slog.New(slog.NewTextHandler(stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	planner := plan.Planner{
		Namer: topics.Namer{
			DiscoveryPrefix:  cfg.MQTT.DiscoveryPrefix,
			LegacySlotModels: cfg.Legacy.SlotModels,
			LegacySlotCount:  cfg.Legacy.SlotCount,
			OrphanTopics:     cfg.Legacy.OrphanTopics,
		},
		Logger:         logger,
		FallbackDrives: cfg.FallbackDrives,
		QueryTimeout:   time.Duration(cfg.Query.TimeoutSec) * time.Second,
		QueryMax:       cfg.Query.MaxMessages,
	}
	return cfg, logger, planner, nil
}

// runPublish executes one monitoring cycle: sample, plan, publish.
// Unavailable readings and failed enumerations are skipped; the run
// only fails when topic operations fail.
func runPublish(ctx context.Context, stdout io.Writer, configPath string, full bool) error {
	cfg, logger, planner, err := setup(stdout, configPath)
	if err != nil {
		return err
	}

	s := sampler.New(logger)
	snap := buildSnapshot(ctx, s, logger, cfg.HostName, full)

	p, err := planner.Publish(snap)
	if err != nil {
		return fmt.Errorf("plan publish cycle: %w", err)
	}

	transport := publish.NewPahoTransport(cfg.MQTT.Broker, cfg.MQTT.Username, cfg.MQTT.Password, logger)
	if err := transport.Connect(ctx); err != nil {
		return err
	}
	defer transport.Close(ctx)

	summary := publish.Executor{
		Transport: transport,
		QoS:       byte(cfg.MQTT.QoS),
		Logger:    logger,
	}.Execute(ctx, p)

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d topic operations failed", summary.Failed, summary.Attempted)
	}
	return nil
}

// buildSnapshot samples the local machine. Every failure is absorbed
// here: a missing reading or failed enumeration logs a warning and
// leaves that part of the snapshot empty, per the rule that hardware
// trouble never aborts a run.
func buildSnapshot(ctx context.Context, provider metrics.Provider, logger *slog.Logger, hostName string, full bool) plan.Snapshot {
	snap := plan.Snapshot{
		HostToken: identity.HostToken(hostName),
		HostName:  hostName,
		FullCycle: full,
	}

	if load, err := provider.CPULoadPercent(ctx); err != nil {
		logger.Warn("cpu load unavailable", "error", err)
	} else {
		snap.CPULoad, snap.CPULoadOK = load, true
	}

	if temp, err := provider.CPUTemperatureCelsius(ctx); err != nil {
		logger.Debug("cpu temperature unavailable", "error", err)
	} else {
		snap.CPUTemp, snap.CPUTempOK = temp, true
	}

	vols, err := provider.FixedVolumes(ctx)
	if err != nil {
		logger.Warn("volume enumeration failed, publishing zero volumes", "error", err)
	}
	for _, v := range vols {
		snap.Volumes = append(snap.Volumes, metrics.NewVolumeMetric(v))
	}

	if full {
		disks, err := provider.PhysicalDisks(ctx)
		if err != nil {
			logger.Warn("physical disk enumeration failed, publishing zero disks", "error", err)
		}
		for _, d := range disks {
			snap.Disks = append(snap.Disks, metrics.NewDiskHealthRecord(d))
		}
	}

	return snap
}

// runDecommission deletes the retained topics of a host or component.
// Dry-run computes and prints the plan without touching the transport;
// otherwise the user confirms (unless forced) before any deletion.
func runDecommission(ctx context.Context, stdout io.Writer, stdin io.Reader, configPath string, opts decommissionOptions) error {
	cfg, logger, planner, err := setup(stdout, configPath)
	if err != nil {
		return err
	}

	if opts.Component != "" {
		componentID := identity.Sanitize(opts.Component)
		return executeDecommission(ctx, stdout, stdin, cfg, logger, opts,
			"component "+componentID,
			func(plan.TopicQuerier) *plan.Plan {
				return planner.ComponentDecommission(componentID)
			})
	}

	target := plan.HostTarget{HostToken: identity.HostToken(opts.Host)}
	if target.HostToken == identity.HostToken(cfg.HostName) {
		target.Local = true
		s := sampler.New(logger)
		if vols, err := s.FixedVolumes(ctx); err == nil {
			for _, v := range vols {
				target.LocalDrives = append(target.LocalDrives, identity.Sanitize(v.DriveLetter))
			}
		} else {
			logger.Warn("volume enumeration failed, using fallback drives", "error", err)
			target.LocalDrives = cfg.FallbackDrives
		}
		if disks, err := s.PhysicalDisks(ctx); err == nil {
			for _, d := range disks {
				target.LocalComponents = append(target.LocalComponents, identity.ComponentID(d.Model, d.Serial))
			}
		}
	}

	return executeDecommission(ctx, stdout, stdin, cfg, logger, opts,
		"host "+target.HostToken,
		func(q plan.TopicQuerier) *plan.Plan {
			return planner.HostDecommission(ctx, target, q)
		})
}

// executeDecommission runs the shared dry-run/confirm/execute flow.
// planFn receives the live topic querier, or nil when the broker must
// not be touched.
func executeDecommission(ctx context.Context, stdout io.Writer, stdin io.Reader, cfg *config.Config, logger *slog.Logger, opts decommissionOptions, what string, planFn func(plan.TopicQuerier) *plan.Plan) error {
	if opts.DryRun {
		// The live broker query is skipped too: dry-run never opens a
		// connection, so broker-discovered topics are not listed.
		return printPlan(stdout, planFn(nil), what)
	}

	if !opts.Force {
		ok, err := confirm(stdout, stdin, fmt.Sprintf("Decommission %s and delete its retained topics?", what))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(stdout, "cancelled")
			return nil
		}
	}

	transport := publish.NewPahoTransport(cfg.MQTT.Broker, cfg.MQTT.Username, cfg.MQTT.Password, logger)
	if err := transport.Connect(ctx); err != nil {
		return err
	}
	defer transport.Close(ctx)

	summary := publish.Executor{
		Transport: transport,
		QoS:       byte(cfg.MQTT.QoS),
		Logger:    logger,
	}.Execute(ctx, planFn(transport))

	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d topic deletions failed", summary.Failed, summary.Attempted)
	}
	return nil
}

// printPlan writes the planned deletions without executing anything.
func printPlan(w io.Writer, p *plan.Plan, what string) error {
	fmt.Fprintf(w, "dry run: %d topic(s) would be deleted for %s\n", p.Len(), what)
	for _, topic := range p.Topics() {
		fmt.Fprintf(w, "  delete %s\n", topic)
	}
	return nil
}

// confirm asks a yes/no question on stdin. Only "y" or "yes" proceed.
func confirm(w io.Writer, r io.Reader, question string) (bool, error) {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return false, scanner.Err()
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes", nil
}

// runVersion prints build metadata.
func runVersion(w io.Writer) error {
	fmt.Fprintln(w, buildinfo.String())
	info := buildinfo.Info()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "winsense - Windows host telemetry to MQTT")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: winsense [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  publish [-full]   Run one sampling/publication cycle")
	fmt.Fprintln(w, "  decommission      Delete retained topics for a host or component")
	fmt.Fprintln(w, "                    -host <name> | -component <id> [-force] [-dry-run]")
	fmt.Fprintln(w, "  version           Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	for _, p := range config.DefaultSearchPaths() {
		fmt.Fprintf(w, "  %s\n", p)
	}
	return nil
}
