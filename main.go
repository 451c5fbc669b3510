package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pelagos/reef/config"
	"github.com/pelagos/reef/sim"
	"github.com/pelagos/reef/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite database for run recording (empty = disabled)")
	logEvery := flag.Int64("log-every", 0, "Log a progress line every N ticks (0 = windows only)")
	parallel := flag.Bool("parallel", false, "Offload the steering pass to a worker pool")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
		os.Exit(1)
	}

	cfgYAML, err := cfg.YAML()
	if err != nil {
		slog.Error("failed to serialize config", "error", err)
		os.Exit(1)
	}
	recorder, err := telemetry.OpenRecorder(*dbPath, rngSeed, cfgYAML)
	if err != nil {
		slog.Error("failed to open run database", "error", err)
		os.Exit(1)
	}

	s := sim.New(cfg, sim.Options{Seed: rngSeed, Parallel: *parallel})
	defer s.Close()

	slog.Info("starting simulation",
		"seed", rngSeed,
		"max_ticks", *maxTicks,
		"parallel", *parallel,
		"run_id", recorder.RunID(),
		"agents", s.Population().Agents(),
	)

	start := time.Now()
	for {
		s.Step()

		if stats, ok := s.WindowStatsDue(); ok {
			slog.Info("window", "stats", stats)
			if err := output.WriteTelemetry(stats); err != nil {
				slog.Error("telemetry write failed", "error", err)
			}
			if err := output.WritePerf(s.Perf().Stats().ToCSV(stats.WindowEndTick)); err != nil {
				slog.Error("perf write failed", "error", err)
			}
			if err := recorder.RecordWindow(stats); err != nil {
				slog.Error("run record failed", "error", err)
			}
		}

		if *logEvery > 0 && s.Tick()%*logEvery == 0 {
			slog.Info("progress",
				"tick", s.Tick(),
				"agents", s.Population().Agents(),
				"perf", s.Perf().Stats(),
			)
		}

		if *maxTicks > 0 && s.Tick() >= *maxTicks {
			break
		}
	}

	elapsed := time.Since(start)
	pop := s.Population()
	slog.Info("simulation finished",
		"ticks", humanize.Comma(s.Tick()),
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"ticks_per_sec", int(float64(s.Tick())/elapsed.Seconds()),
		"fish", pop.Fish,
		"krill", pop.KrillAll(),
		"tuna", pop.Tuna,
		"squid", pop.Squid,
	)

	if err := recorder.Close(s.Tick()); err != nil {
		slog.Error("closing run database", "error", err)
	}
}
