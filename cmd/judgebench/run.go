package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/blagojts/viper"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/savantlab/judgebench/internal/telemetry"
	"github.com/savantlab/judgebench/pkg/bench"
	"github.com/savantlab/judgebench/pkg/harden"
	"github.com/savantlab/judgebench/pkg/metrics"
	"github.com/savantlab/judgebench/pkg/smoke"
)

// gateFailExitCode distinguishes a threshold violation from a setup
// failure so CI can tell "service too slow" apart from "run broken".
const gateFailExitCode = 2

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: smoke battery, hardening battery, staged benchmark, gate",
		Run: func(cmd *cobra.Command, args []string) {
			runPipeline(true)
		},
	}
}

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run the staged benchmark and gate only, skipping the smoke and hardening batteries",
		Run: func(cmd *cobra.Command, args []string) {
			runPipeline(false)
		},
	}
}

// decodeConfig materializes the runner configuration from viper (flags,
// environment and config file) and resolves the stage profile.
func decodeConfig() (bench.RunnerConfig, []bench.Stage) {
	var config bench.RunnerConfig
	if err := viper.Unmarshal(&config); err != nil {
		fatal(errors.Wrap(err, "unable to decode runner config"))
	}

	// Stage lists only arrive via config file, never flags.
	var configured []bench.Stage
	if viper.IsSet("stages") {
		if err := viper.UnmarshalKey("stages", &configured); err != nil {
			fatal(errors.Wrap(err, "unable to decode stages"))
		}
	}

	stages, err := config.Profile(configured)
	if err != nil {
		fatal(err)
	}
	return config, stages
}

func runPipeline(withBatteries bool) {
	config, stages := decodeConfig()

	runner, err := bench.NewRunner(config)
	if err != nil {
		fatal(err)
	}
	if err := bench.EnsureOutDir(config.OutDir); err != nil {
		fatal(err)
	}

	// An endpoint nobody answers on is a setup error, not a latency
	// statistic.
	if err := runner.Probe(); err != nil {
		fatal(err)
	}

	runID := uuid.New().String()
	fmt.Printf("run %s against %s\n", runID, config.BaseURL)

	var smokeSummary *bench.SmokeSummary
	if withBatteries {
		sm := smoke.Run(config.BaseURL)
		if err := sm.Save(config.OutDir); err != nil {
			fatal(err)
		}
		fmt.Printf("smoke: %d/%d ok\n", sm.OK, sm.Total)
		smokeSummary = &bench.SmokeSummary{OKRate: sm.OKRate, OK: sm.OK, Total: sm.Total}

		hd := harden.Run(config.BaseURL, config.Endpoint, harden.DefaultCases())
		if err := hd.Save(config.OutDir); err != nil {
			fatal(err)
		}
		fmt.Printf("hardening: %d/%d non-200\n", hd.Errors, hd.N)
	}

	sampler := telemetry.NewSampler(time.Second)
	sampler.Start()
	out, err := runner.Run(stages)
	resources := sampler.Stop()
	if err != nil {
		fatal(err)
	}

	verdict := bench.Evaluate(out.Counted, config.Thresholds(), config.PercentileBase)
	gate := bench.NewGateArtifact(config, verdict, smokeSummary)

	if err := bench.WriteBenchmarkArtifact(config.OutDir, verdict); err != nil {
		fatal(err)
	}
	if err := bench.WriteGateArtifact(config.OutDir, gate); err != nil {
		fatal(err)
	}
	if err := bench.WriteSummaryArtifact(config.OutDir, runID, verdict); err != nil {
		fatal(err)
	}

	if resources.Samples > 0 {
		fmt.Printf("driver cpu: %.1f%% avg (%.1f%% max), mem used: %.0f MB avg\n",
			resources.CPU.AvgPercent, resources.CPU.MaxPercent, resources.Memory.AvgBytes/1e6)
	}

	if config.ResultsFile != "" {
		var driverResources interface{}
		if resources.Samples > 0 {
			driverResources = resources
		}
		result := bench.NewRunResult(config, out, verdict, runID, driverResources)
		if err := bench.SaveResultsFile(config.ResultsFile, result); err != nil {
			fatal(err)
		}
	}
	if config.InfluxURL != "" {
		exportOutcomes(config, runID, out.Counted)
	}

	outDir, err := filepath.Abs(config.OutDir)
	if err != nil {
		outDir = config.OutDir
	}
	fmt.Println("artifacts written to", outDir)
	for _, v := range verdict.Violations {
		fmt.Printf("violated %s: measured %v, limit %v\n", v.Criterion, v.Measured, v.Limit)
	}
	fmt.Println("gate pass:", gate.Pass)
	if !gate.Pass {
		os.Exit(gateFailExitCode)
	}
}

// exportOutcomes ships per-request outcomes to InfluxDB. Export problems
// are reported and swallowed: metrics never gate a run.
func exportOutcomes(config bench.RunnerConfig, runID string, outcomes []bench.Outcome) {
	exporter, err := metrics.NewExporter(config.InfluxURL, config.InfluxDB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics export disabled: %v\n", err)
		return
	}
	defer exporter.Close()
	if err := exporter.Export(runID, "benchmark", outcomes); err != nil {
		fmt.Fprintf(os.Stderr, "metrics export failed: %v\n", err)
	}
}
