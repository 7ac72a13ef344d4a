package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/savantlab/judgebench/pkg/bench"
	"github.com/savantlab/judgebench/pkg/harden"
	"github.com/savantlab/judgebench/pkg/smoke"
)

func newSmokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Probe the read-only endpoints once and write smoke.json",
		Run: func(cmd *cobra.Command, args []string) {
			config := probeTarget()
			res := smoke.Run(config.BaseURL)
			if err := res.Save(config.OutDir); err != nil {
				fatal(err)
			}
			fmt.Printf("smoke: %d/%d ok (ok_rate %.2f)\n", res.OK, res.Total, res.OKRate)
		},
	}
}

func newHardenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harden",
		Short: "Post the adversarial payload battery and write hardening.json",
		Run: func(cmd *cobra.Command, args []string) {
			config := probeTarget()
			res := harden.Run(config.BaseURL, config.Endpoint, harden.DefaultCases())
			if err := res.Save(config.OutDir); err != nil {
				fatal(err)
			}
			fmt.Printf("hardening: %d/%d non-200 (error_rate %.2f)\n", res.Errors, res.N, res.ErrorRate)
		},
	}
}

// probeTarget decodes the config, prepares the artifact directory and
// verifies the target answers at all before a battery touches it.
func probeTarget() bench.RunnerConfig {
	config, _ := decodeConfig()
	runner, err := bench.NewRunner(config)
	if err != nil {
		fatal(err)
	}
	if err := bench.EnsureOutDir(config.OutDir); err != nil {
		fatal(err)
	}
	if err := runner.Probe(); err != nil {
		fatal(err)
	}
	return config
}
