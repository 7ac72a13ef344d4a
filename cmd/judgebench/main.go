// judgebench drives staged HTTP load against a judge inference endpoint
// and gates on the measured latency percentiles and failure rate.
//
// It probes the endpoint first, optionally runs the smoke and hardening
// batteries, executes the configured concurrency ramp, and writes the
// artifact set consumed by automated pipelines. Exit code 0 means the
// gate passed, 2 means it failed, 1 means the run could not be set up.
package main

import (
	"fmt"
	"os"

	"github.com/blagojts/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/savantlab/judgebench/internal/utils"
	"github.com/savantlab/judgebench/pkg/bench"
)

var cfgFile string

func initRootCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:              "judgebench",
		Short:            "Benchmark harness for the Savant judge endpoint",
		PersistentPreRun: initViperConfig,
	}

	fs := pflag.NewFlagSet("", pflag.ContinueOnError)
	var config bench.RunnerConfig
	config.AddToFlagSet(fs)
	cmd.PersistentFlags().AddFlagSet(fs)
	err := viper.BindPFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	if err != nil {
		return nil, fmt.Errorf("could not bind flags to configuration: %v", err)
	}
	if err := viper.BindEnv("base-url", "BASE_URL"); err != nil {
		return nil, fmt.Errorf("could not bind BASE_URL: %v", err)
	}

	cmd.AddCommand(newRunCmd(), newBenchCmd(), newSmokeCmd(), newHardenCmd(), newMockCmd())
	return cmd, nil
}

func initViperConfig(*cobra.Command, []string) {
	utils.SetupConfigFile(cfgFile)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}

func main() {
	cmd, err := initRootCmd()
	if err != nil {
		fatal(err)
	}
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
