package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/blagojts/viper"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/savantlab/judgebench/internal/mock"
)

func newMockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Serve a local mock judge endpoint to exercise the harness against",
		Run:   serveMock,
	}
	cmd.Flags().String("listen", ":8008", "Address to serve the mock judge on")
	cmd.Flags().Duration("mock-latency", 30*time.Millisecond, "Artificial latency added to every judge request")
	cmd.Flags().Duration("mock-spike", 0, "Extra latency added to every mock-spike-every-th judge request")
	cmd.Flags().Uint64("mock-spike-every", 0, "Spike cadence in judge requests, 0 disables")
	cmd.Flags().Uint64("mock-fail-every", 0, "Return 500 on every this-many-th judge request, 0 disables")
	return cmd
}

func serveMock(cmd *cobra.Command, args []string) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		fatal(errors.Wrap(err, "could not bind mock flags"))
	}
	cfg := mock.Config{
		Latency:    viper.GetDuration("mock-latency"),
		Spike:      viper.GetDuration("mock-spike"),
		SpikeEvery: viper.GetUint64("mock-spike-every"),
		FailEvery:  viper.GetUint64("mock-fail-every"),
	}
	listen := viper.GetString("listen")
	fmt.Printf("mock judge listening on %s\n", listen)
	if err := http.ListenAndServe(listen, mock.NewHandler(cfg)); err != nil {
		fatal(err)
	}
}
