package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
)

const RunResultVersion = "0.1"

const labelAllRequests = "all requests"

// RunResult aggregates the results of one benchmark run in the suite's
// common format.
type RunResult struct {
	ResultFormatVersion string `json:"ResultFormatVersion"`

	RunnerConfig RunnerConfig `json:"RunnerConfig"`

	StartTime      int64 `json:"StartTime"`
	EndTime        int64 `json:"EndTime"`
	DurationMillis int64 `json:"DurationMillis"`

	Totals map[string]interface{} `json:"Totals"`
}

// NewRunResult assembles the results-file document for one run.
// resources may be nil when telemetry is disabled.
func NewRunResult(config RunnerConfig, out *RunOutput, v Verdict, runID string, resources interface{}) RunResult {
	took := out.End.Sub(out.Start)

	totals := make(map[string]interface{})
	totals["runID"] = runID
	totals["burnIn"] = config.Warmup + config.Discard
	totals["limit"] = config.N
	totals["dispatched"] = out.Dispatched
	totals["counted"] = v.Count
	totals["failures"] = v.Failures
	totals["failureRate"] = v.FailureRate
	totals["pass"] = v.Pass

	rates := make(map[string]interface{})
	if secs := took.Seconds(); secs > 0 {
		rates[stripRegex(labelAllRequests)] = float64(len(out.Raw)) / secs
		rates["counted"] = float64(v.Count) / secs
	}
	totals["overallRequestRates"] = rates

	if out.hist != nil {
		_, quantiles := generateQuantileMap(out.hist)
		totals["overallQuantiles"] = map[string]interface{}{
			stripRegex(labelAllRequests): quantiles,
		}
	}
	if resources != nil {
		totals["driverResources"] = resources
	}

	return RunResult{
		ResultFormatVersion: RunResultVersion,
		RunnerConfig:        config,
		StartTime:           out.Start.UTC().Unix() * 1000,
		EndTime:             out.End.UTC().Unix() * 1000,
		DurationMillis:      took.Milliseconds(),
		Totals:              totals,
	}
}

// SaveResultsFile writes the run result json to path.
func SaveResultsFile(path string, result RunResult) error {
	fmt.Printf("Saving results json file to %s\n", path)
	file, err := json.MarshalIndent(result, "", " ")
	if err != nil {
		return errors.Wrap(err, "marshaling results file")
	}
	if err := os.WriteFile(path, file, 0644); err != nil {
		return errors.Wrap(err, "writing results file")
	}
	return nil
}

func generateQuantileMap(hist *hdrhistogram.Histogram) (int64, map[string]float64) {
	ops := hist.TotalCount()
	q0 := 0.0
	q50 := 0.0
	q95 := 0.0
	q99 := 0.0
	q999 := 0.0
	q100 := 0.0
	if ops > 0 {
		q0 = float64(hist.ValueAtQuantile(0.0)) / hdrScaleFactor
		q50 = float64(hist.ValueAtQuantile(50.0)) / hdrScaleFactor
		q95 = float64(hist.ValueAtQuantile(95.0)) / hdrScaleFactor
		q99 = float64(hist.ValueAtQuantile(99.0)) / hdrScaleFactor
		q999 = float64(hist.ValueAtQuantile(99.90)) / hdrScaleFactor
		q100 = float64(hist.ValueAtQuantile(100.0)) / hdrScaleFactor
	}

	mp := map[string]float64{"q0": q0, "q50": q50, "q95": q95, "q99": q99, "q999": q999, "q100": q100}
	return ops, mp
}

func stripRegex(in string) string {
	reg, _ := regexp.Compile("[^a-zA-Z0-9]+")
	return reg.ReplaceAllString(in, "_")
}
