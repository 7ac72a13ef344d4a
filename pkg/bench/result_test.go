package bench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRunResult(t *testing.T) {
	sg := newStatGroup()
	sg.push(100)
	sg.push(200)

	raw := okOutcomes(30, 100, 200)
	start := time.Unix(1700000000, 0)
	out := &RunOutput{
		Raw:        raw,
		Counted:    raw[1:],
		Start:      start,
		End:        start.Add(10 * time.Second),
		Dispatched: 3,
		hist:       sg.latencyHDRHistogram,
	}

	config := gateConfig()
	config.Warmup = 8
	config.Discard = 5
	v := Evaluate(out.Counted, DefaultThresholds(), PercentileAll)

	result := NewRunResult(config, out, v, "run-xyz", nil)

	if result.ResultFormatVersion != RunResultVersion {
		t.Fatalf("expected version %q but got %q", RunResultVersion, result.ResultFormatVersion)
	}
	if result.StartTime != 1700000000000 || result.EndTime != 1700000010000 {
		t.Fatalf("unexpected epoch millis: %d..%d", result.StartTime, result.EndTime)
	}
	if result.DurationMillis != 10000 {
		t.Fatalf("expected 10000ms but got %d", result.DurationMillis)
	}

	totals := result.Totals
	if totals["runID"] != "run-xyz" {
		t.Fatalf("expected runID run-xyz but got %v", totals["runID"])
	}
	if totals["burnIn"] != uint64(13) {
		t.Fatalf("expected burnIn 13 but got %v", totals["burnIn"])
	}
	if totals["dispatched"] != uint64(3) {
		t.Fatalf("expected 3 dispatched but got %v", totals["dispatched"])
	}
	if totals["counted"] != 2 || totals["failures"] != 0 || totals["pass"] != true {
		t.Fatalf("unexpected tallies: %v", totals)
	}

	rates, ok := totals["overallRequestRates"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing request rates: %v", totals)
	}
	if rates["all_requests"] != 0.3 || rates["counted"] != 0.2 {
		t.Fatalf("unexpected rates: %v", rates)
	}

	quantiles, ok := totals["overallQuantiles"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing quantiles: %v", totals)
	}
	qs, ok := quantiles["all_requests"].(map[string]float64)
	if !ok {
		t.Fatalf("missing all_requests quantiles: %v", quantiles)
	}
	closeTo(t, "q0", qs["q0"], 100)
	closeTo(t, "q100", qs["q100"], 200)

	if _, ok := totals["driverResources"]; ok {
		t.Fatalf("driver resources should be absent when telemetry is off")
	}

	withResources := NewRunResult(config, out, v, "run-xyz", map[string]int{"samples": 3})
	if _, ok := withResources.Totals["driverResources"]; !ok {
		t.Fatalf("expected driver resources to be recorded")
	}
}

func TestSaveResultsFile(t *testing.T) {
	sg := newStatGroup()
	sg.push(100)

	raw := okOutcomes(100)
	start := time.Unix(1700000000, 0)
	out := &RunOutput{
		Raw:        raw,
		Counted:    raw,
		Start:      start,
		End:        start.Add(time.Second),
		Dispatched: 1,
		hist:       sg.latencyHDRHistogram,
	}
	result := NewRunResult(gateConfig(), out, Evaluate(raw, DefaultThresholds(), PercentileAll), "run-1", nil)

	path := filepath.Join(t.TempDir(), "results.json")
	if err := SaveResultsFile(path, result); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got RunResult
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("results file is not valid json: %v", err)
	}
	if got.ResultFormatVersion != RunResultVersion || got.DurationMillis != 1000 {
		t.Fatalf("unexpected round trip: version %q, duration %d", got.ResultFormatVersion, got.DurationMillis)
	}
}
