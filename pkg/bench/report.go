package bench

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// BenchmarkArtifact is the benchmark.json schema. Latency fields are
// seconds and null when the counted set is empty.
type BenchmarkArtifact struct {
	N         int      `json:"N"`
	Errors    int      `json:"errors"`
	ErrorRate float64  `json:"error_rate"`
	P50S      *float64 `json:"p50_s"`
	P95S      *float64 `json:"p95_s"`
	P99S      *float64 `json:"p99_s"`
	MinS      *float64 `json:"min_s"`
	MeanS     *float64 `json:"mean_s"`
	MaxS      *float64 `json:"max_s"`
}

// SmokeSummary is the slice of the smoke phase the gate looks at.
type SmokeSummary struct {
	OKRate float64 `json:"ok_rate"`
	OK     int     `json:"ok"`
	Total  int     `json:"total"`
}

// GateChecks holds one PASS/FAIL string per criterion. SmokeOKRate is
// empty when the run had no smoke phase.
type GateChecks struct {
	P95         string `json:"p95"`
	P99         string `json:"p99"`
	ErrorRate   string `json:"error_rate"`
	SmokeOKRate string `json:"smoke_ok_rate,omitempty"`
}

// GateThresholds mirrors the thresholds block of gate.json.
type GateThresholds struct {
	P95SMax        float64 `json:"p95_s_max"`
	P99SMax        float64 `json:"p99_s_max"`
	ErrorRateMax   float64 `json:"error_rate_max"`
	MinOKRateSmoke float64 `json:"min_ok_rate_smoke"`
	WarmupRequests uint64  `json:"warmup_requests"`
	DiscardFirstN  uint64  `json:"discard_first_n"`
}

// GateArtifact is the gate.json schema.
type GateArtifact struct {
	BaseURL    string            `json:"base_url"`
	Generated  string            `json:"generated"`
	Thresholds GateThresholds    `json:"thresholds"`
	Measured   BenchmarkArtifact `json:"measured"`
	Smoke      *SmokeSummary     `json:"smoke,omitempty"`
	Gate       GateChecks        `json:"gate"`
	Pass       bool              `json:"pass"`
}

// SummaryArtifact is the per-run machine summary. Latency fields are
// milliseconds.
type SummaryArtifact struct {
	RunID      string      `json:"run_id"`
	Count      int         `json:"count"`
	Failures   int         `json:"failures"`
	P50        float64     `json:"p50"`
	P95        float64     `json:"p95"`
	P99        float64     `json:"p99"`
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// NewGateArtifact combines the verdict with the smoke phase. A nil
// smoke summary skips the smoke_ok_rate criterion.
func NewGateArtifact(config RunnerConfig, v Verdict, smoke *SmokeSummary) GateArtifact {
	th := config.Thresholds()
	checks := GateChecks{
		P95:       passFail(!v.Violated("p95")),
		P99:       passFail(!v.Violated("p99")),
		ErrorRate: passFail(!v.Violated("failure_rate")),
	}
	pass := v.Pass
	if smoke != nil {
		smokeOK := smoke.OKRate >= th.MinSmokeOKRate
		checks.SmokeOKRate = passFail(smokeOK)
		pass = pass && smokeOK
	}
	return GateArtifact{
		BaseURL:   config.BaseURL,
		Generated: time.Now().Format("2006-01-02T15:04:05"),
		Thresholds: GateThresholds{
			P95SMax:        th.P95Ceiling.Seconds(),
			P99SMax:        th.P99Ceiling.Seconds(),
			ErrorRateMax:   th.MaxFailureRate,
			MinOKRateSmoke: th.MinSmokeOKRate,
			WarmupRequests: config.Warmup,
			DiscardFirstN:  config.Discard,
		},
		Measured: newBenchmarkArtifact(v),
		Smoke:    smoke,
		Gate:     checks,
		Pass:     pass,
	}
}

// NewSummaryArtifact builds the summary.json document.
func NewSummaryArtifact(runID string, v Verdict) SummaryArtifact {
	violations := v.Violations
	if violations == nil {
		violations = []Violation{}
	}
	return SummaryArtifact{
		RunID:      runID,
		Count:      v.Count,
		Failures:   v.Failures,
		P50:        v.P50,
		P95:        v.P95,
		P99:        v.P99,
		Pass:       v.Pass,
		Violations: violations,
	}
}

func newBenchmarkArtifact(v Verdict) BenchmarkArtifact {
	a := BenchmarkArtifact{
		N:         v.Samples,
		Errors:    v.Failures,
		ErrorRate: v.FailureRate,
	}
	if v.Samples > 0 {
		a.P50S = secs(v.P50)
		a.P95S = secs(v.P95)
		a.P99S = secs(v.P99)
		a.MinS = secs(v.Min)
		a.MeanS = secs(v.Mean)
		a.MaxS = secs(v.Max)
	}
	return a
}

func secs(ms float64) *float64 {
	s := ms / 1000.0
	return &s
}

func passFail(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

// EnsureOutDir creates the artifact directory.
func EnsureOutDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating artifact dir %s", dir)
	}
	return nil
}

// WriteArtifact json-encodes v into dir/name.
func WriteArtifact(dir, name string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshaling %s", name)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

// WriteBenchmarkArtifact writes benchmark.json.
func WriteBenchmarkArtifact(dir string, v Verdict) error {
	return WriteArtifact(dir, "benchmark.json", newBenchmarkArtifact(v))
}

// WriteGateArtifact writes gate.json.
func WriteGateArtifact(dir string, g GateArtifact) error {
	return WriteArtifact(dir, "gate.json", g)
}

// WriteSummaryArtifact writes summary.json.
func WriteSummaryArtifact(dir, runID string, v Verdict) error {
	return WriteArtifact(dir, "summary.json", NewSummaryArtifact(runID, v))
}
