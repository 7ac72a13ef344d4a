package bench

import (
	"time"
)

// Percentile base sets for Evaluate. All folds every counted outcome's
// latency into the percentile computation; success restricts it to
// outcomes that returned HTTP 200.
const (
	PercentileAll     = "all"
	PercentileSuccess = "success"
)

// Thresholds is the gate configuration, evaluated once at run end.
type Thresholds struct {
	MaxFailureRate float64
	P95Ceiling     time.Duration
	P99Ceiling     time.Duration
	MinSmokeOKRate float64
}

// DefaultThresholds mirrors the long-standing gate values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxFailureRate: 0.005,
		P95Ceiling:     600 * time.Millisecond,
		P99Ceiling:     900 * time.Millisecond,
		MinSmokeOKRate: 1.0,
	}
}

// Violation names one failed gate criterion. Latency criteria carry
// milliseconds, rate criteria carry fractions.
type Violation struct {
	Criterion string  `json:"criterion"`
	Measured  float64 `json:"measured"`
	Limit     float64 `json:"limit"`
}

// Verdict is the aggregated judgement over a counted outcome sequence.
// Latency fields are in milliseconds and are zero when Samples is zero.
type Verdict struct {
	Count       int
	Failures    int
	FailureRate float64
	Samples     int
	P50         float64
	P95         float64
	P99         float64
	Min         float64
	Mean        float64
	Max         float64
	Pass        bool
	Violations  []Violation
}

// Violated reports whether the named criterion failed.
func (v Verdict) Violated(criterion string) bool {
	for _, viol := range v.Violations {
		if viol.Criterion == criterion {
			return true
		}
	}
	return false
}

// Evaluate aggregates a counted outcome sequence against thresholds. The
// verdict passes only when the failure rate is strictly under its limit
// and both percentile ceilings hold. An empty base set fails the
// percentile checks: no data is not a pass. Evaluate is a pure function
// of its inputs.
func Evaluate(outcomes []Outcome, th Thresholds, base string) Verdict {
	v := Verdict{Count: len(outcomes)}
	for _, o := range outcomes {
		if o.Failed() {
			v.Failures++
		}
	}
	if v.Count > 0 {
		v.FailureRate = float64(v.Failures) / float64(v.Count)
	}

	xs := latenciesMS(outcomes, base)
	v.Samples = len(xs)
	if v.Samples > 0 {
		v.P50 = Percentile(xs, 50)
		v.P95 = Percentile(xs, 95)
		v.P99 = Percentile(xs, 99)
		v.Min, v.Mean, v.Max = minMeanMax(xs)
	}

	p95Limit := durationMS(th.P95Ceiling)
	p99Limit := durationMS(th.P99Ceiling)
	if v.FailureRate >= th.MaxFailureRate {
		v.Violations = append(v.Violations, Violation{Criterion: "failure_rate", Measured: v.FailureRate, Limit: th.MaxFailureRate})
	}
	if v.Samples == 0 || v.P95 > p95Limit {
		v.Violations = append(v.Violations, Violation{Criterion: "p95", Measured: v.P95, Limit: p95Limit})
	}
	if v.Samples == 0 || v.P99 > p99Limit {
		v.Violations = append(v.Violations, Violation{Criterion: "p99", Measured: v.P99, Limit: p99Limit})
	}
	v.Pass = len(v.Violations) == 0
	return v
}
