package bench

import (
	"math"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	latencies := []float64{50, 100, 150, 9000}

	cases := []struct {
		name string
		xs   []float64
		p    float64
		want float64
	}{
		{"p50 interpolates", latencies, 50, 125},
		{"p95 interpolates", latencies, 95, 7672.5},
		{"p99 interpolates", latencies, 99, 8734.5},
		{"p0 is the minimum", latencies, 0, 50},
		{"p100 is the maximum", latencies, 100, 9000},
		{"three samples p95", []float64{10, 20, 30}, 95, 29},
		{"three samples p99", []float64{10, 20, 30}, 99, 29.8},
		{"single sample", []float64{42}, 99, 42},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.xs, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Percentile(%v, %v) = %v, want %v", tt.xs, tt.p, got, tt.want)
			}
		})
	}
}

func TestPercentileEmpty(t *testing.T) {
	if got := Percentile(nil, 95); !math.IsNaN(got) {
		t.Fatalf("expected NaN for an empty input but got %v", got)
	}
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	xs := []float64{30, 10, 20}
	if got := Percentile(xs, 50); got != 20 {
		t.Fatalf("expected median 20 but got %v", got)
	}
	if xs[0] != 30 || xs[1] != 10 || xs[2] != 20 {
		t.Fatalf("input order changed: %v", xs)
	}
}

func TestLatenciesMS(t *testing.T) {
	outcomes := []Outcome{
		{Status: 200, Latency: 50 * time.Millisecond},
		{Status: 500, Latency: 100 * time.Millisecond},
		{Status: 0, TimedOut: true, Err: "timeout", Latency: 60 * time.Second},
		{Status: 200, Latency: 150 * time.Millisecond},
	}

	all := latenciesMS(outcomes, PercentileAll)
	if len(all) != 4 {
		t.Fatalf("expected 4 latencies but got %d", len(all))
	}
	if all[0] != 50 || all[1] != 100 {
		t.Fatalf("unexpected millisecond conversion: %v", all)
	}

	ok := latenciesMS(outcomes, PercentileSuccess)
	if len(ok) != 2 {
		t.Fatalf("expected 2 success latencies but got %d", len(ok))
	}
	if ok[0] != 50 || ok[1] != 150 {
		t.Fatalf("unexpected success latencies: %v", ok)
	}
}

func TestMinMeanMax(t *testing.T) {
	min, mean, max := minMeanMax([]float64{30, 10, 20})
	if min != 10 || mean != 20 || max != 30 {
		t.Fatalf("expected 10/20/30 but got %v/%v/%v", min, mean, max)
	}

	min, mean, max = minMeanMax(nil)
	if min != 0 || mean != 0 || max != 0 {
		t.Fatalf("expected zeros for an empty input but got %v/%v/%v", min, mean, max)
	}
}

func TestStatGroup(t *testing.T) {
	sg := newStatGroup()
	for _, ms := range []float64{10, 20, 30} {
		sg.push(ms)
	}

	if sg.count != 3 {
		t.Fatalf("expected count 3 but got %d", sg.count)
	}
	if sg.sum != 60 {
		t.Fatalf("expected sum 60 but got %v", sg.sum)
	}
	closeTo(t, "min", sg.Min(), 10)
	closeTo(t, "median", sg.Median(), 20)
	closeTo(t, "max", sg.Max(), 30)
	closeTo(t, "mean", sg.Mean(), 20)
}

// closeTo absorbs the value quantization of the underlying HDR histogram.
func closeTo(t *testing.T, what string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.1 {
		t.Fatalf("expected %s near %v but got %v", what, want, got)
	}
}
