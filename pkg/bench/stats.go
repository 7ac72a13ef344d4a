package bench

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latencies are tracked in milliseconds; the histogram stores microsecond
// ticks for resolution.
var hdrScaleFactor = 1e3

type statGroup struct {
	latencyHDRHistogram *hdrhistogram.Histogram
	sum                 float64
	count               int64
}

func newStatGroup() *statGroup {
	return &statGroup{
		latencyHDRHistogram: hdrhistogram.New(1, 3600000000, 4),
	}
}

func (s *statGroup) push(ms float64) {
	s.latencyHDRHistogram.RecordValue(int64(ms * hdrScaleFactor))
	s.sum += ms
	s.count++
}

func (s *statGroup) string() string {
	return fmt.Sprintf("min: %8.2fms, med: %8.2fms, mean: %8.2fms, max: %7.2fms, stddev: %8.2fms, sum: %5.1fsec, count: %d",
		s.Min(),
		s.Median(),
		s.Mean(),
		s.Max(),
		s.StdDev(),
		s.sum/hdrScaleFactor,
		s.count)
}

func (s *statGroup) write(w io.Writer) error {
	_, err := fmt.Fprintln(w, s.string())
	return err
}

func (s *statGroup) Median() float64 {
	return float64(s.latencyHDRHistogram.ValueAtQuantile(50.0)) / hdrScaleFactor
}

func (s *statGroup) Mean() float64 {
	return float64(s.latencyHDRHistogram.Mean()) / hdrScaleFactor
}

func (s *statGroup) Max() float64 {
	return float64(s.latencyHDRHistogram.Max()) / hdrScaleFactor
}

func (s *statGroup) Min() float64 {
	return float64(s.latencyHDRHistogram.Min()) / hdrScaleFactor
}

func (s *statGroup) StdDev() float64 {
	return float64(s.latencyHDRHistogram.StdDev()) / hdrScaleFactor
}

// Percentile computes the p-th percentile of xs with linear interpolation
// between closest ranks. Returns NaN for an empty input.
func Percentile(xs []float64, p float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	k := float64(len(sorted)-1) * (p / 100.0)
	f := int(k)
	c := f + 1
	if c > len(sorted)-1 {
		c = len(sorted) - 1
	}
	if f == c {
		return sorted[f]
	}
	return sorted[f] + (sorted[c]-sorted[f])*(k-float64(f))
}

// latenciesMS extracts the percentile base set from an outcome sequence,
// in milliseconds.
func latenciesMS(outcomes []Outcome, base string) []float64 {
	xs := make([]float64, 0, len(outcomes))
	for _, o := range outcomes {
		if base == PercentileSuccess && o.Failed() {
			continue
		}
		xs = append(xs, durationMS(o.Latency))
	}
	return xs
}

func durationMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

func minMeanMax(xs []float64) (min, mean, max float64) {
	if len(xs) == 0 {
		return 0, 0, 0
	}
	min = xs[0]
	max = xs[0]
	sum := 0.0
	for _, x := range xs {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		sum += x
	}
	return min, sum / float64(len(xs)), max
}
