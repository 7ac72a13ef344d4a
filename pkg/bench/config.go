package bench

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"

	"github.com/savantlab/judgebench/internal/utils"
)

// RunnerConfig is the full driver configuration. Fields are bound to CLI
// flags and the YAML config file through their mapstructure tags.
type RunnerConfig struct {
	BaseURL          string        `mapstructure:"base-url"`
	Endpoint         string        `mapstructure:"endpoint"`
	OutDir           string        `mapstructure:"out"`
	N                uint64        `mapstructure:"n"`
	Warmup           uint64        `mapstructure:"warmup"`
	Discard          uint64        `mapstructure:"discard"`
	Pause            time.Duration `mapstructure:"pause"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxRPS           uint64        `mapstructure:"max-rps"`
	ProfileFile      string        `mapstructure:"profile"`
	Ramp             string        `mapstructure:"ramp"`
	PercentileBase   string        `mapstructure:"percentile-base"`
	Prompt           string        `mapstructure:"prompt"`
	Answer           string        `mapstructure:"answer"`
	MaxFailureRate   float64       `mapstructure:"max-failure-rate"`
	P95Ceiling       time.Duration `mapstructure:"p95-ceiling"`
	P99Ceiling       time.Duration `mapstructure:"p99-ceiling"`
	MinSmokeOKRate   float64       `mapstructure:"min-smoke-ok-rate"`
	PrintInterval    uint64        `mapstructure:"print-interval"`
	ResultsFile      string        `mapstructure:"results-file"`
	HDRLatenciesFile string        `mapstructure:"hdr-latencies"`
	InfluxURL        string        `mapstructure:"influx-url"`
	InfluxDB         string        `mapstructure:"influx-db"`
	Debug            int           `mapstructure:"debug"`
}

func (c RunnerConfig) AddToFlagSet(fs *pflag.FlagSet) {
	def := DefaultPayload()
	fs.String("base-url", "", "Base URL of the service under test (BASE_URL env is honored)")
	fs.String("endpoint", "/judge", "Endpoint path the driver POSTs to")
	fs.String("out", "artifacts", "Directory to write artifact files to")
	fs.Uint64("n", 0, "Stop after this many counted samples, 0 = run the whole schedule")
	fs.Uint64("warmup", 8, "Leading requests issued before statistics collection begins")
	fs.Uint64("discard", 5, "Additional leading samples excluded from statistics")
	fs.Duration("pause", 200*time.Millisecond, "Fixed pause between an issuer's requests")
	fs.Duration("timeout", 60*time.Second, "Per-request timeout")
	fs.Uint64("max-rps", 0, "Limit the overall request rate, 0 = no limit")
	fs.String("profile", "", "YAML file holding the stage profile (built-in ramp otherwise)")
	fs.String("ramp", RampLinear, "Interpolation between stage targets: linear or step")
	fs.String("percentile-base", PercentileAll, "Latency set for percentiles: all or success")
	fs.String("prompt", def.Prompt, "Prompt field of the benchmark payload")
	fs.String("answer", def.Answer, "Answer field of the benchmark payload")
	fs.Float64("max-failure-rate", 0.005, "Gate: maximum tolerated failure rate")
	fs.Duration("p95-ceiling", 600*time.Millisecond, "Gate: ceiling for p95 latency")
	fs.Duration("p99-ceiling", 900*time.Millisecond, "Gate: ceiling for p99 latency")
	fs.Float64("min-smoke-ok-rate", 1.0, "Gate: minimum smoke ok rate")
	fs.Uint64("print-interval", 100, "Print timing stats to stderr after this many samples (0 to disable)")
	fs.String("results-file", "", "Write the run result summary json to this file")
	fs.String("hdr-latencies", "", "Write the HDR histogram of counted latencies to this file")
	fs.String("influx-url", "", "InfluxDB URL to export per-request outcomes to (empty disables)")
	fs.String("influx-db", "judgebench", "InfluxDB database for outcome export")
	fs.Int("debug", 0, "Whether to print debug messages")
}

// Thresholds extracts the gate configuration.
func (c RunnerConfig) Thresholds() Thresholds {
	return Thresholds{
		MaxFailureRate: c.MaxFailureRate,
		P95Ceiling:     c.P95Ceiling,
		P99Ceiling:     c.P99Ceiling,
		MinSmokeOKRate: c.MinSmokeOKRate,
	}
}

// Payload builds the request body from the configured fields, falling
// back to the canonical body when both are empty.
func (c RunnerConfig) Payload() Payload {
	if c.Prompt == "" && c.Answer == "" {
		return DefaultPayload()
	}
	return Payload{Prompt: c.Prompt, Answer: c.Answer}
}

func (c RunnerConfig) validate() error {
	if c.BaseURL == "" {
		return errors.New("base-url is required")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Errorf("base-url %q must start with http:// or https://", c.BaseURL)
	}
	if c.Endpoint == "" || !strings.HasPrefix(c.Endpoint, "/") {
		return errors.Errorf("endpoint %q must start with /", c.Endpoint)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.Pause < 0 {
		return errors.New("pause must not be negative")
	}
	if !utils.IsIn(c.PercentileBase, []string{PercentileAll, PercentileSuccess}) {
		return errors.Errorf("unknown percentile base %q", c.PercentileBase)
	}
	return nil
}

// Profile resolves the stage list: an explicit file wins, then any stages
// supplied through the config file, then the built-in default ramp.
func (c RunnerConfig) Profile(configured []Stage) ([]Stage, error) {
	if c.ProfileFile != "" {
		return LoadProfile(c.ProfileFile)
	}
	if len(configured) > 0 {
		return configured, nil
	}
	return DefaultProfile(), nil
}
