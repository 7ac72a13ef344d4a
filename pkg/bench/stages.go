package bench

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/savantlab/judgebench/internal/utils"
)

// Ramp policies. Linear interpolates the issuer count between stage
// targets over the stage duration; step jumps to the target at the stage
// boundary. Linear is the default.
const (
	RampLinear = "linear"
	RampStep   = "step"
)

// Stage is one segment of the load profile: over Duration, the active
// issuer count moves from the previous stage's target to Target.
type Stage struct {
	Duration time.Duration `yaml:"duration" mapstructure:"duration"`
	Target   uint          `yaml:"target" mapstructure:"target"`
}

type profileFile struct {
	Stages []Stage `yaml:"stages"`
}

// UnmarshalYAML accepts the duration either as a duration string ("30s")
// or as a bare number of seconds.
func (s *Stage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw struct {
		Duration interface{} `yaml:"duration"`
		Target   uint        `yaml:"target"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	d, err := parseStageDuration(raw.Duration)
	if err != nil {
		return err
	}
	s.Duration = d
	s.Target = raw.Target
	return nil
}

func parseStageDuration(v interface{}) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		d, err := time.ParseDuration(x)
		if err != nil {
			return 0, errors.Wrapf(err, "stage duration %q", x)
		}
		return d, nil
	case int:
		return time.Duration(x) * time.Second, nil
	case float64:
		return time.Duration(x * float64(time.Second)), nil
	case nil:
		return 0, errors.New("stage duration is required")
	default:
		return 0, errors.Errorf("stage duration must be a duration string or seconds, got %T", v)
	}
}

// DefaultProfile is used when no profile file or config entry is supplied.
func DefaultProfile() []Stage {
	return []Stage{
		{Duration: 30 * time.Second, Target: 5},
		{Duration: 60 * time.Second, Target: 10},
		{Duration: 30 * time.Second, Target: 0},
	}
}

// LoadProfile reads a stage list from a YAML file with a top-level
// "stages" key.
func LoadProfile(path string) ([]Stage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading profile")
	}
	var pf profileFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, errors.Wrap(err, "parsing profile")
	}
	if len(pf.Stages) == 0 {
		return nil, errors.Errorf("profile %s defines no stages", path)
	}
	return pf.Stages, nil
}

// Schedule is the compiled ramp profile.
type Schedule struct {
	stages  []Stage
	offsets []time.Duration
	total   time.Duration
	policy  string
}

// NewSchedule validates the stage list and compiles cumulative offsets.
func NewSchedule(stages []Stage, policy string) (*Schedule, error) {
	if len(stages) == 0 {
		return nil, errors.New("at least one stage is required")
	}
	if policy == "" {
		policy = RampLinear
	}
	if !utils.IsIn(policy, []string{RampLinear, RampStep}) {
		return nil, errors.Errorf("unknown ramp policy %q", policy)
	}
	s := &Schedule{stages: stages, policy: policy}
	for _, st := range stages {
		if st.Duration <= 0 {
			return nil, errors.Errorf("stage duration must be positive, got %s", st.Duration)
		}
		s.offsets = append(s.offsets, s.total)
		s.total += st.Duration
	}
	return s, nil
}

// Total is the wall-clock length of the whole profile.
func (s *Schedule) Total() time.Duration { return s.total }

// TargetAt returns the desired issuer count at the given elapsed offset.
// Before the start it reports the initial interpolation point, past the
// end it reports zero.
func (s *Schedule) TargetAt(elapsed time.Duration) uint {
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= s.total {
		return 0
	}
	prev := uint(0)
	for i, st := range s.stages {
		end := s.offsets[i] + st.Duration
		if elapsed < end {
			if s.policy == RampStep {
				return st.Target
			}
			frac := float64(elapsed-s.offsets[i]) / float64(st.Duration)
			return lerp(prev, st.Target, frac)
		}
		prev = st.Target
	}
	return 0
}

func lerp(from, to uint, frac float64) uint {
	v := float64(from) + (float64(to)-float64(from))*frac
	if v <= 0 {
		return 0
	}
	return uint(math.Round(v))
}

func maxTarget(stages []Stage) uint {
	m := uint(0)
	for _, st := range stages {
		if st.Target > m {
			m = st.Target
		}
	}
	return m
}
