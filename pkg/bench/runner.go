// Package bench drives staged HTTP load against a judge inference
// endpoint, collects per-request outcomes, and judges the aggregate
// statistics against gate thresholds.
package bench

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"
)

const (
	schedulerTick    = 100 * time.Millisecond
	probeTimeout     = 10 * time.Second
	maxConnsPerHost  = 2048
	idleConnDuration = 90 * time.Second
)

// ErrUnreachable marks a connection-setup failure observed before any
// stage began. It is fatal to the run and never folded into statistics.
var ErrUnreachable = errors.New("endpoint unreachable")

// Runner issues the staged load. Construct with NewRunner.
type Runner struct {
	RunnerConfig
	url     string
	body    []byte
	client  *fasthttp.Client
	limiter *rate.Limiter
	col     *collector
	seq     uint64
	active  int32
}

// RunOutput carries everything one run produced. Raw holds every
// dispatched outcome in arrival order; Counted holds the post-burn-in
// statistics sequence.
type RunOutput struct {
	Raw        []Outcome
	Counted    []Outcome
	Start      time.Time
	End        time.Time
	Dispatched uint64

	hist *hdrhistogram.Histogram
}

func NewRunner(config RunnerConfig) (*Runner, error) {
	if config.Ramp == "" {
		config.Ramp = RampLinear
	}
	if config.PercentileBase == "" {
		config.PercentileBase = PercentileAll
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	body, err := config.Payload().Marshal()
	if err != nil {
		return nil, err
	}
	return &Runner{
		RunnerConfig: config,
		url:          strings.TrimRight(config.BaseURL, "/") + config.Endpoint,
		body:         body,
		client: &fasthttp.Client{
			Name:                "judgebench",
			MaxConnsPerHost:     maxConnsPerHost,
			MaxIdleConnDuration: idleConnDuration,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
		},
	}, nil
}

// Probe issues a single GET against the base URL. A transport-level
// error means the endpoint cannot be reached at all; any HTTP response,
// whatever its status, counts as reachable.
func (r *Runner) Probe() error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodGet)
	req.SetRequestURI(strings.TrimRight(r.BaseURL, "/") + "/")
	if err := r.client.DoTimeout(req, resp, probeTimeout); err != nil {
		return errors.Wrapf(ErrUnreachable, "probing %s: %v", r.BaseURL, err)
	}
	return nil
}

// Run probes the endpoint, then executes the stage schedule against it.
// Every dispatched request produces exactly one Outcome; outcomes are
// recorded whether or not the gate later fails.
func (r *Runner) Run(stages []Stage) (*RunOutput, error) {
	sched, err := NewSchedule(stages, r.Ramp)
	if err != nil {
		return nil, err
	}
	if err := r.Probe(); err != nil {
		return nil, err
	}

	r.col = newCollector(&collectorArgs{
		burnIn:           r.Warmup + r.Discard,
		limit:            r.N,
		printInterval:    r.PrintInterval,
		hdrLatenciesFile: r.HDRLatenciesFile,
		active:           &r.active,
	})
	r.limiter = getRateLimiter(r.MaxRPS, maxTarget(stages))
	r.col.start()

	wallStart := time.Now()
	r.runSchedule(sched, wallStart)
	r.col.CloseAndWait()
	wallEnd := time.Now()

	fmt.Printf("wall clock time: %fsec\n", wallEnd.Sub(wallStart).Seconds())

	return &RunOutput{
		Raw:        r.col.raw,
		Counted:    r.col.counted,
		Start:      wallStart,
		End:        wallEnd,
		Dispatched: atomic.LoadUint64(&r.seq),
		hist:       r.col.sg.latencyHDRHistogram,
	}, nil
}

// runSchedule adjusts the live issuer set on every tick to follow the
// ramp, and winds everything down when the schedule ends or the counted
// cap fires. Issuers are stopped newest-first.
func (r *Runner) runSchedule(sched *Schedule, start time.Time) {
	var wg sync.WaitGroup
	var issuers []chan struct{}

	adjust := func(want int) {
		for len(issuers) < want {
			stop := make(chan struct{})
			issuers = append(issuers, stop)
			wg.Add(1)
			atomic.AddInt32(&r.active, 1)
			go r.issue(&wg, stop)
		}
		for len(issuers) > want {
			last := issuers[len(issuers)-1]
			issuers = issuers[:len(issuers)-1]
			close(last)
		}
	}

	ticker := time.NewTicker(schedulerTick)
	defer ticker.Stop()

	adjust(int(sched.TargetAt(0)))
	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed >= sched.Total() {
				adjust(0)
				wg.Wait()
				return
			}
			adjust(int(sched.TargetAt(elapsed)))
		case <-r.col.capped():
			adjust(0)
			wg.Wait()
			return
		}
	}
}

func (r *Runner) issue(wg *sync.WaitGroup, stop <-chan struct{}) {
	defer wg.Done()
	defer atomic.AddInt32(&r.active, -1)
	for {
		select {
		case <-stop:
			return
		default:
		}

		res := r.limiter.Reserve()
		time.Sleep(res.Delay())

		seq := atomic.AddUint64(&r.seq, 1) - 1
		r.col.send(r.post(seq))

		select {
		case <-stop:
			return
		case <-time.After(r.Pause):
		}
	}
}

// post sends one request and always returns an outcome, whether the
// attempt succeeded, failed, or timed out.
func (r *Runner) post(seq uint64) Outcome {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetRequestURI(r.url)
	req.SetBodyRaw(r.body)

	start := time.Now()
	err := r.client.DoTimeout(req, resp, r.Timeout)
	took := time.Since(start)

	o := Outcome{Seq: seq, Timestamp: start, Latency: took}
	if err != nil {
		o.TimedOut = err == fasthttp.ErrTimeout
		o.Err = err.Error()
		if r.Debug > 0 {
			fmt.Fprintf(os.Stderr, "request %d failed: %v\n", seq, err)
		}
		return o
	}
	o.Status = resp.StatusCode()
	return o
}

func getRateLimiter(limitRPS uint64, burst uint) *rate.Limiter {
	var requestRate = rate.Inf
	var requestBurst = 0
	if limitRPS != 0 {
		requestRate = rate.Limit(limitRPS)
		requestBurst = int(burst)
		if requestBurst < 1 {
			requestBurst = 1
		}
	}
	return rate.NewLimiter(requestRate, requestBurst)
}
