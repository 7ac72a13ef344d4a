// Package telemetry samples the driver host's CPU and memory while a
// run is in flight, so a loaded driver machine is visible next to the
// latency numbers it produced.
package telemetry

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

type CPUStats struct {
	MinPercent float64 `json:"min_percent"`
	AvgPercent float64 `json:"avg_percent"`
	MaxPercent float64 `json:"max_percent"`
}

type MemoryStats struct {
	MinBytes float64 `json:"min_bytes"`
	AvgBytes float64 `json:"avg_bytes"`
	MaxBytes float64 `json:"max_bytes"`
}

// Summary aggregates the samples taken between Start and Stop.
type Summary struct {
	CPU     CPUStats    `json:"cpu"`
	Memory  MemoryStats `json:"memory"`
	Samples int         `json:"samples"`
}

// Sampler polls gopsutil once per interval. Failed polls are skipped;
// sampling never affects the run it observes.
type Sampler struct {
	interval time.Duration

	mu        sync.Mutex
	cpuPct    []float64
	memUsed   []uint64
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

func NewSampler(interval time.Duration) *Sampler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Sampler{
		interval: interval,
		cpuPct:   make([]float64, 0, 64),
		memUsed:  make([]uint64, 0, 64),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (s *Sampler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	// prime the delta so the first interval reading is meaningful
	_, _ = cpu.Percent(0, false)

	go s.loop()
}

// Stop ends sampling and returns the aggregated summary. Calling Stop
// on a sampler that never started returns an empty summary.
func (s *Sampler) Stop() Summary {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return Summary{}
	}
	s.running = false
	s.mu.Unlock()

	s.closeOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh

	return s.aggregate()
}

func (s *Sampler) loop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *Sampler) sample() {
	var pct float64
	havePct := false
	if ps, err := cpu.Percent(0, false); err == nil && len(ps) > 0 {
		pct = ps[0]
		havePct = true
	}
	var used uint64
	haveMem := false
	if vm, err := mem.VirtualMemory(); err == nil {
		used = vm.Used
		haveMem = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if havePct {
		s.cpuPct = append(s.cpuPct, pct)
	}
	if haveMem {
		s.memUsed = append(s.memUsed, used)
	}
}

func (s *Sampler) aggregate() Summary {
	s.mu.Lock()
	cpuPct := s.cpuPct
	memUsed := s.memUsed
	s.mu.Unlock()

	out := Summary{}

	if len(cpuPct) > 0 {
		minC, maxC := cpuPct[0], cpuPct[0]
		total := 0.0
		for _, c := range cpuPct {
			if c < minC {
				minC = c
			}
			if c > maxC {
				maxC = c
			}
			total += c
		}
		out.CPU = CPUStats{
			MinPercent: minC,
			AvgPercent: total / float64(len(cpuPct)),
			MaxPercent: maxC,
		}
		out.Samples = len(cpuPct)
	}

	if len(memUsed) > 0 {
		minM, maxM := memUsed[0], memUsed[0]
		var total uint64
		for _, m := range memUsed {
			if m < minM {
				minM = m
			}
			if m > maxM {
				maxM = m
			}
			total += m
		}
		out.Memory = MemoryStats{
			MinBytes: float64(minM),
			AvgBytes: float64(total) / float64(len(memUsed)),
			MaxBytes: float64(maxM),
		}
		if len(memUsed) > out.Samples {
			out.Samples = len(memUsed)
		}
	}

	return out
}
