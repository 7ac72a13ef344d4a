package bench

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type collectorArgs struct {
	burnIn           uint64 // outcomes with Seq below this are warmup/discard
	limit            uint64 // counted-sample cap, 0 = unbounded
	printInterval    uint64
	hdrLatenciesFile string
	active           *int32 // live issuer count, owned by the runner
}

// collector drains the outcome channel and owns both outcome sequences.
// It is the only goroutine that appends, so issuers share no mutable
// state beyond the channel itself. Raw holds every dispatched outcome;
// counted holds the post-burn-in statistics sequence.
type collector struct {
	args      *collectorArgs
	wg        sync.WaitGroup
	c         chan Outcome
	raw       []Outcome
	counted   []Outcome
	sg        *statGroup
	startTime time.Time
	doneOnce  sync.Once
	done      chan struct{} // closed once the counted cap is reached
}

func newCollector(args *collectorArgs) *collector {
	if args == nil {
		panic("collector needs args")
	}
	return &collector{
		args: args,
		c:    make(chan Outcome, 256),
		sg:   newStatGroup(),
		done: make(chan struct{}),
	}
}

func (col *collector) send(o Outcome) {
	col.c <- o
}

// capped is closed once --n counted samples have been recorded.
func (col *collector) capped() <-chan struct{} {
	return col.done
}

func (col *collector) start() {
	col.wg.Add(1)
	go col.process()
}

func (col *collector) CloseAndWait() {
	close(col.c)
	col.wg.Wait()
}

func (col *collector) process() {
	defer col.wg.Done()

	col.startTime = time.Now()
	prevTime := col.startTime
	prevCount := uint64(0)
	burnInDone := col.args.burnIn == 0
	counted := uint64(0)

	for o := range col.c {
		col.raw = append(col.raw, o)
		if o.Seq < col.args.burnIn {
			continue
		}
		if !burnInDone {
			_, err := fmt.Fprintf(os.Stderr, "burn-in complete after %d requests\n", col.args.burnIn)
			if err != nil {
				log.Fatal(err)
			}
			col.startTime = time.Now()
			prevTime = col.startTime
			burnInDone = true
		}
		if col.args.limit > 0 && counted >= col.args.limit {
			// cap reached; late in-flight outcomes stay raw-only
			continue
		}
		col.counted = append(col.counted, o)
		counted++
		col.sg.push(durationMS(o.Latency))

		if col.args.limit > 0 && counted == col.args.limit {
			col.doneOnce.Do(func() { close(col.done) })
		}

		if pi := col.args.printInterval; pi > 0 && counted%pi == 0 {
			now := time.Now()
			sinceStart := now.Sub(col.startTime)
			took := now.Sub(prevTime)
			intervalRate := float64(counted-prevCount) / took.Seconds()
			overallRate := float64(counted) / sinceStart.Seconds()

			_, err := fmt.Fprintf(os.Stderr, "after %d requests with %d active issuers:\n\tinterval rate: %0.2f req/sec\toverall rate: %0.2f req/sec\n",
				counted, atomic.LoadInt32(col.args.active), intervalRate, overallRate)
			if err != nil {
				log.Fatal(err)
			}
			if err := col.sg.write(os.Stderr); err != nil {
				log.Fatal(err)
			}
			prevCount = counted
			prevTime = now
		}
	}

	if counted > 0 {
		sinceStart := time.Since(col.startTime)
		rate := 0.0
		if sinceStart.Seconds() > 0 {
			rate = float64(counted) / sinceStart.Seconds()
		}
		fmt.Printf("run complete after %d counted requests, %d sent overall (%0.2f req/sec):\n", counted, len(col.raw), rate)
		if err := col.sg.write(os.Stdout); err != nil {
			log.Fatal(err)
		}
	} else {
		fmt.Printf("run complete, no counted requests (%d sent overall)\n", len(col.raw))
	}

	if len(col.args.hdrLatenciesFile) > 0 {
		col.saveHDRLatencies()
	}
}

func (col *collector) saveHDRLatencies() {
	fmt.Printf("Saving High Dynamic Range (HDR) Histogram of Response Latencies to %s\n", col.args.hdrLatenciesFile)
	var b bytes.Buffer
	bw := bufio.NewWriter(&b)
	_, err := col.sg.latencyHDRHistogram.PercentilesPrint(bw, 10, 1000.0)
	if err != nil {
		log.Fatal(err)
	}
	if err := bw.Flush(); err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(col.args.hdrLatenciesFile, b.Bytes(), 0644); err != nil {
		log.Fatal(err)
	}
}
