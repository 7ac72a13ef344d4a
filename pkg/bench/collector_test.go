package bench

import (
	"testing"
	"time"
)

func TestCollectorBurnInAndCap(t *testing.T) {
	var active int32
	col := newCollector(&collectorArgs{burnIn: 3, limit: 2, active: &active})
	col.start()

	for seq := uint64(0); seq < 8; seq++ {
		col.send(Outcome{Seq: seq, Status: 200, Latency: 10 * time.Millisecond})
	}
	col.CloseAndWait()

	if len(col.raw) != 8 {
		t.Fatalf("expected all 8 outcomes in the raw sequence but got %d", len(col.raw))
	}
	if len(col.counted) != 2 {
		t.Fatalf("expected the counted cap to hold at 2 but got %d", len(col.counted))
	}
	if col.counted[0].Seq != 3 || col.counted[1].Seq != 4 {
		t.Fatalf("expected counting to begin after burn-in, got sequences %d and %d",
			col.counted[0].Seq, col.counted[1].Seq)
	}

	select {
	case <-col.capped():
	default:
		t.Fatalf("expected the cap signal to have fired")
	}
}

func TestCollectorUnlimited(t *testing.T) {
	var active int32
	col := newCollector(&collectorArgs{burnIn: 0, limit: 0, active: &active})
	col.start()

	for seq := uint64(0); seq < 5; seq++ {
		col.send(Outcome{Seq: seq, Status: 200, Latency: time.Millisecond})
	}
	col.CloseAndWait()

	if len(col.counted) != 5 || len(col.raw) != 5 {
		t.Fatalf("expected every outcome to be counted, got %d counted / %d raw", len(col.counted), len(col.raw))
	}

	select {
	case <-col.capped():
		t.Fatalf("the cap signal must not fire without a limit")
	default:
	}
}
