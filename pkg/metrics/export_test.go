package metrics

import (
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/savantlab/judgebench/pkg/bench"
)

type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Influxdb-Version", "1.8.10")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/write", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func TestExport(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	exporter, err := NewExporter(srv.URL, "judgebench")
	if err != nil {
		t.Fatal(err)
	}
	defer exporter.Close()

	outcomes := []bench.Outcome{
		{Seq: 0, Timestamp: time.Unix(1700000000, 0), Status: 200, Latency: 12500 * time.Microsecond},
		{Seq: 1, Timestamp: time.Unix(1700000001, 0), Status: 500, Latency: 80 * time.Millisecond},
		{Seq: 2, Timestamp: time.Unix(1700000002, 0), Status: 0, TimedOut: true, Latency: 60 * time.Second},
	}
	if err := exporter.Export("run-1", "benchmark", outcomes); err != nil {
		t.Fatal(err)
	}

	if len(fake.writes) != 1 {
		t.Fatalf("expected one batch write but got %d", len(fake.writes))
	}
	body := fake.writes[0]
	if !strings.Contains(body, "judge_request") {
		t.Fatalf("expected the measurement in the line protocol: %s", body)
	}
	if !strings.Contains(body, "run_id=run-1") || !strings.Contains(body, "phase=benchmark") {
		t.Fatalf("expected the run tags: %s", body)
	}
	if !strings.Contains(body, "latency_ms=12.5") {
		t.Fatalf("expected the latency field: %s", body)
	}
	if !strings.Contains(body, "timed_out=true") {
		t.Fatalf("expected the timed_out tag on the third point: %s", body)
	}
	if strings.Count(strings.TrimSpace(body), "\n") != 2 {
		t.Fatalf("expected three points in the batch: %q", body)
	}
}

func TestExportBatches(t *testing.T) {
	fake := &fakeInflux{}
	srv := httptest.NewServer(fake.handler())
	defer srv.Close()

	exporter, err := NewExporter(srv.URL, "judgebench")
	if err != nil {
		t.Fatal(err)
	}
	defer exporter.Close()

	outcomes := make([]bench.Outcome, batchSize+1)
	base := time.Unix(1700000000, 0)
	for i := range outcomes {
		outcomes[i] = bench.Outcome{
			Seq:       uint64(i),
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
			Status:    200,
			Latency:   time.Millisecond,
		}
	}
	if err := exporter.Export("run-2", "benchmark", outcomes); err != nil {
		t.Fatal(err)
	}

	if len(fake.writes) != 2 {
		t.Fatalf("expected the export to split into 2 batches but got %d", len(fake.writes))
	}
}

func TestNewExporterUnreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := "http://" + l.Addr().String()
	l.Close()

	if _, err := NewExporter(addr, "judgebench"); err == nil {
		t.Fatalf("expected the ping to fail against a closed port")
	}
}
