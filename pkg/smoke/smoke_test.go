package smoke

import (
	"net"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/savantlab/judgebench/internal/mock"
)

func TestRunAgainstHealthyService(t *testing.T) {
	srv := httptest.NewServer(mock.NewHandler(mock.Config{}))
	defer srv.Close()

	res := Run(srv.URL)

	if res.Total != 4 || res.OK != 4 {
		t.Fatalf("expected 4/4 ok but got %d/%d", res.OK, res.Total)
	}
	if res.OKRate != 1.0 {
		t.Fatalf("expected ok rate 1.0 but got %v", res.OKRate)
	}

	wantTypes := map[string]string{
		"/":             "dict",
		"/health":       "dict",
		"/docs":         "str",
		"/openapi.json": "dict",
	}
	for i, test := range res.Tests {
		if test.Path != DefaultPaths[i] {
			t.Fatalf("expected path %s at position %d but got %s", DefaultPaths[i], i, test.Path)
		}
		if test.Status != 200 {
			t.Fatalf("expected status 200 for %s but got %d", test.Path, test.Status)
		}
		if test.BodyType != wantTypes[test.Path] {
			t.Fatalf("expected body type %s for %s but got %s", wantTypes[test.Path], test.Path, test.BodyType)
		}
		if test.LatencyS == nil {
			t.Fatalf("expected a latency for %s", test.Path)
		}
	}
}

func TestRunDeadService(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := "http://" + l.Addr().String()
	l.Close()

	res := Run(addr)

	if res.OK != 0 || res.OKRate != 0 {
		t.Fatalf("expected nothing to pass but got %d ok", res.OK)
	}
	for _, test := range res.Tests {
		if test.Status != 0 || test.BodyType != "error" {
			t.Fatalf("expected a transport error for %s but got status %d type %q", test.Path, test.Status, test.BodyType)
		}
		if test.LatencyS != nil {
			t.Fatalf("expected no latency for a failed probe")
		}
	}
}

func TestSave(t *testing.T) {
	srv := httptest.NewServer(mock.NewHandler(mock.Config{}))
	defer srv.Close()

	dir := t.TempDir()
	if err := Run(srv.URL).Save(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "smoke.json")); err != nil {
		t.Fatalf("expected smoke.json to exist: %v", err)
	}
}
