// Package smoke probes the read-only surface of the service under test
// before any load is generated. A path that cannot be reached is
// recorded, not fatal: the gate's smoke ok-rate criterion catches it.
package smoke

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/savantlab/judgebench/internal/utils"
)

// DefaultPaths is the battery probed against the service.
var DefaultPaths = []string{"/", "/health", "/docs", "/openapi.json"}

const requestTimeout = 20 * time.Second

// Test records one probed path. LatencyS is null when no response
// arrived; BodyType is "dict" for JSON responses, "str" otherwise,
// "error" when the request failed outright.
type Test struct {
	Path     string   `json:"path"`
	Status   int      `json:"status"`
	LatencyS *float64 `json:"latency_s"`
	BodyType string   `json:"body_type"`
}

// Result is the smoke.json schema.
type Result struct {
	Tests  []Test  `json:"tests"`
	OK     int     `json:"ok"`
	Total  int     `json:"total"`
	OKRate float64 `json:"ok_rate"`
}

// Run probes every path in the battery once.
func Run(baseURL string) *Result {
	client := utils.HTTPClient(requestTimeout)
	res := &Result{}
	for _, path := range DefaultPaths {
		res.Tests = append(res.Tests, probe(client, baseURL, path))
	}
	res.Total = len(res.Tests)
	for _, t := range res.Tests {
		if t.Status == http.StatusOK {
			res.OK++
		}
	}
	res.OKRate = float64(res.OK) / float64(res.Total)
	return res
}

func probe(client *http.Client, baseURL, path string) Test {
	url := strings.TrimRight(baseURL, "/") + path
	start := time.Now()
	resp, err := client.Get(url)
	if err != nil {
		return Test{Path: path, Status: 0, BodyType: "error"}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	latency := time.Since(start).Seconds()
	bodyType := "str"
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		bodyType = "dict"
	}
	return Test{Path: path, Status: resp.StatusCode, LatencyS: &latency, BodyType: bodyType}
}

// Save writes smoke.json into the artifact directory.
func (r *Result) Save(outDir string) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling smoke result")
	}
	if err := os.WriteFile(filepath.Join(outDir, "smoke.json"), b, 0644); err != nil {
		return errors.Wrap(err, "writing smoke.json")
	}
	return nil
}
