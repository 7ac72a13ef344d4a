// Package metrics exports per-request outcomes to InfluxDB so runs can
// be charted next to server-side metrics. Export failures are the
// caller's to report; they never change a gate result.
package metrics

import (
	"strconv"
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"

	"github.com/savantlab/judgebench/pkg/bench"
)

const (
	measurement = "judge_request"
	batchSize   = 1000
	pingTimeout = 5 * time.Second
)

// Exporter writes outcome points to one InfluxDB database.
type Exporter struct {
	c  client.Client
	db string
}

// NewExporter connects and pings the target. An unreachable InfluxDB is
// reported here, once, instead of per batch.
func NewExporter(url, db string) (*Exporter, error) {
	c, err := client.NewHTTPClient(client.HTTPConfig{
		Addr:    url,
		Timeout: pingTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating influx client")
	}
	if _, _, err := c.Ping(pingTimeout); err != nil {
		c.Close()
		return nil, errors.Wrapf(err, "pinging influx at %s", url)
	}
	return &Exporter{c: c, db: db}, nil
}

// Export writes one point per outcome, tagged with the phase and the
// HTTP status, batched.
func (e *Exporter) Export(runID, phase string, outcomes []bench.Outcome) error {
	for start := 0; start < len(outcomes); start += batchSize {
		end := start + batchSize
		if end > len(outcomes) {
			end = len(outcomes)
		}
		if err := e.writeBatch(runID, phase, outcomes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Exporter) writeBatch(runID, phase string, outcomes []bench.Outcome) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{
		Database:  e.db,
		Precision: "ms",
	})
	if err != nil {
		return errors.Wrap(err, "creating batch")
	}
	for _, o := range outcomes {
		tags := map[string]string{
			"run_id": runID,
			"phase":  phase,
			"status": strconv.Itoa(o.Status),
		}
		if o.TimedOut {
			tags["timed_out"] = "true"
		}
		fields := map[string]interface{}{
			"latency_ms": float64(o.Latency.Nanoseconds()) / 1e6,
			"seq":        int64(o.Seq),
		}
		pt, err := client.NewPoint(measurement, tags, fields, o.Timestamp)
		if err != nil {
			return errors.Wrap(err, "creating point")
		}
		bp.AddPoint(pt)
	}
	if err := e.c.Write(bp); err != nil {
		return errors.Wrap(err, "writing batch")
	}
	return nil
}

func (e *Exporter) Close() error {
	return e.c.Close()
}
