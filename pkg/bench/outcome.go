package bench

import "time"

// Outcome records the result of a single dispatched request. Exactly one
// Outcome exists per dispatch, including failed and timed-out attempts.
// Status 0 means no HTTP response was received. Seq is assigned atomically
// at dispatch time and defines issue order across all issuers.
type Outcome struct {
	Seq       uint64        `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"latency"`
	TimedOut  bool          `json:"timed_out"`
	Err       string        `json:"err,omitempty"`
}

// Failed reports whether the outcome counts against the failure rate.
func (o Outcome) Failed() bool {
	return o.TimedOut || o.Status != 200
}
