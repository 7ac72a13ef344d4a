package utils

import (
	"net/http"
	"sync"
	"time"
)

var transportOnce = sync.Once{}
var sharedTransport *http.Transport

func getTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			MaxIdleConnsPerHost: 1024,
		}
	})
	return sharedTransport
}

// HTTPClient returns a client backed by the shared transport with the
// given per-request timeout. Callers share connections across phases.
func HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: getTransport(), Timeout: timeout}
}
