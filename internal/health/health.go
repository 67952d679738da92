// Package health polls the backend's liveness endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTimeout is returned by WaitReady when no probe succeeded in time.
var ErrTimeout = errors.New("backend did not become healthy before the startup timeout")

// DefaultProbeTimeout bounds a single health request.
const DefaultProbeTimeout = 5 * time.Second

// HTTPClient is the subset of *http.Client used for probing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Prober performs one liveness check. A nil error means ready.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Probe(ctx context.Context) error { return f(ctx) }

// StatusError reports a non-2xx health response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("health endpoint returned HTTP %d", e.StatusCode)
}

// HTTPProber issues GET requests against a health URL.
type HTTPProber struct {
	url    string
	client HTTPClient
}

// NewHTTPProber creates a prober for url. A nil client uses an
// *http.Client with DefaultProbeTimeout.
func NewHTTPProber(url string, client HTTPClient) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: DefaultProbeTimeout}
	}
	return &HTTPProber{url: url, client: client}
}

// URL returns the probed endpoint.
func (p *HTTPProber) URL() string { return p.url }

// Probe treats any 2xx response as ready.
func (p *HTTPProber) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build health request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// Result describes a finished wait.
type Result struct {
	Attempts  int
	Elapsed   time.Duration
	LastError error
}

// WaitReady probes every interval until a probe succeeds, timeout elapses
// or ctx is done. Probe failures are expected while the backend boots and
// are only kept as Result.LastError. No single probe outlives the timeout.
func WaitReady(ctx context.Context, p Prober, interval, timeout time.Duration) (Result, error) {
	start := time.Now()
	deadline := start.Add(timeout)
	var res Result

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			res.Elapsed = time.Since(start)
			return res, ErrTimeout
		}

		probeCtx, cancel := context.WithTimeout(ctx, remaining)
		err := p.Probe(probeCtx)
		cancel()
		res.Attempts++
		if err == nil {
			res.Elapsed = time.Since(start)
			res.LastError = nil
			return res, nil
		}
		res.LastError = err

		if ctx.Err() != nil {
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		}

		wait := interval
		if remaining = time.Until(deadline); wait > remaining {
			wait = remaining
		}
		if !sleepWithContext(ctx, wait) {
			res.Elapsed = time.Since(start)
			return res, ctx.Err()
		}
	}
}

// sleepWithContext waits for d and reports false if ctx ended first.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
