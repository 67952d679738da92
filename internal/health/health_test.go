package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProber_StatusCodes(t *testing.T) {
	status := int32(http.StatusServiceUnavailable)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL+"/api/health", srv.Client())

	err := p.Probe(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)

	atomic.StoreInt32(&status, http.StatusNoContent)
	assert.NoError(t, p.Probe(context.Background()), "any 2xx is ready")
}

func TestWaitReady_SucceedsAfterRetries(t *testing.T) {
	var calls int32
	p := ProberFunc(func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	res, err := WaitReady(context.Background(), p, 5*time.Millisecond, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.NoError(t, res.LastError)
}

func TestWaitReady_Timeout(t *testing.T) {
	p := ProberFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	interval := 20 * time.Millisecond
	timeout := 150 * time.Millisecond
	start := time.Now()
	res, err := WaitReady(context.Background(), p, interval, timeout)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	assert.Error(t, res.LastError)
	assert.GreaterOrEqual(t, res.Attempts, 2)
	assert.Less(t, elapsed, timeout+interval+100*time.Millisecond, "must not hang past the timeout")
}

func TestWaitReady_SlowProbeBoundedByTimeout(t *testing.T) {
	p := ProberFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	start := time.Now()
	_, err := WaitReady(context.Background(), p, 10*time.Millisecond, 100*time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitReady_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := ProberFunc(func(context.Context) error {
		cancel()
		return errors.New("not yet")
	})

	_, err := WaitReady(ctx, p, time.Second, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaitReady_AgainstServerBecomingHealthy(t *testing.T) {
	readyAt := time.Now().Add(60 * time.Millisecond)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if time.Now().Before(readyAt) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	res, err := WaitReady(context.Background(), NewHTTPProber(srv.URL, srv.Client()), 20*time.Millisecond, 2*time.Second)
	require.NoError(t, err)
	assert.Greater(t, res.Attempts, 1)
}
