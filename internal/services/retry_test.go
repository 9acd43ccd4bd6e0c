package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRetryTransport() *RetryTransport {
	return &RetryTransport{
		MaxAttempts:    3,
		InitialBackoff: 5 * time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Logger:         zap.NewNop(),
	}
}

func doInsightRequest(t *testing.T, transport *RetryTransport, serverURL string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, serverURL+"/generate", bytes.NewReader([]byte(`{"x":1}`)))
	require.NoError(t, err)

	resp, err := transport.RoundTrip(req)
	require.NoError(t, err)
	return resp
}

func TestRetryTransportRetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resp := doInsightRequest(t, testRetryTransport(), server.URL)
	defer resp.Body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRetryTransportRecoversAfterServerError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		// The retried request must carry the replayed body.
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"x":1}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp := doInsightRequest(t, testRetryTransport(), server.URL)
	defer resp.Body.Close()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRetryTransportRateLimitShortCircuits(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	started := time.Now()
	resp := doInsightRequest(t, testRetryTransport(), server.URL)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Less(t, time.Since(started), 100*time.Millisecond, "a 429 must not wait out a backoff")
}

func TestRetryTransportClientErrorNoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	resp := doInsightRequest(t, testRetryTransport(), server.URL)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), attempts.Load())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRetryTransportIgnoresOtherPaths(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/unrelated", nil)
	require.NoError(t, err)

	resp, err := testRetryTransport().RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, int32(1), attempts.Load(), "non-insight paths pass through untouched")
}

func TestRetryTransportTransportErrorWithConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // every dial now fails

	transport := testRetryTransport()
	transport.Connectivity = func() bool { return true }

	req, err := http.NewRequest(http.MethodPost, serverURL+"/generate", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)

	resp, rtErr := transport.RoundTrip(req)
	require.NoError(t, rtErr)
	defer resp.Body.Close()

	// Exhausted transport errors synthesize a service-unavailable response.
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "temporarily unreachable")
}

func TestRetryTransportTransportErrorWithoutConnectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	transport := testRetryTransport()
	transport.Connectivity = func() bool { return false }

	req, err := http.NewRequest(http.MethodPost, serverURL+"/generate", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)

	_, rtErr := transport.RoundTrip(req)
	assert.Error(t, rtErr, "without connectivity the failure surfaces immediately")
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRetryTransportFatalErrorAfterServerErrorRethrows(t *testing.T) {
	fatal := errors.New("x509: certificate signed by unknown authority")
	var attempts atomic.Int32

	transport := testRetryTransport()
	transport.Base = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if attempts.Add(1) == 1 {
			return &http.Response{
				StatusCode: http.StatusBadGateway,
				Body:       io.NopCloser(strings.NewReader("")),
				Request:    r,
			}, nil
		}
		return nil, fatal
	})

	req, err := http.NewRequest(http.MethodPost, "http://api.internal/generate", nil)
	require.NoError(t, err)

	resp, rtErr := transport.RoundTrip(req)
	assert.Nil(t, resp, "the stale server-error response must not be returned")
	assert.ErrorIs(t, rtErr, fatal)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRetryTransportHonorsCancellation(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	transport := testRetryTransport()
	transport.InitialBackoff = 5 * time.Second // cancellation fires during the wait

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/generate", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	started := time.Now()
	_, rtErr := transport.RoundTrip(req)
	assert.ErrorIs(t, rtErr, context.Canceled)
	assert.Less(t, time.Since(started), 1*time.Second, "cancellation must interrupt the backoff wait")
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRetryTransportBackoffScheduleDoubles(t *testing.T) {
	var attempts atomic.Int32
	var stamps []time.Time
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		stamps = append(stamps, time.Now())
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := testRetryTransport()
	transport.InitialBackoff = 40 * time.Millisecond
	transport.MaxBackoff = 400 * time.Millisecond

	resp := doInsightRequest(t, transport, server.URL)
	defer resp.Body.Close()

	require.Equal(t, int32(3), attempts.Load())
	first := stamps[1].Sub(stamps[0])
	second := stamps[2].Sub(stamps[1])
	assert.GreaterOrEqual(t, first, 35*time.Millisecond)
	assert.GreaterOrEqual(t, second, 70*time.Millisecond, "second wait doubles the first")
}
