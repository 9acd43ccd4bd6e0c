package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Defaults for the outbound retry policy.
const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = 1000 * time.Millisecond
	DefaultMaxBackoff     = 10000 * time.Millisecond
)

// insightPathFragments is the allow-list of path fragments the retry policy
// applies to. Everything else passes through untouched.
var insightPathFragments = []string{
	"/generate",
	"/ai/analysis",
}

// maxBufferedResponseBody caps how much of a failed response body is kept in
// memory so the final attempt's response stays readable after retries.
const maxBufferedResponseBody = 1 << 20

// ConnectivityFunc reports whether the network looks usable. Transport errors
// are only retried while connectivity is independently confirmed; otherwise
// backing off would just delay an inevitable failure.
type ConnectivityFunc func() bool

// RetryTransport is an http.RoundTripper that wraps insight-related calls
// with bounded exponential backoff.
//
// Policy: up to MaxAttempts attempts. Success, rate-limit (429) and non-5xx
// statuses return immediately; the caller must see a 429 verbatim, never a
// paraphrased network error. 5xx responses and transient transport errors
// retry after a context-aware wait that starts at InitialBackoff, doubles
// each attempt, and is capped at MaxBackoff. Cancelling the request context
// aborts both in-flight calls and pending waits.
type RetryTransport struct {
	Base           http.RoundTripper
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Connectivity   ConnectivityFunc
	Logger         *zap.Logger
}

// NewRetryTransport returns a RetryTransport with the default policy.
func NewRetryTransport(base http.RoundTripper, logger *zap.Logger) *RetryTransport {
	return &RetryTransport{
		Base:           base,
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Logger:         logger,
	}
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *RetryTransport) logger() *zap.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return zap.NewNop()
}

func (t *RetryTransport) connected() bool {
	if t.Connectivity != nil {
		return t.Connectivity()
	}
	return true
}

func isInsightPath(path string) bool {
	for _, fragment := range insightPathFragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !isInsightPath(req.URL.Path) {
		return t.base().RoundTrip(req)
	}

	maxAttempts := t.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	initial := t.InitialBackoff
	if initial <= 0 {
		initial = DefaultInitialBackoff
	}
	maxWait := t.MaxBackoff
	if maxWait <= 0 {
		maxWait = DefaultMaxBackoff
	}

	backoff := retry.WithCappedDuration(maxWait,
		retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(initial)))

	var (
		lastResp     *http.Response
		transientErr error
		fatalErr     error
		attempt      int
	)

	err := retry.Do(req.Context(), backoff, func(ctx context.Context) error {
		attempt++

		clone := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return fmt.Errorf("replaying request body: %w", err)
			}
			clone.Body = body
		}

		resp, err := t.base().RoundTrip(clone)
		if err != nil {
			if isTransientNetError(err) && t.connected() {
				transientErr = err
				t.logger().Warn("insight call failed, will retry",
					zap.Int("attempt", attempt),
					zap.Error(err))
				return retry.RetryableError(err)
			}
			fatalErr = err
			return err
		}

		if resp.StatusCode >= 500 {
			// Buffer and restore the body so the last response stays
			// readable when attempts are exhausted.
			buffered, _ := io.ReadAll(io.LimitReader(resp.Body, maxBufferedResponseBody))
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(buffered))

			if lastResp != nil {
				lastResp.Body.Close()
			}
			lastResp = resp
			t.logger().Warn("insight call returned server error, will retry",
				zap.Int("attempt", attempt),
				zap.Int("status", resp.StatusCode))
			return retry.RetryableError(fmt.Errorf("server error: %d", resp.StatusCode))
		}

		// Success, rate-limit and non-5xx failures all return immediately.
		if lastResp != nil {
			lastResp.Body.Close()
		}
		lastResp = resp
		return nil
	})

	if err == nil {
		return lastResp, nil
	}
	if ctxErr := req.Context().Err(); ctxErr != nil {
		if lastResp != nil {
			lastResp.Body.Close()
		}
		return nil, ctxErr
	}
	if fatalErr != nil {
		// A non-retryable failure surfaces as-is, even when an earlier
		// attempt produced a server-error response.
		if lastResp != nil {
			lastResp.Body.Close()
		}
		return nil, fatalErr
	}
	if lastResp != nil {
		// Attempts exhausted on 5xx: hand the caller the last real response.
		return lastResp, nil
	}
	if transientErr != nil {
		// Attempts exhausted on transport errors: synthesize a
		// service-unavailable response carrying a friendly message.
		return unavailableResponse(req), nil
	}
	return nil, err
}

// isTransientNetError reports whether err is the kind of transport failure
// worth retrying: timeouts, DNS resolution failures and refused connections.
func isTransientNetError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return false
}

func unavailableResponse(req *http.Request) *http.Response {
	body := `{"error":"the AI service is temporarily unreachable, please try again later"}`
	return &http.Response{
		Status:        http.StatusText(http.StatusServiceUnavailable),
		StatusCode:    http.StatusServiceUnavailable,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"application/json"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
