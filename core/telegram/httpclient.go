package telegram

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tgwire/tgwire/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseTimeout   = 5 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
)

// BuildHTTPClient returns the default client for Bot API calls. Retry
// policy lives here at the transport; the dispatcher above it never
// retries.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: defaultResponseTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout: defaultClientTimeout,
		Transport: &retryTransport{
			base:    transport,
			retries: defaultRetryAttempts,
			backoff: defaultRetryBackoff,
		},
	}
}

// retryTransport re-issues requests that failed with a transient network
// error, backing off linearly between attempts.
type retryTransport struct {
	base    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	for attempt := 0; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err == nil {
			return resp, nil
		}
		if attempt == t.retries || !netutil.Retryable(err) {
			return nil, err
		}

		next, cloneErr := replayRequest(req)
		if cloneErr != nil {
			return nil, err
		}
		if werr := waitBackoff(req.Context(), t.backoff*time.Duration(attempt+1)); werr != nil {
			return nil, werr
		}
		req = next
	}
}

// replayRequest clones req with a fresh body for the next attempt.
// Requests whose consumed body cannot be rebuilt are not retried.
func replayRequest(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.GetBody == nil {
		if req.Body != nil {
			return nil, errors.New("request body is not replayable")
		}
		return next, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	next.Body = body
	return next, nil
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
