// Package backend implements the Translation Backend Interface of
// spec §4.6: a one-method `translate_batch` contract, typed sentinel
// failures, and a small provider registry modeled on the Kodi addon's
// multi-service translator module (original_source/lib/translators.py).
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"subtrans/internal/domain"
)

// httpClient is the narrow surface every concrete backend needs;
// satisfied by *http.Client, mockable in tests.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// rateLimited wraps an httpClient with a per-backend request budget,
// grounded on golang.org/x/time/rate (spec's DOMAIN STACK wiring for
// this concern; see DESIGN.md).
type rateLimited struct {
	inner   httpClient
	limiter *rate.Limiter
}

func newRateLimitedClient(inner httpClient, requestsPerSecond float64, burst int) *rateLimited {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &rateLimited{inner: inner, limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

func (c *rateLimited) Do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return c.inner.Do(req)
}

// classifyHTTPStatus maps an HTTP response status to the typed
// failure taxonomy of spec §4.6.
func classifyHTTPStatus(resp *http.Response, body []byte) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: backend returned status %d", domain.ErrAuthMissing, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return &domain.RateLimitedError{RetryAfter: parseRetryAfter(resp)}
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: backend returned status %d: %s", domain.ErrTransient, resp.StatusCode, truncate(body, 200))
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: backend returned status %d: %s", domain.ErrInvalid, resp.StatusCode, truncate(body, 200))
	default:
		return nil
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(h); err == nil {
		return time.Duration(secs) * time.Second
	}
	if when, err := http.ParseTime(h); err == nil {
		return time.Until(when)
	}
	return 0
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// doJSON performs req, classifying transport-level failures as
// domain.ErrTransient (network errors, since those are retryable
// exactly like a 5xx per spec §4.6) and draining the body for
// classifyHTTPStatus.
func doJSON(client httpClient, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", domain.ErrTransient, err)
	}
	if err := classifyHTTPStatus(resp, body); err != nil {
		return nil, err
	}
	return body, nil
}
