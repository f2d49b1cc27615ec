package sources

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

// RetryConfig controls retry behavior of the YouTube client.
type RetryConfig struct {
	MaxRetries  int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig suits Data API calls: a few quick retries on 429/5xx.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     8 * time.Second,
	Multiplier:  2.0,
}

// statusError is a non-2xx Data API response.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	if e.Body == "" {
		return "youtube data API " + http.StatusText(e.StatusCode)
	}
	return "youtube data API " + http.StatusText(e.StatusCode) + ": " + e.Body
}

// quotaExceeded reports a 403, which the Data API uses for exhausted quota and bad keys.
func (e *statusError) quotaExceeded() bool {
	return e.StatusCode == http.StatusForbidden
}

// retryDo retries fn with exponential backoff while the error is transient.
func retryDo[T any](ctx context.Context, rc RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= rc.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isTransient(err) {
			return zero, err
		}

		if attempt < rc.MaxRetries {
			wait := time.Duration(float64(rc.InitialWait) * math.Pow(rc.Multiplier, float64(attempt)))
			wait = min(wait, rc.MaxWait)
			slog.Debug("youtube: retrying", slog.Int("attempt", attempt+1), slog.Duration("wait", wait), slog.Any("error", err))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}
	return zero, lastErr
}

// isTransient returns true for errors worth retrying: 429, 5xx and network failures.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
