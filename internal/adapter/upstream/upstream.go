// Package upstream holds the HTTP plumbing shared by clients of external
// collaborators: timeouts, status checks and rate limiting.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"ragbench/internal/domain"
)

// maxErrorBody bounds how much of a failed response is kept in errors.
const maxErrorBody = 512

// NewClient returns an http.Client with a bounded overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Classify wraps a transport error from service so that timeouts match
// domain.ErrUpstreamTimeout and everything else matches domain.ErrUpstream.
func Classify(service string, err error) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s request timed out: %w: %w", service, domain.ErrUpstreamTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s request failed: %w: %w", service, domain.ErrUpstream, err)
}

// CheckStatus returns a *domain.UpstreamError for non-2xx responses.
// The body is drained but left open.
func CheckStatus(service string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &domain.UpstreamError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}
}

// Limiter throttles outbound requests to one collaborator.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter allows perSecond requests per second with a burst of one.
// A non-positive rate disables throttling.
func NewLimiter(perSecond float64) *Limiter {
	if perSecond <= 0 {
		return &Limiter{bucket: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.bucket.Wait(ctx)
}
