package abstractcluster

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/openai/openai-go/v3"
)

// retryPolicy bounds the back-off used when the API rate limits us.
type retryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var defaultRetryPolicy = retryPolicy{MaxRetries: 5, BaseDelay: 5 * time.Second, MaxDelay: 120 * time.Second}

// parseRetryAfter parses the Retry-After header value and returns duration
func parseRetryAfter(retryAfter string) time.Duration {
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := time.Parse(time.RFC1123, retryAfter); err == nil {
		return time.Until(retryTime)
	}

	return 0
}

// rateLimitDelay returns how long to wait before retrying err, or false when
// err is not a rate limit response.
func (p retryPolicy) rateLimitDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		return 0, false
	}

	var delay time.Duration
	if apiErr.Response != nil {
		delay = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
	}
	if delay <= 0 {
		delay = p.BaseDelay * time.Duration(1<<attempt)
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay, true
}

// withRetry calls fn until it succeeds, fails with something other than a
// rate limit, or the retries run out.
func (p retryPolicy) withRetry(ctx context.Context, fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		delay, limited := p.rateLimitDelay(err, attempt)
		if !limited {
			return err
		}
		if attempt == p.MaxRetries {
			return fmt.Errorf("rate limit exceeded after %d retries: %w", p.MaxRetries, err)
		}

		log.Printf("Rate limit hit (attempt %d/%d), retrying in %v...", attempt+1, p.MaxRetries+1, delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
