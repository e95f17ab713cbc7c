package eclass

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy decides how often and how long a failed request is retried.
type RetryPolicy struct {
	MaxAttempts   int
	BackoffBase   time.Duration
	BackoffJitter time.Duration
	// MaxRetryAfter caps how long a server supplied Retry-After can make us wait.
	MaxRetryAfter time.Duration
	// Retryable reports whether a response with the given status should be
	// attempted again. Transport errors are always retryable.
	Retryable func(status int) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   4,
		BackoffBase:   600 * time.Millisecond,
		BackoffJitter: 250 * time.Millisecond,
		MaxRetryAfter: 2 * time.Minute,
		Retryable:     DefaultRetryable,
	}
}

// DefaultRetryable retries 429, 403 and every 5xx.
func DefaultRetryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusForbidden ||
		(status >= 500 && status <= 599)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = def.BackoffBase
	}
	if p.BackoffJitter < 0 {
		p.BackoffJitter = 0
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = def.MaxRetryAfter
	}
	if p.Retryable == nil {
		p.Retryable = def.Retryable
	}
	return p
}

// Backoff is base * 2^attempt plus up to BackoffJitter of noise, attempt
// counts from 0.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BackoffBase << attempt
	if p.BackoffJitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.BackoffJitter)))
	}
	return d
}

// RetryAfter parses a Retry-After header in delta-seconds form, only bare
// digits are honoured.
func (p RetryPolicy) RetryAfter(header string) (time.Duration, bool) {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0, false
	}
	for _, c := range header {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	seconds, err := strconv.Atoi(header)
	if err != nil {
		return 0, false
	}
	d := time.Duration(seconds) * time.Second
	if d > p.MaxRetryAfter {
		d = p.MaxRetryAfter
	}
	return d, true
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
