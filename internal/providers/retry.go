package providers

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
)

// DefaultMaxAttempts is the fixed attempt budget for one completion call.
const DefaultMaxAttempts = 6

const maxBaseWaitSeconds = 60.0

// waitHeaders are the response headers that can push a backoff wait higher.
var waitHeaders = []string{
	"Retry-After",
	"X-Ratelimit-Reset-Requests",
	"X-Ratelimit-Reset-Tokens",
}

// Backoff drives the retry loop. Sleep and Jitter are replaceable so callers
// can observe waits without blocking.
type Backoff struct {
	MaxAttempts int
	Sleep       func(ctx context.Context, d time.Duration) error
	Jitter      func() float64
}

// retryState lives for one call only.
type retryState struct {
	attempt int
	header  http.Header
	lastErr error
}

// DefaultBackoff returns the production backoff policy.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: DefaultMaxAttempts,
		Sleep:       sleepContext,
		Jitter:      rand.Float64,
	}
}

func (b Backoff) attempts() int {
	if b.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return b.MaxAttempts
}

func (b Backoff) jitter() float64 {
	if b.Jitter == nil {
		return rand.Float64()
	}
	return b.Jitter()
}

func (b Backoff) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep == nil {
		return sleepContext(ctx, d)
	}
	return b.Sleep(ctx, d)
}

// Wait computes how long to pause after the given failed attempt (1-based):
// the largest of the rate-limit headers and min(60, 2^(attempt-1)) plus jitter.
func (b Backoff) Wait(attempt int, header http.Header) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	seconds := math.Min(maxBaseWaitSeconds, math.Pow(2, float64(attempt-1))) + b.jitter()
	for _, name := range waitHeaders {
		if v := parseWaitSeconds(header.Get(name)); v > seconds {
			seconds = v
		}
	}
	if seconds < 0 {
		seconds = 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the
// attempt budget is spent.
func (b Backoff) Do(ctx context.Context, fn func(ctx context.Context) (string, error)) (string, error) {
	logger := logging.GetLogger()
	budget := b.attempts()
	var state retryState
	for state.attempt = 1; state.attempt <= budget; state.attempt++ {
		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}

		var re *RetryableError
		if !errors.As(err, &re) {
			return "", err
		}
		state.lastErr = err
		state.header = re.Header

		if state.attempt == budget {
			break
		}
		wait := b.Wait(state.attempt, state.header)
		logger.Warn(ctx, "Completion attempt %d/%d failed: %v; retrying in %s",
			state.attempt, budget, err, wait.Round(time.Millisecond))
		if err := b.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
	return "", &RetriesExhaustedError{Attempts: budget, Last: state.lastErr}
}

// parseWaitSeconds reads a header value given either as plain seconds or as
// a duration such as "1h2m3s" or "6m0s". Anything else counts as zero.
func parseWaitSeconds(v string) float64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseFloat(v, 64); err == nil {
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return n
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0
	}
	return d.Seconds()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
