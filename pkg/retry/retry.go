// Package retry provides exponential-backoff retry loops for transient
// failures, used for collaborator calls and database startup.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
)

// Config defines the backoff schedule. Delays start at InitialDelay and
// grow by Multiplier up to MaxDelay, with Jitter randomizing each wait
// both ways to keep concurrent retries from synchronizing.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultConfig retries three times starting at 100ms, doubling to a 5s
// cap, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.1,
	}
}

// RetryableError lets an error declare its own retryability instead of
// relying on string matching. Provider errors implement this.
type RetryableError interface {
	error
	IsRetryable() bool
}

// transientPatterns matches error text from transports and providers that
// is worth retrying when the error carries no explicit retryability.
var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"network is unreachable",
	"timeout",
	"timed out",
	"deadline exceeded",
	"temporary failure",
	"too many connections",
	"deadlock",
	"429",
	"500",
	"502",
	"503",
	"504",
	"rate limit",
	"too many requests",
	"service unavailable",
}

// IsRetryable reports whether an error is transient. An error implementing
// RetryableError decides for itself; everything else falls back to pattern
// matching so permanent failures (auth, malformed requests) stop the loop.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var r RetryableError
	if errors.As(err, &r) {
		return r.IsRetryable()
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// Do runs fn until it succeeds or the retry budget is spent, backing off
// between attempts. Context cancellation interrupts the wait.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	return run(ctx, cfg, fn, func(error) bool { return true })
}

// DoIfRetryable runs fn like Do but stops immediately on errors that are
// not transient per IsRetryable.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	return run(ctx, cfg, fn, IsRetryable)
}

// DoWithResult runs fn like Do for functions that return a value, such as
// pool constructors.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	var out T
	err := run(ctx, cfg, func() error {
		v, err := fn()
		if err != nil {
			return err
		}
		out = v
		return nil
	}, func(error) bool { return true })
	return out, err
}

func run(ctx context.Context, cfg *Config, fn func() error, retryable func(error) bool) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt >= cfg.MaxRetries {
			return lastErr
		}

		select {
		case <-time.After(jittered(delay, cfg.Jitter)):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// jittered spreads a delay by +/- jitter fraction.
func jittered(delay time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return delay
	}
	spread := float64(delay) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + spread)
}
