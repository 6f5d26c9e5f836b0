// Package retry provides the wait-and-retry policy for rate limited requests.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultWait is used when a rate limited response does not say how long to wait.
const DefaultWait = 60 * time.Second

// Config holds retry configuration.
type Config struct {
	MaxAttempts int           // Maximum number of attempts (0 = infinite)
	DefaultWait time.Duration // Wait used when the server gives no duration

	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnWait is called before every wait with the attempt number that was rate limited.
	OnWait func(attempt int, wait time.Duration)
}

// DefaultConfig returns the policy used against the platform API: wait as long
// as the server asks (60s when it does not say) and never give up.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 0,
		DefaultWait: DefaultWait,
	}
}

// ErrGaveUp is returned when MaxAttempts rate limited attempts were made.
var ErrGaveUp = errors.New("gave up due to rate limit")

// RateLimitedError marks an attempt that was rejected with a rate limit signal.
type RateLimitedError struct {
	Wait time.Duration // 0 = use Config.DefaultWait
	Err  error
}

func (e RateLimitedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rate limited, retry after %s", e.Wait)
	}
	return e.Err.Error()
}

func (e RateLimitedError) Unwrap() error {
	return e.Err
}

// RateLimited wraps err to mark the attempt as rate limited with the given wait.
func RateLimited(wait time.Duration, err error) error {
	return RateLimitedError{Wait: wait, Err: err}
}

// IsRateLimited reports whether err marks a rate limited attempt and returns its wait.
func IsRateLimited(err error) (time.Duration, bool) {
	var rl RateLimitedError
	if errors.As(err, &rl) {
		return rl.Wait, true
	}
	return 0, false
}

// Do executes fn until it returns something other than a rate limit error.
// Every rate limited attempt is followed by exactly one wait.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	_, err := DoWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// DoWithResult executes fn with rate limit retries and returns a result.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T

	for attempt := 1; cfg.MaxAttempts == 0 || attempt <= cfg.MaxAttempts; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}

		wait, limited := IsRateLimited(err)
		if !limited {
			return result, err
		}

		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if cfg.MaxAttempts != 0 && attempt == cfg.MaxAttempts {
			break
		}

		if wait <= 0 {
			wait = cfg.DefaultWait
		}
		if wait <= 0 {
			wait = DefaultWait
		}

		if cfg.OnWait != nil {
			cfg.OnWait(attempt, wait)
		}

		sleep := cfg.Sleep
		if sleep == nil {
			sleep = sleepContext
		}
		if err := sleep(ctx, wait); err != nil {
			return result, err
		}
	}

	return result, ErrGaveUp
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
