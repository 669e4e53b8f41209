// Package retry runs an operation with exponential backoff and jitter.
// It is used for startup connections only; content API calls are never
// retried automatically.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// PermanentError ends the loop after the current attempt.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying, e.g. a rejected password.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Backoff describes the attempt schedule. The n-th retry waits
// Initial*Factor^(n-1), capped at Max and spread by +/- Jitter.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
	Factor   float64
	Jitter   float64
}

// Option configures a Retrier. Out-of-range values are ignored.
type Option func(*Retrier)

func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.backoff.Attempts = n
		}
	}
}

func WithInitialDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.backoff.Initial = d
		}
	}
}

func WithMaxDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d > 0 {
			r.backoff.Max = d
		}
	}
}

// WithJitter sets the spread as a fraction in [0, 1].
func WithJitter(j float64) Option {
	return func(r *Retrier) {
		if j >= 0 && j <= 1 {
			r.backoff.Jitter = j
		}
	}
}

// WithOnRetry registers a hook called before every wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// Retrier executes operations on a Backoff schedule.
type Retrier struct {
	backoff Backoff
	onRetry func(attempt int, err error, delay time.Duration)
}

// New returns a Retrier with 3 attempts starting at 100ms, doubling up to
// 5s with 10% jitter, then applies opts.
func New(opts ...Option) *Retrier {
	r := &Retrier{backoff: Backoff{
		Attempts: 3,
		Initial:  100 * time.Millisecond,
		Max:      5 * time.Second,
		Factor:   2,
		Jitter:   0.1,
	}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls op until it succeeds, fails permanently, runs out of attempts
// or ctx ends. It returns the last error from op, or ctx's error when op
// never ran.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	wait := r.backoff.Initial

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last == nil {
				last = err
			}
			return last
		}

		last = op(ctx)
		var perm *PermanentError
		switch {
		case last == nil:
			return nil
		case errors.As(last, &perm):
			return perm.Err
		case attempt >= r.backoff.Attempts:
			return last
		}

		d := r.jittered(wait)
		if r.onRetry != nil {
			r.onRetry(attempt, last, d)
		}
		if !sleep(ctx, d) {
			return last
		}
		wait = min(time.Duration(float64(wait)*r.backoff.Factor), r.backoff.Max)
	}
}

func (r *Retrier) jittered(d time.Duration) time.Duration {
	d = min(d, r.backoff.Max)
	if r.backoff.Jitter == 0 {
		return d
	}
	spread := float64(d) * r.backoff.Jitter * (2*rand.Float64() - 1)
	return max(0, d+time.Duration(spread))
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// DoWithData is Do for operations that produce a value.
func DoWithData[T any](ctx context.Context, r *Retrier, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}

// ConnectRetrier is the schedule for the startup Postgres and Redis pings,
// sized for containers that are still booting.
func ConnectRetrier(onRetry func(attempt int, err error, delay time.Duration)) *Retrier {
	return New(
		WithMaxAttempts(5),
		WithInitialDelay(500*time.Millisecond),
		WithMaxDelay(5*time.Second),
		WithJitter(0.2),
		WithOnRetry(onRetry),
	)
}
