package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(n int) *Retrier {
	return New(WithMaxAttempts(n), WithInitialDelay(time.Millisecond), WithMaxDelay(2*time.Millisecond), WithJitter(0))
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	retries := 0
	r := New(WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0),
		WithOnRetry(func(int, error, time.Duration) { retries++ }))

	err := r.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, retries)
}

func TestDo_ReturnsLastError(t *testing.T) {
	errLast := errors.New("still down")
	attempts := 0
	err := fast(2).Do(context.Background(), func(context.Context) error {
		attempts++
		return errLast
	})
	assert.ErrorIs(t, err, errLast)
	assert.Equal(t, 2, attempts)
}

func TestDo_PermanentStops(t *testing.T) {
	errAuth := errors.New("password authentication failed")
	attempts := 0
	err := fast(5).Do(context.Background(), func(context.Context) error {
		attempts++
		return Permanent(errAuth)
	})
	assert.Equal(t, errAuth, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fast(3).Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	v, err := DoWithData(context.Background(), fast(3), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}
