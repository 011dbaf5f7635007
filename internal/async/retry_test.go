package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithRetryEventualSuccess(t *testing.T) {
	calls := 0
	op := func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	}

	v, err := WithRetry(context.Background(), 3, time.Millisecond, op)

	assert.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustion(t *testing.T) {
	calls := 0
	final := errors.New("still broken")
	op := func() (int, error) {
		calls++
		return 0, final
	}

	_, err := WithRetry(context.Background(), 3, time.Millisecond, op)

	assert.ErrorIs(t, err, final)
	assert.Equal(t, 3, calls)
}

func TestWithRetryBackoffDoubles(t *testing.T) {
	base := 20 * time.Millisecond
	calls := 0
	start := time.Now()

	_, err := WithRetry(context.Background(), 3, base, func() (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, 3, calls)
	// Two waits: base and 2×base.
	assert.GreaterOrEqual(t, elapsed, 3*base-5*time.Millisecond)
}

func TestWithRetryContextCancelCutsWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := WithRetry(ctx, 3, time.Hour, func() (int, error) {
		return 0, errors.New("nope")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}
