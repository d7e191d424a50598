package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithRetrySucceedsFirstAttempt(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), 3, time.Millisecond, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestWithRetryRecoversAfterFailures(t *testing.T) {
	calls := 0
	got, err := WithRetry(context.Background(), 3, time.Millisecond, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := WithRetry(context.Background(), 3, time.Millisecond, func() (int, error) {
		calls++
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWithRetrySingleAttemptDoesNotRetry(t *testing.T) {
	calls := 0
	_, err := WithRetry(context.Background(), 1, time.Millisecond, func() (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetryBackoffDoubles(t *testing.T) {
	var gaps []time.Duration
	last := time.Now()
	calls := 0
	_, _ = WithRetry(context.Background(), 3, 20*time.Millisecond, func() (int, error) {
		now := time.Now()
		if calls > 0 {
			gaps = append(gaps, now.Sub(last))
		}
		last = now
		calls++
		return 0, errors.New("always")
	})
	require.Len(t, gaps, 2)
	// First wait ~20ms, second ~40ms.
	assert.GreaterOrEqual(t, gaps[0], 20*time.Millisecond)
	assert.GreaterOrEqual(t, gaps[1], 40*time.Millisecond)
	assert.Less(t, gaps[0], gaps[1])
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})
	var err error
	go func() {
		defer close(done)
		_, err = WithRetry(ctx, 5, time.Hour, func() (int, error) {
			calls++
			return 0, errors.New("always")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
