package retry

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/review-engine/internal/breaker"
)

type result struct {
	ok      bool
	message string
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func TestExecutor_SucceedsFirstTry(t *testing.T) {
	b := breaker.New(5, 1000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)
	ex.sleep = noSleep

	calls := 0
	out := ex.Execute(context.Background(),
		func(ctx context.Context) (result, error) {
			calls++
			return result{ok: true}, nil
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		nil,
	)

	assert.True(t, out.ok)
	assert.Equal(t, 1, calls)
	assert.True(t, b.IsRequestAllowed())
}

func TestExecutor_RetriesTransientThenSucceeds(t *testing.T) {
	b := breaker.New(5, 1000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)
	ex.sleep = noSleep

	calls := 0
	out := ex.Execute(context.Background(),
		func(ctx context.Context) (result, error) {
			calls++
			if calls == 1 {
				return result{}, errors.New("network unavailable")
			}
			return result{ok: true}, nil
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		nil,
	)

	assert.True(t, out.ok)
	assert.Equal(t, 2, calls)
}

func TestExecutor_FatalExceptionNotRetried(t *testing.T) {
	b := breaker.New(5, 1000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)
	ex.sleep = noSleep

	calls := 0
	out := ex.Execute(context.Background(),
		func(ctx context.Context) (result, error) {
			calls++
			return result{}, errors.New("401 unauthorized")
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		nil,
	)

	assert.False(t, out.ok)
	assert.Equal(t, 1, calls, "fatal errors must not be retried")
}

func TestExecutor_ExhaustsMaxAttempts(t *testing.T) {
	b := breaker.New(5, 1000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)
	ex.sleep = noSleep

	calls := 0
	out := ex.Execute(context.Background(),
		func(ctx context.Context) (result, error) {
			calls++
			return result{}, errors.New("timeout")
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		nil,
	)

	assert.False(t, out.ok)
	assert.Equal(t, 3, calls)
}

func TestExecutor_CircuitOpenShortCircuits(t *testing.T) {
	b := breaker.New(1, 100000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)
	ex.sleep = noSleep

	b.RecordFailure() // opens the breaker

	calls := 0
	out := ex.Execute(context.Background(),
		func(ctx context.Context) (result, error) {
			calls++
			return result{ok: true}, nil
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		func(remainingMs int64) result {
			return result{message: "circuit open"}
		},
	)

	assert.Equal(t, 0, calls, "attempt must not be invoked when circuit is open")
	assert.Equal(t, "circuit open", out.message)
}

func TestBackoffDuration_BoundedRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 1; i <= 10; i++ {
		d := BackoffDuration(1000, 8000, i, r)
		baseI := int64(1000) << uint(i-1)
		if baseI > 8000 || baseI <= 0 {
			baseI = 8000
		}
		half := baseI / 2
		if half < 1 {
			half = 1
		}
		assert.GreaterOrEqual(t, d, time.Duration(half)*time.Millisecond)
		assert.LessOrEqual(t, d, time.Duration(baseI)*time.Millisecond)
	}
}

func TestIsRetryableMessage(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"connection timeout", true},
		{"rate limit exceeded: 429", true},
		{"temporary network failure", true},
		{"401 unauthorized", false},
		{"invalid model specified", false},
		{"404 not found", false},
		{"something unexpected", false},
		{"service unavailable, please retry", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsRetryableMessage(tt.message), tt.message)
	}
}

func TestExecutor_InterruptAbortsRetries(t *testing.T) {
	b := breaker.New(5, 1000, nil)
	ex := New[result](Config{MaxAttempts: 3, BaseBackoffMs: 10, MaxBackoffMs: 100}, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	out := ex.Execute(ctx,
		func(ctx context.Context) (result, error) {
			calls++
			return result{}, errors.New("network unavailable")
		},
		func(r result) bool { return r.ok },
		func(r result) bool { return false },
		func(err error) result { return result{message: err.Error()} },
		nil,
	)

	assert.False(t, out.ok)
	assert.Equal(t, 1, calls, "cancelled context should abort the sleep and stop retries")
}
