// Package retry implements a generic retry executor: a bounded-attempt loop
// with exponential jittered backoff, retryable-vs-fatal classification, and
// integration with a shared circuit breaker.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/sevigo/review-engine/internal/breaker"
)

// Config bounds one retry executor instance.
type Config struct {
	MaxAttempts   int
	BaseBackoffMs int64
	MaxBackoffMs  int64
}

// Executor runs attempts through bounded retries with jittered backoff,
// recording every outcome against a shared Breaker.
type Executor[T any] struct {
	cfg     Config
	breaker *breaker.Breaker
	sleep   func(context.Context, time.Duration) error
	rand    *rand.Rand
}

// New constructs an Executor bound to the given breaker. Backoff sleeps use
// a context-aware timer, so a cancelled context ends them early.
func New[T any](cfg Config, b *breaker.Breaker) *Executor[T] {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Executor[T]{
		cfg:     cfg,
		breaker: b,
		sleep:   ctxSleep,
		//nolint:gosec // jitter does not need a CSPRNG
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Attempt is a single unit of work the executor retries.
type Attempt[T any] func(ctx context.Context) (T, error)

// IsSuccess classifies a returned value as successful or not.
type IsSuccess[T any] func(T) bool

// IsRetryableResult classifies a returned (non-exceptional) failure value as
// worth retrying.
type IsRetryableResult[T any] func(T) bool

// ClassifyException maps a thrown error to a typed failure value of T.
type ClassifyException[T any] func(error) T

// OnCircuitOpen, if non-nil, supplies a synthesized value to return
// immediately when the breaker forbids a call, without invoking Attempt.
type OnCircuitOpen[T any] func(remainingOpenMs int64) T

// Execute runs attempt up to cfg.MaxAttempts times, implementing the
// retry algorithm.
func (e *Executor[T]) Execute(
	ctx context.Context,
	attempt Attempt[T],
	isSuccess IsSuccess[T],
	isRetryableResult IsRetryableResult[T],
	classifyException ClassifyException[T],
	onCircuitOpen OnCircuitOpen[T],
) T {
	var zero T

	for i := 1; i <= e.cfg.MaxAttempts; i++ {
		if e.breaker != nil && !e.breaker.IsRequestAllowed() {
			if onCircuitOpen != nil {
				return onCircuitOpen(e.breaker.RemainingOpenMs())
			}
			// No hook supplied: fall through to attempt anyway, matching a
			// breaker that is advisory-only for this call site.
		}

		result, err := attempt(ctx)
		if err != nil {
			if e.breaker != nil {
				e.breaker.RecordFailure()
			}
			failure := classifyException(err)
			if i < e.cfg.MaxAttempts && IsRetryableMessage(err.Error()) {
				if sleepErr := e.backoffSleep(ctx, i); sleepErr != nil {
					return failure
				}
				continue
			}
			return failure
		}

		if isSuccess(result) {
			if e.breaker != nil {
				e.breaker.RecordSuccess()
			}
			return result
		}

		if e.breaker != nil {
			e.breaker.RecordFailure()
		}
		if i < e.cfg.MaxAttempts && isRetryableResult(result) {
			if sleepErr := e.backoffSleep(ctx, i); sleepErr != nil {
				return result
			}
			continue
		}
		return result
	}

	return zero
}

// backoffSleep computes and waits the jittered exponential backoff for
// iteration i (1-based), per the backoff formula below.
func (e *Executor[T]) backoffSleep(ctx context.Context, i int) error {
	d := BackoffDuration(e.cfg.BaseBackoffMs, e.cfg.MaxBackoffMs, i, e.rand)
	return e.sleep(ctx, d)
}

// BackoffDuration computes the sampled sleep for iteration i (1-based):
//
//	base_i = min(baseBackoffMs << (i-1), maxBackoffMs)   // shift clamped to 62
//	half   = max(1, base_i/2)
//	sleep  = half + uniformRandom(0, half+1)
//
// For base_i >= 2 the result is in [base_i/2, base_i]. For base_i below 2,
// half is raised to 1 and the result is 1 or 2 milliseconds.
func BackoffDuration(baseBackoffMs, maxBackoffMs int64, i int, r *rand.Rand) time.Duration {
	shift := i - 1
	if shift > 62 {
		shift = 62
	}
	if shift < 0 {
		shift = 0
	}
	baseI := baseBackoffMs << uint(shift)
	if baseI <= 0 || baseI > maxBackoffMs {
		baseI = maxBackoffMs
	}
	half := baseI / 2
	if half < 1 {
		half = 1
	}
	jitter := int64(0)
	if r != nil {
		jitter = r.Int63n(half + 1)
	}
	return time.Duration(half+jitter) * time.Millisecond
}

func ctxSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

// retryableMarkers and nonRetryableMarkers implement the string-message
// classification.
var retryableMarkers = []string{
	"timeout", "timed out", "rate", "429", "tempor", "network", "connection", "unavailable",
}

var nonRetryableMarkers = []string{
	"unauthorized", "forbidden", "invalid token", "authentication",
	"invalid model", "bad request", "400", "401", "403", "404",
}

// IsRetryableMessage classifies an error message as retryable or not: any
// case-insensitive match of a retryable marker is
// retryable, unless a non-retryable marker also matches, which overrides to
// false.
func IsRetryableMessage(message string) bool {
	lower := strings.ToLower(message)

	for _, marker := range nonRetryableMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	for _, marker := range retryableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
