// Package breaker implements the circuit breaker gating calls to a flaky
// external dependency. It implements closed / open / half-open states, a
// single half-open probe gated by CAS, and adaptive open-duration backoff
// on repeated probe failures.
package breaker

import (
	"sync/atomic"
	"time"
)

// Clock abstracts the wall clock so tests can control elapsed time without
// sleeping, matching the teacher's pattern of injecting collaborators
// through constructors rather than reaching for global state.
type Clock interface {
	NowMs() int64
}

// systemClock is the default Clock backed by time.Now.
type systemClock struct{}

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }

// SystemClock is the default production Clock.
var SystemClock Clock = systemClock{}

const maxProbeFailures = 8

// Breaker is a thread-safe circuit breaker. All counters are atomic; the
// half-open gate uses a single CAS so at most one probe is ever in flight.
type Breaker struct {
	failureThreshold    int64
	baseOpenDurationMs  int64
	clock               Clock

	consecutiveFailures      atomic.Int64
	consecutiveProbeFailures atomic.Int64
	openedAtMs               atomic.Int64 // -1 when closed
	currentOpenDurationMs    atomic.Int64
	halfOpenProbeInFlight    atomic.Bool
}

// New constructs a Breaker. failureThreshold must be >= 1 and
// baseOpenDurationMs must be >= 1; both are clamped to 1 if given a
// non-positive value.
func New(failureThreshold int, baseOpenDurationMs int64, clock Clock) *Breaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if baseOpenDurationMs < 1 {
		baseOpenDurationMs = 1
	}
	if clock == nil {
		clock = SystemClock
	}
	b := &Breaker{
		failureThreshold:   int64(failureThreshold),
		baseOpenDurationMs: baseOpenDurationMs,
		clock:              clock,
	}
	b.openedAtMs.Store(-1)
	b.currentOpenDurationMs.Store(baseOpenDurationMs)
	return b
}

// IsRequestAllowed implements the closed/open/half-open gate.
func (b *Breaker) IsRequestAllowed() bool {
	openedAt := b.openedAtMs.Load()
	if openedAt < 0 {
		return true // closed
	}

	elapsed := b.clock.NowMs() - openedAt
	if elapsed < b.currentOpenDurationMs.Load() {
		return false // open
	}

	// half-open: only the goroutine that wins the CAS gets to probe.
	return b.halfOpenProbeInFlight.CompareAndSwap(false, true)
}

// RecordSuccess resets the breaker to its initial closed state.
func (b *Breaker) RecordSuccess() {
	b.reset()
}

// RecordFailure records a failed call, transitioning the breaker to open
// when the consecutive-failure threshold is reached. A failed half-open
// probe reopens the breaker at once, with a longer open duration.
func (b *Breaker) RecordFailure() {
	if b.halfOpenProbeInFlight.CompareAndSwap(true, false) {
		probeFailures := b.consecutiveProbeFailures.Add(1)
		if probeFailures > maxProbeFailures {
			probeFailures = maxProbeFailures
			b.consecutiveProbeFailures.Store(maxProbeFailures)
		}
		b.currentOpenDurationMs.Store(saturatingMul(b.baseOpenDurationMs, probeFailures))
		b.openedAtMs.Store(b.clock.NowMs())
		return
	}

	failures := b.consecutiveFailures.Add(1)
	if failures >= b.failureThreshold {
		b.consecutiveProbeFailures.Store(0)
		b.currentOpenDurationMs.Store(b.baseOpenDurationMs)
		b.openedAtMs.Store(b.clock.NowMs())
	}
}

// Reset returns the breaker to its initial closed state.
func (b *Breaker) Reset() {
	b.reset()
}

func (b *Breaker) reset() {
	b.consecutiveFailures.Store(0)
	b.consecutiveProbeFailures.Store(0)
	b.openedAtMs.Store(-1)
	b.currentOpenDurationMs.Store(b.baseOpenDurationMs)
	b.halfOpenProbeInFlight.Store(false)
}

// RemainingOpenMs returns how many milliseconds remain before the breaker
// would allow a half-open probe. Zero when closed or once it's eligible.
func (b *Breaker) RemainingOpenMs() int64 {
	openedAt := b.openedAtMs.Load()
	if openedAt < 0 {
		return 0
	}
	remaining := b.currentOpenDurationMs.Load() - (b.clock.NowMs() - openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// CurrentOpenDurationMs exposes the adaptive open duration for tests and
// diagnostics.
func (b *Breaker) CurrentOpenDurationMs() int64 {
	return b.currentOpenDurationMs.Load()
}

// saturatingMul multiplies base by factor, saturating at int64 max instead
// of overflowing.
func saturatingMul(base, factor int64) int64 {
	if base == 0 || factor == 0 {
		return 0
	}
	const maxInt64 = int64(1<<63 - 1)
	if base > maxInt64/factor {
		return maxInt64
	}
	return base * factor
}
