// Package resilience guards calls to external services with named circuit
// breakers. Every guarded call resolves to either the real result or a
// caller-supplied fallback, never a raw propagated failure.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Predefined errors surfaced alongside fallback results.
var (
	// ErrCircuitOpen indicates the call was short-circuited without being attempted.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrCallTimeout indicates the wrapped call exceeded its configured timeout.
	ErrCallTimeout = errors.New("call timed out")
)

// Config holds per-service tuning for one circuit breaker.
type Config struct {
	// Name identifies the guarded service (e.g. "google-calendar").
	Name string

	// FailureThreshold is the number of consecutive failures that trips the
	// breaker from closed to open. Any success while closed resets the count.
	// Default: 5
	FailureThreshold uint32

	// TimeWindow is the cyclic period over which failures are counted while
	// the breaker is closed; counts older than the window are cleared.
	// Default: 60 seconds
	TimeWindow time.Duration

	// CallTimeout bounds each wrapped call. A call exceeding it is recorded
	// as a failure for this attempt even if a result arrives later.
	// Default: 10 seconds
	CallTimeout time.Duration

	// ResetTimeout is how long the breaker stays open before allowing a
	// single trial call through.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.TimeWindow == 0 {
		c.TimeWindow = 60 * time.Second
	}
	if c.CallTimeout == 0 {
		c.CallTimeout = 10 * time.Second
	}
	if c.ResetTimeout == 0 {
		c.ResetTimeout = 30 * time.Second
	}
	return c
}

// Stats are monotonically increasing call counters. State transitions and
// operator resets never clear them. Short-circuited calls were never
// attempted and are excluded from TotalCalls and the success rate.
type Stats struct {
	TotalCalls      uint64  `json:"totalCalls"`
	SuccessfulCalls uint64  `json:"successfulCalls"`
	FailedCalls     uint64  `json:"failedCalls"`
	ShortCircuited  uint64  `json:"shortCircuited"`
	SuccessRate     float64 `json:"successRate"`
}

// Breaker guards one named external dependency. The three-state machine
// (closed, open, half-open with a single trial call) is driven by a
// gobreaker engine; the wrapper adds per-call timeouts, monotonic stats,
// and operator reset.
type Breaker struct {
	cfg Config

	mu     sync.RWMutex
	engine *gobreaker.CircuitBreaker[any]

	total   atomic.Uint64
	success atomic.Uint64
	failed  atomic.Uint64
	short   atomic.Uint64

	// consecFailures mirrors the engine's consecutive-failure count. The
	// engine clears its counts on every state change, so the count that
	// opened the breaker is kept here until it closes again.
	consecFailures atomic.Uint32
}

// New creates a breaker with the given configuration.
func New(cfg Config) *Breaker {
	b := &Breaker{cfg: cfg.withDefaults()}
	b.engine = b.newEngine()
	return b
}

func (b *Breaker) newEngine() *gobreaker.CircuitBreaker[any] {
	threshold := b.cfg.FailureThreshold
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        b.cfg.Name,
		MaxRequests: 1, // exactly one trial call while half-open
		Interval:    b.cfg.TimeWindow,
		Timeout:     b.cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A caller hanging up says nothing about service health, so
			// cancellation does not count toward the trip threshold. A
			// half-open trial still needs a real success to close.
			return errors.Is(err, context.Canceled) && b.State() != gobreaker.StateHalfOpen
		},
		OnStateChange: b.cfg.OnStateChange,
	})
}

// Name returns the guarded service name.
func (b *Breaker) Name() string {
	return b.cfg.Name
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.currentEngine().State()
}

// Failures returns the consecutive failure count. While closed it reflects
// the current counting window; once tripped it keeps the count that opened
// the breaker (plus any failed trials) until the breaker closes again.
func (b *Breaker) Failures() uint32 {
	eng := b.currentEngine()
	if eng.State() == gobreaker.StateClosed {
		return eng.Counts().ConsecutiveFailures
	}
	return b.consecFailures.Load()
}

// Threshold returns the configured failure threshold.
func (b *Breaker) Threshold() uint32 {
	return b.cfg.FailureThreshold
}

// Stats returns a snapshot of the monotonic call counters.
func (b *Breaker) Stats() Stats {
	total := b.total.Load()
	success := b.success.Load()

	s := Stats{
		TotalCalls:      total,
		SuccessfulCalls: success,
		FailedCalls:     b.failed.Load(),
		ShortCircuited:  b.short.Load(),
		SuccessRate:     1,
	}
	if total > 0 {
		s.SuccessRate = float64(success) / float64(total)
	}
	return s
}

// Reset force-closes the breaker and clears its failure count. This is an
// operator escape hatch; call stats are preserved.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecFailures.Store(0)
	b.engine = b.newEngine()
}

func (b *Breaker) currentEngine() *gobreaker.CircuitBreaker[any] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.engine
}

// do runs call through the breaker engine and records the outcome exactly
// once in the monotonic counters.
func (b *Breaker) do(ctx context.Context, call func(context.Context) (any, error)) (any, error) {
	v, err := b.currentEngine().Execute(func() (any, error) {
		return b.callWithTimeout(ctx, call)
	})

	switch {
	case err == nil:
		b.total.Add(1)
		b.success.Add(1)
		b.consecFailures.Store(0)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		// Not a new failure: the breaker refused the call.
		b.short.Add(1)
		return nil, fmt.Errorf("%s: %w", b.cfg.Name, ErrCircuitOpen)
	default:
		b.total.Add(1)
		b.failed.Add(1)
		b.recordFailure()
	}

	return v, err
}

// recordFailure keeps consecFailures in step with the engine. While the
// breaker is still closed the engine count is authoritative (it knows about
// window rollovers); the failure that opened the breaker finds the engine
// count already cleared and is added on top of the mirrored value.
func (b *Breaker) recordFailure() {
	eng := b.currentEngine()
	if eng.State() == gobreaker.StateClosed {
		b.consecFailures.Store(eng.Counts().ConsecutiveFailures)
		return
	}
	b.consecFailures.Add(1)
}

// callWithTimeout bounds the call with the configured per-call timeout. A
// result arriving after the deadline is discarded so it cannot change an
// outcome that was already recorded.
func (b *Breaker) callWithTimeout(ctx context.Context, call func(context.Context) (any, error)) (any, error) {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.CallTimeout)
	defer cancel()

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call(cctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s after %s: %w", b.cfg.Name, b.cfg.CallTimeout, ErrCallTimeout)
		}
		return nil, cctx.Err()
	}
}

// Execute runs call through breaker b. When the call fails, times out, or is
// short-circuited, the fallback value is returned with degraded=true and the
// causing error for logging. A nil fallback is a wiring bug and panics
// immediately rather than failing at some later request.
func Execute[T any](ctx context.Context, b *Breaker, call func(context.Context) (T, error), fallback func() T) (T, bool, error) {
	if fallback == nil {
		panic("resilience: nil fallback for breaker " + b.cfg.Name)
	}

	v, err := b.do(ctx, func(ctx context.Context) (any, error) {
		return call(ctx)
	})
	if err != nil {
		return fallback(), true, err
	}

	// v always holds the call's own T unless the call produced a nil
	// interface value. Either way a failed assertion is not a success.
	result, ok := v.(T)
	if !ok {
		return fallback(), true, fmt.Errorf("%s: unexpected result type %T", b.cfg.Name, v)
	}
	return result, false, nil
}
