package readiness

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
	"github.com/oshokin/gtk-bootstrap/internal/logger"
)

// State is the waiter's position in its state machine.
type State int

const (
	// StateWaiting means polling is in progress (or has not started).
	StateWaiting State = iota
	// StateReady means the artifact was detected.
	StateReady
	// StateFailed means the attempt budget ran out or the wait was cancelled.
	StateFailed
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy bounds the polling schedule.
type Policy struct {
	// Interval is the pause after each failed check.
	Interval time.Duration
	// MaxAttempts is the number of checks before giving up.
	MaxAttempts int
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Waiter polls a predicate according to a Policy.
type Waiter struct {
	// policy is the polling schedule.
	policy Policy
	// sleep pauses after a failed check.
	sleep SleepFunc
	// state is the outcome of the last Await.
	state State
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithSleep replaces the pause after a failed check.
func WithSleep(sleep SleepFunc) Option {
	return func(w *Waiter) {
		if sleep != nil {
			w.sleep = sleep
		}
	}
}

// New creates a Waiter. Non-positive policy values become one attempt with no pause.
func New(policy Policy, opts ...Option) *Waiter {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	if policy.Interval < 0 {
		policy.Interval = 0
	}

	w := &Waiter{
		policy: policy,
		sleep:  sleepContext,
		state:  StateWaiting,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// State returns the outcome of the last Await.
func (w *Waiter) State() State {
	return w.state
}

// Await checks ready up to MaxAttempts times, pausing Interval after every
// miss, so an exhausted budget lasts MaxAttempts*Interval. It returns the
// number of checks made. Exhausting the budget yields an error wrapping
// provision.ErrReadinessTimeout.
func (w *Waiter) Await(ctx context.Context, ready func() bool) (int, error) {
	w.state = StateWaiting

	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		if ready() {
			w.state = StateReady
			logger.DebugKV(ctx, "Artifact detected", "attempt", attempt)

			return attempt, nil
		}

		logger.DebugKV(ctx, "Artifact not there yet", "attempt", attempt, "max_attempts", w.policy.MaxAttempts)

		if err := w.sleep(ctx, w.policy.Interval); err != nil {
			w.state = StateFailed
			return attempt, fmt.Errorf("wait for readiness: %w", err)
		}
	}

	w.state = StateFailed

	return w.policy.MaxAttempts, fmt.Errorf("%w: gave up after %d attempts every %s",
		provision.ErrReadinessTimeout, w.policy.MaxAttempts, w.policy.Interval)
}

// sleepContext is the default SleepFunc.
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
