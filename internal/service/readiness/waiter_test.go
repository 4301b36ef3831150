package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/gtk-bootstrap/internal/domain/provision"
)

// recordingSleep counts pauses and their durations without sleeping.
type recordingSleep struct {
	pauses []time.Duration
}

func (r *recordingSleep) sleep(_ context.Context, d time.Duration) error {
	r.pauses = append(r.pauses, d)
	return nil
}

// TestAwait_NeverReady consumes the full budget, pausing after every miss, and times out.
func TestAwait_NeverReady(t *testing.T) {
	t.Parallel()

	var (
		rec    recordingSleep
		checks int
	)

	waiter := New(Policy{Interval: 2 * time.Second, MaxAttempts: 30}, WithSleep(rec.sleep))

	attempts, err := waiter.Await(context.Background(), func() bool {
		checks++
		return false
	})

	require.ErrorIs(t, err, provision.ErrReadinessTimeout)
	require.Equal(t, 30, attempts)
	require.Equal(t, 30, checks)
	require.Len(t, rec.pauses, 30)

	var waited time.Duration
	for _, pause := range rec.pauses {
		require.Equal(t, 2*time.Second, pause)

		waited += pause
	}

	require.Equal(t, time.Minute, waited)

	require.Equal(t, StateFailed, waiter.State())
}

// TestAwait_ReadyOnAttemptK stops polling immediately.
func TestAwait_ReadyOnAttemptK(t *testing.T) {
	t.Parallel()

	for _, k := range []int{1, 7, 30} {
		var (
			rec    recordingSleep
			checks int
		)

		waiter := New(Policy{Interval: time.Second, MaxAttempts: 30}, WithSleep(rec.sleep))

		attempts, err := waiter.Await(context.Background(), func() bool {
			checks++
			return checks == k
		})

		require.NoError(t, err)
		require.Equal(t, k, attempts)
		require.Equal(t, k, checks)
		require.Len(t, rec.pauses, k-1)
		require.Equal(t, StateReady, waiter.State())
	}
}

// TestAwait_Cancelled stops on context cancellation without a timeout error.
func TestAwait_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	waiter := New(Policy{Interval: time.Hour, MaxAttempts: 5})

	attempts, err := waiter.Await(ctx, func() bool { return false })
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, provision.ErrReadinessTimeout))
	require.Equal(t, 1, attempts)
	require.Equal(t, StateFailed, waiter.State())
}

// TestAwait_RealSleep runs the default sleeper with a tiny interval.
func TestAwait_RealSleep(t *testing.T) {
	t.Parallel()

	checks := 0
	waiter := New(Policy{Interval: time.Millisecond, MaxAttempts: 3})

	attempts, err := waiter.Await(context.Background(), func() bool {
		checks++
		return checks == 3
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

// TestNew_NormalisesPolicy guarantees at least one check.
func TestNew_NormalisesPolicy(t *testing.T) {
	t.Parallel()

	waiter := New(Policy{Interval: -time.Second})

	attempts, err := waiter.Await(context.Background(), func() bool { return false })
	require.ErrorIs(t, err, provision.ErrReadinessTimeout)
	require.Equal(t, 1, attempts)
	require.Equal(t, "failed", waiter.State().String())
}
