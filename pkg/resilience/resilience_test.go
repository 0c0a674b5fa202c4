package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

var errDown = errors.New("down")

func TestBreakerOpensAndRecovers(t *testing.T) {
	var changes []string
	b := NewBreaker("redis", BreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		OnStateChange: func(_ string, from, to State) {
			changes = append(changes, from.String()+">"+to.String())
		},
	})
	now := time.Unix(1000, 0)
	b.now = func() time.Time { return now }

	fail := func() error { return errDown }
	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, StateClosed, b.State())
	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, changes)
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker("pg", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errDown })
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, b.Do(func() error { return errDown }), errDown)
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestRetry(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

	calls := 0
	err := Retry(context.Background(), "flaky", cfg, func(context.Context) error {
		calls++
		if calls < 3 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(context.Background(), "dead", cfg, func(context.Context) error {
		calls++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 3, calls)
}

func TestRetryPermanent(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "auth", RetryConfig{}, func(context.Context) error {
		calls++
		return Permanent(errDown)
	})
	assert.Equal(t, errDown, err)
	assert.Equal(t, 1, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 10, InitialDelay: time.Hour, MaxDelay: time.Hour}

	err := Retry(ctx, "slow", cfg, func(context.Context) error {
		cancel()
		return errDown
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithTimeout(t *testing.T) {
	v, err := WithTimeout(context.Background(), time.Second, "fast", func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = WithTimeout(context.Background(), 10*time.Millisecond, "slow", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}
