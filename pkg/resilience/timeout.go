package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/minise/pkg/errors"
)

// WithTimeout runs fn under a deadline. A call that outlives it returns
// ErrTimeout without waiting for fn; fn sees its context cancelled.
// A non-positive timeout runs fn directly.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		if errors.Is(o.err, context.DeadlineExceeded) {
			o.err = fmt.Errorf("%s: %w after %v", name, apperrors.ErrTimeout, timeout)
		}
		return o.v, o.err
	case <-ctx.Done():
		var zero T
		if cause := context.Cause(ctx); !errors.Is(cause, context.DeadlineExceeded) {
			return zero, fmt.Errorf("%s: %w", name, cause)
		}
		return zero, fmt.Errorf("%s: %w after %v", name, apperrors.ErrTimeout, timeout)
	}
}
