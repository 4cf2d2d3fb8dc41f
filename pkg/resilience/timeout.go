package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/tidytext-tfidf/pkg/errors"
)

// WithTimeout runs fn under a context limited to timeout. When the limit
// expires first the returned error wraps ErrTimeout; fn keeps running in the
// background until it notices its context. A non-positive timeout calls fn
// directly.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%s after %v: %w", name, timeout, apperrors.ErrTimeout)
		}
		return fmt.Errorf("%s: %w", name, ctx.Err())
	}
}
