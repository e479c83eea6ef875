package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of d derived from ctx. A deadline that
// expires inside fn becomes ErrTimeout; cancellation of ctx itself is returned
// unchanged so callers can tell a user abort from a hung call.
func WithTimeout(ctx context.Context, d time.Duration, stage, operation string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if parentErr := ctx.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return Wrap(ErrTimeout, stage, operation, fmt.Sprintf("no answer within %s", d), err)
	}
	return err
}
