package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/immxrtalbeast/consult_rooms/internal/config"
	"github.com/immxrtalbeast/consult_rooms/internal/domain"
)

const defaultRetryBudget = 2 * time.Second

// retry runs an idempotent store write until it succeeds, fails with a
// domain error, or the retry budget is spent. Every attempt runs under a
// context bounded by cfg.StoreRetryBudget, so a hung store cannot hold the
// room lock past it.
func retry(ctx context.Context, cfg config.RoomsConfig, fn func(ctx context.Context) error) error {
	budget := cfg.StoreRetryBudget
	if budget <= 0 {
		budget = defaultRetryBudget
	}
	rctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = budget / 4
	b.MaxElapsedTime = budget

	err := backoff.Retry(func() error {
		err := fn(rctx)
		if err == nil {
			return nil
		}
		if domain.IsDomainError(err) || rctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, cfg.StoreRetries), rctx))

	if err != nil && ctx.Err() == nil && rctx.Err() != nil {
		return fmt.Errorf("%w: no response within %s: %w", domain.ErrStorageUnavailable, budget, err)
	}
	return err
}

// storeErr tags infrastructure failures with ErrStorageUnavailable and
// leaves domain outcomes untouched.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err) || errors.Is(err, domain.ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
