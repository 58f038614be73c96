// Package socitx layers retry-with-backoff and savepoint helpers above a
// *soci.Session, deliberately kept outside the exchange core the way
// kdbx.withRetry/WithTransactionOptions and transactor.SQLTransactor sit
// above kdbx.Database/kpgx.DB rather than inside either one.
package socitx

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/soci-go/soci"
)

// RetryPolicy controls WithRetry's backoff. A zero-value RetryPolicy (no
// MaxAttempts) runs fn exactly once.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	OnRetry        func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryPolicy mirrors kdbx.Config's retry defaults: a handful of
// attempts with exponential backoff and jitter against transient failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// WithRetry runs fn, retrying on soci.Retryable errors with exponential
// backoff plus jitter, the Go rendering of kdbx's withRetry generalized to
// any soci.Session-driven operation instead of just a transaction body.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func(context.Context) error) error {
	if policy.MaxAttempts <= 0 {
		return fn(ctx)
	}

	backoff := policy.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return soci.Wrap(soci.ConnectionError, "context cancelled before retry", ctx.Err())
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !soci.Retryable(err) {
			return err
		}
		if attempt >= policy.MaxAttempts {
			break
		}

		sleep := backoffWithJitter(backoff, attempt, policy.MaxBackoff)
		if policy.OnRetry != nil {
			policy.OnRetry(attempt+1, err, sleep)
		}

		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return soci.Wrap(soci.ConnectionError, "context cancelled during retry backoff", ctx.Err())
		}
	}

	return soci.Wrap(soci.CategoryOf(lastErr), "maximum retry attempts exceeded", lastErr)
}

func backoffWithJitter(initial time.Duration, attempt int, max time.Duration) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(max) {
		backoff = float64(max)
	}
	jitter := backoff * 0.1 * (2*rand.Float64() - 1)
	return time.Duration(backoff + jitter)
}

// TxFunc runs inside an open transaction on s.
type TxFunc func(ctx context.Context, s *soci.Session) error

// WithTransaction begins a transaction on s, runs fn, and commits on
// success or rolls back on error or panic, retrying the whole attempt per
// policy — the Go rendering of kdbx.WithTransactionOptions combined with
// transactor.SQLTransactor's panic-safe commit/rollback defer.
func WithTransaction(ctx context.Context, s *soci.Session, policy RetryPolicy, fn TxFunc) error {
	return WithRetry(ctx, policy, func(ctx context.Context) (err error) {
		if err := s.Begin(ctx); err != nil {
			return err
		}

		defer func() {
			if p := recover(); p != nil {
				_ = s.Rollback(ctx)
				panic(p)
			}
		}()

		if err = fn(ctx, s); err != nil {
			_ = s.Rollback(ctx)
			return err
		}

		return s.Commit(ctx)
	})
}

// validateSavepointName guards against SQL injection through a
// programmer-supplied (not user-supplied) savepoint name, the same
// restriction kdbx.validateSavepointName applies since savepoint names
// cannot be bound as parameters.
func validateSavepointName(name string) error {
	if name == "" {
		return fmt.Errorf("socitx: savepoint name cannot be empty")
	}
	first := name[0]
	if !((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z') || first == '_') {
		return fmt.Errorf("socitx: savepoint name must start with a letter or underscore")
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_') {
			return fmt.Errorf("socitx: savepoint name can only contain alphanumeric characters and underscores")
		}
	}
	return nil
}

// WithSavepoint runs fn inside a named SAVEPOINT nested in the current
// transaction on s, releasing it on success and rolling back to it (without
// aborting the outer transaction) on failure — the Go rendering of
// kdbx.NestedTransaction.
func WithSavepoint(ctx context.Context, s *soci.Session, name string, fn func(ctx context.Context) error) error {
	if err := validateSavepointName(name); err != nil {
		return soci.Wrap(soci.InvalidStatement, "invalid savepoint name", err)
	}

	if err := s.Once(ctx, "SAVEPOINT "+name); err != nil {
		return soci.Wrap(soci.CategoryOf(err), "failed to create savepoint", err)
	}

	if err := fn(ctx); err != nil {
		if rbErr := s.Once(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return soci.Wrap(soci.CategoryOf(rbErr), "failed to rollback to savepoint", rbErr)
		}
		return err
	}

	if err := s.Once(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return soci.Wrap(soci.CategoryOf(err), "failed to release savepoint", err)
	}
	return nil
}
