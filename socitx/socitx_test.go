package socitx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/soci-go/soci"
)

func TestWithRetrySucceedsFirstTry(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), DefaultRetryPolicy(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestWithRetryRetriesTransientError(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	err := WithRetry(context.Background(), policy, func(context.Context) error {
		calls++
		if calls < 3 {
			return soci.New(soci.ConnectionError, "dial failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithRetry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetryDoesNotRetryNonTransientError(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	permErr := soci.New(soci.InvalidStatement, "bad sql")
	err := WithRetry(context.Background(), policy, func(context.Context) error {
		calls++
		return permErr
	})
	if !errors.Is(err, permErr) {
		t.Fatalf("expected the permanent error to pass through unchanged, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 call for a non-retryable error, got %d", calls)
	}
}

func TestWithRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	policy := RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}
	err := WithRetry(context.Background(), policy, func(context.Context) error {
		calls++
		return soci.New(soci.ConnectionError, "dial failed")
	})
	if err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if calls != 3 {
		t.Errorf("expected 1 initial attempt + 2 retries = 3 calls, got %d", calls)
	}
}

func TestWithRetryZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), RetryPolicy{}, func(context.Context) error {
		calls++
		return soci.New(soci.ConnectionError, "dial failed")
	})
	if err == nil {
		t.Fatal("expected an error to propagate")
	}
	if calls != 1 {
		t.Errorf("expected a zero-value RetryPolicy to run fn exactly once, got %d calls", calls)
	}
}

func TestValidateSavepointName(t *testing.T) {
	valid := []string{"sp1", "_internal", "Savepoint_2"}
	for _, name := range valid {
		if err := validateSavepointName(name); err != nil {
			t.Errorf("expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{"", "1sp", "sp-1", "sp;drop table x"}
	for _, name := range invalid {
		if err := validateSavepointName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestBackoffWithJitterRespectsMax(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, attempt, 50*time.Millisecond)
		if d < 0 {
			t.Fatalf("backoff must not be negative, got %v", d)
		}
		if d > 55*time.Millisecond {
			t.Fatalf("backoff %v exceeds max plus jitter bound", d)
		}
	}
}
