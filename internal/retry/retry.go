package retry

import (
	"context"
	"math/rand"
	"time"

	"taxclient/internal/apperr"
)

type AttemptFunc func(ctx context.Context) error

// Policy bounds how often a failed attempt is repeated. MaxAttempts counts
// the first attempt, so 1 disables retries.
type Policy struct {
	MaxAttempts   int
	PerTryTimeout time.Duration
	Backoff       time.Duration
	BackoffJitter time.Duration
	// Budget, when set, is shared with other fetches; an empty budget ends
	// retrying early.
	Budget  *Budget
	OnRetry func(reason string, attempt int)
}

type Result struct {
	Attempts    int
	RetryCount  int
	RetryReason string
	Err         error
}

// Execute runs attempt until it succeeds, fails with an error that is not
// network-class, or the attempt budget is spent.
func Execute(ctx context.Context, policy Policy, attempt AttemptFunc) Result {
	result := Result{}
	if attempt == nil {
		result.Err = context.Canceled
		return result
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	for result.Attempts < maxAttempts {
		result.Attempts++

		attemptCtx, cancel := attemptContext(ctx, policy.PerTryTimeout)
		err := attempt(attemptCtx)
		cancel()
		if err == nil {
			result.Err = nil
			policy.Budget.RecordSuccess()
			return result
		}
		result.Err = err

		if ctx.Err() != nil {
			result.Err = ctx.Err()
			return result
		}
		if !apperr.Retryable(err) || result.Attempts >= maxAttempts {
			return result
		}
		if !policy.Budget.Consume() {
			result.RetryReason = "budget_exhausted"
			return result
		}

		result.RetryCount++
		result.RetryReason = apperr.Classify(err).Reason
		if policy.OnRetry != nil {
			policy.OnRetry(result.RetryReason, result.Attempts)
		}
		if !sleepWithBackoff(ctx, policy.Backoff, policy.BackoffJitter) {
			result.Err = ctx.Err()
			return result
		}
	}
	return result
}

func attemptContext(ctx context.Context, perTry time.Duration) (context.Context, context.CancelFunc) {
	if perTry <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, perTry)
}

func sleepWithBackoff(ctx context.Context, backoff time.Duration, jitter time.Duration) bool {
	delay := backoff
	if jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter) + 1))
	}
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
