package retry

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/vidhub/backend/internal/apperrors"
	"github.com/vidhub/backend/internal/logging"
)

// Policy bounds how often an idempotent read is attempted.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Backoff is the minimum spacing between consecutive attempts.
	Backoff time.Duration
}

// DefaultPolicy tries three times, 50ms apart.
var DefaultPolicy = Policy{Attempts: 3, Backoff: 50 * time.Millisecond}

func (p Policy) normalised() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Backoff <= 0 {
		p.Backoff = DefaultPolicy.Backoff
	}
	return p
}

// Do runs fn until it succeeds, fails with a non-retryable error, the attempts
// run out or ctx is cancelled. Only dependency failures are retried; callers
// must only pass operations that are safe to repeat.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error) error {
	policy = policy.normalised()
	limiter := rate.NewLimiter(rate.Every(policy.Backoff), 1)

	var err error
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		if waitErr := limiter.Wait(ctx); waitErr != nil {
			if err != nil {
				return err
			}
			return waitErr
		}

		err = fn(ctx)
		if err == nil || !apperrors.IsRetryable(err) {
			return err
		}

		if attempt < policy.Attempts {
			logging.FromContext(ctx).Warn("retrying read after dependency failure",
				"attempt", attempt,
				"error", err,
			)
		}
	}
	return err
}
