package pipeline

import (
	"context"
	"time"

	"github.com/stablewatch/cngn-indexer/internal/explorer"
	"github.com/stablewatch/cngn-indexer/pkg/retry"
)

// doWithPolicy runs fn until it succeeds, the policy declines a retry, or ctx
// is done. The failure kind fed to the policy comes from the explorer error
// taxonomy.
func doWithPolicy[T any](ctx context.Context, policy retry.Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}

		decision := policy(attempt, explorer.FailureKindOf(err))
		if !decision.Retry {
			return zero, err
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(decision.Delay):
		}
	}
}
