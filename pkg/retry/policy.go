package retry

import (
	"math/rand"
	"time"
)

// FailureKind classifies an upstream failure for retry purposes.
type FailureKind int

const (
	// KindRateLimited means the upstream returned a rate-limit signal (HTTP 429).
	KindRateLimited FailureKind = iota
	// KindServerError means the upstream returned 5xx or the request timed out.
	KindServerError
	// KindTerminal means the failure is not worth retrying.
	KindTerminal
)

func (k FailureKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindServerError:
		return "server_error"
	default:
		return "terminal"
	}
}

// Decision is the outcome of consulting a Policy for one failed attempt.
type Decision struct {
	Retry bool
	Delay time.Duration
}

// Policy decides whether a failed attempt should be retried and after how long.
// attempt is 1-based and counts the attempt that just failed.
type Policy func(attempt int, kind FailureKind) Decision

type PolicyConfig struct {
	MaxAttempts      int           // total attempts, including the first
	RateLimitBase    time.Duration // base delay after a rate-limit signal
	RateLimitJitter  time.Duration // upper bound of the random jitter added on top
	ServerErrorDelay time.Duration // fixed delay after a server error or timeout
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MaxAttempts:      DefaultMaxAttempts,
		RateLimitBase:    2 * time.Second,
		RateLimitJitter:  2 * time.Second,
		ServerErrorDelay: 10 * time.Second,
	}
}

// NewPolicy builds a Policy from cfg. Rate limits get the base delay plus
// randomized jitter, server errors a longer fixed delay, and anything else is
// terminal immediately regardless of the remaining budget.
func NewPolicy(cfg PolicyConfig) Policy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return func(attempt int, kind FailureKind) Decision {
		if kind == KindTerminal || attempt >= cfg.MaxAttempts {
			return Decision{}
		}
		switch kind {
		case KindRateLimited:
			delay := cfg.RateLimitBase
			if cfg.RateLimitJitter > 0 {
				delay += time.Duration(rand.Int63n(int64(cfg.RateLimitJitter)))
			}
			return Decision{Retry: true, Delay: delay}
		default:
			return Decision{Retry: true, Delay: cfg.ServerErrorDelay}
		}
	}
}
