package queue

import (
	"time"

	"tunebind/internal/config"
)

// RetryPolicy computes the delay before a transient failure is retried.
type RetryPolicy struct {
	Backoff    time.Duration
	MaxBackoff time.Duration
}

// RetryPolicyFromConfig reads the [workflow] retry settings.
func RetryPolicyFromConfig(cfg config.Workflow) RetryPolicy {
	return RetryPolicy{
		Backoff:    time.Duration(cfg.RetryBackoffSeconds) * time.Second,
		MaxBackoff: time.Duration(cfg.RetryBackoffMaxSeconds) * time.Second,
	}
}

// Delay returns min(Backoff * 2^(attempts-1), MaxBackoff).
func (p RetryPolicy) Delay(attempts int) time.Duration {
	if p.Backoff <= 0 {
		return 0
	}
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Backoff
	for i := 1; i < attempts; i++ {
		delay *= 2
		if p.MaxBackoff > 0 && delay >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && delay > p.MaxBackoff {
		return p.MaxBackoff
	}
	return delay
}
