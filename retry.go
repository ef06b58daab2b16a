package echo

import "time"

// RetryBuilder assembles the RetryPolicy a Processor applies when its
// worker fails to execute an action. Each method returns a new builder.
type RetryBuilder struct {
	policy RetryPolicy
}

// Retry starts a policy that dispatches each action at most attempts
// times, counting the first dispatch. Values below one mean a single
// dispatch and no retries.
func Retry(attempts int) RetryBuilder {
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: max(attempts, 1)}}
}

// WithExponentialBackoff waits initial before the first redispatch and
// grows the wait by factor after every further failure, up to limit. A
// factor <= 0 means doubling; a limit <= 0 leaves the wait unbounded.
//
//	Retry(4).WithExponentialBackoff(50*time.Millisecond, 2, time.Second)
func (r RetryBuilder) WithExponentialBackoff(initial time.Duration, factor float64, limit time.Duration) RetryBuilder {
	if factor <= 0 {
		factor = 2
	}
	r.policy.InitialBackoff = initial
	r.policy.BackoffMultiplier = factor
	r.policy.MaxBackoff = limit
	return r
}

// WithConstantBackoff waits the same delay before every redispatch.
func (r RetryBuilder) WithConstantBackoff(delay time.Duration) RetryBuilder {
	r.policy.InitialBackoff = delay
	r.policy.BackoffMultiplier = 1
	r.policy.MaxBackoff = 0
	return r
}

// WithJitter spreads redispatches of failing actions by adding up to jitter
// to each wait. The waits seen by one action still never shrink.
func (r RetryBuilder) WithJitter(jitter time.Duration) RetryBuilder {
	r.policy.Jitter = max(jitter, 0)
	return r
}

// Immediate redispatches failed actions without waiting.
func (r RetryBuilder) Immediate() RetryBuilder {
	return RetryBuilder{policy: RetryPolicy{MaxAttempts: r.policy.MaxAttempts}}
}

// Policy returns the built policy, ready for WithRetryPolicy or a
// processor Config.
func (r RetryBuilder) Policy() RetryPolicy {
	return r.policy
}
