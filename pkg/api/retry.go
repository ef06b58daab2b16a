package api

import (
	"math/rand/v2"
	"time"

	"github.com/petrijr/echo/pkg/config"
)

// RetryPolicy controls how a processor re-dispatches a failed action.
type RetryPolicy struct {
	// MaxAttempts is the total number of dispatches, including the first.
	// Values <= 0 are treated as 1.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry. Zero retries
	// immediately.
	InitialBackoff time.Duration

	// BackoffMultiplier grows the delay after each retry (default 2.0 if <= 0).
	BackoffMultiplier float64

	// MaxBackoff caps the delay; 0 means no cap.
	MaxBackoff time.Duration

	// Jitter adds a random extra delay in [0, Jitter) to each retry.
	Jitter time.Duration
}

// Defaults used when configuration does not override them.
const (
	DefaultMaxRetries        = 3
	DefaultRetryBaseDelay    = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// PolicyFromConfig reads the retry keys from r. max_retries counts retries,
// so the resulting policy makes max_retries+1 attempts.
func PolicyFromConfig(r config.Reader) RetryPolicy {
	retries := config.Int(r, config.KeyMaxRetries, DefaultMaxRetries)
	if retries < 0 {
		retries = 0
	}
	return RetryPolicy{
		MaxAttempts:       retries + 1,
		InitialBackoff:    config.Duration(r, config.KeyRetryBaseDelay, DefaultRetryBaseDelay),
		BackoffMultiplier: config.Float(r, config.KeyRetryMult, DefaultBackoffMultiplier),
		MaxBackoff:        config.Duration(r, config.KeyRetryMaxDelay, 0),
		Jitter:            config.Duration(r, config.KeyRetryJitter, 0),
	}
}

// Attempts returns the effective number of attempts.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// Backoff returns a fresh delay sequence for one action.
func (p RetryPolicy) Backoff() *Backoff {
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = DefaultBackoffMultiplier
	}
	return &Backoff{policy: p, next: p.InitialBackoff, multiplier: mult}
}

// Backoff yields the delays between successive attempts. The sequence is
// non-decreasing, including when jitter is configured.
type Backoff struct {
	policy     RetryPolicy
	next       time.Duration
	multiplier float64
	last       time.Duration
}

// Next returns the delay to wait before the next retry.
func (b *Backoff) Next() time.Duration {
	delay := b.next
	if b.policy.MaxBackoff > 0 && delay > b.policy.MaxBackoff {
		delay = b.policy.MaxBackoff
	}
	if b.policy.Jitter > 0 {
		delay += rand.N(b.policy.Jitter)
	}
	if delay < b.last {
		delay = b.last
	}
	b.last = delay

	grown := time.Duration(float64(b.next) * b.multiplier)
	if b.multiplier < 1 || grown < b.next {
		grown = b.next
	}
	if b.policy.MaxBackoff > 0 && grown > b.policy.MaxBackoff {
		grown = b.policy.MaxBackoff
	}
	b.next = grown
	return delay
}
