package transport

import (
	"sync"
	"time"
)

// DefaultMaxReconnectAttempts caps consecutive streaming reconnect attempts
// before the channel is disabled for the rest of the process.
const DefaultMaxReconnectAttempts = 5

// Delay returns the backoff before the nth reconnect attempt: 2^(n-1)
// seconds. No jitter, so tests can assert the exact schedule.
func Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// Reconnector tracks consecutive streaming-channel connection failures and
// computes the delay before each retry. Once the attempt cap is reached the
// channel is disabled permanently; degradation to the REST transport is
// one-way for the process lifetime.
type Reconnector struct {
	mu       sync.Mutex
	max      int
	attempt  int
	disabled bool
}

// NewReconnector returns a Reconnector capped at max attempts. A max of 0
// uses DefaultMaxReconnectAttempts.
func NewReconnector(max int) *Reconnector {
	if max <= 0 {
		max = DefaultMaxReconnectAttempts
	}
	return &Reconnector{max: max}
}

// Next records a failure and returns the delay before the next attempt.
// ok is false once the cap is exhausted; from then on Next never permits
// another attempt.
func (r *Reconnector) Next() (delay time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return 0, false
	}
	if r.attempt >= r.max {
		r.disabled = true
		return 0, false
	}
	r.attempt++
	return Delay(r.attempt), true
}

// Reset clears the failure counter after a successful connect. It does not
// re-enable a Reconnector that has already exhausted its attempts.
func (r *Reconnector) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.disabled {
		r.attempt = 0
	}
}

// Disabled reports whether reconnection has been permanently given up.
func (r *Reconnector) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Attempt returns the current consecutive-failure count.
func (r *Reconnector) Attempt() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempt
}
