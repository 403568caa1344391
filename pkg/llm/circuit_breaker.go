package llm

import (
	"fmt"
	"sync"
	"time"
)

// CircuitState is the breaker's current position.
type CircuitState string

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = "closed"
	// CircuitOpen rejects calls until the cooldown elapses.
	CircuitOpen CircuitState = "open"
	// CircuitHalfOpen has one recovery probe in flight; other calls are rejected.
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker trips after a run of consecutive provider failures and
// stays open for a cooldown period. The first call after the cooldown runs
// as a probe; its outcome closes or re-opens the circuit.
type CircuitBreaker struct {
	mu          sync.Mutex
	threshold   int
	cooldown    time.Duration
	failures    int
	lastFailure time.Time
	state       CircuitState
}

// NewCircuitBreaker creates a closed breaker. A threshold below 1 defaults
// to 5 consecutive failures; a non-positive cooldown defaults to 30 seconds.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		state:     CircuitClosed,
	}
}

// Allow reports whether a call may proceed. When the cooldown has elapsed
// on an open circuit, the calling request becomes the recovery probe.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true, nil
	case CircuitOpen:
		if time.Since(cb.lastFailure) > cb.cooldown {
			cb.state = CircuitHalfOpen
			return true, nil
		}
		return false, fmt.Errorf("circuit open after %d consecutive failures, last %s ago",
			cb.failures, time.Since(cb.lastFailure).Round(time.Second))
	case CircuitHalfOpen:
		return false, fmt.Errorf("circuit half-open, recovery probe in flight")
	default:
		return false, fmt.Errorf("circuit in unknown state %q", cb.state)
	}
}

// RecordSuccess closes the circuit and clears the failure run.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.state = CircuitClosed
}

// RecordFailure extends the failure run. A failed probe re-opens the
// circuit immediately; a run reaching the threshold trips it.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == CircuitHalfOpen || cb.failures >= cb.threshold {
		cb.state = CircuitOpen
	}
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the length of the current consecutive-failure run.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}
