package resilience

import (
	"sync"
	"time"
)

// CircuitState is the breaker's current mode
type CircuitState int

const (
	// CircuitClosed lets requests through normally.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests immediately.
	CircuitOpen
	// CircuitHalfOpen allows a single trial request.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitConfig configures the rolling-window breaker.
type CircuitConfig struct {
	// FailureThreshold is the number of failures within Window that opens
	// the circuit.
	FailureThreshold int

	// Window is the rolling period failures are counted over.
	Window time.Duration

	// OpenFor is how long the circuit stays open before allowing one
	// half-open trial.
	OpenFor time.Duration
}

// DefaultCircuitConfig returns the standard policy: 5 failures within 60s
// opens the circuit for 30s.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{
		FailureThreshold: 5,
		Window:           60 * time.Second,
		OpenFor:          30 * time.Second,
	}
}

// circuitNow is injectable for tests.
var circuitNow = time.Now

// CircuitBreaker tracks failures against one external service in a rolling
// window. Safe for concurrent use.
type CircuitBreaker struct {
	cfg CircuitConfig

	mu          sync.Mutex
	state       CircuitState
	failures    []time.Time
	lastFailure time.Time
	openedAt    time.Time
	trialActive bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg = DefaultCircuitConfig()
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed}
}

// Allow reports whether a request may proceed, advancing time-driven state
// transitions as a side effect. In half-open state only one trial call is
// admitted until it reports success or failure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := circuitNow()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(cb.openedAt) >= cb.cfg.OpenFor {
			cb.state = CircuitHalfOpen
			cb.trialActive = true
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.trialActive {
			return false
		}
		cb.trialActive = true
		return true
	}
	return false
}

// RecordSuccess clears failure history; a half-open trial success closes
// the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = cb.failures[:0]
	cb.trialActive = false
	cb.state = CircuitClosed
}

// RecordFailure adds a failure to the rolling window. Reaching the
// threshold, or failing a half-open trial, opens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := circuitNow()
	cb.lastFailure = now

	if cb.state == CircuitHalfOpen {
		cb.open(now)
		return
	}

	cb.failures = append(cb.failures, now)
	cb.prune(now)
	if len(cb.failures) >= cb.cfg.FailureThreshold {
		cb.open(now)
	}
}

// State returns the current state, applying any due time-driven
// transition first.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && circuitNow().Sub(cb.openedAt) >= cb.cfg.OpenFor {
		cb.state = CircuitHalfOpen
		cb.trialActive = false
	}
	return cb.state
}

// IsOpen reports whether calls would currently be rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == CircuitOpen
}

// Snapshot returns the breaker's observable state for diagnostics.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitSnapshot{
		State:        cb.state,
		FailureCount: len(cb.failures),
		LastFailure:  cb.lastFailure,
		OpenedAt:     cb.openedAt,
	}
}

// open must be called with the lock held.
func (cb *CircuitBreaker) open(now time.Time) {
	cb.state = CircuitOpen
	cb.openedAt = now
	cb.failures = cb.failures[:0]
	cb.trialActive = false
}

// prune drops failures older than the rolling window. Must be called with
// the lock held.
func (cb *CircuitBreaker) prune(now time.Time) {
	cutoff := now.Add(-cb.cfg.Window)
	i := 0
	for i < len(cb.failures) && cb.failures[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		cb.failures = append(cb.failures[:0], cb.failures[i:]...)
	}
}

// CircuitSnapshot is a point-in-time view of a breaker.
type CircuitSnapshot struct {
	State        CircuitState
	FailureCount int
	LastFailure  time.Time
	OpenedAt     time.Time
}
