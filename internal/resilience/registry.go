package resilience

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry owns the process-local resilience state: one circuit breaker
// per external service and the in-flight deduplication group. It is
// constructed explicitly and injected into the orchestrator rather than
// living in package globals, so tests get fresh instances. A multi-instance
// deployment would replace this with a shared store behind the same
// methods.
type Registry struct {
	retryCfg   RetryConfig
	circuitCfg CircuitConfig

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker

	flight singleflight.Group
}

// NewRegistry creates a registry with the given retry and circuit policies.
func NewRegistry(retryCfg RetryConfig, circuitCfg CircuitConfig) *Registry {
	return &Registry{
		retryCfg:   retryCfg,
		circuitCfg: circuitCfg,
		breakers:   make(map[string]*CircuitBreaker),
	}
}

// Breaker returns the circuit breaker for a named service, creating it on
// first use.
func (r *Registry) Breaker(service string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[service]
	if !ok {
		cb = NewCircuitBreaker(r.circuitCfg)
		r.breakers[service] = cb
	}
	return cb
}

// Call runs fn against a named service with circuit breaking and retry.
// An open circuit fast-fails with ErrCircuitOpen before fn runs.
func (r *Registry) Call(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	cb := r.Breaker(service)

	return Retry(ctx, r.retryCfg, func(ctx context.Context) error {
		if !cb.Allow() {
			return ErrCircuitOpen
		}
		err := fn(ctx)
		if err == nil {
			cb.RecordSuccess()
			return nil
		}
		// Only infrastructure failures count against the breaker;
		// definitive negative results are normal responses.
		if IsRetryable(err) {
			cb.RecordFailure()
		}
		return err
	})
}

// Do deduplicates concurrent executions by key: while a run for key is in
// flight, additional callers wait for and share its result instead of
// starting a duplicate run.
func (r *Registry) Do(key string, fn func() (interface{}, error)) (interface{}, error, bool) {
	v, err, shared := r.flight.Do(key, fn)
	return v, err, shared
}
