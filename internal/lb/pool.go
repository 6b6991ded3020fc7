// Package lb implements the backend pool, health-state machine, and the
// selection strategies a Dispatcher picks a backend with.
package lb

import (
	"sync"
	"time"
)

// Transition is a one-shot health-state-crossing signal used for logging.
type Transition int

const (
	// NoTransition means the mark call did not cross the healthy/unhealthy
	// boundary.
	NoTransition Transition = iota
	BecameHealthy
	BecameUnhealthy
)

// BackendSpec is the immutable descriptor a Pool is built from.
type BackendSpec struct {
	ID      string
	Address string
	Weight  int

	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

type healthState struct {
	healthy bool

	// valid only while !healthy
	until     time.Time
	successes int
}

type backendState struct {
	spec                BackendSpec
	consecutiveFailures int
	health              healthState
}

// Pool is a mutable, ordered collection of backend states. The stable index
// of a backend within the pool is its selection handle.
type Pool struct {
	mu       sync.Mutex
	backends []*backendState
	now      func() time.Time
}

// New builds a Pool from the given specs, in declaration order, all starting
// Healthy with a zero failure count.
func New(specs []BackendSpec) *Pool {
	backends := make([]*backendState, len(specs))
	for i, spec := range specs {
		backends[i] = &backendState{
			spec:   spec,
			health: healthState{healthy: true},
		}
	}
	return &Pool{backends: backends, now: time.Now}
}

// Len reports the number of backends, including unhealthy ones.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.backends)
}

// Address returns the address of the backend at index i.
func (p *Pool) Address(i int) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.backends) {
		return "", false
	}
	return p.backends[i].spec.Address, true
}

// Spec returns the immutable descriptor of the backend at index i.
func (p *Pool) Spec(i int) (BackendSpec, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.backends) {
		return BackendSpec{}, false
	}
	return p.backends[i].spec, true
}

// HealthyIndices returns a stable, ascending list of indices currently
// considered Healthy.
func (p *Pool) HealthyIndices() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	indices := make([]int, 0, len(p.backends))
	for i, b := range p.backends {
		if p.isHealthyLocked(b, now) {
			indices = append(indices, i)
		}
	}
	return indices
}

// isHealthyLocked reports the current Healthy/Unhealthy state. Reaching the
// cooldown deadline alone does not make a backend healthy again: only
// success_threshold consecutive probe successes after the deadline do
// (see MarkSuccess).
func (p *Pool) isHealthyLocked(b *backendState, _ time.Time) bool {
	return b.health.healthy
}

// MarkSuccess records a successful outcome for backend i. An unhealthy
// backend only becomes healthy again after SuccessThreshold consecutive
// successes, all observed at or after its cooldown deadline.
func (p *Pool) MarkSuccess(i int) Transition {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.backends) {
		return NoTransition
	}
	b := p.backends[i]
	now := p.now()

	if b.health.healthy {
		b.consecutiveFailures = 0
		return NoTransition
	}

	if now.Before(b.health.until) {
		return NoTransition
	}

	b.health.successes++
	if b.health.successes >= b.spec.SuccessThreshold {
		b.health.healthy = true
		b.health.successes = 0
		b.health.until = time.Time{}
		b.consecutiveFailures = 0
		return BecameHealthy
	}
	return NoTransition
}

// MarkFailure records a failed outcome for backend i.
func (p *Pool) MarkFailure(i int) Transition {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i < 0 || i >= len(p.backends) {
		return NoTransition
	}
	b := p.backends[i]

	if !b.health.healthy {
		// a failure breaks the run of recovery successes
		b.health.successes = 0
		return NoTransition
	}

	b.consecutiveFailures++
	if b.consecutiveFailures < b.spec.FailureThreshold {
		return NoTransition
	}

	b.consecutiveFailures = 0
	b.health.healthy = false
	b.health.until = p.now().Add(b.spec.Cooldown)
	b.health.successes = 0
	return BecameUnhealthy
}
