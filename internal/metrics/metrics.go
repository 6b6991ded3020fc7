// Package metrics defines the edge's monotonic request-outcome counters,
// following the teacher's habit (caddy's metrics.go) of a
// promauto-registered counter struct rather than ad-hoc globals.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters tracks the edge's request outcome totals. Increments use plain
// sync/atomic, since these fields only need to be readable outside a lock,
// not linearizable with the Prometheus counters they're mirrored into for
// the admin /metrics surface.
type Counters struct {
	RequestsTotal   uint64
	RequestsSuccess uint64
	RequestsFailure uint64
	BackendTimeouts uint64
	BackendErrors   uint64

	promRequestsTotal   prometheus.Counter
	promRequestsSuccess prometheus.Counter
	promRequestsFailure prometheus.Counter
	promBackendTimeouts prometheus.Counter
	promBackendErrors   prometheus.Counter
}

// New registers and returns a fresh Counters set against reg. Tests and the
// bootstrap package both pass a fresh prometheus.NewRegistry(), which avoids
// cross-test collisions and is the registry the admin /metrics handler
// gathers from.
func New(reg prometheus.Registerer) *Counters {
	factory := promauto.With(reg)
	const ns = "h3edge"
	return &Counters{
		promRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "requests_total", Help: "Total HTTP/3 requests dispatched.",
		}),
		promRequestsSuccess: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "requests_success_total", Help: "Requests that completed with a non-5xx upstream response.",
		}),
		promRequestsFailure: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "requests_failure_total", Help: "Requests answered with a proxy-generated error, a timeout, a transport error, or a 5xx upstream response.",
		}),
		promBackendTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "backend_timeouts_total", Help: "Requests that exceeded the upstream wall-clock timeout.",
		}),
		promBackendErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: "backend_errors_total", Help: "Requests that failed with a non-timeout transport error.",
		}),
	}
}

func (c *Counters) IncRequestsTotal() {
	atomic.AddUint64(&c.RequestsTotal, 1)
	c.promRequestsTotal.Inc()
}

func (c *Counters) IncRequestsSuccess() {
	atomic.AddUint64(&c.RequestsSuccess, 1)
	c.promRequestsSuccess.Inc()
}

func (c *Counters) IncRequestsFailure() {
	atomic.AddUint64(&c.RequestsFailure, 1)
	c.promRequestsFailure.Inc()
}

func (c *Counters) IncBackendTimeouts() {
	atomic.AddUint64(&c.BackendTimeouts, 1)
	c.promBackendTimeouts.Inc()
}

func (c *Counters) IncBackendErrors() {
	atomic.AddUint64(&c.BackendErrors, 1)
	c.promBackendErrors.Inc()
}

// Snapshot is a point-in-time read of all counters, useful for tests and
// status introspection.
type Snapshot struct {
	RequestsTotal   uint64
	RequestsSuccess uint64
	RequestsFailure uint64
	BackendTimeouts uint64
	BackendErrors   uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RequestsTotal:   atomic.LoadUint64(&c.RequestsTotal),
		RequestsSuccess: atomic.LoadUint64(&c.RequestsSuccess),
		RequestsFailure: atomic.LoadUint64(&c.RequestsFailure),
		BackendTimeouts: atomic.LoadUint64(&c.BackendTimeouts),
		BackendErrors:   atomic.LoadUint64(&c.BackendErrors),
	}
}
