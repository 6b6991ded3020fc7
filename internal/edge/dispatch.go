package edge

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/h3edge/h3edge/internal/bridge"
	"github.com/h3edge/h3edge/internal/lb"
	"github.com/h3edge/h3edge/internal/metrics"
)

// DefaultUpstreamTimeout is the wall-clock budget for a single backend send.
const DefaultUpstreamTimeout = 2 * time.Second

// Sender is the subset of *upstream.Pool the dispatcher needs.
type Sender interface {
	Send(ctx context.Context, address string, req *http.Request) (*http.Response, error)
}

// UpstreamGroup pairs one named upstream's backend pool with its resolved
// selection policy. Per-upstream strategy is authoritative over the
// top-level default; that resolution happens in the caller, before this is
// constructed.
type UpstreamGroup struct {
	Name   string
	Pool   *lb.Pool
	Policy lb.Policy
}

// Dispatcher implements the per-request decision table -- route resolution,
// backend selection, bridging, upstream send -- independent of any
// particular wire transport so it can be exercised directly from tests.
type Dispatcher struct {
	routes  *RouteTable
	groups  map[string]*UpstreamGroup
	sender  Sender
	metrics *metrics.Counters
	log     *zap.Logger
	timeout time.Duration
}

func NewDispatcher(routes *RouteTable, groups map[string]*UpstreamGroup, sender Sender, m *metrics.Counters, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		routes:  routes,
		groups:  groups,
		sender:  sender,
		metrics: m,
		log:     log,
		timeout: DefaultUpstreamTimeout,
	}
}

// Dispatch runs one request envelope through route resolution, backend
// selection, bridging and upstream send, and always returns a
// ResponseEnvelope -- there is no error return, since every failure mode has
// a defined status-code response.
func (d *Dispatcher) Dispatch(ctx context.Context, env RequestEnvelope) ResponseEnvelope {
	if d.metrics != nil {
		d.metrics.IncRequestsTotal()
	}

	if env.Method == "" || env.Path == "" {
		return d.fail(newResponse(http.StatusBadRequest, "invalid request"))
	}

	upstreamName, ok := d.routes.Resolve(env.Authority, env.Path)
	if !ok {
		return d.fail(newResponse(http.StatusInternalServerError, "no matching route"))
	}

	group, ok := d.groups[upstreamName]
	if !ok || group.Pool.Len() == 0 {
		return d.fail(newResponse(http.StatusServiceUnavailable, "no servers configured"))
	}

	key := hashKey(env)
	index, ok := group.Policy.Pick(key, group.Pool)
	if !ok {
		return d.fail(newResponse(http.StatusServiceUnavailable, "no healthy servers"))
	}

	address, ok := group.Pool.Address(index)
	if !ok {
		return d.fail(newResponse(http.StatusServiceUnavailable, "invalid server"))
	}

	req, err := bridge.Build(address, env.Method, env.Path, env.Headers, env.Body)
	if err != nil {
		group.Pool.MarkFailure(index)
		return d.fail(newResponse(http.StatusBadRequest, "bad gateway request"))
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.sender.Send(sendCtx, address, req)
	if err != nil {
		group.Pool.MarkFailure(index)
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			if d.metrics != nil {
				d.metrics.IncBackendTimeouts()
			}
			return d.fail(newResponse(http.StatusServiceUnavailable, "upstream timeout"))
		}
		if d.metrics != nil {
			d.metrics.IncBackendErrors()
		}
		return d.fail(newResponse(http.StatusBadGateway, "upstream error"))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		group.Pool.MarkFailure(index)
	} else {
		group.Pool.MarkSuccess(index)
	}

	body, err := collectBody(resp)
	if err != nil {
		group.Pool.MarkFailure(index)
		if d.metrics != nil {
			d.metrics.IncBackendErrors()
		}
		return d.fail(newResponse(http.StatusBadGateway, "upstream error"))
	}

	d.log.Debug("dispatched",
		zap.String("upstream", upstreamName),
		zap.String("backend", address),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	headers := responseHeaders(resp)
	out := ResponseEnvelope{Status: resp.StatusCode, Headers: headers, Body: body}
	if resp.StatusCode < 500 {
		if d.metrics != nil {
			d.metrics.IncRequestsSuccess()
		}
	} else if d.metrics != nil {
		d.metrics.IncRequestsFailure()
	}
	return out
}

// Healthy reports whether every configured upstream currently has at least
// one healthy backend; the admin /healthz endpoint uses this as its
// process-level readiness signal.
func (d *Dispatcher) Healthy() bool {
	for _, group := range d.groups {
		if len(group.Pool.HealthyIndices()) == 0 {
			return false
		}
	}
	return true
}

func (d *Dispatcher) fail(resp ResponseEnvelope) ResponseEnvelope {
	if d.metrics != nil {
		d.metrics.IncRequestsFailure()
	}
	return resp
}

// hashKey computes the load-balancer selection key: authority if present,
// else path if non-empty, else method.
func hashKey(env RequestEnvelope) string {
	if env.Authority != "" {
		return env.Authority
	}
	if env.Path != "" {
		return env.Path
	}
	return env.Method
}

// responseHeaders strips hop-by-hop headers and any inbound Content-Length
// from the upstream response; the stream writer recomputes Content-Length
// from the collected body.
func responseHeaders(resp *http.Response) []bridge.Header {
	headers := make([]bridge.Header, 0, len(resp.Header))
	for name, values := range resp.Header {
		if name == "Content-Length" {
			continue
		}
		for _, v := range values {
			headers = append(headers, bridge.Header{Name: name, Value: v})
		}
	}
	return bridge.FilterHopByHop(headers)
}
