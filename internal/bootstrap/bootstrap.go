// Package bootstrap assembles a validated config.Config into a running
// edge process: backend pools, the upstream HTTP/2 pool, the dispatcher,
// active health checkers, the QUIC listener, and the admin HTTP surface.
package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/h3edge/h3edge/internal/admin"
	"github.com/h3edge/h3edge/internal/config"
	"github.com/h3edge/h3edge/internal/edge"
	"github.com/h3edge/h3edge/internal/health"
	"github.com/h3edge/h3edge/internal/lb"
	"github.com/h3edge/h3edge/internal/metrics"
	"github.com/h3edge/h3edge/internal/upstream"
)

// Process holds every long-lived component built from one Config, wired
// together and ready to Run.
type Process struct {
	cfg      *config.Config
	log      *zap.Logger
	listener *edge.Listener
	admin    *admin.Server
	checkers []*health.Checker
}

// Build wires cfg into a Process: one lb.Pool and lb.Policy per upstream,
// a shared upstream.Pool across every backend address, a Dispatcher over
// the flattened route table, one health.Checker per backend that has a
// health_check configured, the QUIC
// Listener, and (unless disabled) the admin server.
func Build(cfg *config.Config, log *zap.Logger) (*Process, error) {
	reg := prometheus.NewRegistry()
	counters := metrics.New(reg)

	addresses := make([]string, 0)
	groups := make(map[string]*edge.UpstreamGroup, len(cfg.Upstreams))
	routeEntries := make([]edge.RouteEntry, 0)

	for name, up := range cfg.Upstreams {
		specs := make([]lb.BackendSpec, len(up.Backends))
		for i, b := range up.Backends {
			spec := lb.BackendSpec{ID: b.ID, Address: b.Address, Weight: b.Weight}
			if b.HealthCheck != nil {
				spec.FailureThreshold = b.HealthCheck.FailureThreshold
				spec.SuccessThreshold = b.HealthCheck.SuccessThreshold
				spec.Cooldown = b.HealthCheck.Cooldown()
			} else {
				spec.FailureThreshold = 1
				spec.SuccessThreshold = 1
			}
			specs[i] = spec
			addresses = append(addresses, b.Address)
		}

		policy, err := lb.NewPolicy(up.Strategy)
		if err != nil {
			return nil, fmt.Errorf("upstream %q: %w", name, err)
		}

		pool := lb.New(specs)
		groups[name] = &edge.UpstreamGroup{Name: name, Pool: pool, Policy: policy}

		if up.Route != nil {
			routeEntries = append(routeEntries, edge.RouteEntry{
				Host: up.Route.Host, PathPrefix: up.Route.PathPrefix, Upstream: name,
			})
		}
	}

	for _, route := range cfg.Routes {
		routeEntries = append(routeEntries, edge.RouteEntry{PathPrefix: route.Path, Upstream: route.Upstream})
	}

	h2Pool := upstream.New(addresses, upstream.Options{Logger: log})

	routes := edge.NewRouteTable(routeEntries)
	dispatcher := edge.NewDispatcher(routes, groups, h2Pool, counters, log)

	cert, err := tls.LoadX509KeyPair(cfg.Listen.TLS.Cert, cfg.Listen.TLS.Key)
	if err != nil {
		return nil, fmt.Errorf("loading TLS certificate: %w", err)
	}

	listenAddr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	listener, err := edge.NewListener(listenAddr, cert, dispatcher, log)
	if err != nil {
		return nil, fmt.Errorf("binding QUIC listener: %w", err)
	}

	checkers := make([]*health.Checker, 0, len(addresses))
	for name, up := range cfg.Upstreams {
		group := groups[name]
		for i, b := range up.Backends {
			if b.HealthCheck == nil {
				continue
			}
			spec := health.Spec{
				Index:    i,
				Address:  b.Address,
				Path:     b.HealthCheck.Path,
				Interval: b.HealthCheck.Interval(),
				Timeout:  b.HealthCheck.Timeout(),
			}
			checkers = append(checkers, health.New(spec, group.Pool, h2Pool, log.Named("health").With(zap.String("upstream", name))))
		}
	}

	var adminServer *admin.Server
	if !cfg.Admin.Disabled {
		adminServer = admin.New(cfg.Admin.Listen, reg, dispatcher)
	}

	return &Process{cfg: cfg, log: log, listener: listener, admin: adminServer, checkers: checkers}, nil
}

// Run blocks, serving the data plane, health checkers, and admin surface
// until ctx is cancelled, at which point it drains the QUIC listener before
// returning.
func (p *Process) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return p.listener.Run(gctx) })

	if p.admin != nil {
		g.Go(func() error { return p.admin.Run(gctx) })
	}

	for _, c := range p.checkers {
		checker := c
		g.Go(func() error {
			checker.Run(gctx)
			return nil
		})
	}

	<-ctx.Done()
	p.listener.StartDraining()
	p.listener.DrainComplete()

	return g.Wait()
}
