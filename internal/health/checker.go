// Package health implements the active health-check loop: one long-lived
// periodic task per (upstream, backend) probing the configured path through
// the same HTTP/2 upstream pool request traffic uses.
package health

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/h3edge/h3edge/internal/lb"
	"github.com/h3edge/h3edge/internal/upstream"
)

// Sender is the subset of *upstream.Pool a Checker needs; an interface so
// tests can stub it.
type Sender interface {
	Send(ctx context.Context, address string, req *http.Request) (*http.Response, error)
}

// Spec configures one backend's checker task.
type Spec struct {
	Index    int // this backend's index within Pool, the mark_success/mark_failure handle
	Address  string
	Path     string
	Interval time.Duration
	Timeout  time.Duration
}

// Checker runs Spec's probe against Pool through Sender until its context is
// cancelled.
type Checker struct {
	spec   Spec
	pool   *lb.Pool
	sender Sender
	log    *zap.Logger
}

func New(spec Spec, pool *lb.Pool, sender Sender, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	if spec.Interval < time.Millisecond {
		spec.Interval = time.Millisecond
	}
	path := spec.Path
	if path == "" {
		path = "/"
	}
	spec.Path = path
	return &Checker{spec: spec, pool: pool, sender: sender, log: log}
}

// Run blocks, probing on Spec.Interval, until ctx is cancelled. The first
// probe fires after one interval has elapsed, matching a plain periodic
// ticker; there is no immediate probe at startup so that a large fleet of
// backends doesn't stampede on boot.
func (c *Checker) Run(ctx context.Context) {
	ticker := time.NewTicker(c.spec.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probeOnce(ctx)
		}
	}
}

func (c *Checker) probeOnce(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, c.spec.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+c.spec.Address+c.spec.Path, nil)
	if err != nil {
		c.log.Error("health check request build failed", zap.String("backend", c.spec.Address), zap.Error(err))
		c.markUnhealthy()
		return
	}

	resp, err := c.sender.Send(ctx, c.spec.Address, req)
	if err != nil {
		c.log.Debug("health check failed", zap.String("backend", c.spec.Address), zap.Error(err))
		c.markUnhealthy()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.markHealthy()
		return
	}
	c.log.Debug("health check non-2xx", zap.String("backend", c.spec.Address), zap.Int("status", resp.StatusCode))
	c.markUnhealthy()
}

func (c *Checker) markHealthy() {
	switch c.pool.MarkSuccess(c.spec.Index) {
	case lb.BecameHealthy:
		c.log.Info("backend became healthy", zap.String("backend", c.spec.Address))
	}
}

func (c *Checker) markUnhealthy() {
	switch c.pool.MarkFailure(c.spec.Index) {
	case lb.BecameUnhealthy:
		c.log.Warn("backend became unhealthy", zap.String("backend", c.spec.Address))
	}
}
