// Package upstream implements a bounded HTTP/2 client pool: one
// prior-knowledge cleartext HTTP/2 client per backend address, each guarded
// by a semaphore bounding in-flight requests.
package upstream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxInflight is the default per-backend in-flight bound.
const DefaultMaxInflight = 64

// ErrorKind classifies a pool-level send failure.
type ErrorKind int

const (
	UnknownBackend ErrorKind = iota
	SendFailed
)

// Error wraps a pool failure with its classification.
type Error struct {
	Kind    ErrorKind
	Backend string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == UnknownBackend {
		return fmt.Sprintf("unknown backend: %s", e.Backend)
	}
	return fmt.Sprintf("send to %s failed: %v", e.Backend, e.Err)
}
func (e *Error) Unwrap() error { return e.Err }

type backendHandle struct {
	client   *http.Client
	inflight *semaphore.Weighted
}

// Pool is an immutable-after-construction map from backend address to a
// reusable HTTP/2 client plus its in-flight semaphore; the per-backend
// semaphore is the only point of contention once built.
type Pool struct {
	backends map[string]*backendHandle
	log      *zap.Logger
}

// Options configures Pool construction.
type Options struct {
	MaxInflight int
	DialTimeout time.Duration
	Logger      *zap.Logger
}

// New builds a Pool with one HTTP/2 client per address in addresses.
func New(addresses []string, opts Options) *Pool {
	if opts.MaxInflight < 1 {
		opts.MaxInflight = DefaultMaxInflight
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	backends := make(map[string]*backendHandle, len(addresses))
	for _, addr := range addresses {
		backends[addr] = &backendHandle{
			client:   newH2Client(addr, opts.DialTimeout),
			inflight: semaphore.NewWeighted(int64(opts.MaxInflight)),
		}
	}
	return &Pool{backends: backends, log: opts.Logger}
}

// newH2Client builds a prior-knowledge, cleartext HTTP/2 client: no TLS
// handshake, no ALPN negotiation, just an HTTP/2 connection preface over a
// plain TCP dial.
func newH2Client(addr string, dialTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: dialTimeout}
	transport := &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, _ string, _ *tls.Config) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
	return &http.Client{Transport: transport}
}

// HasBackend reports whether address is a known backend.
func (p *Pool) HasBackend(address string) bool {
	_, ok := p.backends[address]
	return ok
}

// Send dispatches req to the named backend, awaiting an in-flight permit
// first. The permit is released on every outcome. Concurrent callers for the
// same address are serialized to at most MaxInflight in flight; different
// addresses are fully independent.
func (p *Pool) Send(ctx context.Context, address string, req *http.Request) (*http.Response, error) {
	handle, ok := p.backends[address]
	if !ok {
		return nil, &Error{Kind: UnknownBackend, Backend: address}
	}

	if err := handle.inflight.Acquire(ctx, 1); err != nil {
		return nil, &Error{Kind: SendFailed, Backend: address, Err: err}
	}
	defer handle.inflight.Release(1)

	start := time.Now()
	resp, err := handle.client.Do(req.WithContext(ctx))
	if err != nil {
		p.log.Warn("upstream send failed", zap.String("backend", address), zap.Error(err))
		return nil, &Error{Kind: SendFailed, Backend: address, Err: err}
	}

	p.log.Debug("upstream send ok",
		zap.String("backend", address),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp, nil
}
