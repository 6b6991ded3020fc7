package edge

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/h3edge/h3edge/internal/lb"
	"github.com/h3edge/h3edge/internal/metrics"
	"github.com/h3edge/h3edge/internal/upstream"

	"github.com/prometheus/client_golang/prometheus"
)

// h2cEchoServer starts a prior-knowledge-cleartext HTTP/2 test server
// answering every request with status 200 and body "ok", the same backend
// shape scenario 1 of spec.md §8 describes.
func h2cEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := httptest.NewUnstartedServer(h2c.NewHandler(handler, &http2.Server{}))
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func newDispatcherFixture(t *testing.T, addresses []string, routes []RouteEntry, strategy string) *Dispatcher {
	t.Helper()
	specs := make([]lb.BackendSpec, len(addresses))
	for i, addr := range addresses {
		specs[i] = lb.BackendSpec{
			ID: addr, Address: addr, Weight: 1,
			FailureThreshold: 1, SuccessThreshold: 1, Cooldown: time.Millisecond,
		}
	}
	pool := lb.New(specs)
	policy, err := lb.NewPolicy(strategy)
	require.NoError(t, err)

	sender := upstream.New(addresses, upstream.Options{Logger: zap.NewNop()})
	m := metrics.New(prometheus.NewRegistry())

	groups := map[string]*UpstreamGroup{
		"primary": {Name: "primary", Pool: pool, Policy: policy},
	}
	return NewDispatcher(NewRouteTable(routes), groups, sender, m, zap.NewNop())
}

func addrOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestDispatchHappyPath(t *testing.T) {
	srv := h2cEchoServer(t)
	d := newDispatcherFixture(t, []string{addrOf(srv)}, []RouteEntry{{PathPrefix: "/", Upstream: "primary"}}, "round-robin")

	resp := d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/"})
	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "ok", string(resp.Body))
}

func TestDispatchUnknownRoute(t *testing.T) {
	srvA := h2cEchoServer(t)
	srvB := h2cEchoServer(t)
	d := newDispatcherFixture(t, []string{addrOf(srvA)}, nil, "round-robin")
	d.groups["b"] = &UpstreamGroup{Name: "b", Pool: lb.New([]lb.BackendSpec{{ID: "b", Address: addrOf(srvB), Weight: 1, FailureThreshold: 1, SuccessThreshold: 1}}), Policy: lb.NewRoundRobin()}
	d.routes = NewRouteTable([]RouteEntry{
		{PathPrefix: "/a", Upstream: "primary"},
		{PathPrefix: "/b", Upstream: "b"},
	})

	resp := d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/c"})
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
}

func TestDispatchInvalidRequest(t *testing.T) {
	d := newDispatcherFixture(t, nil, nil, "round-robin")
	resp := d.Dispatch(context.Background(), RequestEnvelope{Method: "", Path: ""})
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestDispatchNoServersConfigured(t *testing.T) {
	d := newDispatcherFixture(t, nil, []RouteEntry{{Upstream: "primary"}}, "round-robin")
	resp := d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestDispatchNoHealthyBackendAfterRepeatedFailures(t *testing.T) {
	// an unbound port: connections will always fail fast
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close()) // close immediately: nothing is listening now

	d := newDispatcherFixture(t, []string{addr}, []RouteEntry{{Upstream: "primary"}}, "round-robin")

	var last ResponseEnvelope
	for i := 0; i < 3; i++ {
		last = d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/"})
		assert.True(t, last.Status == http.StatusBadGateway || last.Status == http.StatusServiceUnavailable, "status was %d", last.Status)
	}

	fourth := d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/"})
	assert.Equal(t, http.StatusServiceUnavailable, fourth.Status)
}

func TestDispatchStripsHopByHopResponseHeaders(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Custom", "value")
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewUnstartedServer(h2c.NewHandler(handler, &http2.Server{}))
	srv.Start()
	t.Cleanup(srv.Close)

	d := newDispatcherFixture(t, []string{addrOf(srv)}, []RouteEntry{{Upstream: "primary"}}, "round-robin")
	resp := d.Dispatch(context.Background(), RequestEnvelope{Method: http.MethodGet, Path: "/"})

	for _, h := range resp.Headers {
		assert.NotEqual(t, "Connection", h.Name)
	}
}
