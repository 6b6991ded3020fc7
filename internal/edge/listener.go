package edge

import (
	"context"
	"crypto/tls"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quic-go/quic-go"
)

// DefaultDrainTimeout is how long an in-progress drain waits for existing
// connections to finish before forcing them closed.
const DefaultDrainTimeout = 5 * time.Second

// Listener owns the QUIC socket and accepts HTTP/3 connections, dispatching
// each accepted request stream through a Dispatcher. It keeps its own table
// of live connections for accept, per-connection bookkeeping, and draining,
// on top of quic-go's own connection-ID routing and retransmission.
type Listener struct {
	ln         *quic.Listener
	dispatcher *Dispatcher
	log        *zap.Logger

	mu       sync.Mutex
	draining bool
	wg       sync.WaitGroup
	conns    map[*quic.Conn]struct{}
}

// NewListener binds addr (host:port) and configures QUIC v1 over ALPN "h3"
// with the given TLS certificate.
func NewListener(addr string, tlsCert tls.Certificate, d *Dispatcher, log *zap.Logger) (*Listener, error) {
	if log == nil {
		log = zap.NewNop()
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{"h3"},
	}
	quicConf := &quic.Config{
		MaxIdleTimeout:                 5 * time.Second,
		InitialStreamReceiveWindow:     1 << 20,   // 1 MiB per stream
		MaxStreamReceiveWindow:         1 << 20,
		InitialConnectionReceiveWindow: 10 << 20,  // 10 MiB per connection
		MaxConnectionReceiveWindow:     10 << 20,
		MaxIncomingStreams:             100,
		MaxIncomingUniStreams:          100,
	}
	ln, err := quic.ListenAddr(addr, tlsConf, quicConf)
	if err != nil {
		return nil, err
	}
	return &Listener{ln: ln, dispatcher: d, log: log, conns: make(map[*quic.Conn]struct{})}, nil
}

// Run accepts connections until ctx is cancelled or the listener starts
// draining and the accept loop observes a closed listener.
func (l *Listener) Run(ctx context.Context) error {
	for {
		conn, err := l.ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.mu.Lock()
			draining := l.draining
			l.mu.Unlock()
			if draining {
				return nil
			}
			return err
		}

		l.mu.Lock()
		l.conns[conn] = struct{}{}
		l.mu.Unlock()

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			handleConnection(ctx, conn, l.dispatcher, l.log)
			l.mu.Lock()
			delete(l.conns, conn)
			l.mu.Unlock()
		}()
	}
}

// StartDraining stops accepting new connections; Initial packets for
// unknown connection IDs are implicitly dropped once the listener socket is
// closed, since quic-go owns demultiplexing.
func (l *Listener) StartDraining() {
	l.mu.Lock()
	l.draining = true
	l.mu.Unlock()
	_ = l.ln.Close()
}

// DrainComplete blocks until every in-flight connection goroutine has
// returned, or DefaultDrainTimeout elapses, at which point every remaining
// connection is forcibly closed with reason "draining" and cleared from the
// table. It reports whether the drain finished cleanly, i.e. without needing
// the forced close.
func (l *Listener) DrainComplete() bool {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(DefaultDrainTimeout):
		l.forceCloseAll()
		<-done
		return false
	}
}

func (l *Listener) forceCloseAll() {
	l.mu.Lock()
	conns := make([]*quic.Conn, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	for _, c := range conns {
		_ = c.CloseWithError(0, "draining")
	}
}
