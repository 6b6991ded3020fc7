package edge

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/quicvarint"
)

// handleConnection is the per-connection goroutine: it opens this engine's
// own control stream, drains the peer's unidirectional streams (control and
// QPACK instruction streams this engine never needs to act on, since it
// encodes with the static table only), and spawns one envelope goroutine
// per accepted request stream.
func handleConnection(ctx context.Context, conn *quic.Conn, d *Dispatcher, log *zap.Logger) {
	if err := openControlStream(conn); err != nil {
		log.Warn("failed to open control stream", zap.Error(err))
		return
	}

	go drainPeerUniStreams(ctx, conn, log)

	for {
		stream, err := conn.AcceptStream(ctx)
		if err != nil {
			return
		}
		go handleStream(ctx, stream, d, log)
	}
}

// openControlStream opens this side's HTTP/3 control stream and sends the
// empty SETTINGS frame real HTTP/3 clients expect before issuing requests.
func openControlStream(conn *quic.Conn) error {
	stream, err := conn.OpenUniStream()
	if err != nil {
		return err
	}
	buf := quicvarint.Append(nil, streamTypeControl)
	buf = append(buf, settingsFrame()...)
	_, err = stream.Write(buf)
	return err
}

// drainPeerUniStreams accepts and discards the peer's unidirectional
// streams. This engine never references a QPACK dynamic table (encodeHeaders
// always emits a zero Required-Insert-Count/Delta-Base prefix), so there is
// nothing to act on in the peer's encoder/decoder instruction streams beyond
// keeping their flow-control windows open.
func drainPeerUniStreams(ctx context.Context, conn *quic.Conn, log *zap.Logger) {
	for {
		stream, err := conn.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		go func(s *quic.ReceiveStream) {
			if _, err := io.Copy(io.Discard, s); err != nil {
				log.Debug("peer uni stream closed", zap.Error(err))
			}
		}(stream)
	}
}
