package edge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/h3edge/h3edge/internal/bridge"
)

// requestStream is the subset of *quic.Stream the envelope goroutine needs;
// an interface so tests can drive it with an in-memory pipe instead of a
// real QUIC connection.
type requestStream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// handleStream is the envelope goroutine body: it owns stream s end to end,
// from its first HEADERS frame through dispatch to writing and closing the
// response, so ordering on this stream-id is always serialized.
func handleStream(ctx context.Context, s requestStream, d *Dispatcher, log *zap.Logger) {
	defer s.Close()

	r := bufio.NewReader(s)
	var headers []byte
	var body []byte

	for headers == nil {
		f, err := readFrame(r)
		if err != nil {
			log.Debug("stream closed before headers", zap.Error(err))
			return
		}
		switch f.typ {
		case frameTypeHeaders:
			headers = f.payload
		case frameTypeData:
			// a DATA frame arriving before HEADERS is a protocol error on a
			// real HTTP/3 peer; this engine just drops it rather than
			// tearing down the whole connection over one bad stream.
			continue
		default:
			continue
		}
	}

	for {
		f, err := readFrame(r)
		if errors.Is(err, io.EOF) {
			break // EOF: request body complete (fin received)
		}
		if err != nil {
			// a reset or truncated stream: drop the request, no response
			log.Debug("stream ended before fin", zap.Error(err))
			return
		}
		if f.typ == frameTypeData {
			body = append(body, f.payload...)
		}
	}

	decoded, err := decodeHeaders(headers)
	if err != nil {
		log.Warn("qpack decode failed", zap.Error(err))
		writeResponse(s, ResponseEnvelope{Status: 400, Body: []byte("invalid request")})
		return
	}

	env := buildEnvelope(decoded, body, time.Now())
	resp := d.Dispatch(ctx, env)
	if err := writeResponse(s, resp); err != nil {
		log.Debug("write response failed", zap.Error(err))
	}
}

// writeResponse emits the HEADERS (with :status) then DATA frame of a
// response: a :status pseudo-header, every response header but
// Content-Length (already filtered by the dispatcher), then a fresh
// Content-Length computed from the collected body.
func writeResponse(s requestStream, resp ResponseEnvelope) error {
	status := resp.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	headers := make([]bridge.Header, 0, len(resp.Headers)+2)
	headers = append(headers, bridge.Header{Name: ":status", Value: fmt.Sprintf("%d", status)})
	headers = append(headers, resp.Headers...)
	headers = append(headers, bridge.Header{Name: "content-length", Value: fmt.Sprintf("%d", len(resp.Body))})

	payload, err := encodeHeaders(headers)
	if err != nil {
		return err
	}
	if err := writeFrame(s, frameTypeHeaders, payload); err != nil {
		return err
	}
	return writeFrame(s, frameTypeData, resp.Body)
}
