package edge

import (
	"bufio"
	"fmt"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// HTTP/3 frame and unidirectional stream types this engine understands
// (RFC 9114 §7.2, §6.2). Only the frames the request/response path and
// minimal control stream need are implemented; push and extension frames are
// out of scope.
const (
	frameTypeData    = 0x0
	frameTypeHeaders = 0x1
	frameTypeSettings = 0x4

	streamTypeControl      = 0x0
	streamTypeQPACKEncoder = 0x2
	streamTypeQPACKDecoder = 0x3
)

type frame struct {
	typ     uint64
	payload []byte
}

// readFrame reads one length-prefixed HTTP/3 frame from r (RFC 9114 §7.1:
// Type(varint) Length(varint) Payload(Length bytes)).
func readFrame(r *bufio.Reader) (frame, error) {
	typ, err := quicvarint.Read(r)
	if err != nil {
		return frame{}, err
	}
	length, err := quicvarint.Read(r)
	if err != nil {
		return frame{}, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return frame{}, fmt.Errorf("short frame payload: %w", err)
	}
	return frame{typ: typ, payload: payload}, nil
}

// writeFrame appends one length-prefixed HTTP/3 frame to w.
func writeFrame(w io.Writer, typ uint64, payload []byte) error {
	buf := quicvarint.Append(nil, typ)
	buf = quicvarint.Append(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// settingsFrame is the empty SETTINGS frame this engine advertises on every
// connection's control stream: no extension settings, no server push, no
// QPACK dynamic table.
func settingsFrame() []byte {
	buf := quicvarint.Append(nil, frameTypeSettings)
	buf = quicvarint.Append(buf, 0)
	return buf
}
