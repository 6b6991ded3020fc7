package edge

import (
	"bytes"

	"github.com/quic-go/qpack"

	"github.com/h3edge/h3edge/internal/bridge"
)

// decodeHeaders decodes a HEADERS frame payload into the wire-order header
// list bridge.Build expects, including pseudo-headers. Only the static
// table and literal-with-no-name-reference representations are ever
// produced by this engine's own encoder, so a one-shot, no-dynamic-table
// decode (the same DecodeFull quic-go's own http3 package uses internally)
// is sufficient -- no peer is ever given a dynamic table to reference,
// since this engine never sends Encoder-stream instructions.
func decodeHeaders(payload []byte) ([]bridge.Header, error) {
	decoder := qpack.NewDecoder(nil)
	fields, err := decoder.DecodeFull(payload)
	if err != nil {
		return nil, err
	}
	headers := make([]bridge.Header, len(fields))
	for i, f := range fields {
		headers[i] = bridge.Header{Name: f.Name, Value: f.Value}
	}
	return headers, nil
}

// encodeHeaders QPACK-encodes headers for a HEADERS frame payload, using
// only static-table and literal representations (Required Insert Count and
// Delta Base are always zero, so the 2-byte field-section prefix is
// constant -- RFC 9204 §4.5.1).
func encodeHeaders(headers []bridge.Header) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{0, 0})

	encoder := qpack.NewEncoder(&buf)
	for _, h := range headers {
		if err := encoder.WriteField(qpack.HeaderField{Name: h.Name, Value: h.Value}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
