package edge

import (
	"bufio"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/h3edge/h3edge/internal/bridge"
)

// fakeStream is an in-memory requestStream: reads come from a fixed byte
// buffer (simulating the client's frames up to the stream's FIN), writes
// accumulate into a buffer the test inspects as the response.
type fakeStream struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (f *fakeStream) Read(p []byte) (int, error)  { return f.in.Read(p) }
func (f *fakeStream) Write(p []byte) (int, error) { return f.out.Write(p) }
func (f *fakeStream) Close() error                { return nil }

func encodeRequestFrames(t *testing.T, headers []bridge.Header, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	payload, err := encodeHeaders(headers)
	require.NoError(t, err)
	require.NoError(t, writeFrame(&buf, frameTypeHeaders, payload))
	if len(body) > 0 {
		require.NoError(t, writeFrame(&buf, frameTypeData, body))
	}
	return buf.Bytes()
}

func TestHandleStreamNoMatchingRouteWritesFiveHundred(t *testing.T) {
	d := newDispatcherFixture(t, nil, nil, "round-robin")

	req := encodeRequestFrames(t, []bridge.Header{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/"},
		{Name: ":authority", Value: "svc"},
	}, nil)

	stream := &fakeStream{in: bytes.NewReader(req)}
	handleStream(context.Background(), stream, d, zap.NewNop())

	status, _, body := decodeResponseFrames(t, stream.out.Bytes())
	assert.Equal(t, "500", status)
	assert.Equal(t, "no matching route", string(body))
}

func TestHandleStreamBadQPACKWritesFourHundred(t *testing.T) {
	d := newDispatcherFixture(t, nil, nil, "round-robin")

	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, frameTypeHeaders, []byte{0xff, 0xff, 0xff}))

	stream := &fakeStream{in: bytes.NewReader(buf.Bytes())}
	handleStream(context.Background(), stream, d, zap.NewNop())

	status, _, _ := decodeResponseFrames(t, stream.out.Bytes())
	assert.Equal(t, "400", status)
}

// decodeResponseFrames reads a HEADERS frame followed by a DATA frame back
// out of a response byte stream, returning the decoded :status value, the
// rest of the headers, and the body.
func decodeResponseFrames(t *testing.T, raw []byte) (status string, headers []bridge.Header, body []byte) {
	t.Helper()
	r := bufio.NewReader(bytes.NewReader(raw))

	hf, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, uint64(frameTypeHeaders), hf.typ)

	decoded, err := decodeHeaders(hf.payload)
	require.NoError(t, err)
	for _, h := range decoded {
		if h.Name == ":status" {
			status = h.Value
			continue
		}
		headers = append(headers, h)
	}

	df, err := readFrame(r)
	require.NoError(t, err)
	require.Equal(t, uint64(frameTypeData), df.typ)
	return status, headers, df.payload
}
