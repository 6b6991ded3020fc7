package edge

import (
	"bufio"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h3edge/h3edge/internal/bridge"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, frameTypeData, []byte("hello")))
	require.NoError(t, writeFrame(&buf, frameTypeSettings, nil))

	r := bufio.NewReader(&buf)

	f1, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(frameTypeData), f1.typ)
	assert.Equal(t, "hello", string(f1.payload))

	f2, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(frameTypeSettings), f2.typ)
	assert.Empty(t, f2.payload)
}

func TestQPACKRoundTrip(t *testing.T) {
	headers := []bridge.Header{
		{Name: ":method", Value: "GET"},
		{Name: ":path", Value: "/widgets"},
		{Name: ":authority", Value: "example.com"},
		{Name: "x-custom", Value: "v1"},
	}

	payload, err := encodeHeaders(headers)
	require.NoError(t, err)

	decoded, err := decodeHeaders(payload)
	require.NoError(t, err)
	require.Len(t, decoded, len(headers))
	for i, h := range headers {
		assert.Equal(t, h.Name, decoded[i].Name)
		assert.Equal(t, h.Value, decoded[i].Value)
	}
}

func TestBuildEnvelopeExtractsPseudoHeadersAndStripsHopByHop(t *testing.T) {
	headers := []bridge.Header{
		{Name: ":method", Value: "POST"},
		{Name: ":path", Value: "/a"},
		{Name: ":authority", Value: "svc.internal"},
		{Name: "connection", Value: "keep-alive"},
		{Name: "x-trace", Value: "abc"},
	}
	now := time.Now()
	env := buildEnvelope(headers, []byte("body"), now)

	assert.Equal(t, "POST", env.Method)
	assert.Equal(t, "/a", env.Path)
	assert.Equal(t, "svc.internal", env.Authority)
	assert.Equal(t, []byte("body"), env.Body)
	require.Len(t, env.Headers, 1)
	assert.Equal(t, "x-trace", env.Headers[0].Name)
}

func TestSettingsFrameHasEmptyPayload(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(settingsFrame()))
	f, err := readFrame(r)
	require.NoError(t, err)
	assert.Equal(t, uint64(frameTypeSettings), f.typ)
	assert.Empty(t, f.payload)
}
