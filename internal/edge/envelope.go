package edge

import (
	"time"

	"github.com/h3edge/h3edge/internal/bridge"
)

// RequestEnvelope accumulates one HTTP/3 request stream's state between its
// Headers event and its Finished event.
type RequestEnvelope struct {
	Method    string
	Path      string
	Authority string
	Headers   []bridge.Header
	Body      []byte
	Arrival   time.Time
}

// ResponseEnvelope is what the dispatcher hands back to the stream-writing
// side: a status, a header list (already hop-by-hop-filtered, sans
// Content-Length), and a fully collected body.
type ResponseEnvelope struct {
	Status  int
	Headers []bridge.Header
	Body    []byte
}

func newResponse(status int, body string) ResponseEnvelope {
	return ResponseEnvelope{Status: status, Body: []byte(body)}
}
