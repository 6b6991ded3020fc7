package edge

import (
	"time"

	"github.com/h3edge/h3edge/internal/bridge"
)

// buildEnvelope turns a decoded HEADERS frame plus a collected body into a
// RequestEnvelope: pseudo-headers :method/:path/:authority are pulled out,
// hop-by-hop headers are stripped before bridge.Build ever sees them, and
// the remaining headers keep their arrival order.
func buildEnvelope(headers []bridge.Header, body []byte, arrival time.Time) RequestEnvelope {
	env := RequestEnvelope{Body: body, Arrival: arrival}
	rest := make([]bridge.Header, 0, len(headers))

	for _, h := range headers {
		switch h.Name {
		case ":method":
			env.Method = h.Value
		case ":path":
			env.Path = h.Value
		case ":authority":
			env.Authority = h.Value
		case ":scheme":
			// unused: the upstream side is always cleartext HTTP/2.
		default:
			if len(h.Name) > 0 && h.Name[0] == ':' {
				continue
			}
			if h.Name == "host" || h.Name == "Host" {
				if env.Authority == "" {
					env.Authority = h.Value
				}
			}
			rest = append(rest, h)
		}
	}

	env.Headers = bridge.FilterHopByHop(rest)
	return env
}
