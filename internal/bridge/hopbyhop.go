package bridge

import "strings"

// HopByHop is the set of headers that apply only to a single transport hop
// and must never be forwarded end-to-end. It is consulted on both
// directions: stripping inbound HTTP/3 headers before Build, and stripping
// upstream HTTP/2 response headers before they are written back to the
// client.
var HopByHop = map[string]bool{
	"connection":        true,
	"keep-alive":        true,
	"proxy-connection":  true,
	"transfer-encoding": true,
	"upgrade":           true,
}

// IsHopByHop reports whether name (any case) names a hop-by-hop header.
func IsHopByHop(name string) bool {
	return HopByHop[strings.ToLower(name)]
}

// FilterHopByHop returns headers with any hop-by-hop entries removed,
// preserving order of the rest.
func FilterHopByHop(headers []Header) []Header {
	out := make([]Header, 0, len(headers))
	for _, h := range headers {
		if IsHopByHop(h.Name) {
			continue
		}
		out = append(out, h)
	}
	return out
}
