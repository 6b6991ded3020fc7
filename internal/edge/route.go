package edge

import "strings"

// RouteEntry is one entry of the flattened route table: an upstream's own
// inline matcher and the top-level fallback table (config Routes) both
// compile down to this same shape, so Resolve never needs to know which one
// an entry came from.
type RouteEntry struct {
	Host       string // empty matches any authority
	PathPrefix string // empty matches any path
	Upstream   string
}

// RouteTable resolves an (authority, path) pair to an upstream name by
// longest-prefix match, ties broken by requiring a host match over a
// hostless wildcard entry.
type RouteTable struct {
	entries []RouteEntry
}

func NewRouteTable(entries []RouteEntry) *RouteTable {
	return &RouteTable{entries: entries}
}

// Resolve returns the upstream name with the longest matching PathPrefix
// among entries whose Host is empty or equal to authority (host comparison
// ignores a trailing port, matching how Authority arrives off the wire).
// If no entry matches, ok is false.
func (t *RouteTable) Resolve(authority, path string) (upstream string, ok bool) {
	host := stripPort(authority)

	bestLen := -1
	bestHostSpecific := false
	for _, e := range t.entries {
		if e.Host != "" && !strings.EqualFold(e.Host, host) {
			continue
		}
		if e.PathPrefix != "" && !strings.HasPrefix(path, e.PathPrefix) {
			continue
		}
		specific := e.Host != ""
		length := len(e.PathPrefix)

		if length > bestLen || (length == bestLen && specific && !bestHostSpecific) {
			bestLen = length
			bestHostSpecific = specific
			upstream = e.Upstream
			ok = true
		}
	}
	return upstream, ok
}

func stripPort(authority string) string {
	if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		return authority[:i]
	}
	return authority
}
