package lb

import (
	"fmt"
	"strings"
)

// NewPolicy builds the Policy named by strategy. The caller is responsible
// for falling back to a top-level default before calling this -- strategy
// here is always the authoritative, already-resolved per-upstream value.
func NewPolicy(strategy string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "round-robin", "round_robin", "rr":
		return NewRoundRobin(), nil
	case "random":
		return NewRandom(), nil
	case "consistent-hash", "consistent_hash", "ch":
		return NewConsistentHash(DefaultReplicas), nil
	default:
		return nil, fmt.Errorf("unsupported load balancing strategy: %q", strategy)
	}
}
