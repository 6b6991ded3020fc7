package lb

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Policy decides how a backend index will be selected from a pool, given a
// hash key derived from the inbound request.
type Policy interface {
	Pick(key string, pool *Pool) (int, bool)
}

// RoundRobin cycles through the currently-healthy indices, visiting each
// exactly once per len(healthy) picks, mirroring the teacher's
// caddyhttp/proxy RoundRobin policy but operating over a dynamic healthy set
// rather than a fixed HostPool.
type RoundRobin struct {
	cursor uint64
}

func NewRoundRobin() *RoundRobin { return &RoundRobin{} }

func (r *RoundRobin) Pick(_ string, pool *Pool) (int, bool) {
	healthy := pool.HealthyIndices()
	if len(healthy) == 0 {
		return 0, false
	}
	n := atomic.AddUint64(&r.cursor, 1) - 1
	return healthy[int(n%uint64(len(healthy)))], true
}

// Random selects uniformly among the healthy indices.
type Random struct {
	mu sync.Mutex
}

func NewRandom() *Random { return &Random{} }

func (r *Random) Pick(_ string, pool *Pool) (int, bool) {
	healthy := pool.HealthyIndices()
	if len(healthy) == 0 {
		return 0, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return healthy[rand.IntN(len(healthy))], true
}
