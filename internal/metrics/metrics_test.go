package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrementAndSnapshot(t *testing.T) {
	c := New(prometheus.NewRegistry())

	c.IncRequestsTotal()
	c.IncRequestsTotal()
	c.IncRequestsSuccess()
	c.IncRequestsFailure()
	c.IncBackendTimeouts()
	c.IncBackendErrors()

	snap := c.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.Equal(t, uint64(1), snap.RequestsSuccess)
	assert.Equal(t, uint64(1), snap.RequestsFailure)
	assert.Equal(t, uint64(1), snap.BackendTimeouts)
	assert.Equal(t, uint64(1), snap.BackendErrors)
}

func TestCountersSuccessFailureAreDisjointPerRequest(t *testing.T) {
	// spec.md §8: for every accepted request exactly one of
	// {requests_success, requests_failure} is incremented.
	c := New(prometheus.NewRegistry())
	c.IncRequestsTotal()
	c.IncRequestsSuccess()

	snap := c.Snapshot()
	assert.Equal(t, snap.RequestsTotal, snap.RequestsSuccess+snap.RequestsFailure)
}
