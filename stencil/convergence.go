package stencil

import (
	"github.com/phil-mansfield/gogrid/mpi"
)

// DefaultSamplingInterval is the number of cycles between convergence
// samples when none is configured.
const DefaultSamplingInterval = 10

// Coordinator makes the collective decision to stop iterating. Every rank
// keeps a local convergence flag and the Coordinator combines them with a
// logical and across the world, but only on sampling cycles, so that the cost
// of the reduction is paid once every Interval cycles.
//
// AllConverged is a collective call: every rank must call it exactly once per
// sampling cycle, even ranks whose own flag is already false.
type Coordinator struct {
	Interval int

	comm    mpi.Comm
	samples int
}

// NewCoordinator returns a Coordinator which samples every interval cycles.
// A non-positive interval is replaced by DefaultSamplingInterval.
func NewCoordinator(comm mpi.Comm, interval int) *Coordinator {
	if interval <= 0 {
		interval = DefaultSamplingInterval
	}
	return &Coordinator{Interval: interval, comm: comm}
}

// ShouldSample returns true if the 0-indexed cycle is a sampling cycle.
func (c *Coordinator) ShouldSample(cycle int) bool {
	return cycle%c.Interval == 0
}

// AllConverged returns true on every rank if local is true on every rank.
func (c *Coordinator) AllConverged(local bool) (bool, error) {
	c.samples++
	return mpi.AllTrue(c.comm, local)
}

// Samples returns the number of times AllConverged has been called.
func (c *Coordinator) Samples() int { return c.samples }
