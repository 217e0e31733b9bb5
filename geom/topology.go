package geom

import (
	"math"

	"github.com/phil-mansfield/gogrid/mpi"
)

// Topology arranges a flat rank space onto a q x q grid of workers. Rank r
// sits at row r / q and column r % q, with row 0 at the top of the domain.
//
// Ranks on the edges of the grid have no neighbor on their outer sides; the
// neighbor functions return mpi.ProcNull for those.
type Topology struct {
	q int
}

// NewTopology returns the Topology for workers ranks. workers must be a
// positive perfect square.
func NewTopology(workers int) (*Topology, error) {
	q := int(math.Sqrt(float64(workers)) + 0.5)
	if workers <= 0 || q*q != workers {
		return nil, NewConfigError(
			"%d workers cannot be arranged into a square grid", workers,
		)
	}
	return &Topology{q}, nil
}

// Side returns q, the number of workers along each edge of the grid.
func (t *Topology) Side() int { return t.q }

// Workers returns the number of workers in the grid.
func (t *Topology) Workers() int { return t.q * t.q }

func (t *Topology) Row(rank int) int { return rank / t.q }
func (t *Topology) Col(rank int) int { return rank % t.q }

// Rank returns the rank at the given grid coordinates or mpi.ProcNull if
// they are off the grid.
func (t *Topology) Rank(row, col int) int {
	if row < 0 || col < 0 || row >= t.q || col >= t.q {
		return mpi.ProcNull
	}
	return row*t.q + col
}

func (t *Topology) Up(rank int) int {
	return t.Rank(t.Row(rank)-1, t.Col(rank))
}

func (t *Topology) Down(rank int) int {
	return t.Rank(t.Row(rank)+1, t.Col(rank))
}

func (t *Topology) Left(rank int) int {
	return t.Rank(t.Row(rank), t.Col(rank)-1)
}

func (t *Topology) Right(rank int) int {
	return t.Rank(t.Row(rank), t.Col(rank)+1)
}

// Neighbor returns the rank on the given side of rank.
func (t *Topology) Neighbor(rank int, s Side) int {
	switch s {
	case Up:
		return t.Up(rank)
	case Down:
		return t.Down(rank)
	case Left:
		return t.Left(rank)
	case Right:
		return t.Right(rank)
	}
	panic("geom: unknown side")
}

// Ring is a directed cycle of Size ranks.
type Ring struct {
	Size int
}

func (r Ring) Next(rank int) int { return (rank + 1) % r.Size }
func (r Ring) Prev(rank int) int { return (rank - 1 + r.Size) % r.Size }

// Chain is an open line of Size ranks. The two end ranks have mpi.ProcNull
// as their outer neighbor.
type Chain struct {
	Size int
}

func (c Chain) Left(rank int) int {
	if rank == 0 {
		return mpi.ProcNull
	}
	return rank - 1
}

func (c Chain) Right(rank int) int {
	if rank == c.Size-1 {
		return mpi.ProcNull
	}
	return rank + 1
}
