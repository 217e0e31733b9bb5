package stencil

import (
	"github.com/phil-mansfield/gogrid/mpi"
)

// Gather assembles the interiors of every rank's tile into a single N x N
// row-major field on root. Every rank must call Gather; ranks other than root
// receive nil.
func (s *Segment) Gather(root int) ([]float64, error) {
	local := s.tile.CopyInterior(s.scratch)
	parts, err := mpi.Gatherv(s.comm, local, root)
	if err != nil || parts == nil {
		return nil, err
	}

	field := make([]float64, s.n*s.n)
	for rank, part := range parts {
		b := s.top.TileBounds(s.n, rank)
		cols := b.Cols()
		for row := b.Row0; row <= b.Row1; row++ {
			k := (row - b.Row0) * cols
			copy(field[row*s.n+b.Col0:row*s.n+b.Col1+1], part[k:k+cols])
		}
	}
	return field, nil
}
