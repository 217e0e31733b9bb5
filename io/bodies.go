package io

import (
	"fmt"

	"github.com/phil-mansfield/table"

	"github.com/phil-mansfield/gogrid/nbody"
)

// ReadBodies reads a table of bodies from a whitespace-separated text file
// with the columns x, y, vx, vy and mass.
func ReadBodies(fname string) ([]nbody.Body, error) {
	cols, err := table.ReadTable(fname, []int{0, 1, 2, 3, 4}, nil)
	if err != nil {
		return nil, err
	}

	xs, ys, vxs, vys, ms := cols[0], cols[1], cols[2], cols[3], cols[4]
	bodies := make([]nbody.Body, len(xs))
	for i := range bodies {
		if ms[i] <= 0 {
			return nil, fmt.Errorf(
				"Body %d in '%s' has a non-positive mass, %g.", i, fname, ms[i],
			)
		}
		bodies[i].Pos = [2]float64{xs[i], ys[i]}
		bodies[i].Vel = [2]float64{vxs[i], vys[i]}
		bodies[i].Mass = ms[i]
	}
	return bodies, nil
}
