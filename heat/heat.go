/*package heat solves the steady-state heat equation on a square plate with
Jacobi relaxation. The top, left and right edges of the plate are held at a
fixed hot temperature and the bottom edge at zero.
*/
package heat

import (
	"context"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
	"github.com/phil-mansfield/gogrid/mpi"
	"github.com/phil-mansfield/gogrid/stencil"
)

const (
	// DefaultHot is the temperature of the three hot edges.
	DefaultHot = 100.0
	// DefaultOmega gives plain Jacobi averaging.
	DefaultOmega = 1.0
)

// Params are the parameters of a heat run.
type Params struct {
	N         int
	MaxCycles int
	Epsilon   float64
	// Omega is the relaxation factor, 0 < Omega <= 1. Zero means
	// DefaultOmega.
	Omega float64
	// Hot is the temperature of the hot edges. Zero means DefaultHot.
	Hot float64

	SamplingInterval int
	// UpdateFreq is the number of cycles between progress messages. Zero
	// turns them off.
	UpdateFreq int
}

// Plate is the stencil.Payload of a heat run.
type Plate struct {
	N          int
	Omega, Hot float64
	UpdateFreq int

	log *slog.Logger
}

// NewPlate returns a Plate for an n x n domain.
func NewPlate(p Params, log *slog.Logger) (*Plate, error) {
	if p.Omega == 0 {
		p.Omega = DefaultOmega
	}
	if p.Hot == 0 {
		p.Hot = DefaultHot
	}

	if p.Omega < 0 || p.Omega > 1 {
		return nil, geom.NewConfigError(
			"relaxation factor must be in range (0, 1], but is %g", p.Omega,
		)
	} else if p.UpdateFreq < 0 {
		return nil, geom.NewConfigError(
			"update frequency must be non-negative, but is %d", p.UpdateFreq,
		)
	}

	if log == nil {
		log = logging.Discard()
	}
	return &Plate{
		N: p.N, Omega: p.Omega, Hot: p.Hot, UpdateFreq: p.UpdateFreq, log: log,
	}, nil
}

// InitPoint heats the top, left and right edges. Everything else, including
// the bottom edge, starts cold.
func (p *Plate) InitPoint(row, col int) (float64, error) {
	if row < 0 || col < 0 || col >= p.N {
		return p.Hot, nil
	}
	return 0, nil
}

func (p *Plate) Compute(seg *stencil.Segment, row, col int) (float64, error) {
	sum := seg.Value(row-1, col) + seg.Value(row+1, col) +
		seg.Value(row, col-1) + seg.Value(row, col+1)
	if p.Omega == 1 {
		return sum / 4, nil
	}
	return p.Omega/4*sum + (1-p.Omega)*seg.Value(row, col), nil
}

func (p *Plate) StartOfCycle(seg *stencil.Segment) {}

// EndOfCycle reports the mean temperature of the segment every UpdateFreq
// cycles.
func (p *Plate) EndOfCycle(seg *stencil.Segment) {
	if p.UpdateFreq == 0 || seg.Cycle()%p.UpdateFreq != 0 {
		return
	}
	interior := seg.Tile().CopyInterior(nil)
	p.log.Debug(
		"progress", "rank", seg.Rank(), "cycle", seg.Cycle(),
		"mean", floats.Sum(interior)/float64(len(interior)),
	)
}

// Outcome is what a heat run produces on rank 0.
type Outcome struct {
	Result stencil.Result
	// Field is the final N x N temperature field in row-major order.
	Field   []float64
	Tiles   []geom.Bounds
	Elapsed time.Duration
}

// Run solves the plate across workers ranks.
func Run(
	ctx context.Context, workers int, p Params, log *slog.Logger,
) (*Outcome, error) {
	plate, err := NewPlate(p, log)
	if err != nil {
		return nil, err
	}
	top, err := geom.NewTopology(workers)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Tiles: make([]geom.Bounds, workers)}
	for rank := range out.Tiles {
		out.Tiles[rank] = top.TileBounds(p.N, rank)
	}

	start := time.Now()
	err = mpi.Run(ctx, workers, func(c mpi.Comm) error {
		seg, err := stencil.NewSegment(c, stencil.Config{
			N: p.N, SamplingInterval: p.SamplingInterval, Log: log,
		}, plate)
		if err != nil {
			return err
		}

		res, err := seg.Execute(p.MaxCycles, p.Epsilon)
		if err != nil {
			return err
		}
		field, err := seg.Gather(0)
		if err != nil {
			return err
		}

		if c.Rank() == 0 {
			out.Result, out.Field = res, field
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Elapsed = time.Since(start)

	return out, nil
}

// Column returns column col of an n x n row-major field.
func Column(field []float64, n, col int) []float64 {
	out := make([]float64, n)
	for row := range out {
		out[row] = field[row*n+col]
	}
	return out
}
