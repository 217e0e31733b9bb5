/*package stencil runs iterative stencil computations over an N x N domain
split across a square grid of ranks.

Each rank owns one Segment: a tile of the domain with a one cell halo. Every
cycle the Segment recomputes its interior cells with the user's Payload,
commits the new values, and swaps border values with its four neighbors so
that the halo holds what the neighbors computed. Updates are Jacobi-style:
Compute only ever sees values from the previous cycle, which makes the result
independent of how the domain is decomposed.
*/
package stencil

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
	"github.com/phil-mansfield/gogrid/mpi"
)

// Payload supplies the physics of a stencil computation.
type Payload interface {
	// InitPoint returns the starting value of the absolute cell (row, col).
	// It is called once for every interior and halo cell of every tile, so
	// row and col may lie outside of [0, N). Those cells are fixed boundary
	// values for the rest of the run.
	InitPoint(row, col int) (float64, error)
	// Compute returns the next value of the interior cell (row, col). It may
	// read any cell in the tile or its halo through seg.Value.
	Compute(seg *Segment, row, col int) (float64, error)
}

// CycleHooks may optionally be implemented by a Payload. StartOfCycle is
// called before any cell of a cycle is computed and EndOfCycle after the
// halos have been exchanged.
type CycleHooks interface {
	StartOfCycle(seg *Segment)
	EndOfCycle(seg *Segment)
}

// State is the terminal state of an Execute call.
type State int

const (
	// Converged means that every rank's cells moved by no more than epsilon
	// during a sampling cycle.
	Converged State = iota
	// ExhaustedCycles means that maxCycles cycles ran without convergence.
	// This is a normal outcome, not an error.
	ExhaustedCycles
)

func (s State) String() string {
	switch s {
	case Converged:
		return "converged"
	case ExhaustedCycles:
		return "exhausted cycles"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is returned by Execute. Cycle is the sampling cycle at which the run
// converged, or maxCycles.
type Result struct {
	State State
	Cycle int
}

// Config holds the parameters of a Segment.
type Config struct {
	// N is the width of the domain.
	N int
	// SamplingInterval is the number of cycles between convergence checks.
	// Zero means DefaultSamplingInterval.
	SamplingInterval int
	// Log receives geometry, progress and convergence messages. It may be nil.
	Log *slog.Logger
}

// Segment is a single rank's share of a stencil computation.
type Segment struct {
	comm    mpi.Comm
	top     *geom.Topology
	tile    *geom.Tile
	coord   *Coordinator
	payload Payload
	hooks   CycleHooks
	log     *slog.Logger

	n       int
	cycle   int
	nbr     [4]int
	scratch []float64
}

// NewSegment creates the Segment of the calling rank. The world size of comm
// must be a perfect square q*q, and the domain must have at least one cell
// per rank along each axis. Failures are returned as *geom.ConfigError before
// any communication happens.
func NewSegment(comm mpi.Comm, cfg Config, p Payload) (*Segment, error) {
	top, err := geom.NewTopology(comm.Size())
	if err != nil {
		return nil, err
	}

	if cfg.N < top.Side() {
		return nil, geom.NewConfigError(
			"a %d x %d domain cannot be split across a %d x %d grid of ranks",
			cfg.N, cfg.N, top.Side(), top.Side(),
		)
	} else if cfg.SamplingInterval < 0 {
		return nil, geom.NewConfigError(
			"sampling interval must be non-negative, but is %d",
			cfg.SamplingInterval,
		)
	} else if p == nil {
		return nil, geom.NewConfigError("no payload given")
	}

	rank := comm.Rank()
	s := &Segment{
		comm:    comm,
		top:     top,
		tile:    geom.NewTile(top.TileBounds(cfg.N, rank)),
		coord:   NewCoordinator(comm, cfg.SamplingInterval),
		payload: p,
		log:     logging.ForRank(cfg.Log, rank),
		n:       cfg.N,
	}
	s.hooks, _ = p.(CycleHooks)
	for _, side := range geom.Sides {
		s.nbr[side] = top.Neighbor(rank, side)
	}
	s.scratch = make([]float64, s.tile.Rows*s.tile.Cols)

	s.log.Info(
		"segment", "grid_row", top.Row(rank), "grid_col", top.Col(rank),
		"rows", fmt.Sprintf("[%d, %d]", s.tile.Row0, s.tile.Row1),
		"cols", fmt.Sprintf("[%d, %d]", s.tile.Col0, s.tile.Col1),
	)

	return s, nil
}

// N returns the width of the domain.
func (s *Segment) N() int { return s.n }

// Rank returns the rank which owns the segment.
func (s *Segment) Rank() int { return s.comm.Rank() }

// Cycle returns the current 0-indexed cycle.
func (s *Segment) Cycle() int { return s.cycle }

func (s *Segment) Tile() *geom.Tile           { return s.tile }
func (s *Segment) Topology() *geom.Topology   { return s.top }
func (s *Segment) Coordinator() *Coordinator  { return s.coord }
func (s *Segment) Comm() mpi.Comm             { return s.comm }
func (s *Segment) Neighbor(side geom.Side) int { return s.nbr[side] }

// Value returns the current value of the absolute cell (row, col). It panics
// with a *geom.RangeError if the cell is not in the tile or its halo; inside
// Compute that panic is turned into a PayloadError.
func (s *Segment) Value(row, col int) float64 {
	x, err := s.tile.AtAbs(row, col)
	if err != nil {
		panic(err)
	}
	return x
}

// Execute initializes the tile and iterates until the whole world converges
// or maxCycles cycles have run. Every rank must call Execute with the same
// arguments.
//
// A cell has converged in a cycle if its value changed by no more than
// epsilon. If a Payload callback fails on any rank, the world is aborted so
// that no rank is left blocked, and the failing rank returns a
// *PayloadError.
func (s *Segment) Execute(maxCycles int, epsilon float64) (Result, error) {
	if maxCycles < 0 {
		return Result{}, geom.NewConfigError(
			"maxCycles must be non-negative, but is %d", maxCycles,
		)
	} else if epsilon < 0 || math.IsNaN(epsilon) {
		return Result{}, geom.NewConfigError(
			"epsilon must be non-negative, but is %g", epsilon,
		)
	}

	if err := s.initialize(); err != nil {
		return Result{}, s.fail(err)
	}

	for s.cycle = 0; s.cycle < maxCycles; s.cycle++ {
		if err := s.startOfCycle(); err != nil {
			return Result{}, s.fail(err)
		}

		mayTerminate, err := s.update(epsilon)
		if err != nil {
			return Result{}, s.fail(err)
		}
		if err := s.exchange(); err != nil {
			return Result{}, err
		}

		if err := s.endOfCycle(); err != nil {
			return Result{}, s.fail(err)
		}
		s.log.Debug("cycle", "cycle", s.cycle, "may_terminate", mayTerminate)

		if !s.coord.ShouldSample(s.cycle) {
			continue
		}
		done, err := s.coord.AllConverged(mayTerminate)
		if err != nil {
			return Result{}, err
		}
		if done {
			if s.Rank() == 0 {
				s.log.Info("converged", "cycle", s.cycle)
			}
			return Result{Converged, s.cycle}, nil
		}
	}

	if s.Rank() == 0 {
		s.log.Info("exhausted cycles", "cycles", maxCycles)
	}
	return Result{ExhaustedCycles, maxCycles}, nil
}

// fail aborts the world with a payload failure so peers blocked in an
// exchange or reduction are released.
func (s *Segment) fail(err error) error {
	s.comm.Abort(err)
	return err
}

func (s *Segment) initialize() error {
	t, raw := s.tile, s.tile.Raw()
	for i := 0; i <= t.Rows+1; i++ {
		for j := 0; j <= t.Cols+1; j++ {
			row, col := t.Abs(i, j)
			x, err := s.initPoint(row, col)
			if err != nil {
				return &PayloadError{
					Rank: s.Rank(), Row: row, Col: col, Cycle: -1, Err: err,
				}
			}
			raw[t.Idx(i, j)] = x
		}
	}
	return nil
}

// update computes every interior cell into scratch space, then commits them
// all at once.
func (s *Segment) update(epsilon float64) (mayTerminate bool, err error) {
	t, raw := s.tile, s.tile.Raw()
	mayTerminate = true

	k := 0
	for i := 1; i <= t.Rows; i++ {
		for j := 1; j <= t.Cols; j++ {
			row, col := t.Abs(i, j)
			x, err := s.compute(row, col)
			if err != nil {
				return false, &PayloadError{
					Rank: s.Rank(), Row: row, Col: col, Cycle: s.cycle, Err: err,
				}
			}
			// Written so that NaN deltas never count as converged.
			if !(math.Abs(x-raw[t.Idx(i, j)]) <= epsilon) {
				mayTerminate = false
			}
			s.scratch[k] = x
			k++
		}
	}

	for i := 1; i <= t.Rows; i++ {
		start := t.Idx(i, 1)
		copy(raw[start:start+t.Cols], s.scratch[(i-1)*t.Cols:i*t.Cols])
	}

	return mayTerminate, nil
}

func (s *Segment) startOfCycle() (err error) {
	if s.hooks == nil {
		return nil
	}
	defer s.recoverHook("StartOfCycle", &err)
	s.hooks.StartOfCycle(s)
	return nil
}

func (s *Segment) endOfCycle() (err error) {
	if s.hooks == nil {
		return nil
	}
	defer s.recoverHook("EndOfCycle", &err)
	s.hooks.EndOfCycle(s)
	return nil
}

// recoverHook turns a panic inside a cycle hook into a *PayloadError. It
// must be deferred directly.
func (s *Segment) recoverHook(hook string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}
	*err = &PayloadError{
		Rank: s.Rank(), Row: -1, Col: -1, Cycle: s.cycle,
		Hook: hook, Err: cause,
	}
}

func (s *Segment) initPoint(row, col int) (x float64, err error) {
	defer recoverPayload(&err)
	return s.payload.InitPoint(row, col)
}

func (s *Segment) compute(row, col int) (x float64, err error) {
	defer recoverPayload(&err)
	return s.payload.Compute(s, row, col)
}

// exchange swaps borders with all four neighbors. Each step sends towards one
// side and receives from the opposite one, so every send in the world is
// matched by a receive in the same step. Ranks on the edge of the grid still
// take part through null exchanges with mpi.ProcNull.
func (s *Segment) exchange() error {
	raw := s.tile.Raw()
	for _, side := range geom.Sides {
		send := s.tile.SendRegion(side)
		recv := s.tile.RecvRegion(side.Opposite())

		req, err := s.comm.ISend(send.Of(raw), send.Datatype, s.nbr[side])
		if err != nil {
			return err
		}
		err = s.comm.Recv(recv.Of(raw), recv.Datatype, s.nbr[side.Opposite()])
		if err != nil {
			return err
		}
		if err := req.Wait(); err != nil {
			return err
		}
	}
	return nil
}
