package nbody

import (
	"context"
	"log/slog"
	"time"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
	"github.com/phil-mansfield/gogrid/mpi"
	"github.com/phil-mansfield/gogrid/ring"
)

// bodyCodec sends the part of a Body that other ranks need: its position,
// accumulated force and mass.
type bodyCodec struct{}

var _ ring.Resetter[Body] = bodyCodec{}

func (bodyCodec) RecordLen() int { return 5 }

func (bodyCodec) Encode(dst []float64, b *Body) {
	dst[0], dst[1] = b.Pos[0], b.Pos[1]
	dst[2], dst[3] = b.Force[0], b.Force[1]
	dst[4] = b.Mass
}

func (bodyCodec) Reset(b *Body) { b.Force = [2]float64{} }

func (bodyCodec) Decode(b *Body, src []float64) {
	b.Pos = [2]float64{src[0], src[1]}
	b.Force = [2]float64{src[2], src[3]}
	b.Mass = src[4]
	b.Vel = [2]float64{}
}

// RingSystem is an N-body system spread across a ring of ranks, each of
// which holds the same number of bodies. Forces are found by circulating
// copies of every rank's bodies around the ring.
type RingSystem struct {
	Params
	// Bodies are the bodies resident on this rank.
	Bodies []Body

	comm mpi.Comm
	circ *ring.Circulator[Body]
	log  *slog.Logger
}

// NewRingSystem returns the calling rank's part of a ring system with n
// bodies per rank. n must be even.
func NewRingSystem(
	comm mpi.Comm, n int, p Params, log *slog.Logger,
) (*RingSystem, error) {
	if err := p.check(n); err != nil {
		return nil, err
	} else if n%2 != 0 {
		return nil, geom.NewConfigError(
			"ring systems need an even number of bodies per rank, not %d", n,
		)
	}

	circ, err := ring.New[Body](comm, bodyCodec{}, n, log)
	if err != nil {
		return nil, err
	}

	return &RingSystem{
		Params: p, Bodies: make([]Body, n), comm: comm, circ: circ,
		log: logging.ForRank(log, comm.Rank()),
	}, nil
}

// Init initializes the resident bodies. Rank r holds bodies
// r*n through (r+1)*n - 1 of the whole system.
func (s *RingSystem) Init(initer Initer) error {
	n := len(s.Bodies)
	size := n * s.comm.Size()
	for i := range s.Bodies {
		err := initer.Visit(&s.Bodies[i], s.comm.Rank()*n+i, size)
		if err != nil {
			return err
		}
	}
	return nil
}

// Run integrates the system for iters steps of length h. Every rank must
// call Run.
func (s *RingSystem) Run(iters int, h float64) error {
	for iter := 0; iter < iters; iter++ {
		err := step(s.Bodies, iter, h, s.g(), s.forces)
		if err != nil {
			return err
		}
		if s.comm.Rank() == 0 {
			progress(s.log, s.Params, iter, s.Bodies)
		}
	}
	return nil
}

func (s *RingSystem) forces() error {
	_, err := s.circ.Circulate(s.Bodies,
		func(res, vis *Body) { interact(res, vis, s.MinR) },
		func(res, ret *Body) {
			res.Force[0] += ret.Force[0]
			res.Force[1] += ret.Force[1]
		},
	)
	return err
}

// Gather collects every rank's bodies on root, in global order. Other ranks
// receive nil.
func (s *RingSystem) Gather(root int) ([]Body, error) {
	m := 7
	local := make([]float64, m*len(s.Bodies))
	for i, b := range s.Bodies {
		copy(local[i*m:], []float64{
			b.Pos[0], b.Pos[1], b.Force[0], b.Force[1],
			b.Vel[0], b.Vel[1], b.Mass,
		})
	}

	parts, err := mpi.Gatherv(s.comm, local, root)
	if err != nil || parts == nil {
		return nil, err
	}

	var out []Body
	for _, part := range parts {
		for k := 0; k+m <= len(part); k += m {
			out = append(out, Body{
				Pos:   [2]float64{part[k], part[k+1]},
				Force: [2]float64{part[k+2], part[k+3]},
				Vel:   [2]float64{part[k+4], part[k+5]},
				Mass:  part[k+6],
			})
		}
	}
	return out, nil
}

// Outcome is what an N-body run produces.
type Outcome struct {
	Bodies  []Body
	Elapsed time.Duration
}

// Run integrates a system of perRank bodies on each of workers ranks. A
// single worker uses a System; more use a RingSystem.
func Run(
	ctx context.Context, workers, perRank, iters int, h float64,
	p Params, initer Initer, log *slog.Logger,
) (*Outcome, error) {
	start := time.Now()
	out := &Outcome{}

	if workers == 1 {
		s, err := NewSystem(perRank, p, logging.ForRank(log, 0))
		if err != nil {
			return nil, err
		}
		if err := s.Init(initer); err != nil {
			return nil, err
		}
		if err := s.Run(iters, h); err != nil {
			return nil, err
		}
		out.Bodies, out.Elapsed = s.Bodies, time.Since(start)
		return out, nil
	}

	err := mpi.Run(ctx, workers, func(c mpi.Comm) error {
		s, err := NewRingSystem(c, perRank, p, log)
		if err != nil {
			return err
		}
		if err := s.Init(initer); err != nil {
			return err
		}
		if err := s.Run(iters, h); err != nil {
			return err
		}
		bodies, err := s.Gather(0)
		if c.Rank() == 0 {
			out.Bodies = bodies
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	out.Elapsed = time.Since(start)
	return out, nil
}
