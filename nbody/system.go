package nbody

import (
	"log/slog"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
)

// System is an N-body system integrated on a single rank.
type System struct {
	Params
	Bodies []Body

	log *slog.Logger
}

// NewSystem returns a System of n bodies.
func NewSystem(n int, p Params, log *slog.Logger) (*System, error) {
	if err := p.check(n); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.Discard()
	}
	return &System{Params: p, Bodies: make([]Body, n), log: log}, nil
}

func (p Params) check(n int) error {
	if n < 0 {
		return geom.NewConfigError(
			"body count must be non-negative, but is %d", n,
		)
	} else if p.MinR < 0 {
		return geom.NewConfigError(
			"minimum distance must be non-negative, but is %g", p.MinR,
		)
	} else if p.UpdateFreq < 0 {
		return geom.NewConfigError(
			"update frequency must be non-negative, but is %d", p.UpdateFreq,
		)
	}
	return nil
}

// Init initializes every body with initer.
func (s *System) Init(initer Initer) error {
	for i := range s.Bodies {
		if err := initer.Visit(&s.Bodies[i], i, len(s.Bodies)); err != nil {
			return err
		}
	}
	return nil
}

// Run integrates the system for iters steps of length h.
func (s *System) Run(iters int, h float64) error {
	for iter := 0; iter < iters; iter++ {
		err := step(s.Bodies, iter, h, s.g(), func() error {
			s.forces()
			return nil
		})
		if err != nil {
			return err
		}
		progress(s.log, s.Params, iter, s.Bodies)
	}
	return nil
}

// forces visits each unordered pair of bodies once.
func (s *System) forces() {
	for i := range s.Bodies {
		for j := i + 1; j < len(s.Bodies); j++ {
			interact(&s.Bodies[i], &s.Bodies[j], s.MinR)
		}
	}
}

func progress(log *slog.Logger, p Params, iter int, bodies []Body) {
	if p.UpdateFreq == 0 || iter%p.UpdateFreq != 0 {
		return
	}
	c := CenterOfMass(bodies)
	log.Debug("progress", "iter", iter, "center_x", c[0], "center_y", c[1])
}
