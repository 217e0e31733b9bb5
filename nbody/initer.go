package nbody

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Initer sets the starting state of body number id out of size.
type Initer interface {
	Visit(b *Body, id, size int) error
}

// RandomIniter scatters bodies uniformly over a rectangle and gives them
// random velocities on an ellipse set by VelocityRange. Body id always gets
// the same state for a given Seed, no matter which rank initializes it.
type RandomIniter struct {
	Corner1, Corner2, VelocityRange [2]float64
	// Mass of every body. Zero means DefaultMass.
	Mass float64
	Seed int64
}

// DefaultMass is the mass given to randomly initialized bodies.
const DefaultMass = 100.0

func (ri *RandomIniter) Visit(b *Body, id, size int) error {
	src := rand.NewSource(uint64(ri.Seed*int64(size) + int64(id)))

	for k := 0; k < 2; k++ {
		pos := distuv.Uniform{
			Min: math.Min(ri.Corner1[k], ri.Corner2[k]),
			Max: math.Max(ri.Corner1[k], ri.Corner2[k]),
			Src: src,
		}
		b.Pos[k] = pos.Rand()
	}
	theta := distuv.Uniform{Min: 0, Max: 2 * math.Pi, Src: src}.Rand()
	b.Vel = [2]float64{
		ri.VelocityRange[0] * math.Sin(theta),
		ri.VelocityRange[1] * math.Cos(theta),
	}

	b.Mass = ri.Mass
	if b.Mass == 0 {
		b.Mass = DefaultMass
	}
	b.Force = [2]float64{}
	return nil
}

// PresetIniter hands out a fixed list of bodies.
type PresetIniter struct {
	Bodies []Body
}

func (pi *PresetIniter) Visit(b *Body, id, size int) error {
	if len(pi.Bodies) != size {
		return fmt.Errorf(
			"%d preset bodies were given, but the system holds %d",
			len(pi.Bodies), size,
		)
	} else if pi.Bodies[id].Mass <= 0 {
		return fmt.Errorf(
			"preset body %d has non-positive mass %g", id, pi.Bodies[id].Mass,
		)
	}
	*b = pi.Bodies[id]
	b.Force = [2]float64{}
	return nil
}
