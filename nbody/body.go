/*package nbody integrates the motion of point masses under their mutual
gravity, either on a single rank or spread around a ring of ranks.

Both systems use the same leapfrog scheme: positions are not moved on the
first step and velocities only receive half a kick, after which every step
drifts positions by a full time step and kicks velocities by a full time
step.
*/
package nbody

import (
	"math"
)

// G is the gravitational constant in SI units.
const G = 6.67259e-11

// Body is a point mass. Force holds the force accumulated during the current
// step, without the factor of G.
type Body struct {
	Pos, Force, Vel [2]float64
	Mass            float64
}

// ForceFrom returns the force that o exerts on b, without the factor of G,
// along with the distance between them.
func (b *Body) ForceFrom(o *Body) (f [2]float64, r float64) {
	dx, dy := o.Pos[0]-b.Pos[0], o.Pos[1]-b.Pos[1]
	r = math.Sqrt(dx*dx + dy*dy)
	s := b.Mass * o.Mass / (r * r * r)
	return [2]float64{dx * s, dy * s}, r
}

// Kick changes the velocity of b by the accumulated force over the time
// step h.
func (b *Body) Kick(g, h float64) {
	b.Vel[0] += b.Force[0] * g * h / b.Mass
	b.Vel[1] += b.Force[1] * g * h / b.Mass
}

// Drift moves b along its velocity for the time step h.
func (b *Body) Drift(h float64) {
	b.Pos[0] += b.Vel[0] * h
	b.Pos[1] += b.Vel[1] * h
}

// Params are the physical parameters shared by both systems.
type Params struct {
	// MinR is the distance below which bodies don't attract each other.
	MinR float64
	// G is the gravitational constant. Zero means G.
	G float64
	// UpdateFreq is the number of steps between progress messages. Zero
	// turns them off.
	UpdateFreq int
}

func (p Params) g() float64 {
	if p.G == 0 {
		return G
	}
	return p.G
}

// interact adds the force between a and b to both bodies.
func interact(a, b *Body, minR float64) {
	f, r := a.ForceFrom(b)
	if r > minR {
		a.Force[0] += f[0]
		a.Force[1] += f[1]
		b.Force[0] -= f[0]
		b.Force[1] -= f[1]
	}
}

// step advances bodies by one leapfrog step. forces must leave the total
// force on every body in Force.
func step(
	bodies []Body, iter int, h, g float64, forces func() error,
) error {
	if iter > 0 {
		for i := range bodies {
			bodies[i].Drift(h)
		}
	}

	for i := range bodies {
		bodies[i].Force = [2]float64{}
	}
	if err := forces(); err != nil {
		return err
	}

	kick := h
	if iter == 0 {
		kick = h / 2
	}
	for i := range bodies {
		bodies[i].Kick(g, kick)
	}
	return nil
}

// Momentum returns the total momentum of bodies.
func Momentum(bodies []Body) [2]float64 {
	p := [2]float64{}
	for i := range bodies {
		p[0] += bodies[i].Mass * bodies[i].Vel[0]
		p[1] += bodies[i].Mass * bodies[i].Vel[1]
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position of bodies.
func CenterOfMass(bodies []Body) [2]float64 {
	c, m := [2]float64{}, 0.0
	for i := range bodies {
		c[0] += bodies[i].Mass * bodies[i].Pos[0]
		c[1] += bodies[i].Mass * bodies[i].Pos[1]
		m += bodies[i].Mass
	}
	if m == 0 {
		return c
	}
	return [2]float64{c[0] / m, c[1] / m}
}
