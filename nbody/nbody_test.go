package nbody

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/mpi"
)

var testParams = Params{MinR: 1e-3, G: 1}

func testIniter() *RandomIniter {
	return &RandomIniter{
		Corner1:       [2]float64{-1, -1},
		Corner2:       [2]float64{1, 1},
		VelocityRange: [2]float64{0.1, 0.2},
		Mass:          1,
		Seed:          7,
	}
}

func TestForceFrom(t *testing.T) {
	a := &Body{Pos: [2]float64{0, 0}, Mass: 2}
	b := &Body{Pos: [2]float64{3, 4}, Mass: 5}

	f, r := a.ForceFrom(b)
	assert.Equal(t, 5.0, r)
	// |f| = m1 m2 / r^2 along the unit vector (3/5, 4/5).
	assert.InDelta(t, 10.0/25*3/5, f[0], 1e-12)
	assert.InDelta(t, 10.0/25*4/5, f[1], 1e-12)

	interact(a, b, 0)
	assert.Equal(t, f, a.Force)
	assert.Equal(t, [2]float64{-f[0], -f[1]}, b.Force)

	c := &Body{Pos: [2]float64{0, 0.5}, Mass: 1}
	d := &Body{Pos: [2]float64{0, 0}, Mass: 1}
	interact(c, d, 1)
	assert.Equal(t, [2]float64{}, c.Force, "closer than MinR")
}

func TestTwoBodiesFall(t *testing.T) {
	s, err := NewSystem(2, testParams, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(&PresetIniter{Bodies: []Body{
		{Pos: [2]float64{-1, 0}, Mass: 1},
		{Pos: [2]float64{1, 0}, Mass: 1},
	}}))

	require.NoError(t, s.Run(10, 0.01))
	assert.Greater(t, s.Bodies[0].Pos[0], -1.0)
	assert.Less(t, s.Bodies[1].Pos[0], 1.0)
	assert.InDelta(t, -s.Bodies[0].Pos[0], s.Bodies[1].Pos[0], 1e-12)
	assert.Equal(t, 0.0, s.Bodies[0].Pos[1])
}

func TestLeapfrogStart(t *testing.T) {
	s, err := NewSystem(2, testParams, nil)
	require.NoError(t, err)
	require.NoError(t, s.Init(&PresetIniter{Bodies: []Body{
		{Pos: [2]float64{-1, 0}, Vel: [2]float64{0, 1}, Mass: 1},
		{Pos: [2]float64{1, 0}, Vel: [2]float64{0, -1}, Mass: 1},
	}}))

	require.NoError(t, s.Run(1, 0.1))
	// No drift on the first step and only half a kick.
	assert.Equal(t, [2]float64{-1, 0}, s.Bodies[0].Pos)
	assert.InDelta(t, 0.25*0.05, s.Bodies[0].Vel[0], 1e-12)
}

func TestRingMatchesSequential(t *testing.T) {
	const (
		workers = 4
		perRank = 4
		iters   = 40
		h       = 1e-3
	)

	seq, err := Run(context.Background(), 1, workers*perRank, iters, h,
		testParams, testIniter(), nil)
	require.NoError(t, err)
	par, err := Run(context.Background(), workers, perRank, iters, h,
		testParams, testIniter(), nil)
	require.NoError(t, err)

	require.Len(t, par.Bodies, len(seq.Bodies))
	for i := range seq.Bodies {
		for k := 0; k < 2; k++ {
			assert.InDelta(t, seq.Bodies[i].Pos[k], par.Bodies[i].Pos[k], 1e-9,
				"body %d", i)
			assert.InDelta(t, seq.Bodies[i].Vel[k], par.Bodies[i].Vel[k], 1e-9,
				"body %d", i)
		}
		assert.Equal(t, seq.Bodies[i].Mass, par.Bodies[i].Mass)
	}
}

func TestBodyCodecReset(t *testing.T) {
	b := Body{Pos: [2]float64{1, 2}, Force: [2]float64{3, 4}, Mass: 5}
	bodyCodec{}.Reset(&b)
	assert.Equal(t, Body{Pos: [2]float64{1, 2}, Mass: 5}, b)
}

func TestRingConservesMomentum(t *testing.T) {
	var before, after [2]float64

	err := mpi.Run(context.Background(), 3, func(c mpi.Comm) error {
		s, err := NewRingSystem(c, 2, testParams, nil)
		if err != nil {
			return err
		}
		if err := s.Init(testIniter()); err != nil {
			return err
		}

		bodies, err := s.Gather(0)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			before = Momentum(bodies)
		}

		if err := s.Run(25, 1e-3); err != nil {
			return err
		}
		bodies, err = s.Gather(0)
		if c.Rank() == 0 {
			after = Momentum(bodies)
		}
		return err
	})
	require.NoError(t, err)

	assert.InDelta(t, before[0], after[0], 1e-12)
	assert.InDelta(t, before[1], after[1], 1e-12)
}

func TestRingSystemConfigErrors(t *testing.T) {
	err := mpi.Run(context.Background(), 2, func(c mpi.Comm) error {
		_, err := NewRingSystem(c, 3, testParams, nil)
		var ce *geom.ConfigError
		assert.True(t, errors.As(err, &ce))

		_, err = NewRingSystem(c, 2, Params{MinR: -1}, nil)
		assert.True(t, errors.As(err, &ce))
		return nil
	})
	require.NoError(t, err)

	_, err = Run(context.Background(), 2, 5, 1, 0.1, testParams, testIniter(), nil)
	var ce *geom.ConfigError
	assert.True(t, errors.As(err, &ce))
}

func TestIniters(t *testing.T) {
	ri := testIniter()
	a, b := Body{}, Body{}
	require.NoError(t, ri.Visit(&a, 3, 10))
	require.NoError(t, ri.Visit(&b, 3, 10))
	assert.Equal(t, a, b, "same id, same body")

	for id := 0; id < 10; id++ {
		require.NoError(t, ri.Visit(&a, id, 10))
		for k := 0; k < 2; k++ {
			assert.True(t, a.Pos[k] >= -1 && a.Pos[k] <= 1)
		}
		assert.Equal(t, 1.0, a.Mass)
	}

	c := Body{}
	require.NoError(t, ri.Visit(&c, 4, 10))
	assert.NotEqual(t, a.Pos, c.Pos, "different ids, different bodies")

	// Velocities lie on the ellipse set by VelocityRange.
	vx, vy := a.Vel[0]/ri.VelocityRange[0], a.Vel[1]/ri.VelocityRange[1]
	assert.InDelta(t, 1, vx*vx+vy*vy, 1e-12)

	// Collapsed corners pin the position.
	flat := &RandomIniter{Corner1: [2]float64{2, 3}, Corner2: [2]float64{2, 3}}
	require.NoError(t, flat.Visit(&c, 1, 2))
	assert.Equal(t, [2]float64{2, 3}, c.Pos)
	assert.Equal(t, DefaultMass, c.Mass)

	pi := &PresetIniter{Bodies: make([]Body, 2)}
	assert.Error(t, pi.Visit(&a, 0, 3), "wrong size")
	assert.Error(t, pi.Visit(&a, 0, 2), "zero mass")
}

func BenchmarkRingStep(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Run(context.Background(), 4, 32, 1, 1e-3, testParams, testIniter(), nil)
	}
}
