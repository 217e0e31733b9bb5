package wire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/mpi"
	"github.com/phil-mansfield/gogrid/stencil"
)

func TestFragmentLayout(t *testing.T) {
	out, err := Run(context.Background(), 3, DefaultParams(10), 0, 0, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"SWC", "CWC", "CWWS"}, out.Kinds)
	assert.Equal(t, stencil.Result{State: stencil.ExhaustedCycles}, out.Result)
	assert.Equal(t, []float64{0, 20, 20, 20, 20, 20, 20, 20, 20, 100},
		out.Profile)
}

func TestNeighborIndices(t *testing.T) {
	err := mpi.Run(context.Background(), 2, func(c mpi.Comm) error {
		f, err := NewFragment(c, DefaultParams(6), nil)
		if err != nil {
			return err
		}

		first, last := f.Elements[0], f.Elements[2]
		assert.Equal(t, NoElement, first.Left)
		assert.Equal(t, 1, first.Right)
		assert.Equal(t, 1, last.Left)
		assert.Equal(t, NoElement, last.Right)

		if c.Rank() == 0 {
			assert.Equal(t, Static, first.Kind)
			assert.Equal(t, Boundary, last.Kind)
			assert.Equal(t, 1, last.Peer)
		} else {
			assert.Equal(t, Boundary, first.Kind)
			assert.Equal(t, 0, first.Peer)
			assert.Equal(t, Static, last.Kind)
			assert.Equal(t, 3, f.Offset)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDistributedMatchesSequential(t *testing.T) {
	p := DefaultParams(24)

	seq, err := Run(context.Background(), 1, p, 100000, 1e-6, 10, nil)
	require.NoError(t, err)
	require.Equal(t, stencil.Converged, seq.Result.State)

	for _, workers := range []int{2, 3, 4} {
		par, err := Run(context.Background(), workers, p, 100000, 1e-6, 10, nil)
		require.NoError(t, err)
		assert.Equal(t, seq.Result, par.Result, "workers = %d", workers)
		assert.Equal(t, seq.Profile, par.Profile, "workers = %d", workers)
	}
}

func TestConvergesToLine(t *testing.T) {
	out, err := Run(context.Background(), 4, DefaultParams(12), -1, 1e-10, 10, nil)
	require.NoError(t, err)
	require.Equal(t, stencil.Converged, out.Result.State)
	assert.Equal(t, 0, out.Result.Cycle%10)

	for i, x := range out.Profile {
		assert.InDelta(t, 100*float64(i)/11, x, 1e-6, "element %d", i)
	}
}

func TestExhausted(t *testing.T) {
	out, err := Run(context.Background(), 2, DefaultParams(40), 5, 1e-10, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, stencil.Result{State: stencil.ExhaustedCycles, Cycle: 5},
		out.Result)
	// Five cycles are not enough for the cold end to reach the middle.
	assert.Equal(t, 20.0, out.Profile[19])
}

func TestEquation(t *testing.T) {
	ptr := func(x float64) *float64 { return &x }
	assert.Equal(t, 3.0, Average(nil, 3, nil))
	assert.Equal(t, 4.0, Average(ptr(4), 3, nil))
	assert.Equal(t, 5.0, Average(ptr(4), 3, ptr(6)))

	// Interior and cut elements always see both sides.
	twoSided := DefaultParams(12)
	twoSided.Equation = func(left *float64, x float64, right *float64) float64 {
		return (*left + *right) / 2
	}
	got, err := Run(context.Background(), 3, twoSided, 50, 0, 10, nil)
	require.NoError(t, err)
	want, err := Run(context.Background(), 3, DefaultParams(12), 50, 0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Profile, got.Profile)

	// An equation which keeps every temperature converges immediately.
	still := DefaultParams(12)
	still.Equation = func(left *float64, x float64, right *float64) float64 {
		return x
	}
	out, err := Run(context.Background(), 3, still, 50, 0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, stencil.Result{State: stencil.Converged, Cycle: 0}, out.Result)
	assert.Equal(t, 20.0, out.Profile[5])
}

func TestConfigErrors(t *testing.T) {
	_, err := Run(context.Background(), 3, DefaultParams(5), 10, 0, 1, nil)
	var ce *geom.ConfigError
	assert.True(t, errors.As(err, &ce))

	_, err = Run(context.Background(), 1, DefaultParams(5), 10, -1, 1, nil)
	assert.True(t, errors.As(err, &ce))
}
