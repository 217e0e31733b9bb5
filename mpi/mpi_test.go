package mpi

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatatypePackUnpack(t *testing.T) {
	// A 3x4 row-major matrix.
	src := []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	}

	col := Vector(3, 1, 4)
	assert.Equal(t, 3, col.Len())
	assert.Equal(t, 9, col.Extent())

	packed := make([]float64, col.Len())
	col.Pack(packed, src[2:])
	assert.Equal(t, []float64{2, 6, 10}, packed)

	dst := make([]float64, len(src))
	col.Unpack(dst[1:], []float64{-1, -2, -3})
	assert.Equal(t, []float64{
		0, -1, 0, 0,
		0, -2, 0, 0,
		0, -3, 0, 0,
	}, dst)

	row := Contiguous(4)
	packed = make([]float64, 4)
	row.Pack(packed, src[4:])
	assert.Equal(t, []float64{4, 5, 6, 7}, packed)

	assert.Equal(t, 0, Vector(0, 1, 4).Extent())
	assert.Error(t, Vector(2, 3, 2).Valid())
	assert.Error(t, Vector(-1, 1, 1).Valid())
	assert.NoError(t, Vector(1, 3, 0).Valid())
}

func TestRingSend(t *testing.T) {
	const size = 5
	got := make([]float64, size)

	err := Run(context.Background(), size, func(c Comm) error {
		next := (c.Rank() + 1) % c.Size()
		prev := (c.Rank() - 1 + c.Size()) % c.Size()

		req, err := c.ISend([]float64{float64(c.Rank())}, Contiguous(1), next)
		if err != nil {
			return err
		}
		buf := []float64{0}
		if err := c.Recv(buf, Contiguous(1), prev); err != nil {
			return err
		}
		if err := req.Wait(); err != nil {
			return err
		}
		got[c.Rank()] = buf[0]
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []float64{4, 0, 1, 2, 3}, got)
}

func TestMessagesDoNotOvertake(t *testing.T) {
	err := Run(context.Background(), 2, func(c Comm) error {
		if c.Rank() == 0 {
			for i := 0; i < 100; i++ {
				if err := c.Send([]float64{float64(i)}, Contiguous(1), 1); err != nil {
					return err
				}
			}
			return nil
		}

		buf := []float64{0}
		for i := 0; i < 100; i++ {
			if err := c.Recv(buf, Contiguous(1), 0); err != nil {
				return err
			}
			if buf[0] != float64(i) {
				return errors.New("message overtaken")
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestProcNull(t *testing.T) {
	err := Run(context.Background(), 1, func(c Comm) error {
		buf := []float64{7}
		if err := c.Send(buf, Contiguous(1), ProcNull); err != nil {
			return err
		}
		if err := c.Recv(buf, Contiguous(1), ProcNull); err != nil {
			return err
		}
		assert.Equal(t, 7.0, buf[0], "null receive must not touch the buffer")
		return nil
	})
	require.NoError(t, err)
}

func TestAllReduce(t *testing.T) {
	const size = 6
	tests := []struct {
		op   Op
		in   func(rank int) float64
		want float64
	}{
		{Sum, func(r int) float64 { return float64(r) }, 15},
		{Max, func(r int) float64 { return float64(r * r) }, 25},
		{Min, func(r int) float64 { return float64(10 - r) }, 5},
		{LAnd, func(r int) float64 { return 1 }, 1},
		{LAnd, func(r int) float64 { return float64(r % 3) }, 0},
		{LOr, func(r int) float64 { return 0 }, 0},
		{LOr, func(r int) float64 { return float64(r / 5) }, 1},
	}

	for _, test := range tests {
		results := make([]float64, size)
		err := Run(context.Background(), size, func(c Comm) error {
			// Repeat to make sure rounds don't bleed into each other.
			for i := 0; i < 3; i++ {
				res, err := c.AllReduce(test.in(c.Rank()), test.op)
				if err != nil {
					return err
				}
				results[c.Rank()] = res
			}
			return c.Barrier()
		})
		require.NoError(t, err, test.op.String())
		for r := range results {
			assert.Equal(t, test.want, results[r], "%v on rank %d", test.op, r)
		}
	}
}

func TestAllTrue(t *testing.T) {
	err := Run(context.Background(), 4, func(c Comm) error {
		all, err := AllTrue(c, true)
		if err != nil {
			return err
		}
		assert.True(t, all)

		all, err = AllTrue(c, c.Rank() != 2)
		if err != nil {
			return err
		}
		assert.False(t, all)
		return nil
	})
	require.NoError(t, err)
}

func TestTruncated(t *testing.T) {
	err := Run(context.Background(), 2, func(c Comm) error {
		if c.Rank() == 0 {
			return c.Send([]float64{1, 2, 3}, Contiguous(3), 1)
		}
		return c.Recv(make([]float64, 2), Contiguous(2), 0)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTruncated)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Rank)
	assert.Equal(t, 0, te.Peer)
}

func TestBadPeer(t *testing.T) {
	err := Run(context.Background(), 2, func(c Comm) error {
		return c.Send([]float64{1}, Contiguous(1), 2)
	})
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "send", te.Op)
}

func TestAbortReleasesPeers(t *testing.T) {
	boom := errors.New("boom")
	var released int32

	err := Run(context.Background(), 4, func(c Comm) error {
		if c.Rank() == 3 {
			return boom
		}

		var err error
		if c.Rank() == 0 {
			// Waits for a message which will never be sent.
			err = c.Recv(make([]float64, 1), Contiguous(1), 3)
		} else {
			// Waits for a collective rank 3 never joins.
			_, err = c.AllReduce(1, LAnd)
		}
		if errors.Is(err, ErrAborted) {
			atomic.AddInt32(&released, 1)
		}
		return err
	})

	assert.Equal(t, boom, err, "Run reports the error which caused the abort")
	assert.Equal(t, int32(3), atomic.LoadInt32(&released))
}

func TestPanicAbortsWorld(t *testing.T) {
	cause := errors.New("bad state")
	var released int32

	err := Run(context.Background(), 3, func(c Comm) error {
		if c.Rank() == 1 {
			panic(cause)
		}
		err := c.Barrier()
		if errors.Is(err, ErrAborted) {
			atomic.AddInt32(&released, 1)
		}
		return err
	})

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Rank)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, int32(2), atomic.LoadInt32(&released))

	err = Run(context.Background(), 1, func(c Comm) error { panic("not an error") })
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "rank 0 panicked: not an error")
}

func TestWatchdog(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := Run(ctx, 2, func(c Comm) error {
		// Both ranks wait on each other: a classic deadlock.
		return c.Recv(make([]float64, 1), Contiguous(1), 1-c.Rank())
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunRejectsEmptyWorld(t *testing.T) {
	assert.Error(t, Run(context.Background(), 0, func(Comm) error { return nil }))
}

func TestGatherv(t *testing.T) {
	const size = 4
	var gathered [][]float64

	err := Run(context.Background(), size, func(c Comm) error {
		local := make([]float64, c.Rank()+1)
		for i := range local {
			local[i] = float64(10*c.Rank() + i)
		}
		out, err := Gatherv(c, local, 1)
		if err != nil {
			return err
		}
		if c.Rank() == 1 {
			gathered = out
		} else if out != nil {
			return errors.New("non-root rank received data")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, [][]float64{
		{0}, {10, 11}, {20, 21, 22}, {30, 31, 32, 33},
	}, gathered)
}

func BenchmarkAllReduce(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Run(context.Background(), 16, func(c Comm) error {
			_, err := c.AllReduce(1, Sum)
			return err
		})
	}
}
