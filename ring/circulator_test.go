package ring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/mpi"
)

// tag identifies a record and counts the interactions it took part in.
type tag struct {
	ID, Hits float64
}

type tagCodec struct{}

func (tagCodec) RecordLen() int { return 2 }

func (tagCodec) Encode(dst []float64, t *tag) {
	dst[0], dst[1] = t.ID, t.Hits
}

func (tagCodec) Decode(t *tag, src []float64) {
	t.ID, t.Hits = src[0], src[1]
}

// resetCodec clears Hits on the travelling copy.
type resetCodec struct{ tagCodec }

func (resetCodec) Reset(t *tag) { t.Hits = 0 }

type pair struct{ a, b int }

func newPair(a, b int) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

// circulate runs one circulation of n records per rank over k ranks and
// returns every pair visited, the final records, and each rank's stats.
func circulate(t *testing.T, k, n int) ([][]pair, [][]tag, []Stats) {
	pairs := make([][]pair, k)
	final := make([][]tag, k)
	stats := make([]Stats, k)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := mpi.Run(ctx, k, func(comm mpi.Comm) error {
		rank := comm.Rank()
		c, err := New[tag](comm, tagCodec{}, n, nil)
		if err != nil {
			return err
		}

		recs := make([]tag, n)
		for i := range recs {
			recs[i].ID = float64(rank*n + i)
		}

		interact := func(res, vis *tag) {
			pairs[rank] = append(pairs[rank], newPair(int(res.ID), int(vis.ID)))
			res.Hits++
			vis.Hits++
		}
		merge := func(res, ret *tag) {
			if res.ID != ret.ID {
				panic("a different record came home")
			}
			res.Hits += ret.Hits
		}

		stats[rank], err = c.Circulate(recs, interact, merge)
		final[rank] = recs
		return err
	})
	require.NoError(t, err)

	return pairs, final, stats
}

func TestCirculateVisitsEveryPairOnce(t *testing.T) {
	for _, k := range []int{1, 2, 3, 4, 7} {
		for _, n := range []int{1, 2, 4, 5} {
			pairs, final, stats := circulate(t, k, n)

			total := k * n
			seen := map[pair]int{}
			for rank := range pairs {
				for _, p := range pairs[rank] {
					seen[p]++
				}
			}

			assert.Equal(t, total*(total-1)/2, len(seen), "k = %d, n = %d", k, n)
			for p, count := range seen {
				assert.NotEqual(t, p.a, p.b, "self pair")
				assert.Equal(t, 1, count, "pair %v, k = %d, n = %d", p, k, n)
			}

			visits := 0
			for rank := range stats {
				assert.Equal(t, k, stats[rank].Hops)
				visits += stats[rank].Visits
			}
			assert.Equal(t, total*(total-1)/2, visits)

			// Round trip: every rank holds its own records, and every record
			// interacted with every other one.
			for rank := range final {
				for i, rec := range final[rank] {
					assert.Equal(t, float64(rank*n+i), rec.ID)
					assert.Equal(t, float64(total-1), rec.Hits,
						"k = %d, n = %d, record %d", k, n, rank*n+i)
				}
			}
		}
	}
}

func TestAccumulatorsOnEntry(t *testing.T) {
	const (
		k, n  = 3, 4
		total = k * n
		start = 5.0
	)

	tests := []struct {
		codec Codec[tag]
		want  float64
	}{
		{resetCodec{}, start + total - 1},
		{tagCodec{}, 2*start + total - 1},
	}

	for _, test := range tests {
		final := make([][]tag, k)
		err := mpi.Run(context.Background(), k, func(comm mpi.Comm) error {
			c, err := New[tag](comm, test.codec, n, nil)
			if err != nil {
				return err
			}
			recs := make([]tag, n)
			for i := range recs {
				recs[i] = tag{ID: float64(comm.Rank()*n + i), Hits: start}
			}
			_, err = c.Circulate(recs,
				func(res, vis *tag) { res.Hits++; vis.Hits++ },
				func(res, ret *tag) { res.Hits += ret.Hits },
			)
			final[comm.Rank()] = recs
			return err
		})
		require.NoError(t, err)

		for rank := range final {
			for _, rec := range final[rank] {
				assert.Equal(t, test.want, rec.Hits, "%T, record %g", test.codec, rec.ID)
			}
		}
	}
}

func TestSingleRankIsSelfPass(t *testing.T) {
	pairs, _, stats := circulate(t, 1, 4)
	assert.Equal(t, 1, stats[0].Hops)
	assert.Equal(t, 6, stats[0].Visits)
	assert.Len(t, pairs[0], 6)
}

func TestVisits(t *testing.T) {
	assert.False(t, Visits(0, 0, 0, 1, 1))
	assert.True(t, Visits(0, 0, 0, 0, 1))
	assert.False(t, Visits(0, 0, 0, 1, 0))

	assert.True(t, Visits(1, 2, 1, 3, 3))
	assert.False(t, Visits(2, 1, 1, 3, 3))
	assert.True(t, Visits(2, 1, 1, 0, 3))
	assert.False(t, Visits(1, 2, 1, 3, 0))
}

func TestNewErrors(t *testing.T) {
	err := mpi.Run(context.Background(), 1, func(comm mpi.Comm) error {
		_, err := New[tag](comm, tagCodec{}, -1, nil)
		assert.IsType(t, &geom.ConfigError{}, err)

		c, err := New[tag](comm, tagCodec{}, 2, nil)
		if err != nil {
			return err
		}
		_, err = c.Circulate(make([]tag, 3), nil, nil)
		assert.IsType(t, &geom.ConfigError{}, err)
		return nil
	})
	require.NoError(t, err)
}

func BenchmarkCirculate(b *testing.B) {
	for i := 0; i < b.N; i++ {
		mpi.Run(context.Background(), 4, func(comm mpi.Comm) error {
			c, err := New[tag](comm, tagCodec{}, 64, nil)
			if err != nil {
				return err
			}
			recs := make([]tag, 64)
			_, err = c.Circulate(recs,
				func(res, vis *tag) { res.Hits++; vis.Hits++ },
				func(res, ret *tag) { res.Hits += ret.Hits },
			)
			return err
		})
	}
}
