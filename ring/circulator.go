/*package ring circulates records around a ring of ranks so that every pair of
records in the world can interact exactly once, even though each rank only
holds its own records.

A Circulator passes a copy of each rank's records around the ring, one hop at
a time. At every hop the rank interacts its resident records with the copy
currently visiting it. Whatever the interactions accumulate on the visiting
copy travels along with it, and after a full trip around the ring the copy
returns home where it is merged back into the resident records.
*/
package ring

import (
	"log/slog"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
	"github.com/phil-mansfield/gogrid/mpi"
)

// Codec converts records to and from the float64 messages used by the
// messaging layer.
type Codec[T any] interface {
	// RecordLen returns the number of float64 values a record encodes to.
	RecordLen() int
	Encode(dst []float64, rec *T)
	Decode(rec *T, src []float64)
}

// Resetter may optionally be implemented by a Codec. Reset clears whatever
// interact accumulates on a record, and is called on the travelling copy of
// every record before the first hop so that merge only ever adds what the
// trip contributed.
type Resetter[T any] interface {
	Reset(rec *T)
}

// Stats summarizes a call to Circulate.
type Stats struct {
	Hops   int
	Visits int
}

// Circulator moves a fixed number of records per rank around a ring. The
// two buffers alternate roles each hop: buf[h%2] holds the records visiting
// during hop h, and buf[(h+1)%2] receives the records for hop h+1.
type Circulator[T any] struct {
	comm  mpi.Comm
	ring  geom.Ring
	codec Codec[T]
	n     int
	log   *slog.Logger

	buf [2][]T
	out []float64
	in  []float64
}

// New returns a Circulator for n records per rank.
func New[T any](
	comm mpi.Comm, codec Codec[T], n int, log *slog.Logger,
) (*Circulator[T], error) {
	if n < 0 {
		return nil, geom.NewConfigError(
			"record count must be non-negative, but is %d", n,
		)
	} else if codec == nil {
		return nil, geom.NewConfigError("no record codec given")
	} else if codec.RecordLen() <= 0 {
		return nil, geom.NewConfigError(
			"records must encode to at least one value, not %d",
			codec.RecordLen(),
		)
	}

	c := &Circulator[T]{
		comm:  comm,
		ring:  geom.Ring{Size: comm.Size()},
		codec: codec,
		n:     n,
		log:   logging.ForRank(log, comm.Rank()),
	}
	c.buf[0], c.buf[1] = make([]T, n), make([]T, n)
	c.out = make([]float64, n*codec.RecordLen())
	c.in = make([]float64, n*codec.RecordLen())
	return c, nil
}

// Len returns the number of records per rank.
func (c *Circulator[T]) Len() int { return c.n }

// Visits returns true if resident record i should interact with visiting
// record j at the given hop. src is the rank which owns the visiting records.
//
// At hop 0 the visitors are a copy of the residents, so only i < j is taken.
// At later hops two ranks meet twice, once at each end, and each of the two
// takes half the pairs: the ones with i < j, plus the diagonal i == j on the
// lower rank.
func Visits(rank, src, hop, i, j int) bool {
	if hop == 0 {
		return i < j
	}
	return i < j || (i == j && rank < src)
}

// Circulate sends a copy of resident around the ring. At every hop
// interact(&resident[i], &visitor[j]) is called for each pair chosen by
// Visits. Once the copy returns, merge(&resident[i], &returned[i]) is called
// for every record. Every rank must call Circulate.
//
// The copy starts out as resident. Unless the codec is a Resetter, anything
// accumulated on resident before the call travels with it and comes back
// through merge, so accumulators must then be zero on entry.
//
// Each hop finishes (send posted and waited on, receive satisfied) before
// the next one starts.
func (c *Circulator[T]) Circulate(
	resident []T, interact func(res, vis *T), merge func(res, ret *T),
) (Stats, error) {
	if len(resident) != c.n {
		return Stats{}, geom.NewConfigError(
			"circulator holds %d records, but was given %d",
			c.n, len(resident),
		)
	}

	rank, k := c.comm.Rank(), c.ring.Size
	next, prev := c.ring.Next(rank), c.ring.Prev(rank)
	dt := mpi.Contiguous(len(c.out))

	copy(c.buf[0], resident)
	if r, ok := c.codec.(Resetter[T]); ok {
		for i := range c.buf[0] {
			r.Reset(&c.buf[0][i])
		}
	}
	stats := Stats{}

	for hop := 0; hop < k; hop++ {
		vis, inc := c.buf[hop%2], c.buf[(hop+1)%2]
		src := (rank - hop + k) % k

		for i := range resident {
			for j := range vis {
				if Visits(rank, src, hop, i, j) {
					interact(&resident[i], &vis[j])
					stats.Visits++
				}
			}
		}

		c.encode(vis)
		req, err := c.comm.ISend(c.out, dt, next)
		if err != nil {
			return stats, err
		}
		if err := c.comm.Recv(c.in, dt, prev); err != nil {
			return stats, err
		}
		if err := req.Wait(); err != nil {
			return stats, err
		}
		c.decode(inc)

		stats.Hops++
		logging.Trace(c.log, "hop", "hop", hop, "src", src)
	}

	ret := c.buf[k%2]
	for i := range resident {
		merge(&resident[i], &ret[i])
	}

	return stats, nil
}

func (c *Circulator[T]) encode(recs []T) {
	m := c.codec.RecordLen()
	for i := range recs {
		c.codec.Encode(c.out[i*m:(i+1)*m], &recs[i])
	}
}

func (c *Circulator[T]) decode(recs []T) {
	m := c.codec.RecordLen()
	for i := range recs {
		c.codec.Decode(&recs[i], c.in[i*m:(i+1)*m])
	}
}
