/*package wire solves one-dimensional heat conduction along a wire which is
cut into fragments, one per rank, arranged in a chain. The two ends of the
wire are held at fixed temperatures.

Each fragment is a slice of elements. The element at a cut in the wire is a
Boundary element: it exchanges its temperature with the matching Boundary
element of the neighboring fragment every cycle.
*/
package wire

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/phil-mansfield/gogrid/geom"
	"github.com/phil-mansfield/gogrid/logging"
	"github.com/phil-mansfield/gogrid/mpi"
	"github.com/phil-mansfield/gogrid/stencil"
)

// NoElement marks a missing neighbor.
const NoElement = -1

// Kind is the kind of an element.
type Kind int

const (
	// Static elements have a fixed temperature.
	Static Kind = iota
	// Free elements take the mean temperature of their neighbors.
	Free
	// Boundary elements take the mean of their local neighbor and of the
	// Boundary element at the other side of the cut.
	Boundary
)

func (k Kind) String() string {
	switch k {
	case Static:
		return "S"
	case Free:
		return "W"
	case Boundary:
		return "C"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Element is one point on the wire. Left and Right index into the owning
// fragment's element slice, or are NoElement. Peer is the rank holding the
// other side of a Boundary element's cut.
type Element struct {
	Kind        Kind
	Temp        float64
	Left, Right int
	Peer        int

	next float64
}

// Equation computes the next temperature of an element from its current
// temperature x and those of its neighbors. left or right is nil when the
// element has no neighbor on that side. For a Boundary element the value
// received from across the cut stands in for its missing local neighbor.
type Equation func(left *float64, x float64, right *float64) float64

// Average is the default Equation: the mean of the neighbors which exist, or
// x if there are none.
func Average(left *float64, x float64, right *float64) float64 {
	sum, n := 0.0, 0
	if left != nil {
		sum, n = sum+*left, n+1
	}
	if right != nil {
		sum, n = sum+*right, n+1
	}
	if n == 0 {
		return x
	}
	return sum / float64(n)
}

// Params describe the wire.
type Params struct {
	// Length is the number of elements in the whole wire.
	Length int
	// Cold and Hot are the temperatures of the first and last element.
	Cold, Hot float64
	// Initial is the starting temperature of every other element.
	Initial float64
	// Equation updates Free and Boundary elements. Nil means Average. It is
	// shared by every rank, so it must be safe for concurrent use.
	Equation Equation
}

// DefaultParams returns the wire of the classic demonstration: a wire at
// room temperature with one end at 0 and the other at 100.
func DefaultParams(length int) Params {
	return Params{Length: length, Cold: 0, Hot: 100, Initial: 20}
}

// Fragment is the calling rank's piece of the wire.
type Fragment struct {
	Elements []Element
	// Offset is the index of the first element within the whole wire.
	Offset int

	comm  mpi.Comm
	chain geom.Chain
	log   *slog.Logger
	eq    Equation
	msg   []float64
}

// NewFragment creates the calling rank's fragment. The wire is split as
// evenly as possible and every fragment must get at least two elements.
func NewFragment(comm mpi.Comm, p Params, log *slog.Logger) (*Fragment, error) {
	k, rank := comm.Size(), comm.Rank()
	if p.Length < 2*k {
		return nil, geom.NewConfigError(
			"a wire of %d elements cannot be split into %d fragments of "+
				"at least two elements", p.Length, k,
		)
	}

	lo, hi := geom.Partition(p.Length, k, rank)
	f := &Fragment{
		Elements: make([]Element, hi-lo+1),
		Offset:   lo,
		comm:     comm,
		chain:    geom.Chain{Size: k},
		log:      logging.ForRank(log, rank),
		eq:       p.Equation,
		msg:      make([]float64, 1),
	}
	if f.eq == nil {
		f.eq = Average
	}

	last := len(f.Elements) - 1
	for i := range f.Elements {
		e := &f.Elements[i]
		e.Kind, e.Temp, e.Peer = Free, p.Initial, mpi.ProcNull
		e.Left, e.Right = i-1, i+1
		if i == 0 {
			e.Left = NoElement
		}
		if i == last {
			e.Right = NoElement
		}
	}

	ends := [2]struct {
		idx, peer int
		temp      float64
	}{
		{0, f.chain.Left(rank), p.Cold},
		{last, f.chain.Right(rank), p.Hot},
	}
	for _, end := range ends {
		e := &f.Elements[end.idx]
		if end.peer == mpi.ProcNull {
			e.Kind, e.Temp = Static, end.temp
		} else {
			e.Kind, e.Peer = Boundary, end.peer
		}
	}

	f.log.Info("fragment", "offset", lo, "elements", f.Kinds())
	return f, nil
}

// Kinds returns the kinds of the fragment's elements as a string, one
// letter per element.
func (f *Fragment) Kinds() string {
	sb := &strings.Builder{}
	for i := range f.Elements {
		sb.WriteString(f.Elements[i].Kind.String())
	}
	return sb.String()
}

// Temps returns the current temperatures of the fragment.
func (f *Fragment) Temps() []float64 {
	out := make([]float64, len(f.Elements))
	for i := range f.Elements {
		out[i] = f.Elements[i].Temp
	}
	return out
}

// neighbor returns a pointer to a copy of element i's temperature, or nil.
func (f *Fragment) neighbor(i int) *float64 {
	if i == NoElement {
		return nil
	}
	x := f.Elements[i].Temp
	return &x
}

// send posts the temperature of a Boundary element to its peer.
func (f *Fragment) send(e *Element) error {
	f.msg[0] = e.Temp
	req, err := f.comm.ISend(f.msg, mpi.Contiguous(1), e.Peer)
	if err != nil {
		return err
	}
	return req.Wait()
}

func (f *Fragment) recv(e *Element) (float64, error) {
	err := f.comm.Recv(f.msg, mpi.Contiguous(1), e.Peer)
	return f.msg[0], err
}

// update computes the next temperature of every element.
func (f *Fragment) update() error {
	for i := range f.Elements {
		e := &f.Elements[i]
		left, right := f.neighbor(e.Left), f.neighbor(e.Right)

		switch e.Kind {
		case Static:
			e.next = e.Temp
		case Free:
			e.next = f.eq(left, e.Temp, right)
		case Boundary:
			x, err := f.recv(e)
			if err != nil {
				return err
			}
			if left == nil {
				left = &x
			} else {
				right = &x
			}
			e.next = f.eq(left, e.Temp, right)
		default:
			panic(fmt.Sprintf("wire: element %d has unknown kind %v", i, e.Kind))
		}
	}
	return nil
}

// commit makes the next temperatures current, sends the new Boundary values
// to their peers, and returns true if no element moved by more than epsilon.
func (f *Fragment) commit(epsilon float64) (bool, error) {
	under := true
	for i := range f.Elements {
		e := &f.Elements[i]
		if !(math.Abs(e.next-e.Temp) <= epsilon) {
			under = false
		}
		e.Temp = e.next

		if e.Kind == Boundary {
			if err := f.send(e); err != nil {
				return false, err
			}
		}
	}
	return under, nil
}

// Run iterates the fragment until every fragment has converged during a
// sampling cycle or until maxCycles cycles have run. A negative maxCycles
// never gives up. Every rank must call Run.
func (f *Fragment) Run(
	maxCycles int, epsilon float64, samplingInterval int,
) (stencil.Result, error) {
	if epsilon < 0 || math.IsNaN(epsilon) {
		return stencil.Result{}, geom.NewConfigError(
			"epsilon must be non-negative, but is %g", epsilon,
		)
	}

	coord := stencil.NewCoordinator(f.comm, samplingInterval)

	// Boundary elements always have their peer's last value waiting for
	// them when they update.
	for i := range f.Elements {
		if f.Elements[i].Kind == Boundary {
			if err := f.send(&f.Elements[i]); err != nil {
				return stencil.Result{}, err
			}
		}
	}

	res := stencil.Result{State: stencil.ExhaustedCycles, Cycle: maxCycles}
	for cycle := 0; maxCycles < 0 || cycle < maxCycles; cycle++ {
		if err := f.update(); err != nil {
			return stencil.Result{}, err
		}
		under, err := f.commit(epsilon)
		if err != nil {
			return stencil.Result{}, err
		}

		f.log.Debug("cycle", "cycle", cycle, "under_epsilon", under)
		if !coord.ShouldSample(cycle) {
			continue
		}
		done, err := coord.AllConverged(under)
		if err != nil {
			return stencil.Result{}, err
		}
		if done {
			res = stencil.Result{State: stencil.Converged, Cycle: cycle}
			break
		}
	}

	if f.comm.Rank() == 0 {
		f.log.Info(res.State.String(), "cycle", res.Cycle)
	}
	return res, f.drain()
}

// drain receives the value each Boundary element's peer sent after the last
// commit, leaving no messages in flight between fragments.
func (f *Fragment) drain() error {
	for i := range f.Elements {
		if f.Elements[i].Kind == Boundary {
			if _, err := f.recv(&f.Elements[i]); err != nil {
				return err
			}
		}
	}
	return nil
}

// Gather collects the temperature profile of the whole wire on root. Other
// ranks receive nil.
func (f *Fragment) Gather(root int) ([]float64, error) {
	parts, err := mpi.Gatherv(f.comm, f.Temps(), root)
	if err != nil || parts == nil {
		return nil, err
	}
	var out []float64
	for _, part := range parts {
		out = append(out, part...)
	}
	return out, nil
}
