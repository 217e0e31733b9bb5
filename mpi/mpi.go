/*package mpi is a small message passing substrate modeled on the subset of MPI
that domain decomposition codes actually use: ranks, blocking and non-blocking
point-to-point messages of float64 data described by a Datatype, all-reduce
over a scalar, and barriers.

A world of ranks is created with Run, which starts one goroutine per rank and
hands each one its own Comm. Ranks share nothing except the messages they
exchange through it, so code written against Comm is SPMD code: every rank
runs the same function and branches on Rank().

Any rank may Abort the world. Every operation blocked in (or later entering)
the substrate then fails with a *TransportError wrapping ErrAborted, which is
how a failure on one rank is kept from hanging the others.
*/
package mpi

import (
	"errors"
	"fmt"
)

// ProcNull is the rank of a non-existent peer. Sends to and receives from
// ProcNull complete immediately without transferring data.
const ProcNull = -1

var (
	// ErrAborted is wrapped by every error returned after the world has been
	// aborted.
	ErrAborted = errors.New("mpi: world aborted")
	// ErrTruncated is wrapped when a received message does not have the
	// length the receiver's Datatype expects.
	ErrTruncated = errors.New("mpi: message length does not match datatype")
)

// Op is a reduction operator for AllReduce.
type Op int

const (
	Sum Op = iota
	Max
	Min
	// LAnd is logical and: nonzero values are true, the result is 1 or 0.
	LAnd
	// LOr is logical or.
	LOr
)

func (op Op) String() string {
	switch op {
	case Sum:
		return "Sum"
	case Max:
		return "Max"
	case Min:
		return "Min"
	case LAnd:
		return "LAnd"
	case LOr:
		return "LOr"
	}
	return fmt.Sprintf("Op(%d)", int(op))
}

// Comm is one rank's handle on the world.
type Comm interface {
	// Rank returns the rank of the caller, 0 <= Rank() < Size().
	Rank() int
	// Size returns the number of ranks in the world.
	Size() int

	// Send transmits the region of buf described by dt to dest. The data is
	// copied before Send returns, so buf may be reused immediately.
	Send(buf []float64, dt Datatype, dest int) error
	// ISend starts a send and returns a handle for its completion.
	ISend(buf []float64, dt Datatype, dest int) (Request, error)
	// Recv blocks until the next message from src arrives and scatters it
	// into the region of buf described by dt.
	Recv(buf []float64, dt Datatype, src int) error

	// AllReduce combines x across every rank with op and returns the result
	// on every rank. Every rank must call it, in the same order relative to
	// other collectives.
	AllReduce(x float64, op Op) (float64, error)
	// Barrier blocks until every rank has called Barrier.
	Barrier() error

	// Abort releases every rank blocked in the substrate with an error
	// wrapping ErrAborted and cause.
	Abort(cause error)
}

// Request is the handle of a non-blocking operation.
type Request interface {
	// Wait blocks until the operation completes.
	Wait() error
	// Test reports whether the operation has completed without blocking.
	Test() bool
}

// TransportError reports a failed substrate operation.
type TransportError struct {
	Op         string
	Rank, Peer int
	Err        error
}

func (e *TransportError) Error() string {
	if e.Peer == ProcNull {
		return fmt.Sprintf("mpi: rank %d: %s: %v", e.Rank, e.Op, e.Err)
	}
	return fmt.Sprintf(
		"mpi: rank %d: %s with rank %d: %v", e.Rank, e.Op, e.Peer, e.Err,
	)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PanicError is returned by Run when a rank panics.
type PanicError struct {
	Rank  int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("mpi: rank %d panicked: %v", e.Rank, e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// abortError carries the reason a world was aborted.
type abortError struct {
	cause error
}

func (e *abortError) Error() string {
	if e.cause == nil {
		return ErrAborted.Error()
	}
	return fmt.Sprintf("%s: %v", ErrAborted.Error(), e.cause)
}

func (e *abortError) Is(target error) bool { return target == ErrAborted }

func (e *abortError) Unwrap() error { return e.cause }

// AllTrue returns true on every rank if b is true on every rank.
func AllTrue(c Comm, b bool) (bool, error) {
	x := 0.0
	if b {
		x = 1
	}
	res, err := c.AllReduce(x, LAnd)
	return res != 0, err
}
