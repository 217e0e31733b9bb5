package mpi

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Run creates a world of the given size, calls f once per rank in its own
// goroutine, and waits for every rank to return.
//
// If any rank returns an error or panics, the world is aborted so that its peers are
// released from whatever they are blocked on, and Run returns the error
// which caused the abort. If ctx is cancelled before the ranks finish (for
// example by a watchdog timeout) the world is aborted in the same way.
func Run(ctx context.Context, size int, f func(c Comm) error) error {
	if size <= 0 {
		return fmt.Errorf("mpi: world size must be positive, but is %d", size)
	}

	w := newWorld(size)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			w.abort(fmt.Errorf("watchdog: %w", context.Cause(ctx)))
		case <-stop:
		}
	}()

	var g errgroup.Group
	for rank := 0; rank < size; rank++ {
		c := &localComm{w: w, rank: rank}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &PanicError{Rank: c.rank, Value: r}
				}
				if err != nil {
					w.abort(err)
				}
			}()
			return f(c)
		})
	}

	err := g.Wait()
	close(stop)
	if err == nil {
		return nil
	}
	if cause := w.abortCause(); cause != nil {
		return cause
	}
	return err
}

// world is the state shared by every rank of an in-process world. Nothing in
// it is visible to user code: ranks only see their localComm.
type world struct {
	size  int
	boxes []mailbox // boxes[src*size + dest]
	coll  collective

	once    sync.Once
	aborted chan struct{}
	cause   error
}

func newWorld(size int) *world {
	w := &world{
		size:    size,
		boxes:   make([]mailbox, size*size),
		aborted: make(chan struct{}),
	}
	for i := range w.boxes {
		w.boxes[i].ready = make(chan struct{}, 1)
	}
	w.coll.size = size
	w.coll.cur = &round{done: make(chan struct{})}
	return w
}

func (w *world) abort(cause error) {
	w.once.Do(func() {
		w.cause = cause
		close(w.aborted)
	})
}

// abortCause returns the reason the world was aborted, or nil.
func (w *world) abortCause() error {
	select {
	case <-w.aborted:
		if w.cause == nil {
			return ErrAborted
		}
		return w.cause
	default:
		return nil
	}
}

func (w *world) box(src, dest int) *mailbox { return &w.boxes[src*w.size+dest] }

// mailbox is an unbounded FIFO queue of messages from one rank to another.
// Sends never block, which is what makes paired send/recv exchanges
// deadlock-free regardless of which side arrives first.
type mailbox struct {
	mu    sync.Mutex
	queue [][]float64
	ready chan struct{}
}

func (m *mailbox) push(msg []float64) {
	m.mu.Lock()
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
}

// pop blocks until a message is available or abort is closed.
func (m *mailbox) pop(abort <-chan struct{}) ([]float64, bool) {
	for {
		m.mu.Lock()
		if len(m.queue) > 0 {
			msg := m.queue[0]
			m.queue[0] = nil
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return msg, true
		}
		m.mu.Unlock()

		select {
		case <-m.ready:
		case <-abort:
			return nil, false
		}
	}
}

// round is one collective operation. The last rank to arrive publishes the
// result by closing done and installs a fresh round for the next collective.
type round struct {
	acc  float64
	n    int
	done chan struct{}
}

type collective struct {
	mu   sync.Mutex
	size int
	cur  *round
}

func (c *collective) reduce(
	x float64, op Op, abort <-chan struct{},
) (float64, bool) {
	x = normalize(x, op)

	c.mu.Lock()
	r := c.cur
	if r.n == 0 {
		r.acc = x
	} else {
		r.acc = combine(op, r.acc, x)
	}
	r.n++
	if r.n == c.size {
		c.cur = &round{done: make(chan struct{})}
		close(r.done)
		c.mu.Unlock()
		return r.acc, true
	}
	c.mu.Unlock()

	select {
	case <-r.done:
		return r.acc, true
	case <-abort:
		return 0, false
	}
}

func normalize(x float64, op Op) float64 {
	if op == LAnd || op == LOr {
		if x != 0 {
			return 1
		}
		return 0
	}
	return x
}

func combine(op Op, a, b float64) float64 {
	switch op {
	case Sum:
		return a + b
	case Max:
		if b > a {
			return b
		}
		return a
	case Min:
		if b < a {
			return b
		}
		return a
	case LAnd:
		if a != 0 && b != 0 {
			return 1
		}
		return 0
	case LOr:
		if a != 0 || b != 0 {
			return 1
		}
		return 0
	}
	panic(fmt.Sprintf("mpi: unknown reduction operator %v", op))
}

// localComm is the Comm of one rank in an in-process world.
type localComm struct {
	w    *world
	rank int
}

func (c *localComm) Rank() int { return c.rank }
func (c *localComm) Size() int { return c.w.size }

func (c *localComm) Abort(cause error) { c.w.abort(cause) }

func (c *localComm) err(op string, peer int, err error) error {
	return &TransportError{Op: op, Rank: c.rank, Peer: peer, Err: err}
}

func (c *localComm) abortErr(op string, peer int) error {
	return c.err(op, peer, &abortError{cause: c.w.cause})
}

// check validates the arguments common to Send and Recv.
func (c *localComm) check(
	op string, buf []float64, dt Datatype, peer int,
) error {
	select {
	case <-c.w.aborted:
		return c.abortErr(op, peer)
	default:
	}

	if peer < 0 || peer >= c.w.size {
		return c.err(op, peer, fmt.Errorf(
			"rank %d is not in a world of size %d", peer, c.w.size,
		))
	} else if err := dt.Valid(); err != nil {
		return c.err(op, peer, err)
	} else if len(buf) < dt.Extent() {
		return c.err(op, peer, fmt.Errorf(
			"buffer of length %d is shorter than datatype extent %d",
			len(buf), dt.Extent(),
		))
	}
	return nil
}

func (c *localComm) Send(buf []float64, dt Datatype, dest int) error {
	if dest == ProcNull {
		return nil
	}
	if err := c.check("send", buf, dt, dest); err != nil {
		return err
	}

	msg := make([]float64, dt.Len())
	dt.Pack(msg, buf)
	c.w.box(c.rank, dest).push(msg)
	return nil
}

func (c *localComm) ISend(
	buf []float64, dt Datatype, dest int,
) (Request, error) {
	// Sends are eager, so the request has already completed.
	if err := c.Send(buf, dt, dest); err != nil {
		return nil, err
	}
	return doneRequest{}, nil
}

func (c *localComm) Recv(buf []float64, dt Datatype, src int) error {
	if src == ProcNull {
		return nil
	}
	if err := c.check("recv", buf, dt, src); err != nil {
		return err
	}

	msg, ok := c.w.box(src, c.rank).pop(c.w.aborted)
	if !ok {
		return c.abortErr("recv", src)
	}
	if len(msg) != dt.Len() {
		return c.err("recv", src, fmt.Errorf(
			"%w: got %d elements, expected %d", ErrTruncated, len(msg), dt.Len(),
		))
	}
	dt.Unpack(buf, msg)
	return nil
}

func (c *localComm) AllReduce(x float64, op Op) (float64, error) {
	select {
	case <-c.w.aborted:
		return 0, c.abortErr("allreduce", ProcNull)
	default:
	}

	res, ok := c.w.coll.reduce(x, op, c.w.aborted)
	if !ok {
		return 0, c.abortErr("allreduce", ProcNull)
	}
	return res, nil
}

func (c *localComm) Barrier() error {
	select {
	case <-c.w.aborted:
		return c.abortErr("barrier", ProcNull)
	default:
	}

	if _, ok := c.w.coll.reduce(0, Sum, c.w.aborted); !ok {
		return c.abortErr("barrier", ProcNull)
	}
	return nil
}

type doneRequest struct{}

func (doneRequest) Wait() error { return nil }
func (doneRequest) Test() bool  { return true }
