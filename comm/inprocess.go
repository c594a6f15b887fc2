package comm

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
)

func init() {
	Register("inprocess", func(n int) ([]Communicator, error) {
		return NewInProcess(n)
	})
}

// world is the state shared by the n communicators of one in-process group:
// a cyclic generation barrier, a per-rank deposit slot used by collectives,
// and buffered per-pair mailboxes for point-to-point exchanges.
type world struct {
	n     int
	mu    sync.Mutex
	cond  *sync.Cond
	calls int // arrivals in the current generation
	gen   int

	slots []any
	boxes [][]chan []byte // boxes[from][to]
}

func newWorld(n int) *world {
	w := &world{
		n:     n,
		slots: make([]any, n),
		boxes: make([][]chan []byte, n),
	}
	w.cond = sync.NewCond(&w.mu)
	for i := range w.boxes {
		w.boxes[i] = make([]chan []byte, n)
		for j := range w.boxes[i] {
			w.boxes[i][j] = make(chan []byte, 1)
		}
	}
	return w
}

// await blocks until all n members have called it; the last arrival releases
// the generation. Deposits made into slots before an await are visible to
// every member after it.
func (w *world) await() {
	w.mu.Lock()
	defer w.mu.Unlock()
	gen := w.gen
	w.calls++
	if w.calls == w.n {
		w.calls = 0
		w.gen++
		w.cond.Broadcast()
		return
	}
	for gen == w.gen {
		w.cond.Wait()
	}
}

// InProcess is a Communicator whose group members are goroutines of the same
// process, linked through shared memory. It exists so that the SPMD protocols
// of this module can run (and be tested) without a message-passing runtime:
// NewInProcess returns n communicators and the caller drives each from its
// own goroutine.
type InProcess struct {
	rank int
	w    *world
}

// NewInProcess creates n linked in-process communicators.
func NewInProcess(n int) ([]Communicator, error) {
	if n <= 0 {
		return nil, errors.Errorf("comm.NewInProcess: group size must be positive, got %d", n)
	}
	w := newWorld(n)
	cs := make([]Communicator, n)
	for i := range cs {
		cs[i] = &InProcess{rank: i, w: w}
	}
	return cs, nil
}

// Rank implements Communicator.
func (c *InProcess) Rank() int { return c.rank }

// Size implements Communicator.
func (c *InProcess) Size() int { return c.w.n }

// Barrier implements Communicator.
func (c *InProcess) Barrier() error {
	c.w.await()
	return nil
}

// Broadcast implements Communicator.
func (c *InProcess) Broadcast(buf []byte, root int) error {
	if root < 0 || root >= c.w.n {
		return errors.Errorf("comm.Broadcast: root %d outside group of size %d", root, c.w.n)
	}
	if c.rank == root {
		c.w.slots[c.rank] = buf
	}
	c.w.await()
	var err error
	if c.rank != root {
		src := c.w.slots[root].([]byte)
		if len(src) != len(buf) {
			err = errors.Errorf("comm.Broadcast: rank %d buffer length %d does not match root's %d",
				c.rank, len(buf), len(src))
		} else {
			copy(buf, src)
		}
	}
	c.w.await() // no slot is reused until every member has read it
	return err
}

// SendRecv implements Communicator.
func (c *InProcess) SendRecv(send []byte, to int, recv []byte, from int) error {
	if to < 0 || to >= c.w.n || from < 0 || from >= c.w.n {
		return errors.Errorf("comm.SendRecv: peer ranks (%d,%d) outside group of size %d", to, from, c.w.n)
	}
	c.w.boxes[c.rank][to] <- slices.Clone(send)
	msg := <-c.w.boxes[from][c.rank]
	if len(msg) != len(recv) {
		return errors.Errorf("comm.SendRecv: rank %d received %d bytes from %d, expected %d",
			c.rank, len(msg), from, len(recv))
	}
	copy(recv, msg)
	return nil
}

// AllGather implements Communicator.
func (c *InProcess) AllGather(send, recv []byte) error {
	if len(recv) != c.w.n*len(send) {
		return errors.Errorf("comm.AllGather: recv length %d is not %dx%d", len(recv), c.w.n, len(send))
	}
	c.w.slots[c.rank] = send
	c.w.await()
	portion := len(send)
	var err error
	for r := 0; r < c.w.n; r++ {
		src := c.w.slots[r].([]byte)
		if len(src) != portion {
			err = errors.Errorf("comm.AllGather: rank %d contributed %d bytes, expected %d", r, len(src), portion)
			continue
		}
		copy(recv[r*portion:(r+1)*portion], src)
	}
	c.w.await()
	return err
}

// Split implements Communicator.
func (c *InProcess) Split(color, key int) (Communicator, error) {
	type pair struct{ color, key int }
	c.w.slots[c.rank] = pair{color, key}
	c.w.await()
	all := make([]pair, c.w.n)
	for r := range all {
		all[r] = c.w.slots[r].(pair)
	}
	c.w.await()

	// Membership and new ranks are computed identically on every member:
	// same color, ordered by (key, parent rank).
	var members []int
	for r, p := range all {
		if p.color == color {
			members = append(members, r)
		}
	}
	slices.SortFunc(members, func(a, b int) int {
		if all[a].key != all[b].key {
			return all[a].key - all[b].key
		}
		return a - b
	})
	newRank := slices.Index(members, c.rank)

	// The lowest parent rank of each color creates the subgroup's world and
	// publishes it through its slot.
	leader := slices.Min(members)
	if c.rank == leader {
		c.w.slots[c.rank] = newWorld(len(members))
	}
	c.w.await()
	sub := c.w.slots[leader].(*world)
	c.w.await()
	return &InProcess{rank: newRank, w: sub}, nil
}
