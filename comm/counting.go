package comm

import "sync/atomic"

// Counting wraps a Communicator and counts every communication operation
// issued through it, including through sub-groups created by Split. It is a
// test aid: the fast-path laws of the redistribution protocol ("this
// conversion issues zero communication") are asserted with it.
type Counting struct {
	inner Communicator
	ops   *atomic.Int64
}

// NewCounting wraps c. Sub-communicators obtained via Split share the same
// counter.
func NewCounting(c Communicator) *Counting {
	return &Counting{inner: c, ops: &atomic.Int64{}}
}

// Ops returns the number of communication operations issued so far through
// this wrapper and its Split descendants.
func (c *Counting) Ops() int64 { return c.ops.Load() }

// Rank implements Communicator.
func (c *Counting) Rank() int { return c.inner.Rank() }

// Size implements Communicator.
func (c *Counting) Size() int { return c.inner.Size() }

// Barrier implements Communicator.
func (c *Counting) Barrier() error {
	c.ops.Add(1)
	return c.inner.Barrier()
}

// Broadcast implements Communicator.
func (c *Counting) Broadcast(buf []byte, root int) error {
	c.ops.Add(1)
	return c.inner.Broadcast(buf, root)
}

// SendRecv implements Communicator.
func (c *Counting) SendRecv(send []byte, to int, recv []byte, from int) error {
	c.ops.Add(1)
	return c.inner.SendRecv(send, to, recv, from)
}

// AllGather implements Communicator.
func (c *Counting) AllGather(send, recv []byte) error {
	c.ops.Add(1)
	return c.inner.AllGather(send, recv)
}

// Split implements Communicator. Split itself is not counted; the returned
// sub-communicator feeds the parent's counter.
func (c *Counting) Split(color, key int) (Communicator, error) {
	sub, err := c.inner.Split(color, key)
	if err != nil {
		return nil, err
	}
	return &Counting{inner: sub, ops: c.ops}, nil
}
