// Package comm abstracts the message-passing runtime beneath the process
// grid. A Communicator is an opaque MPI-style communication group: it knows
// the caller's rank, the group size, and offers the small set of blocking
// point-to-point and collective operations the redistribution protocols are
// built from.
//
// All operations are synchronous and blocking, and every member of a group
// must issue matching collective calls in the same order with consistent
// buffer sizes; a divergence hangs rather than errors, so callers validate
// everything locally before communicating.
//
// Implementations register a Launcher under a name (see Register); the
// in-process implementation, registered as "inprocess", is the default and is
// what tests and single-machine runs use. The GRIDMAT_COMM environment
// variable selects the implementation used by NewGroup.
package comm

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
)

// Communicator is a communication group handle. Rank identifies the caller
// within the group; buffers are raw bytes so that the same group can carry any
// element type (see Bytes).
type Communicator interface {
	// Rank returns the caller's rank within the group, in [0, Size).
	Rank() int

	// Size returns the number of processes in the group.
	Size() int

	// Barrier blocks until every member of the group has entered it.
	Barrier() error

	// Broadcast sends root's buf to every member; on return every
	// participant's buf holds root's bytes. All participants must pass
	// buffers of the same length.
	Broadcast(buf []byte, root int) error

	// SendRecv performs a paired exchange: send is delivered to rank `to`
	// while recv is filled with the bytes sent by rank `from`. The matching
	// calls on `to` and `from` must use buffer lengths agreeing with this
	// one's.
	SendRecv(send []byte, to int, recv []byte, from int) error

	// AllGather concatenates every member's send buffer, in rank order, into
	// every member's recv buffer. All send buffers must have equal length and
	// len(recv) must be Size()*len(send).
	AllGather(send, recv []byte) error

	// Split partitions the group: members passing the same color form a new
	// group, ranked by key (ties broken by parent rank). Every member of the
	// parent group must call Split collectively.
	Split(color, key int) (Communicator, error)
}

// Launcher constructs n linked communicators, one per simulated or real
// process, for the implementation registered under a given name.
type Launcher func(n int) ([]Communicator, error)

var (
	launchers     = make(map[string]Launcher)
	firstLauncher string
)

// Register makes a communicator implementation available to NewGroup under
// the given name. Call it during package initialization.
func Register(name string, l Launcher) {
	if len(launchers) == 0 {
		firstLauncher = name
	}
	launchers[name] = l
}

// GRIDMAT_COMM is the environment variable naming the communicator
// implementation NewGroup should use.
const GRIDMAT_COMM = "GRIDMAT_COMM"

// NewGroup creates n linked communicators using the implementation named by
// the GRIDMAT_COMM environment variable, falling back to the first registered
// implementation ("inprocess" unless another package registered earlier).
func NewGroup(n int) ([]Communicator, error) {
	name, found := os.LookupEnv(GRIDMAT_COMM)
	if !found {
		name = firstLauncher
	}
	l, ok := launchers[name]
	if !ok {
		return nil, errors.Errorf("comm.NewGroup: no communicator implementation registered under %q", name)
	}
	return l(n)
}

// Bytes reinterprets a slice of fixed-size elements as its underlying bytes,
// without copying. The returned slice aliases s.
func Bytes[T any](s []T) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*int(unsafe.Sizeof(s[0])))
}

// AsTyped reinterprets a byte slice as a slice of fixed-size elements,
// without copying; len(b) must be a multiple of the element size and b must
// be suitably aligned (byte slabs from make are). The returned slice aliases
// b.
func AsTyped[T any](b []byte) []T {
	if len(b) == 0 {
		return nil
	}
	var zero T
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/int(unsafe.Sizeof(zero)))
}

// SizeOf returns the byte size of a fixed-size value.
func SizeOf[T any](v T) uintptr { return unsafe.Sizeof(v) }

// BroadcastValue broadcasts a single value from root to every member of c and
// returns the value each participant observes.
func BroadcastValue[T any](c Communicator, v T, root int) (T, error) {
	buf := []T{v}
	if err := c.Broadcast(Bytes(buf), root); err != nil {
		return v, err
	}
	return buf[0], nil
}
