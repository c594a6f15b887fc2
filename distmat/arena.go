package distmat

import (
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"

	"github.com/gridmat/gridmat/comm"
)

// arenaRetain is the largest slab an arena keeps across Release; anything
// bigger is returned to the allocator so one oversized redistribution does
// not pin memory for the matrix's whole lifetime.
const arenaRetain = 1 << 22

// arena is a reusable byte slab for the transient pack/exchange buffers of
// one redistribution call. Require reserves capacity, arenaAlloc carves
// bounds-checked typed slices out of it, and Release ends the scope. Each
// DistMatrix owns one arena, so peak transient memory is bounded by roughly
// one source-sized plus one destination-sized panel per conversion.
type arena struct {
	buf []byte
	off int
}

// Require ensures the slab holds at least n bytes and resets the allocation
// cursor, beginning a new scope.
func (a *arena) Require(n int) {
	if n > cap(a.buf) {
		if klog.V(4).Enabled() {
			klog.Infof("gridmat: arena grows %s -> %s", humanize.IBytes(uint64(cap(a.buf))), humanize.IBytes(uint64(n)))
		}
		a.buf = make([]byte, n)
	}
	a.buf = a.buf[:cap(a.buf)]
	a.off = 0
}

// Release ends the scope begun by Require. The slab is kept for reuse unless
// it exceeds the retention cap.
func (a *arena) Release() {
	a.off = 0
	if cap(a.buf) > arenaRetain {
		a.buf = nil
	}
}

// arenaAlloc carves a zeroed slice of n elements of type T out of the arena.
// Exceeding the capacity reserved by Require is a programming error and
// panics.
func arenaAlloc[T Field](a *arena, n int) []T {
	var zero T
	size := n * int(comm.SizeOf(zero))
	// Keep allocations 16-byte aligned so any Field fits.
	start := (a.off + 15) &^ 15
	if start+size > len(a.buf) {
		exceptions.Panicf("distmat: arena overflow, need %d bytes at offset %d of %d", size, start, len(a.buf))
	}
	a.off = start + size
	out := comm.AsTyped[T](a.buf[start : start+size])
	clear(out)
	return out
}

// arenaBytes returns the number of bytes n elements of type T occupy,
// including the alignment slack arenaAlloc may insert.
func arenaBytes[T Field](n int) int {
	var zero T
	return n*int(comm.SizeOf(zero)) + 16
}
