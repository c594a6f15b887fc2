// Package layout implements the pure value-level math of element-cyclic
// distributions: shifts, local lengths and ownership. No function in this
// package communicates; every cooperating process can evaluate them
// independently and arrive at the same answer, which is what allows the
// redistribution protocols to run without any side-channel metadata.
//
// A distributed axis of global extent n with stride s and alignment a assigns
// global index i to the rank (i+a) mod s. The process with rank k then holds
// the indices congruent to its shift, Shift(k, a, s), modulo s.
package layout

import (
	"golang.org/x/exp/constraints"

	"github.com/gomlx/exceptions"
)

// Shift returns the position of rank within the ownership cycle of a
// distribution with the given alignment and stride: the smallest global index
// owned by rank. A negative rank (a process outside the distribution, e.g. off
// the owning diagonal) yields -1.
func Shift(rank, align, stride int) int {
	if rank < 0 {
		return -1
	}
	if align < 0 || align >= stride {
		exceptions.Panicf("layout.Shift: alignment %d outside [0,%d)", align, stride)
	}
	return (rank - align + stride) % stride
}

// LocalLength returns the number of indices in [0,n) congruent to shift modulo
// stride, i.e. the local extent of a distributed axis on the process with that
// shift. A negative shift (off-distribution process) yields 0.
func LocalLength(n, shift, stride int) int {
	if shift < 0 || n <= shift {
		return 0
	}
	return (n - shift + stride - 1) / stride
}

// MaxLocalLength returns the largest LocalLength over all shifts, used to size
// the equal portions of padded collective exchanges.
func MaxLocalLength(n, stride int) int {
	return LocalLength(n, 0, stride)
}

// Owner returns the rank owning global index i under the given alignment and
// stride.
func Owner(i, align, stride int) int {
	return (i + align) % stride
}

// GCD returns the greatest common divisor of a and b.
func GCD[T constraints.Integer](a, b T) T {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of a and b.
func LCM[T constraints.Integer](a, b T) T {
	if a == 0 || b == 0 {
		return 0
	}
	return a / GCD(a, b) * b
}

// DiagPathRank returns the position of the process at (row, col) of an rxc
// grid along the grid's owning diagonal, or -1 if the process is not on the
// diagonal. The diagonal path visits (d mod r, d mod c) for
// d = 0, 1, ..., lcm(r,c)-1; a process lies on it exactly when
// row == col (mod gcd(r,c)), and then its position is the unique d solving both
// congruences.
func DiagPathRank(row, col, r, c int) int {
	g := GCD(r, c)
	if ((row-col)%g+g)%g != 0 {
		return -1
	}
	l := LCM(r, c)
	for d := row; d < l; d += r {
		if d%c == col {
			return d
		}
	}
	return -1
}
