// Package gridmat is a distributed-memory dense-matrix library: matrices are
// partitioned element-cyclically across a 2D grid of cooperating processes,
// and the library manages data placement and movement beneath the numerical
// algorithms layered on top of it.
//
// The packages of this module:
//
//   - comm: the MPI-style communication-group abstraction, plus an in-process
//     implementation useful for tests and single-machine runs.
//   - grid: the logical 2D process grid wrapping a communication group.
//   - layout: pure value-level distribution math (shifts, local lengths,
//     ownership) shared by grid and distmat.
//   - distmat: distribution descriptors, the generic DistMatrix type, and the
//     redistribution protocol converting a matrix between distributions while
//     preserving global values.
//
// The model is SPMD: one control thread per participating process, and every
// redistribution is a synchronous blocking collective. All participants must
// issue matching collective operations in the same order; for that reason
// every validity check in this module runs locally and fails before any
// collective is issued.
package gridmat

import "github.com/pkg/errors"

// Version of the gridmat module.
const Version = "v0.2.0"

// The error taxonomy of the module. All of these are detected locally and
// synchronously, strictly before any collective operation is issued, and are
// fatal at this layer: there is no retry or rollback once a collective begins.
//
// Use errors.Is to test returned errors against these sentinels.
var (
	// ErrConfiguration indicates an invalid grid, alignment, or shape
	// configuration: a grid/group size mismatch, an alignment outside
	// [0, stride), or a resize attempted on a fixed-size view.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrUnsupportedConversion indicates that a distribution descriptor (or a
	// requested pair of descriptors) is outside the supported catalogue, so no
	// direct or staged redistribution route exists.
	ErrUnsupportedConversion = errors.New("unsupported distribution conversion")

	// ErrEntryOutOfRange indicates a Get/Set/Update index outside the current
	// global extent of a matrix.
	ErrEntryOutOfRange = errors.New("entry index out of range")
)
