// Package distmat implements distributed dense matrices: a DistMatrix couples
// a local column-major buffer with a distribution descriptor and a process
// grid, and CopyFrom converts a matrix between any two supported
// distributions while preserving its global values.
//
// A distribution descriptor assigns one Dist tag per global matrix dimension.
// The tags are the classical element-cyclic schemes over a 2D process grid:
//
//	Star  every process along the axis holds a full copy (replicated)
//	MC    ownership cycles over the r grid rows
//	MR    ownership cycles over the c grid columns
//	VC    ownership cycles over all p processes, column-major order
//	VR    ownership cycles over all p processes, row-major order
//	MD    ownership cycles over the lcm(r,c) positions of the grid diagonal
//
// Only tag pairs whose scopes are compatible form a valid descriptor; see
// Desc.Validate. Everything a process needs to know about which entries it
// (or any peer) owns is derived from the grid coordinates and the pure
// formulas of the layout package, which is what lets redistribution run
// without exchanging any metadata.
package distmat

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/comm"
	"github.com/gridmat/gridmat/grid"
	"github.com/gridmat/gridmat/layout"
)

// Dist is a per-axis distribution tag.
type Dist uint8

const (
	// Star replicates the axis: every process along it stores a full copy.
	Star Dist = iota
	// MC cycles ownership over the grid's rows.
	MC
	// MR cycles ownership over the grid's columns.
	MR
	// VC cycles ownership over the column-major linear rank of all processes.
	VC
	// VR cycles ownership over the row-major linear rank of all processes.
	VR
	// MD cycles ownership over the grid's diagonal.
	MD

	numDists
)

func (d Dist) String() string {
	switch d {
	case Star:
		return "*"
	case MC:
		return "MC"
	case MR:
		return "MR"
	case VC:
		return "VC"
	case VR:
		return "VR"
	case MD:
		return "MD"
	}
	return fmt.Sprintf("Dist(%d)", uint8(d))
}

// Stride returns the length of the tag's ownership cycle on g. Star has
// stride 1 (every "cycle position" is position 0).
func (d Dist) Stride(g *grid.Grid) int {
	switch d {
	case Star:
		return 1
	case MC:
		return g.Height()
	case MR:
		return g.Width()
	case VC, VR:
		return g.Size()
	case MD:
		return g.DiagLength()
	}
	panic(errors.Wrapf(gridmat.ErrUnsupportedConversion, "unknown distribution tag %s", d))
}

// rankOf returns the caller's rank within the tag's ownership cycle, or -1
// when the caller is outside the cycle (off the diagonal for MD).
func (d Dist) rankOf(g *grid.Grid) int {
	switch d {
	case Star:
		return 0
	case MC:
		return g.MCRank()
	case MR:
		return g.MRRank()
	case VC:
		return g.VCRank()
	case VR:
		return g.VRRank()
	case MD:
		return g.DiagPathRank()
	}
	panic(errors.Wrapf(gridmat.ErrUnsupportedConversion, "unknown distribution tag %s", d))
}

// scope returns the communication scope a redistribution of this tag runs in:
// the set of processes whose members hold distinct shards of a d-distributed
// axis. Star has no scope.
func (d Dist) scope(g *grid.Grid) comm.Communicator {
	switch d {
	case Star:
		return nil
	case MC:
		return g.ColComm() // shards of a row-cycled axis live down a grid column
	case MR:
		return g.RowComm()
	case VC, MD:
		return g.VCComm()
	case VR:
		return g.VRComm()
	}
	panic(errors.Wrapf(gridmat.ErrUnsupportedConversion, "unknown distribution tag %s", d))
}

// scopeRankOf maps a rank within d's scope to the peer's rank within d's
// ownership cycle (-1 for peers outside the cycle). For every tag but MD the
// scope is ordered by cycle rank, so this is the identity.
func (d Dist) scopeRankOf(g *grid.Grid, scopeRank int) int {
	if d != MD {
		return scopeRank
	}
	// MD redistributes over the VC scope; recover the peer's diagonal
	// position from its grid coordinates.
	row := scopeRank % g.Height()
	col := scopeRank / g.Height()
	return layout.DiagPathRank(row, col, g.Height(), g.Width())
}

// gridCoordsOfCycleRank returns the grid coordinates determined by rank k of
// d's ownership cycle. Axes a tag does not constrain report -1 (Star
// constrains neither; MC only the row; VC/VR/MD both).
func (d Dist) gridCoordsOfCycleRank(g *grid.Grid, k int) (row, col int) {
	switch d {
	case Star:
		return -1, -1
	case MC:
		return k, -1
	case MR:
		return -1, k
	case VC:
		return k % g.Height(), k / g.Height()
	case VR:
		return k / g.Width(), k % g.Width()
	case MD:
		return k % g.Height(), k % g.Width()
	}
	panic(errors.Wrapf(gridmat.ErrUnsupportedConversion, "unknown distribution tag %s", d))
}

// Desc is a distribution descriptor: one tag and one alignment per global
// matrix dimension. RowDist governs global row indices (axis 0), ColDist
// global column indices (axis 1). The alignment is the cycle rank owning
// global index 0 of that axis.
type Desc struct {
	RowDist  Dist
	ColDist  Dist
	RowAlign int
	ColAlign int
}

func (d Desc) String() string {
	if d.RowAlign == 0 && d.ColAlign == 0 {
		return fmt.Sprintf("[%s,%s]", d.RowDist, d.ColDist)
	}
	return fmt.Sprintf("[%s,%s]@(%d,%d)", d.RowDist, d.ColDist, d.RowAlign, d.ColAlign)
}

// validPairs is the supported catalogue of tag pairs. A pair is valid when
// the two cycles constrain disjoint grid dimensions; VC/VR/MD constrain both,
// so they only pair with Star.
var validPairs = map[[2]Dist]bool{
	{MC, MR}: true, {MR, MC}: true,
	{MC, Star}: true, {Star, MC}: true,
	{MR, Star}: true, {Star, MR}: true,
	{VC, Star}: true, {Star, VC}: true,
	{VR, Star}: true, {Star, VR}: true,
	{MD, Star}: true, {Star, MD}: true,
	{Star, Star}: true,
}

// Validate checks that the descriptor's tag pair is in the supported
// catalogue and that both alignments lie inside their strides.
func (d Desc) Validate(g *grid.Grid) error {
	if d.RowDist >= numDists || d.ColDist >= numDists || !validPairs[[2]Dist{d.RowDist, d.ColDist}] {
		return errors.Wrapf(gridmat.ErrUnsupportedConversion,
			"distribution pair [%s,%s] is not in the supported catalogue", d.RowDist, d.ColDist)
	}
	if d.RowAlign < 0 || d.RowAlign >= d.RowDist.Stride(g) {
		return errors.Wrapf(gridmat.ErrConfiguration,
			"row alignment %d outside [0,%d)", d.RowAlign, d.RowDist.Stride(g))
	}
	if d.ColAlign < 0 || d.ColAlign >= d.ColDist.Stride(g) {
		return errors.Wrapf(gridmat.ErrConfiguration,
			"column alignment %d outside [0,%d)", d.ColAlign, d.ColDist.Stride(g))
	}
	return nil
}

// dist returns the tag of the given axis (0 = rows, 1 = columns).
func (d Desc) dist(axis int) Dist {
	if axis == 0 {
		return d.RowDist
	}
	return d.ColDist
}

// align returns the alignment of the given axis.
func (d Desc) align(axis int) int {
	if axis == 0 {
		return d.RowAlign
	}
	return d.ColAlign
}

// withDist returns a copy of d with the tag and alignment of one axis
// replaced.
func (d Desc) withDist(axis int, dist Dist, align int) Desc {
	if axis == 0 {
		d.RowDist, d.RowAlign = dist, align
	} else {
		d.ColDist, d.ColAlign = dist, align
	}
	return d
}

// withAlign returns a copy of d with one axis realigned.
func (d Desc) withAlign(axis, align int) Desc {
	if axis == 0 {
		d.RowAlign = align
	} else {
		d.ColAlign = align
	}
	return d
}

// replicationScope returns the scope across which local panels are replicated
// under d, or nil when no two processes store the same entry. Only the
// MC/MR-with-Star pairs and [*,*] replicate: the V and MD tags already span
// every process, and [MC,MR]-style pairs give every process a distinct shard.
func (d Desc) replicationScope(g *grid.Grid) comm.Communicator {
	row, col := d.RowDist, d.ColDist
	switch {
	case row == Star && col == Star:
		return g.VCComm()
	case row == MC && col == Star, row == Star && col == MC:
		return g.RowComm()
	case row == MR && col == Star, row == Star && col == MR:
		return g.ColComm()
	}
	return nil
}
