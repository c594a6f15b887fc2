package distmat

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/grid"
)

// The redistribution protocol converts a matrix between any two descriptors
// of the supported catalogue by composing a small set of elementary
// conversions, each implemented as pack -> one collective (or paired
// exchange) -> unpack:
//
//	copy         same tags and alignments; no communication
//	shift        same tags, different alignment; one SendRecv in the axis scope
//	gather       axis tag -> Star; AllGather over the tag's scope
//	refine       axis Star -> tag; local subselection, no communication
//	subRefine    MC->VC or MR->VR; local subselection, no communication
//	superGather  VC->MC or VR->MR; AllGather over the complementary grid scope
//	permute      VC<->VR; one SendRecv over the VC scope
//
// Cross-axis conversions (e.g. [MC,MR] -> [MR,MC]) stage through the
// linear-rank forms: the canonical chain leaving MC is MC->VC->VR->MR and the
// mirror leaving MR runs through VR. Whenever a staged row-axis tag cannot
// validly pair with the current column-axis tag, the column axis is first
// coarsened to Star and refined back afterwards; MD conversions always stage
// through Star on their axis. Alignment differences are absorbed by trailing
// shift steps, so chains never need a normalization pass.
//
// Every step's packing order is deterministic and rank-computable (panels are
// packed column-major), so both sides of every exchange derive each other's
// layout purely from grid coordinates and the layout formulas: no metadata is
// ever exchanged.

type stepKind uint8

const (
	stepCopy stepKind = iota
	stepShift
	stepGather
	stepRefine
	stepSubRefine
	stepSuperGather
	stepPermute
)

func (k stepKind) String() string {
	switch k {
	case stepCopy:
		return "copy"
	case stepShift:
		return "shift"
	case stepGather:
		return "gather"
	case stepRefine:
		return "refine"
	case stepSubRefine:
		return "subRefine"
	case stepSuperGather:
		return "superGather"
	case stepPermute:
		return "permute"
	}
	return fmt.Sprintf("stepKind(%d)", uint8(k))
}

// step is one elementary conversion: the kind, the axis it operates on, and
// the full descriptor of its result.
type step struct {
	kind stepKind
	axis int
	to   Desc
}

// maxRouteSteps bounds route length; the longest catalogue route (a fully
// cross-axis misaligned pair) takes 8 steps.
const maxRouteSteps = 12

// plan returns the deterministic route from src to dst. It is a pure
// function of the descriptors and grid shape, so every process computes the
// identical route without communicating.
func plan(g *grid.Grid, src, dst Desc) ([]step, error) {
	var steps []step
	cur := src
	for cur.RowDist != dst.RowDist || cur.ColDist != dst.ColDist {
		if len(steps) >= maxRouteSteps {
			return nil, errors.Wrapf(gridmat.ErrUnsupportedConversion,
				"no staged route from %s to %s", src, dst)
		}
		axis := 0
		if cur.RowDist == dst.RowDist {
			axis = 1
		}
		next, kind := transition(g, cur, axis, nextTag(cur.dist(axis), dst.dist(axis)), dst)
		if !validPairs[[2]Dist{next.RowDist, next.ColDist}] {
			// The staged tag cannot pair with the other axis: coarsen the
			// other axis to Star first; it is refined back once this axis
			// settles.
			other := 1 - axis
			cur = cur.withDist(other, Star, 0)
			steps = append(steps, step{stepGather, other, cur})
			continue
		}
		steps = append(steps, step{kind, axis, next})
		cur = next
	}
	for axis := 0; axis < 2; axis++ {
		if cur.align(axis) != dst.align(axis) {
			cur = cur.withAlign(axis, dst.align(axis))
			steps = append(steps, step{stepShift, axis, cur})
		}
	}
	if len(steps) == 0 {
		steps = append(steps, step{stepCopy, 0, dst})
	}
	return steps, nil
}

// nextTag returns the first hop of the canonical tag chain from one axis tag
// toward another.
func nextTag(from, to Dist) Dist {
	switch {
	case to == Star:
		return Star
	case from == Star:
		return to
	case from == MD || to == MD:
		return Star
	}
	switch from {
	case MC:
		return VC
	case MR:
		return VR
	case VC:
		if to == MC {
			return MC
		}
		return VR
	case VR:
		if to == MR {
			return MR
		}
		return VC
	}
	exceptions.Panicf("distmat: no chain hop from %s toward %s", from, to)
	return Star
}

// transition builds the descriptor reached by applying one hop on the given
// axis, choosing the alignment each kind preserves or induces.
func transition(g *grid.Grid, cur Desc, axis int, to Dist, dst Desc) (Desc, stepKind) {
	from := cur.dist(axis)
	switch {
	case to == Star:
		return cur.withDist(axis, Star, 0), stepGather
	case from == Star:
		align := 0
		if to == dst.dist(axis) {
			align = dst.align(axis)
		}
		return cur.withDist(axis, to, align), stepRefine
	case from == MC && to == VC, from == MR && to == VR:
		return cur.withDist(axis, to, cur.align(axis)), stepSubRefine
	case from == VC && to == MC:
		return cur.withDist(axis, MC, cur.align(axis)%g.Height()), stepSuperGather
	case from == VR && to == MR:
		return cur.withDist(axis, MR, cur.align(axis)%g.Width()), stepSuperGather
	case from == VC && to == VR, from == VR && to == VC:
		return cur.withDist(axis, to, cur.align(axis)), stepPermute
	}
	exceptions.Panicf("distmat: no elementary conversion %s -> %s", from, to)
	return cur, stepCopy
}

// CopyFrom redistributes a into m, converting between their descriptors
// while preserving every global value. It is collective over the grid: every
// process must call it in the same order with consistent metadata. All
// validation runs locally and fails before any collective is issued, so an
// error on one process is an error on all of them.
func (m *DistMatrix[T]) CopyFrom(a *DistMatrix[T]) error {
	if m == a {
		return nil
	}
	defer span(fmt.Sprintf("CopyFrom %s <- %s", m.desc, a.desc))()

	if m.g != a.g {
		return errors.Wrapf(gridmat.ErrConfiguration,
			"source and destination are distributed over different grids")
	}
	if m.local.locked {
		return errors.Wrapf(gridmat.ErrConfiguration, "destination is a locked view")
	}
	if m.local.viewing && (m.height != a.height || m.width != a.width) {
		return errors.Wrapf(gridmat.ErrConfiguration,
			"fixed-size %dx%d view cannot receive a %dx%d matrix",
			m.height, m.width, a.height, a.width)
	}
	steps, err := plan(m.g, a.desc, m.desc)
	if err != nil {
		return err
	}
	if !m.local.viewing {
		if err := m.Resize(a.height, a.width); err != nil {
			return err
		}
	}
	if a.height == 0 || a.width == 0 {
		return nil // nothing to move; no collective is issued
	}

	defer m.aux.Release()
	cur := a
	for k, st := range steps {
		out := m
		if k < len(steps)-1 {
			out, err = NewWithSize[T](m.g, st.to, a.height, a.width)
			if err != nil {
				return err
			}
		}
		if err := runStep(out, cur, st, &m.aux); err != nil {
			return errors.WithMessagef(err, "step %d (%s %s -> %s)", k, st.kind, cur.desc, st.to)
		}
		cur = out
	}
	return nil
}

func runStep[T Field](dst, src *DistMatrix[T], st step, aux *arena) error {
	defer span(fmt.Sprintf("%s %s <- %s", st.kind, dst.desc, src.desc))()
	switch st.kind {
	case stepCopy:
		dst.local.copyFrom(&src.local)
		return nil
	case stepShift:
		return kShift(dst, src, st.axis, aux)
	case stepGather:
		return kGather(dst, src, st.axis, aux)
	case stepRefine:
		kRefine(dst, src, st.axis)
		return nil
	case stepSubRefine:
		kSubRefine(dst, src, st.axis)
		return nil
	case stepSuperGather:
		return kSuperGather(dst, src, st.axis, aux)
	case stepPermute:
		return kPermute(dst, src, st.axis, aux)
	}
	exceptions.Panicf("distmat: unknown redistribution step %s", st.kind)
	return nil
}
