package distmat

import (
	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/layout"
)

// View returns a mutable window onto the global sub-rectangle of a starting
// at (i,j) with extent hxw. The view shares a's local buffer (a must outlive
// it) and carries the alignment induced by the offset; its global size is
// fixed for its lifetime.
func View[T Field](a *DistMatrix[T], i, j, h, w int) (*DistMatrix[T], error) {
	return makeView(a, i, j, h, w, false)
}

// LockedView is View but immutable: any mutation through the view is a fatal
// misuse.
func LockedView[T Field](a *DistMatrix[T], i, j, h, w int) (*DistMatrix[T], error) {
	return makeView(a, i, j, h, w, true)
}

func makeView[T Field](a *DistMatrix[T], i, j, h, w int, locked bool) (*DistMatrix[T], error) {
	if i < 0 || j < 0 || h < 0 || w < 0 || i+h > a.height || j+w > a.width {
		return nil, errors.Wrapf(gridmat.ErrEntryOutOfRange,
			"view (%d,%d)+%dx%d outside global extent %dx%d", i, j, h, w, a.height, a.width)
	}
	desc := a.desc.
		withAlign(0, layout.Owner(i, a.desc.RowAlign, a.axisStride(0))).
		withAlign(1, layout.Owner(j, a.desc.ColAlign, a.axisStride(1)))

	rowStart := layout.LocalLength(i, a.axisShift(0), a.axisStride(0))
	colStart := layout.LocalLength(j, a.axisShift(1), a.axisStride(1))
	localH := layout.LocalLength(i+h, a.axisShift(0), a.axisStride(0)) - rowStart
	localW := layout.LocalLength(j+w, a.axisShift(1), a.axisStride(1)) - colStart

	v := &DistMatrix[T]{g: a.g, desc: desc, height: h, width: w}
	v.local = a.local.view(rowStart, colStart, localH, localW, locked)
	return v, nil
}

// PartitionDown splits a into its first i rows and the rest, as views.
func PartitionDown[T Field](a *DistMatrix[T], i int) (top, bottom *DistMatrix[T], err error) {
	if top, err = View(a, 0, 0, i, a.width); err != nil {
		return nil, nil, err
	}
	if bottom, err = View(a, i, 0, a.height-i, a.width); err != nil {
		return nil, nil, err
	}
	return top, bottom, nil
}

// PartitionRight splits a into its first j columns and the rest, as views.
func PartitionRight[T Field](a *DistMatrix[T], j int) (left, right *DistMatrix[T], err error) {
	if left, err = View(a, 0, 0, a.height, j); err != nil {
		return nil, nil, err
	}
	if right, err = View(a, 0, j, a.height, a.width-j); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// Partition2x2 splits a at global (i,j) into four quadrant views.
func Partition2x2[T Field](a *DistMatrix[T], i, j int) (tl, tr, bl, br *DistMatrix[T], err error) {
	if tl, err = View(a, 0, 0, i, j); err != nil {
		return nil, nil, nil, nil, err
	}
	if tr, err = View(a, 0, j, i, a.width-j); err != nil {
		return nil, nil, nil, nil, err
	}
	if bl, err = View(a, i, 0, a.height-i, j); err != nil {
		return nil, nil, nil, nil, err
	}
	if br, err = View(a, i, j, a.height-i, a.width-j); err != nil {
		return nil, nil, nil, nil, err
	}
	return tl, tr, bl, br, nil
}
