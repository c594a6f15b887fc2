package distmat

import (
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/comm"
	"github.com/gridmat/gridmat/grid"
	"github.com/gridmat/gridmat/layout"
)

// DistMatrix is a dense matrix partitioned across a process grid: a local
// column-major panel, the distribution descriptor assigning global entries to
// processes, and the grid the descriptor refers to. Every process of the grid
// holds one DistMatrix value per logical matrix; operations that communicate
// (Get, SetToRandom, CopyFrom) are collective and must be called by every
// process of the relevant scope in the same order.
type DistMatrix[T Field] struct {
	g      *grid.Grid
	desc   Desc
	height int // global
	width  int // global
	local  Matrix[T]
	aux    arena
}

// Distributed is the part of a DistMatrix alignment logic needs, independent
// of the element type.
type Distributed interface {
	Desc() Desc
	Grid() *grid.Grid
}

// New returns an empty 0x0 matrix shell over g with the given distribution.
func New[T Field](g *grid.Grid, desc Desc) (*DistMatrix[T], error) {
	if err := desc.Validate(g); err != nil {
		return nil, err
	}
	return &DistMatrix[T]{g: g, desc: desc}, nil
}

// NewWithSize returns a zero-initialized hxw matrix over g with the given
// distribution.
func NewWithSize[T Field](g *grid.Grid, desc Desc, h, w int) (*DistMatrix[T], error) {
	m, err := New[T](g, desc)
	if err != nil {
		return nil, err
	}
	if err := m.Resize(h, w); err != nil {
		return nil, err
	}
	return m, nil
}

// Grid returns the process grid the matrix is distributed over.
func (m *DistMatrix[T]) Grid() *grid.Grid { return m.g }

// Desc returns the matrix's distribution descriptor.
func (m *DistMatrix[T]) Desc() Desc { return m.desc }

// Height returns the global number of rows.
func (m *DistMatrix[T]) Height() int { return m.height }

// Width returns the global number of columns.
func (m *DistMatrix[T]) Width() int { return m.width }

// Local returns the local panel. Its buffer is owned by the DistMatrix (or,
// for views, by the viewed owner).
func (m *DistMatrix[T]) Local() *Matrix[T] { return &m.local }

// LocalHeight returns the number of global rows stored locally.
func (m *DistMatrix[T]) LocalHeight() int { return m.local.height }

// LocalWidth returns the number of global columns stored locally.
func (m *DistMatrix[T]) LocalWidth() int { return m.local.width }

// Viewing reports whether the matrix is a view of another matrix's storage.
func (m *DistMatrix[T]) Viewing() bool { return m.local.viewing }

// Locked reports whether the matrix is an immutable view.
func (m *DistMatrix[T]) Locked() bool { return m.local.locked }

// RowShift returns the caller's position within the row-axis ownership cycle
// (-1 off the diagonal for MD distributions).
func (m *DistMatrix[T]) RowShift() int { return m.axisShift(0) }

// ColShift returns the caller's position within the column-axis ownership
// cycle.
func (m *DistMatrix[T]) ColShift() int { return m.axisShift(1) }

func (m *DistMatrix[T]) axisExtent(axis int) int {
	if axis == 0 {
		return m.height
	}
	return m.width
}

func (m *DistMatrix[T]) axisStride(axis int) int {
	return m.desc.dist(axis).Stride(m.g)
}

func (m *DistMatrix[T]) axisShift(axis int) int {
	return layout.Shift(m.desc.dist(axis).rankOf(m.g), m.desc.align(axis), m.axisStride(axis))
}

func (m *DistMatrix[T]) axisLocalLen(axis int) int {
	if axis == 0 {
		return m.local.height
	}
	return m.local.width
}

// Resize reshapes the matrix to the global extent hxw, recomputing the local
// panel from the distribution, alignment and grid. Previous contents are
// dropped. Resizing a view to a different global size is a configuration
// error.
func (m *DistMatrix[T]) Resize(h, w int) error {
	if h < 0 || w < 0 {
		return errors.Wrapf(gridmat.ErrConfiguration, "negative global size %dx%d", h, w)
	}
	if m.local.viewing {
		if h != m.height || w != m.width {
			return errors.Wrapf(gridmat.ErrConfiguration,
				"cannot resize a fixed-size %dx%d view to %dx%d", m.height, m.width, h, w)
		}
		return nil
	}
	localH := layout.LocalLength(h, layout.Shift(m.desc.RowDist.rankOf(m.g), m.desc.RowAlign, m.desc.RowDist.Stride(m.g)), m.desc.RowDist.Stride(m.g))
	localW := layout.LocalLength(w, layout.Shift(m.desc.ColDist.rankOf(m.g), m.desc.ColAlign, m.desc.ColDist.Stride(m.g)), m.desc.ColDist.Stride(m.g))
	m.height, m.width = h, w
	m.local.resize(localH, localW)
	return nil
}

// owns reports whether the caller stores global index i of the given axis.
func (m *DistMatrix[T]) owns(i, axis int) bool {
	d := m.desc.dist(axis)
	if d == Star {
		return true
	}
	r := d.rankOf(m.g)
	return r >= 0 && layout.Owner(i, m.desc.align(axis), m.axisStride(axis)) == r
}

// localIndex maps an owned global index to its local panel index.
func (m *DistMatrix[T]) localIndex(i, axis int) int {
	return (i - m.axisShift(axis)) / m.axisStride(axis)
}

func (m *DistMatrix[T]) rangeCheck(i, j int) error {
	if i < 0 || j < 0 || i >= m.height || j >= m.width {
		return errors.Wrapf(gridmat.ErrEntryOutOfRange,
			"entry (%d,%d) outside global extent %dx%d", i, j, m.height, m.width)
	}
	return nil
}

// ownerVCRank returns the VC rank of the canonical process storing global
// entry (i,j): along replicated grid dimensions the representative at
// coordinate 0 is chosen.
func (m *DistMatrix[T]) ownerVCRank(i, j int) int {
	row, col := 0, 0
	or, oc := m.desc.RowDist.gridCoordsOfCycleRank(m.g, layout.Owner(i, m.desc.RowAlign, m.axisStride(0)))
	if or >= 0 {
		row = or
	}
	if oc >= 0 {
		col = oc
	}
	or, oc = m.desc.ColDist.gridCoordsOfCycleRank(m.g, layout.Owner(j, m.desc.ColAlign, m.axisStride(1)))
	if or >= 0 {
		row = or
	}
	if oc >= 0 {
		col = oc
	}
	return m.g.VCRankOf(row, col)
}

// Get returns global entry (i,j) on every process of the grid. It is the only
// entrywise operation that communicates: the canonical owner broadcasts the
// value over the grid's VC scope, so Get is collective and must be called by
// all processes together.
func (m *DistMatrix[T]) Get(i, j int) (T, error) {
	var v T
	if err := m.rangeCheck(i, j); err != nil {
		return v, err
	}
	if m.owns(i, 0) && m.owns(j, 1) {
		v = m.local.At(m.localIndex(i, 0), m.localIndex(j, 1))
	}
	return comm.BroadcastValue(m.g.VCComm(), v, m.ownerVCRank(i, j))
}

// Set stores v at global entry (i,j) on every process owning it (all replicas
// along replicated axes). Purely local: no communication.
func (m *DistMatrix[T]) Set(i, j int, v T) error {
	if err := m.rangeCheck(i, j); err != nil {
		return err
	}
	if m.owns(i, 0) && m.owns(j, 1) {
		m.local.Set(m.localIndex(i, 0), m.localIndex(j, 1), v)
	}
	return nil
}

// Update adds v to global entry (i,j) on every process owning it. Purely
// local: no communication.
func (m *DistMatrix[T]) Update(i, j int, v T) error {
	if err := m.rangeCheck(i, j); err != nil {
		return err
	}
	if m.owns(i, 0) && m.owns(j, 1) {
		m.local.Update(m.localIndex(i, 0), m.localIndex(j, 1), v)
	}
	return nil
}

// Align sets the matrix's alignments. Realigning a view is a fatal misuse
// (its alignment is fixed by the owner it windows); a matrix already holding
// data is emptied, since old local entries are meaningless under the new
// alignment.
func (m *DistMatrix[T]) Align(rowAlign, colAlign int) error {
	if m.local.viewing {
		exceptions.Panicf("distmat: realigning a view of another matrix")
	}
	d := m.desc
	d.RowAlign, d.ColAlign = rowAlign, colAlign
	if err := d.Validate(m.g); err != nil {
		return err
	}
	if m.height > 0 || m.width > 0 {
		m.height, m.width = 0, 0
		m.local.resize(0, 0)
	}
	m.desc = d
	return nil
}

// AlignWith copies the alignments of ref, which must share m's grid and have
// the same ownership-cycle stride on each axis. Like Align, it empties a
// matrix already holding data and must not be applied to views.
func (m *DistMatrix[T]) AlignWith(ref Distributed) error {
	if ref.Grid() != m.g {
		return errors.Wrapf(gridmat.ErrConfiguration, "aligning with a matrix on a different grid")
	}
	rd := ref.Desc()
	for axis := 0; axis < 2; axis++ {
		if rd.dist(axis).Stride(m.g) != m.desc.dist(axis).Stride(m.g) {
			return errors.Wrapf(gridmat.ErrConfiguration,
				"axis %d strides differ: cannot align %s with %s", axis, m.desc, rd)
		}
	}
	return m.Align(rd.RowAlign, rd.ColAlign)
}

// SetToRandom fills the matrix with uniform values in (-1,1) (per component
// for complex types). Replicas along a replicated scope are seeded by a
// single broadcast from the scope's representative, so every copy agrees.
func (m *DistMatrix[T]) SetToRandom(seed int64) error {
	rng := rand.New(rand.NewSource(seed + int64(m.g.VCRank())))
	for j := 0; j < m.local.width; j++ {
		fillRandom(rng, m.local.data[j*m.local.ldim:j*m.local.ldim+m.local.height])
	}
	sc := m.desc.replicationScope(m.g)
	n := m.local.height * m.local.width
	if sc == nil || n == 0 {
		return nil
	}
	m.aux.Require(arenaBytes[T](n))
	defer m.aux.Release()
	buf := arenaAlloc[T](&m.aux, n)
	packPanel(&m.local, buf)
	if err := sc.Broadcast(comm.Bytes(buf), 0); err != nil {
		return err
	}
	unpackPanel(&m.local, buf)
	return nil
}

func fillRandom[T Field](rng *rand.Rand, s []T) {
	switch s := any(s).(type) {
	case []float32:
		for i := range s {
			s[i] = rng.Float32()*2 - 1
		}
	case []float64:
		for i := range s {
			s[i] = rng.Float64()*2 - 1
		}
	case []complex64:
		for i := range s {
			s[i] = complex(rng.Float32()*2-1, rng.Float32()*2-1)
		}
	case []complex128:
		for i := range s {
			s[i] = complex(rng.Float64()*2-1, rng.Float64()*2-1)
		}
	}
}
