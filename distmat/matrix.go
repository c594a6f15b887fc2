package distmat

import (
	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
)

// Field constrains the element types a matrix can hold: the four scalar
// fields the numerical layers operate over.
type Field interface {
	float32 | float64 | complex64 | complex128
}

// Matrix is a sequential column-major matrix: element (i,j) lives at
// data[i + j*ldim] with a leading dimension ldim >= height. A Matrix either
// owns its buffer exclusively or is a view into a longer-lived owner's
// buffer; views are never reallocated and locked views forbid mutation.
//
// Matrix is the local storage of a DistMatrix, but is usable on its own for
// per-process scratch data.
type Matrix[T Field] struct {
	height, width int
	ldim          int
	data          []T
	viewing       bool
	locked        bool
}

// NewMatrix returns an owned hxw matrix of zeros.
func NewMatrix[T Field](h, w int) *Matrix[T] {
	m := &Matrix[T]{}
	m.resize(h, w)
	return m
}

// Height returns the number of rows.
func (m *Matrix[T]) Height() int { return m.height }

// Width returns the number of columns.
func (m *Matrix[T]) Width() int { return m.width }

// LDim returns the leading dimension of the buffer.
func (m *Matrix[T]) LDim() int { return m.ldim }

// Viewing reports whether the matrix references another matrix's buffer.
func (m *Matrix[T]) Viewing() bool { return m.viewing }

// Locked reports whether the matrix is an immutable view.
func (m *Matrix[T]) Locked() bool { return m.locked }

// Data returns the underlying buffer. The buffer is column-major with leading
// dimension LDim; for a view it aliases the owner's storage.
func (m *Matrix[T]) Data() []T { return m.data }

// At returns element (i,j).
func (m *Matrix[T]) At(i, j int) T {
	m.boundsCheck(i, j)
	return m.data[i+j*m.ldim]
}

// Set stores v at (i,j). Mutating a locked view is a fatal misuse.
func (m *Matrix[T]) Set(i, j int, v T) {
	m.writeCheck(i, j)
	m.data[i+j*m.ldim] = v
}

// Update adds v to element (i,j).
func (m *Matrix[T]) Update(i, j int, v T) {
	m.writeCheck(i, j)
	m.data[i+j*m.ldim] += v
}

// Resize reshapes the matrix to hxw, dropping previous contents. Resizing a
// view is a configuration error unless the size is unchanged.
func (m *Matrix[T]) Resize(h, w int) error {
	if h < 0 || w < 0 {
		return errors.Wrapf(gridmat.ErrConfiguration, "negative matrix size %dx%d", h, w)
	}
	if m.viewing {
		if h != m.height || w != m.width {
			return errors.Wrapf(gridmat.ErrConfiguration,
				"cannot resize a %dx%d view to %dx%d", m.height, m.width, h, w)
		}
		return nil
	}
	m.resize(h, w)
	return nil
}

func (m *Matrix[T]) resize(h, w int) {
	m.height, m.width, m.ldim = h, w, h
	if n := h * w; n <= cap(m.data) {
		m.data = m.data[:n]
		clear(m.data)
	} else {
		m.data = make([]T, n)
	}
}

// Zero clears every element.
func (m *Matrix[T]) Zero() {
	m.Fill(0)
}

// Fill sets every element to v.
func (m *Matrix[T]) Fill(v T) {
	if m.locked {
		exceptions.Panicf("distmat: Fill on a locked view")
	}
	for j := 0; j < m.width; j++ {
		col := m.data[j*m.ldim : j*m.ldim+m.height]
		for i := range col {
			col[i] = v
		}
	}
}

// view returns a non-owning window of m at (i,j) with shape hxw. The owner
// must outlive the view.
func (m *Matrix[T]) view(i, j, h, w int, locked bool) Matrix[T] {
	if i < 0 || j < 0 || h < 0 || w < 0 || i+h > m.height || j+w > m.width {
		exceptions.Panicf("distmat: view (%d,%d)+%dx%d outside %dx%d matrix", i, j, h, w, m.height, m.width)
	}
	v := Matrix[T]{
		height:  h,
		width:   w,
		ldim:    m.ldim,
		viewing: true,
		locked:  locked || m.locked,
	}
	if h > 0 && w > 0 {
		v.data = m.data[i+j*m.ldim : i+(j+w-1)*m.ldim+h]
	}
	return v
}

// copyFrom copies the contents of src, which must have the same shape.
func (m *Matrix[T]) copyFrom(src *Matrix[T]) {
	if m.height != src.height || m.width != src.width {
		exceptions.Panicf("distmat: copy between mismatched local shapes %dx%d and %dx%d",
			m.height, m.width, src.height, src.width)
	}
	for j := 0; j < m.width; j++ {
		copy(m.data[j*m.ldim:j*m.ldim+m.height], src.data[j*src.ldim:j*src.ldim+m.height])
	}
}

func (m *Matrix[T]) boundsCheck(i, j int) {
	if i < 0 || j < 0 || i >= m.height || j >= m.width {
		panic(errors.Wrapf(gridmat.ErrEntryOutOfRange,
			"local entry (%d,%d) outside %dx%d matrix", i, j, m.height, m.width))
	}
}

func (m *Matrix[T]) writeCheck(i, j int) {
	if m.locked {
		exceptions.Panicf("distmat: write to a locked view")
	}
	m.boundsCheck(i, j)
}
