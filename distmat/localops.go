package distmat

// UpLo selects the triangle kept by trapezoidal transforms.
type UpLo uint8

const (
	// Lower keeps entries with j <= i + offset.
	Lower UpLo = iota
	// Upper keeps entries with j >= i + offset.
	Upper
)

func (u UpLo) String() string {
	if u == Upper {
		return "upper"
	}
	return "lower"
}

// The bulk transforms below operate purely on the local panel: each local
// cell's global coordinate is reconstructed as shift + localIndex*stride, so
// no communication is ever needed and replicas stay consistent by running the
// same deterministic computation.

// Zero clears the matrix.
func (m *DistMatrix[T]) Zero() { m.local.Zero() }

// Fill sets every global entry to v.
func (m *DistMatrix[T]) Fill(v T) { m.local.Fill(v) }

// SetToIdentity sets the matrix to ones on the global diagonal, zeros
// elsewhere.
func (m *DistMatrix[T]) SetToIdentity() {
	m.local.Zero()
	colStride, colShift := m.axisStride(1), m.axisShift(1)
	if colShift < 0 {
		return
	}
	for lj := 0; lj < m.local.width; lj++ {
		j := colShift + lj*colStride
		if j < m.height && m.owns(j, 0) {
			m.local.Set(m.localIndex(j, 0), lj, 1)
		}
	}
}

// MakeTrapezoidal zeroes every entry outside the trapezoid whose boundary
// diagonal is shifted by offset: uplo Lower keeps j <= i+offset, Upper keeps
// j >= i+offset.
func (m *DistMatrix[T]) MakeTrapezoidal(uplo UpLo, offset int) {
	m.eachLocal(func(i, j, li, lj int) {
		if (uplo == Lower && j > i+offset) || (uplo == Upper && j < i+offset) {
			m.local.Set(li, lj, 0)
		}
	})
}

// ScaleTrapezoidal multiplies every entry inside the trapezoid (same region
// MakeTrapezoidal keeps) by alpha.
func (m *DistMatrix[T]) ScaleTrapezoidal(alpha T, uplo UpLo, offset int) {
	m.eachLocal(func(i, j, li, lj int) {
		if (uplo == Lower && j <= i+offset) || (uplo == Upper && j >= i+offset) {
			m.local.Set(li, lj, alpha*m.local.At(li, lj))
		}
	})
}

// eachLocal visits every locally stored cell with its global and local
// coordinates.
func (m *DistMatrix[T]) eachLocal(fn func(i, j, li, lj int)) {
	rowStride, rowShift := m.axisStride(0), m.axisShift(0)
	colStride, colShift := m.axisStride(1), m.axisShift(1)
	if rowShift < 0 || colShift < 0 {
		return
	}
	for lj := 0; lj < m.local.width; lj++ {
		j := colShift + lj*colStride
		for li := 0; li < m.local.height; li++ {
			fn(rowShift+li*rowStride, j, li, lj)
		}
	}
}
