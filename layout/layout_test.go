package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftOwnerRoundTrip(t *testing.T) {
	for stride := 1; stride <= 7; stride++ {
		for align := 0; align < stride; align++ {
			for rank := 0; rank < stride; rank++ {
				shift := Shift(rank, align, stride)
				require.GreaterOrEqual(t, shift, 0)
				require.Less(t, shift, stride)
				// The rank's shift is the smallest index it owns.
				require.Equal(t, rank, Owner(shift, align, stride))
			}
			for i := 0; i < 3*stride; i++ {
				// Owner and Shift invert each other modulo the stride.
				require.Equal(t, i%stride, Shift(Owner(i, align, stride), align, stride))
			}
		}
	}
}

func TestShiftOffCycleRank(t *testing.T) {
	require.Equal(t, -1, Shift(-1, 0, 6))
}

func TestShiftRejectsBadAlignment(t *testing.T) {
	require.Panics(t, func() { Shift(0, 4, 4) })
	require.Panics(t, func() { Shift(0, -1, 4) })
}

func TestLocalLengthPartitionsAxis(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 7, 12, 100} {
		for stride := 1; stride <= 6; stride++ {
			for align := 0; align < stride; align++ {
				total := 0
				for rank := 0; rank < stride; rank++ {
					total += LocalLength(n, Shift(rank, align, stride), stride)
				}
				// Every index is owned by exactly one rank.
				require.Equal(t, n, total, "n=%d stride=%d align=%d", n, stride, align)
			}
		}
	}
}

func TestLocalLengthEdges(t *testing.T) {
	assert.Equal(t, 0, LocalLength(10, -1, 3))
	assert.Equal(t, 0, LocalLength(0, 0, 3))
	assert.Equal(t, 0, LocalLength(2, 2, 3))
	assert.Equal(t, 1, LocalLength(3, 2, 3))
	assert.Equal(t, 4, LocalLength(10, 0, 3))
	assert.Equal(t, 3, LocalLength(10, 1, 3))
}

func TestMaxLocalLength(t *testing.T) {
	for _, n := range []int{0, 1, 5, 7, 12} {
		for stride := 1; stride <= 6; stride++ {
			maxLen := MaxLocalLength(n, stride)
			for shift := 0; shift < stride; shift++ {
				assert.LessOrEqual(t, LocalLength(n, shift, stride), maxLen)
			}
			assert.Equal(t, LocalLength(n, 0, stride), maxLen)
		}
	}
}

func TestGCDLCM(t *testing.T) {
	assert.Equal(t, 2, GCD(4, 6))
	assert.Equal(t, 1, GCD(5, 7))
	assert.Equal(t, 4, GCD(4, 0))
	assert.Equal(t, 12, LCM(4, 6))
	assert.Equal(t, 6, LCM(2, 3))
	assert.Equal(t, 0, LCM(0, 5))
}

func TestDiagPathRankCoprimeGrid(t *testing.T) {
	// 2x3: gcd = 1, every process is on the diagonal exactly once.
	want := map[[2]int]int{
		{0, 0}: 0, {1, 1}: 1, {0, 2}: 2, {1, 0}: 3, {0, 1}: 4, {1, 2}: 5,
	}
	for coords, d := range want {
		require.Equal(t, d, DiagPathRank(coords[0], coords[1], 2, 3), "coords %v", coords)
	}
}

func TestDiagPathRankOffDiagonal(t *testing.T) {
	// 2x4: gcd = 2, only processes with row == col (mod 2) are on the path.
	assert.Equal(t, -1, DiagPathRank(0, 1, 2, 4))
	assert.Equal(t, -1, DiagPathRank(1, 0, 2, 4))
	assert.Equal(t, 0, DiagPathRank(0, 0, 2, 4))
	assert.Equal(t, 1, DiagPathRank(1, 1, 2, 4))
	assert.Equal(t, 2, DiagPathRank(0, 2, 2, 4))
	assert.Equal(t, 3, DiagPathRank(1, 3, 2, 4))
}

func TestDiagPathRankIsBijective(t *testing.T) {
	for _, rc := range [][2]int{{2, 2}, {2, 3}, {3, 2}, {2, 4}, {3, 3}, {4, 6}} {
		r, c := rc[0], rc[1]
		l := LCM(r, c)
		seen := make(map[int][2]int)
		for row := 0; row < r; row++ {
			for col := 0; col < c; col++ {
				d := DiagPathRank(row, col, r, c)
				if d < 0 {
					continue
				}
				require.GreaterOrEqual(t, d, 0)
				require.Less(t, d, l)
				require.Equal(t, row, d%r)
				require.Equal(t, col, d%c)
				_, dup := seen[d]
				require.False(t, dup, "position %d claimed twice on %dx%d", d, r, c)
				seen[d] = [2]int{row, col}
			}
		}
		// The path visits every position.
		require.Len(t, seen, l)
	}
}
