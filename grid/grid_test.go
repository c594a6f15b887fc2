package grid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/comm"
)

// runGrids builds one grid per process of a fresh in-process group and runs
// body on each from its own goroutine.
func runGrids(t *testing.T, p, height int, order Order, body func(g *Grid)) {
	t.Helper()
	cs, err := comm.NewInProcess(p)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for _, c := range cs {
		wg.Add(1)
		go func(c comm.Communicator) {
			defer wg.Done()
			g, err := New(c, height, order)
			if !assert.NoError(t, err) {
				return
			}
			body(g)
		}(c)
	}
	wg.Wait()
}

func TestAutoFactor(t *testing.T) {
	for _, tc := range []struct{ p, height, width int }{
		{1, 1, 1},
		{4, 2, 2},
		{6, 2, 3},
		{7, 1, 7},
		{12, 3, 4},
		{16, 4, 4},
	} {
		runGrids(t, tc.p, 0, ColumnMajor, func(g *Grid) {
			assert.Equal(t, tc.height, g.Height(), "p=%d", tc.p)
			assert.Equal(t, tc.width, g.Width(), "p=%d", tc.p)
			assert.Equal(t, tc.p, g.Size())
		})
	}
}

func TestNonDivisibleHeight(t *testing.T) {
	cs, err := comm.NewInProcess(6)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for _, c := range cs {
		wg.Add(1)
		go func(c comm.Communicator) {
			defer wg.Done()
			_, err := New(c, 4, ColumnMajor)
			assert.ErrorIs(t, err, gridmat.ErrConfiguration)
		}(c)
	}
	wg.Wait()
}

func TestColumnMajorCoordinates(t *testing.T) {
	runGrids(t, 6, 2, ColumnMajor, func(g *Grid) {
		rank := g.Comm().Rank()
		assert.Equal(t, rank%2, g.Row())
		assert.Equal(t, rank/2, g.Col())
		assert.Equal(t, rank, g.VCRank())
		assert.Equal(t, rank, g.Rank(g.Row(), g.Col()))
		assert.Equal(t, g.Row(), g.MCRank())
		assert.Equal(t, g.Col(), g.MRRank())
		assert.Equal(t, g.Col()+g.Row()*3, g.VRRank())
	})
}

func TestRowMajorCoordinates(t *testing.T) {
	runGrids(t, 6, 2, RowMajor, func(g *Grid) {
		rank := g.Comm().Rank()
		assert.Equal(t, rank/3, g.Row())
		assert.Equal(t, rank%3, g.Col())
		assert.Equal(t, rank, g.VRRank())
		assert.Equal(t, rank, g.Rank(g.Row(), g.Col()))
	})
}

func TestScopes(t *testing.T) {
	runGrids(t, 6, 2, ColumnMajor, func(g *Grid) {
		assert.Equal(t, g.Width(), g.RowComm().Size())
		assert.Equal(t, g.Col(), g.RowComm().Rank())
		assert.Equal(t, g.Height(), g.ColComm().Size())
		assert.Equal(t, g.Row(), g.ColComm().Rank())
		assert.Equal(t, g.Size(), g.VCComm().Size())
		assert.Equal(t, g.VCRank(), g.VCComm().Rank())
		assert.Equal(t, g.Size(), g.VRComm().Size())
		assert.Equal(t, g.VRRank(), g.VRComm().Rank())
	})
}

func TestScopeWiring(t *testing.T) {
	// The row scope really spans the caller's grid row: gathering grid columns
	// over it yields 0..width-1 everywhere.
	runGrids(t, 6, 2, ColumnMajor, func(g *Grid) {
		send := []byte{byte(g.Col())}
		recv := make([]byte, g.Width())
		if !assert.NoError(t, g.RowComm().AllGather(send, recv)) {
			return
		}
		assert.Equal(t, []byte{0, 1, 2}, recv)

		send = []byte{byte(g.Row())}
		recv = make([]byte, g.Height())
		if !assert.NoError(t, g.ColComm().AllGather(send, recv)) {
			return
		}
		assert.Equal(t, []byte{0, 1}, recv)
	})
}

func TestDiagonal(t *testing.T) {
	runGrids(t, 6, 2, ColumnMajor, func(g *Grid) {
		assert.Equal(t, 6, g.DiagLength())
		d := g.DiagPathRank()
		// gcd(2,3)=1: every process is on the diagonal.
		assert.GreaterOrEqual(t, d, 0)
		assert.Equal(t, g.Row(), d%2)
		assert.Equal(t, g.Col(), d%3)
	})
	runGrids(t, 4, 2, ColumnMajor, func(g *Grid) {
		assert.Equal(t, 2, g.DiagLength())
		d := g.DiagPathRank()
		if g.Row() == g.Col() {
			assert.Equal(t, g.Row(), d)
		} else {
			assert.Equal(t, -1, d)
		}
	})
}

func TestVCRankOf(t *testing.T) {
	runGrids(t, 6, 2, ColumnMajor, func(g *Grid) {
		for row := 0; row < g.Height(); row++ {
			for col := 0; col < g.Width(); col++ {
				assert.Equal(t, g.Rank(row, col), g.VCRankOf(row, col))
			}
		}
	})
}

func TestOrderString(t *testing.T) {
	require.Equal(t, "column-major", ColumnMajor.String())
	require.Equal(t, "row-major", RowMajor.String())
}
