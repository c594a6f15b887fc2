package distmat

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridmat/gridmat/comm"
	"github.com/gridmat/gridmat/grid"
)

// runGrid drives one body per grid process, each on its own goroutine over a
// fresh in-process group. Bodies use assert (not require): a worker goroutine
// must not call FailNow.
func runGrid(t *testing.T, p, height int, body func(g *grid.Grid)) {
	t.Helper()
	cs, err := comm.NewInProcess(p)
	require.NoError(t, err)
	var wg sync.WaitGroup
	for _, c := range cs {
		wg.Add(1)
		go func(c comm.Communicator) {
			defer wg.Done()
			g, err := grid.New(c, height, grid.ColumnMajor)
			if !assert.NoError(t, err) {
				return
			}
			body(g)
		}(c)
	}
	wg.Wait()
}

// testValue is the deterministic fill used across redistribution tests:
// recoverable from the global coordinate alone, so any process can check any
// entry.
func testValue(i, j int) float64 { return float64(100*i + j) }

// fillTest stores testValue at every global entry. Purely local.
func fillTest(t *testing.T, m *DistMatrix[float64]) {
	for i := 0; i < m.Height(); i++ {
		for j := 0; j < m.Width(); j++ {
			assert.NoError(t, m.Set(i, j, testValue(i, j)))
		}
	}
}

// checkTest verifies every global entry via Get. Collective: every process of
// the grid must call it at the same point.
func checkTest(t *testing.T, m *DistMatrix[float64]) {
	for i := 0; i < m.Height(); i++ {
		for j := 0; j < m.Width(); j++ {
			v, err := m.Get(i, j)
			if !assert.NoError(t, err) {
				return
			}
			assert.Equal(t, testValue(i, j), v, "entry (%d,%d) of %s", i, j, m.Desc())
		}
	}
}
