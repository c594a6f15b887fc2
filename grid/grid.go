// Package grid wraps a communication group into a logical 2D process grid.
//
// An rxc grid assigns every process of the group a (row, col) coordinate and
// derives the four linear rankings the element-cyclic distributions are
// defined over: the grid-row rank (MC), the grid-column rank (MR), and the
// column-major and row-major linearizations over all p = r*c processes
// (VC and VR). It also exposes one communication scope per grid row, per grid
// column, and per linearization, all derived from the supplied group during
// construction. A Grid is immutable after New returns.
package grid

import (
	"math"

	"github.com/pkg/errors"

	"github.com/gridmat/gridmat"
	"github.com/gridmat/gridmat/comm"
	"github.com/gridmat/gridmat/layout"
)

// Order selects how the ranks of the supplied communication group are laid
// onto the grid.
type Order int

const (
	// ColumnMajor assigns rank k to (k mod r, k div r); world rank order then
	// coincides with the VC ranking.
	ColumnMajor Order = iota
	// RowMajor assigns rank k to (k div c, k mod c); world rank order then
	// coincides with the VR ranking.
	RowMajor
)

func (o Order) String() string {
	if o == RowMajor {
		return "row-major"
	}
	return "column-major"
}

// Grid is a logical rxc arrangement of the processes of a communication
// group.
type Grid struct {
	world  comm.Communicator
	height int
	width  int
	order  Order

	row, col int

	rowComm comm.Communicator
	colComm comm.Communicator
	vcComm  comm.Communicator
	vrComm  comm.Communicator
}

// New wraps c into a grid with the given number of rows; height 0 auto-factors
// the group size into the most square rxc with r <= c. An explicit height that
// does not evenly divide the group size is a configuration error.
//
// New is collective over c: every member of the group must call it with the
// same arguments.
func New(c comm.Communicator, height int, order Order) (*Grid, error) {
	p := c.Size()
	if height == 0 {
		for height = int(math.Sqrt(float64(p))); height > 1; height-- {
			if p%height == 0 {
				break
			}
		}
		if height < 1 {
			height = 1
		}
	}
	if height < 0 || p%height != 0 {
		return nil, errors.Wrapf(gridmat.ErrConfiguration,
			"grid height %d does not evenly divide the group size %d", height, p)
	}
	width := p / height

	g := &Grid{world: c, height: height, width: width, order: order}
	rank := c.Rank()
	switch order {
	case ColumnMajor:
		g.row, g.col = rank%height, rank/height
	case RowMajor:
		g.row, g.col = rank/width, rank%width
	default:
		return nil, errors.Wrapf(gridmat.ErrConfiguration, "unknown grid order %d", order)
	}

	// Derive the communication scopes. The Split calls are collective, so
	// every member reaches them in the same order.
	var err error
	if g.rowComm, err = c.Split(g.row, g.col); err != nil {
		return nil, errors.WithMessage(err, "splitting grid row scope")
	}
	if g.colComm, err = c.Split(g.col, g.row); err != nil {
		return nil, errors.WithMessage(err, "splitting grid column scope")
	}
	if g.vcComm, err = c.Split(0, g.VCRank()); err != nil {
		return nil, errors.WithMessage(err, "splitting VC scope")
	}
	if g.vrComm, err = c.Split(0, g.VRRank()); err != nil {
		return nil, errors.WithMessage(err, "splitting VR scope")
	}
	return g, nil
}

// Height returns the number of grid rows r.
func (g *Grid) Height() int { return g.height }

// Width returns the number of grid columns c.
func (g *Grid) Width() int { return g.width }

// Size returns the number of processes p = r*c.
func (g *Grid) Size() int { return g.height * g.width }

// Order returns the rank-assignment order the grid was built with.
func (g *Grid) Order() Order { return g.order }

// Row returns the caller's grid row.
func (g *Grid) Row() int { return g.row }

// Col returns the caller's grid column.
func (g *Grid) Col() int { return g.col }

// Rank returns the world rank of the process at (row, col).
func (g *Grid) Rank(row, col int) int {
	if g.order == RowMajor {
		return row*g.width + col
	}
	return col*g.height + row
}

// MCRank is the caller's rank in the cyclic-over-grid-rows distribution: its
// grid row.
func (g *Grid) MCRank() int { return g.row }

// MRRank is the caller's rank in the cyclic-over-grid-columns distribution:
// its grid column.
func (g *Grid) MRRank() int { return g.col }

// VCRank is the caller's rank in the column-major linearization of the grid.
func (g *Grid) VCRank() int { return g.row + g.col*g.height }

// VRRank is the caller's rank in the row-major linearization of the grid.
func (g *Grid) VRRank() int { return g.col + g.row*g.width }

// VCRankOf returns the VC rank of the process at (row, col).
func (g *Grid) VCRankOf(row, col int) int { return row + col*g.height }

// DiagPathRank is the caller's position along the grid's owning diagonal, or
// -1 when the caller is not on the diagonal (possible when gcd(r,c) > 1).
func (g *Grid) DiagPathRank() int {
	return layout.DiagPathRank(g.row, g.col, g.height, g.width)
}

// DiagLength is the length of the grid's owning diagonal, lcm(r,c): the
// stride of diagonal distributions.
func (g *Grid) DiagLength() int { return layout.LCM(g.height, g.width) }

// Comm returns the externally supplied communication group spanning all p
// processes, in its original rank order.
func (g *Grid) Comm() comm.Communicator { return g.world }

// RowComm returns the scope spanning the caller's grid row, ranked by grid
// column.
func (g *Grid) RowComm() comm.Communicator { return g.rowComm }

// ColComm returns the scope spanning the caller's grid column, ranked by grid
// row.
func (g *Grid) ColComm() comm.Communicator { return g.colComm }

// VCComm returns the scope spanning all p processes ranked by VC rank.
func (g *Grid) VCComm() comm.Communicator { return g.vcComm }

// VRComm returns the scope spanning all p processes ranked by VR rank.
func (g *Grid) VRComm() comm.Communicator { return g.vrComm }
