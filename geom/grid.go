package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/phil-mansfield/gogrid/mpi"
)

// Side names one of the four edges of a tile.
type Side int

const (
	Up Side = iota
	Down
	Left
	Right
)

// Sides lists every Side in the order halos are exchanged.
var Sides = [4]Side{Up, Down, Left, Right}

func (s Side) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Opposite returns the side facing s.
func (s Side) Opposite() Side {
	switch s {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	}
	return Left
}

// Region is a strided block of a tile's flat storage: the Datatype applied
// to storage[Offset:].
type Region struct {
	Offset int
	mpi.Datatype
}

// Of returns the slice of buf which the Region's Datatype should be applied
// to.
func (r Region) Of(buf []float64) []float64 { return buf[r.Offset:] }

// Tile is the block of an N x N domain owned by a single worker, stored with a
// one cell halo on every side. Local cell (i, j) with 0 <= i <= Rows+1 and
// 0 <= j <= Cols+1 corresponds to the absolute cell
// (i + Row0 - 1, j + Col0 - 1). Local rows and columns 1 through Rows and Cols
// are the interior.
//
// Storage is a row-major gonum matrix, so rows of the tile are contiguous and
// columns are strided by Stride().
type Tile struct {
	Bounds
	Rows, Cols int

	data   *mat.Dense
	raw    []float64
	stride int

	send, recv [4]Region
}

// NewTile returns a new Tile covering the interior cells b.
func NewTile(b Bounds) *Tile {
	t := &Tile{}
	t.Init(b)
	return t
}

// Init initializes a Tile instance. All cells start at zero.
func (t *Tile) Init(b Bounds) {
	t.Bounds = b
	t.Rows, t.Cols = b.Rows(), b.Cols()

	t.data = mat.NewDense(t.Rows+2, t.Cols+2, nil)
	rm := t.data.RawMatrix()
	t.raw, t.stride = rm.Data, rm.Stride

	row := mpi.Contiguous(t.Cols)
	col := mpi.Vector(t.Rows, 1, t.stride)

	t.send[Up] = Region{t.Idx(1, 1), row}
	t.send[Down] = Region{t.Idx(t.Rows, 1), row}
	t.send[Left] = Region{t.Idx(1, 1), col}
	t.send[Right] = Region{t.Idx(1, t.Cols), col}

	t.recv[Up] = Region{t.Idx(0, 1), row}
	t.recv[Down] = Region{t.Idx(t.Rows+1, 1), row}
	t.recv[Left] = Region{t.Idx(1, 0), col}
	t.recv[Right] = Region{t.Idx(1, t.Cols+1), col}
}

// Stride returns the distance in the flat storage between vertically
// adjacent cells.
func (t *Tile) Stride() int { return t.stride }

// Raw returns the flat storage of the tile, halo included. Writes to it are
// visible through every other accessor.
func (t *Tile) Raw() []float64 { return t.raw }

// Matrix returns the tile, halo included, as a gonum matrix.
func (t *Tile) Matrix() *mat.Dense { return t.data }

// Interior returns a view of the interior of the tile.
func (t *Tile) Interior() mat.Matrix {
	return t.data.Slice(1, t.Rows+1, 1, t.Cols+1)
}

// Idx returns the flat storage index of local cell (i, j). It does no bounds
// checking.
func (t *Tile) Idx(i, j int) int { return i*t.stride + j }

// IdxCheck returns an index and true if the given local cell is in the tile
// window and false otherwise.
func (t *Tile) IdxCheck(i, j int) (idx int, ok bool) {
	if !t.BoundsCheck(i, j) {
		return -1, false
	}
	return t.Idx(i, j), true
}

// BoundsCheck returns true if local cell (i, j) is in the interior or halo.
func (t *Tile) BoundsCheck(i, j int) bool {
	return i >= 0 && j >= 0 && i <= t.Rows+1 && j <= t.Cols+1
}

// InInterior returns true if local cell (i, j) is an interior cell.
func (t *Tile) InInterior(i, j int) bool {
	return i >= 1 && j >= 1 && i <= t.Rows && j <= t.Cols
}

// Local converts absolute coordinates to local ones.
func (t *Tile) Local(row, col int) (i, j int) {
	return row - t.Row0 + 1, col - t.Col0 + 1
}

// Abs converts local coordinates to absolute ones.
func (t *Tile) Abs(i, j int) (row, col int) {
	return i + t.Row0 - 1, j + t.Col0 - 1
}

func (t *Tile) rangeError(i, j int) *RangeError {
	return &RangeError{Row: i, Col: j, Rows: t.Rows, Cols: t.Cols}
}

// At returns the value of local cell (i, j).
func (t *Tile) At(i, j int) (float64, error) {
	idx, ok := t.IdxCheck(i, j)
	if !ok {
		return 0, t.rangeError(i, j)
	}
	return t.raw[idx], nil
}

// Set sets the value of local cell (i, j).
func (t *Tile) Set(i, j int, x float64) error {
	idx, ok := t.IdxCheck(i, j)
	if !ok {
		return t.rangeError(i, j)
	}
	t.raw[idx] = x
	return nil
}

// AtAbs returns the value of the absolute cell (row, col), which must be
// inside the tile's interior or halo.
func (t *Tile) AtAbs(row, col int) (float64, error) {
	return t.At(t.Local(row, col))
}

// SendRegion returns the region of interior cells bordering side s. These are
// the values a neighbor on that side keeps in its halo.
func (t *Tile) SendRegion(s Side) Region { return t.send[s] }

// RecvRegion returns the halo region on side s.
func (t *Tile) RecvRegion(s Side) Region { return t.recv[s] }

// CopyInterior writes the interior of the tile into out in row-major order
// and returns it. out is allocated if it is too short.
func (t *Tile) CopyInterior(out []float64) []float64 {
	if len(out) < t.Rows*t.Cols {
		out = make([]float64, t.Rows*t.Cols)
	}
	for i := 1; i <= t.Rows; i++ {
		start := t.Idx(i, 1)
		copy(out[(i-1)*t.Cols:i*t.Cols], t.raw[start:start+t.Cols])
	}
	return out[:t.Rows*t.Cols]
}
