package geom

// Partition returns the inclusive range [lo, hi] of the n domain indices owned
// by the idx-th of q equal slabs. Neighboring slabs share the computation of
// their common edge exactly (integer arithmetic only), so for a fixed n and q
// the ranges of idx = 0, ..., q-1 are adjoining, disjoint, and cover
// [0, n-1]. Slab sizes differ by at most one.
func Partition(n, q, idx int) (lo, hi int) {
	lo = n * idx / q
	hi = n*(idx+1)/q - 1
	return lo, hi
}

// Bounds is an inclusive rectangle of absolute domain cells.
type Bounds struct {
	Row0, Row1, Col0, Col1 int
}

// Rows returns the number of rows in b.
func (b Bounds) Rows() int { return b.Row1 - b.Row0 + 1 }

// Cols returns the number of columns in b.
func (b Bounds) Cols() int { return b.Col1 - b.Col0 + 1 }

// Contains returns true if the absolute cell (row, col) is inside b.
func (b Bounds) Contains(row, col int) bool {
	return row >= b.Row0 && row <= b.Row1 && col >= b.Col0 && col <= b.Col1
}

// TileBounds returns the interior bounds of the tile owned by rank when an
// n x n domain is split across t.
func (t *Topology) TileBounds(n, rank int) Bounds {
	b := Bounds{}
	b.Row0, b.Row1 = Partition(n, t.q, t.Row(rank))
	b.Col0, b.Col1 = Partition(n, t.q, t.Col(rank))
	return b
}
