package sim

import "math"

const DefaultCellSize = 160.0 // about the separation radius

// EntityKind tags what an EntityRef points at
type EntityKind byte

const KindAgent EntityKind = 'a'

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind EntityKind
	Idx  int // index into the corresponding flat list
}

type cellKey struct{ X, Y int32 }

// SpatialGrid is an unbounded hashed grid for broad-phase and neighbour
// queries. Cells keep their capacity across Clear calls.
type SpatialGrid struct {
	cellSize float64
	cells    map[cellKey][]EntityRef
}

// NewSpatialGrid creates a grid with square cells of the given size
func NewSpatialGrid(cellSize float64) *SpatialGrid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &SpatialGrid{cellSize: cellSize, cells: make(map[cellKey][]EntityRef)}
}

// Clear empties every cell
func (g *SpatialGrid) Clear() {
	for k, c := range g.cells {
		g.cells[k] = c[:0]
	}
}

func (g *SpatialGrid) key(x, y float64) cellKey {
	return cellKey{int32(math.Floor(x / g.cellSize)), int32(math.Floor(y / g.cellSize))}
}

// Insert adds an entity reference at the given position
func (g *SpatialGrid) Insert(p Vec2, ref EntityRef) {
	k := g.key(p.X, p.Y)
	g.cells[k] = append(g.cells[k], ref)
}

// InsertCircle adds an entity reference to every cell its bounding box overlaps
func (g *SpatialGrid) InsertCircle(p Vec2, radius float64, ref EntityRef) {
	lo, hi := g.key(p.X-radius, p.Y-radius), g.key(p.X+radius, p.Y+radius)
	for cy := lo.Y; cy <= hi.Y; cy++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			k := cellKey{cx, cy}
			g.cells[k] = append(g.cells[k], ref)
		}
	}
}

// Query returns all refs in cells overlapping the given bounding box
func (g *SpatialGrid) Query(p Vec2, radius float64) []EntityRef {
	return g.QueryBuf(p, radius, nil)
}

// QueryBuf appends results to buf and returns the extended slice
func (g *SpatialGrid) QueryBuf(p Vec2, radius float64, buf []EntityRef) []EntityRef {
	lo, hi := g.key(p.X-radius, p.Y-radius), g.key(p.X+radius, p.Y+radius)
	for cy := lo.Y; cy <= hi.Y; cy++ {
		for cx := lo.X; cx <= hi.X; cx++ {
			buf = append(buf, g.cells[cellKey{cx, cy}]...)
		}
	}
	return buf
}
