package navgrid

import (
	"fmt"
	"math"

	"github.com/crystal-mush/riftcore/pkg/world"
)

// Grid is a walkability bitmap over the map plane. Cell (0,0) covers
// [Origin.X, Origin.X+CellSize) x [Origin.Y, Origin.Y+CellSize).
type Grid struct {
	Width    int
	Height   int
	CellSize float64
	Origin   world.Vec2
	walkable []bool
}

// New creates a fully walkable grid.
func New(width, height int, cellSize float64, origin world.Vec2) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("navgrid: invalid dimensions %dx%d", width, height)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("navgrid: invalid cell size %v", cellSize)
	}
	g := &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Origin:   origin,
		walkable: make([]bool, width*height),
	}
	for i := range g.walkable {
		g.walkable[i] = true
	}
	return g, nil
}

// SetWalkable marks a cell. Out-of-range cells are ignored.
func (g *Grid) SetWalkable(cx, cy int, walkable bool) {
	if !g.inBounds(cx, cy) {
		return
	}
	g.walkable[cy*g.Width+cx] = walkable
}

func (g *Grid) inBounds(cx, cy int) bool {
	return cx >= 0 && cy >= 0 && cx < g.Width && cy < g.Height
}

func (g *Grid) cellWalkable(cx, cy int) bool {
	return g.inBounds(cx, cy) && g.walkable[cy*g.Width+cx]
}

// cellOf maps a world point to its cell coordinates. ok is false for
// points that do not fall on any cell, including non-finite ones.
func (g *Grid) cellOf(x, y float64) (cx, cy int, ok bool) {
	fx := math.Floor((x - g.Origin.X) / g.CellSize)
	fy := math.Floor((y - g.Origin.Y) / g.CellSize)
	if !(fx >= 0 && fx < float64(g.Width) && fy >= 0 && fy < float64(g.Height)) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

func (g *Grid) cellCenter(cx, cy int) world.Vec2 {
	return world.Vec2{
		X: g.Origin.X + (float64(cx)+0.5)*g.CellSize,
		Y: g.Origin.Y + (float64(cy)+0.5)*g.CellSize,
	}
}

// IsWalkable reports whether the point lies on a walkable cell.
// Points outside the grid are never walkable.
func (g *Grid) IsWalkable(x, y float64) bool {
	cx, cy, ok := g.cellOf(x, y)
	return ok && g.cellWalkable(cx, cy)
}

// clampCell maps a world coordinate onto a cell index in [0, n-1]. NaN
// maps to the middle of the axis.
func clampCell(v, origin, cellSize float64, n int) int {
	if math.IsNaN(v) {
		return n / 2
	}
	f := math.Floor((v - origin) / cellSize)
	switch {
	case f < 0:
		return 0
	case f > float64(n-1):
		return n - 1
	}
	return int(f)
}

// ClosestTerrainExit snaps p to walkable terrain. Walkable points are
// returned unchanged; otherwise the centre of the nearest walkable cell is
// returned, searching outward ring by ring from the in-grid cell closest to
// p. Non-finite points snap like any other off-grid point. A grid without
// any walkable cell returns p.
func (g *Grid) ClosestTerrainExit(p world.Vec2) world.Vec2 {
	if g.IsWalkable(p.X, p.Y) {
		return p
	}
	cx := clampCell(p.X, g.Origin.X, g.CellSize, g.Width)
	cy := clampCell(p.Y, g.Origin.Y, g.CellSize, g.Height)
	if g.cellWalkable(cx, cy) {
		return g.cellCenter(cx, cy)
	}

	// Distances are measured from p when it is finite, else from the start cell.
	from := p
	if !isFinite(p) {
		from = g.cellCenter(cx, cy)
	}

	maxRing := max(g.Width, g.Height)
	for r := 1; r <= maxRing; r++ {
		best := world.Vec2{}
		bestDist := math.Inf(1)
		found := false
		try := func(x, y int) {
			if !g.cellWalkable(x, y) {
				return
			}
			c := g.cellCenter(x, y)
			if d := c.Dist(from); !found || d < bestDist {
				best, bestDist, found = c, d, true
			}
		}
		for x := cx - r; x <= cx+r; x++ {
			try(x, cy-r)
			try(x, cy+r)
		}
		for y := cy - r + 1; y <= cy+r-1; y++ {
			try(cx-r, y)
			try(cx+r, y)
		}
		if found {
			return best
		}
	}
	return p
}

func isFinite(p world.Vec2) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
