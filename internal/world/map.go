// Package world provides the tile level, scene geometry, and level generation.
// Scene space is in pixels with Y pointing up; tile rows are stored top-down.
package world

import (
	"fmt"
	"math"
	"strings"
)

// Tile and tileset dimensions.
const (
	TileSize      = 64
	TileSetWidth  = 4
	TileSetHeight = 4
)

// TileIndex is a 1-based tileset index; 0 is an empty cell.
type TileIndex uint16

// Common tiles used by parsed and generated levels.
const (
	TileEmpty TileIndex = 0
	TileWall  TileIndex = 1
	// TileFloor is the only non-empty walkable tileset cell (column 0, row 3).
	TileFloor TileIndex = 3*TileSetWidth + 1
)

// IsSolid reports whether a tile blocks movement. Every tileset cell is solid
// except the floor cell at column 0, row 3.
func IsSolid(tile TileIndex) bool {
	if tile == TileEmpty {
		return false
	}
	t := tile - 1
	x := t % TileSetWidth
	y := t / TileSetWidth
	return x != 0 || y != 3
}

// TileMap holds the level's single collision layer.
type TileMap struct {
	Width  int         `json:"width"`  // In tiles
	Height int         `json:"height"` // In tiles
	Tiles  []TileIndex `json:"tiles"`  // Row-major, row 0 at the top
}

// NewTileMap creates a level filled with floor tiles.
func NewTileMap(width, height int) *TileMap {
	m := &TileMap{
		Width:  width,
		Height: height,
		Tiles:  make([]TileIndex, width*height),
	}
	for i := range m.Tiles {
		m.Tiles[i] = TileFloor
	}
	return m
}

// InBounds returns true if the tile coordinate is inside the map.
func (m *TileMap) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.Width && y < m.Height
}

// Tile returns the tile at a tile coordinate. Out-of-bounds cells read as walls.
func (m *TileMap) Tile(x, y int) TileIndex {
	if !m.InBounds(x, y) {
		return TileWall
	}
	return m.Tiles[y*m.Width+x]
}

// SetTile writes a tile; out-of-bounds writes are ignored.
func (m *TileMap) SetTile(x, y int, tile TileIndex) {
	if m.InBounds(x, y) {
		m.Tiles[y*m.Width+x] = tile
	}
}

// CellCoord converts a scene position to a tile coordinate.
func (m *TileMap) CellCoord(pos Vec2) (int, int) {
	x := int(math.Floor(pos.X / TileSize))
	y := m.Height - 1 - int(math.Floor(pos.Y/TileSize))
	return x, y
}

// TileAt returns the tile under a scene position.
func (m *TileMap) TileAt(pos Vec2) TileIndex {
	return m.Tile(m.CellCoord(pos))
}

// Solid reports whether the scene position lies in a solid tile.
func (m *TileMap) Solid(pos Vec2) bool {
	return IsSolid(m.TileAt(pos))
}

// CellBox returns the scene-space box covered by a tile.
func (m *TileMap) CellBox(x, y int) Box {
	lo := V(float64(x*TileSize), float64((m.Height-1-y)*TileSize))
	return BoxFrom(lo, V(TileSize, TileSize))
}

// BoxSolid reports whether any tile touched by the box is solid.
func (m *TileMap) BoxSolid(b Box) bool {
	// Max is exclusive: nudge it inward so a box ending on a tile edge
	// does not touch the next tile.
	const eps = 1e-9
	x0, y1 := m.CellCoord(b.Min)
	x1, y0 := m.CellCoord(V(b.Max.X-eps, b.Max.Y-eps))
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if IsSolid(m.Tile(x, y)) {
				return true
			}
		}
	}
	return false
}

// Bounds returns the scene-space extent of the level.
func (m *TileMap) Bounds() Box {
	return Box{Max: V(float64(m.Width*TileSize), float64(m.Height*TileSize))}
}

// ParseLevel builds a tile map from ASCII rows: '#' is a wall, anything else floor.
// The first line is the top row.
func ParseLevel(text string) (*TileMap, error) {
	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimRight(line, "\r ")
		if line != "" {
			rows = append(rows, line)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse level: empty")
	}
	width := len(rows[0])
	for i, r := range rows {
		if len(r) != width {
			return nil, fmt.Errorf("parse level: row %d has width %d, want %d", i, len(r), width)
		}
	}

	m := NewTileMap(width, len(rows))
	for y, r := range rows {
		for x, c := range r {
			if c == '#' {
				m.SetTile(x, y, TileWall)
			}
		}
	}
	return m, nil
}

// String renders the map back to ASCII.
func (m *TileMap) String() string {
	var sb strings.Builder
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if IsSolid(m.Tile(x, y)) {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// SolidCount returns the number of solid tiles.
func (m *TileMap) SolidCount() int {
	n := 0
	for _, t := range m.Tiles {
		if IsSolid(t) {
			n++
		}
	}
	return n
}
