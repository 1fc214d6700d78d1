package navgrid

import (
	"fmt"
	"os"

	"github.com/crystal-mush/riftcore/pkg/world"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a navigation grid. Each row is a string of
// '.' (walkable) and '#' (blocked) cells; row 0 is the lowest Y.
type File struct {
	CellSize float64  `yaml:"cell_size"`
	OriginX  float64  `yaml:"origin_x"`
	OriginY  float64  `yaml:"origin_y"`
	Rows     []string `yaml:"rows"`
}

// Load reads a grid from a YAML file.
func Load(path string) (*Grid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("navgrid: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a grid from YAML bytes.
func Parse(data []byte) (*Grid, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("navgrid: parsing YAML: %w", err)
	}
	if len(f.Rows) == 0 {
		return nil, fmt.Errorf("navgrid: no rows")
	}
	width := len(f.Rows[0])
	g, err := New(width, len(f.Rows), f.CellSize, world.Vec2{X: f.OriginX, Y: f.OriginY})
	if err != nil {
		return nil, err
	}
	for y, row := range f.Rows {
		if len(row) != width {
			return nil, fmt.Errorf("navgrid: row %d has %d cells, want %d", y, len(row), width)
		}
		for x := 0; x < width; x++ {
			switch row[x] {
			case '.':
			case '#':
				g.SetWalkable(x, y, false)
			default:
				return nil, fmt.Errorf("navgrid: row %d: unexpected cell %q", y, row[x])
			}
		}
	}
	return g, nil
}
