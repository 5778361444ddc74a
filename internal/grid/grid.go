package grid

import (
	"fmt"
	"sort"
	"sync"

	"github.com/foundryworks/foundry-core/internal/machine"
)

// Cell is one floor coordinate.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is the factory floor occupancy map. It satisfies the machine
// registry's Grid collaborator and is safe for concurrent use.
type Grid struct {
	width  int
	height int

	cells  map[Cell]string
	owners map[string][]Cell
	mu     sync.RWMutex
}

// Stats summarises floor usage for the system API.
type Stats struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Used     int `json:"cells_used"`
	Machines int `json:"machines"`
}

// New creates a floor of the given dimensions. Non-positive dimensions are
// clamped to 1.
func New(width, height int) *Grid {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make(map[Cell]string),
		owners: make(map[string][]Cell),
	}
}

// Size returns the floor dimensions.
func (g *Grid) Size() (width, height int) {
	return g.width, g.height
}

// Claim reserves the rotated footprint anchored at pos for the given ID.
// The claim is all-or-nothing: on any error no cell changes owner.
func (g *Grid) Claim(id string, pos machine.Position, rotation int, fp machine.Footprint) error {
	if id == "" {
		return fmt.Errorf("grid: machine id is required")
	}

	w, h := rotatedExtent(rotation, fp)

	if pos.X < 0 || pos.Y < 0 || pos.X+w > g.width || pos.Y+h > g.height {
		return fmt.Errorf("%w: %dx%d at (%d,%d) on %dx%d floor",
			ErrOutOfBounds, w, h, pos.X, pos.Y, g.width, g.height)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.owners[id]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyClaimed, id)
	}

	claim := make([]Cell, 0, w*h)
	for y := pos.Y; y < pos.Y+h; y++ {
		for x := pos.X; x < pos.X+w; x++ {
			cell := Cell{X: x, Y: y}
			if owner, taken := g.cells[cell]; taken {
				return fmt.Errorf("%w: (%d,%d) held by %s", ErrOccupied, x, y, owner)
			}
			claim = append(claim, cell)
		}
	}

	for _, cell := range claim {
		g.cells[cell] = id
	}
	g.owners[id] = claim
	return nil
}

// Release frees every cell held by the ID. Releasing an unknown ID is a
// no-op, so teardown paths may call it unconditionally.
func (g *Grid) Release(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, cell := range g.owners[id] {
		delete(g.cells, cell)
	}
	delete(g.owners, id)
}

// Occupied reports whether the cell at (x, y) is claimed.
func (g *Grid) Occupied(x, y int) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	_, taken := g.cells[Cell{X: x, Y: y}]
	return taken
}

// OwnerAt returns the ID holding the cell at (x, y).
func (g *Grid) OwnerAt(x, y int) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	owner, taken := g.cells[Cell{X: x, Y: y}]
	return owner, taken
}

// CellsOf returns the cells held by the ID, ordered row-major. The slice is
// a copy.
func (g *Grid) CellsOf(id string) []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	held, ok := g.owners[id]
	if !ok {
		return nil
	}
	cells := append([]Cell(nil), held...)
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})
	return cells
}

// Stats returns aggregate floor usage.
func (g *Grid) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Stats{
		Width:    g.width,
		Height:   g.height,
		Used:     len(g.cells),
		Machines: len(g.owners),
	}
}

// rotatedExtent returns the footprint extent after rotation. Quarter turns
// swap width and height; anything off the 90-degree lattice is folded on
// first. Non-positive extents are clamped to 1, matching machine config
// sanitisation.
func rotatedExtent(rotation int, fp machine.Footprint) (w, h int) {
	w, h = fp.Width, fp.Height
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	rotation %= 360
	if rotation < 0 {
		rotation += 360
	}
	if rotation%180 >= 90 {
		w, h = h, w
	}
	return w, h
}
