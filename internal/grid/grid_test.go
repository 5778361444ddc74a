package grid

import (
	"errors"
	"testing"

	"github.com/foundryworks/foundry-core/internal/machine"
)

func TestGrid_ClaimAndLookup(t *testing.T) {
	g := New(10, 10)

	err := g.Claim("mach-a", machine.Position{X: 2, Y: 3}, 0, machine.Footprint{Width: 2, Height: 3})
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	cells := g.CellsOf("mach-a")
	if len(cells) != 6 {
		t.Fatalf("CellsOf() returned %d cells, want 6", len(cells))
	}
	if cells[0] != (Cell{X: 2, Y: 3}) || cells[5] != (Cell{X: 3, Y: 5}) {
		t.Errorf("CellsOf() corners = %+v and %+v, want (2,3) and (3,5)", cells[0], cells[5])
	}

	if !g.Occupied(3, 4) {
		t.Error("Occupied(3,4) = false inside the footprint")
	}
	if g.Occupied(4, 3) {
		t.Error("Occupied(4,3) = true outside the footprint")
	}

	owner, ok := g.OwnerAt(2, 5)
	if !ok || owner != "mach-a" {
		t.Errorf("OwnerAt(2,5) = %q, %v, want mach-a, true", owner, ok)
	}
	if _, ok := g.OwnerAt(0, 0); ok {
		t.Error("OwnerAt(0,0) found an owner on an empty cell")
	}

	stats := g.Stats()
	if stats.Used != 6 || stats.Machines != 1 {
		t.Errorf("Stats() = %+v, want 6 cells / 1 machine", stats)
	}
}

func TestGrid_RotationSwapsExtent(t *testing.T) {
	fp := machine.Footprint{Width: 3, Height: 2}

	tests := []struct {
		name     string
		rotation int
		wantW    int
		wantH    int
	}{
		{"rotation 0", 0, 3, 2},
		{"rotation 90", 90, 2, 3},
		{"rotation 180", 180, 3, 2},
		{"rotation 270", 270, 2, 3},
		{"rotation 450 folds to 90", 450, 2, 3},
		{"negative rotation folds up", -90, 2, 3},
		{"off-lattice rounds down", 135, 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New(10, 10)
			if err := g.Claim("m", machine.Position{X: 0, Y: 0}, tt.rotation, fp); err != nil {
				t.Fatalf("Claim() error = %v", err)
			}
			// The far corner of the rotated extent is claimed; one past it
			// in either axis is not.
			if !g.Occupied(tt.wantW-1, tt.wantH-1) {
				t.Errorf("far corner (%d,%d) not occupied", tt.wantW-1, tt.wantH-1)
			}
			if g.Occupied(tt.wantW, 0) || g.Occupied(0, tt.wantH) {
				t.Errorf("claim extends past %dx%d", tt.wantW, tt.wantH)
			}
		})
	}
}

func TestGrid_ClaimOutOfBounds(t *testing.T) {
	g := New(5, 5)

	tests := []struct {
		name     string
		pos      machine.Position
		rotation int
		fp       machine.Footprint
	}{
		{"negative x", machine.Position{X: -1, Y: 0}, 0, machine.Footprint{Width: 2, Height: 2}},
		{"negative y", machine.Position{X: 0, Y: -1}, 0, machine.Footprint{Width: 2, Height: 2}},
		{"past right edge", machine.Position{X: 4, Y: 0}, 0, machine.Footprint{Width: 2, Height: 2}},
		{"past bottom edge", machine.Position{X: 0, Y: 4}, 0, machine.Footprint{Width: 2, Height: 2}},
		{"rotation pushes past edge", machine.Position{X: 4, Y: 3}, 90, machine.Footprint{Width: 1, Height: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.Claim("m", tt.pos, tt.rotation, tt.fp)
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("Claim() error = %v, want ErrOutOfBounds", err)
			}
			if g.Stats().Used != 0 {
				t.Errorf("failed claim left %d cells behind", g.Stats().Used)
			}
		})
	}

	// The footprint that overflowed when rotated fits unrotated.
	if err := g.Claim("m", machine.Position{X: 4, Y: 3}, 0, machine.Footprint{Width: 1, Height: 2}); err != nil {
		t.Errorf("Claim() error = %v for an in-bounds footprint", err)
	}
}

func TestGrid_ClaimOverlap(t *testing.T) {
	g := New(8, 8)
	fp := machine.Footprint{Width: 2, Height: 2}

	if err := g.Claim("first", machine.Position{X: 2, Y: 2}, 0, fp); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	err := g.Claim("second", machine.Position{X: 3, Y: 3}, 0, fp)
	if !errors.Is(err, ErrOccupied) {
		t.Errorf("Claim() error = %v, want ErrOccupied", err)
	}
	if g.CellsOf("second") != nil {
		t.Error("failed claim should leave no cells for the claimant")
	}

	// Exact tiling against the existing footprint is fine.
	if err := g.Claim("third", machine.Position{X: 4, Y: 2}, 0, fp); err != nil {
		t.Errorf("Claim() error = %v for an adjacent footprint", err)
	}
}

func TestGrid_DuplicateClaim(t *testing.T) {
	g := New(8, 8)
	fp := machine.Footprint{Width: 1, Height: 1}

	if err := g.Claim("m", machine.Position{X: 0, Y: 0}, 0, fp); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	err := g.Claim("m", machine.Position{X: 5, Y: 5}, 0, fp)
	if !errors.Is(err, ErrAlreadyClaimed) {
		t.Errorf("Claim() error = %v, want ErrAlreadyClaimed", err)
	}

	if err := g.Claim("", machine.Position{X: 5, Y: 5}, 0, fp); err == nil {
		t.Error("Claim() with an empty id should fail")
	}
}

func TestGrid_ReleaseIsIdempotent(t *testing.T) {
	g := New(6, 6)
	fp := machine.Footprint{Width: 2, Height: 2}

	if err := g.Claim("m", machine.Position{X: 1, Y: 1}, 0, fp); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	g.Release("m")
	if g.Stats().Used != 0 || g.Stats().Machines != 0 {
		t.Errorf("Stats() after release = %+v, want empty floor", g.Stats())
	}
	if g.CellsOf("m") != nil {
		t.Error("CellsOf() after release should be nil")
	}

	g.Release("m")
	g.Release("never-claimed")

	// The freed cells can be claimed again, including by the same ID.
	if err := g.Claim("m", machine.Position{X: 1, Y: 1}, 0, fp); err != nil {
		t.Errorf("Claim() after release error = %v", err)
	}
}

func TestNew_ClampsDimensions(t *testing.T) {
	g := New(0, -3)
	w, h := g.Size()
	if w != 1 || h != 1 {
		t.Errorf("Size() = %dx%d, want 1x1", w, h)
	}
}
