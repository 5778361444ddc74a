package grid

import "errors"

// Domain errors for the grid package.
var (
	// ErrOutOfBounds is returned when a footprint does not fit on the floor.
	ErrOutOfBounds = errors.New("grid: placement out of bounds")

	// ErrOccupied is returned when a footprint overlaps a claimed cell.
	ErrOccupied = errors.New("grid: cell already occupied")

	// ErrAlreadyClaimed is returned when an ID that already holds cells
	// claims again. Release first; the grid does not move machines.
	ErrAlreadyClaimed = errors.New("grid: id already holds cells")
)
