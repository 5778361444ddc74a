package machine

import (
	"context"
	"time"
)

// Transition history source values.
const (
	HistorySourceTick    = "tick"
	HistorySourceCommand = "command"
	HistorySourceRestore = "restore"
)

// TransitionEntry records a single machine state transition.
//
// Entries provide a local audit trail of lifecycle movement (why a machine
// stopped producing, when power dropped) even when the time-series database
// is unavailable.
type TransitionEntry struct {
	// ID is the auto-incremented primary key for the history row.
	ID int64 `json:"id"`

	// MachineID is the unique identifier of the machine.
	MachineID string `json:"machine_id"`

	// FromState and ToState bound the transition.
	FromState State `json:"from_state"`
	ToState   State `json:"to_state"`

	// RecipeID is the active recipe at transition time, empty when unset.
	RecipeID string `json:"recipe_id,omitempty"`

	// Source identifies what drove the transition (tick, command, restore).
	Source string `json:"source"`

	// CreatedAt is the timestamp of the transition (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// HistoryRepository stores and retrieves machine state transition history.
//
// Implementations must be thread-safe and use UTC timestamps.
type HistoryRepository interface {
	// RecordTransition records one state transition.
	RecordTransition(ctx context.Context, machineID string, from, to State, recipeID, source string) error

	// GetHistory returns recent transitions for the machine, newest first.
	// Implementations may clamp the limit.
	GetHistory(ctx context.Context, machineID string, limit int) ([]TransitionEntry, error)
}
