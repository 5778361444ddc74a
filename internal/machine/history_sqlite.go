package machine

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite.
//
// Transitions land in the machine_state_history table.
type SQLiteHistoryRepository struct {
	db *sql.DB
}

// NewSQLiteHistoryRepository creates a new SQLite transition history
// repository over an open connection.
func NewSQLiteHistoryRepository(db *sql.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// RecordTransition inserts a new transition row for a machine.
func (r *SQLiteHistoryRepository) RecordTransition(ctx context.Context, machineID string, from, to State, recipeID, source string) error {
	if machineID == "" {
		return fmt.Errorf("machine id is required")
	}
	if source == "" {
		source = HistorySourceTick
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO machine_state_history (machine_id, from_state, to_state, recipe_id, source)
		 VALUES (?, ?, ?, ?, ?)`,
		machineID, string(from), string(to), recipeID, source,
	)
	if err != nil {
		return fmt.Errorf("inserting transition history: %w", err)
	}
	return nil
}

// GetHistory returns recent transitions for a machine, ordered newest first.
// The limit defaults to 50 and is capped at 200.
func (r *SQLiteHistoryRepository) GetHistory(ctx context.Context, machineID string, limit int) ([]TransitionEntry, error) {
	if machineID == "" {
		return nil, fmt.Errorf("machine id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, machine_id, from_state, to_state, recipe_id, source, created_at
		 FROM machine_state_history
		 WHERE machine_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		machineID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying transition history: %w", err)
	}
	defer rows.Close()

	entries := make([]TransitionEntry, 0, limit)
	for rows.Next() {
		var (
			entry     TransitionEntry
			from, to  string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.MachineID, &from, &to, &entry.RecipeID, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transition history: %w", err)
		}
		entry.FromState = State(from)
		entry.ToState = State(to)

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = timestamp

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transition history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes transitions older than the given retention window,
// returning the number of rows removed.
func (r *SQLiteHistoryRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM machine_state_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting transition history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

// parseHistoryTimestamp parses a timestamp stored by SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
