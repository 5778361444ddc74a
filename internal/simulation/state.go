package simulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteStateStore persists the simulation clock in SQLite. The table holds
// exactly one row so restarts resume from the last autosaved clock.
type SQLiteStateStore struct {
	db *sql.DB
}

// NewSQLiteStateStore creates a state store over an open SQLite connection
// with the simulation_state table migrated.
func NewSQLiteStateStore(db *sql.DB) *SQLiteStateStore {
	return &SQLiteStateStore{db: db}
}

// Save upserts the clock row.
func (s *SQLiteStateStore) Save(ctx context.Context, st State) error {
	query := `
		INSERT INTO simulation_state (id, sim_time, speed, paused, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sim_time = excluded.sim_time,
			speed = excluded.speed,
			paused = excluded.paused,
			updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, st.SimTime, st.Speed, st.Paused, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving simulation state: %w", err)
	}
	return nil
}

// Load reads the persisted clock. The boolean is false when the simulation
// has never been saved.
func (s *SQLiteStateStore) Load(ctx context.Context) (State, bool, error) {
	var st State
	err := s.db.QueryRowContext(ctx,
		`SELECT sim_time, speed, paused FROM simulation_state WHERE id = 1`,
	).Scan(&st.SimTime, &st.Speed, &st.Paused)
	if errors.Is(err, sql.ErrNoRows) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("loading simulation state: %w", err)
	}
	return st, true, nil
}
