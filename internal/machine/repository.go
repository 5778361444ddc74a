package machine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence operations for machine snapshots.
// The abstraction allows different implementations (SQLite, mock) and keeps
// the registry testable without a database.
type Repository interface {
	// Save upserts a machine snapshot.
	Save(ctx context.Context, snap Snapshot) error

	// Get retrieves a snapshot by machine ID.
	// Returns ErrNotFound if the machine does not exist.
	Get(ctx context.Context, id string) (Snapshot, error)

	// List retrieves all snapshots ordered by ID.
	List(ctx context.Context) ([]Snapshot, error)

	// Delete removes a snapshot by machine ID.
	// Returns ErrNotFound if the machine does not exist.
	Delete(ctx context.Context, id string) error

	// Count returns the number of persisted machines.
	Count(ctx context.Context) (int, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection with the machines
// table migrated.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const machineColumns = `id, type_id, name, class, tier, pos_x, pos_y, rotation,
	state, prev_state, resuming, held, progress, recipe_id, enabled, powered,
	intake_ports, output_ports`

// Save upserts a machine snapshot. Port contents are stored as JSON columns.
func (r *SQLiteRepository) Save(ctx context.Context, snap Snapshot) error {
	intakeJSON, err := json.Marshal(snap.Intake)
	if err != nil {
		return fmt.Errorf("marshalling intake ports: %w", err)
	}
	outputJSON, err := json.Marshal(snap.Output)
	if err != nil {
		return fmt.Errorf("marshalling output ports: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO machines (` + machineColumns + `, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type_id = excluded.type_id,
			name = excluded.name,
			class = excluded.class,
			tier = excluded.tier,
			pos_x = excluded.pos_x,
			pos_y = excluded.pos_y,
			rotation = excluded.rotation,
			state = excluded.state,
			prev_state = excluded.prev_state,
			resuming = excluded.resuming,
			held = excluded.held,
			progress = excluded.progress,
			recipe_id = excluded.recipe_id,
			enabled = excluded.enabled,
			powered = excluded.powered,
			intake_ports = excluded.intake_ports,
			output_ports = excluded.output_ports,
			updated_at = excluded.updated_at`

	_, err = r.db.ExecContext(ctx, query,
		snap.ID, snap.TypeID, snap.Name, string(snap.Class), snap.Tier,
		snap.Position.X, snap.Position.Y, snap.Rotation,
		string(snap.State), string(snap.PrevState), snap.Resuming, snap.Held,
		snap.Progress, snap.RecipeID, snap.Enabled, snap.Powered,
		string(intakeJSON), string(outputJSON), now, now,
	)
	if err != nil {
		return fmt.Errorf("saving machine: %w", err)
	}
	return nil
}

// Get retrieves a snapshot by machine ID.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (Snapshot, error) {
	query := `SELECT ` + machineColumns + ` FROM machines WHERE id = ?`

	snap, err := scanMachine(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("querying machine by id: %w", err)
	}
	return snap, nil
}

// List retrieves all snapshots ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context) ([]Snapshot, error) {
	query := `SELECT ` + machineColumns + ` FROM machines ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying machines: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		snap, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning machine row: %w", err)
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating machine rows: %w", err)
	}
	return snaps, nil
}

// Delete removes a snapshot by machine ID.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM machines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting machine: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of persisted machines.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM machines`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting machines: %w", err)
	}
	return count, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanMachine.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner) (Snapshot, error) {
	var (
		snap                   Snapshot
		class, state, prev     string
		intakeJSON, outputJSON string
	)

	err := row.Scan(
		&snap.ID, &snap.TypeID, &snap.Name, &class, &snap.Tier,
		&snap.Position.X, &snap.Position.Y, &snap.Rotation,
		&state, &prev, &snap.Resuming, &snap.Held,
		&snap.Progress, &snap.RecipeID, &snap.Enabled, &snap.Powered,
		&intakeJSON, &outputJSON,
	)
	if err != nil {
		return Snapshot{}, err
	}

	snap.Class = Class(class)
	snap.State = State(state)
	snap.PrevState = State(prev)

	if err := json.Unmarshal([]byte(intakeJSON), &snap.Intake); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshalling intake ports: %w", err)
	}
	if err := json.Unmarshal([]byte(outputJSON), &snap.Output); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshalling output ports: %w", err)
	}
	return snap, nil
}
