package simulation

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupStateTestDB creates an in-memory SQLite database with the
// simulation_state table.
func setupStateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE simulation_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			sim_time REAL NOT NULL DEFAULT 0,
			speed REAL NOT NULL DEFAULT 1,
			paused INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		) STRICT;
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteStateStore_LoadEmpty(t *testing.T) {
	store := NewSQLiteStateStore(setupStateTestDB(t))

	st, found, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if found {
		t.Errorf("Load() found = true on empty table, state = %+v", st)
	}
}

func TestSQLiteStateStore_SaveAndLoad(t *testing.T) {
	store := NewSQLiteStateStore(setupStateTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, State{SimTime: 120.5, Speed: 2, Paused: true}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	st, found, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !found {
		t.Fatal("Load() found = false after Save")
	}
	if st.SimTime != 120.5 {
		t.Errorf("SimTime = %v, want 120.5", st.SimTime)
	}
	if st.Speed != 2 {
		t.Errorf("Speed = %v, want 2", st.Speed)
	}
	if !st.Paused {
		t.Error("Paused = false, want true")
	}
}

func TestSQLiteStateStore_SaveOverwritesSingleRow(t *testing.T) {
	store := NewSQLiteStateStore(setupStateTestDB(t))
	ctx := context.Background()

	if err := store.Save(ctx, State{SimTime: 10, Speed: 1}); err != nil {
		t.Fatalf("first Save() error = %v", err)
	}
	if err := store.Save(ctx, State{SimTime: 20, Speed: 4}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	st, found, err := store.Load(ctx)
	if err != nil || !found {
		t.Fatalf("Load() = found %v, err %v", found, err)
	}
	if st.SimTime != 20 || st.Speed != 4 || st.Paused {
		t.Errorf("state = %+v, want latest save only", st)
	}

	var count int
	if err := store.db.QueryRow(`SELECT COUNT(*) FROM simulation_state`).Scan(&count); err != nil {
		t.Fatalf("counting rows: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}
