package machine

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the machines table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE machines (
			id TEXT PRIMARY KEY,
			type_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			class TEXT NOT NULL,
			tier INTEGER NOT NULL DEFAULT 1,
			pos_x INTEGER NOT NULL DEFAULT 0,
			pos_y INTEGER NOT NULL DEFAULT 0,
			rotation INTEGER NOT NULL DEFAULT 0,
			state TEXT NOT NULL DEFAULT 'idle',
			prev_state TEXT NOT NULL DEFAULT 'idle',
			resuming INTEGER NOT NULL DEFAULT 0,
			held INTEGER NOT NULL DEFAULT 0,
			progress REAL NOT NULL DEFAULT 0,
			recipe_id TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			powered INTEGER NOT NULL DEFAULT 1,
			intake_ports TEXT NOT NULL DEFAULT '[]',
			output_ports TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
		CREATE INDEX idx_machines_type ON machines(type_id);
		CREATE INDEX idx_machines_state ON machines(state);
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

// testSnapshot builds a mid-cycle snapshot exercising every persisted field.
func testSnapshot(id string) Snapshot {
	return Snapshot{
		ID:        id,
		TypeID:    "sawmill",
		Name:      "Mill " + id,
		Class:     ClassProcessor,
		Tier:      2,
		Position:  Position{X: 4, Y: 9},
		Rotation:  180,
		State:     StateProcessing,
		PrevState: StateIdle,
		Resuming:  false,
		Held:      false,
		Progress:  0.42,
		RecipeID:  "plank-press",
		Enabled:   true,
		Powered:   true,
		Intake:    []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
		Output:    []PortSnapshot{{Capacity: 50, Contents: map[string]int{"plank": 8}}},
	}
}

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	want := testSnapshot("mach-sg")
	if err := repo.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "mach-sg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.TypeID != want.TypeID || got.Name != want.Name || got.Class != want.Class {
		t.Errorf("identity = %q/%q/%q, want %q/%q/%q",
			got.TypeID, got.Name, got.Class, want.TypeID, want.Name, want.Class)
	}
	if got.Tier != 2 || got.Position != (Position{X: 4, Y: 9}) || got.Rotation != 180 {
		t.Errorf("placement = tier %d %+v/%d, want tier 2 {4 9}/180", got.Tier, got.Position, got.Rotation)
	}
	if got.State != StateProcessing || got.PrevState != StateIdle {
		t.Errorf("states = %q/%q, want processing/idle", got.State, got.PrevState)
	}
	if !almostEqual(got.Progress, 0.42) {
		t.Errorf("Progress = %v, want 0.42", got.Progress)
	}
	if got.RecipeID != "plank-press" {
		t.Errorf("RecipeID = %q, want plank-press", got.RecipeID)
	}
	if !got.Enabled || !got.Powered {
		t.Errorf("flags = enabled %v powered %v, want true/true", got.Enabled, got.Powered)
	}
	if len(got.Intake) != 1 || got.Intake[0].Contents["wood"] != 2 {
		t.Errorf("Intake = %+v, want one port with 2 wood", got.Intake)
	}
	if len(got.Output) != 1 || got.Output[0].Contents["plank"] != 8 {
		t.Errorf("Output = %+v, want one port with 8 plank", got.Output)
	}
}

func TestSQLiteRepository_SaveUpserts(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	snap := testSnapshot("mach-up")
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	snap.State = StateIdle
	snap.Progress = 0
	snap.RecipeID = ""
	snap.Intake[0].Contents = map[string]int{}
	if err := repo.Save(ctx, snap); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1 after upsert", count)
	}

	got, err := repo.Get(ctx, "mach-up")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.State != StateIdle || got.Progress != 0 || got.RecipeID != "" {
		t.Errorf("updated row = %q/%v/%q, want idle/0/empty", got.State, got.Progress, got.RecipeID)
	}
	if got.Intake[0].Contents["wood"] != 0 {
		t.Errorf("Intake wood = %d, want 0 after upsert", got.Intake[0].Contents["wood"])
	}
}

func TestSQLiteRepository_GetMissing(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteRepository_ListOrdered(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, id := range []string{"mach-b", "mach-a", "mach-c"} {
		if err := repo.Save(ctx, testSnapshot(id)); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	snaps, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("List() returned %d rows, want 3", len(snaps))
	}
	for i, want := range []string{"mach-a", "mach-b", "mach-c"} {
		if snaps[i].ID != want {
			t.Errorf("snaps[%d].ID = %q, want %q", i, snaps[i].ID, want)
		}
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, testSnapshot("mach-del")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := repo.Delete(ctx, "mach-del"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Get(ctx, "mach-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(ctx, "mach-del"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

// TestSQLiteRepository_RegistryRoundTrip persists through the registry and
// reloads into a second registry, the path a process restart takes.
func TestSQLiteRepository_RegistryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	r := testRecipe()
	resolver := &mockResolver{configs: map[string]Config{
		"sawmill": {
			TypeID:           "sawmill",
			Class:            ClassProcessor,
			Tier:             1,
			Footprint:        Footprint{Width: 2, Height: 2},
			IntakePorts:      []PortSpec{{Capacity: 50}},
			OutputPorts:      []PortSpec{{Capacity: 50}},
			AvailableRecipes: []*Recipe{r},
		},
	}}

	first := NewRegistry(repo, resolver, newMockGrid())
	view, err := first.Place(ctx, "sawmill", "Mill RT", Position{X: 1, Y: 2}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	first.AddToIntake(ctx, view.ID, 0, "wood", 2)
	first.SetRecipe(ctx, view.ID, "plank-press")
	first.TickAll(0.1)
	if err := first.PersistAll(ctx); err != nil {
		t.Fatalf("PersistAll() error = %v", err)
	}

	second := NewRegistry(repo, resolver, newMockGrid())
	if err := second.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	got, err := second.View(view.ID)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if got.State != StateProcessing {
		t.Errorf("State = %q after reload, want processing", got.State)
	}
	if got.Name != "Mill RT" {
		t.Errorf("Name = %q, want Mill RT", got.Name)
	}
	if !almostEqual(got.Progress, 0.05) {
		t.Errorf("Progress = %v, want 0.05", got.Progress)
	}

	// The reloaded machine finishes its cycle.
	for i := 0; i < 19; i++ {
		second.TickAll(0.1)
	}
	got, _ = second.View(view.ID)
	if plank := got.Output[0].Contents["plank"]; plank != 4 {
		t.Errorf("plank = %d after reloaded cycle, want 4", plank)
	}
}
