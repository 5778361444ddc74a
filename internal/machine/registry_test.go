package machine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
)

// MockRepository is an in-memory Repository for registry tests.
type MockRepository struct {
	mu   sync.Mutex
	rows map[string]Snapshot

	// For testing error paths
	saveErr   error
	listErr   error
	deleteErr error

	saves int
}

func NewMockRepository() *MockRepository {
	return &MockRepository{rows: make(map[string]Snapshot)}
}

func (r *MockRepository) Save(_ context.Context, snap Snapshot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[snap.ID] = snap
	r.saves++
	return nil
}

func (r *MockRepository) Get(_ context.Context, id string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap, ok := r.rows[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap, nil
}

func (r *MockRepository) List(_ context.Context) ([]Snapshot, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	snaps := make([]Snapshot, 0, len(r.rows))
	for _, snap := range r.rows {
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps, nil
}

func (r *MockRepository) Delete(_ context.Context, id string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return ErrNotFound
	}
	delete(r.rows, id)
	return nil
}

func (r *MockRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rows), nil
}

// addRow seeds a snapshot directly for load tests.
func (r *MockRepository) addRow(snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[snap.ID] = snap
}

// mockResolver maps type IDs to construction configs.
type mockResolver struct {
	configs map[string]Config
}

func (m *mockResolver) MachineConfig(typeID string) (Config, error) {
	cfg, ok := m.configs[typeID]
	if !ok {
		return Config{}, ErrNotFound
	}
	return cfg, nil
}

// mockGrid records claims and releases, with optional claim failure.
type mockGrid struct {
	claims   map[string]Position
	released []string
	claimErr error
}

func newMockGrid() *mockGrid {
	return &mockGrid{claims: make(map[string]Position)}
}

func (g *mockGrid) Claim(id string, pos Position, _ int, _ Footprint) error {
	if g.claimErr != nil {
		return g.claimErr
	}
	g.claims[id] = pos
	return nil
}

func (g *mockGrid) Release(id string) {
	delete(g.claims, id)
	g.released = append(g.released, id)
}

// testRegistry builds a registry over fresh mocks with one sawmill type.
func testRegistry() (*Registry, *MockRepository, *mockGrid, *Recipe) {
	r := testRecipe()
	repo := NewMockRepository()
	grid := newMockGrid()
	resolver := &mockResolver{configs: map[string]Config{
		"sawmill": {
			TypeID:           "sawmill",
			Class:            ClassProcessor,
			Tier:             1,
			BasePowerDraw:    10,
			Footprint:        Footprint{Width: 2, Height: 2},
			IntakePorts:      []PortSpec{{Capacity: 50}},
			OutputPorts:      []PortSpec{{Capacity: 50}},
			AvailableRecipes: []*Recipe{r},
		},
	}}
	return NewRegistry(repo, resolver, grid), repo, grid, r
}

func TestRegistry_Place(t *testing.T) {
	reg, repo, grid, _ := testRegistry()
	ctx := context.Background()

	view, err := reg.Place(ctx, "sawmill", "Mill A", Position{X: 2, Y: 3}, 90)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if view.ID == "" {
		t.Error("placed machine should have a generated ID")
	}
	if view.State != StateIdle {
		t.Errorf("State = %q, want idle", view.State)
	}
	if view.Position != (Position{X: 2, Y: 3}) || view.Rotation != 90 {
		t.Errorf("placement = %+v/%d, want {2 3}/90", view.Position, view.Rotation)
	}

	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
	if _, ok := grid.claims[view.ID]; !ok {
		t.Error("grid cells should be claimed on placement")
	}
	if _, err := repo.Get(ctx, view.ID); err != nil {
		t.Errorf("snapshot not persisted: %v", err)
	}
}

func TestRegistry_PlaceUnknownType(t *testing.T) {
	reg, _, _, _ := testRegistry()

	_, err := reg.Place(context.Background(), "fusion-reactor", "", Position{}, 0)
	if err == nil {
		t.Error("Place() with unknown type should fail")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
}

func TestRegistry_PlaceGridConflict(t *testing.T) {
	reg, repo, grid, _ := testRegistry()
	grid.claimErr = errors.New("cells occupied")

	_, err := reg.Place(context.Background(), "sawmill", "", Position{X: 1, Y: 1}, 0)
	if err == nil {
		t.Fatal("Place() should fail when the grid claim fails")
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0 after failed placement", reg.Count())
	}
	if n, _ := repo.Count(context.Background()); n != 0 {
		t.Errorf("repository rows = %d, want 0 after failed placement", n)
	}
}

func TestRegistry_Remove(t *testing.T) {
	reg, repo, grid, _ := testRegistry()
	ctx := context.Background()

	view, err := reg.Place(ctx, "sawmill", "", Position{X: 0, Y: 0}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	if err := reg.Remove(ctx, view.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if reg.Count() != 0 {
		t.Errorf("Count() = %d, want 0", reg.Count())
	}
	if len(grid.released) != 1 || grid.released[0] != view.ID {
		t.Errorf("grid releases = %v, want exactly [%s]", grid.released, view.ID)
	}
	if _, err := repo.Get(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("snapshot should be deleted, Get() error = %v", err)
	}

	if err := reg.Remove(ctx, view.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove() error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_LoadAll(t *testing.T) {
	reg, repo, grid, _ := testRegistry()
	ctx := context.Background()

	repo.addRow(Snapshot{
		ID: "mach-a", TypeID: "sawmill", Tier: 1, State: StateIdle,
		Enabled: true, Powered: true,
		Position: Position{X: 4, Y: 4},
		Intake:   []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
		Output:   []PortSnapshot{{Capacity: 50}},
	})
	repo.addRow(Snapshot{
		ID: "mach-b", TypeID: "sawmill", Tier: 1, State: StateProcessing,
		Progress: 0.5, RecipeID: "plank-press",
		Enabled: true, Powered: true,
		Intake: []PortSnapshot{{Capacity: 50, Contents: map[string]int{"wood": 2}}},
		Output: []PortSnapshot{{Capacity: 50}},
	})
	// A row whose type vanished from the catalog is skipped, not fatal.
	repo.addRow(Snapshot{ID: "mach-c", TypeID: "retired-type", Tier: 1, State: StateIdle})

	if err := reg.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	if reg.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", reg.Count())
	}
	if _, err := reg.View("mach-c"); !errors.Is(err, ErrNotFound) {
		t.Error("machine with unknown type should not be loaded")
	}

	view, err := reg.View("mach-b")
	if err != nil {
		t.Fatalf("View(mach-b) error = %v", err)
	}
	if view.State != StateProcessing {
		t.Errorf("State = %q, want processing", view.State)
	}
	if !almostEqual(view.Progress, 0.5) {
		t.Errorf("Progress = %v, want 0.5", view.Progress)
	}
	if view.RecipeID != "plank-press" {
		t.Errorf("RecipeID = %q, want plank-press", view.RecipeID)
	}

	// Grid cells are reclaimed for loaded machines.
	if got := grid.claims["mach-a"]; got != (Position{X: 4, Y: 4}) {
		t.Errorf("reclaimed position = %+v, want {4 4}", got)
	}

	// The restored mid-cycle machine finishes where it left off.
	for i := 0; i < 10; i++ {
		reg.TickAll(0.1)
	}
	view, _ = reg.View("mach-b")
	if got := view.Output[0].Contents["plank"]; got != 4 {
		t.Errorf("plank after resumed cycle = %d, want 4", got)
	}
}

func TestRegistry_LoadAllListError(t *testing.T) {
	reg, repo, _, _ := testRegistry()
	repo.listErr = errors.New("disk gone")

	if err := reg.LoadAll(context.Background()); err == nil {
		t.Error("LoadAll() should surface repository list errors")
	}
}

func TestRegistry_TickAllReportsEffects(t *testing.T) {
	reg, _, _, _ := testRegistry()
	ctx := context.Background()

	view, err := reg.Place(ctx, "sawmill", "", Position{}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if _, err := reg.AddToIntake(ctx, view.ID, 0, "wood", 2); err != nil {
		t.Fatalf("AddToIntake() error = %v", err)
	}
	if _, err := reg.SetRecipe(ctx, view.ID, "plank-press"); err != nil {
		t.Fatalf("SetRecipe() error = %v", err)
	}

	effects := reg.TickAll(0.1)
	if !hasEffect(effects[view.ID], EffectProcessingStarted) {
		t.Errorf("TickAll effects for %s = %v, want processing_started", view.ID, effects[view.ID])
	}

	// Steady mid-cycle ticks produce no effects and no map entries.
	if effects := reg.TickAll(0.1); len(effects) != 0 {
		t.Errorf("mid-cycle TickAll returned %d entries, want 0", len(effects))
	}

	for i := 0; i < 18; i++ {
		effects = reg.TickAll(0.1)
	}
	if !hasEffect(effects[view.ID], EffectProcessingCompleted) {
		t.Errorf("final tick effects = %v, want processing_completed", effects[view.ID])
	}

	got, err := reg.ExtractFromOutput(ctx, view.ID, 0, "plank", 4)
	if err != nil || got != 4 {
		t.Errorf("ExtractFromOutput() = %d, %v, want 4, nil", got, err)
	}
}

func TestRegistry_SetRecipeErrors(t *testing.T) {
	reg, _, _, _ := testRegistry()
	ctx := context.Background()

	if _, err := reg.SetRecipe(ctx, "ghost", "plank-press"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetRecipe(ghost) error = %v, want ErrNotFound", err)
	}

	view, err := reg.Place(ctx, "sawmill", "", Position{}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}
	if _, err := reg.SetRecipe(ctx, view.ID, "no-such-recipe"); !errors.Is(err, ErrUnknownRecipe) {
		t.Errorf("SetRecipe(unknown) error = %v, want ErrUnknownRecipe", err)
	}
}

func TestRegistry_PortIndexValidation(t *testing.T) {
	reg, _, _, _ := testRegistry()
	ctx := context.Background()

	view, err := reg.Place(ctx, "sawmill", "", Position{}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	if _, err := reg.AddToIntake(ctx, view.ID, 3, "wood", 1); !errors.Is(err, ErrPortIndex) {
		t.Errorf("AddToIntake(port 3) error = %v, want ErrPortIndex", err)
	}
	if _, err := reg.ExtractFromIntake(ctx, view.ID, -1, "wood", 1); !errors.Is(err, ErrPortIndex) {
		t.Errorf("ExtractFromIntake(port -1) error = %v, want ErrPortIndex", err)
	}
	if _, err := reg.ExtractFromOutput(ctx, "ghost", 0, "plank", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("ExtractFromOutput(ghost) error = %v, want ErrNotFound", err)
	}
}

// TestRegistry_WriteBehindPersistence verifies a storage failure does not
// block the in-memory mutation; the snapshot write is retried by autosave.
func TestRegistry_WriteBehindPersistence(t *testing.T) {
	reg, repo, _, _ := testRegistry()
	ctx := context.Background()

	view, err := reg.Place(ctx, "sawmill", "", Position{}, 0)
	if err != nil {
		t.Fatalf("Place() error = %v", err)
	}

	repo.saveErr = errors.New("disk full")
	if _, err := reg.SetPowered(ctx, view.ID, false); err != nil {
		t.Fatalf("SetPowered() error = %v, want nil despite storage failure", err)
	}

	got, err := reg.View(view.ID)
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if got.Powered {
		t.Error("mutation should apply in memory even when persistence fails")
	}

	// PersistAll surfaces the failure once storage is still down, and
	// recovers once it heals.
	if err := reg.PersistAll(ctx); err == nil {
		t.Error("PersistAll() should report storage errors")
	}
	repo.saveErr = nil
	if err := reg.PersistAll(ctx); err != nil {
		t.Errorf("PersistAll() error = %v after recovery", err)
	}
	snap, err := repo.Get(ctx, view.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Powered {
		t.Error("persisted snapshot should carry the powered=false mutation")
	}
}

func TestRegistry_Stats(t *testing.T) {
	reg, _, _, _ := testRegistry()
	ctx := context.Background()

	a, _ := reg.Place(ctx, "sawmill", "", Position{X: 0, Y: 0}, 0)
	b, _ := reg.Place(ctx, "sawmill", "", Position{X: 5, Y: 5}, 0)

	reg.AddToIntake(ctx, a.ID, 0, "wood", 2)
	reg.SetRecipe(ctx, a.ID, "plank-press")
	reg.SetRecipe(ctx, b.ID, "plank-press")
	reg.TickAll(0.1)

	stats := reg.Stats()
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByState[StateProcessing] != 1 || stats.ByState[StateWaitingForInput] != 1 {
		t.Errorf("ByState = %v, want one processing and one waiting_for_input", stats.ByState)
	}
	if stats.ByClass[ClassProcessor] != 2 {
		t.Errorf("ByClass[processor] = %d, want 2", stats.ByClass[ClassProcessor])
	}
	// One machine mid-cycle at tier 1: 100W x 1.0 efficiency.
	if !almostEqual(stats.PowerDraw, 100) {
		t.Errorf("PowerDraw = %v, want 100", stats.PowerDraw)
	}
}

func TestRegistry_Views(t *testing.T) {
	reg, _, _, _ := testRegistry()
	ctx := context.Background()

	reg.Place(ctx, "sawmill", "B Mill", Position{X: 5, Y: 0}, 0)
	reg.Place(ctx, "sawmill", "A Mill", Position{X: 0, Y: 0}, 0)

	views := reg.Views()
	if len(views) != 2 {
		t.Fatalf("Views() returned %d entries, want 2", len(views))
	}
	if views[0].ID > views[1].ID {
		t.Error("Views() should be ordered by ID")
	}

	if _, err := reg.View("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("View(ghost) error = %v, want ErrNotFound", err)
	}
}
