package machine

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// TypeResolver supplies machine construction data for a catalog type.
// Implemented by the catalog; the machine package never reads catalog files.
type TypeResolver interface {
	MachineConfig(typeID string) (Config, error)
}

// Grid claims and releases footprint cells for placed machines.
type Grid interface {
	Claim(id string, pos Position, rotation int, fp Footprint) error
	Release(id string)
}

// Registry owns the live machine instances and keeps their snapshots
// persisted through a Repository.
//
// All access is serialised by the registry mutex: the simulation engine's
// TickAll and the mutation calls arriving from the API or MQTT command
// handlers never interleave inside a machine. Live *Machine values do not
// escape the lock; read paths return MachineView projections.
//
// Persistence is write-behind: a mutation applies in memory first, and a
// failed snapshot write is logged rather than returned so a storage hiccup
// cannot wedge the simulation. The periodic autosave retries.
type Registry struct {
	repo  Repository
	types TypeResolver
	grid  Grid

	machines map[string]*Machine
	mu       sync.RWMutex

	logger Logger
}

// Stats summarises the registry for the system API.
type Stats struct {
	Total     int           `json:"total"`
	ByState   map[State]int `json:"by_state"`
	ByClass   map[Class]int `json:"by_class"`
	PowerDraw float64       `json:"power_draw_watts"`
}

// NewRegistry creates a registry over the given repository, type resolver
// and grid collaborator.
func NewRegistry(repo Repository, types TypeResolver, grid Grid) *Registry {
	return &Registry{
		repo:     repo,
		types:    types,
		grid:     grid,
		machines: make(map[string]*Machine),
		logger:   noopLogger{},
	}
}

// SetLogger attaches a logger. Call before LoadAll.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// LoadAll rebuilds the live machine set from persisted snapshots and
// reclaims their grid cells. Rows referencing unknown machine types are
// skipped with a diagnostic; snapshots that needed corrections are loaded
// and flagged in the log.
func (r *Registry) LoadAll(ctx context.Context) error {
	snaps, err := r.repo.List(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded, corrected := 0, 0
	for _, snap := range snaps {
		cfg, err := r.types.MachineConfig(snap.TypeID)
		if err != nil {
			r.logger.Error("skipping machine with unknown type",
				"machine_id", snap.ID, "type_id", snap.TypeID, "error", err)
			continue
		}
		cfg.ID = snap.ID
		cfg.Name = snap.Name
		cfg.Logger = r.logger

		m := New(cfg)
		if m.RestoreSnapshot(snap) {
			r.logger.Warn("machine loaded with corrections", "machine_id", m.ID())
			corrected++
		}

		if err := r.addLocked(m); err != nil {
			r.logger.Error("skipping duplicate machine snapshot",
				"machine_id", m.ID(), "error", err)
			continue
		}

		if r.grid != nil {
			if err := r.grid.Claim(m.ID(), m.Position(), m.Rotation(), m.Footprint()); err != nil {
				r.logger.Error("failed to reclaim grid cells for loaded machine",
					"machine_id", m.ID(), "error", err)
			}
		}
		loaded++
	}

	r.logger.Info("machine registry loaded", "machines", loaded, "corrected", corrected)
	return nil
}

func (r *Registry) addLocked(m *Machine) error {
	if _, exists := r.machines[m.ID()]; exists {
		return ErrExists
	}
	r.machines[m.ID()] = m
	return nil
}

// Place creates a machine of the given catalog type at a grid position. The
// grid claim happens before the machine becomes visible, so a placement
// conflict leaves no trace.
func (r *Registry) Place(ctx context.Context, typeID, name string, pos Position, rotation int) (MachineView, error) {
	cfg, err := r.types.MachineConfig(typeID)
	if err != nil {
		return MachineView{}, err
	}
	if name != "" {
		cfg.Name = name
	}
	cfg.Logger = r.logger

	m := New(cfg)
	rotation = normalizeRotation(rotation)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.grid != nil {
		if err := r.grid.Claim(m.ID(), pos, rotation, m.Footprint()); err != nil {
			return MachineView{}, err
		}
	}
	m.SetPlacement(pos, rotation)

	if err := r.addLocked(m); err != nil {
		if r.grid != nil {
			r.grid.Release(m.ID())
		}
		return MachineView{}, err
	}

	r.persistLocked(ctx, m)
	r.logger.Info("machine placed",
		"machine_id", m.ID(), "type_id", typeID, "x", pos.X, "y", pos.Y)
	return m.View(), nil
}

// Remove tears a machine down: grid cells are released exactly once, the
// persisted snapshot is deleted and the instance is dropped.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return ErrNotFound
	}

	m.ReleaseCells(gridReleaser{r.grid})
	if err := r.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		r.logger.Error("failed to delete machine snapshot", "machine_id", id, "error", err)
	}
	delete(r.machines, id)

	r.logger.Info("machine removed", "machine_id", id)
	return nil
}

// gridReleaser adapts the registry's Grid to the machine's CellReleaser,
// tolerating a nil grid.
type gridReleaser struct {
	grid Grid
}

func (g gridReleaser) Release(id string) {
	if g.grid != nil {
		g.grid.Release(id)
	}
}

// View returns a read-only projection of one machine.
func (r *Registry) View(id string) (MachineView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.machines[id]
	if !ok {
		return MachineView{}, ErrNotFound
	}
	return m.View(), nil
}

// Views returns projections of all machines, ordered by ID.
func (r *Registry) Views() []MachineView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]MachineView, 0, len(r.machines))
	for _, id := range r.sortedIDsLocked() {
		views = append(views, r.machines[id].View())
	}
	return views
}

// SnapshotAll returns persisted-form snapshots of all machines, ordered by
// ID. Used by the blueprint exporter.
func (r *Registry) SnapshotAll() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(r.machines))
	for _, id := range r.sortedIDsLocked() {
		snaps = append(snaps, r.machines[id].Snapshot())
	}
	return snaps
}

// Count returns the number of live machines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}

// TickAll advances every machine by dt seconds in ID order and returns the
// effects keyed by machine ID. Machines never observe each other inside a
// tick, so the order only pins down effect dispatch determinism.
func (r *Registry) TickAll(dt float64) map[string][]Effect {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make(map[string][]Effect)
	for _, id := range r.sortedIDsLocked() {
		if effects := r.machines[id].Tick(dt); len(effects) > 0 {
			all[id] = effects
		}
	}
	return all
}

// SetRecipe resolves a recipe by ID against the machine's available set and
// activates it.
func (r *Registry) SetRecipe(ctx context.Context, id, recipeID string) ([]Effect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return nil, ErrNotFound
	}
	rec := m.findRecipe(recipeID)
	if rec == nil {
		return nil, ErrUnknownRecipe
	}
	effects, err := m.SetRecipe(rec)
	if err != nil {
		return nil, err
	}
	r.persistLocked(ctx, m)
	return effects, nil
}

// ClearRecipe unsets the machine's active recipe.
func (r *Registry) ClearRecipe(ctx context.Context, id string) ([]Effect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return nil, ErrNotFound
	}
	effects := m.ClearRecipe()
	r.persistLocked(ctx, m)
	return effects, nil
}

// SetPowered updates a machine's power flag.
func (r *Registry) SetPowered(ctx context.Context, id string, powered bool) ([]Effect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return nil, ErrNotFound
	}
	effects := m.SetPowered(powered)
	r.persistLocked(ctx, m)
	return effects, nil
}

// SetEnabled updates a machine's enable flag.
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) ([]Effect, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return nil, ErrNotFound
	}
	effects := m.SetEnabled(enabled)
	r.persistLocked(ctx, m)
	return effects, nil
}

// AddToIntake inserts resources into a machine's intake port.
func (r *Registry) AddToIntake(ctx context.Context, id string, port int, kind string, amount int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return false, ErrNotFound
	}
	if port < 0 || port >= m.IntakeCount() {
		return false, ErrPortIndex
	}
	added := m.AddToIntake(port, kind, amount)
	if added {
		r.persistLocked(ctx, m)
	}
	return added, nil
}

// ExtractFromIntake pulls resources back out of a machine's intake port.
func (r *Registry) ExtractFromIntake(ctx context.Context, id string, port int, kind string, amount int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return 0, ErrNotFound
	}
	if port < 0 || port >= m.IntakeCount() {
		return 0, ErrPortIndex
	}
	removed := m.ExtractFromIntake(port, kind, amount)
	if removed > 0 {
		r.persistLocked(ctx, m)
	}
	return removed, nil
}

// ExtractFromOutput pulls produced resources from a machine's output port.
func (r *Registry) ExtractFromOutput(ctx context.Context, id string, port int, kind string, amount int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return 0, ErrNotFound
	}
	if port < 0 || port >= m.OutputCount() {
		return 0, ErrPortIndex
	}
	removed := m.ExtractFromOutput(port, kind, amount)
	if removed > 0 {
		r.persistLocked(ctx, m)
	}
	return removed, nil
}

// SetTier changes a machine's performance tier.
func (r *Registry) SetTier(ctx context.Context, id string, tier int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[id]
	if !ok {
		return ErrNotFound
	}
	m.SetTier(tier)
	r.persistLocked(ctx, m)
	return nil
}

// PersistAll writes every machine's snapshot. Used by the engine autosave
// and on shutdown.
func (r *Registry) PersistAll(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, id := range r.sortedIDsLocked() {
		if err := r.repo.Save(ctx, r.machines[id].Snapshot()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Stats returns aggregate counts for the system API.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		Total:   len(r.machines),
		ByState: make(map[State]int),
		ByClass: make(map[Class]int),
	}
	for _, m := range r.machines {
		stats.ByState[m.State()]++
		stats.ByClass[m.Class()]++
		stats.PowerDraw += m.PowerDraw()
	}
	return stats
}

// persistLocked writes one machine's snapshot, logging instead of failing.
func (r *Registry) persistLocked(ctx context.Context, m *Machine) {
	if err := r.repo.Save(ctx, m.Snapshot()); err != nil {
		r.logger.Error("failed to persist machine snapshot",
			"machine_id", m.ID(), "error", err)
	}
}

func (r *Registry) sortedIDsLocked() []string {
	ids := make([]string, 0, len(r.machines))
	for id := range r.machines {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
