package machine

import "math"

// PortSnapshot is the persisted form of one port.
type PortSnapshot struct {
	Capacity int            `json:"capacity"`
	Contents map[string]int `json:"contents,omitempty"`
}

// Snapshot is a flat, serializable projection of a machine sufficient to
// reconstruct identical runtime state, including mid-cycle progress and a
// power-interrupted or held cycle, without replaying history.
type Snapshot struct {
	ID     string `json:"id"`
	TypeID string `json:"type_id"`
	Name   string `json:"name,omitempty"`
	Class  Class  `json:"class"`
	Tier   int    `json:"tier"`

	Position Position `json:"position"`
	Rotation int      `json:"rotation"`

	State     State `json:"state"`
	PrevState State `json:"prev_state,omitempty"`
	Resuming  bool  `json:"resuming,omitempty"`
	Held      bool  `json:"held,omitempty"`

	Progress float64 `json:"progress"`
	RecipeID string  `json:"recipe_id,omitempty"`

	Enabled bool `json:"enabled"`
	Powered bool `json:"powered"`

	Intake []PortSnapshot `json:"intake"`
	Output []PortSnapshot `json:"output"`
}

// Snapshot captures the machine's complete runtime state. Time remaining is
// deliberately not captured; restore derives it from progress so that tier
// changes between save and load are respected.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{
		ID:        m.id,
		TypeID:    m.typeID,
		Name:      m.name,
		Class:     m.class,
		Tier:      m.tier,
		Position:  m.position,
		Rotation:  m.rotation,
		State:     m.state,
		PrevState: m.prevState,
		Resuming:  m.resuming,
		Held:      m.heldCycle,
		Progress:  m.progress,
		RecipeID:  m.RecipeID(),
		Enabled:   m.enabled,
		Powered:   m.powered,
		Intake:    portSnapshots(m.intake),
		Output:    portSnapshots(m.outputs),
	}
}

// RestoreSnapshot rebuilds runtime state from a snapshot. Fields apply in a
// fixed order: identity, tier and placement first, then the recomputed
// multipliers, then the recipe resolved by identifier, then port contents,
// and the lifecycle state last, once everything it depends on is in place.
//
// Persisted data is not trusted: out-of-range tiers, progress, states and
// port contents are clamped or reset with a diagnostic. The return value
// reports whether anything needed correcting, so callers can flag the load
// as "loaded with corrections" instead of aborting it.
func (m *Machine) RestoreSnapshot(snap Snapshot) bool {
	corrected := false

	if snap.ID != "" {
		m.id = snap.ID
	}
	if snap.TypeID != "" {
		m.typeID = snap.TypeID
	}
	if snap.Name != "" {
		m.name = snap.Name
	}

	tier := snap.Tier
	if tier < 1 {
		m.logger.Warn("snapshot tier out of range, using tier 1",
			"machine_id", m.id, "tier", tier)
		tier = 1
		corrected = true
	}
	m.tier = tier
	m.position = snap.Position
	m.rotation = normalizeRotation(snap.Rotation)
	m.recomputeMultipliers()

	m.recipe = nil
	if snap.RecipeID != "" {
		if r := m.findRecipe(snap.RecipeID); r != nil {
			m.recipe = r
		} else {
			m.logger.Warn("snapshot references unknown recipe, leaving recipe unset",
				"machine_id", m.id, "recipe_id", snap.RecipeID)
			corrected = true
		}
	}

	if m.restorePorts(m.intake, snap.Intake, "intake") {
		corrected = true
	}
	if m.restorePorts(m.outputs, snap.Output, "output") {
		corrected = true
	}
	m.inputsDirty = true

	m.enabled = snap.Enabled
	m.powered = snap.Powered

	progress := snap.Progress
	if math.IsNaN(progress) || math.IsInf(progress, 0) || progress < 0 || progress > 1 {
		m.logger.Warn("snapshot progress out of range, resetting to 0",
			"machine_id", m.id, "progress", progress)
		progress = 0
		corrected = true
	}

	state := snap.State
	if !ValidState(state) {
		m.logger.Warn("snapshot state unknown, forcing idle",
			"machine_id", m.id, "state", string(state))
		state = StateIdle
		corrected = true
	}

	prev := snap.PrevState
	if prev != "" && !ValidState(prev) {
		prev = StateIdle
		corrected = true
	}
	if prev == "" {
		prev = StateIdle
	}

	held := snap.Held
	resuming := snap.Resuming && prev == StateProcessing

	// Cross-field repairs before the state is forced.
	switch state {
	case StateProcessing:
		if m.recipe == nil {
			m.logger.Warn("snapshot processing without a recipe, forcing idle",
				"machine_id", m.id)
			state = StateIdle
			progress = 0
			corrected = true
		}
	case StateWaitingForOutput:
		if m.recipe == nil || !held {
			state = StateIdle
			progress = 0
			held = false
			corrected = true
		} else {
			progress = 1
		}
	case StateNoPower:
		if snap.Powered {
			state = StateIdle
			corrected = true
		}
	case StateDisabled:
		if snap.Enabled {
			state = StateIdle
			corrected = true
		}
	}
	if state != StateNoPower {
		prev = StateIdle
		resuming = false
	}
	if resuming && m.recipe == nil {
		resuming = false
		prev = StateIdle
		progress = 0
		corrected = true
	}

	m.progress = progress
	m.prevState = prev
	m.resuming = resuming
	m.heldCycle = held

	// Time remaining derives from progress at the current multiplier rather
	// than a stored absolute, so a tier change between save and load shifts
	// the remaining wall time, not the completed fraction.
	m.timeRemaining = 0
	if m.recipe != nil && (state == StateProcessing || (state == StateNoPower && resuming)) {
		m.timeRemaining = m.cycleDuration() * (1 - progress)
	}

	m.state = state
	return corrected
}

// restorePorts replays saved contents into live ports. Saved quantities are
// sanitised against the configured capacity; a count mismatch restores what
// lines up and clears the rest.
func (m *Machine) restorePorts(ports []*Port, snaps []PortSnapshot, direction string) bool {
	corrected := false
	if len(snaps) != len(ports) {
		m.logger.Warn("snapshot port count mismatch",
			"machine_id", m.id, "direction", direction,
			"configured", len(ports), "saved", len(snaps))
		corrected = true
	}
	for i, p := range ports {
		if i >= len(snaps) {
			p.Clear()
			continue
		}
		contents, fixed := sanitizeContents(snaps[i].Contents, p.Capacity())
		if fixed {
			m.logger.Warn("snapshot port contents corrected",
				"machine_id", m.id, "direction", direction, "port", i)
			corrected = true
		}
		p.Restore(contents)
	}
	return corrected
}

// sanitizeContents drops empty kinds and non-positive quantities and trims
// the running total to capacity. Kinds are visited in lexical order so the
// same corrupted input always corrects the same way.
func sanitizeContents(contents map[string]int, capacity int) (map[string]int, bool) {
	fixed := false
	out := make(map[string]int, len(contents))
	total := 0
	for _, kind := range sortedKinds(contents) {
		qty := contents[kind]
		if kind == "" || qty <= 0 {
			fixed = true
			continue
		}
		if total+qty > capacity {
			qty = capacity - total
			fixed = true
		}
		if qty <= 0 {
			continue
		}
		out[kind] = qty
		total += qty
	}
	return out, fixed
}
