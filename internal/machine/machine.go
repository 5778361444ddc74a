package machine

import (
	"math"
	"sort"
)

// Tier multiplier curve constants.
const (
	speedPerTier      = 0.2
	efficiencyPerTier = 0.1
	efficiencyFloor   = 0.5
)

// completionEpsilon treats a cycle within a nanosecond of done as done.
// Repeated float subtraction of the tick delta rarely lands on exact zero.
const completionEpsilon = 1e-9

// Machine is one production unit: a lifecycle state machine over a set of
// capacity-bounded intake and output ports, driven by an external tick.
//
// A machine is not safe for concurrent use. The registry serialises all
// access; within one simulation step, external buffer mutations must land
// before the step's Tick call.
type Machine struct {
	id     string
	typeID string
	name   string
	class  Class
	tier   int

	basePowerDraw float64
	footprint     Footprint
	position      Position
	rotation      int

	speedMultiplier      float64
	efficiencyMultiplier float64

	state State

	// prevState and resuming implement power-loss resume: NoPower remembers
	// where the machine was, and resuming marks a genuinely interrupted
	// cycle so re-entering Processing keeps its progress.
	prevState State
	resuming  bool

	recipe    *Recipe
	available []*Recipe

	progress      float64
	timeRemaining float64

	// heldCycle marks a finished cycle waiting for output room. Nothing has
	// been consumed or produced yet; the commit happens when room appears.
	heldCycle bool

	enabled bool
	powered bool

	intake  []*Port
	outputs []*Port

	// inputTotals aggregates kind totals across intake ports. Rebuilt lazily
	// when inputsDirty is set; every intake mutation must set the flag.
	inputTotals map[string]int
	inputsDirty bool

	released bool

	logger Logger
}

// New constructs a machine from static configuration. Construction never
// fails: invalid configuration is logged and replaced with safe defaults
// (tier 1, zero power, 1x1 footprint) so a bad catalog entry cannot take the
// simulation down.
func New(cfg Config) *Machine {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	id := cfg.ID
	if id == "" {
		id = GenerateID()
	}

	class := cfg.Class
	if !ValidClass(class) {
		logger.Warn("unknown machine class, defaulting to processor",
			"machine_id", id, "class", string(class))
		class = ClassProcessor
	}

	tier := cfg.Tier
	if tier < 1 {
		logger.Warn("non-positive tier in configuration, using tier 1",
			"machine_id", id, "tier", tier)
		tier = 1
	}

	basePower := cfg.BasePowerDraw
	if basePower < 0 || math.IsNaN(basePower) || math.IsInf(basePower, 0) {
		logger.Warn("invalid base power draw in configuration, using 0",
			"machine_id", id, "base_power_draw", basePower)
		basePower = 0
	}

	fp := cfg.Footprint
	if fp.Width < 1 || fp.Height < 1 {
		logger.Warn("invalid footprint in configuration, using 1x1",
			"machine_id", id, "width", fp.Width, "height", fp.Height)
		fp = Footprint{Width: 1, Height: 1}
	}

	m := &Machine{
		id:            id,
		typeID:        cfg.TypeID,
		name:          cfg.Name,
		class:         class,
		tier:          tier,
		basePowerDraw: basePower,
		footprint:     fp,
		state:         StateIdle,
		prevState:     StateIdle,
		available:     cfg.AvailableRecipes,
		enabled:       true,
		powered:       true,
		inputsDirty:   true,
		logger:        logger,
	}
	m.recomputeMultipliers()

	m.intake = buildPorts(cfg.IntakePorts, logger, id, "intake")
	m.outputs = buildPorts(cfg.OutputPorts, logger, id, "output")

	return m
}

func buildPorts(specs []PortSpec, logger Logger, machineID, direction string) []*Port {
	ports := make([]*Port, 0, len(specs))
	for i, spec := range specs {
		if spec.Capacity < 0 {
			logger.Warn("negative port capacity in configuration, using 0",
				"machine_id", machineID, "direction", direction, "port", i,
				"capacity", spec.Capacity)
		}
		ports = append(ports, NewPort(spec.Capacity))
	}
	return ports
}

// recomputeMultipliers derives the tier performance multipliers. Called on
// construction and whenever the tier changes.
func (m *Machine) recomputeMultipliers() {
	m.speedMultiplier = 1 + float64(m.tier-1)*speedPerTier
	m.efficiencyMultiplier = math.Max(efficiencyFloor, 1-float64(m.tier-1)*efficiencyPerTier)
}

// Accessors.

// ID returns the stable machine identifier.
func (m *Machine) ID() string { return m.id }

// TypeID returns the catalog type this machine was built from.
func (m *Machine) TypeID() string { return m.typeID }

// Name returns the operator-assigned display name.
func (m *Machine) Name() string { return m.name }

// Class returns the machine's capability class.
func (m *Machine) Class() Class { return m.class }

// Tier returns the machine's performance tier.
func (m *Machine) Tier() int { return m.tier }

// State returns the current lifecycle state.
func (m *Machine) State() State { return m.state }

// Progress returns cycle completion in [0,1].
func (m *Machine) Progress() float64 { return m.progress }

// TimeRemaining returns the seconds left in the current cycle, zero outside
// Processing.
func (m *Machine) TimeRemaining() float64 { return m.timeRemaining }

// Recipe returns the active recipe, nil when unset.
func (m *Machine) Recipe() *Recipe { return m.recipe }

// RecipeID returns the active recipe identifier, empty when unset.
func (m *Machine) RecipeID() string {
	if m.recipe == nil {
		return ""
	}
	return m.recipe.ID
}

// AvailableRecipes returns the configured recipe set.
func (m *Machine) AvailableRecipes() []*Recipe { return m.available }

// Enabled reports the operator enable flag.
func (m *Machine) Enabled() bool { return m.enabled }

// Powered reports grid power availability as last set.
func (m *Machine) Powered() bool { return m.powered }

// SpeedMultiplier returns the tier-derived speed multiplier.
func (m *Machine) SpeedMultiplier() float64 { return m.speedMultiplier }

// EfficiencyMultiplier returns the tier-derived efficiency multiplier.
func (m *Machine) EfficiencyMultiplier() float64 { return m.efficiencyMultiplier }

// BasePowerDraw returns the nameplate draw from the machine type.
func (m *Machine) BasePowerDraw() float64 { return m.basePowerDraw }

// Footprint returns the grid extent at rotation 0.
func (m *Machine) Footprint() Footprint { return m.footprint }

// Position returns the placed grid position.
func (m *Machine) Position() Position { return m.position }

// Rotation returns the placed rotation in degrees.
func (m *Machine) Rotation() int { return m.rotation }

// SetPlacement records the spatial placement. The core treats position and
// rotation as opaque values for the grid collaborator and snapshots.
func (m *Machine) SetPlacement(pos Position, rotation int) {
	m.position = pos
	m.rotation = rotation
}

// SetTier changes the performance tier and recomputes the multipliers. A
// running cycle keeps its progress; the remaining time is rescaled to the
// new speed.
func (m *Machine) SetTier(tier int) {
	if tier < 1 {
		m.logger.Warn("non-positive tier, using tier 1", "machine_id", m.id, "tier", tier)
		tier = 1
	}
	if tier == m.tier {
		return
	}
	m.tier = tier
	m.recomputeMultipliers()
	if m.recipe != nil && (m.state == StateProcessing || (m.state == StateNoPower && m.resuming)) {
		m.timeRemaining = m.cycleDuration() * (1 - m.progress)
	}
}

// PowerDraw returns the effective electrical draw in watts: the active
// recipe's consumption scaled by the tier efficiency, non-zero only while
// powered and mid-cycle. Derived on demand, never stored.
func (m *Machine) PowerDraw() float64 {
	if !m.powered || m.state != StateProcessing || m.recipe == nil {
		return 0
	}
	return m.recipe.PowerConsumption * m.efficiencyMultiplier
}

// Tick advances the machine by dt seconds and returns the effects of the
// step. Negative dt is treated as zero. Interrupt flags are re-asserted
// before steady-state transitions so a machine whose flags and state fell
// out of step (for example after a restore) settles immediately.
func (m *Machine) Tick(dt float64) []Effect {
	var effects []Effect

	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	m.assertInterrupts(&effects)

	switch m.state {
	case StateDisabled, StateNoPower:
		// Interrupted; nothing advances.
	case StateIdle:
		m.tickIdle(dt, &effects)
	case StateWaitingForInput:
		m.tickWaitingForInput(dt, &effects)
	case StateProcessing:
		m.tickProcessing(dt, &effects)
	case StateWaitingForOutput:
		m.tickWaitingForOutput(&effects)
	}

	return effects
}

// assertInterrupts forces the machine into (or keeps it in) the interrupt
// state its flags demand. Disabled outranks NoPower.
func (m *Machine) assertInterrupts(effects *[]Effect) {
	if !m.enabled {
		if m.state != StateDisabled {
			m.cancelCycle()
			m.prevState = StateIdle
			m.resuming = false
			m.transition(StateDisabled, effects)
		}
		return
	}
	if !m.powered && m.state != StateNoPower && m.state != StateDisabled {
		m.prevState = m.state
		m.resuming = m.state == StateProcessing
		m.transition(StateNoPower, effects)
	}
}

func (m *Machine) tickIdle(dt float64, effects *[]Effect) {
	if m.recipe == nil {
		return
	}
	if m.inputsAvailable(m.recipe) && m.outputsPlaceable(m.recipe) {
		// The starting tick's delta counts towards the fresh cycle, so a
		// 2s recipe really takes 2s of ticking, not 2s plus one tick.
		m.startCycle(effects)
		m.tickProcessing(dt, effects)
		return
	}
	m.transition(StateWaitingForInput, effects)
}

func (m *Machine) tickWaitingForInput(dt float64, effects *[]Effect) {
	if m.recipe == nil {
		m.transition(StateIdle, effects)
		return
	}
	if m.inputsAvailable(m.recipe) && m.outputsPlaceable(m.recipe) {
		m.startCycle(effects)
		m.tickProcessing(dt, effects)
	}
}

func (m *Machine) tickProcessing(dt float64, effects *[]Effect) {
	if m.recipe == nil {
		// Processing without a recipe is a logic fault, not operator error.
		m.logger.Error("processing with no active recipe, forcing idle", "machine_id", m.id)
		m.cancelCycle()
		m.transition(StateIdle, effects)
		return
	}

	m.timeRemaining -= dt
	m.progress = clamp01(1 - m.timeRemaining/m.cycleDuration())

	if m.timeRemaining > completionEpsilon {
		return
	}
	m.completeCycle(effects)
}

func (m *Machine) tickWaitingForOutput(effects *[]Effect) {
	if m.recipe == nil || !m.heldCycle {
		m.cancelCycle()
		m.transition(StateIdle, effects)
		return
	}
	if !m.outputsPlaceable(m.recipe) {
		return
	}
	if !m.inputsAvailable(m.recipe) {
		m.logger.Warn("inputs withdrawn while holding finished cycle, discarding it",
			"machine_id", m.id, "recipe_id", m.recipe.ID)
		m.cancelCycle()
		m.transition(StateIdle, effects)
		return
	}
	m.commitCycle(effects)
	m.cancelCycle()
	m.transition(StateIdle, effects)
}

// startCycle begins a fresh processing cycle. Callers have already verified
// inputs and output room.
func (m *Machine) startCycle(effects *[]Effect) {
	m.progress = 0
	m.heldCycle = false
	m.timeRemaining = m.cycleDuration()
	m.transition(StateProcessing, effects)
	*effects = append(*effects, Effect{Kind: EffectProcessingStarted, RecipeID: m.recipe.ID})
}

// completeCycle runs when timeRemaining reaches zero. The commit is
// all-or-nothing: either every input is consumed and every output placed, or
// nothing moves and the finished cycle is held until output room appears.
func (m *Machine) completeCycle(effects *[]Effect) {
	if !m.inputsAvailable(m.recipe) {
		// Inputs were extracted mid-cycle; a cycle cannot commit without
		// them. Discard it rather than produce from nothing.
		m.logger.Warn("inputs withdrawn before completion, cancelling cycle",
			"machine_id", m.id, "recipe_id", m.recipe.ID)
		m.cancelCycle()
		m.transition(StateIdle, effects)
		return
	}

	if !m.outputsPlaceable(m.recipe) {
		m.progress = 1
		m.timeRemaining = 0
		m.heldCycle = true
		*effects = append(*effects, Effect{Kind: EffectCycleHeld, RecipeID: m.recipe.ID})
		m.transition(StateWaitingForOutput, effects)
		return
	}

	m.commitCycle(effects)

	if m.inputsAvailable(m.recipe) && m.outputsPlaceable(m.recipe) {
		m.progress = 0
		m.timeRemaining = m.cycleDuration()
		*effects = append(*effects, Effect{Kind: EffectProcessingStarted, RecipeID: m.recipe.ID})
		return
	}

	m.cancelCycle()
	m.transition(StateIdle, effects)
}

// commitCycle consumes inputs, produces outputs and fires the completion
// effect. Callers have verified both sides fit.
func (m *Machine) commitCycle(effects *[]Effect) {
	consumed := m.consumeInputs()
	produced := m.produceOutputs()
	m.heldCycle = false
	*effects = append(*effects, Effect{
		Kind:     EffectProcessingCompleted,
		RecipeID: m.recipe.ID,
		Consumed: consumed,
		Produced: produced,
	})
}

// cancelCycle zeroes all in-flight cycle bookkeeping. Buffered inputs are
// never touched here; only a committed cycle consumes inputs.
func (m *Machine) cancelCycle() {
	m.progress = 0
	m.timeRemaining = 0
	m.heldCycle = false
}

// cycleDuration returns the active recipe's duration scaled by the speed
// multiplier. A non-positive multiplier is a configuration fault; it is
// coerced to 1 with a diagnostic so progress math stays defined.
func (m *Machine) cycleDuration() float64 {
	if m.speedMultiplier <= 0 || math.IsNaN(m.speedMultiplier) {
		m.logger.Error("non-positive speed multiplier, coercing to 1",
			"machine_id", m.id, "speed_multiplier", m.speedMultiplier)
		m.speedMultiplier = 1
	}
	return m.recipe.ProcessingTime / m.speedMultiplier
}

// inputsAvailable reports whether every recipe input is buffered across the
// intake ports. Self-supplying classes are always satisfied.
func (m *Machine) inputsAvailable(r *Recipe) bool {
	if m.class.Capabilities().SelfSupply {
		return true
	}
	totals := m.intakeTotals()
	for _, in := range r.Inputs {
		if totals[in.Kind] < in.Amount {
			return false
		}
	}
	return true
}

// intakeTotals returns aggregated kind totals across intake ports. The
// aggregate is rebuilt only when a mutation marked it dirty, making the
// steady-tick availability check amortised O(1).
func (m *Machine) intakeTotals() map[string]int {
	if !m.inputsDirty && m.inputTotals != nil {
		return m.inputTotals
	}
	totals := make(map[string]int)
	for _, p := range m.intake {
		for kind, qty := range p.contents {
			totals[kind] += qty
		}
	}
	m.inputTotals = totals
	m.inputsDirty = false
	return totals
}

// outputsPlaceable reports whether every recipe output fits whole into the
// free space of some output port. The first-fit plan mirrors produceOutputs
// exactly so the check and the commit cannot disagree.
func (m *Machine) outputsPlaceable(r *Recipe) bool {
	free := make([]int, len(m.outputs))
	for i, p := range m.outputs {
		free[i] = p.Free()
	}
	for _, out := range r.Outputs {
		placed := false
		for i := range free {
			if free[i] >= out.Amount {
				free[i] -= out.Amount
				placed = true
				break
			}
		}
		if !placed {
			return false
		}
	}
	return true
}

// consumeInputs drains the recipe inputs from the intake ports, spreading
// each requirement across ports in order. Returns what was consumed.
func (m *Machine) consumeInputs() []Stack {
	if m.class.Capabilities().SelfSupply {
		return nil
	}
	consumed := make([]Stack, 0, len(m.recipe.Inputs))
	for _, in := range m.recipe.Inputs {
		remaining := in.Amount
		for _, p := range m.intake {
			if remaining == 0 {
				break
			}
			remaining -= p.Remove(in.Kind, remaining)
		}
		if remaining > 0 {
			// Availability was checked under the same lock; a shortfall
			// here is a bookkeeping fault.
			m.logger.Error("input shortfall at commit",
				"machine_id", m.id, "kind", in.Kind, "missing", remaining)
		}
		consumed = append(consumed, Stack{Kind: in.Kind, Amount: in.Amount - remaining})
	}
	m.inputsDirty = true
	return consumed
}

// produceOutputs places the recipe outputs using the same first-fit walk as
// outputsPlaceable. Returns what was produced.
func (m *Machine) produceOutputs() []Stack {
	produced := make([]Stack, 0, len(m.recipe.Outputs))
	for _, out := range m.recipe.Outputs {
		placed := false
		for _, p := range m.outputs {
			if p.Free() >= out.Amount {
				p.Add(out.Kind, out.Amount)
				placed = true
				break
			}
		}
		if !placed {
			m.logger.Error("output placement failed at commit",
				"machine_id", m.id, "kind", out.Kind, "amount", out.Amount)
			continue
		}
		produced = append(produced, Stack{Kind: out.Kind, Amount: out.Amount})
	}
	return produced
}

// transition moves the machine to a new state, appending a state_changed
// effect. A self-transition is a no-op.
func (m *Machine) transition(to State, effects *[]Effect) {
	if m.state == to {
		return
	}
	old := m.state
	m.state = to
	*effects = append(*effects, Effect{Kind: EffectStateChanged, Old: old, New: to})
}

// SetEnabled switches the machine between Disabled and operational states.
// Disabling takes effect immediately from any state and cancels an in-flight
// cycle; buffered inputs are kept. Re-enabling lands in Idle.
func (m *Machine) SetEnabled(enabled bool) []Effect {
	var effects []Effect
	if m.enabled == enabled {
		return effects
	}
	m.enabled = enabled

	if !enabled {
		m.assertInterrupts(&effects)
		return effects
	}

	if m.state == StateDisabled {
		m.transition(StateIdle, &effects)
		// Power may have dropped while disabled.
		m.assertInterrupts(&effects)
	}
	return effects
}

// SetPowered records grid power availability. Power loss parks the machine
// in NoPower and remembers where it was; restoration resumes exactly there,
// including mid-cycle progress, so no processing time is lost or repeated.
func (m *Machine) SetPowered(powered bool) []Effect {
	var effects []Effect
	if m.powered == powered {
		return effects
	}
	m.powered = powered
	effects = append(effects, Effect{Kind: EffectPowerChanged, Powered: powered})

	if !powered {
		m.assertInterrupts(&effects)
		return effects
	}

	if m.state == StateNoPower {
		target := m.prevState
		if target == StateNoPower || target == StateDisabled || !ValidState(target) {
			target = StateIdle
		}
		if target == StateProcessing && (m.recipe == nil || !m.resuming) {
			target = StateIdle
		}
		m.prevState = StateIdle
		m.resuming = false
		m.transition(target, &effects)
	}
	return effects
}

// SetRecipe validates and activates a recipe. Switching recipes while a
// cycle is in flight (running, held, or interrupted mid-run) cancels that
// cycle without consuming inputs; validation failure changes nothing.
func (m *Machine) SetRecipe(r *Recipe) ([]Effect, error) {
	if err := m.ValidateRecipe(r); err != nil {
		return nil, err
	}
	var effects []Effect
	if m.recipe == r {
		return effects, nil
	}
	m.applyRecipeChange(r, &effects)
	return effects, nil
}

// ClearRecipe unsets the active recipe, cancelling any in-flight cycle.
func (m *Machine) ClearRecipe() []Effect {
	var effects []Effect
	if m.recipe == nil {
		return effects
	}
	m.applyRecipeChange(nil, &effects)
	return effects
}

func (m *Machine) applyRecipeChange(r *Recipe, effects *[]Effect) {
	m.recipe = r
	m.cancelCycle()

	switch m.state {
	case StateProcessing, StateWaitingForInput, StateWaitingForOutput:
		m.transition(StateIdle, effects)
	case StateNoPower, StateDisabled:
		// An interrupted cycle belonged to the old recipe; resume to Idle.
		if m.prevState == StateProcessing || m.prevState == StateWaitingForInput ||
			m.prevState == StateWaitingForOutput {
			m.prevState = StateIdle
		}
		m.resuming = false
	}
}

// AddToIntake inserts resources into the given intake port. The add is
// all-or-nothing; false means nothing was inserted.
func (m *Machine) AddToIntake(port int, kind string, amount int) bool {
	if port < 0 || port >= len(m.intake) {
		return false
	}
	ok := m.intake[port].Add(kind, amount)
	if ok {
		m.inputsDirty = true
	}
	return ok
}

// ExtractFromIntake pulls up to amount of kind back out of an intake port,
// returning the quantity actually removed.
func (m *Machine) ExtractFromIntake(port int, kind string, amount int) int {
	if port < 0 || port >= len(m.intake) {
		return 0
	}
	n := m.intake[port].Remove(kind, amount)
	if n > 0 {
		m.inputsDirty = true
	}
	return n
}

// ExtractFromOutput pulls produced resources from an output port, returning
// the quantity actually removed.
func (m *Machine) ExtractFromOutput(port int, kind string, amount int) int {
	if port < 0 || port >= len(m.outputs) {
		return 0
	}
	return m.outputs[port].Remove(kind, amount)
}

// IntakeCount returns the number of intake ports.
func (m *Machine) IntakeCount() int { return len(m.intake) }

// OutputCount returns the number of output ports.
func (m *Machine) OutputCount() int { return len(m.outputs) }

// IntakeAmount returns the quantity of kind in the given intake port.
func (m *Machine) IntakeAmount(port int, kind string) int {
	if port < 0 || port >= len(m.intake) {
		return 0
	}
	return m.intake[port].Amount(kind)
}

// OutputAmount returns the quantity of kind in the given output port.
func (m *Machine) OutputAmount(port int, kind string) int {
	if port < 0 || port >= len(m.outputs) {
		return 0
	}
	return m.outputs[port].Amount(kind)
}

// IntakeContents returns a copy of an intake port's contents.
func (m *Machine) IntakeContents(port int) map[string]int {
	if port < 0 || port >= len(m.intake) {
		return nil
	}
	return m.intake[port].Snapshot()
}

// OutputContents returns a copy of an output port's contents.
func (m *Machine) OutputContents(port int) map[string]int {
	if port < 0 || port >= len(m.outputs) {
		return nil
	}
	return m.outputs[port].Snapshot()
}

// BufferedTotals returns the summed contents of all ports, intake and
// output, keyed by kind. Used by the resource ledger mirror.
func (m *Machine) BufferedTotals() map[string]int {
	totals := make(map[string]int)
	for _, p := range m.intake {
		for kind, qty := range p.contents {
			totals[kind] += qty
		}
	}
	for _, p := range m.outputs {
		for kind, qty := range p.contents {
			totals[kind] += qty
		}
	}
	return totals
}

// CellReleaser frees grid cells claimed for a machine.
type CellReleaser interface {
	Release(id string)
}

// ReleaseCells notifies the grid collaborator to free this machine's cells.
// Safe to call more than once; only the first call reaches the grid.
func (m *Machine) ReleaseCells(grid CellReleaser) {
	if m.released || grid == nil {
		return
	}
	m.released = true
	grid.Release(m.id)
}

// View returns a read-only projection for API and telemetry consumers.
func (m *Machine) View() MachineView {
	v := MachineView{
		ID:            m.id,
		TypeID:        m.typeID,
		Name:          m.name,
		Class:         m.class,
		Tier:          m.tier,
		Position:      m.position,
		Rotation:      m.rotation,
		State:         m.state,
		Progress:      m.progress,
		TimeRemaining: m.timeRemaining,
		RecipeID:      m.RecipeID(),
		Enabled:       m.enabled,
		Powered:       m.powered,
		PowerDraw:     m.PowerDraw(),
		Speed:         m.speedMultiplier,
		Efficiency:    m.efficiencyMultiplier,
		Intake:        portSnapshots(m.intake),
		Output:        portSnapshots(m.outputs),
	}
	return v
}

func portSnapshots(ports []*Port) []PortSnapshot {
	snaps := make([]PortSnapshot, 0, len(ports))
	for _, p := range ports {
		snaps = append(snaps, PortSnapshot{Capacity: p.Capacity(), Contents: p.Snapshot()})
	}
	return snaps
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortedKinds returns map keys in lexical order for deterministic iteration.
func sortedKinds(contents map[string]int) []string {
	kinds := make([]string, 0, len(contents))
	for kind := range contents {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
