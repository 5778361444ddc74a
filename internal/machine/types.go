package machine

// State represents the lifecycle state of a machine instance.
type State string

// State constants.
const (
	StateIdle             State = "idle"
	StateWaitingForInput  State = "waiting_for_input"
	StateProcessing       State = "processing"
	StateWaitingForOutput State = "waiting_for_output"
	StateNoPower          State = "no_power"
	StateDisabled         State = "disabled"
)

// AllStates returns all valid machine states.
func AllStates() []State {
	return []State{
		StateIdle, StateWaitingForInput, StateProcessing,
		StateWaitingForOutput, StateNoPower, StateDisabled,
	}
}

// Class represents the capability variant of a machine type.
//
// Machines share a single state-machine engine; the class selects a small
// capability set instead of subclassing per variant.
type Class string

// Class constants.
const (
	// ClassProcessor consumes buffered inputs and produces outputs.
	ClassProcessor Class = "processor"

	// ClassExtractor self-supplies its inputs (mining drills, pumps).
	// Its recipes declare outputs only; completion consumes nothing.
	ClassExtractor Class = "extractor"

	// ClassStorage is a passive buffer. It never runs a recipe.
	ClassStorage Class = "storage"
)

// AllClasses returns all valid machine classes.
func AllClasses() []Class {
	return []Class{ClassProcessor, ClassExtractor, ClassStorage}
}

// Capabilities describes what a machine class can do.
type Capabilities struct {
	// SelfSupply means input availability is never a constraint and
	// completion consumes nothing from the intake ports.
	SelfSupply bool

	// NeedsRecipe means the machine runs recipes at all. When false,
	// SetRecipe is rejected and the machine only buffers resources.
	NeedsRecipe bool
}

// Capabilities returns the capability set for the class.
// Unknown classes behave as processors.
func (c Class) Capabilities() Capabilities {
	switch c {
	case ClassExtractor:
		return Capabilities{SelfSupply: true, NeedsRecipe: true}
	case ClassStorage:
		return Capabilities{SelfSupply: false, NeedsRecipe: false}
	default:
		return Capabilities{SelfSupply: false, NeedsRecipe: true}
	}
}

// Stack is a quantity of a single resource kind.
type Stack struct {
	Kind   string `json:"kind" yaml:"kind"`
	Amount int    `json:"amount" yaml:"amount"`
}

// Position is a grid cell coordinate. The core carries it through for the
// grid collaborator and snapshots; it performs no coordinate arithmetic.
type Position struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Footprint is the grid extent of a machine at rotation 0.
type Footprint struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// PortSpec declares one port of a machine type.
type PortSpec struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

// Config carries the static configuration a machine instance is built from.
// All collaborators are passed in explicitly; there is no global state.
type Config struct {
	// ID is generated when empty.
	ID     string
	TypeID string
	Name   string

	Class         Class
	Tier          int
	BasePowerDraw float64
	Footprint     Footprint

	IntakePorts []PortSpec
	OutputPorts []PortSpec

	// AvailableRecipes is the machine's configured recipe set. Recipe
	// activation checks identity membership against this slice.
	AvailableRecipes []*Recipe

	Logger Logger
}

// EffectKind discriminates the effect values returned by machine operations.
type EffectKind string

// Effect kinds.
const (
	EffectStateChanged        EffectKind = "state_changed"
	EffectProcessingStarted   EffectKind = "processing_started"
	EffectProcessingCompleted EffectKind = "processing_completed"
	EffectPowerChanged        EffectKind = "power_changed"
	EffectCycleHeld           EffectKind = "cycle_held"
)

// Effect describes one observable change produced by Tick or a mutator.
// Callers receive effects as return values and dispatch them themselves;
// machines hold no subscriber lists.
type Effect struct {
	Kind EffectKind `json:"kind"`

	// Old and New are set for state_changed.
	Old State `json:"old,omitempty"`
	New State `json:"new,omitempty"`

	// RecipeID is set for processing_started, processing_completed and
	// cycle_held.
	RecipeID string `json:"recipe_id,omitempty"`

	// Powered is set for power_changed.
	Powered bool `json:"powered,omitempty"`

	// Consumed and Produced are set for processing_completed.
	Consumed []Stack `json:"consumed,omitempty"`
	Produced []Stack `json:"produced,omitempty"`
}

// Logger is a minimal logging interface so the package does not depend on a
// concrete logging implementation.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger discards all log output. Used when no logger is configured.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MachineView is a read-only projection of a machine served to API and
// telemetry consumers. Live *Machine values never leave the registry lock.
type MachineView struct {
	ID            string         `json:"id"`
	TypeID        string         `json:"type_id"`
	Name          string         `json:"name,omitempty"`
	Class         Class          `json:"class"`
	Tier          int            `json:"tier"`
	Position      Position       `json:"position"`
	Rotation      int            `json:"rotation"`
	State         State          `json:"state"`
	Progress      float64        `json:"progress"`
	TimeRemaining float64        `json:"time_remaining"`
	RecipeID      string         `json:"recipe_id,omitempty"`
	Enabled       bool           `json:"enabled"`
	Powered       bool           `json:"powered"`
	PowerDraw     float64        `json:"power_draw"`
	Speed         float64        `json:"speed_multiplier"`
	Efficiency    float64        `json:"efficiency_multiplier"`
	Intake        []PortSnapshot `json:"intake"`
	Output        []PortSnapshot `json:"output"`
}
