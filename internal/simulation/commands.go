package simulation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/foundryworks/foundry-core/internal/audit"
	"github.com/foundryworks/foundry-core/internal/infrastructure/mqtt"
	"github.com/foundryworks/foundry-core/internal/machine"
)

// Command actions accepted on the machine command topic.
const (
	ActionSetRecipe   = "set_recipe"
	ActionClearRecipe = "clear_recipe"
	ActionSetPower    = "set_power"
	ActionSetEnabled  = "set_enabled"
	ActionAdd         = "add"
	ActionExtract     = "extract"
)

// Command is the JSON payload accepted on foundry/machine/{id}/set.
// Action selects the mutation; the remaining fields are per-action:
//
//	set_recipe:  recipe_id
//	set_power:   powered
//	set_enabled: enabled
//	add:         port, kind, amount
//	extract:     port, kind, amount, from ("intake" or "output", default output)
type Command struct {
	Action   string `json:"action"`
	RecipeID string `json:"recipe_id,omitempty"`
	Powered  *bool  `json:"powered,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	Port     int    `json:"port"`
	Kind     string `json:"kind,omitempty"`
	Amount   int    `json:"amount,omitempty"`
	From     string `json:"from,omitempty"`
}

// CommandTarget is the subset of registry mutations reachable over the bus.
// Placement and removal are deliberately absent: changing the floor layout
// stays an API operation.
type CommandTarget interface {
	SetRecipe(ctx context.Context, id, recipeID string) ([]machine.Effect, error)
	ClearRecipe(ctx context.Context, id string) ([]machine.Effect, error)
	SetPowered(ctx context.Context, id string, powered bool) ([]machine.Effect, error)
	SetEnabled(ctx context.Context, id string, enabled bool) ([]machine.Effect, error)
	AddToIntake(ctx context.Context, id string, port int, kind string, amount int) (bool, error)
	ExtractFromIntake(ctx context.Context, id string, port int, kind string, amount int) (int, error)
	ExtractFromOutput(ctx context.Context, id string, port int, kind string, amount int) (int, error)
}

// CommandAuditor records applied commands in the audit trail.
type CommandAuditor interface {
	Log(ctx context.Context, ev *audit.Event) error
}

// CommandDispatcher applies machine commands arriving over MQTT. It decodes
// the payload, runs the mutation against the registry and fans the resulting
// effects out through the engine so bus-sourced changes are observable on the
// same channels as API calls and ticks.
type CommandDispatcher struct {
	registry CommandTarget
	engine   *Engine
	audit    CommandAuditor
	logger   Logger
}

// NewCommandDispatcher wires the machine command topic to registry mutations.
// Registry and engine are required; auditor may be nil, which disables the
// audit trail for bus-sourced commands.
func NewCommandDispatcher(registry CommandTarget, engine *Engine, auditor CommandAuditor, logger Logger) (*CommandDispatcher, error) {
	if registry == nil {
		return nil, fmt.Errorf("simulation: command target is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("simulation: engine is required")
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &CommandDispatcher{
		registry: registry,
		engine:   engine,
		audit:    auditor,
		logger:   logger,
	}, nil
}

// HandleMessage processes one message from a machine command topic. The
// signature matches mqtt.MessageHandler so main can pass it straight to
// Subscribe on the command wildcard.
func (d *CommandDispatcher) HandleMessage(topic string, payload []byte) error {
	machineID, ok := mqtt.ParseMachineCommand(topic)
	if !ok {
		return fmt.Errorf("not a machine command topic: %s", topic)
	}

	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("decoding command for %s: %w", machineID, err)
	}

	ctx := context.Background()
	effects, detail, err := d.apply(ctx, machineID, cmd)
	if err != nil {
		d.logger.Warn("machine command rejected",
			"machine_id", machineID, "action", cmd.Action, "error", err)
		return fmt.Errorf("applying %s to %s: %w", cmd.Action, machineID, err)
	}

	// Dispatch even when the mutation produced no effects: add/extract change
	// port contents, which only surface through the retained state topic.
	d.engine.DispatchEffects(ctx, machineID, effects)
	d.recordAudit(ctx, machineID, cmd.Action, detail)
	d.logger.Debug("machine command applied", "machine_id", machineID, "action", cmd.Action)
	return nil
}

// apply runs the mutation for one command and returns the effects plus the
// detail map for the audit trail.
func (d *CommandDispatcher) apply(ctx context.Context, machineID string, cmd Command) ([]machine.Effect, map[string]any, error) {
	switch cmd.Action {
	case ActionSetRecipe:
		if cmd.RecipeID == "" {
			return nil, nil, fmt.Errorf("set_recipe requires recipe_id")
		}
		effects, err := d.registry.SetRecipe(ctx, machineID, cmd.RecipeID)
		return effects, map[string]any{"recipe_id": cmd.RecipeID}, err

	case ActionClearRecipe:
		effects, err := d.registry.ClearRecipe(ctx, machineID)
		return effects, nil, err

	case ActionSetPower:
		if cmd.Powered == nil {
			return nil, nil, fmt.Errorf("set_power requires powered")
		}
		effects, err := d.registry.SetPowered(ctx, machineID, *cmd.Powered)
		return effects, map[string]any{"powered": *cmd.Powered}, err

	case ActionSetEnabled:
		if cmd.Enabled == nil {
			return nil, nil, fmt.Errorf("set_enabled requires enabled")
		}
		effects, err := d.registry.SetEnabled(ctx, machineID, *cmd.Enabled)
		return effects, map[string]any{"enabled": *cmd.Enabled}, err

	case ActionAdd:
		if err := validateStack(cmd); err != nil {
			return nil, nil, err
		}
		accepted, err := d.registry.AddToIntake(ctx, machineID, cmd.Port, cmd.Kind, cmd.Amount)
		if err != nil {
			return nil, nil, err
		}
		if !accepted {
			return nil, nil, fmt.Errorf("intake port %d rejected %d %s", cmd.Port, cmd.Amount, cmd.Kind)
		}
		return nil, map[string]any{"port": cmd.Port, "kind": cmd.Kind, "amount": cmd.Amount}, nil

	case ActionExtract:
		if err := validateStack(cmd); err != nil {
			return nil, nil, err
		}
		from := cmd.From
		if from == "" {
			from = "output"
		}
		var removed int
		var err error
		switch from {
		case "output":
			removed, err = d.registry.ExtractFromOutput(ctx, machineID, cmd.Port, cmd.Kind, cmd.Amount)
		case "intake":
			removed, err = d.registry.ExtractFromIntake(ctx, machineID, cmd.Port, cmd.Kind, cmd.Amount)
		default:
			return nil, nil, fmt.Errorf("extract from must be intake or output, got %q", from)
		}
		if err != nil {
			return nil, nil, err
		}
		return nil, map[string]any{"port": cmd.Port, "kind": cmd.Kind, "amount": cmd.Amount, "from": from, "removed": removed}, nil

	default:
		return nil, nil, fmt.Errorf("unknown action %q", cmd.Action)
	}
}

// validateStack checks the shared fields of add and extract.
func validateStack(cmd Command) error {
	if cmd.Kind == "" {
		return fmt.Errorf("%s requires kind", cmd.Action)
	}
	if cmd.Amount <= 0 {
		return fmt.Errorf("%s requires a positive amount", cmd.Action)
	}
	return nil
}

func (d *CommandDispatcher) recordAudit(ctx context.Context, machineID, action string, detail map[string]any) {
	if d.audit == nil {
		return
	}
	ev := &audit.Event{
		Category: "machine",
		Action:   action,
		Subject:  machineID,
		Source:   "mqtt",
		Detail:   detail,
	}
	if err := d.audit.Log(ctx, ev); err != nil {
		d.logger.Warn("failed to record command audit event",
			"machine_id", machineID, "action", action, "error", err)
	}
}
