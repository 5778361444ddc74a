package blueprint

import (
	"context"
	"fmt"

	"github.com/foundryworks/foundry-core/internal/machine"
)

// Entry statuses reported by Import.
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
)

// ViewSource is the read side of the machine registry needed for export.
type ViewSource interface {
	Views() []machine.MachineView
}

// Placer is the registry surface Import drives. *machine.Registry satisfies
// it.
type Placer interface {
	Place(ctx context.Context, typeID, name string, pos machine.Position, rotation int) (machine.MachineView, error)
	Remove(ctx context.Context, id string) error
	SetTier(ctx context.Context, id string, tier int) error
	SetRecipe(ctx context.Context, id, recipeID string) ([]machine.Effect, error)
	SetEnabled(ctx context.Context, id string, enabled bool) ([]machine.Effect, error)
}

// EntryResult reports the outcome of one blueprint entry.
type EntryResult struct {
	Index     int    `json:"index"`
	TypeID    string `json:"type_id"`
	MachineID string `json:"machine_id,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`

	// Effects produced while configuring the placed machine. The caller
	// dispatches them; they are not part of the API payload.
	Effects []machine.Effect `json:"-"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	Name    string        `json:"name,omitempty"`
	Placed  int           `json:"placed"`
	Skipped int           `json:"skipped"`
	Entries []EntryResult `json:"entries"`
}

// Export captures the current layout as a blueprint. Machines appear in ID
// order.
func Export(name string, reg ViewSource) Blueprint {
	views := reg.Views()
	bp := Blueprint{
		Version:  CurrentVersion,
		Name:     name,
		Machines: make([]MachinePlacement, 0, len(views)),
	}

	for _, v := range views {
		enabled := v.Enabled
		bp.Machines = append(bp.Machines, MachinePlacement{
			TypeID:   v.TypeID,
			Name:     v.Name,
			Tier:     v.Tier,
			Position: v.Position,
			Rotation: v.Rotation,
			RecipeID: v.RecipeID,
			Enabled:  &enabled,
		})
	}
	return bp
}

// Import places every blueprint entry through the registry. Entries that the
// registry rejects are skipped with a reason; the rest of the file proceeds.
// A placement whose follow-up configuration (tier, recipe, enabled) fails is
// removed again so no half-configured machine survives.
//
// The returned error covers blueprint-level validation only; per-entry
// failures are reported in the result.
func Import(ctx context.Context, reg Placer, bp Blueprint) (ImportResult, error) {
	if err := bp.Validate(); err != nil {
		return ImportResult{}, err
	}

	result := ImportResult{
		Name:    bp.Name,
		Entries: make([]EntryResult, 0, len(bp.Machines)),
	}

	for i, p := range bp.Machines {
		entry := EntryResult{Index: i, TypeID: p.TypeID}

		view, err := reg.Place(ctx, p.TypeID, p.Name, p.Position, p.Rotation)
		if err != nil {
			entry.Status = StatusSkipped
			entry.Reason = err.Error()
			result.Skipped++
			result.Entries = append(result.Entries, entry)
			continue
		}
		entry.MachineID = view.ID

		effects, err := configure(ctx, reg, view, p)
		if err != nil {
			if rmErr := reg.Remove(ctx, view.ID); rmErr != nil {
				entry.Reason = fmt.Sprintf("%v (rollback failed: %v)", err, rmErr)
			} else {
				entry.Reason = err.Error()
			}
			entry.Status = StatusSkipped
			entry.MachineID = ""
			result.Skipped++
			result.Entries = append(result.Entries, entry)
			continue
		}

		entry.Status = StatusImported
		entry.Effects = effects
		result.Placed++
		result.Entries = append(result.Entries, entry)
	}
	return result, nil
}

// configure applies the entry's tier, recipe and enabled flag to a freshly
// placed machine. Tier is raised before the recipe so tier-gated recipes in
// the same entry activate.
func configure(ctx context.Context, reg Placer, view machine.MachineView, p MachinePlacement) ([]machine.Effect, error) {
	if p.Tier >= 1 && p.Tier != view.Tier {
		if err := reg.SetTier(ctx, view.ID, p.Tier); err != nil {
			return nil, fmt.Errorf("setting tier %d: %w", p.Tier, err)
		}
	}

	var effects []machine.Effect
	if p.RecipeID != "" {
		effs, err := reg.SetRecipe(ctx, view.ID, p.RecipeID)
		if err != nil {
			return nil, fmt.Errorf("activating recipe %q: %w", p.RecipeID, err)
		}
		effects = append(effects, effs...)
	}

	if p.Enabled != nil && !*p.Enabled {
		effs, err := reg.SetEnabled(ctx, view.ID, false)
		if err != nil {
			return nil, fmt.Errorf("disabling machine: %w", err)
		}
		effects = append(effects, effs...)
	}
	return effects, nil
}
