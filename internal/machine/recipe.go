package machine

// Recipe declares a transformation: inputs consumed, outputs produced, how
// long a cycle takes and what it draws from the power grid. Recipes are owned
// by the catalog; machines keep references and never mutate them.
type Recipe struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`

	Inputs  []Stack `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	Outputs []Stack `json:"outputs" yaml:"outputs"`

	// ProcessingTime is the cycle duration in seconds at speed multiplier 1.
	ProcessingTime float64 `json:"processing_time" yaml:"processing_time"`

	// PowerConsumption is the draw in watts while a cycle runs, before the
	// tier efficiency multiplier is applied.
	PowerConsumption float64 `json:"power_consumption" yaml:"power_consumption"`

	// RequiredTier gates the recipe to machines of at least this tier.
	RequiredTier int `json:"required_tier" yaml:"required_tier"`
}

// ValidateRecipe checks a recipe against this machine before activation.
// Each rule fails with its own sentinel error and the active recipe is left
// untouched on any failure.
func (m *Machine) ValidateRecipe(r *Recipe) error {
	caps := m.class.Capabilities()
	if !caps.NeedsRecipe {
		return ErrRecipeNotSupported
	}
	if r == nil {
		return ErrRecipeRequired
	}
	if len(r.Outputs) == 0 {
		return ErrRecipeNoOutputs
	}
	if caps.SelfSupply {
		if len(r.Inputs) != 0 {
			return ErrRecipeInputsForbidden
		}
	} else if len(r.Inputs) == 0 {
		return ErrRecipeNoInputs
	}
	if r.ProcessingTime <= 0 {
		return ErrRecipeBadDuration
	}
	if r.PowerConsumption < 0 {
		return ErrRecipeBadPower
	}
	if r.RequiredTier > m.tier {
		return ErrRecipeTierTooHigh
	}
	for _, s := range r.Inputs {
		if s.Kind == "" || s.Amount <= 0 {
			return ErrRecipeBadStack
		}
	}
	for _, s := range r.Outputs {
		if s.Kind == "" || s.Amount <= 0 {
			return ErrRecipeBadStack
		}
	}
	if !m.recipeAvailable(r) {
		return ErrRecipeNotAvailable
	}
	return nil
}

// recipeAvailable checks membership of r in the configured recipe set.
// Membership is identity (the same *Recipe the catalog handed out), not
// structural equality: two recipes with equal fields are still distinct.
func (m *Machine) recipeAvailable(r *Recipe) bool {
	for _, a := range m.available {
		if a == r {
			return true
		}
	}
	return false
}

// findRecipe resolves a recipe identifier against the available set.
func (m *Machine) findRecipe(id string) *Recipe {
	for _, r := range m.available {
		if r.ID == id {
			return r
		}
	}
	return nil
}
