package machine

import "errors"

// Domain errors for the machine package.
//
// Recipe validation errors name the specific rule that failed so callers can
// report it; none of them disturb the machine's active recipe.
//
//	if errors.Is(err, machine.ErrRecipeTierTooHigh) {
//	    // handle tier gate
//	}
var (
	// ErrNotFound is returned when a machine ID does not exist.
	ErrNotFound = errors.New("machine: not found")

	// ErrExists is returned when placing a machine with an ID that already exists.
	ErrExists = errors.New("machine: already exists")

	// ErrRecipeRequired is returned when activating a nil recipe.
	// Use ClearRecipe to unset the active recipe.
	ErrRecipeRequired = errors.New("machine: recipe required")

	// ErrRecipeNotSupported is returned when the machine class does not run recipes.
	ErrRecipeNotSupported = errors.New("machine: class does not run recipes")

	// ErrRecipeNoInputs is returned when a recipe declares no inputs and the
	// machine does not self-supply.
	ErrRecipeNoInputs = errors.New("machine: recipe has no inputs")

	// ErrRecipeNoOutputs is returned when a recipe declares no outputs.
	ErrRecipeNoOutputs = errors.New("machine: recipe has no outputs")

	// ErrRecipeInputsForbidden is returned when a self-supplying machine is
	// given a recipe that declares inputs.
	ErrRecipeInputsForbidden = errors.New("machine: self-supplying class forbids recipe inputs")

	// ErrRecipeBadDuration is returned when processing time is not positive.
	ErrRecipeBadDuration = errors.New("machine: recipe processing time must be positive")

	// ErrRecipeBadPower is returned when power consumption is negative.
	ErrRecipeBadPower = errors.New("machine: recipe power consumption must not be negative")

	// ErrRecipeTierTooHigh is returned when the recipe requires a higher tier
	// than the machine has.
	ErrRecipeTierTooHigh = errors.New("machine: recipe tier exceeds machine tier")

	// ErrRecipeBadStack is returned when an input or output entry has an
	// empty kind or a non-positive amount.
	ErrRecipeBadStack = errors.New("machine: recipe stack invalid")

	// ErrRecipeNotAvailable is returned when the recipe is not a member of
	// the machine's configured recipe set. Membership is by identity, not by
	// structural equality.
	ErrRecipeNotAvailable = errors.New("machine: recipe not in available set")

	// ErrUnknownRecipe is returned when a recipe identifier resolves to
	// nothing in the machine's available set.
	ErrUnknownRecipe = errors.New("machine: unknown recipe id")

	// ErrPortIndex is returned when a port index is out of range.
	ErrPortIndex = errors.New("machine: port index out of range")
)
