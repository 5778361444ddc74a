package machine

import "github.com/google/uuid"

// Validation lookup sets, built once at package initialisation.
var (
	validStates  map[State]struct{}
	validClasses map[Class]struct{}
)

func init() {
	validStates = make(map[State]struct{}, len(AllStates()))
	for _, s := range AllStates() {
		validStates[s] = struct{}{}
	}

	validClasses = make(map[Class]struct{}, len(AllClasses()))
	for _, c := range AllClasses() {
		validClasses[c] = struct{}{}
	}
}

// ValidState reports whether s is a recognised lifecycle state.
func ValidState(s State) bool {
	_, ok := validStates[s]
	return ok
}

// ValidClass reports whether c is a recognised machine class.
func ValidClass(c Class) bool {
	_, ok := validClasses[c]
	return ok
}

// GenerateID creates a new unique machine identifier.
func GenerateID() string {
	return uuid.New().String()
}

// normalizeRotation folds a rotation in degrees onto {0, 90, 180, 270}.
// Values off the 90-degree lattice are rounded down to the nearest step.
func normalizeRotation(rotation int) int {
	rotation %= 360
	if rotation < 0 {
		rotation += 360
	}
	return rotation - rotation%90
}
