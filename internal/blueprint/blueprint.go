package blueprint

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foundryworks/foundry-core/internal/machine"
)

// CurrentVersion is the blueprint format version this build reads and writes.
const CurrentVersion = 1

// ErrUnsupportedVersion is returned for blueprints written in a format
// version this build does not understand.
var ErrUnsupportedVersion = errors.New("blueprint: unsupported version")

// Blueprint is a declarative factory layout.
type Blueprint struct {
	Version  int                `yaml:"version" json:"version"`
	Name     string             `yaml:"name,omitempty" json:"name,omitempty"`
	Machines []MachinePlacement `yaml:"machines" json:"machines"`
}

// MachinePlacement describes one machine in a blueprint.
type MachinePlacement struct {
	TypeID   string           `yaml:"type_id" json:"type_id"`
	Name     string           `yaml:"name,omitempty" json:"name,omitempty"`
	Tier     int              `yaml:"tier,omitempty" json:"tier,omitempty"`
	Position machine.Position `yaml:"position" json:"position"`
	Rotation int              `yaml:"rotation,omitempty" json:"rotation,omitempty"`
	RecipeID string           `yaml:"recipe_id,omitempty" json:"recipe_id,omitempty"`

	// Enabled distinguishes "not set" (nil, machine stays enabled) from an
	// explicit enabled: false.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// Parse unmarshals and validates a YAML blueprint.
func Parse(data []byte) (Blueprint, error) {
	var bp Blueprint
	if err := yaml.Unmarshal(data, &bp); err != nil {
		return Blueprint{}, fmt.Errorf("parsing blueprint: %w", err)
	}
	if err := bp.Validate(); err != nil {
		return Blueprint{}, err
	}
	return bp, nil
}

// Marshal serialises a blueprint to YAML.
func Marshal(bp Blueprint) ([]byte, error) {
	data, err := yaml.Marshal(bp)
	if err != nil {
		return nil, fmt.Errorf("marshalling blueprint: %w", err)
	}
	return data, nil
}

// Validate checks the blueprint's structure. Placement conflicts (occupied
// cells, unknown types) are left to the registry at import time.
func (bp Blueprint) Validate() error {
	if bp.Version != CurrentVersion {
		return fmt.Errorf("%w: %d (supported: %d)", ErrUnsupportedVersion, bp.Version, CurrentVersion)
	}

	var errs []string
	for i, p := range bp.Machines {
		if p.TypeID == "" {
			errs = append(errs, fmt.Sprintf("machines[%d].type_id is required", i))
		}
		if p.Position.X < 0 || p.Position.Y < 0 {
			errs = append(errs, fmt.Sprintf("machines[%d].position must be non-negative", i))
		}
		if p.Tier < 0 {
			errs = append(errs, fmt.Sprintf("machines[%d].tier must not be negative", i))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("blueprint errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
