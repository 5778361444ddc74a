package catalog

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/foundryworks/foundry-core/internal/machine"
)

// ErrTypeNotFound is returned when a machine type ID is not in the catalog.
var ErrTypeNotFound = errors.New("catalog: machine type not found")

// MachineType declares one placeable machine model.
type MachineType struct {
	// ID uniquely identifies the type within the catalog.
	ID string `yaml:"id" json:"id"`

	// Name is the display name. Machines placed without an explicit name
	// inherit it.
	Name string `yaml:"name" json:"name"`

	// Class selects the capability variant: processor, extractor or storage.
	Class machine.Class `yaml:"class" json:"class"`

	// Tier is the performance tier machines of this type start at.
	Tier int `yaml:"tier" json:"tier"`

	// PowerDraw is the base draw in watts whenever the machine is powered.
	PowerDraw float64 `yaml:"power_draw" json:"power_draw"`

	// Footprint is the grid extent at rotation 0.
	Footprint machine.Footprint `yaml:"footprint" json:"footprint"`

	// IntakePorts and OutputPorts declare the machine's buffers.
	IntakePorts []machine.PortSpec `yaml:"intake_ports" json:"intake_ports,omitempty"`
	OutputPorts []machine.PortSpec `yaml:"output_ports" json:"output_ports,omitempty"`

	// RecipeIDs lists the recipes machines of this type may activate.
	RecipeIDs []string `yaml:"recipes" json:"recipes,omitempty"`
}

// file is the raw YAML document shape.
type file struct {
	Recipes      []machine.Recipe `yaml:"recipes"`
	MachineTypes []MachineType    `yaml:"machine_types"`
}

// Catalog is a validated, immutable set of machine types and recipes.
type Catalog struct {
	types   map[string]MachineType
	recipes map[string]*machine.Recipe

	// byType maps a machine type ID to its resolved recipe set. The slices
	// alias the shared recipe values; consumers get copies of the slice.
	byType map[string][]*machine.Recipe
}

// Load reads machine type and recipe definitions from a YAML file.
//
// Returns:
//   - *Catalog: Loaded and validated catalog
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from raw YAML. All definitions are validated before
// anything is handed out; a partially valid document is rejected whole.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}

	// A recipe that omits required_tier runs on any machine.
	for i := range f.Recipes {
		if f.Recipes[i].RequiredTier == 0 {
			f.Recipes[i].RequiredTier = 1
		}
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	c := &Catalog{
		types:   make(map[string]MachineType, len(f.MachineTypes)),
		recipes: make(map[string]*machine.Recipe, len(f.Recipes)),
		byType:  make(map[string][]*machine.Recipe, len(f.MachineTypes)),
	}
	for i := range f.Recipes {
		c.recipes[f.Recipes[i].ID] = &f.Recipes[i]
	}
	for _, t := range f.MachineTypes {
		c.types[t.ID] = t

		set := make([]*machine.Recipe, 0, len(t.RecipeIDs))
		for _, id := range t.RecipeIDs {
			set = append(set, c.recipes[id])
		}
		c.byType[t.ID] = set
	}
	return c, nil
}

// validate checks the document for errors.
func (f *file) validate() error {
	var errs []string

	errs = append(errs, f.validateRecipes()...)
	errs = append(errs, f.validateTypes()...)

	if len(errs) > 0 {
		return fmt.Errorf("catalog errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// validateRecipes validates recipe definitions.
func (f *file) validateRecipes() []string {
	var errs []string
	seen := make(map[string]bool)

	for i, r := range f.Recipes {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("recipes[%d].id is required", i))
			continue
		}
		if seen[r.ID] {
			errs = append(errs, fmt.Sprintf("recipes[%d].id %q is duplicate", i, r.ID))
		}
		seen[r.ID] = true

		if len(r.Outputs) == 0 {
			errs = append(errs, fmt.Sprintf("recipes[%d] must declare at least one output", i))
		}
		if r.ProcessingTime <= 0 {
			errs = append(errs, fmt.Sprintf("recipes[%d].processing_time must be positive", i))
		}
		if r.PowerConsumption < 0 {
			errs = append(errs, fmt.Sprintf("recipes[%d].power_consumption must not be negative", i))
		}
		if r.RequiredTier < 1 {
			errs = append(errs, fmt.Sprintf("recipes[%d].required_tier must be at least 1", i))
		}

		errs = append(errs, validateStacks(i, "inputs", r.Inputs)...)
		errs = append(errs, validateStacks(i, "outputs", r.Outputs)...)
	}
	return errs
}

// validateStacks validates the stack entries of one recipe list.
func validateStacks(recipeIdx int, list string, stacks []machine.Stack) []string {
	var errs []string
	for j, s := range stacks {
		if s.Kind == "" {
			errs = append(errs, fmt.Sprintf("recipes[%d].%s[%d].kind is required", recipeIdx, list, j))
		}
		if s.Amount <= 0 {
			errs = append(errs, fmt.Sprintf("recipes[%d].%s[%d].amount must be positive", recipeIdx, list, j))
		}
	}
	return errs
}

// validateTypes validates machine type definitions, including their recipe
// references against the class capability rules that would otherwise only
// surface when a recipe is activated.
func (f *file) validateTypes() []string {
	var errs []string
	seen := make(map[string]bool)

	recipes := make(map[string]machine.Recipe, len(f.Recipes))
	for _, r := range f.Recipes {
		recipes[r.ID] = r
	}

	for i, t := range f.MachineTypes {
		if t.ID == "" {
			errs = append(errs, fmt.Sprintf("machine_types[%d].id is required", i))
			continue
		}
		if seen[t.ID] {
			errs = append(errs, fmt.Sprintf("machine_types[%d].id %q is duplicate", i, t.ID))
		}
		seen[t.ID] = true

		if !machine.ValidClass(t.Class) {
			errs = append(errs, fmt.Sprintf("machine_types[%d].class %q is invalid (use processor, extractor, or storage)", i, t.Class))
		}
		if t.Tier < 1 {
			errs = append(errs, fmt.Sprintf("machine_types[%d].tier must be at least 1", i))
		}
		if t.PowerDraw < 0 {
			errs = append(errs, fmt.Sprintf("machine_types[%d].power_draw must not be negative", i))
		}
		if t.Footprint.Width < 1 || t.Footprint.Height < 1 {
			errs = append(errs, fmt.Sprintf("machine_types[%d].footprint must be at least 1x1", i))
		}

		errs = append(errs, validateTypePorts(i, t)...)
		errs = append(errs, validateTypeRecipes(i, t, recipes)...)
	}
	return errs
}

// validateTypePorts checks port declarations against the type's class.
func validateTypePorts(typeIdx int, t MachineType) []string {
	var errs []string

	for j, p := range t.IntakePorts {
		if p.Capacity < 1 {
			errs = append(errs, fmt.Sprintf("machine_types[%d].intake_ports[%d].capacity must be positive", typeIdx, j))
		}
	}
	for j, p := range t.OutputPorts {
		if p.Capacity < 1 {
			errs = append(errs, fmt.Sprintf("machine_types[%d].output_ports[%d].capacity must be positive", typeIdx, j))
		}
	}

	switch t.Class {
	case machine.ClassProcessor:
		if len(t.IntakePorts) == 0 {
			errs = append(errs, fmt.Sprintf("machine_types[%d] (processor) must declare at least one intake port", typeIdx))
		}
		if len(t.OutputPorts) == 0 {
			errs = append(errs, fmt.Sprintf("machine_types[%d] (processor) must declare at least one output port", typeIdx))
		}
	case machine.ClassExtractor:
		if len(t.OutputPorts) == 0 {
			errs = append(errs, fmt.Sprintf("machine_types[%d] (extractor) must declare at least one output port", typeIdx))
		}
	case machine.ClassStorage:
		if len(t.IntakePorts)+len(t.OutputPorts) == 0 {
			errs = append(errs, fmt.Sprintf("machine_types[%d] (storage) must declare at least one port", typeIdx))
		}
	}
	return errs
}

// validateTypeRecipes checks recipe references for existence and class
// compatibility. The tier gate is deliberately not checked here: a type may
// reference recipes above its starting tier and unlock them by upgrading.
func validateTypeRecipes(typeIdx int, t MachineType, recipes map[string]machine.Recipe) []string {
	var errs []string

	if t.Class == machine.ClassStorage && len(t.RecipeIDs) > 0 {
		errs = append(errs, fmt.Sprintf("machine_types[%d] (storage) must not reference recipes", typeIdx))
		return errs
	}

	for _, id := range t.RecipeIDs {
		r, ok := recipes[id]
		if !ok {
			errs = append(errs, fmt.Sprintf("machine_types[%d] references unknown recipe %q", typeIdx, id))
			continue
		}
		switch t.Class {
		case machine.ClassExtractor:
			if len(r.Inputs) != 0 {
				errs = append(errs, fmt.Sprintf("machine_types[%d] (extractor) references recipe %q which declares inputs", typeIdx, id))
			}
		case machine.ClassProcessor:
			if len(r.Inputs) == 0 {
				errs = append(errs, fmt.Sprintf("machine_types[%d] (processor) references recipe %q which declares no inputs", typeIdx, id))
			}
		}
	}
	return errs
}

// Type returns the machine type with the given ID.
func (c *Catalog) Type(id string) (MachineType, bool) {
	t, ok := c.types[id]
	return t, ok
}

// Types returns all machine types, ordered by ID.
func (c *Catalog) Types() []MachineType {
	ids := make([]string, 0, len(c.types))
	for id := range c.types {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	types := make([]MachineType, 0, len(ids))
	for _, id := range ids {
		types = append(types, c.types[id])
	}
	return types
}

// Recipe returns the shared recipe value for the given ID, or nil when the
// catalog does not define it.
func (c *Catalog) Recipe(id string) *machine.Recipe {
	return c.recipes[id]
}

// Recipes returns all recipes, ordered by ID.
func (c *Catalog) Recipes() []*machine.Recipe {
	ids := make([]string, 0, len(c.recipes))
	for id := range c.recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	recipes := make([]*machine.Recipe, 0, len(ids))
	for _, id := range ids {
		recipes = append(recipes, c.recipes[id])
	}
	return recipes
}

// RecipesFor returns the recipe set of a machine type, or nil for unknown
// types. The returned slice is a copy; the recipe pointers are shared.
func (c *Catalog) RecipesFor(typeID string) []*machine.Recipe {
	set, ok := c.byType[typeID]
	if !ok {
		return nil
	}
	return append([]*machine.Recipe(nil), set...)
}

// MachineConfig builds the construction config for a machine of the given
// type. It implements the registry's TypeResolver.
//
// Port specs and the recipe slice are fresh copies so callers cannot mutate
// catalog state through the config; the recipe pointers themselves are the
// catalog's shared values, preserving identity membership.
func (c *Catalog) MachineConfig(typeID string) (machine.Config, error) {
	t, ok := c.types[typeID]
	if !ok {
		return machine.Config{}, fmt.Errorf("%w: %s", ErrTypeNotFound, typeID)
	}

	return machine.Config{
		TypeID:           t.ID,
		Name:             t.Name,
		Class:            t.Class,
		Tier:             t.Tier,
		BasePowerDraw:    t.PowerDraw,
		Footprint:        t.Footprint,
		IntakePorts:      append([]machine.PortSpec(nil), t.IntakePorts...),
		OutputPorts:      append([]machine.PortSpec(nil), t.OutputPorts...),
		AvailableRecipes: append([]*machine.Recipe(nil), c.byType[t.ID]...),
	}, nil
}
