// Package catalog loads machine type and recipe definitions from YAML.
//
// The catalog is the single owner of recipe values: every consumer receives
// the same *machine.Recipe pointer for a given recipe ID, which is what makes
// the machine's available-set membership check work by identity. Definitions
// are validated in full at load time, so a catalog that parses but is
// inconsistent (duplicate IDs, dangling recipe references, class/recipe
// mismatches) never reaches the registry.
//
// The catalog is immutable after Load and safe for concurrent reads.
package catalog
