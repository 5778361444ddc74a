// Package blueprint provides YAML import and export of factory layouts.
//
// A blueprint is an operator-authored file describing machine placements:
// type, position, rotation, tier, active recipe and enabled flag. Import
// places the machines through the registry, which enforces catalog and grid
// rules; entries that fail are skipped with a reason while the rest of the
// file proceeds. Export captures the current layout in the same format.
//
//	bp, err := blueprint.Parse(data)
//	if err != nil {
//	    return err
//	}
//	result, err := blueprint.Import(ctx, registry, bp)
//
// A blueprint entry is applied all-or-nothing: if activating its recipe or
// tier fails after placement, the machine is removed again and the entry is
// reported as skipped.
package blueprint
