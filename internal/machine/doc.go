// Package machine implements the production core of Foundry: the per-unit
// lifecycle state machine, its capacity-bounded intake and output ports,
// recipe validation, and the snapshot serializer that makes all of it
// save/restorable mid-cycle.
//
// # Key Types
//
//   - Machine: one production unit; driven by Tick(dt), mutated through
//     explicit accessors, observed through returned Effect values
//   - Port: a bounded multi-kind resource buffer
//   - Recipe: a declarative transformation (inputs, outputs, duration,
//     power draw, tier gate), owned by the catalog
//   - Snapshot: a flat projection sufficient for exact reconstruction
//   - Registry: the live machine set over a Repository, serialising engine
//     ticks against API/MQTT mutations
//
// # Lifecycle
//
// States: idle, waiting_for_input, processing, waiting_for_output, no_power,
// disabled. Disabled and no_power are interrupt states; power loss remembers
// the previous state so a mid-cycle interruption resumes without losing
// progress. A finished cycle commits all-or-nothing: inputs are consumed and
// outputs produced only when every output fits, otherwise the cycle is held
// until output room appears.
//
// # Usage
//
//	cfg, _ := cat.MachineConfig("assembler-mk1")
//	m := machine.New(cfg)
//	m.AddToIntake(0, "wood", 2)
//	effects, _ := m.SetRecipe(cat.Recipe("plank"))
//	for i := 0; i < 20; i++ {
//	    effects = append(effects, m.Tick(0.1)...)
//	}
//
// Machines are not safe for concurrent use; the Registry serialises access.
package machine
