// Package grid tracks which factory floor cells are occupied by which
// machine. Claims are all-or-nothing over a machine's rotated footprint and
// releases are idempotent.
//
// The grid is purely in-memory: the floor layout is reconstructed at boot by
// replaying the placement of every persisted machine snapshot.
package grid
