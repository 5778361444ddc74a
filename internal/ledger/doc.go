// Package ledger keeps running totals of resources produced and consumed
// across the whole factory.
//
// The ledger is a mirror, not a source of truth: the simulation engine feeds
// it from completion effects, and machines know nothing about it. Totals
// survive only as long as the process; they are recomputable by replaying
// history.
package ledger
