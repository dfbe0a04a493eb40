// Package engine reconciles a recipe's allergen declaration.
//
// The engine combines two competing sources of truth - automatic detection
// from the ingredient graph and operator-entered manual overrides - into one
// authoritative declaration, without ever silently dropping operator data or
// silently keeping stale auto-detected data.
//
// A recompute pass is a pure function of an input snapshot (ingredient
// lines, master-ingredient catalog, sub-recipe declarations, override
// record). The pass produces a declaration, its fingerprint, and at most two
// persistence instructions: one declaration write (suppressed when the
// fingerprint is unchanged) and one promotion-list cleanup. The single-writer
// Run loop serializes passes and coalesces rapid invalidations so only the
// freshest complete snapshot ever reaches the writer.
package engine
