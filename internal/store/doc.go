// Package store provides SQLite-backed durable storage for the allergen
// declaration engine.
//
// The store holds five kinds of state:
//   - Recipes and their ingredient lines (the declared input graph)
//   - The allergen view of the master-ingredient catalog
//   - Operator override records (manual kinds, promotions, notes)
//   - Materialized declarations in the legacy aggregate shape, with the
//     write-suppression fingerprint and operator confirmed_at
//   - Normalized per-kind/per-tier declaration rows (declaration_flags)
//
// Both declaration shapes are written atomically from the same canonical
// struct in WriteDeclaration, so they can never drift apart. The write is
// guarded by a fingerprint compare: if the stored fingerprint no longer
// matches what the recompute started from, engine.ErrWriteConflict is
// returned and the row is left untouched.
//
// confirmed_at is owned by the operator confirmation workflow (Confirm).
// No engine write path ever sets or clears it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
