package engine

import "github.com/mirepoix/declared/internal/allergen"

// Overrides is the operator-owned manual override record for one recipe.
//
// This is the only part of the system a human edits directly. The engine
// reads it on every recompute and writes back exactly one thing: a cleaned
// promotion list when orphan cleanup fires (see ValidPromotions). Manual
// additions, environment entries and notes are never touched by the engine.
type Overrides struct {
	// ManualContains are kinds the operator declared present regardless of
	// ingredient data. Never dropped automatically.
	ManualContains allergen.Set

	// ManualMayContain are kinds the operator declared as trace risk.
	// Never dropped automatically.
	ManualMayContain allergen.Set

	// Promoted are auto-detected may-contain kinds the operator upgraded to
	// contains. Promotions are conditional on the kind still being
	// auto-detected; orphaned promotions are cleaned up.
	Promoted allergen.Set

	// Environment are manual-only shared-environment kinds. Out of the
	// reconciler's automatic scope entirely.
	Environment allergen.Set

	// CrossContactNotes is operator free text, passed through unchanged.
	CrossContactNotes []string

	// KindNotes carries per-allergen operator notes. Pass-through only.
	KindNotes map[allergen.Kind]string
}

// EmptyOverrides returns an override record with no manual data.
// Also the local recovery value for a missing or malformed stored record.
func EmptyOverrides() Overrides {
	return Overrides{
		ManualContains:   allergen.NewSet(),
		ManualMayContain: allergen.NewSet(),
		Promoted:         allergen.NewSet(),
		Environment:      allergen.NewSet(),
	}
}
