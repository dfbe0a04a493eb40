package engine

import (
	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/detect"
)

// Reconcile combines the auto-detected sets with the manual override record
// into the final contains/may-contain sets.
//
// Pure function; inputs are not mutated. The rules, in order:
//
//  1. finalContains = autoContains ∪ manualContains ∪ honored promotions,
//     where a promotion is honored only while its kind is still in
//     autoMayContain - promotions are conditional, not permanent.
//  2. finalMayContain = (autoMayContain ∪ manualMayContain) \ finalContains,
//     which enforces tier exclusivity and resolves a kind manually
//     added to both lists in favor of Contains.
//
// Cross-contact notes and Environment pass through outside this function.
func Reconcile(auto detect.AutoSets, ov Overrides) (finalContains, finalMayContain allergen.Set) {
	honored := ov.Promoted.Intersect(auto.MayContain)

	finalContains = auto.Contains.Union(ov.ManualContains).Union(honored)
	finalMayContain = auto.MayContain.Union(ov.ManualMayContain).Diff(finalContains)

	return finalContains, finalMayContain
}

// ValidPromotions computes the promotions that still have an auto-detected
// basis. When the result differs from the stored promotion list, the caller
// must emit an override-record update replacing Promoted with the result -
// the engine's only write path into the override record, and removal-only.
func ValidPromotions(promoted, autoMayContain allergen.Set) allergen.Set {
	return promoted.Intersect(autoMayContain)
}

// CheckInvariants validates a reconciled declaration before it may be
// persisted. A violation is a defect at the life-safety boundary: it must be
// rejected and alerted, never silently coerced into a writable shape.
func CheckInvariants(recipeID string, finalContains, finalMayContain allergen.Set) error {
	if overlap := finalContains.Intersect(finalMayContain); overlap.Len() > 0 {
		return NewInvariantViolation(recipeID,
			"contains and may-contain sets overlap",
			map[string]string{"overlap": joinKinds(overlap.Sorted())},
		)
	}
	return nil
}

func joinKinds(kinds []allergen.Kind) string {
	s := ""
	for i, k := range kinds {
		if i > 0 {
			s += ","
		}
		s += string(k)
	}
	return s
}
