package detect

import (
	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/graph"
)

// AutoSets is the auto-detected allergen state of one recipe.
// Invariant: Contains and MayContain are disjoint.
type AutoSets struct {
	Contains   allergen.Set
	MayContain allergen.Set
}

// Unresolved reports one ingredient line that contributed nothing to
// auto-detection. Unresolved lines are operator-visible warnings, not engine
// failures; the declaration is still well defined without them.
type Unresolved struct {
	LineID string
	Ref    graph.Ref
	Reason string
}

// Aggregate folds per-line extraction and sub-recipe lookups into the
// recipe-level auto-detected sets.
//
// A Contains found on any line wins over MayContain found on any other line:
// the fold unions both tiers independently and subtracts Contains at the end,
// which makes the result independent of line order.
func Aggregate(
	lines []graph.IngredientLine,
	masters graph.MasterCatalog,
	subs graph.SubRecipeDeclarations,
	vocab allergen.Vocabulary,
) (AutoSets, []Unresolved) {
	autoContains := make(allergen.Set)
	autoMayContain := make(allergen.Set)
	var unresolved []Unresolved

	for _, line := range lines {
		ref := graph.Resolve(line)

		var contains, mayContain allergen.Set
		switch ref.Kind {
		case graph.RefRaw:
			rec, ok := masters.Master(ref.Target)
			if !ok {
				unresolved = append(unresolved, Unresolved{
					LineID: line.ID,
					Ref:    ref,
					Reason: "master ingredient not found",
				})
				continue
			}
			contains, mayContain = Extract(rec, vocab)

		case graph.RefPrepared:
			var ok bool
			contains, mayContain, ok = LookupSub(subs, ref.Target)
			if !ok {
				unresolved = append(unresolved, Unresolved{
					LineID: line.ID,
					Ref:    ref,
					Reason: "sub-recipe declaration not found",
				})
				continue
			}

		default:
			unresolved = append(unresolved, Unresolved{
				LineID: line.ID,
				Ref:    ref,
				Reason: "no resolvable reference",
			})
			continue
		}

		autoContains = autoContains.Union(contains)
		autoMayContain = autoMayContain.Union(mayContain)
	}

	// Contains anywhere beats MayContain elsewhere.
	autoMayContain = autoMayContain.Diff(autoContains)

	return AutoSets{Contains: autoContains, MayContain: autoMayContain}, unresolved
}
