// Package decl holds the canonical in-memory representation of a recipe
// allergen declaration, its fingerprints, and the two persistence
// serializations (legacy aggregate and normalized per-kind rows).
//
// There is exactly ONE canonical representation - the Declaration struct -
// and the legacy and normalized shapes are derived from it by serializers.
// The two shapes are never independently mutable.
package decl

import (
	"slices"

	"github.com/mirepoix/declared/internal/allergen"
)

// Declaration is the reconciled allergen declaration of one recipe.
//
// All slices are sorted and deduplicated at construction; a Declaration built
// through New is safe to fingerprint and serialize directly. Contains and
// MayContain are disjoint by reconciliation; Environment is manual-only and
// not constrained here. The engine validates tier exclusivity before any
// Declaration reaches persistence.
type Declaration struct {
	RecipeID          string
	Contains          []allergen.Kind
	MayContain        []allergen.Kind
	Environment       []allergen.Kind
	CrossContactNotes []string
}

// New builds a Declaration from reconciled sets, sorting kinds and
// deduplicating/sorting notes so equal inputs always produce byte-equal
// serializations and fingerprints.
func New(recipeID string, contains, mayContain, environment allergen.Set, crossContactNotes []string) Declaration {
	return Declaration{
		RecipeID:          recipeID,
		Contains:          contains.Sorted(),
		MayContain:        mayContain.Sorted(),
		Environment:       environment.Sorted(),
		CrossContactNotes: normalizeNotes(crossContactNotes),
	}
}

// ContainsSet returns the contains kinds as a set.
func (d Declaration) ContainsSet() allergen.Set {
	return allergen.NewSet(d.Contains...)
}

// MayContainSet returns the may-contain kinds as a set.
func (d Declaration) MayContainSet() allergen.Set {
	return allergen.NewSet(d.MayContain...)
}

// normalizeNotes sorts and deduplicates free-text notes, dropping empties.
// Note order is operator-incidental; normalizing it here keeps note
// reordering from ever producing a spurious declaration write.
func normalizeNotes(notes []string) []string {
	out := make([]string, 0, len(notes))
	seen := make(map[string]bool, len(notes))
	for _, n := range notes {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

func kindStrings(kinds []allergen.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
