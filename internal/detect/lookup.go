package detect

import (
	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/graph"
)

// LookupSub fetches the already-reconciled declaration of a sub-recipe.
//
// This is deliberately one level deep: the sub-recipe's own engine instance
// keeps its declaration fresh, so reading the reconciled sets (rather than
// recursing into its ingredient graph) bounds recompute cost and avoids
// cross-recipe recursive invalidation.
func LookupSub(decls graph.SubRecipeDeclarations, recipeID string) (contains, mayContain allergen.Set, ok bool) {
	d, ok := decls.Declaration(recipeID)
	if !ok {
		return nil, nil, false
	}
	return d.Contains, d.MayContain, true
}
