package graph

import "github.com/mirepoix/declared/internal/allergen"

// CustomFlags carries the contains/may-contain booleans for one custom
// allergen slot on a master-ingredient record. The slot's kind identifier
// comes from the organization vocabulary, not from the record.
type CustomFlags struct {
	Contains   bool `yaml:"contains,omitempty" json:"contains,omitempty"`
	MayContain bool `yaml:"may_contain,omitempty" json:"may_contain,omitempty"`
}

// MasterRecord is the allergen view of one master-ingredient record.
// Owned externally; read-only from the engine's perspective.
//
// Contains and MayContain hold standard kinds. For a given kind both flags
// may be set upstream; extraction applies the Contains-wins rule, so the
// record itself is stored as-is.
type MasterRecord struct {
	ID         string                               `yaml:"id" json:"id"`
	Name       string                               `yaml:"name" json:"name"`
	Contains   allergen.Set                         `yaml:"-" json:"-"`
	MayContain allergen.Set                         `yaml:"-" json:"-"`
	Custom     [allergen.MaxCustomSlots]CustomFlags `yaml:"-" json:"-"`
}

// SubRecipeDecl is the already-reconciled declaration of a sub-recipe.
// The engine reads this one level deep and never recurses into the
// sub-recipe's own ingredient graph; the sub-recipe's own engine instance is
// responsible for keeping these sets fresh.
type SubRecipeDecl struct {
	Contains   allergen.Set
	MayContain allergen.Set
}

// MasterCatalog is an injected, read-only snapshot of the master-ingredient
// catalog. Missing entries are expected (dangling ids, legacy data) and are
// reported via ok=false, never as an error.
type MasterCatalog interface {
	Master(id string) (MasterRecord, bool)
}

// SubRecipeDeclarations is an injected, read-only snapshot of the reconciled
// declarations of other recipes.
type SubRecipeDeclarations interface {
	Declaration(recipeID string) (SubRecipeDecl, bool)
}

// MasterMap is an in-memory MasterCatalog, used for tests and for snapshots
// loaded from files.
type MasterMap map[string]MasterRecord

// Master implements MasterCatalog.
func (m MasterMap) Master(id string) (MasterRecord, bool) {
	rec, ok := m[id]
	return rec, ok
}

// SubDeclMap is an in-memory SubRecipeDeclarations.
type SubDeclMap map[string]SubRecipeDecl

// Declaration implements SubRecipeDeclarations.
func (m SubDeclMap) Declaration(recipeID string) (SubRecipeDecl, bool) {
	d, ok := m[recipeID]
	return d, ok
}
