// Package graph models the ingredient graph the reconciliation engine reads:
// ingredient lines, typed references into the master-ingredient catalog and
// into sub-recipes, and the snapshot views of both catalogs.
//
// Everything here is read-only input. The engine never mutates the graph;
// recipe editing owns it.
package graph

// LineType discriminates raw ingredient lines from prepared sub-recipe lines.
// The discriminator is authoritative: reference resolution never guesses the
// type from the shape of an identifier field.
type LineType string

const (
	// LineRaw references a master-ingredient record.
	LineRaw LineType = "raw"
	// LinePrepared references another recipe used as a sub-component.
	LinePrepared LineType = "prepared"
)

// ValidLineType reports whether t is a recognized line type.
func ValidLineType(t LineType) bool {
	return t == LineRaw || t == LinePrepared
}

// IngredientLine is one line of a recipe's ingredient list.
//
// Exactly one of MasterID / SubRecipeID should be set, consistent with Type.
// LegacyRef is a single pre-migration identifier field whose meaning depends
// on Type; it is consulted only when the typed reference is absent.
//
// Quantity and Unit coexist on the record for the surrounding application;
// the reconciliation engine never reads them.
type IngredientLine struct {
	ID          string   `yaml:"id" json:"id"`
	RecipeID    string   `yaml:"-" json:"recipe_id"`
	Type        LineType `yaml:"type" json:"type"`
	MasterID    string   `yaml:"master_id,omitempty" json:"master_id,omitempty"`
	SubRecipeID string   `yaml:"sub_recipe_id,omitempty" json:"sub_recipe_id,omitempty"`
	LegacyRef   string   `yaml:"legacy_ref,omitempty" json:"legacy_ref,omitempty"`
	Position    int      `yaml:"position,omitempty" json:"position,omitempty"`
	Quantity    float64  `yaml:"quantity,omitempty" json:"quantity,omitempty"`
	Unit        string   `yaml:"unit,omitempty" json:"unit,omitempty"`
}
