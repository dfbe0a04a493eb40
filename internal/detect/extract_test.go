package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/graph"
)

func TestExtract_ContainsDominatesPerIngredient(t *testing.T) {
	// Both flags set for milk; Contains wins.
	rec := graph.MasterRecord{
		ID:         "m-butter",
		Name:       "Butter",
		Contains:   allergen.NewSet(allergen.Milk),
		MayContain: allergen.NewSet(allergen.Milk, allergen.TreeNut),
	}

	contains, mayContain := Extract(rec, allergen.Default())

	assert.True(t, contains.Equal(allergen.NewSet(allergen.Milk)))
	assert.True(t, mayContain.Equal(allergen.NewSet(allergen.TreeNut)))
}

func TestExtract_CustomSlots(t *testing.T) {
	vocab, err := allergen.NewVocabulary([]allergen.CustomSlot{
		{Name: "saffron", Active: true},
		{Name: "retired_blend", Active: false},
		{Name: "house_chili", Active: true},
	})
	require.NoError(t, err)

	rec := graph.MasterRecord{
		ID:   "m-paella-base",
		Name: "Paella base",
	}
	rec.Custom[0] = graph.CustomFlags{Contains: true}
	rec.Custom[1] = graph.CustomFlags{Contains: true} // inactive slot, dropped
	rec.Custom[2] = graph.CustomFlags{Contains: true, MayContain: true}

	contains, mayContain := Extract(rec, vocab)

	assert.True(t, contains.Equal(allergen.NewSet("saffron", "house_chili")))
	assert.Equal(t, 0, mayContain.Len(), "contains wins for the custom slot with both flags")
}

func TestExtract_CustomMayContain(t *testing.T) {
	vocab, err := allergen.NewVocabulary([]allergen.CustomSlot{{Name: "saffron", Active: true}})
	require.NoError(t, err)

	rec := graph.MasterRecord{ID: "m-stock", Name: "Stock"}
	rec.Custom[0] = graph.CustomFlags{MayContain: true}

	contains, mayContain := Extract(rec, vocab)

	assert.Equal(t, 0, contains.Len())
	assert.True(t, mayContain.Equal(allergen.NewSet("saffron")))
}

func TestExtract_EmptyRecord(t *testing.T) {
	contains, mayContain := Extract(graph.MasterRecord{ID: "m-water", Name: "Water"}, allergen.Default())

	assert.Equal(t, 0, contains.Len())
	assert.Equal(t, 0, mayContain.Len())
}
