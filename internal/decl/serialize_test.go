package decl

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirepoix/declared/internal/allergen"
)

func TestLegacy_FromCanonical(t *testing.T) {
	d := New("r-bread",
		allergen.NewSet(allergen.Gluten, allergen.Lupin),
		allergen.NewSet(allergen.Sesame),
		allergen.NewSet(allergen.Peanut),
		[]string{"shared fryer"},
	)

	lr := d.Legacy()
	assert.Equal(t, []string{"gluten", "lupin"}, lr.Contains)
	assert.Equal(t, []string{"sesame"}, lr.MayContain)
	assert.Equal(t, []string{"shared fryer"}, lr.CrossContactRisk)
	assert.Equal(t, []string{"peanut"}, lr.Environment)
}

func TestNormalized_FromCanonical(t *testing.T) {
	d := New("r-bread",
		allergen.NewSet(allergen.Gluten),
		allergen.NewSet(allergen.Sesame),
		allergen.NewSet(),
		nil,
	)

	entries := d.Normalized()
	assert.Equal(t, []NormalizedEntry{
		{Kind: allergen.Gluten, Tier: allergen.TierContains},
		{Kind: allergen.Sesame, Tier: allergen.TierMayContain},
	}, entries)
}

// serializedSnapshot renders both persistence shapes through canonical JSON
// so golden comparison is byte-stable.
func serializedSnapshot(t *testing.T, d Declaration) []byte {
	t.Helper()

	lr := d.Legacy()
	entries := d.Normalized()
	norm := make([]any, len(entries))
	for i, e := range entries {
		norm[i] = map[string]any{
			"kind": string(e.Kind),
			"tier": string(e.Tier),
		}
	}

	data, err := MarshalCanonical(map[string]any{
		"recipe_id": d.RecipeID,
		"legacy": map[string]any{
			"contains":           lr.Contains,
			"may_contain":        lr.MayContain,
			"cross_contact_risk": lr.CrossContactRisk,
			"environment":        lr.Environment,
		},
		"normalized": norm,
	})
	require.NoError(t, err)
	return append(data, '\n')
}

func TestSerialize_Golden(t *testing.T) {
	g := goldie.New(t)

	d := New("r-bread",
		allergen.NewSet(allergen.Gluten, allergen.Lupin),
		allergen.NewSet(allergen.Sesame),
		allergen.NewSet(allergen.Peanut),
		[]string{"shared fryer"},
	)
	g.Assert(t, "bread_declaration", serializedSnapshot(t, d))

	empty := New("r-empty", allergen.NewSet(), allergen.NewSet(), allergen.NewSet(), nil)
	g.Assert(t, "empty_declaration", serializedSnapshot(t, empty))
}

func TestSerializersNeverDrift(t *testing.T) {
	// Every kind in the legacy shape appears in the normalized shape at the
	// same tier, and vice versa - both derive from one canonical struct.
	d := New("r-1",
		allergen.NewSet(allergen.Milk, allergen.Egg),
		allergen.NewSet(allergen.TreeNut),
		allergen.NewSet(allergen.Sesame),
		[]string{"note"},
	)

	lr := d.Legacy()
	byTier := map[allergen.Tier][]string{}
	for _, e := range d.Normalized() {
		byTier[e.Tier] = append(byTier[e.Tier], string(e.Kind))
	}

	assert.Equal(t, lr.Contains, byTier[allergen.TierContains])
	assert.Equal(t, lr.MayContain, byTier[allergen.TierMayContain])
	assert.Equal(t, lr.Environment, byTier[allergen.TierEnvironment])
}
