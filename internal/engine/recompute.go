package engine

import (
	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/detect"
	"github.com/mirepoix/declared/internal/graph"
)

// Inputs is the complete snapshot a recompute pass runs on.
//
// Everything is injected and read-only: the pass is a pure function of
// this struct, with no ambient state. Catalogs are snapshot views; the pass
// never reaches into live stores.
type Inputs struct {
	RecipeID string
	Lines    []graph.IngredientLine
	Masters  graph.MasterCatalog
	Subs     graph.SubRecipeDeclarations
	Vocab    allergen.Vocabulary

	// Overrides is the manual override record. A missing or malformed stored
	// record must be recovered to EmptyOverrides by the snapshot source
	// before it gets here.
	Overrides Overrides

	// CurrentFingerprint is the fingerprint of the declaration currently
	// materialized on the recipe; empty if none exists yet.
	CurrentFingerprint string
}

// OverridePatch is an orphan-cleanup instruction: replace the stored
// promotion list with Promoted, leaving every other override field untouched.
type OverridePatch struct {
	RecipeID string
	Promoted []allergen.Kind
}

// Outcome is the result of one recompute pass.
type Outcome struct {
	Declaration decl.Declaration

	// Fingerprint is the declaration's fingerprint; Changed reports whether
	// it differs from the currently materialized one. Unchanged outcomes
	// must not reach the writer (idempotence).
	Fingerprint string
	Changed     bool

	// GraphFingerprint identifies the ingredient-line identity list used for
	// this pass. The engine caches it to skip recomputes for graph
	// invalidations that did not actually change the graph.
	GraphFingerprint string

	// OverridePatch is non-nil when orphan-promotion cleanup is required.
	OverridePatch *OverridePatch

	// Unresolved lists ingredient lines that contributed nothing. Operator
	// warnings, not failures.
	Unresolved []detect.Unresolved
}

// Recompute runs one full reconciliation pass over a snapshot.
//
// Pure and side-effect free: resolution, extraction, aggregation,
// reconciliation, invariant checking and fingerprinting all happen here;
// persistence is the caller's job, driven by the Outcome.
func Recompute(in Inputs) (Outcome, error) {
	auto, unresolved := detect.Aggregate(in.Lines, in.Masters, in.Subs, in.Vocab)

	finalContains, finalMayContain := Reconcile(auto, in.Overrides)

	if err := CheckInvariants(in.RecipeID, finalContains, finalMayContain); err != nil {
		return Outcome{}, err
	}

	d := decl.New(in.RecipeID, finalContains, finalMayContain,
		in.Overrides.Environment, in.Overrides.CrossContactNotes)

	fp, err := d.Fingerprint()
	if err != nil {
		return Outcome{}, err
	}

	graphFP, err := decl.GraphFingerprint(in.RecipeID, lineIdentities(in.Lines))
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Declaration:      d,
		Fingerprint:      fp,
		Changed:          fp != in.CurrentFingerprint,
		GraphFingerprint: graphFP,
		Unresolved:       unresolved,
	}

	valid := ValidPromotions(in.Overrides.Promoted, auto.MayContain)
	if !valid.Equal(in.Overrides.Promoted) {
		out.OverridePatch = &OverridePatch{
			RecipeID: in.RecipeID,
			Promoted: valid.Sorted(),
		}
	}

	return out, nil
}

func lineIdentities(lines []graph.IngredientLine) []decl.LineIdentity {
	out := make([]decl.LineIdentity, len(lines))
	for i, line := range lines {
		ref := graph.Resolve(line)
		out[i] = decl.LineIdentity{
			LineID:  line.ID,
			RefKind: ref.Kind.String(),
			Target:  ref.Target,
		}
	}
	return out
}
