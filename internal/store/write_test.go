package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRecipe(t *testing.T, s *Store, id string) {
	t.Helper()
	if err := s.UpsertRecipe(context.Background(), id, "recipe "+id); err != nil {
		t.Fatalf("UpsertRecipe() failed: %v", err)
	}
}

func testDeclaration(recipeID string) decl.Declaration {
	return decl.New(recipeID,
		allergen.NewSet(allergen.Gluten, allergen.Milk),
		allergen.NewSet(allergen.Sesame),
		allergen.NewSet(allergen.Peanut),
		[]string{"shared fryer"},
	)
}

func TestWriteDeclaration_BothShapes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	d := testDeclaration("r1")
	fp := d.MustFingerprint()
	if err := s.WriteDeclaration(ctx, d, fp, ""); err != nil {
		t.Fatalf("WriteDeclaration() failed: %v", err)
	}

	// Aggregate row
	var containsJSON, mayContainJSON, riskJSON, environmentJSON, fingerprint string
	err := s.db.QueryRow(`
		SELECT contains, may_contain, cross_contact_risk, environment, fingerprint
		FROM declarations WHERE recipe_id = 'r1'
	`).Scan(&containsJSON, &mayContainJSON, &riskJSON, &environmentJSON, &fingerprint)
	if err != nil {
		t.Fatalf("query declarations failed: %v", err)
	}
	if containsJSON != `["gluten","milk"]` {
		t.Errorf("contains = %q", containsJSON)
	}
	if mayContainJSON != `["sesame"]` {
		t.Errorf("may_contain = %q", mayContainJSON)
	}
	if riskJSON != `["shared fryer"]` {
		t.Errorf("cross_contact_risk = %q", riskJSON)
	}
	if environmentJSON != `["peanut"]` {
		t.Errorf("environment = %q", environmentJSON)
	}
	if fingerprint != fp {
		t.Errorf("fingerprint = %q, expected %q", fingerprint, fp)
	}

	// Normalized rows
	flags, err := s.ReadFlags(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadFlags() failed: %v", err)
	}
	expected := []decl.NormalizedEntry{
		{Kind: allergen.Gluten, Tier: allergen.TierContains},
		{Kind: allergen.Milk, Tier: allergen.TierContains},
		{Kind: allergen.Sesame, Tier: allergen.TierMayContain},
		{Kind: allergen.Peanut, Tier: allergen.TierEnvironment},
	}
	if len(flags) != len(expected) {
		t.Fatalf("got %d flags, expected %d: %v", len(flags), len(expected), flags)
	}
	for i, e := range expected {
		if flags[i] != e {
			t.Errorf("flag[%d] = %v, expected %v", i, flags[i], e)
		}
	}
}

func TestWriteDeclaration_ConflictOnStaleBase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	d1 := testDeclaration("r1")
	fp1 := d1.MustFingerprint()
	if err := s.WriteDeclaration(ctx, d1, fp1, ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	// A second writer that read before the first write landed must lose.
	d2 := decl.New("r1", allergen.NewSet(allergen.Egg), nil, nil, nil)
	err := s.WriteDeclaration(ctx, d2, d2.MustFingerprint(), "")
	if !errors.Is(err, engine.ErrWriteConflict) {
		t.Fatalf("expected ErrWriteConflict, got %v", err)
	}

	// Stored declaration is untouched.
	stored, err := s.ReadDeclaration(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadDeclaration() failed: %v", err)
	}
	if stored.Fingerprint != fp1 {
		t.Errorf("fingerprint = %q, expected %q", stored.Fingerprint, fp1)
	}

	// Retrying with the fresh base succeeds.
	if err := s.WriteDeclaration(ctx, d2, d2.MustFingerprint(), fp1); err != nil {
		t.Fatalf("retry with fresh base failed: %v", err)
	}
}

func TestWriteDeclaration_ReplacesStaleFlags(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	d1 := testDeclaration("r1")
	fp1 := d1.MustFingerprint()
	if err := s.WriteDeclaration(ctx, d1, fp1, ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	d2 := decl.New("r1", allergen.NewSet(allergen.Egg), nil, nil, nil)
	if err := s.WriteDeclaration(ctx, d2, d2.MustFingerprint(), fp1); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	flags, err := s.ReadFlags(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadFlags() failed: %v", err)
	}
	if len(flags) != 1 || flags[0].Kind != allergen.Egg || flags[0].Tier != allergen.TierContains {
		t.Errorf("stale flags not replaced: %v", flags)
	}
}

func TestWriteDeclaration_PreservesConfirmedAt(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	d1 := testDeclaration("r1")
	fp1 := d1.MustFingerprint()
	if err := s.WriteDeclaration(ctx, d1, fp1, ""); err != nil {
		t.Fatalf("first write failed: %v", err)
	}

	confirmed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	if err := s.Confirm(ctx, "r1", confirmed); err != nil {
		t.Fatalf("Confirm() failed: %v", err)
	}

	// A recompute write over a confirmed declaration must not clear the
	// confirmation timestamp.
	d2 := decl.New("r1", allergen.NewSet(allergen.Egg), nil, nil, nil)
	if err := s.WriteDeclaration(ctx, d2, d2.MustFingerprint(), fp1); err != nil {
		t.Fatalf("second write failed: %v", err)
	}

	stored, err := s.ReadDeclaration(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadDeclaration() failed: %v", err)
	}
	if stored.ConfirmedAt == nil || !stored.ConfirmedAt.Equal(confirmed) {
		t.Errorf("confirmed_at = %v, expected %v", stored.ConfirmedAt, confirmed)
	}
}

func TestConfirm_NoDeclaration(t *testing.T) {
	s := openTestStore(t)
	seedRecipe(t, s, "r1")

	err := s.Confirm(context.Background(), "r1", time.Now())
	if err == nil {
		t.Fatal("expected error confirming a recipe with no declaration")
	}
}

func TestReplacePromotions_TouchesOnlyPromoted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	ov := engine.EmptyOverrides()
	ov.ManualContains = allergen.NewSet(allergen.Celery)
	ov.Promoted = allergen.NewSet(allergen.Sesame, allergen.Soy)
	ov.CrossContactNotes = []string{"note"}
	if err := s.SaveOverrides(ctx, "r1", ov); err != nil {
		t.Fatalf("SaveOverrides() failed: %v", err)
	}

	if err := s.ReplacePromotions(ctx, "r1", []allergen.Kind{allergen.Sesame}); err != nil {
		t.Fatalf("ReplacePromotions() failed: %v", err)
	}

	got := s.readOverrides(ctx, "r1")
	if !got.Promoted.Equal(allergen.NewSet(allergen.Sesame)) {
		t.Errorf("promoted = %v", got.Promoted.Strings())
	}
	if !got.ManualContains.Equal(allergen.NewSet(allergen.Celery)) {
		t.Errorf("manual_contains clobbered: %v", got.ManualContains.Strings())
	}
	if len(got.CrossContactNotes) != 1 || got.CrossContactNotes[0] != "note" {
		t.Errorf("notes clobbered: %v", got.CrossContactNotes)
	}
}

func TestReplacePromotions_CreatesRowWhenMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedRecipe(t, s, "r1")

	if err := s.ReplacePromotions(ctx, "r1", []allergen.Kind{allergen.Soy}); err != nil {
		t.Fatalf("ReplacePromotions() failed: %v", err)
	}

	got := s.readOverrides(ctx, "r1")
	if !got.Promoted.Equal(allergen.NewSet(allergen.Soy)) {
		t.Errorf("promoted = %v", got.Promoted.Strings())
	}
}
