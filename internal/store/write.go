package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/engine"
	"github.com/mirepoix/declared/internal/graph"
)

// WriteDeclaration persists a declaration in both stored shapes atomically:
// the legacy aggregate row in declarations and the normalized rows in
// declaration_flags, both serialized from the same canonical struct.
//
// baseFingerprint is the fingerprint the recompute read before starting
// (empty if no declaration existed). If the stored fingerprint no longer
// matches, a concurrent recompute won the race and engine.ErrWriteConflict
// is returned without touching the row - freshest inputs win.
//
// confirmed_at is deliberately absent from the upsert: confirmation is an
// operator workflow (see Confirm) and recomputation never clears it.
func (s *Store) WriteDeclaration(ctx context.Context, d decl.Declaration, fingerprint, baseFingerprint string) error {
	legacy := d.Legacy()

	containsJSON, err := marshalStrings(legacy.Contains)
	if err != nil {
		return fmt.Errorf("write declaration: %w", err)
	}
	mayContainJSON, err := marshalStrings(legacy.MayContain)
	if err != nil {
		return fmt.Errorf("write declaration: %w", err)
	}
	riskJSON, err := marshalStrings(legacy.CrossContactRisk)
	if err != nil {
		return fmt.Errorf("write declaration: %w", err)
	}
	environmentJSON, err := marshalStrings(legacy.Environment)
	if err != nil {
		return fmt.Errorf("write declaration: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write declaration: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	// Conflict guard: compare the stored fingerprint against what the
	// recompute started from.
	var stored string
	err = tx.QueryRowContext(ctx, `
		SELECT fingerprint FROM declarations WHERE recipe_id = ?
	`, d.RecipeID).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if baseFingerprint != "" {
			// Row was deleted out from under us.
			return engine.ErrWriteConflict
		}
	case err != nil:
		return fmt.Errorf("write declaration: read fingerprint: %w", err)
	default:
		if stored != baseFingerprint {
			return engine.ErrWriteConflict
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO declarations
		(recipe_id, contains, may_contain, cross_contact_risk, environment, fingerprint)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(recipe_id) DO UPDATE SET
			contains = excluded.contains,
			may_contain = excluded.may_contain,
			cross_contact_risk = excluded.cross_contact_risk,
			environment = excluded.environment,
			fingerprint = excluded.fingerprint
	`,
		d.RecipeID,
		containsJSON,
		mayContainJSON,
		riskJSON,
		environmentJSON,
		fingerprint,
	)
	if err != nil {
		return fmt.Errorf("write declaration: upsert aggregate: %w", err)
	}

	// Normalized shape is replaced wholesale; absence of a row means false.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM declaration_flags WHERE recipe_id = ?
	`, d.RecipeID); err != nil {
		return fmt.Errorf("write declaration: clear flags: %w", err)
	}

	for _, entry := range d.Normalized() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO declaration_flags (recipe_id, kind, tier)
			VALUES (?, ?, ?)
		`, d.RecipeID, string(entry.Kind), string(entry.Tier)); err != nil {
			return fmt.Errorf("write declaration: insert flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write declaration: commit: %w", err)
	}

	return nil
}

// ReplacePromotions replaces the stored promotion list for a recipe,
// touching nothing else in the override record. This is the engine's only
// write path into overrides, used for orphan-promotion cleanup.
func (s *Store) ReplacePromotions(ctx context.Context, recipeID string, promoted []allergen.Kind) error {
	promotedJSON, err := marshalKinds(allergen.NewSet(promoted...))
	if err != nil {
		return fmt.Errorf("replace promotions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO overrides (recipe_id, promoted)
		VALUES (?, ?)
		ON CONFLICT(recipe_id) DO UPDATE SET promoted = excluded.promoted
	`, recipeID, promotedJSON)
	if err != nil {
		return fmt.Errorf("replace promotions: %w", err)
	}

	return nil
}

// UpsertRecipe inserts or renames a recipe.
func (s *Store) UpsertRecipe(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recipes (id, name)
		VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`, id, name)
	if err != nil {
		return fmt.Errorf("upsert recipe: %w", err)
	}
	return nil
}

// UpsertMaster inserts or replaces the allergen view of a master ingredient.
func (s *Store) UpsertMaster(ctx context.Context, m graph.MasterRecord) error {
	containsJSON, err := marshalKinds(m.Contains)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}
	mayContainJSON, err := marshalKinds(m.MayContain)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}
	customJSON, err := marshalCustomFlags(m.Custom)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO master_ingredients (id, name, contains, may_contain, custom_flags)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			contains = excluded.contains,
			may_contain = excluded.may_contain,
			custom_flags = excluded.custom_flags
	`, m.ID, m.Name, containsJSON, mayContainJSON, customJSON)
	if err != nil {
		return fmt.Errorf("upsert master: %w", err)
	}

	return nil
}

// ReplaceLines replaces a recipe's ingredient-line list wholesale.
// Line edits arrive as a full list from the recipe editor, so a replace
// keeps positions and removals consistent in one transaction.
func (s *Store) ReplaceLines(ctx context.Context, recipeID string, lines []graph.IngredientLine) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace lines: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM ingredient_lines WHERE recipe_id = ?
	`, recipeID); err != nil {
		return fmt.Errorf("replace lines: clear: %w", err)
	}

	for _, line := range lines {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ingredient_lines
			(id, recipe_id, line_type, master_id, sub_recipe_id, legacy_ref, position, quantity, unit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			line.ID,
			recipeID,
			string(line.Type),
			nullable(line.MasterID),
			nullable(line.SubRecipeID),
			nullable(line.LegacyRef),
			line.Position,
			line.Quantity,
			nullable(line.Unit),
		)
		if err != nil {
			return fmt.Errorf("replace lines: insert %s: %w", line.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace lines: commit: %w", err)
	}

	return nil
}

// SaveOverrides replaces a recipe's operator override record.
// This is the operator editing surface, not an engine path.
func (s *Store) SaveOverrides(ctx context.Context, recipeID string, ov engine.Overrides) error {
	manualContainsJSON, err := marshalKinds(ov.ManualContains)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	manualMayContainJSON, err := marshalKinds(ov.ManualMayContain)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	promotedJSON, err := marshalKinds(ov.Promoted)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	environmentJSON, err := marshalKinds(ov.Environment)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	notesJSON, err := marshalStrings(ov.CrossContactNotes)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}
	kindNotesJSON, err := marshalKindNotes(ov.KindNotes)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO overrides
		(recipe_id, manual_contains, manual_may_contain, promoted, environment, cross_contact_notes, kind_notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recipe_id) DO UPDATE SET
			manual_contains = excluded.manual_contains,
			manual_may_contain = excluded.manual_may_contain,
			promoted = excluded.promoted,
			environment = excluded.environment,
			cross_contact_notes = excluded.cross_contact_notes,
			kind_notes = excluded.kind_notes
	`,
		recipeID,
		manualContainsJSON,
		manualMayContainJSON,
		promotedJSON,
		environmentJSON,
		notesJSON,
		kindNotesJSON,
	)
	if err != nil {
		return fmt.Errorf("save overrides: %w", err)
	}

	return nil
}

// Confirm records operator sign-off on the current declaration.
// Fails if no declaration has been materialized for the recipe yet.
func (s *Store) Confirm(ctx context.Context, recipeID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE declarations SET confirmed_at = ? WHERE recipe_id = ?
	`, at.UTC().Format(time.RFC3339), recipeID)
	if err != nil {
		return fmt.Errorf("confirm declaration: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm declaration: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("confirm declaration: no declaration for recipe %q", recipeID)
	}
	return nil
}

// nullable converts an empty string to NULL for optional columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
