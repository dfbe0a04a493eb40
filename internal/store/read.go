package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/decl"
	"github.com/mirepoix/declared/internal/engine"
	"github.com/mirepoix/declared/internal/graph"
)

// ErrNotFound is returned by reads for a recipe the store has no row for.
var ErrNotFound = errors.New("not found")

// Recipe is one stored recipe header.
type Recipe struct {
	ID   string
	Name string
}

// StoredDeclaration is a materialized declaration together with its
// persistence metadata.
type StoredDeclaration struct {
	Declaration decl.Declaration
	Fingerprint string
	ConfirmedAt *time.Time
}

// Snapshot assembles the full recompute input for one recipe: its ingredient
// lines, the slice of the master catalog and sub-recipe declarations the
// lines reference, the override record and the current declaration
// fingerprint. Implements engine.SnapshotSource.
//
// Masters and sub-declarations are prefetched into in-memory maps so the
// engine computes over a stable snapshot rather than issuing per-line
// queries mid-pass.
func (s *Store) Snapshot(ctx context.Context, recipeID string) (engine.Snapshot, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipes WHERE id = ?
	`, recipeID).Scan(&exists)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, err)
	}
	if exists == 0 {
		return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, ErrNotFound)
	}

	lines, err := s.readLines(ctx, recipeID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, err)
	}

	masters := graph.MasterMap{}
	subs := graph.SubDeclMap{}
	for _, line := range lines {
		ref := graph.Resolve(line)
		switch ref.Kind {
		case graph.RefRaw:
			if _, done := masters[ref.Target]; done {
				continue
			}
			m, ok, err := s.readMaster(ctx, ref.Target)
			if err != nil {
				return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, err)
			}
			if ok {
				masters[ref.Target] = m
			}
		case graph.RefPrepared:
			if _, done := subs[ref.Target]; done {
				continue
			}
			d, ok, err := s.readSubDeclaration(ctx, ref.Target)
			if err != nil {
				return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, err)
			}
			if ok {
				subs[ref.Target] = d
			}
		}
	}

	overrides := s.readOverrides(ctx, recipeID)

	fingerprint, err := s.readFingerprint(ctx, recipeID)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("snapshot %s: %w", recipeID, err)
	}

	return engine.Snapshot{
		RecipeID:           recipeID,
		Lines:              lines,
		Masters:            masters,
		Subs:               subs,
		Vocab:              s.vocab,
		Overrides:          overrides,
		CurrentFingerprint: fingerprint,
	}, nil
}

// ReadDeclaration returns the stored declaration for a recipe.
// Returns ErrNotFound if no declaration has been materialized.
func (s *Store) ReadDeclaration(ctx context.Context, recipeID string) (StoredDeclaration, error) {
	var (
		containsJSON    string
		mayContainJSON  string
		riskJSON        string
		environmentJSON string
		fingerprint     string
		confirmedAt     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT contains, may_contain, cross_contact_risk, environment, fingerprint, confirmed_at
		FROM declarations
		WHERE recipe_id = ?
	`, recipeID).Scan(&containsJSON, &mayContainJSON, &riskJSON, &environmentJSON, &fingerprint, &confirmedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, ErrNotFound)
	}
	if err != nil {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, err)
	}

	contains, err := unmarshalKinds(containsJSON)
	if err != nil {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, err)
	}
	mayContain, err := unmarshalKinds(mayContainJSON)
	if err != nil {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, err)
	}
	environment, err := unmarshalKinds(environmentJSON)
	if err != nil {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, err)
	}
	notes, err := unmarshalStrings(riskJSON)
	if err != nil {
		return StoredDeclaration{}, fmt.Errorf("read declaration %s: %w", recipeID, err)
	}

	out := StoredDeclaration{
		Declaration: decl.New(recipeID, contains, mayContain, environment, notes),
		Fingerprint: fingerprint,
	}
	if confirmedAt.Valid {
		t, err := time.Parse(time.RFC3339, confirmedAt.String)
		if err != nil {
			return StoredDeclaration{}, fmt.Errorf("read declaration %s: parse confirmed_at: %w", recipeID, err)
		}
		out.ConfirmedAt = &t
	}
	return out, nil
}

// ReadFlags returns the normalized declaration rows for a recipe, ordered
// by tier (contains, may_contain, environment) then kind.
func (s *Store) ReadFlags(ctx context.Context, recipeID string) ([]decl.NormalizedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, tier FROM declaration_flags
		WHERE recipe_id = ?
		ORDER BY CASE tier
			WHEN 'contains' THEN 0
			WHEN 'may_contain' THEN 1
			ELSE 2
		END, kind ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("read flags %s: %w", recipeID, err)
	}
	defer rows.Close()

	var entries []decl.NormalizedEntry
	for rows.Next() {
		var kind, tier string
		if err := rows.Scan(&kind, &tier); err != nil {
			return nil, fmt.Errorf("read flags %s: scan: %w", recipeID, err)
		}
		entries = append(entries, decl.NormalizedEntry{
			Kind: allergen.Kind(kind),
			Tier: allergen.Tier(tier),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read flags %s: iterate: %w", recipeID, err)
	}
	return entries, nil
}

// ListRecipes returns all stored recipes ordered by id.
func (s *Store) ListRecipes(ctx context.Context) ([]Recipe, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM recipes ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var r Recipe
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("list recipes: scan: %w", err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipes: iterate: %w", err)
	}
	return recipes, nil
}

// readLines returns a recipe's ingredient lines in position order, with id
// as the tiebreaker so ordering stays deterministic.
func (s *Store) readLines(ctx context.Context, recipeID string) ([]graph.IngredientLine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, line_type, master_id, sub_recipe_id, legacy_ref, position, quantity, unit
		FROM ingredient_lines
		WHERE recipe_id = ?
		ORDER BY position ASC, id ASC
	`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("query lines: %w", err)
	}
	defer rows.Close()

	var lines []graph.IngredientLine
	for rows.Next() {
		var (
			line        graph.IngredientLine
			lineType    string
			masterID    sql.NullString
			subRecipeID sql.NullString
			legacyRef   sql.NullString
			quantity    sql.NullFloat64
			unit        sql.NullString
		)
		if err := rows.Scan(&line.ID, &lineType, &masterID, &subRecipeID, &legacyRef, &line.Position, &quantity, &unit); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		line.RecipeID = recipeID
		line.Type = graph.LineType(lineType)
		line.MasterID = masterID.String
		line.SubRecipeID = subRecipeID.String
		line.LegacyRef = legacyRef.String
		line.Quantity = quantity.Float64
		line.Unit = unit.String
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}
	return lines, nil
}

// readMaster returns the allergen view of one master ingredient.
// Missing records are reported via ok=false; the extraction layer treats
// dangling references as unresolved lines, not as errors.
func (s *Store) readMaster(ctx context.Context, id string) (graph.MasterRecord, bool, error) {
	var (
		m              graph.MasterRecord
		containsJSON   string
		mayContainJSON string
		customJSON     string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, contains, may_contain, custom_flags
		FROM master_ingredients
		WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &containsJSON, &mayContainJSON, &customJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.MasterRecord{}, false, nil
	}
	if err != nil {
		return graph.MasterRecord{}, false, fmt.Errorf("read master %s: %w", id, err)
	}

	if m.Contains, err = unmarshalKinds(containsJSON); err != nil {
		return graph.MasterRecord{}, false, fmt.Errorf("read master %s: %w", id, err)
	}
	if m.MayContain, err = unmarshalKinds(mayContainJSON); err != nil {
		return graph.MasterRecord{}, false, fmt.Errorf("read master %s: %w", id, err)
	}
	if m.Custom, err = unmarshalCustomFlags(customJSON); err != nil {
		return graph.MasterRecord{}, false, fmt.Errorf("read master %s: %w", id, err)
	}
	return m, true, nil
}

// readSubDeclaration returns the reconciled declaration of another recipe
// for one-level-deep prepared-line lookup. A sub-recipe with no materialized
// declaration yet is reported via ok=false and surfaces downstream as an
// unresolved line.
func (s *Store) readSubDeclaration(ctx context.Context, recipeID string) (graph.SubRecipeDecl, bool, error) {
	var containsJSON, mayContainJSON string
	err := s.db.QueryRowContext(ctx, `
		SELECT contains, may_contain FROM declarations WHERE recipe_id = ?
	`, recipeID).Scan(&containsJSON, &mayContainJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return graph.SubRecipeDecl{}, false, nil
	}
	if err != nil {
		return graph.SubRecipeDecl{}, false, fmt.Errorf("read sub declaration %s: %w", recipeID, err)
	}

	contains, err := unmarshalKinds(containsJSON)
	if err != nil {
		return graph.SubRecipeDecl{}, false, fmt.Errorf("read sub declaration %s: %w", recipeID, err)
	}
	mayContain, err := unmarshalKinds(mayContainJSON)
	if err != nil {
		return graph.SubRecipeDecl{}, false, fmt.Errorf("read sub declaration %s: %w", recipeID, err)
	}
	return graph.SubRecipeDecl{Contains: contains, MayContain: mayContain}, true, nil
}

// readOverrides returns the operator override record for a recipe.
//
// A missing row and a malformed row both degrade to EmptyOverrides so a
// corrupt override record poisons only its own recipe's manual data, never
// the recompute. Malformed fields are logged and skipped individually; the
// rest of the record is kept.
func (s *Store) readOverrides(ctx context.Context, recipeID string) engine.Overrides {
	var (
		manualContainsJSON   string
		manualMayContainJSON string
		promotedJSON         string
		environmentJSON      string
		notesJSON            string
		kindNotesJSON        string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT manual_contains, manual_may_contain, promoted, environment, cross_contact_notes, kind_notes
		FROM overrides
		WHERE recipe_id = ?
	`, recipeID).Scan(&manualContainsJSON, &manualMayContainJSON, &promotedJSON, &environmentJSON, &notesJSON, &kindNotesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return engine.EmptyOverrides()
	}
	if err != nil {
		slog.Warn("override record unreadable, recomputing without manual data",
			"recipe_id", recipeID,
			"error", err)
		return engine.EmptyOverrides()
	}

	ov := engine.EmptyOverrides()
	ov.ManualContains = recoverKinds(recipeID, "manual_contains", manualContainsJSON)
	ov.ManualMayContain = recoverKinds(recipeID, "manual_may_contain", manualMayContainJSON)
	ov.Promoted = recoverKinds(recipeID, "promoted", promotedJSON)
	ov.Environment = recoverKinds(recipeID, "environment", environmentJSON)

	if notes, err := unmarshalStrings(notesJSON); err != nil {
		slog.Warn("override field malformed, treating as empty",
			"recipe_id", recipeID,
			"field", "cross_contact_notes",
			"error", err)
	} else {
		ov.CrossContactNotes = notes
	}

	if kindNotes, err := unmarshalKindNotes(kindNotesJSON); err != nil {
		slog.Warn("override field malformed, treating as empty",
			"recipe_id", recipeID,
			"field", "kind_notes",
			"error", err)
	} else {
		ov.KindNotes = kindNotes
	}

	return ov
}

// recoverKinds parses a stored kind list, degrading a malformed field to an
// empty set with a warning instead of failing the snapshot.
func recoverKinds(recipeID, field, data string) allergen.Set {
	set, err := unmarshalKinds(data)
	if err != nil {
		slog.Warn("override field malformed, treating as empty",
			"recipe_id", recipeID,
			"field", field,
			"error", err)
		return allergen.NewSet()
	}
	return set
}

// readFingerprint returns the stored declaration fingerprint, empty if no
// declaration has been materialized yet.
func (s *Store) readFingerprint(ctx context.Context, recipeID string) (string, error) {
	var fingerprint string
	err := s.db.QueryRowContext(ctx, `
		SELECT fingerprint FROM declarations WHERE recipe_id = ?
	`, recipeID).Scan(&fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read fingerprint: %w", err)
	}
	return fingerprint, nil
}
