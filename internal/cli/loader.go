package cli

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/engine"
	"github.com/mirepoix/declared/internal/graph"
)

// Snapshot is one loaded offline dataset: the vocabulary, the master
// catalog slice and the recipes with their lines and override records.
// Recipes keep file order; recompute processes them in that order so a
// later recipe can reference an earlier one as a sub-recipe.
type Snapshot struct {
	Vocab   allergen.Vocabulary
	Masters graph.MasterMap
	Recipes []RecipeDoc
}

// RecipeDoc is one recipe from a snapshot file, with its override record
// already converted to the engine's type.
type RecipeDoc struct {
	ID        string
	Name      string
	Lines     []graph.IngredientLine
	Overrides engine.Overrides
}

// snapshotFile is the YAML document shape.
type snapshotFile struct {
	Vocabulary *struct {
		Custom []allergen.CustomSlot `yaml:"custom"`
	} `yaml:"vocabulary"`
	Masters []masterDoc `yaml:"masters"`
	Recipes []recipeDoc `yaml:"recipes"`
}

type masterDoc struct {
	ID         string              `yaml:"id"`
	Name       string              `yaml:"name"`
	Contains   []string            `yaml:"contains"`
	MayContain []string            `yaml:"may_contain"`
	Custom     []graph.CustomFlags `yaml:"custom"`
}

type recipeDoc struct {
	ID        string                 `yaml:"id"`
	Name      string                 `yaml:"name"`
	Lines     []graph.IngredientLine `yaml:"lines"`
	Overrides *overrideDoc           `yaml:"overrides"`
}

type overrideDoc struct {
	ManualContains    []string          `yaml:"manual_contains"`
	ManualMayContain  []string          `yaml:"manual_may_contain"`
	Promoted          []string          `yaml:"promoted"`
	Environment       []string          `yaml:"environment"`
	CrossContactNotes []string          `yaml:"cross_contact_notes"`
	KindNotes         map[string]string `yaml:"kind_notes"`
}

// LoadSnapshot reads and converts a YAML snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot converts YAML snapshot data.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}

	snap := &Snapshot{
		Vocab:   allergen.Default(),
		Masters: graph.MasterMap{},
	}

	if file.Vocabulary != nil {
		vocab, err := allergen.NewVocabulary(file.Vocabulary.Custom)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot: vocabulary: %w", err)
		}
		snap.Vocab = vocab
	}

	for _, m := range file.Masters {
		if m.ID == "" {
			return nil, fmt.Errorf("parse snapshot: master with empty id")
		}
		if len(m.Custom) > allergen.MaxCustomSlots {
			return nil, fmt.Errorf("parse snapshot: master %s: %d custom slots exceeds %d",
				m.ID, len(m.Custom), allergen.MaxCustomSlots)
		}
		rec := graph.MasterRecord{
			ID:         m.ID,
			Name:       m.Name,
			Contains:   allergen.FromStrings(m.Contains),
			MayContain: allergen.FromStrings(m.MayContain),
		}
		copy(rec.Custom[:], m.Custom)
		snap.Masters[m.ID] = rec
	}

	seen := make(map[string]bool, len(file.Recipes))
	for _, r := range file.Recipes {
		if r.ID == "" {
			return nil, fmt.Errorf("parse snapshot: recipe with empty id")
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("parse snapshot: duplicate recipe %s", r.ID)
		}
		seen[r.ID] = true

		doc := RecipeDoc{
			ID:        r.ID,
			Name:      r.Name,
			Overrides: engine.EmptyOverrides(),
		}
		for i, line := range r.Lines {
			if line.ID == "" {
				return nil, fmt.Errorf("parse snapshot: recipe %s: line %d has no id", r.ID, i+1)
			}
			if !graph.ValidLineType(line.Type) {
				return nil, fmt.Errorf("parse snapshot: recipe %s: line %s: unknown type %q", r.ID, line.ID, line.Type)
			}
			line.RecipeID = r.ID
			if line.Position == 0 {
				line.Position = i + 1
			}
			doc.Lines = append(doc.Lines, line)
		}
		if r.Overrides != nil {
			doc.Overrides = convertOverrides(r.Overrides)
		}
		snap.Recipes = append(snap.Recipes, doc)
	}

	return snap, nil
}

func convertOverrides(doc *overrideDoc) engine.Overrides {
	ov := engine.EmptyOverrides()
	ov.ManualContains = allergen.FromStrings(doc.ManualContains)
	ov.ManualMayContain = allergen.FromStrings(doc.ManualMayContain)
	ov.Promoted = allergen.FromStrings(doc.Promoted)
	ov.Environment = allergen.FromStrings(doc.Environment)
	ov.CrossContactNotes = doc.CrossContactNotes
	if len(doc.KindNotes) > 0 {
		ov.KindNotes = make(map[allergen.Kind]string, len(doc.KindNotes))
		for k, note := range doc.KindNotes {
			ov.KindNotes[allergen.Kind(k)] = note
		}
	}
	return ov
}

// UnrecognizedKinds reports every kind referenced by the snapshot that the
// vocabulary does not recognize, keyed by where it was found. Used by
// validate; recompute tolerates them (they simply never match detection).
func (s *Snapshot) UnrecognizedKinds() map[string][]string {
	found := map[string][]string{}

	collect := func(where string, kinds allergen.Set) {
		for _, k := range kinds.Sorted() {
			if !s.Vocab.Recognizes(k) {
				found[where] = append(found[where], string(k))
			}
		}
	}

	for _, id := range sortedMasterIDs(s.Masters) {
		m := s.Masters[id]
		collect("master "+id+" contains", m.Contains)
		collect("master "+id+" may_contain", m.MayContain)
	}
	for _, r := range s.Recipes {
		collect("recipe "+r.ID+" manual_contains", r.Overrides.ManualContains)
		collect("recipe "+r.ID+" manual_may_contain", r.Overrides.ManualMayContain)
		collect("recipe "+r.ID+" promoted", r.Overrides.Promoted)
		collect("recipe "+r.ID+" environment", r.Overrides.Environment)
	}
	return found
}

// kindList converts kinds to plain strings for output payloads.
// Always non-nil so JSON output shows [] rather than null.
func kindList(kinds []allergen.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, string(k))
	}
	return out
}

func sortedMasterIDs(m graph.MasterMap) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
