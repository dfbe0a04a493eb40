package decl

import "github.com/mirepoix/declared/internal/allergen"

// LegacyRecord is the aggregate declaration shape pre-dating normalized
// per-kind storage. Downstream readers still transitioning consume this;
// the normalized shape is the read-side source of truth going forward.
type LegacyRecord struct {
	Contains         []string `json:"contains"`
	MayContain       []string `json:"may_contain"`
	CrossContactRisk []string `json:"cross_contact_risk"`
	Environment      []string `json:"environment,omitempty"`
}

// Legacy serializes the declaration into the legacy aggregate record.
func (d Declaration) Legacy() LegacyRecord {
	return LegacyRecord{
		Contains:         kindStrings(d.Contains),
		MayContain:       kindStrings(d.MayContain),
		CrossContactRisk: append([]string{}, d.CrossContactNotes...),
		Environment:      kindStrings(d.Environment),
	}
}

// NormalizedEntry is one (kind, tier) truth in the normalized representation.
// Absence of an entry means false; only set pairs are materialized.
type NormalizedEntry struct {
	Kind allergen.Kind `json:"kind"`
	Tier allergen.Tier `json:"tier"`
}

// Normalized serializes the declaration into per-kind/per-tier entries,
// ordered contains first, then may-contain, then environment, each sorted by
// kind. Both serializers read the same canonical struct, so the two stored
// shapes can never drift apart.
func (d Declaration) Normalized() []NormalizedEntry {
	out := make([]NormalizedEntry, 0, len(d.Contains)+len(d.MayContain)+len(d.Environment))
	for _, k := range d.Contains {
		out = append(out, NormalizedEntry{Kind: k, Tier: allergen.TierContains})
	}
	for _, k := range d.MayContain {
		out = append(out, NormalizedEntry{Kind: k, Tier: allergen.TierMayContain})
	}
	for _, k := range d.Environment {
		out = append(out, NormalizedEntry{Kind: k, Tier: allergen.TierEnvironment})
	}
	return out
}
