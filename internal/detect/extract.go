// Package detect turns an ingredient graph snapshot into the auto-detected
// allergen sets. It is pure: all catalog state is injected, nothing here
// performs I/O.
package detect

import (
	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/graph"
)

// Extract returns the contains/may-contain sets contributed by one
// master-ingredient record.
//
// Contains dominates: a kind whose Contains flag is set is excluded from the
// ingredient's may-contain set even when both underlying flags are set.
// Custom allergen slots are mapped to kinds through the organization
// vocabulary; inactive or unconfigured slots contribute nothing.
func Extract(rec graph.MasterRecord, vocab allergen.Vocabulary) (contains, mayContain allergen.Set) {
	contains = make(allergen.Set)
	mayContain = make(allergen.Set)

	for k := range rec.Contains {
		contains.Add(k)
	}
	for k := range rec.MayContain {
		if !contains.Has(k) {
			mayContain.Add(k)
		}
	}

	for i, flags := range rec.Custom {
		kind, ok := vocab.CustomKindAt(i)
		if !ok {
			continue
		}
		if flags.Contains {
			contains.Add(kind)
			continue
		}
		if flags.MayContain {
			mayContain.Add(kind)
		}
	}

	return contains, mayContain
}
