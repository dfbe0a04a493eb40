package allergen

import "slices"

// Set is an unordered set of allergen kinds.
//
// All derived-state computation in the engine runs over Sets; anything that
// leaves the engine (fingerprints, persistence, output) goes through Sorted()
// so downstream representations are deterministic regardless of fold order.
type Set map[Kind]struct{}

// NewSet builds a set from the given kinds.
func NewSet(kinds ...Kind) Set {
	s := make(Set, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// Has reports whether k is in the set.
func (s Set) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

// Add inserts k into the set.
func (s Set) Add(k Kind) {
	s[k] = struct{}{}
}

// Len returns the number of kinds in the set.
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Union returns a new set containing every kind in s or other.
func (s Set) Union(other Set) Set {
	out := s.Clone()
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Intersect returns a new set containing kinds present in both s and other.
func (s Set) Intersect(other Set) Set {
	out := make(Set)
	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Diff returns a new set containing kinds in s that are not in other.
func (s Set) Diff(other Set) Set {
	out := make(Set)
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Equal reports whether s and other contain exactly the same kinds.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if !other.Has(k) {
			return false
		}
	}
	return true
}

// Sorted returns the kinds in lexicographic order.
// This is the only sanctioned way to serialize a Set.
func (s Set) Sorted() []Kind {
	out := make([]Kind, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Strings returns the sorted kinds as plain strings, for storage and output.
func (s Set) Strings() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for i, k := range sorted {
		out[i] = string(k)
	}
	return out
}

// FromStrings builds a set from raw string identifiers.
func FromStrings(names []string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[Kind(n)] = struct{}{}
	}
	return s
}
