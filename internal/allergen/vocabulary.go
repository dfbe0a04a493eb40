package allergen

import "fmt"

// MaxCustomSlots bounds the number of organization-defined custom kinds.
const MaxCustomSlots = 3

// CustomSlot is one organization-defined allergen slot.
//
// A slot is immutable once declared active: it may be deactivated, but its
// name must not change without a data migration, because persisted manual
// entries and normalized declaration rows key on the name.
type CustomSlot struct {
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Vocabulary is the closed set of kinds recognized by one organization:
// the standard kinds plus the configured custom slots.
type Vocabulary struct {
	Custom []CustomSlot `json:"custom,omitempty"`
}

// Default returns a vocabulary with no custom slots configured.
func Default() Vocabulary {
	return Vocabulary{}
}

// NewVocabulary builds a vocabulary from custom slots, enforcing the slot
// bound and name rules. Use this instead of constructing Vocabulary directly
// when the slots come from external configuration.
func NewVocabulary(custom []CustomSlot) (Vocabulary, error) {
	if len(custom) > MaxCustomSlots {
		return Vocabulary{}, fmt.Errorf("vocabulary allows at most %d custom slots, got %d", MaxCustomSlots, len(custom))
	}
	seen := make(map[string]bool, len(custom))
	for i, slot := range custom {
		if slot.Name == "" {
			return Vocabulary{}, fmt.Errorf("custom slot %d: name must not be empty", i+1)
		}
		if IsStandard(Kind(slot.Name)) {
			return Vocabulary{}, fmt.Errorf("custom slot %d: %q collides with a standard kind", i+1, slot.Name)
		}
		if seen[slot.Name] {
			return Vocabulary{}, fmt.Errorf("custom slot %d: duplicate name %q", i+1, slot.Name)
		}
		seen[slot.Name] = true
	}
	return Vocabulary{Custom: custom}, nil
}

// ActiveCustomKinds returns the kinds contributed by active custom slots,
// in slot order. Inactive slots contribute nothing.
func (v Vocabulary) ActiveCustomKinds() []Kind {
	var out []Kind
	for _, slot := range v.Custom {
		if slot.Active {
			out = append(out, Kind(slot.Name))
		}
	}
	return out
}

// CustomKindAt returns the kind for a slot index (0-based) if that slot is
// configured and active.
func (v Vocabulary) CustomKindAt(i int) (Kind, bool) {
	if i < 0 || i >= len(v.Custom) {
		return "", false
	}
	slot := v.Custom[i]
	if !slot.Active {
		return "", false
	}
	return Kind(slot.Name), true
}

// Recognizes reports whether k is a standard kind or an active custom kind.
func (v Vocabulary) Recognizes(k Kind) bool {
	if IsStandard(k) {
		return true
	}
	for _, slot := range v.Custom {
		if slot.Active && Kind(slot.Name) == k {
			return true
		}
	}
	return false
}

// Kinds returns every recognized kind: the standard kinds in declaration
// order followed by active custom kinds in slot order.
func (v Vocabulary) Kinds() []Kind {
	out := make([]Kind, 0, len(StandardKinds)+len(v.Custom))
	out = append(out, StandardKinds...)
	out = append(out, v.ActiveCustomKinds()...)
	return out
}
