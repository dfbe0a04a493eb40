package graph

// RefKind classifies the outcome of resolving one ingredient line.
type RefKind int

const (
	// RefUnresolved means the line carries no usable reference.
	// Unresolved lines contribute nothing to auto-detection; legacy and
	// incomplete data is expected, so this is never an error.
	RefUnresolved RefKind = iota
	// RefRaw is a reference into the master-ingredient catalog.
	RefRaw
	// RefPrepared is a reference to another recipe's declaration.
	RefPrepared
)

// String returns the reference kind as a stable identifier.
func (k RefKind) String() string {
	switch k {
	case RefRaw:
		return "raw"
	case RefPrepared:
		return "prepared"
	default:
		return "unresolved"
	}
}

// Ref is a resolved ingredient-line reference.
// Target is the catalog key: a master-ingredient id for RefRaw, a recipe id
// for RefPrepared, empty for RefUnresolved.
type Ref struct {
	Kind   RefKind
	Target string
}

// Resolve determines what one ingredient line references.
//
// Resolution order is fixed: the explicit typed reference field first, then
// the legacy single-identifier field interpreted according to the line's own
// type discriminator. The discriminator is never inferred from the legacy
// field's shape - a raw line whose LegacyRef happens to look like a recipe id
// still resolves into the master catalog.
func Resolve(line IngredientLine) Ref {
	switch line.Type {
	case LineRaw:
		if line.MasterID != "" {
			return Ref{Kind: RefRaw, Target: line.MasterID}
		}
		if line.LegacyRef != "" {
			return Ref{Kind: RefRaw, Target: line.LegacyRef}
		}
	case LinePrepared:
		if line.SubRecipeID != "" {
			return Ref{Kind: RefPrepared, Target: line.SubRecipeID}
		}
		if line.LegacyRef != "" {
			return Ref{Kind: RefPrepared, Target: line.LegacyRef}
		}
	}
	return Ref{}
}
