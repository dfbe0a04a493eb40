package allergen

// Kind identifies one recognized allergen category.
// The vocabulary is closed: the fourteen standard kinds below plus up to
// MaxCustomSlots organization-defined custom kinds (see Vocabulary).
type Kind string

// Standard allergen kinds. These follow the EU Annex II categories, which is
// the superset most food-service declaration regimes are based on.
const (
	Gluten     Kind = "gluten"
	Crustacean Kind = "crustacean"
	Egg        Kind = "egg"
	Fish       Kind = "fish"
	Peanut     Kind = "peanut"
	Soy        Kind = "soy"
	Milk       Kind = "milk"
	TreeNut    Kind = "tree_nut"
	Celery     Kind = "celery"
	Mustard    Kind = "mustard"
	Sesame     Kind = "sesame"
	Sulphite   Kind = "sulphite"
	Lupin      Kind = "lupin"
	Mollusc    Kind = "mollusc"
)

// StandardKinds lists the fixed vocabulary in declaration order.
// The slice order NEVER changes after release - downstream normalized
// storage keys on the kind identifier strings.
var StandardKinds = []Kind{
	Gluten, Crustacean, Egg, Fish, Peanut, Soy, Milk, TreeNut,
	Celery, Mustard, Sesame, Sulphite, Lupin, Mollusc,
}

// IsStandard reports whether k is one of the fixed standard kinds.
func IsStandard(k Kind) bool {
	for _, s := range StandardKinds {
		if s == k {
			return true
		}
	}
	return false
}

// Tier is a graduated risk tier for a declared allergen.
type Tier string

const (
	// TierContains marks definite presence.
	TierContains Tier = "contains"
	// TierMayContain marks possible or trace presence.
	TierMayContain Tier = "may_contain"
	// TierEnvironment marks shared-environment-only presence.
	// Environment is manual-only: it is never auto-computed and never
	// participates in promotion or orphan cleanup.
	TierEnvironment Tier = "environment"
)

// Tiers lists all risk tiers in severity order.
var Tiers = []Tier{TierContains, TierMayContain, TierEnvironment}

// ValidTier reports whether t is a recognized risk tier.
func ValidTier(t Tier) bool {
	return t == TierContains || t == TierMayContain || t == TierEnvironment
}
