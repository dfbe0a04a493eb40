package decl

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for fingerprint computation. The version suffix enables
// future algorithm migration without ambiguity between old and new values.
const (
	DomainDeclaration = "declared/declaration/v1"
	DomainGraph       = "declared/graph/v1"
)

// HashWithDomain computes a SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + canonical(v)).
// The null byte separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Fingerprint computes the stable fingerprint of a declaration.
//
// The fingerprint covers the sorted contains/may-contain/environment sets and
// the sorted cross-contact notes. Two declarations with the same reconciled
// content always fingerprint identically, so comparing fingerprints is the
// write-suppression check: equal fingerprint, no write.
func (d Declaration) Fingerprint() (string, error) {
	obj := map[string]any{
		"recipe_id":           d.RecipeID,
		"contains":            kindStrings(d.Contains),
		"may_contain":         kindStrings(d.MayContain),
		"environment":         kindStrings(d.Environment),
		"cross_contact_notes": d.CrossContactNotes,
	}
	return HashWithDomain(DomainDeclaration, obj)
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the declaration is known to be valid.
func (d Declaration) MustFingerprint() string {
	fp, err := d.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}

// LineIdentity is the change-detection identity of one ingredient line:
// the line id plus its resolved reference. Master-ingredient content changes
// do not alter a LineIdentity; they invalidate recomputes through the
// catalog's own change feed instead.
type LineIdentity struct {
	LineID  string
	RefKind string
	Target  string
}

// GraphFingerprint computes the identity fingerprint of an ingredient list.
// Order-sensitive: the identity list follows the recipe's line order.
func GraphFingerprint(recipeID string, lines []LineIdentity) (string, error) {
	arr := make([]any, len(lines))
	for i, l := range lines {
		arr[i] = map[string]any{
			"line_id":  l.LineID,
			"ref_kind": l.RefKind,
			"target":   l.Target,
		}
	}
	obj := map[string]any{
		"recipe_id": recipeID,
		"lines":     arr,
	}
	return HashWithDomain(DomainGraph, obj)
}
