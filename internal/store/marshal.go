package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mirepoix/declared/internal/allergen"
	"github.com/mirepoix/declared/internal/graph"
)

// marshalStrings converts a string list to JSON TEXT for storage.
// Nil and empty both serialize as "[]" so stored columns never hold "null".
func marshalStrings(ss []string) (string, error) {
	if len(ss) == 0 {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ss); err != nil {
		return "", fmt.Errorf("marshal strings: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalStrings parses JSON TEXT to a string list.
func unmarshalStrings(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(data), &ss); err != nil {
		return nil, fmt.Errorf("unmarshal strings: %w", err)
	}
	return ss, nil
}

// marshalKinds converts a kind set to sorted JSON TEXT so equal sets always
// produce byte-equal columns.
func marshalKinds(set allergen.Set) (string, error) {
	return marshalStrings(set.Strings())
}

// unmarshalKinds parses JSON TEXT to a kind set.
func unmarshalKinds(data string) (allergen.Set, error) {
	ss, err := unmarshalStrings(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal kinds: %w", err)
	}
	return allergen.FromStrings(ss), nil
}

// marshalKindNotes converts per-kind notes to JSON TEXT.
// Go's json.Marshal sorts map keys, so output is deterministic.
func marshalKindNotes(notes map[allergen.Kind]string) (string, error) {
	if len(notes) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(notes); err != nil {
		return "", fmt.Errorf("marshal kind notes: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalKindNotes parses JSON TEXT to per-kind notes.
func unmarshalKindNotes(data string) (map[allergen.Kind]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var notes map[allergen.Kind]string
	if err := json.Unmarshal([]byte(data), &notes); err != nil {
		return nil, fmt.Errorf("unmarshal kind notes: %w", err)
	}
	return notes, nil
}

// customFlagsRecord is the stored shape of one custom-slot flag pair.
type customFlagsRecord struct {
	Contains   bool `json:"contains"`
	MayContain bool `json:"may_contain"`
}

// marshalCustomFlags converts a master's custom-slot flags to JSON TEXT.
// All slots are stored positionally, inactive slots as all-false entries.
func marshalCustomFlags(flags [allergen.MaxCustomSlots]graph.CustomFlags) (string, error) {
	records := make([]customFlagsRecord, len(flags))
	for i, f := range flags {
		records[i] = customFlagsRecord{Contains: f.Contains, MayContain: f.MayContain}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("marshal custom flags: %w", err)
	}
	return string(data), nil
}

// unmarshalCustomFlags parses JSON TEXT to custom-slot flags.
// Shorter stored lists (from before a slot was added) leave the tail false.
func unmarshalCustomFlags(data string) ([allergen.MaxCustomSlots]graph.CustomFlags, error) {
	var flags [allergen.MaxCustomSlots]graph.CustomFlags
	if data == "" || data == "[]" {
		return flags, nil
	}
	var records []customFlagsRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return flags, fmt.Errorf("unmarshal custom flags: %w", err)
	}
	for i, r := range records {
		if i >= allergen.MaxCustomSlots {
			break
		}
		flags[i] = graph.CustomFlags{Contains: r.Contains, MayContain: r.MayContain}
	}
	return flags, nil
}
