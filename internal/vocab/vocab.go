// Package vocab loads the organization allergen vocabulary from CUE
// configuration.
//
// The configuration declares only the custom slots; the fourteen standard
// kinds are fixed in code and cannot be configured away:
//
//	vocabulary: {
//		custom: [
//			{name: "saffron", active: true},
//			{name: "rose_water", active: false},
//		]
//	}
//
// An absent vocabulary block yields the default vocabulary (standard kinds,
// no custom slots). Structural validation (slot count, name collisions)
// happens in allergen.NewVocabulary; this package only parses.
package vocab

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/mirepoix/declared/internal/allergen"
)

// ConfigError is a vocabulary configuration error with CUE position info
// when available.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a vocabulary configuration file.
func Load(path string) (allergen.Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return allergen.Vocabulary{}, fmt.Errorf("load vocabulary: %w", err)
	}
	return Parse(path, data)
}

// Parse parses vocabulary configuration from CUE source.
// filename is used for error positions only.
func Parse(filename string, data []byte) (allergen.Vocabulary, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return allergen.Vocabulary{}, formatCUEError(err)
	}
	return FromValue(v)
}

// FromValue extracts the vocabulary from an already-built CUE value.
func FromValue(v cue.Value) (allergen.Vocabulary, error) {
	vocabVal := v.LookupPath(cue.ParsePath("vocabulary"))
	if !vocabVal.Exists() {
		return allergen.Default(), nil
	}

	var slots []allergen.CustomSlot

	customVal := vocabVal.LookupPath(cue.ParsePath("custom"))
	if customVal.Exists() {
		iter, err := customVal.List()
		if err != nil {
			return allergen.Vocabulary{}, &ConfigError{
				Field:   "vocabulary.custom",
				Message: "custom must be a list",
				Pos:     customVal.Pos(),
			}
		}
		for iter.Next() {
			slot, err := parseSlot(iter.Value())
			if err != nil {
				return allergen.Vocabulary{}, err
			}
			slots = append(slots, slot)
		}
	}

	vocab, err := allergen.NewVocabulary(slots)
	if err != nil {
		return allergen.Vocabulary{}, &ConfigError{
			Field:   "vocabulary.custom",
			Message: err.Error(),
			Pos:     vocabVal.Pos(),
		}
	}
	return vocab, nil
}

// parseSlot parses one custom-slot entry.
func parseSlot(v cue.Value) (allergen.CustomSlot, error) {
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return allergen.CustomSlot{}, &ConfigError{
			Field:   "vocabulary.custom.name",
			Message: "name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return allergen.CustomSlot{}, formatCUEError(err)
	}

	slot := allergen.CustomSlot{Name: name}

	// active defaults to true: declaring a slot usually means using it.
	activeVal := v.LookupPath(cue.ParsePath("active"))
	if activeVal.Exists() {
		active, err := activeVal.Bool()
		if err != nil {
			return allergen.CustomSlot{}, formatCUEError(err)
		}
		slot.Active = active
	} else {
		slot.Active = true
	}

	return slot, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &ConfigError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
