// Package validator checks that a rewritten chunk stays in the language of
// its source.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/valpere/humanizer/internal/detector"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// ErrLanguageDrift is returned by Check when a rewrite changed language.
var ErrLanguageDrift = errors.New("rewrite changed language")

// Validator checks the language of rewritten text.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by det, or by a detector for every language
// when det is nil.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// IsValid returns true when text appears to be written in lang.
//
// Short texts (fewer than minValidationLength runes) and texts whose language
// cannot be determined pass without error. When the detected language differs
// from lang the returned error names both codes.
func (v *Validator) IsValid(text, lang string) (bool, error) {
	if lang == "" {
		return true, nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return false, fmt.Errorf("rewrite is empty")
	}

	// Detector is unreliable for very short texts; skip validation.
	if len([]rune(text)) < minValidationLength {
		return true, nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		// Ambiguous language, cannot validate, pass through.
		return true, nil
	}

	if !strings.EqualFold(detected, lang) {
		return false, fmt.Errorf("%w: expected %s but detected %s", ErrLanguageDrift, lang, detected)
	}

	return true, nil
}

// Check rejects rewritten when it is no longer in the language of source.
// Sources too short or too ambiguous to classify are not checked.
func (v *Validator) Check(source, rewritten string) error {
	source = strings.TrimSpace(source)
	if len([]rune(source)) < minValidationLength {
		return nil
	}
	lang, ok := v.det.DetectISO(source)
	if !ok {
		return nil
	}
	_, err := v.IsValid(rewritten, lang)
	return err
}
