// Package detector identifies the natural language of a chunk.
package detector

import (
	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

// New builds a detector restricted to the given languages. Fewer than two
// languages selects every language lingua knows. Building is expensive;
// share the instance.
func New(languages ...lingua.Language) *Detector {
	builder := lingua.NewLanguageDetectorBuilder()
	var detector lingua.LanguageDetector
	if len(languages) > 1 {
		detector = builder.FromLanguages(languages...).Build()
	} else {
		detector = builder.FromAllLanguages().Build()
	}
	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the upper-case ISO 639-1 code of text, e.g. "EN".
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
