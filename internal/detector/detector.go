// Package detector wraps lingua-go language detection for sanitizer checks
// on Latin-script targets. Sinhala is not in lingua's model set, so the
// Sinhala side is validated by Unicode-block inspection in the sanitize
// package instead; the detector only has to tell English apart from the
// other languages a misbehaving provider is likely to answer in.
package detector

import (
	lingua "github.com/pemistahl/lingua-go"
)

type Detector struct {
	detector lingua.LanguageDetector
}

func New() *Detector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(
			lingua.English,
			lingua.French,
			lingua.German,
			lingua.Spanish,
			lingua.Portuguese,
			lingua.Italian,
			lingua.Hindi,
			lingua.Tamil,
		).
		Build()

	return &Detector{detector: detector}
}

func (d *Detector) Detect(text string) (lingua.Language, bool) {
	if text == "" {
		return lingua.Unknown, false
	}
	return d.detector.DetectLanguageOf(text)
}

// DetectISO returns the ISO 639-1 code of the detected language.
func (d *Detector) DetectISO(text string) (string, bool) {
	lang, ok := d.Detect(text)
	if !ok {
		return "", false
	}
	return lang.IsoCode639_1().String(), true
}
