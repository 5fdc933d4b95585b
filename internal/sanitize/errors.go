package sanitize

import (
	"errors"
	"fmt"

	"github.com/DishanH/Pali-sub001/internal/corpus"
)

// ErrValidation is the category sentinel for every sanitizer rejection.
// The session driver routes on errors.Is(err, ErrValidation): such units are
// flagged for manual review and the run continues.
var ErrValidation = errors.New("translation failed validation")

// ForeignCharacterError means the provider answered in the wrong script or
// language entirely.
type ForeignCharacterError struct {
	Target   corpus.Lang
	Detected string  // ISO code when a detector identified the language, else ""
	Ratio    float64 // in-script letter ratio when a script check failed
}

func (e *ForeignCharacterError) Error() string {
	if e.Detected != "" {
		return fmt.Sprintf("expected %s but detected %s", e.Target, e.Detected)
	}
	return fmt.Sprintf("only %.0f%% of letters in the %s script range", e.Ratio*100, e.Target)
}

func (e *ForeignCharacterError) Unwrap() error { return ErrValidation }

// OverExpansionError means the result is implausibly long relative to the
// source: the provider elaborated instead of translating.
type OverExpansionError struct {
	SourceLen int
	ResultLen int
	MaxLen    int
}

func (e *OverExpansionError) Error() string {
	return fmt.Sprintf("translation of %d chars expanded to %d chars (limit %d)", e.SourceLen, e.ResultLen, e.MaxLen)
}

func (e *OverExpansionError) Unwrap() error { return ErrValidation }

// ArtifactEncodingError means placeholder or encoding junk survived
// normalization and the text cannot be trusted.
type ArtifactEncodingError struct {
	Artifact string
}

func (e *ArtifactEncodingError) Error() string {
	return fmt.Sprintf("unresolved encoding artifact %q in translation", e.Artifact)
}

func (e *ArtifactEncodingError) Unwrap() error { return ErrValidation }
