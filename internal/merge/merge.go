// Package merge writes validated translations back into the corpus tree.
// A merge targets every location sharing the canonical unit's source text,
// never anything else, and is idempotent: re-applying an identical value is
// a no-op. Differing non-empty values are a hard conflict — prior manual
// corrections must never be silently clobbered.
package merge

import (
	"fmt"
	"strings"

	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/extract"
)

// OverwriteConflictError reports a merge that would replace an existing,
// different translation. The session records it and moves on; an operator
// resolves it explicitly (or re-runs with force).
type OverwriteConflictError struct {
	Location corpus.Path
	Lang     corpus.Lang
	Existing string
	Incoming string
}

func (e *OverwriteConflictError) Error() string {
	return fmt.Sprintf("merge conflict at %s [%s]: existing %.40q differs from incoming %.40q",
		e.Location, e.Lang, e.Existing, e.Incoming)
}

// Merge propagates translated into every location of unit for lang.
//
// All locations are checked before any is written, so a conflict leaves the
// tree untouched — no partial propagation. With force set, existing values
// are overwritten instead of conflicting.
func Merge(tree *corpus.Tree, unit *extract.Unit, lang corpus.Lang, translated string, force bool) error {
	translated = strings.TrimSpace(translated)
	if translated == "" {
		return fmt.Errorf("refusing to merge empty translation for %s", unit.Location())
	}

	// Pass 1: verify every target slot is writable.
	for _, loc := range unit.Locations {
		text, err := tree.Resolve(loc)
		if err != nil {
			return fmt.Errorf("merge target %s: %w", loc, err)
		}
		if text.Source != unit.SourceText {
			return fmt.Errorf("merge target %s: source text changed since extraction", loc)
		}
		existing := strings.TrimSpace(text.Get(lang))
		if existing != "" && existing != translated && !force {
			return &OverwriteConflictError{
				Location: loc,
				Lang:     lang,
				Existing: existing,
				Incoming: translated,
			}
		}
	}

	// Pass 2: write. Identical values are skipped so an idempotent re-merge
	// does not dirty chapters.
	for _, loc := range unit.Locations {
		text, err := tree.Resolve(loc)
		if err != nil {
			return fmt.Errorf("merge target %s: %w", loc, err)
		}
		if strings.TrimSpace(text.Get(lang)) == translated {
			continue
		}
		if err := tree.SetTranslation(loc, lang, translated); err != nil {
			return fmt.Errorf("merge target %s: %w", loc, err)
		}
	}
	return nil
}
