// Package extract walks the corpus tree and yields the units still missing
// one or more target-language translations, in an order that is stable across
// runs on the same tree state. Stability is what makes batch boundaries and
// session checkpoints well-defined.
package extract

import (
	"github.com/DishanH/Pali-sub001/internal/corpus"
)

// Unit is one canonical translatable unit: a distinct source text, the
// languages it still lacks, and every tree location it occurs at.
type Unit struct {
	SourceText string
	Missing    []corpus.Lang
	Locations  []corpus.Path
	UsageCount int
}

// Location returns the representative (first-seen) location of the unit.
func (u *Unit) Location() corpus.Path {
	return u.Locations[0]
}

// Extract returns all units missing at least one required language, in
// deterministic first-seen depth-first order. Units sharing the same source
// text are deduplicated: the first occurrence is canonical, later occurrences
// add a location and bump UsageCount. The missing-language set of the
// canonical unit is the union across occurrences, preserving the required
// order, so a partially-filled recurrence never shrinks the request.
func Extract(tree *corpus.Tree, required []corpus.Lang) ([]*Unit, error) {
	var units []*Unit
	bySource := make(map[string]*Unit)

	err := tree.Walk(func(p corpus.Path, text *corpus.Text) error {
		missing := text.Missing(required)
		if len(missing) == 0 {
			return nil
		}

		if u, ok := bySource[text.Source]; ok {
			u.Locations = append(u.Locations, p)
			u.UsageCount++
			u.Missing = unionLangs(u.Missing, missing, required)
			return nil
		}

		u := &Unit{
			SourceText: text.Source,
			Missing:    missing,
			Locations:  []corpus.Path{p},
			UsageCount: 1,
		}
		bySource[text.Source] = u
		units = append(units, u)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

// unionLangs merges two missing-language sets, ordered by the required list.
func unionLangs(a, b, required []corpus.Lang) []corpus.Lang {
	have := make(map[corpus.Lang]bool, len(a)+len(b))
	for _, l := range a {
		have[l] = true
	}
	for _, l := range b {
		have[l] = true
	}

	out := make([]corpus.Lang, 0, len(have))
	for _, l := range required {
		if have[l] {
			out = append(out, l)
		}
	}
	return out
}
