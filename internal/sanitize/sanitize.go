// Package sanitize normalizes and validates raw translation provider output
// before anything downstream is allowed to trust it.
//
// Providers habitually damage Sinhala text: the zero-width joiner that forms
// conjunct consonants comes back as a textual escape ("‍", "&zwj;", …),
// stray zero-width characters and BOMs appear mid-word, and LLM providers
// prepend ordinal noise, instruction echoes, or wrap the answer in quotes.
// Sanitize undoes all of that, then rejects output that is in the wrong
// script or implausibly longer than its source. Every function here is pure;
// failures are returned as typed errors for the session driver to classify.
package sanitize

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/DishanH/Pali-sub001/internal/corpus"
	"github.com/DishanH/Pali-sub001/internal/detector"
)

const (
	// zwj is the real zero-width joiner every textual encoding is folded into.
	zwj = "\u200d"

	// defaultMaxExpansionRatio bounds result length at N× the source rune
	// count. Translations legitimately grow between Pali and English or
	// Sinhala, but never by an order of magnitude.
	defaultMaxExpansionRatio = 8.0

	// defaultExpansionFloor lets very short sources (single-word titles)
	// expand to a small absolute size before the ratio kicks in.
	defaultExpansionFloor = 160

	// defaultMinScriptRatio is the minimum share of letters that must fall in
	// the target's script block.
	defaultMinScriptRatio = 0.5

	// minDetectionLength mirrors the detector's reliability threshold; texts
	// shorter than this are not language-checked.
	minDetectionLength = 20
)

// joinerEncodings are the known textual spellings of the zero-width joiner
// seen in provider output. All fold to the single control character.
var joinerEncodings = []string{
	`\u200d`, `\u200D`, `\U200D`,
	"&zwj;", "&#8205;", "&#x200d;", "&#x200D;",
	"[ZWJ]", "<ZWJ>", "{ZWJ}",
}

var (
	// strayInvisible matches zero-width and BOM-like characters that carry no
	// meaning in this corpus: ZWSP, ZWNJ, word joiner, BOM, soft hyphen.
	strayInvisible = regexp.MustCompile("[\u200b\u200c\u2060\ufeff\u00ad]")

	// leadingOrdinal matches numeric prefixes providers inject before the
	// actual translation: "1. ", "12) ", "(3) ", "4: ".
	leadingOrdinal = regexp.MustCompile(`^\(?\d+[.):]\s+`)

	// instructionEcho patterns are anchored introductory phrases LLM
	// providers prepend even when told not to.
	instructionEcho = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^here(?:'s| is)(?: the)? (?:sinhala |english )?translation\s*:`),
		regexp.MustCompile(`(?i)^(?:the )?(?:sinhala |english )?(?:translation|translated text)\s*:`),
		regexp.MustCompile(`(?i)^(?:certainly|sure|of course)[,.]? here(?:'s| is)(?: the)? translation\s*:`),
	}

	// unresolvedArtifact matches escape or placeholder junk that survived
	// joiner folding and therefore signals untrustworthy output.
	unresolvedArtifact = regexp.MustCompile(`(?i)\\u[0-9a-f]{4}|&#?x?[0-9a-z]+;|[\[<{]zw[a-z]*[\]>}]|\x{fffd}`)
)

// sinhalaBlock is the dedicated Unicode block for the Sinhala script.
var sinhalaBlock = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0D80, Hi: 0x0DFF, Stride: 1}},
}

// scriptBlocks maps target languages with a dedicated script to their block.
// Latin-script targets are absent here and validated by language detection.
var scriptBlocks = map[corpus.Lang]*unicode.RangeTable{
	corpus.LangSinhala: sinhalaBlock,
}

// Options tune the sanitizer's guard thresholds. The zero value selects the
// defaults above.
type Options struct {
	MaxExpansionRatio float64
	ExpansionFloor    int
	MinScriptRatio    float64
}

// Sanitizer validates provider output for a fixed option set. The language
// detector is optional; without one, Latin-script targets skip the
// wrong-language check (the script checks still apply).
type Sanitizer struct {
	det  *detector.Detector
	opts Options
}

// New returns a Sanitizer. det may be nil.
func New(det *detector.Detector, opts Options) *Sanitizer {
	if opts.MaxExpansionRatio <= 0 {
		opts.MaxExpansionRatio = defaultMaxExpansionRatio
	}
	if opts.ExpansionFloor <= 0 {
		opts.ExpansionFloor = defaultExpansionFloor
	}
	if opts.MinScriptRatio <= 0 {
		opts.MinScriptRatio = defaultMinScriptRatio
	}
	return &Sanitizer{det: det, opts: opts}
}

// Sanitize normalizes raw provider output for a unit whose source text is
// source and whose requested language is target. It returns the cleaned text
// or a typed error unwrapping to ErrValidation.
func (s *Sanitizer) Sanitize(raw, source string, target corpus.Lang) (string, error) {
	text := RestoreJoiners(raw)
	text = strayInvisible.ReplaceAllString(text, "")
	text = stripInstructionEcho(text)
	text = stripQuoteWrapping(text)
	text = stripLeadingOrdinal(text, source)
	text = norm.NFC.String(strings.TrimSpace(text))

	if text == "" {
		return "", fmt.Errorf("empty after sanitizing: %w", ErrValidation)
	}

	if m := unresolvedArtifact.FindString(text); m != "" {
		return "", &ArtifactEncodingError{Artifact: m}
	}

	srcLen := len([]rune(source))
	resLen := len([]rune(text))
	maxLen := int(float64(srcLen) * s.opts.MaxExpansionRatio)
	if maxLen < s.opts.ExpansionFloor {
		maxLen = s.opts.ExpansionFloor
	}
	if resLen > maxLen {
		return "", &OverExpansionError{SourceLen: srcLen, ResultLen: resLen, MaxLen: maxLen}
	}

	if err := s.checkScript(text, target); err != nil {
		return "", err
	}

	return text, nil
}

// checkScript verifies the output is written in the target's script. For
// languages with a dedicated Unicode block the in-block letter ratio is
// checked directly; for Latin-script targets the language detector decides.
func (s *Sanitizer) checkScript(text string, target corpus.Lang) error {
	if block, ok := scriptBlocks[target]; ok {
		letters, inBlock := 0, 0
		for _, r := range text {
			if !unicode.IsLetter(r) {
				continue
			}
			letters++
			if unicode.Is(block, r) {
				inBlock++
			}
		}
		if letters == 0 {
			return nil
		}
		ratio := float64(inBlock) / float64(letters)
		if ratio < s.opts.MinScriptRatio {
			return &ForeignCharacterError{Target: target, Ratio: ratio}
		}
		return nil
	}

	if s.det == nil || len([]rune(text)) < minDetectionLength {
		return nil
	}
	detected, ok := s.det.DetectISO(text)
	if !ok {
		// Ambiguous language, cannot validate. Pass through.
		return nil
	}
	if !strings.EqualFold(detected, string(target)) {
		return &ForeignCharacterError{Target: target, Detected: detected}
	}
	return nil
}

// RestoreJoiners folds every known textual encoding of the zero-width joiner
// into the actual control character. Applying it twice is a no-op.
func RestoreJoiners(text string) string {
	for _, enc := range joinerEncodings {
		text = strings.ReplaceAll(text, enc, zwj)
	}
	return text
}

func stripInstructionEcho(text string) string {
	text = strings.TrimSpace(text)
	for _, re := range instructionEcho {
		if loc := re.FindStringIndex(text); loc != nil && loc[0] == 0 {
			text = strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

// stripQuoteWrapping removes a matching pair of outer quotes when the whole
// text is wrapped in them.
func stripQuoteWrapping(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	first, last := runes[0], runes[n-1]
	if (first == '"' && last == '"') ||
		(first == '\'' && last == '\'') ||
		(first == '«' && last == '»') ||
		(first == '“' && last == '”') ||
		(first == '‘' && last == '’') {
		return strings.TrimSpace(string(runes[1 : n-1]))
	}
	return text
}

// stripLeadingOrdinal drops injected numeric prefixes, but only when the
// source itself does not begin with a digit — section text legitimately
// starting with a number must survive untouched.
func stripLeadingOrdinal(text, source string) string {
	src := strings.TrimSpace(source)
	if src != "" {
		if r := []rune(src)[0]; unicode.IsDigit(r) {
			return text
		}
	}
	return leadingOrdinal.ReplaceAllString(text, "")
}
