// Package corpus models the hierarchical Pali text corpus: a collection of
// books, each book a sequence of chapters, each chapter holding a title,
// numbered sections and an optional footer. Every one of those fields is a
// translatable unit: Pali source text plus zero or more target-language
// translations.
//
// The on-disk form is one JSON document per chapter plus a YAML manifest
// listing book and chapter ordering (see manifest.go and document.go).
package corpus

import (
	"fmt"
	"strconv"
	"strings"
)

// Lang is an ISO 639-1 style language code for a translation target.
type Lang string

const (
	// LangEnglish and LangSinhala are the translation targets carried by
	// the canon corpus. The source language (Pali) is not a Lang: source
	// text lives in its own field, never in the Translations map.
	LangEnglish Lang = "en"
	LangSinhala Lang = "si"
)

// DefaultTargets is the language set required for a unit to be complete.
var DefaultTargets = []Lang{LangEnglish, LangSinhala}

// Field names a translatable slot on a node.
type Field string

const (
	FieldTitle  Field = "title"
	FieldText   Field = "text"
	FieldFooter Field = "footer"
)

// Text is one translatable unit: immutable source text and its translations.
type Text struct {
	Source       string
	Translations map[Lang]string
}

// NewText returns a Text with an initialised translation map.
func NewText(source string) *Text {
	return &Text{Source: source, Translations: make(map[Lang]string)}
}

// Get returns the translation for lang, or "" when absent.
func (t *Text) Get(lang Lang) string {
	if t.Translations == nil {
		return ""
	}
	return t.Translations[lang]
}

// Set stores a translation for lang, allocating the map if needed.
func (t *Text) Set(lang Lang, s string) {
	if t.Translations == nil {
		t.Translations = make(map[Lang]string)
	}
	t.Translations[lang] = s
}

// Missing returns the subset of required languages that have no non-empty
// translation, in the order given.
func (t *Text) Missing(required []Lang) []Lang {
	var missing []Lang
	for _, lang := range required {
		if strings.TrimSpace(t.Get(lang)) == "" {
			missing = append(missing, lang)
		}
	}
	return missing
}

// Complete reports whether every required language has a non-empty translation.
func (t *Text) Complete(required []Lang) bool {
	return len(t.Missing(required)) == 0
}

// Section is a numbered passage within a chapter. The optional Title is a
// separate translatable unit from the body text.
type Section struct {
	Number int
	Text   *Text
	Title  *Text
}

// Chapter is one persisted document: a title, ordered sections and an
// optional footer.
type Chapter struct {
	ID       string
	Title    *Text
	Sections []*Section
	Footer   *Text
}

// Book groups chapters in canonical order.
type Book struct {
	ID       string
	Name     string
	Chapters []*Chapter
}

// Path is the stable identity of a translatable slot in the tree, of the form
//
//	book/chapter#field          (chapter title or footer)
//	book/chapter/section#field  (section text or title)
//
// Paths are used for merge targeting and session checkpoints, so their string
// form must stay stable across runs.
type Path string

// ChapterPath returns the path of a chapter-level field (title, footer).
func ChapterPath(book, chapter string, field Field) Path {
	return Path(fmt.Sprintf("%s/%s#%s", book, chapter, field))
}

// SectionPath returns the path of a section-level field (text, title).
func SectionPath(book, chapter string, number int, field Field) Path {
	return Path(fmt.Sprintf("%s/%s/%d#%s", book, chapter, number, field))
}

// ParsedPath is the decomposed form of a Path. Section is -1 for
// chapter-level fields.
type ParsedPath struct {
	Book    string
	Chapter string
	Section int
	Field   Field
}

// Parse splits a Path into its components.
func (p Path) Parse() (ParsedPath, error) {
	loc, field, ok := strings.Cut(string(p), "#")
	if !ok || field == "" {
		return ParsedPath{}, fmt.Errorf("path %q: missing #field suffix", p)
	}

	parts := strings.Split(loc, "/")
	pp := ParsedPath{Section: -1, Field: Field(field)}
	switch len(parts) {
	case 2:
		pp.Book, pp.Chapter = parts[0], parts[1]
	case 3:
		pp.Book, pp.Chapter = parts[0], parts[1]
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return ParsedPath{}, fmt.Errorf("path %q: bad section number: %w", p, err)
		}
		pp.Section = n
	default:
		return ParsedPath{}, fmt.Errorf("path %q: want book/chapter[/section]#field", p)
	}

	if pp.Book == "" || pp.Chapter == "" {
		return ParsedPath{}, fmt.Errorf("path %q: empty book or chapter component", p)
	}
	return pp, nil
}
