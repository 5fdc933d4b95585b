package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// TreeIntegrityError reports structural corruption of the corpus: duplicate
// identities, bad section numbering, or units with no source text. It is
// fatal for a translation session.
type TreeIntegrityError struct {
	Location string
	Reason   string
}

func (e *TreeIntegrityError) Error() string {
	return fmt.Sprintf("corpus integrity: %s: %s", e.Location, e.Reason)
}

// Tree is the in-memory corpus: the exclusive owner of all books, chapters
// and translatable units. Mutation goes through SetTranslation, which tracks
// which chapter documents need rewriting so Flush only touches changed files.
type Tree struct {
	Collection string
	Books      []*Book

	dir          string
	chapterFiles map[string]string // chapter ID -> file name
	dirty        map[string]bool   // chapter ID -> pending write
}

// New builds an in-memory tree (no backing directory). Used by tests and by
// callers that persist through the sink instead of chapter files.
func New(collection string, books ...*Book) *Tree {
	return &Tree{
		Collection:   collection,
		Books:        books,
		chapterFiles: make(map[string]string),
		dirty:        make(map[string]bool),
	}
}

// Load reads a corpus directory: the manifest plus every chapter document it
// lists, in manifest order. The loaded tree is validated before it is
// returned.
func Load(dir string) (*Tree, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return nil, err
	}

	t := New(m.Collection)
	t.dir = dir

	for _, mb := range m.Books {
		book := &Book{ID: mb.ID, Name: mb.Name}
		for _, file := range mb.Chapters {
			data, err := os.ReadFile(filepath.Join(dir, file))
			if err != nil {
				return nil, fmt.Errorf("reading chapter %s: %w", file, err)
			}
			ch, err := DecodeChapter(data)
			if err != nil {
				return nil, fmt.Errorf("parsing chapter %s: %w", file, err)
			}
			book.Chapters = append(book.Chapters, ch)
			t.chapterFiles[ch.ID] = file
		}
		t.Books = append(t.Books, book)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks structural invariants and returns a *TreeIntegrityError on
// the first violation found.
func (t *Tree) Validate() error {
	seenBooks := make(map[string]bool)
	seenChapters := make(map[string]bool)

	for _, b := range t.Books {
		if b.ID == "" {
			return &TreeIntegrityError{Location: t.Collection, Reason: "book with empty id"}
		}
		if seenBooks[b.ID] {
			return &TreeIntegrityError{Location: b.ID, Reason: "duplicate book id"}
		}
		seenBooks[b.ID] = true

		for _, c := range b.Chapters {
			if c.ID == "" {
				return &TreeIntegrityError{Location: b.ID, Reason: "chapter with empty id"}
			}
			if seenChapters[c.ID] {
				return &TreeIntegrityError{Location: c.ID, Reason: "duplicate chapter id"}
			}
			seenChapters[c.ID] = true

			if c.Title == nil || c.Title.Source == "" {
				return &TreeIntegrityError{
					Location: string(ChapterPath(b.ID, c.ID, FieldTitle)),
					Reason:   "chapter has no source title",
				}
			}

			seenSections := make(map[int]bool)
			for _, s := range c.Sections {
				loc := string(SectionPath(b.ID, c.ID, s.Number, FieldText))
				if s.Number <= 0 {
					return &TreeIntegrityError{Location: loc, Reason: "section number must be positive"}
				}
				if seenSections[s.Number] {
					return &TreeIntegrityError{Location: loc, Reason: "duplicate section number"}
				}
				seenSections[s.Number] = true

				if s.Text == nil || s.Text.Source == "" {
					return &TreeIntegrityError{Location: loc, Reason: "section has no source text"}
				}
			}
		}
	}
	return nil
}

// Walk visits every translatable unit in deterministic order: books and
// chapters in manifest order, sections by ascending declared number, and
// within each node title before text before footer. The same tree state
// always yields the same visit order, which the extractor and the session
// checkpoint both rely on.
func (t *Tree) Walk(fn func(p Path, unit *Text) error) error {
	for _, b := range t.Books {
		for _, c := range b.Chapters {
			if c.Title != nil {
				if err := fn(ChapterPath(b.ID, c.ID, FieldTitle), c.Title); err != nil {
					return err
				}
			}

			sections := make([]*Section, len(c.Sections))
			copy(sections, c.Sections)
			sort.SliceStable(sections, func(i, j int) bool {
				return sections[i].Number < sections[j].Number
			})

			for _, s := range sections {
				if s.Title != nil {
					if err := fn(SectionPath(b.ID, c.ID, s.Number, FieldTitle), s.Title); err != nil {
						return err
					}
				}
				if s.Text != nil {
					if err := fn(SectionPath(b.ID, c.ID, s.Number, FieldText), s.Text); err != nil {
						return err
					}
				}
			}

			if c.Footer != nil {
				if err := fn(ChapterPath(b.ID, c.ID, FieldFooter), c.Footer); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Resolve returns the translatable unit at p.
func (t *Tree) Resolve(p Path) (*Text, error) {
	pp, err := p.Parse()
	if err != nil {
		return nil, err
	}

	for _, b := range t.Books {
		if b.ID != pp.Book {
			continue
		}
		for _, c := range b.Chapters {
			if c.ID != pp.Chapter {
				continue
			}

			if pp.Section < 0 {
				switch pp.Field {
				case FieldTitle:
					if c.Title != nil {
						return c.Title, nil
					}
				case FieldFooter:
					if c.Footer != nil {
						return c.Footer, nil
					}
				}
				return nil, fmt.Errorf("no %s unit at %s", pp.Field, p)
			}

			for _, s := range c.Sections {
				if s.Number != pp.Section {
					continue
				}
				switch pp.Field {
				case FieldText:
					if s.Text != nil {
						return s.Text, nil
					}
				case FieldTitle:
					if s.Title != nil {
						return s.Title, nil
					}
				}
				return nil, fmt.Errorf("no %s unit at %s", pp.Field, p)
			}
			return nil, fmt.Errorf("no section %d in chapter %s", pp.Section, pp.Chapter)
		}
		return nil, fmt.Errorf("no chapter %s in book %s", pp.Chapter, pp.Book)
	}
	return nil, fmt.Errorf("no book %s", pp.Book)
}

// SetTranslation writes a translation into the unit at p and marks the owning
// chapter dirty. It touches exactly that one field.
func (t *Tree) SetTranslation(p Path, lang Lang, translated string) error {
	unit, err := t.Resolve(p)
	if err != nil {
		return err
	}
	unit.Set(lang, translated)

	pp, _ := p.Parse()
	t.dirty[pp.Chapter] = true
	return nil
}

// Flush rewrites the chapter documents changed since the last flush. It is a
// no-op for trees built with New that have no backing directory.
func (t *Tree) Flush() error {
	if t.dir == "" || len(t.dirty) == 0 {
		return nil
	}

	for _, b := range t.Books {
		for _, c := range b.Chapters {
			if !t.dirty[c.ID] {
				continue
			}
			file, ok := t.chapterFiles[c.ID]
			if !ok {
				return fmt.Errorf("chapter %s has no backing file", c.ID)
			}
			data, err := EncodeChapter(c)
			if err != nil {
				return fmt.Errorf("encoding chapter %s: %w", c.ID, err)
			}
			if err := os.WriteFile(filepath.Join(t.dir, file), data, 0644); err != nil {
				return fmt.Errorf("writing chapter %s: %w", c.ID, err)
			}
			delete(t.dirty, c.ID)
		}
	}
	return nil
}

// Dir returns the backing directory, or "" for in-memory trees.
func (t *Tree) Dir() string { return t.dir }
