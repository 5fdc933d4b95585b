package store

import (
	"context"
	"testing"

	"github.com/DishanH/Pali-sub001/internal/corpus"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func loadedTree() *corpus.Tree {
	title := corpus.NewText("Paṭhamavaggo")
	title.Set(corpus.LangEnglish, "First Chapter")

	sec1 := corpus.NewText("Rūpādīhi cittaṁ pariyādiyati")
	sec1.Set(corpus.LangEnglish, "The mind is obsessed by forms")
	sec1.Set(corpus.LangSinhala, "රූප ආදියෙන් සිත මැඩගනී")

	return corpus.New("anguttara",
		&corpus.Book{ID: "an1", Name: "Ekakanipāta", Chapters: []*corpus.Chapter{
			{
				ID:    "an1-1",
				Title: title,
				Sections: []*corpus.Section{
					{Number: 1, Text: sec1, Title: corpus.NewText("Rūpavaggo")},
					{Number: 2, Text: corpus.NewText("Saddādīhi cittaṁ")},
				},
				Footer: corpus.NewText("Vaggo paṭhamo."),
			},
			{
				ID:    "an1-2",
				Title: corpus.NewText("Dutiyavaggo"),
			},
		}},
	)
}

func TestLoadTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.LoadTree(ctx, loadedTree())
	if err != nil {
		t.Fatalf("LoadTree: %v", err)
	}
	if stats.Books != 1 || stats.Chapters != 2 || stats.Sections != 2 {
		t.Errorf("stats = %+v, want 1 book, 2 chapters, 2 sections", stats)
	}
}

func TestLoadTreeIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tree := loadedTree()

	if _, err := s.LoadTree(ctx, tree); err != nil {
		t.Fatalf("first load: %v", err)
	}

	// Translate something and reload; rows are replaced, not duplicated.
	tree.Books[0].Chapters[1].Title.Set(corpus.LangEnglish, "Second Chapter")
	stats, err := s.LoadTree(ctx, tree)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if stats.Chapters != 2 {
		t.Errorf("chapters = %d after reload, want 2", stats.Chapters)
	}

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM chapters`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("chapter rows = %d after reload, want 2", count)
	}

	var titleEn string
	if err := s.db.QueryRow(`SELECT title_en FROM chapters WHERE id = 'an1-2'`).Scan(&titleEn); err != nil {
		t.Fatal(err)
	}
	if titleEn != "Second Chapter" {
		t.Errorf("reload did not update title: %q", titleEn)
	}
}

func TestLoadTreeReloadKeepsSearchIndexConsistent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	tree := loadedTree()

	if _, err := s.LoadTree(ctx, tree); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := s.LoadTree(ctx, tree); err != nil {
		t.Fatalf("second load: %v", err)
	}

	// The raw index must hold exactly one entry per indexed term, no orphans
	// from replaced rows. The JOIN in SearchSections would hide them.
	var matches int
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sections_fts WHERE sections_fts MATCH 'obsessed'`).Scan(&matches); err != nil {
		t.Fatalf("querying index: %v", err)
	}
	if matches != 1 {
		t.Errorf("index entries for term = %d, want 1", matches)
	}

	// FTS5's own verification compares the index against the content table.
	if _, err := s.db.Exec(`INSERT INTO sections_fts(sections_fts) VALUES ('integrity-check')`); err != nil {
		t.Errorf("search index out of sync with sections after reload: %v", err)
	}

	// Translations arriving between loads are searchable, once.
	tree.Books[0].Chapters[0].Sections[1].Text.Set(corpus.LangEnglish, "The mind is obsessed by sounds")
	if _, err := s.LoadTree(ctx, tree); err != nil {
		t.Fatalf("third load: %v", err)
	}
	hits, err := s.SearchSections(ctx, "sounds", 10)
	if err != nil {
		t.Fatalf("SearchSections: %v", err)
	}
	if len(hits) != 1 || hits[0].Number != 2 {
		t.Errorf("hits for updated section = %+v, want section 2 once", hits)
	}
}

func TestSearchSections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LoadTree(ctx, loadedTree()); err != nil {
		t.Fatalf("LoadTree: %v", err)
	}

	hits, err := s.SearchSections(ctx, "obsessed", 10)
	if err != nil {
		t.Fatalf("SearchSections: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	h := hits[0]
	if h.ChapterID != "an1-1" || h.Number != 1 {
		t.Errorf("hit = %s/%d", h.ChapterID, h.Number)
	}
	if h.English == "" || h.Sinhala == "" {
		t.Errorf("hit missing translations: %+v", h)
	}

	none, err := s.SearchSections(ctx, "bhikkhu", 10)
	if err != nil {
		t.Fatalf("SearchSections: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("got %d hits for absent term", len(none))
	}
}

func TestTranslationMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, "Dutiyavaggo", "en", "Second Chapter", "stub"); err != nil {
		t.Fatalf("SaveToMemory: %v", err)
	}

	got, found, err := s.GetCachedTranslation(ctx, "Dutiyavaggo", "en")
	if err != nil {
		t.Fatalf("GetCachedTranslation: %v", err)
	}
	if !found || got != "Second Chapter" {
		t.Errorf("lookup = %q/%v", got, found)
	}

	// Same source, different language misses.
	if _, found, _ := s.GetCachedTranslation(ctx, "Dutiyavaggo", "si"); found {
		t.Error("unexpected hit for untranslated language")
	}

	// Lookups are normalized: surrounding whitespace on the key is ignored.
	if _, found, _ := s.GetCachedTranslation(ctx, "  Dutiyavaggo ", "en"); !found {
		t.Error("whitespace variant of the key missed")
	}
}

func TestMemoryUsageCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Dutiyavaggo", "en", "Second Chapter", "stub")
	s.GetCachedTranslation(ctx, "Dutiyavaggo", "en")
	s.GetCachedTranslation(ctx, "Dutiyavaggo", "en")

	entries, err := s.ListMemory(ctx)
	if err != nil {
		t.Fatalf("ListMemory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	// 1 on insert plus 2 hits.
	if entries[0].UsageCount != 3 {
		t.Errorf("usage count = %d, want 3", entries[0].UsageCount)
	}
}

func TestMemoryUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Dutiyavaggo", "en", "old", "stub")
	s.SaveToMemory(ctx, "Dutiyavaggo", "en", "new", "stub")

	got, found, _ := s.GetCachedTranslation(ctx, "Dutiyavaggo", "en")
	if !found || got != "new" {
		t.Errorf("lookup after upsert = %q/%v", got, found)
	}

	entries, _ := s.ListMemory(ctx)
	if len(entries) != 1 {
		t.Errorf("upsert duplicated the row: %d entries", len(entries))
	}
}

func TestMemoryInvalidate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "Dutiyavaggo", "en", "Second Chapter", "stub")
	entries, _ := s.ListMemory(ctx)

	if err := s.InvalidateMemory(ctx, entries[0].ID); err != nil {
		t.Fatalf("InvalidateMemory: %v", err)
	}
	if _, found, _ := s.GetCachedTranslation(ctx, "Dutiyavaggo", "en"); found {
		t.Error("invalidated entry still served")
	}

	// Re-saving reactivates the entry.
	s.SaveToMemory(ctx, "Dutiyavaggo", "en", "Second Chapter", "stub")
	if _, found, _ := s.GetCachedTranslation(ctx, "Dutiyavaggo", "en"); !found {
		t.Error("re-saved entry not served")
	}
}

func TestMemoryClearAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, "a", "en", "x", "stub")
	s.SaveToMemory(ctx, "b", "en", "y", "stub")
	entries, _ := s.ListMemory(ctx)
	s.InvalidateMemory(ctx, entries[0].ID)

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalEntries != 2 || stats.ActiveEntries != 1 || stats.InvalidEntries != 1 {
		t.Errorf("stats = %+v", stats)
	}

	n, err := s.ClearMemory(ctx)
	if err != nil {
		t.Fatalf("ClearMemory: %v", err)
	}
	if n != 2 {
		t.Errorf("cleared %d entries, want 2", n)
	}
	after, _ := s.Stats(ctx)
	if after.TotalEntries != 0 {
		t.Errorf("entries after clear = %d", after.TotalEntries)
	}
}

func TestGlossary(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AddGlossaryTerm(ctx, "en", "bhikkhu", "monk"); err != nil {
		t.Fatalf("AddGlossaryTerm: %v", err)
	}
	if err := s.AddGlossaryTerm(ctx, "en", "sutta", "discourse"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddGlossaryTerm(ctx, "si", "bhikkhu", "භික්ෂුව"); err != nil {
		t.Fatal(err)
	}

	terms, err := s.GetGlossaryTerms(ctx, "en")
	if err != nil {
		t.Fatalf("GetGlossaryTerms: %v", err)
	}
	if len(terms) != 2 || terms["bhikkhu"] != "monk" || terms["sutta"] != "discourse" {
		t.Errorf("terms = %v", terms)
	}

	// Upsert replaces the translation for an existing term.
	s.AddGlossaryTerm(ctx, "en", "bhikkhu", "mendicant")
	terms, _ = s.GetGlossaryTerms(ctx, "en")
	if terms["bhikkhu"] != "mendicant" {
		t.Errorf("upsert did not replace: %q", terms["bhikkhu"])
	}

	all, err := s.ListGlossaryTerms(ctx, "")
	if err != nil {
		t.Fatalf("ListGlossaryTerms: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all terms = %d, want 3", len(all))
	}

	enOnly, _ := s.ListGlossaryTerms(ctx, "en")
	if len(enOnly) != 2 {
		t.Errorf("en terms = %d, want 2", len(enOnly))
	}

	if err := s.DeleteGlossaryTerm(ctx, enOnly[0].ID); err != nil {
		t.Fatalf("DeleteGlossaryTerm: %v", err)
	}
	remaining, _ := s.ListGlossaryTerms(ctx, "en")
	if len(remaining) != 1 {
		t.Errorf("terms after delete = %d, want 1", len(remaining))
	}
}
