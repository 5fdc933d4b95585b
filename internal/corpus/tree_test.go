package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testChapter builds a two-section chapter with a shared heading source so
// tests can exercise traversal and dirty tracking.
func testChapter(id string) *Chapter {
	return &Chapter{
		ID:    id,
		Title: NewText("Paṭhamavaggo"),
		Sections: []*Section{
			{Number: 2, Text: NewText("Dutiyaṁ suttaṁ"), Title: NewText("Dutiyavaggo")},
			{Number: 1, Text: NewText("Paṭhamaṁ suttaṁ")},
		},
		Footer: NewText("Vaggo paṭhamo niṭṭhito."),
	}
}

func TestTreeValidate(t *testing.T) {
	tests := []struct {
		name   string
		tree   *Tree
		reason string // substring of the expected integrity error; "" means valid
	}{
		{
			name: "valid",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{testChapter("an1-1")}}),
		},
		{
			name: "empty book id",
			tree: New("anguttara", &Book{ID: ""}),
			reason: "book with empty id",
		},
		{
			name: "duplicate book id",
			tree: New("anguttara",
				&Book{ID: "an1", Chapters: []*Chapter{testChapter("an1-1")}},
				&Book{ID: "an1"}),
			reason: "duplicate book id",
		},
		{
			name: "duplicate chapter id",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{
				testChapter("an1-1"), testChapter("an1-1"),
			}}),
			reason: "duplicate chapter id",
		},
		{
			name: "missing chapter title",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{
				{ID: "an1-1", Sections: []*Section{{Number: 1, Text: NewText("x")}}},
			}}),
			reason: "no source title",
		},
		{
			name: "non-positive section number",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{
				{ID: "an1-1", Title: NewText("t"), Sections: []*Section{{Number: 0, Text: NewText("x")}}},
			}}),
			reason: "must be positive",
		},
		{
			name: "duplicate section number",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{
				{ID: "an1-1", Title: NewText("t"), Sections: []*Section{
					{Number: 1, Text: NewText("x")},
					{Number: 1, Text: NewText("y")},
				}},
			}}),
			reason: "duplicate section number",
		},
		{
			name: "section without source text",
			tree: New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{
				{ID: "an1-1", Title: NewText("t"), Sections: []*Section{{Number: 1, Text: NewText("")}}},
			}}),
			reason: "no source text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tree.Validate()
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var ie *TreeIntegrityError
			if !errors.As(err, &ie) {
				t.Fatalf("Validate = %v, want *TreeIntegrityError", err)
			}
			if !strings.Contains(ie.Reason, tt.reason) {
				t.Errorf("reason %q does not mention %q", ie.Reason, tt.reason)
			}
		})
	}
}

func TestTreeWalkOrder(t *testing.T) {
	tree := New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{testChapter("an1-1")}})

	var visited []Path
	err := tree.Walk(func(p Path, _ *Text) error {
		visited = append(visited, p)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	// Chapter title first, sections ascending by number (title before text),
	// footer last. Declaration order of the sections must not leak through.
	want := []Path{
		"an1/an1-1#title",
		"an1/an1-1/1#text",
		"an1/an1-1/2#title",
		"an1/an1-1/2#text",
		"an1/an1-1#footer",
	}
	if len(visited) != len(want) {
		t.Fatalf("visited %d units, want %d: %v", len(visited), len(want), visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit %d = %s, want %s", i, visited[i], want[i])
		}
	}
}

func TestTreeWalkDeterministic(t *testing.T) {
	tree := New("anguttara",
		&Book{ID: "an1", Chapters: []*Chapter{testChapter("an1-1"), testChapter("an1-2")}},
		&Book{ID: "an2", Chapters: []*Chapter{testChapter("an2-1")}},
	)

	collect := func() []Path {
		var out []Path
		tree.Walk(func(p Path, _ *Text) error {
			out = append(out, p)
			return nil
		})
		return out
	}

	first := collect()
	for run := 0; run < 5; run++ {
		again := collect()
		for i := range first {
			if again[i] != first[i] {
				t.Fatalf("run %d diverged at %d: %s vs %s", run, i, again[i], first[i])
			}
		}
	}
}

func TestTreeResolve(t *testing.T) {
	tree := New("anguttara", &Book{ID: "an1", Chapters: []*Chapter{testChapter("an1-1")}})

	text, err := tree.Resolve(SectionPath("an1", "an1-1", 2, FieldText))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if text.Source != "Dutiyaṁ suttaṁ" {
		t.Errorf("resolved wrong unit: %q", text.Source)
	}

	if _, err := tree.Resolve(SectionPath("an1", "an1-1", 99, FieldText)); err == nil {
		t.Error("expected error for missing section")
	}
	if _, err := tree.Resolve(ChapterPath("an1", "nope", FieldTitle)); err == nil {
		t.Error("expected error for missing chapter")
	}
	if _, err := tree.Resolve(SectionPath("an1", "an1-1", 1, FieldTitle)); err == nil {
		t.Error("expected error for section without a title unit")
	}
}

func writeTestCorpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	ch := testChapter("an1-1")
	data, err := EncodeChapter(ch)
	if err != nil {
		t.Fatalf("EncodeChapter: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "an1-1.json"), data, 0644); err != nil {
		t.Fatal(err)
	}

	m := &Manifest{
		Collection: "anguttara",
		Books:      []ManifestBook{{ID: "an1", Name: "Ekakanipāta", Chapters: []string{"an1-1.json"}}},
	}
	if err := m.Save(dir); err != nil {
		t.Fatalf("saving manifest: %v", err)
	}
	return dir
}

func TestTreeLoadFlushRoundtrip(t *testing.T) {
	dir := writeTestCorpus(t)

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tree.Collection != "anguttara" {
		t.Errorf("collection = %q", tree.Collection)
	}

	p := SectionPath("an1", "an1-1", 1, FieldText)
	if err := tree.SetTranslation(p, LangEnglish, "The first discourse"); err != nil {
		t.Fatalf("SetTranslation: %v", err)
	}
	if err := tree.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded, err := Load(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	text, err := reloaded.Resolve(p)
	if err != nil {
		t.Fatalf("Resolve after reload: %v", err)
	}
	if text.Get(LangEnglish) != "The first discourse" {
		t.Errorf("translation lost across flush/load: %q", text.Get(LangEnglish))
	}
	// Untouched fields survive.
	if text.Source != "Paṭhamaṁ suttaṁ" {
		t.Errorf("source text changed: %q", text.Source)
	}
}

func TestTreeFlushOnlyDirtyChapters(t *testing.T) {
	dir := writeTestCorpus(t)

	// Add a second chapter that stays clean.
	ch2 := testChapter("an1-2")
	data, _ := EncodeChapter(ch2)
	os.WriteFile(filepath.Join(dir, "an1-2.json"), data, 0644)
	m, _ := LoadManifest(dir)
	m.Books[0].Chapters = append(m.Books[0].Chapters, "an1-2.json")
	m.Save(dir)

	tree, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cleanBefore, _ := os.Stat(filepath.Join(dir, "an1-2.json"))

	if err := tree.SetTranslation(ChapterPath("an1", "an1-1", FieldTitle), LangSinhala, "පළමු වග්ගය"); err != nil {
		t.Fatal(err)
	}
	if err := tree.Flush(); err != nil {
		t.Fatal(err)
	}

	cleanAfter, _ := os.Stat(filepath.Join(dir, "an1-2.json"))
	if cleanAfter.ModTime() != cleanBefore.ModTime() || cleanAfter.Size() != cleanBefore.Size() {
		t.Error("clean chapter file was rewritten")
	}
}

func TestDecodeChapterRejectsMissingID(t *testing.T) {
	if _, err := DecodeChapter([]byte(`{"title": {"source": "x"}, "sections": []}`)); err == nil {
		t.Error("expected error for chapter document without id")
	}
}

func TestSectionDocumentShape(t *testing.T) {
	ch := &Chapter{
		ID:    "an1-1",
		Title: &Text{Source: "Paṭhamavaggo", Translations: map[Lang]string{LangEnglish: "First Chapter"}},
		Sections: []*Section{
			{
				Number: 1,
				Text:   &Text{Source: "Paṭhamaṁ", Translations: map[Lang]string{LangSinhala: "පළමුවැන්න"}},
				Title:  &Text{Source: "Rūpādivaggo", Translations: map[Lang]string{LangEnglish: "Forms"}},
			},
		},
	}

	data, err := EncodeChapter(ch)
	if err != nil {
		t.Fatalf("EncodeChapter: %v", err)
	}

	doc := string(data)
	for _, key := range []string{`"source": "Paṭhamaṁ"`, `"si": "පළමුවැන්න"`, `"sourceTitle": "Rūpādivaggo"`, `"enTitle": "Forms"`} {
		if !strings.Contains(doc, key) {
			t.Errorf("document missing %s:\n%s", key, doc)
		}
	}
	// Pending translations are omitted, not written as empty strings.
	if strings.Contains(doc, `"en": ""`) || strings.Contains(doc, `"siTitle"`) {
		t.Errorf("document carries empty translation keys:\n%s", doc)
	}

	back, err := DecodeChapter(data)
	if err != nil {
		t.Fatalf("DecodeChapter: %v", err)
	}
	sec := back.Sections[0]
	if sec.Text.Source != "Paṭhamaṁ" || sec.Text.Get(LangSinhala) != "පළමුවැන්න" {
		t.Errorf("section body did not survive: %+v", sec.Text)
	}
	if sec.Title == nil || sec.Title.Source != "Rūpādivaggo" || sec.Title.Get(LangEnglish) != "Forms" {
		t.Errorf("section title did not survive: %+v", sec.Title)
	}
}

func TestSectionWithoutTitleStaysNil(t *testing.T) {
	data := []byte(`{"id": "c1", "title": {"source": "t"}, "sections": [{"number": 1, "source": "body"}]}`)
	ch, err := DecodeChapter(data)
	if err != nil {
		t.Fatalf("DecodeChapter: %v", err)
	}
	if ch.Sections[0].Title != nil {
		t.Errorf("expected nil title, got %+v", ch.Sections[0].Title)
	}
}
