package corpus

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The persisted chapter document flattens each translatable unit into its
// parent object: a unit's source text sits under "source" and each
// translation under its language code ("en", "si", …). Section titles use
// the "sourceTitle" / "<lang>Title" key family so a section object can carry
// both its body text and its heading.

// MarshalJSON flattens the unit into {"source": …, "<lang>": …}. Empty
// translations are omitted so pending units stay visibly pending on disk.
func (t *Text) MarshalJSON() ([]byte, error) {
	m := make(map[string]string, len(t.Translations)+1)
	m["source"] = t.Source
	for lang, s := range t.Translations {
		if s != "" {
			m[string(lang)] = s
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reads the flattened unit form; every key other than "source"
// is taken as a language code.
func (t *Text) UnmarshalJSON(data []byte) error {
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	t.Source = m["source"]
	t.Translations = make(map[Lang]string, len(m))
	for k, v := range m {
		if k == "source" || v == "" {
			continue
		}
		t.Translations[Lang(k)] = v
	}
	return nil
}

// MarshalJSON flattens both the section body and its optional title into one
// object: {"number": n, "source": …, "en": …, "sourceTitle": …, "enTitle": …}.
func (s *Section) MarshalJSON() ([]byte, error) {
	m := map[string]any{"number": s.Number}
	if s.Text != nil {
		m["source"] = s.Text.Source
		for lang, v := range s.Text.Translations {
			if v != "" {
				m[string(lang)] = v
			}
		}
	}
	if s.Title != nil {
		m["sourceTitle"] = s.Title.Source
		for lang, v := range s.Title.Translations {
			if v != "" {
				m[string(lang)+"Title"] = v
			}
		}
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON. Keys ending in "Title" belong to the
// section heading; the rest (minus "number" and "source") are body
// translations keyed by language code.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if num, ok := raw["number"]; ok {
		if err := json.Unmarshal(num, &s.Number); err != nil {
			return fmt.Errorf("section number: %w", err)
		}
	}

	body := NewText("")
	var title *Text

	for k, v := range raw {
		if k == "number" {
			continue
		}
		var str string
		if err := json.Unmarshal(v, &str); err != nil {
			return fmt.Errorf("section field %q: %w", k, err)
		}

		switch {
		case k == "source":
			body.Source = str
		case k == "sourceTitle":
			if title == nil {
				title = NewText("")
			}
			title.Source = str
		case strings.HasSuffix(k, "Title"):
			if title == nil {
				title = NewText("")
			}
			if str != "" {
				title.Set(Lang(strings.TrimSuffix(k, "Title")), str)
			}
		default:
			if str != "" {
				body.Set(Lang(k), str)
			}
		}
	}

	s.Text = body
	s.Title = title
	return nil
}

// chapterDoc is the wire shape of one chapter file.
type chapterDoc struct {
	ID       string     `json:"id"`
	Title    *Text      `json:"title"`
	Sections []*Section `json:"sections"`
	Footer   *Text      `json:"footer,omitempty"`
}

// EncodeChapter serialises a chapter to its persisted JSON document.
func EncodeChapter(c *Chapter) ([]byte, error) {
	doc := chapterDoc{ID: c.ID, Title: c.Title, Sections: c.Sections, Footer: c.Footer}
	return json.MarshalIndent(doc, "", "  ")
}

// DecodeChapter parses a persisted chapter document.
func DecodeChapter(data []byte) (*Chapter, error) {
	var doc chapterDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("chapter document missing id")
	}
	return &Chapter{ID: doc.ID, Title: doc.Title, Sections: doc.Sections, Footer: doc.Footer}, nil
}
