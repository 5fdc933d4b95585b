// Package store is the relational sink for the corpus plus the pipeline's
// durable helpers: a bulk loader that mirrors the tree into queryable
// collection/book/chapter/section tables with a full-text index kept in sync
// by triggers, a translation memory consulted before provider calls, and the
// glossary of fixed term translations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
	_ "modernc.org/sqlite"

	"github.com/DishanH/Pali-sub001/internal/corpus"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and applies the
// schema. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS collections (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS books (
		id TEXT PRIMARY KEY,
		collection_id INTEGER NOT NULL,
		name TEXT,
		position INTEGER NOT NULL,
		FOREIGN KEY (collection_id) REFERENCES collections(id)
	);

	CREATE TABLE IF NOT EXISTS chapters (
		id TEXT PRIMARY KEY,
		book_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		title_source TEXT NOT NULL,
		title_en TEXT,
		title_si TEXT,
		footer_source TEXT,
		footer_en TEXT,
		footer_si TEXT,
		FOREIGN KEY (book_id) REFERENCES books(id)
	);

	CREATE TABLE IF NOT EXISTS sections (
		chapter_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		source TEXT NOT NULL,
		en TEXT,
		si TEXT,
		title_source TEXT,
		title_en TEXT,
		title_si TEXT,
		PRIMARY KEY (chapter_id, number),
		FOREIGN KEY (chapter_id) REFERENCES chapters(id)
	);

	CREATE VIRTUAL TABLE IF NOT EXISTS sections_fts USING fts5(
		source, en, si,
		content='sections',
		content_rowid='rowid'
	);

	-- Keep the full-text index in sync with section content.
	CREATE TRIGGER IF NOT EXISTS sections_fts_insert AFTER INSERT ON sections BEGIN
		INSERT INTO sections_fts(rowid, source, en, si)
		VALUES (new.rowid, new.source, new.en, new.si);
	END;

	CREATE TRIGGER IF NOT EXISTS sections_fts_delete AFTER DELETE ON sections BEGIN
		INSERT INTO sections_fts(sections_fts, rowid, source, en, si)
		VALUES ('delete', old.rowid, old.source, old.en, old.si);
	END;

	CREATE TRIGGER IF NOT EXISTS sections_fts_update AFTER UPDATE ON sections BEGIN
		INSERT INTO sections_fts(sections_fts, rowid, source, en, si)
		VALUES ('delete', old.rowid, old.source, old.en, old.si);
		INSERT INTO sections_fts(rowid, source, en, si)
		VALUES (new.rowid, new.source, new.en, new.si);
	END;

	CREATE TABLE IF NOT EXISTS translation_memory (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_text TEXT NOT NULL,
		target_lang TEXT NOT NULL,
		final_text TEXT NOT NULL,
		provider TEXT,
		usage_count INTEGER DEFAULT 1,
		invalidated BOOLEAN DEFAULT FALSE,
		last_used TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(source_text, target_lang)
	);

	CREATE TABLE IF NOT EXISTS glossary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_lang TEXT NOT NULL,
		source_term TEXT NOT NULL,
		target_term TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(target_lang, source_term)
	);

	CREATE INDEX IF NOT EXISTS idx_memory_lookup ON translation_memory(source_text, target_lang);
	CREATE INDEX IF NOT EXISTS idx_sections_chapter ON sections(chapter_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LoadStats reports what a bulk load wrote.
type LoadStats struct {
	Books    int
	Chapters int
	Sections int
}

// LoadTree mirrors the whole tree into the relational schema in one
// transaction. Existing rows for the same identities are updated in place,
// so the load is idempotent. Updates must not use REPLACE: conflict
// resolution deletes the old row without firing the DELETE trigger, which
// would leave orphaned entries in the external-content FTS index. The
// upserts fire the UPDATE trigger instead and keep section rowids stable.
func (s *Store) LoadTree(ctx context.Context, tree *corpus.Tree) (*LoadStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var collectionID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO collections (name) VALUES (?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name
		 RETURNING id`,
		tree.Collection).Scan(&collectionID)
	if err != nil {
		return nil, fmt.Errorf("upserting collection: %w", err)
	}

	stats := &LoadStats{}
	for bi, b := range tree.Books {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO books (id, collection_id, name, position) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   collection_id = excluded.collection_id,
			   name = excluded.name,
			   position = excluded.position`,
			b.ID, collectionID, b.Name, bi)
		if err != nil {
			return nil, fmt.Errorf("loading book %s: %w", b.ID, err)
		}
		stats.Books++

		for ci, c := range b.Chapters {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO chapters
				 (id, book_id, position, title_source, title_en, title_si, footer_source, footer_en, footer_si)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT(id) DO UPDATE SET
				   book_id = excluded.book_id,
				   position = excluded.position,
				   title_source = excluded.title_source,
				   title_en = excluded.title_en,
				   title_si = excluded.title_si,
				   footer_source = excluded.footer_source,
				   footer_en = excluded.footer_en,
				   footer_si = excluded.footer_si`,
				c.ID, b.ID, ci,
				c.Title.Source, c.Title.Get(corpus.LangEnglish), c.Title.Get(corpus.LangSinhala),
				footerField(c, func(t *corpus.Text) string { return t.Source }),
				footerField(c, func(t *corpus.Text) string { return t.Get(corpus.LangEnglish) }),
				footerField(c, func(t *corpus.Text) string { return t.Get(corpus.LangSinhala) }))
			if err != nil {
				return nil, fmt.Errorf("loading chapter %s: %w", c.ID, err)
			}
			stats.Chapters++

			for _, sec := range c.Sections {
				var titleSource, titleEn, titleSi string
				if sec.Title != nil {
					titleSource = sec.Title.Source
					titleEn = sec.Title.Get(corpus.LangEnglish)
					titleSi = sec.Title.Get(corpus.LangSinhala)
				}
				_, err := tx.ExecContext(ctx,
					`INSERT INTO sections
					 (chapter_id, number, source, en, si, title_source, title_en, title_si)
					 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
					 ON CONFLICT(chapter_id, number) DO UPDATE SET
					   source = excluded.source,
					   en = excluded.en,
					   si = excluded.si,
					   title_source = excluded.title_source,
					   title_en = excluded.title_en,
					   title_si = excluded.title_si`,
					c.ID, sec.Number,
					sec.Text.Source, sec.Text.Get(corpus.LangEnglish), sec.Text.Get(corpus.LangSinhala),
					titleSource, titleEn, titleSi)
				if err != nil {
					return nil, fmt.Errorf("loading section %s/%d: %w", c.ID, sec.Number, err)
				}
				stats.Sections++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return stats, nil
}

func footerField(c *corpus.Chapter, get func(*corpus.Text) string) string {
	if c.Footer == nil {
		return ""
	}
	return get(c.Footer)
}

// SectionHit is one full-text search result.
type SectionHit struct {
	ChapterID string
	Number    int
	Source    string
	English   string
	Sinhala   string
}

// SearchSections runs an FTS5 match over section content.
func (s *Store) SearchSections(ctx context.Context, query string, limit int) ([]SectionHit, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT sec.chapter_id, sec.number, sec.source, COALESCE(sec.en, ''), COALESCE(sec.si, '')
		 FROM sections_fts fts
		 JOIN sections sec ON sec.rowid = fts.rowid
		 WHERE sections_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SectionHit
	for rows.Next() {
		var h SectionHit
		if err := rows.Scan(&h.ChapterID, &h.Number, &h.Source, &h.English, &h.Sinhala); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetCachedTranslation returns the remembered translation for a source text
// and target language, bumping its usage count on a hit.
func (s *Store) GetCachedTranslation(ctx context.Context, sourceText, targetLang string) (string, bool, error) {
	var finalText string
	var invalidated bool

	err := s.db.QueryRowContext(ctx,
		`SELECT final_text, invalidated FROM translation_memory WHERE source_text = ? AND target_lang = ?`,
		normalizeText(sourceText), targetLang).Scan(&finalText, &invalidated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if invalidated {
		return "", false, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE translation_memory SET usage_count = usage_count + 1, last_used = ? WHERE source_text = ? AND target_lang = ?`,
		time.Now(), normalizeText(sourceText), targetLang)

	return finalText, true, err
}

// SaveToMemory stores a validated translation for future sessions.
func (s *Store) SaveToMemory(ctx context.Context, sourceText, targetLang, finalText, provider string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translation_memory (source_text, target_lang, final_text, provider, usage_count, invalidated, last_used)
		 VALUES (?, ?, ?, ?, 1, FALSE, ?)
		 ON CONFLICT(source_text, target_lang) DO UPDATE SET
		   final_text = excluded.final_text,
		   provider = excluded.provider,
		   invalidated = FALSE,
		   last_used = excluded.last_used`,
		normalizeText(sourceText), targetLang, finalText, provider, time.Now())
	return err
}

// MemoryEntry is a row from the translation_memory table.
type MemoryEntry struct {
	ID          int64
	SourceText  string
	TargetLang  string
	FinalText   string
	Provider    string
	UsageCount  int
	Invalidated bool
	LastUsed    time.Time
}

// MemoryStats summarises translation memory usage.
type MemoryStats struct {
	TotalEntries   int
	ActiveEntries  int
	InvalidEntries int
	TotalUsage     int
}

// ListMemory returns all memory entries ordered by most recently used.
func (s *Store) ListMemory(ctx context.Context) ([]MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_text, target_lang, final_text, COALESCE(provider, ''), usage_count, invalidated, last_used
		 FROM translation_memory ORDER BY last_used DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []MemoryEntry
	for rows.Next() {
		var e MemoryEntry
		if err := rows.Scan(&e.ID, &e.SourceText, &e.TargetLang, &e.FinalText, &e.Provider, &e.UsageCount, &e.Invalidated, &e.LastUsed); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// InvalidateMemory marks one entry as no longer trustworthy without losing
// the audit trail.
func (s *Store) InvalidateMemory(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE translation_memory SET invalidated = TRUE WHERE id = ?`, id)
	return err
}

// ClearMemory removes all translation memory entries.
func (s *Store) ClearMemory(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM translation_memory`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns summary statistics for the translation memory.
func (s *Store) Stats(ctx context.Context) (*MemoryStats, error) {
	stats := &MemoryStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN NOT invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN invalidated THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(usage_count), 0)
		FROM translation_memory`).Scan(
		&stats.TotalEntries,
		&stats.ActiveEntries,
		&stats.InvalidEntries,
		&stats.TotalUsage,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// GlossaryEntry represents a row in the glossary table.
type GlossaryEntry struct {
	ID         int64
	TargetLang string
	SourceTerm string
	TargetTerm string
	CreatedAt  time.Time
}

// AddGlossaryTerm inserts or replaces a glossary entry.
func (s *Store) AddGlossaryTerm(ctx context.Context, targetLang, sourceTerm, targetTerm string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO glossary (target_lang, source_term, target_term) VALUES (?, ?, ?)
		 ON CONFLICT(target_lang, source_term) DO UPDATE SET target_term = excluded.target_term`,
		targetLang, sourceTerm, targetTerm)
	return err
}

// GetGlossaryTerms returns the term map for a target language, ready to
// embed in a provider prompt.
func (s *Store) GetGlossaryTerms(ctx context.Context, targetLang string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_term, target_term FROM glossary WHERE target_lang = ?`, targetLang)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	terms := make(map[string]string)
	for rows.Next() {
		var src, tgt string
		if err := rows.Scan(&src, &tgt); err != nil {
			return nil, err
		}
		terms[src] = tgt
	}
	return terms, rows.Err()
}

// ListGlossaryTerms returns all glossary entries, optionally filtered by
// target language (pass "" for everything).
func (s *Store) ListGlossaryTerms(ctx context.Context, targetLang string) ([]GlossaryEntry, error) {
	query := `SELECT id, target_lang, source_term, target_term, created_at FROM glossary`
	var args []any
	if targetLang != "" {
		query += ` WHERE target_lang = ?`
		args = append(args, targetLang)
	}
	query += ` ORDER BY target_lang, source_term`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.ID, &e.TargetLang, &e.SourceTerm, &e.TargetTerm, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteGlossaryTerm removes a glossary entry by ID.
func (s *Store) DeleteGlossaryTerm(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM glossary WHERE id = ?`, id)
	return err
}

// normalizeText trims whitespace and applies Unicode NFC normalization for
// consistent memory key comparison.
func normalizeText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
