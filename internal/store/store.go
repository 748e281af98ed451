// Package store keeps a sqlite record of titles, chapters and saved pages.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"mangascout/internal/domain"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS titles (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	url        TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chapters (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	title_id   INTEGER NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
	url        TEXT NOT NULL UNIQUE,
	title      TEXT NOT NULL,
	saved_at   TEXT
);

CREATE TABLE IF NOT EXISTS pages (
	chapter_id INTEGER NOT NULL REFERENCES chapters(id) ON DELETE CASCADE,
	idx        INTEGER NOT NULL,
	url        TEXT NOT NULL,
	local_path TEXT NOT NULL,
	PRIMARY KEY (chapter_id, idx)
);
`

var _ domain.Store = (*Store)(nil)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "ensure data dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{`PRAGMA foreign_keys = ON;`, `PRAGMA journal_mode = WAL;`} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Wrapf(err, "exec %s", pragma)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// EnsureTitle returns the id of the title stored under url, creating it if
// needed. A changed name replaces the stored one.
func (s *Store) EnsureTitle(ctx context.Context, title, url string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO titles (url, title, created_at) VALUES (?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET title = excluded.title
		RETURNING id`, url, title, s.timestamp()).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "ensure title %s", url)
	}
	return id, nil
}

func (s *Store) EnsureChapter(ctx context.Context, titleID int64, title, url string) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chapters (title_id, url, title) VALUES (?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET title = excluded.title, title_id = excluded.title_id
		RETURNING id`, titleID, url, title).Scan(&id)
	if err != nil {
		return 0, errors.Wrapf(err, "ensure chapter %s", url)
	}
	return id, nil
}

// RecordPage stores where page index of a chapter was saved. Recording the same
// index again overwrites it.
func (s *Store) RecordPage(ctx context.Context, chapterID int64, index int, url, localPath string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (chapter_id, idx, url, local_path) VALUES (?, ?, ?, ?)
		ON CONFLICT (chapter_id, idx) DO UPDATE SET url = excluded.url, local_path = excluded.local_path`,
		chapterID, index, url, localPath)
	return errors.Wrapf(err, "record page %d of chapter %d", index, chapterID)
}

func (s *Store) MarkChapterSaved(ctx context.Context, chapterID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE chapters SET saved_at = ? WHERE id = ?`, s.timestamp(), chapterID)
	if err != nil {
		return errors.Wrapf(err, "mark chapter %d saved", chapterID)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return domain.NewError(domain.KindNotFound, "mark chapter saved", "", errors.Errorf("no chapter with id %d", chapterID))
	}
	return nil
}

// ChapterSaved reports whether the chapter at url has been fully saved before.
func (s *Store) ChapterSaved(ctx context.Context, url string) (bool, error) {
	var savedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT saved_at FROM chapters WHERE url = ?`, url).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "look up chapter %s", url)
	}
	return savedAt.Valid, nil
}

type Page struct {
	Index     int
	URL       string
	LocalPath string
}

// Pages lists the recorded pages of a chapter in sequence order.
func (s *Store) Pages(ctx context.Context, chapterID int64) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT idx, url, local_path FROM pages WHERE chapter_id = ? ORDER BY idx`, chapterID)
	if err != nil {
		return nil, errors.Wrapf(err, "list pages of chapter %d", chapterID)
	}
	defer rows.Close()

	var out []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.Index, &p.URL, &p.LocalPath); err != nil {
			return nil, errors.Wrap(err, "scan page")
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate pages")
}
