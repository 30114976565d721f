// Package store keeps versioned drafts of editing sessions in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/ivlev/coverstudio/internal/timeline"
	"github.com/ivlev/coverstudio/internal/typeid"
)

// ErrNotFound is returned when no draft matches.
var ErrNotFound = errors.New("draft not found")

// Store wraps the SQLite database.
type Store struct {
	DB *sql.DB
}

// Draft is one saved version of a project. Saving never edits a row; each
// save adds a new version.
type Draft struct {
	ID        string
	Name      string
	Version   int
	Project   *timeline.Project
	CreatedAt time.Time
}

// New opens (or creates) the database at path and ensures schema.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one writer keeps version numbering race-free
	db.SetMaxOpenConns(1)

	s := &Store{DB: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            version INTEGER NOT NULL,
            payload TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            UNIQUE(name, version)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_name ON drafts(name);`,
	}
	for _, stmt := range stmts {
		if _, err := s.DB.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// SaveDraft stores p as the next version of name.
func (s *Store) SaveDraft(ctx context.Context, name string, p *timeline.Project) (Draft, error) {
	if name == "" {
		return Draft{}, errors.New("draft name is required")
	}
	payload, err := yaml.Marshal(p)
	if err != nil {
		return Draft{}, fmt.Errorf("marshal draft: %w", err)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Draft{}, err
	}
	defer tx.Rollback()

	var version int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM drafts WHERE name=?;`, name).Scan(&version); err != nil {
		return Draft{}, err
	}
	d := Draft{
		ID:        typeid.NewDraftID(),
		Name:      name,
		Version:   version + 1,
		Project:   p,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO drafts (id, name, version, payload, created_at) VALUES (?, ?, ?, ?, ?);`,
		d.ID, d.Name, d.Version, string(payload), d.CreatedAt.UnixNano()); err != nil {
		return Draft{}, fmt.Errorf("insert draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

// LatestDraft returns the highest version of name.
func (s *Store) LatestDraft(ctx context.Context, name string) (Draft, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT id, name, version, payload, created_at FROM drafts WHERE name=? ORDER BY version DESC LIMIT 1;`, name)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return d, err
}

// Draft returns one draft by id.
func (s *Store) Draft(ctx context.Context, id string) (Draft, error) {
	if err := typeid.Validate(id, typeid.PrefixDraft); err != nil {
		return Draft{}, err
	}
	row := s.DB.QueryRowContext(ctx, `SELECT id, name, version, payload, created_at FROM drafts WHERE id=?;`, id)
	d, err := scanDraft(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return d, err
}

// ListDrafts returns the versions of name, newest first, up to limit.
// An empty name lists every draft.
func (s *Store) ListDrafts(ctx context.Context, name string, limit int) ([]Draft, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, version, payload, created_at FROM drafts
        WHERE ?='' OR name=? ORDER BY created_at DESC, version DESC LIMIT ?;`, name, name, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// PruneDrafts keeps the newest keep versions of name and returns how many
// were removed.
func (s *Store) PruneDrafts(ctx context.Context, name string, keep int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM drafts WHERE name=? AND version NOT IN (
        SELECT version FROM drafts WHERE name=? ORDER BY version DESC LIMIT ?);`, name, name, max(keep, 0))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (Draft, error) {
	var (
		d       Draft
		payload string
		created int64
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Version, &payload, &created); err != nil {
		return Draft{}, err
	}
	var p timeline.Project
	if err := yaml.Unmarshal([]byte(payload), &p); err != nil {
		return Draft{}, fmt.Errorf("unmarshal draft %s: %w", d.ID, err)
	}
	d.Project = &p
	d.CreatedAt = time.Unix(0, created).UTC()
	return d, nil
}
