/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package archive is the local store for parse results: one JSON document
// per normalized script plus an embedded SQLite catalog for listing and
// search. Documents are written transactionally (tmp file + rename) with a
// timestamped backup of any previous version. The archive persists the
// parser's output; it knows nothing about parsing itself.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "screenwright/internal/log"
	"screenwright/internal/screenplay"
	"screenwright/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	ScriptsDirName = "scripts"
	BackupsDirName = "backups"
	CatalogName    = "catalog.sqlite"

	// schemaVersion tracks the catalog schema. Bump on breaking changes and
	// add a migration in ensureSchema.
	schemaVersion = 1
)

// Entry is one catalog row.
type Entry struct {
	ID         string
	Filename   string
	Title      string
	Format     string
	Scenes     int
	Characters int
	Confidence float64
	Blocked    bool
	CreatedAt  time.Time
}

// Archive wraps the storage root and the open catalog.
type Archive struct {
	Root string
	db   *sql.DB
	log  *slog.Logger
}

// Open prepares the archive directory tree and the catalog database,
// creating both when absent. The returned Archive must be closed.
func Open(root string) (*Archive, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("archive root is required")
	}
	l := applog.WithOperation(applog.WithComponent("archive"), "open").With(slog.String("root", root))
	for _, d := range []string{root, filepath.Join(root, ScriptsDirName), filepath.Join(root, BackupsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir %s: %w", d, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(filepath.Join(root, CatalogName)))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure catalog schema failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("archive ready")
	return &Archive{Root: root, db: db, log: applog.WithComponent("archive")}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS scripts (
			id          TEXT PRIMARY KEY,
			filename    TEXT NOT NULL,
			title       TEXT,
			format      TEXT NOT NULL,
			scenes      INTEGER NOT NULL,
			characters  INTEGER NOT NULL,
			confidence  REAL NOT NULL,
			blocked     INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_scripts_title ON scripts(title);`,
		`CREATE INDEX IF NOT EXISTS idx_scripts_created ON scripts(created_at);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema version: %w", err)
	case curSchema < schemaVersion:
		// Future migrations hook in here.
		if _, err := db.ExecContext(ctx, `UPDATE version SET schema=?, app=?, updated_at=? WHERE id=1`, schemaVersion, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// Save stores a parsed script and catalogs it. The id is derived from the
// original filename plus the parse timestamp, so re-uploads of the same file
// archive as separate records; the blocked flag is taken from the caller's
// quality verdict since the archive does not re-assess scripts.
func (a *Archive) Save(ctx context.Context, s *screenplay.NormalizedScript, blocked bool) (string, error) {
	if s == nil {
		return "", errors.New("nil script")
	}
	id := makeID(s)
	docPath := a.DocumentPath(id)

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal script: %w", err)
	}
	data = append(data, '\n')

	if err := writeTransactional(docPath, data, filepath.Join(a.Root, BackupsDirName)); err != nil {
		return "", err
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scripts (id, filename, title, format, scenes, characters, confidence, blocked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.Meta.OriginalFilename, s.Title, string(s.Format),
		len(s.Scenes), len(s.Characters), s.Meta.Confidence, boolInt(blocked),
		s.Meta.ParsedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("catalog insert: %w", err)
	}
	a.log.Info("script archived", slog.String("id", id), slog.Int("scenes", len(s.Scenes)))
	return id, nil
}

// Get loads one archived script by id.
func (a *Archive) Get(id string) (*screenplay.NormalizedScript, error) {
	b, err := os.ReadFile(a.DocumentPath(id))
	if err != nil {
		return nil, fmt.Errorf("read archived script: %w", err)
	}
	var s screenplay.NormalizedScript
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse archived script: %w", err)
	}
	return &s, nil
}

// List returns catalog entries, newest first.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	return a.query(ctx, `SELECT id, filename, title, format, scenes, characters, confidence, blocked, created_at
		FROM scripts ORDER BY created_at DESC`)
}

// Search matches a term against title and filename, newest first.
func (a *Archive) Search(ctx context.Context, term string) ([]Entry, error) {
	like := "%" + strings.TrimSpace(term) + "%"
	return a.query(ctx, `SELECT id, filename, title, format, scenes, characters, confidence, blocked, created_at
		FROM scripts WHERE title LIKE ? OR filename LIKE ? ORDER BY created_at DESC`, like, like)
}

func (a *Archive) query(ctx context.Context, q string, args ...any) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("catalog query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var title sql.NullString
		var blocked int
		var created string
		if err := rows.Scan(&e.ID, &e.Filename, &title, &e.Format, &e.Scenes, &e.Characters, &e.Confidence, &blocked, &created); err != nil {
			return nil, fmt.Errorf("catalog scan: %w", err)
		}
		e.Title = title.String
		e.Blocked = blocked != 0
		e.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// DocumentPath returns the JSON document path for an id.
func (a *Archive) DocumentPath(id string) string {
	return filepath.Join(a.Root, ScriptsDirName, id+".json")
}

// writeTransactional writes via tmp+rename, keeping a timestamped backup of
// any previous content.
func writeTransactional(path string, data []byte, backupDir string) error {
	if prev, err := os.ReadFile(path); err == nil {
		stamp := time.Now().UTC().Format("20060102-150405.000000000")
		bpath := filepath.Join(backupDir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if werr := os.WriteFile(bpath, prev, 0o644); werr != nil {
			return fmt.Errorf("write backup: %w", werr)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp doc: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace doc: %w", err)
	}
	return nil
}

func makeID(s *screenplay.NormalizedScript) string {
	base := strings.TrimSuffix(filepath.Base(s.Meta.OriginalFilename), filepath.Ext(s.Meta.OriginalFilename))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "script"
	}
	return base + "-" + s.Meta.ParsedAt.UTC().Format("20060102-150405")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
