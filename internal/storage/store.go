// Package storage persists index snapshots to a workspace-local SQLite
// database. Each file's complete index travels as one JSON payload;
// definition and reference rows mirror the payload so the snapshot stays
// inspectable with plain SQL.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// Store reads and writes index snapshots.
type Store struct {
	db     *sql.DB
	ownsDB bool
}

// Open opens (or creates) the snapshot database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", path, err)
	}

	if err := checkSchemaVersion(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, ownsDB: true}, nil
}

// NewWithDB wraps an existing connection. The caller keeps ownership of
// the connection's lifecycle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying connection when the store owns it.
func (s *Store) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// Save replaces the stored snapshot with the given per-file indexes in
// one transaction. Files must already carry their resolutions.
func (s *Store) Save(ctx context.Context, root string, files []*semantic.FileIndex) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin save transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"refs", "definitions", "files"} {
		if _, err := sq.Delete(table).RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("storage: clearing %s: %w", table, err)
		}
	}

	for id, file := range files {
		if err := s.saveFile(ctx, tx, id, file); err != nil {
			return fmt.Errorf("storage: saving %s: %w", file.Path, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	meta := [][2]string{
		{"root", root},
		{"file_count", fmt.Sprintf("%d", len(files))},
		{"saved_at", now},
	}
	for _, kv := range meta {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			kv[0], kv[1], now,
		); err != nil {
			return fmt.Errorf("storage: writing meta %s: %w", kv[0], err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: committing snapshot: %w", err)
	}

	log.Debug().Int("files", len(files)).Dur("elapsed", time.Since(start)).Msg("snapshot saved")
	return nil
}

func (s *Store) saveFile(ctx context.Context, tx *sql.Tx, id int, file *semantic.FileIndex) error {
	payload, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	_, err = sq.Insert("files").
		Columns("id", "path", "module", "payload").
		Values(id, file.Path, strings.Join(file.Module, "."), payload).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("inserting file row: %w", err)
	}

	if len(file.Definitions) > 0 {
		insert := sq.Insert("definitions").
			Columns("file_id", "symbol_id", "name", "kind", "qualified_path", "start_line")
		for _, def := range file.Definitions {
			insert = insert.Values(id, def.ID, def.Name, def.Kind.String(), def.QualifiedPath(), def.Span.StartLine)
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting definition rows: %w", err)
		}
	}

	if len(file.References) > 0 {
		insert := sq.Insert("refs").
			Columns("file_id", "ref_id", "name", "shape", "state", "start_line", "targets")
		for _, ref := range file.References {
			name := ""
			if len(ref.Segments) > 0 {
				name = ref.Segments[len(ref.Segments)-1]
			}
			insert = insert.Values(
				id, ref.ID, name, ref.Shape.String(),
				ref.Resolution.State.String(), ref.Span.StartLine, len(ref.Resolution.Targets),
			)
		}
		if _, err := insert.RunWith(tx).ExecContext(ctx); err != nil {
			return fmt.Errorf("inserting reference rows: %w", err)
		}
	}
	return nil
}

// Load reads every stored file index back, ordered by file id so global
// ids reproduce the saved snapshot.
func (s *Store) Load(ctx context.Context) ([]*semantic.FileIndex, error) {
	rows, err := sq.Select("payload").
		From("files").
		OrderBy("id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: querying files: %w", err)
	}
	defer rows.Close()

	var files []*semantic.FileIndex
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("storage: scanning file row: %w", err)
		}
		var file semantic.FileIndex
		if err := json.Unmarshal(payload, &file); err != nil {
			return nil, fmt.Errorf("storage: decoding payload: %w", err)
		}
		files = append(files, &file)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterating file rows: %w", err)
	}
	return files, nil
}

// Meta returns a metadata value, or "" when absent.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("storage: reading meta %s: %w", key, err)
	}
	return value, nil
}

// Root returns the workspace root the snapshot was built from.
func (s *Store) Root(ctx context.Context) (string, error) {
	return s.Meta(ctx, "root")
}
