package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SchemaVersion is bumped whenever the snapshot layout changes. A version
// mismatch on open means the index must be rebuilt, not migrated.
const SchemaVersion = "1"

// ErrSchemaMismatch reports a snapshot written by an incompatible version.
var ErrSchemaMismatch = errors.New("storage: snapshot schema version mismatch")

const createMetaTable = `
CREATE TABLE IF NOT EXISTS meta (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const createFilesTable = `
CREATE TABLE IF NOT EXISTS files (
	id      INTEGER PRIMARY KEY,
	path    TEXT NOT NULL UNIQUE,
	module  TEXT NOT NULL,
	payload BLOB NOT NULL
)`

// definitions and refs mirror the payload for SQL-level inspection and
// keep the symbol search index cheap to rebuild. The payload blob is the
// source of truth on load.
const createDefinitionsTable = `
CREATE TABLE IF NOT EXISTS definitions (
	file_id        INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	symbol_id      INTEGER NOT NULL,
	name           TEXT NOT NULL,
	kind           TEXT NOT NULL,
	qualified_path TEXT NOT NULL,
	start_line     INTEGER NOT NULL,
	PRIMARY KEY (file_id, symbol_id)
)`

const createRefsTable = `
CREATE TABLE IF NOT EXISTS refs (
	file_id    INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	ref_id     INTEGER NOT NULL,
	name       TEXT NOT NULL,
	shape      TEXT NOT NULL,
	state      TEXT NOT NULL,
	start_line INTEGER NOT NULL,
	targets    INTEGER NOT NULL,
	PRIMARY KEY (file_id, ref_id)
)`

var schemaIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_definitions_name ON definitions(name)`,
	`CREATE INDEX IF NOT EXISTS idx_definitions_path ON definitions(qualified_path)`,
	`CREATE INDEX IF NOT EXISTS idx_refs_state ON refs(state)`,
}

// CreateSchema creates all tables and indexes inside one transaction and
// stamps the schema version.
func CreateSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("storage: begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("storage: enabling foreign keys: %w", err)
	}

	for _, ddl := range []string{createMetaTable, createFilesTable, createDefinitionsTable, createRefsTable} {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("storage: creating table: %w", err)
		}
	}
	for _, ddl := range schemaIndexes {
		if _, err := tx.Exec(ddl); err != nil {
			return fmt.Errorf("storage: creating index: %w", err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := tx.Exec(
		`INSERT OR IGNORE INTO meta (key, value, updated_at) VALUES ('schema_version', ?, ?)`,
		SchemaVersion, now,
	); err != nil {
		return fmt.Errorf("storage: stamping schema version: %w", err)
	}

	return tx.Commit()
}

// checkSchemaVersion verifies a non-empty database was written by this
// layout. A fresh database passes.
func checkSchemaVersion(db *sql.DB) error {
	var exists int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'meta'`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("storage: checking meta table: %w", err)
	}
	if exists == 0 {
		return nil
	}

	var version string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("storage: reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("%w: have %s, want %s", ErrSchemaMismatch, version, SchemaVersion)
	}
	return nil
}
