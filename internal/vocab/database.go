/*
Copyright (c) 2025 Lingua Labs

Licensed under the AGPLv3 License.
This file is part of lingua-hub.
*/

// Package vocab is the durable record of transcripts, flagged unknown
// words, and the growing validated vocabulary, plus the corrector that
// rewrites transcripts against that vocabulary.
package vocab

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lingualabs/lingua-hub/internal/logging"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFiles embed.FS

// Database wraps the SQLite connection. It has an explicit lifecycle:
// opened at startup, closed at shutdown, passed to collaborators that
// need it.
type Database struct {
	db   *sql.DB
	path string
}

// OpenDatabase opens (creating if needed) the SQLite database at path and
// runs schema migration.
func OpenDatabase(path string) (*Database, error) {
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure SQLite: %w", err)
	}

	database := &Database{
		db:   db,
		path: path,
	}

	if err := database.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Sugar.Infow("Database connected", "path", path)
	return database, nil
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o750)
}

// configureSQLite sets pragmas suited to a single-writer transcription
// loop with an occasional second writer (validation).
func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %q: %w", pragma, err)
		}
	}

	return nil
}

func (d *Database) migrate() error {
	schemaSQL, err := schemaFiles.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}

	if _, err := d.db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// DB returns the underlying sql.DB instance.
func (d *Database) DB() *sql.DB {
	return d.db
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.path
}

// Ping tests the database connection.
func (d *Database) Ping() error {
	return d.db.Ping()
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db != nil {
		logging.Sugar.Infow("Closing database connection", "path", d.path)
		return d.db.Close()
	}
	return nil
}
