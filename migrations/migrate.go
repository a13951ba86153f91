// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package migrations holds the goose migrations of the SQL key/value
// backends, one directory per dialect.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

// Dialect names a goose dialect with its own migration directory.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedMigrations embed.FS

var (
	// ErrNilDB is returned when Migrate is called without a connection.
	ErrNilDB = errors.New("db is nil")
	// ErrUnknownDialect is returned for a dialect without migrations.
	ErrUnknownDialect = errors.New("unknown dialect")
)

// Migrate applies all pending migrations of dialect to db.
func Migrate(db *sql.DB, dialect Dialect) error {
	if db == nil {
		return fmt.Errorf("migration error: %w", ErrNilDB)
	}

	var dir string
	switch dialect {
	case DialectSQLite:
		dir = "sqlite"
	case DialectPostgres:
		dir = "postgres"
	default:
		return fmt.Errorf("migration error: %w %q", ErrUnknownDialect, dialect)
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("migration error setting dialect for db: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	return nil
}
