// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package database opens the sqlite database backing pending releases,
// history and the blocklist, and applies schema migrations on startup.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle. It satisfies dbinterface.Querier.
type DB struct {
	*sql.DB
}

// Open opens (creating if necessary) the database at dataDir/fetcharr.db and
// migrates it to the current schema.
func Open(dataDir string) (*DB, error) {
	path := filepath.Join(dataDir, "fetcharr.db")

	dsn := fmt.Sprintf("file:%s?%s", path, url.Values{
		"_pragma": []string{
			"busy_timeout(5000)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
			"foreign_keys(ON)",
		},
	}.Encode())

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// modernc sqlite is single-writer; keep one connection to avoid
	// SQLITE_BUSY between the poll loops.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{DB: sqlDB}
	if err := db.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

// OpenMemory opens an in-memory database with the full schema. Used by tests.
func OpenMemory() (*DB, error) {
	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB}
	if err := db.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrations run in order; user_version tracks the last applied index.
var migrations = []string{
	`
	CREATE TABLE pending_releases (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id     INTEGER NOT NULL,
		title         TEXT NOT NULL,
		release_json  TEXT NOT NULL,
		reason        TEXT NOT NULL,
		added_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_pending_releases_author ON pending_releases(author_id);

	CREATE TABLE history (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type   TEXT NOT NULL,
		download_id  TEXT,
		source_title TEXT NOT NULL,
		author_id    INTEGER,
		book_ids     TEXT,
		data_json    TEXT,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_history_download ON history(download_id);
	CREATE INDEX idx_history_created ON history(created_at);

	CREATE TABLE blocklist (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		source_title TEXT NOT NULL,
		indexer      TEXT,
		author_id    INTEGER,
		message      TEXT,
		size         INTEGER NOT NULL DEFAULT 0,
		protocol     TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_blocklist_title ON blocklist(source_title);
	`,
}

func (db *DB) migrate(ctx context.Context) error {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build supports (%d)", version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		start := time.Now()

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", i+1, err)
		}

		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}

		// PRAGMA does not accept bind parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("bump schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", i+1, err)
		}

		log.Debug().Int("version", i+1).Dur("elapsed", time.Since(start)).
			Msg("applied database migration")
	}

	return nil
}
