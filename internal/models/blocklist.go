// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/autobrr/fetcharr/internal/dbinterface"
	"github.com/autobrr/fetcharr/internal/domain"
)

// BlocklistEntry marks a release that failed and must not be grabbed again.
type BlocklistEntry struct {
	ID          int64           `json:"id"`
	SourceTitle string          `json:"sourceTitle"`
	Indexer     string          `json:"indexer,omitempty"`
	AuthorID    int64           `json:"authorId,omitempty"`
	Message     string          `json:"message,omitempty"`
	Size        int64           `json:"size"`
	Protocol    domain.Protocol `json:"protocol"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// BlocklistStore persists failed releases so they are skipped on re-search.
type BlocklistStore struct {
	db dbinterface.Querier
}

func NewBlocklistStore(db dbinterface.Querier) *BlocklistStore {
	return &BlocklistStore{db: db}
}

// Add inserts a blocklist row.
func (s *BlocklistStore) Add(ctx context.Context, entry *BlocklistEntry) error {
	if entry == nil {
		return fmt.Errorf("blocklist entry cannot be nil")
	}
	if entry.SourceTitle == "" {
		return fmt.Errorf("blocklist entry needs a source title")
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO blocklist (source_title, indexer, author_id, message, size, protocol, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		entry.SourceTitle,
		nullString(entry.Indexer),
		nullInt64(entry.AuthorID),
		nullString(entry.Message),
		entry.Size,
		string(entry.Protocol),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert blocklist entry: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}

	return nil
}

// Blocked reports whether a release matches a blocklist row. Torrent releases
// match on title alone; usenet releases also compare size so a repacked upload
// under the same name can still be grabbed.
func (s *BlocklistStore) Blocked(ctx context.Context, release domain.ReleaseInfo) (bool, error) {
	const query = `
		SELECT size, protocol FROM blocklist WHERE source_title = ?
	`
	rows, err := s.db.QueryContext(ctx, query, release.Title)
	if err != nil {
		return false, fmt.Errorf("check blocklist: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			size     int64
			protocol string
		)
		if err := rows.Scan(&size, &protocol); err != nil {
			return false, fmt.Errorf("scan blocklist entry: %w", err)
		}

		if domain.Protocol(protocol) == domain.ProtocolUsenet && release.Protocol == domain.ProtocolUsenet {
			if size > 0 && release.Size > 0 && !sizesClose(size, release.Size) {
				continue
			}
		}
		return true, nil
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate blocklist: %w", err)
	}

	return false, nil
}

// All returns every blocklist row, newest first.
func (s *BlocklistStore) All(ctx context.Context) ([]*BlocklistEntry, error) {
	const query = `
		SELECT id, source_title, indexer, author_id, message, size, protocol, created_at
		FROM blocklist
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list blocklist: %w", err)
	}
	defer rows.Close()

	var result []*BlocklistEntry
	for rows.Next() {
		var (
			entry    BlocklistEntry
			indexer  sql.NullString
			authorID sql.NullInt64
			message  sql.NullString
			protocol string
		)
		if err := rows.Scan(&entry.ID, &entry.SourceTitle, &indexer, &authorID,
			&message, &entry.Size, &protocol, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan blocklist entry: %w", err)
		}
		entry.Indexer = indexer.String
		entry.AuthorID = authorID.Int64
		entry.Message = message.String
		entry.Protocol = domain.Protocol(protocol)
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate blocklist: %w", err)
	}

	return result, nil
}

// Delete removes one blocklist row by id.
func (s *BlocklistStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blocklist WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete blocklist entry %d: %w", id, err)
	}
	return nil
}

// sizesClose allows a 2% size drift before treating two uploads as distinct.
func sizesClose(a, b int64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff*50 <= a
}
