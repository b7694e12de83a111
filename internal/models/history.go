// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autobrr/fetcharr/internal/dbinterface"
)

// HistoryEventType classifies a history row.
type HistoryEventType string

const (
	HistoryEventGrabbed        HistoryEventType = "grabbed"
	HistoryEventImported       HistoryEventType = "imported"
	HistoryEventDownloadFailed HistoryEventType = "downloadFailed"
	HistoryEventIgnored        HistoryEventType = "ignored"
)

// HistoryEntry records one acquisition lifecycle event.
type HistoryEntry struct {
	ID          int64             `json:"id"`
	EventType   HistoryEventType  `json:"eventType"`
	DownloadID  string            `json:"downloadId,omitempty"`
	SourceTitle string            `json:"sourceTitle"`
	AuthorID    int64             `json:"authorId,omitempty"`
	BookIDs     []int64           `json:"bookIds,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// HistoryStore persists acquisition history.
type HistoryStore struct {
	db dbinterface.Querier
}

func NewHistoryStore(db dbinterface.Querier) *HistoryStore {
	return &HistoryStore{db: db}
}

// Add appends a history row.
func (s *HistoryStore) Add(ctx context.Context, entry *HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history entry cannot be nil")
	}
	if entry.SourceTitle == "" {
		return fmt.Errorf("history entry needs a source title")
	}

	bookIDs, err := json.Marshal(entry.BookIDs)
	if err != nil {
		return fmt.Errorf("encode history book ids: %w", err)
	}
	data, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("encode history data: %w", err)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO history (event_type, download_id, source_title, author_id, book_ids, data_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		string(entry.EventType),
		nullString(entry.DownloadID),
		entry.SourceTitle,
		nullInt64(entry.AuthorID),
		string(bookIDs),
		string(data),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}

	return nil
}

// Recent returns the newest history rows, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	const query = `
		SELECT id, event_type, download_id, source_title, author_id, book_ids, data_json, created_at
		FROM history
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// ByDownloadID returns all history rows sharing a download id, oldest first.
func (s *HistoryStore) ByDownloadID(ctx context.Context, downloadID string) ([]*HistoryEntry, error) {
	const query = `
		SELECT id, event_type, download_id, source_title, author_id, book_ids, data_json, created_at
		FROM history
		WHERE download_id = ?
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, downloadID)
	if err != nil {
		return nil, fmt.Errorf("list history for download %s: %w", downloadID, err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

func scanHistory(rows *sql.Rows) ([]*HistoryEntry, error) {
	var result []*HistoryEntry
	for rows.Next() {
		var (
			entry      HistoryEntry
			eventType  string
			downloadID sql.NullString
			authorID   sql.NullInt64
			bookIDs    sql.NullString
			data       sql.NullString
		)
		if err := rows.Scan(&entry.ID, &eventType, &downloadID, &entry.SourceTitle,
			&authorID, &bookIDs, &data, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}

		entry.EventType = HistoryEventType(eventType)
		entry.DownloadID = downloadID.String
		entry.AuthorID = authorID.Int64
		if bookIDs.Valid && bookIDs.String != "" {
			if err := json.Unmarshal([]byte(bookIDs.String), &entry.BookIDs); err != nil {
				return nil, fmt.Errorf("decode history book ids: %w", err)
			}
		}
		if data.Valid && data.String != "" {
			if err := json.Unmarshal([]byte(data.String), &entry.Data); err != nil {
				return nil, fmt.Errorf("decode history data: %w", err)
			}
		}

		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
