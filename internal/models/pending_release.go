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
	"github.com/autobrr/fetcharr/internal/domain"
)

// PendingReleaseReason records why a release was queued instead of grabbed.
type PendingReleaseReason string

const (
	PendingReasonDelay             PendingReleaseReason = "delay"
	PendingReasonClientUnavailable PendingReleaseReason = "downloadClientUnavailable"
	PendingReasonFallback          PendingReleaseReason = "fallback"
)

// PendingRelease is one row of the persisted pending queue.
type PendingRelease struct {
	ID       int64                `json:"id"`
	AuthorID int64                `json:"authorId"`
	Title    string               `json:"title"`
	Remote   domain.RemoteBook    `json:"remote"`
	Reason   PendingReleaseReason `json:"reason"`
	AddedAt  time.Time            `json:"addedAt"`
}

// PendingReleaseStore persists the pending release queue.
type PendingReleaseStore struct {
	db dbinterface.Querier
}

func NewPendingReleaseStore(db dbinterface.Querier) *PendingReleaseStore {
	return &PendingReleaseStore{db: db}
}

// All returns every pending release, oldest first.
func (s *PendingReleaseStore) All(ctx context.Context) ([]*PendingRelease, error) {
	const query = `
		SELECT id, author_id, title, release_json, reason, added_at
		FROM pending_releases
		ORDER BY added_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending releases: %w", err)
	}
	defer rows.Close()

	return scanPendingReleases(rows)
}

// AllByAuthorID returns the pending releases queued for one author.
func (s *PendingReleaseStore) AllByAuthorID(ctx context.Context, authorID int64) ([]*PendingRelease, error) {
	const query = `
		SELECT id, author_id, title, release_json, reason, added_at
		FROM pending_releases
		WHERE author_id = ?
		ORDER BY added_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("list pending releases for author %d: %w", authorID, err)
	}
	defer rows.Close()

	return scanPendingReleases(rows)
}

// Insert stores a new pending release and returns it with its id and
// added_at populated.
func (s *PendingReleaseStore) Insert(ctx context.Context, pr *PendingRelease) (*PendingRelease, error) {
	if pr == nil {
		return nil, fmt.Errorf("pending release cannot be nil")
	}

	releaseJSON, err := json.Marshal(pr.Remote)
	if err != nil {
		return nil, fmt.Errorf("encode pending release: %w", err)
	}

	if pr.AddedAt.IsZero() {
		pr.AddedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO pending_releases (author_id, title, release_json, reason, added_at)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := s.db.ExecContext(ctx, query,
		pr.AuthorID, pr.Title, string(releaseJSON), string(pr.Reason), pr.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("insert pending release: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert pending release id: %w", err)
	}
	pr.ID = id

	return pr, nil
}

// Update rewrites the stored release payload and reason for an existing row.
func (s *PendingReleaseStore) Update(ctx context.Context, pr *PendingRelease) error {
	if pr == nil || pr.ID == 0 {
		return fmt.Errorf("pending release must have an id")
	}

	releaseJSON, err := json.Marshal(pr.Remote)
	if err != nil {
		return fmt.Errorf("encode pending release: %w", err)
	}

	const query = `
		UPDATE pending_releases
		SET title = ?, release_json = ?, reason = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, pr.Title, string(releaseJSON), string(pr.Reason), pr.ID)
	if err != nil {
		return fmt.Errorf("update pending release %d: %w", pr.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pending release %d not found", pr.ID)
	}

	return nil
}

// Delete removes one pending release by id.
func (s *PendingReleaseStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_releases WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete pending release %d: %w", id, err)
	}
	return nil
}

func scanPendingReleases(rows *sql.Rows) ([]*PendingRelease, error) {
	var result []*PendingRelease
	for rows.Next() {
		var (
			pr          PendingRelease
			releaseJSON string
			reason      string
		)
		if err := rows.Scan(&pr.ID, &pr.AuthorID, &pr.Title, &releaseJSON, &reason, &pr.AddedAt); err != nil {
			return nil, fmt.Errorf("scan pending release: %w", err)
		}
		if err := json.Unmarshal([]byte(releaseJSON), &pr.Remote); err != nil {
			return nil, fmt.Errorf("decode pending release %d: %w", pr.ID, err)
		}
		pr.Reason = PendingReleaseReason(reason)
		result = append(result, &pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending releases: %w", err)
	}
	return result, nil
}
