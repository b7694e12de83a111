// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package indexer provides the adapter contract for release providers and the
// Torznab/Newznab implementation.
package indexer

import (
	"context"

	"github.com/autobrr/fetcharr/internal/domain"
)

// SearchCriteria describes one search request handed to every adapter.
type SearchCriteria struct {
	Author string
	Book   string
}

// Query returns the free-text query string sent to the indexer.
func (c SearchCriteria) Query() string {
	if c.Book == "" {
		return c.Author
	}
	return c.Author + " " + c.Book
}

// Adapter is implemented once per indexer vendor. Search must respect the
// context deadline and may fail independently of other adapters.
type Adapter interface {
	Name() string
	Protocol() domain.Protocol
	Priority() int
	Search(ctx context.Context, criteria SearchCriteria) ([]domain.ReleaseInfo, error)
}
