// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package downloadclient provides the adapter contract for download backends
// and the qBittorrent and SABnzbd implementations.
package downloadclient

import (
	"context"

	"github.com/autobrr/fetcharr/internal/domain"
)

// Adapter is implemented once per download client vendor.
type Adapter interface {
	Name() string
	Protocol() domain.Protocol

	// Submit hands the release to the client and returns the client-side
	// download id used to correlate later status polls.
	Submit(ctx context.Context, remote domain.RemoteBook) (string, error)

	// GetItems returns a snapshot of every item the client currently holds
	// in fetcharr's category.
	GetItems(ctx context.Context) ([]domain.DownloadClientItem, error)

	// RemoveItem deletes one item, optionally with its downloaded data.
	RemoveItem(ctx context.Context, id string, deleteData bool) error
}
