// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package failed handles the aftermath of a failed download: blocklist the
// release, record history, clean up the client and trigger a replacement
// search.
package failed

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/events"
	"github.com/autobrr/fetcharr/internal/models"
)

// Remover removes a failed item from its download client.
type Remover interface {
	RemoveItem(ctx context.Context, downloadID string, deleteData bool) error
}

// Handler consumes DownloadFailedEvents. Register subscribes it on the bus.
type Handler struct {
	log        zerolog.Logger
	blocklist  *models.BlocklistStore
	history    *models.HistoryStore
	remover    Remover
	researcher func(ctx context.Context, ev events.DownloadFailedEvent)

	deleteFailedData bool
}

func NewHandler(log zerolog.Logger, blocklist *models.BlocklistStore, history *models.HistoryStore,
	remover Remover, researcher func(ctx context.Context, ev events.DownloadFailedEvent),
	deleteFailedData bool,
) *Handler {
	return &Handler{
		log:              log.With().Str("component", "failed").Logger(),
		blocklist:        blocklist,
		history:          history,
		remover:          remover,
		researcher:       researcher,
		deleteFailedData: deleteFailedData,
	}
}

// Register subscribes the handler to failure events on the bus.
func (h *Handler) Register(bus *events.Bus) {
	bus.OnDownloadFailed(func(ev events.DownloadFailedEvent) {
		h.Handle(context.Background(), ev)
	})
}

// Handle blocklists the failed release, records the failure, removes the
// client item and kicks off the replacement search. Each step is best-effort
// so one broken store cannot stop the cleanup of the rest.
func (h *Handler) Handle(ctx context.Context, ev events.DownloadFailedEvent) {
	release := ev.Remote.Release

	if err := h.blocklist.Add(ctx, &models.BlocklistEntry{
		SourceTitle: release.Title,
		Indexer:     release.Indexer,
		AuthorID:    ev.Remote.Author.ID,
		Message:     ev.Message,
		Size:        release.Size,
		Protocol:    release.Protocol,
	}); err != nil {
		h.log.Error().Err(err).Str("release", release.Title).Msg("blocklisting failed release failed")
	}

	if err := h.history.Add(ctx, &models.HistoryEntry{
		EventType:   models.HistoryEventDownloadFailed,
		DownloadID:  ev.DownloadID,
		SourceTitle: release.Title,
		AuthorID:    ev.Remote.Author.ID,
		BookIDs:     ev.Remote.BookIDs(),
		Data:        map[string]string{"message": ev.Message},
	}); err != nil {
		h.log.Error().Err(err).Str("downloadId", ev.DownloadID).Msg("recording failure history failed")
	}

	if h.remover != nil {
		if err := h.remover.RemoveItem(ctx, ev.DownloadID, h.deleteFailedData); err != nil {
			h.log.Warn().Err(err).Str("downloadId", ev.DownloadID).
				Msg("removing failed item from client failed")
		}
	}

	h.log.Info().Str("release", release.Title).Str("message", ev.Message).
		Msg("handled failed download")

	if h.researcher != nil {
		h.researcher(ctx, ev)
	}
}
