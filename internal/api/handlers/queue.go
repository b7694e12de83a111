// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/services/tracker"
)

type QueueHandler struct {
	tracker *tracker.Service
}

func NewQueueHandler(trk *tracker.Service) *QueueHandler {
	return &QueueHandler{tracker: trk}
}

func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	downloads := h.tracker.All()
	sort.Slice(downloads, func(i, j int) bool {
		return downloads[i].Added.Before(downloads[j].Added)
	})

	RespondJSON(w, http.StatusOK, downloads)
}

func (h *QueueHandler) Remove(w http.ResponseWriter, r *http.Request) {
	downloadID := chi.URLParam(r, "downloadID")
	if downloadID == "" {
		RespondError(w, http.StatusBadRequest, "Missing download id")
		return
	}

	deleteData := r.URL.Query().Get("deleteData") == "true"

	if err := h.tracker.RemoveItem(r.Context(), downloadID, deleteData); err != nil {
		log.Error().Err(err).Str("downloadId", downloadID).Msg("failed to remove download")
		RespondError(w, http.StatusInternalServerError, "Failed to remove download")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
