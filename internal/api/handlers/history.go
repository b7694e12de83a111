// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/models"
)

type HistoryHandler struct {
	store *models.HistoryStore
}

func NewHistoryHandler(store *models.HistoryStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			RespondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.store.Recent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list history")
		RespondError(w, http.StatusInternalServerError, "Failed to load history")
		return
	}

	RespondJSON(w, http.StatusOK, entries)
}
