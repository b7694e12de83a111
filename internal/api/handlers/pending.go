// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/models"
)

type PendingHandler struct {
	store *models.PendingReleaseStore
}

func NewPendingHandler(store *models.PendingReleaseStore) *PendingHandler {
	return &PendingHandler{store: store}
}

func (h *PendingHandler) List(w http.ResponseWriter, r *http.Request) {
	releases, err := h.store.All(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending releases")
		RespondError(w, http.StatusInternalServerError, "Failed to load pending releases")
		return
	}

	RespondJSON(w, http.StatusOK, releases)
}
