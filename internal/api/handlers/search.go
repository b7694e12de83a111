// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/services/search"
)

type SearchHandler struct {
	search *search.Service
}

func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{search: svc}
}

// Trigger kicks off a full search cycle in the background and returns
// immediately.
func (h *SearchHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Interface("panic", rec).Msg("manual search cycle panicked")
			}
		}()
		h.search.SearchAll(context.Background())
	}()

	RespondJSON(w, http.StatusAccepted, map[string]string{"status": "search started"})
}
