// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
)

// Registry holds the enabled indexer adapters built from configuration.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds one adapter per enabled indexer config entry.
func NewRegistry(log zerolog.Logger, configs []domain.IndexerConfig, timeout time.Duration) *Registry {
	r := &Registry{}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		r.adapters = append(r.adapters, NewTorznab(TorznabConfig{
			Name:       cfg.Name,
			BaseURL:    cfg.URL,
			APIKey:     cfg.APIKey,
			Protocol:   domain.Protocol(cfg.Protocol),
			Priority:   cfg.Priority,
			Categories: cfg.Categories,
			Timeout:    timeout,
		}))
		log.Debug().Str("indexer", cfg.Name).Str("protocol", cfg.Protocol).
			Msg("registered indexer")
	}
	return r
}

// Register adds an adapter built outside the config path.
func (r *Registry) Register(a Adapter) {
	r.adapters = append(r.adapters, a)
}

// Adapters returns every registered adapter.
func (r *Registry) Adapters() []Adapter {
	return r.adapters
}
