// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
)

// ErrNoClient is returned when no enabled client speaks the requested
// protocol. Callers queue the release instead of dropping it.
var ErrNoClient = errors.New("no download client available for protocol")

// Registry holds the enabled download client adapters built from
// configuration.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds one adapter per enabled download client config entry.
// Unknown client types are logged and skipped rather than failing startup.
func NewRegistry(log zerolog.Logger, configs []domain.DownloadClientConfig, timeout time.Duration) *Registry {
	r := &Registry{}
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		switch strings.ToLower(cfg.Type) {
		case "qbittorrent":
			r.adapters = append(r.adapters, NewQBittorrent(log, QBittorrentConfig{
				Name:     cfg.Name,
				Host:     cfg.URL,
				Username: cfg.Username,
				Password: cfg.Password,
				Category: cfg.Category,
				Timeout:  timeout,
			}))
		case "sabnzbd":
			r.adapters = append(r.adapters, NewSABnzbd(log, SABnzbdConfig{
				Name:     cfg.Name,
				Host:     cfg.URL,
				APIKey:   cfg.APIKey,
				Category: cfg.Category,
				Timeout:  timeout,
			}))
		default:
			log.Warn().Str("client", cfg.Name).Str("type", cfg.Type).
				Msg("unknown download client type, skipping")
			continue
		}
		log.Debug().Str("client", cfg.Name).Str("type", cfg.Type).
			Msg("registered download client")
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

// ForProtocol returns the first adapter speaking the given protocol, or nil.
func (r *Registry) ForProtocol(p domain.Protocol) Adapter {
	for _, a := range r.adapters {
		if a.Protocol() == p {
			return a
		}
	}
	return nil
}

// ByName returns the adapter with the given name, or nil.
func (r *Registry) ByName(name string) Adapter {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a
		}
	}
	return nil
}
