// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/downloadclient"
	"github.com/autobrr/fetcharr/internal/events"
)

// Importer hands a completed download to the import step. MarkImportBlocked
// failures keep the item alive for a retry without re-downloading.
type Importer interface {
	Import(ctx context.Context, td *domain.TrackedDownload) error
}

// Service tracks every live download across all download clients. Poll runs
// from a single loop, so per-item state transitions are naturally serialized;
// the mutex guards the map and the mutable fields of each entry against
// concurrent readers.
type Service struct {
	log      zerolog.Logger
	registry *downloadclient.Registry
	bus      *events.Bus
	detector *FailedDownloadDetector
	importer Importer

	mu      sync.RWMutex
	tracked map[string]*domain.TrackedDownload
}

func NewService(log zerolog.Logger, registry *downloadclient.Registry, bus *events.Bus,
	detector *FailedDownloadDetector, importer Importer,
) *Service {
	return &Service{
		log:      log.With().Str("component", "tracker").Logger(),
		registry: registry,
		bus:      bus,
		detector: detector,
		importer: importer,
		tracked:  make(map[string]*domain.TrackedDownload),
	}
}

// Track registers a fresh grab for lifecycle tracking. item is the client's
// first snapshot of the download when one is already available, nil otherwise.
func (s *Service) Track(remote domain.RemoteBook, downloadID, client string, protocol domain.Protocol, item *domain.DownloadClientItem) *domain.TrackedDownload {
	td := &domain.TrackedDownload{
		DownloadID: downloadID,
		Client:     client,
		Protocol:   protocol,
		State:      InitialState(item),
		Item:       item,
		Remote:     remote,
		Added:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.tracked[downloadID] = td
	s.mu.Unlock()

	s.log.Info().Str("downloadId", downloadID).Str("client", client).
		Str("release", remote.Release.Title).Msg("tracking download")
	return td
}

// All returns a snapshot of every live tracked download. Entries are copies;
// the poll loop keeps mutating the live records after the snapshot is taken.
func (s *Service) All() []*domain.TrackedDownload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.TrackedDownload, 0, len(s.tracked))
	for _, td := range s.tracked {
		cp := *td
		if td.Item != nil {
			item := *td.Item
			cp.Item = &item
		}
		out = append(out, &cp)
	}
	return out
}

// Poll refreshes every tracked download from its owning client and applies
// state transitions. One unreachable client skips only its own downloads.
func (s *Service) Poll(ctx context.Context) {
	for _, adapter := range s.registry.Adapters() {
		items, err := adapter.GetItems(ctx)
		if err != nil {
			s.log.Error().Err(err).Str("client", adapter.Name()).
				Msg("download client poll failed")
			continue
		}

		byID := make(map[string]*domain.DownloadClientItem, len(items))
		for i := range items {
			byID[items[i].DownloadID] = &items[i]
		}

		for _, td := range s.clientDownloads(adapter.Name()) {
			s.reconcile(ctx, td, byID[td.DownloadID])
		}
	}
}

func (s *Service) clientDownloads(client string) []*domain.TrackedDownload {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.TrackedDownload
	for _, td := range s.tracked {
		if td.Client == client {
			out = append(out, td)
		}
	}
	return out
}

func (s *Service) reconcile(ctx context.Context, td *domain.TrackedDownload, item *domain.DownloadClientItem) {
	s.mu.Lock()
	previous := td.State
	td.Item = item
	if item != nil && item.Message != "" {
		td.StatusText = item.Message
	}
	td.State = NextState(previous, item)
	next := td.State
	s.mu.Unlock()

	if next != previous {
		s.log.Debug().Str("downloadId", td.DownloadID).
			Str("from", string(previous)).Str("to", string(next)).
			Msg("tracked download state changed")
	}

	// Event handlers run synchronously and may call back into the service,
	// so the lock is never held across detection or import.
	switch next {
	case domain.TrackedDownloadFailedPending:
		if message, ok := s.detector.ProcessFailed(td); ok {
			s.setState(td, domain.TrackedDownloadFailed, message)
			next = domain.TrackedDownloadFailed
		}
	case domain.TrackedImporting:
		next = s.runImport(ctx, td)
	}

	if next.Terminal() {
		s.forget(td.DownloadID)
	}
}

func (s *Service) setState(td *domain.TrackedDownload, state domain.TrackedDownloadState, statusText string) {
	s.mu.Lock()
	td.State = state
	if statusText != "" {
		td.StatusText = statusText
	}
	s.mu.Unlock()
}

func (s *Service) runImport(ctx context.Context, td *domain.TrackedDownload) domain.TrackedDownloadState {
	if s.importer == nil {
		return td.State
	}
	if err := s.importer.Import(ctx, td); err != nil {
		s.log.Error().Err(err).Str("downloadId", td.DownloadID).
			Str("release", td.Remote.Release.Title).Msg("import failed")
		s.setState(td, domain.TrackedImportBlocked, err.Error())
		return domain.TrackedImportBlocked
	}

	s.setState(td, domain.TrackedImported, "")
	s.bus.PublishDownloadCompleted(events.DownloadCompletedEvent{
		DownloadID: td.DownloadID,
		Remote:     td.Remote,
	})
	return domain.TrackedImported
}

// RemoveItem deletes the client-side item for a tracked download. It is an
// explicit operation separate from state transitions; reaching a terminal
// state never deletes data by itself.
func (s *Service) RemoveItem(ctx context.Context, downloadID string, deleteData bool) error {
	s.mu.RLock()
	td, ok := s.tracked[downloadID]
	s.mu.RUnlock()

	var client downloadclient.Adapter
	if ok {
		client = s.registry.ByName(td.Client)
	}
	if client == nil {
		// Already forgotten; try every client so terminal downloads can still
		// be cleaned up.
		for _, adapter := range s.registry.Adapters() {
			if err := adapter.RemoveItem(ctx, downloadID, deleteData); err == nil {
				return nil
			}
		}
		return nil
	}

	return client.RemoveItem(ctx, downloadID, deleteData)
}

func (s *Service) forget(downloadID string) {
	s.mu.Lock()
	delete(s.tracked, downloadID)
	s.mu.Unlock()
}

// Run polls on the configured interval until the context is cancelled. Ticks
// never overlap; a slow poll delays the next one.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Poll(ctx)
		}
	}
}
