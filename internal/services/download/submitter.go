// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package download turns winning candidates into grabs: it submits the
// release to a download client, records history and starts lifecycle
// tracking.
package download

import (
	"context"
	"time"

	"github.com/avast/retry-go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/downloadclient"
	"github.com/autobrr/fetcharr/internal/events"
	"github.com/autobrr/fetcharr/internal/models"
	"github.com/autobrr/fetcharr/internal/services/tracker"
)

// Submitter submits winning candidates to download clients.
type Submitter struct {
	log      zerolog.Logger
	registry *downloadclient.Registry
	tracker  *tracker.Service
	history  *models.HistoryStore
	bus      *events.Bus
}

func NewSubmitter(log zerolog.Logger, registry *downloadclient.Registry, trk *tracker.Service,
	history *models.HistoryStore, bus *events.Bus,
) *Submitter {
	return &Submitter{
		log:      log.With().Str("component", "submitter").Logger(),
		registry: registry,
		tracker:  trk,
		history:  history,
		bus:      bus,
	}
}

// Grab submits the candidate, records a history row, registers the tracked
// download and publishes the grab event, in that order.
func (s *Submitter) Grab(ctx context.Context, d domain.CandidateDecision) error {
	remote := d.Remote
	client := s.registry.ForProtocol(remote.Release.Protocol)
	if client == nil {
		return errors.Wrapf(downloadclient.ErrNoClient, "protocol %s", remote.Release.Protocol)
	}

	var downloadID string
	err := retry.Do(
		func() error {
			var submitErr error
			downloadID, submitErr = client.Submit(ctx, remote)
			return submitErr
		},
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return errors.Wrapf(err, "submit %s to %s", remote.Release.Title, client.Name())
	}

	s.log.Info().Str("release", remote.Release.Title).Str("client", client.Name()).
		Str("downloadId", downloadID).Msg("grabbed release")

	if err := s.history.Add(ctx, &models.HistoryEntry{
		EventType:   models.HistoryEventGrabbed,
		DownloadID:  downloadID,
		SourceTitle: remote.Release.Title,
		AuthorID:    remote.Author.ID,
		BookIDs:     remote.BookIDs(),
		Data: map[string]string{
			"indexer":  remote.Release.Indexer,
			"protocol": string(remote.Release.Protocol),
			"client":   client.Name(),
		},
	}); err != nil {
		// History is best-effort; the grab already happened.
		s.log.Error().Err(err).Str("release", remote.Release.Title).
			Msg("recording grab history failed")
	}

	// The client has not listed the download yet at submit time, so there is
	// no first snapshot; the tracker starts it as downloading.
	s.tracker.Track(remote, downloadID, client.Name(), remote.Release.Protocol, nil)

	s.bus.PublishGrab(events.GrabEvent{
		Remote:     remote,
		DownloadID: downloadID,
		Client:     client.Name(),
	})

	return nil
}
