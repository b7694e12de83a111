// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package tracker

import (
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/events"
)

// FailedDownloadDetector decides when a failure-pending download is truly
// failed and publishes the failure event. Because it only fires on pending
// items and the tracker immediately applies the terminal state, exactly one
// failure event fires per failed download.
type FailedDownloadDetector struct {
	log zerolog.Logger
	bus *events.Bus
}

func NewFailedDownloadDetector(log zerolog.Logger, bus *events.Bus) *FailedDownloadDetector {
	return &FailedDownloadDetector{
		log: log.With().Str("component", "failedDownloadDetector").Logger(),
		bus: bus,
	}
}

// ProcessFailed finalizes a failure-pending download. Returns the failure
// message and true when detection fired on this call; the caller applies the
// terminal state.
func (d *FailedDownloadDetector) ProcessFailed(td *domain.TrackedDownload) (string, bool) {
	if td == nil || td.State != domain.TrackedDownloadFailedPending {
		return "", false
	}

	message := "download failed"
	if td.Item != nil {
		switch {
		case td.Item.IsEncrypted:
			message = "download is encrypted"
		case td.Item.Message != "":
			message = td.Item.Message
		}
	}

	d.log.Warn().Str("downloadId", td.DownloadID).Str("release", td.Remote.Release.Title).
		Str("reason", message).Msg("download failed")

	d.bus.PublishDownloadFailed(events.DownloadFailedEvent{
		DownloadID: td.DownloadID,
		Remote:     td.Remote,
		Message:    message,
	})

	return message, true
}
