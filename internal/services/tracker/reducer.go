// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package tracker reconciles download-client item snapshots into the tracked
// download lifecycle and raises failure and completion events.
package tracker

import "github.com/autobrr/fetcharr/internal/domain"

// NextState computes the tracked state following a fresh snapshot. It is a
// pure function; polling mechanics and event publishing live elsewhere. A nil
// item means the client no longer lists the download.
func NextState(current domain.TrackedDownloadState, item *domain.DownloadClientItem) domain.TrackedDownloadState {
	if current.Terminal() {
		return current
	}

	if item == nil {
		// Disappearing mid-import means the import finished and the item was
		// cleaned up; disappearing any other time is a failure.
		if current == domain.TrackedImporting {
			return domain.TrackedImported
		}
		return domain.TrackedDownloadFailedPending
	}

	if item.IsEncrypted || item.Status == domain.DownloadItemFailed {
		return domain.TrackedDownloadFailedPending
	}

	switch item.Status {
	case domain.DownloadItemCompleted:
		// Import trouble is owned by MarkImportBlocked, not by snapshots.
		if current == domain.TrackedImportBlocked || current == domain.TrackedFailedPending {
			return current
		}
		return domain.TrackedImporting
	case domain.DownloadItemWarning:
		return current
	default:
		return domain.TrackedDownloading
	}
}

// InitialState assigns the state for a freshly created tracked download from
// its first snapshot, or Downloading when the client has no snapshot yet.
func InitialState(item *domain.DownloadClientItem) domain.TrackedDownloadState {
	if item == nil {
		return domain.TrackedDownloading
	}
	return NextState(domain.TrackedDownloading, item)
}
