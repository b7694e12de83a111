// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

// DownloadItemStatus is the status a download client reports for one item.
type DownloadItemStatus string

const (
	DownloadItemQueued      DownloadItemStatus = "queued"
	DownloadItemPaused      DownloadItemStatus = "paused"
	DownloadItemDownloading DownloadItemStatus = "downloading"
	DownloadItemCompleted   DownloadItemStatus = "completed"
	DownloadItemFailed      DownloadItemStatus = "failed"
	DownloadItemWarning     DownloadItemStatus = "warning"
)

// DownloadClientItem is a refreshed-every-poll snapshot of one item inside an
// external download client. Read-only for the tracking core.
type DownloadClientItem struct {
	DownloadID    string             `json:"downloadId"`
	Title         string             `json:"title"`
	Status        DownloadItemStatus `json:"status"`
	TotalSize     int64              `json:"totalSize"`
	RemainingSize int64              `json:"remainingSize"`
	RemainingTime time.Duration      `json:"remainingTime"`
	OutputPath    string             `json:"outputPath,omitempty"`
	IsEncrypted   bool               `json:"isEncrypted,omitempty"`
	Message       string             `json:"message,omitempty"`
}

// TrackedDownloadState is the internal lifecycle state of one grab.
type TrackedDownloadState string

const (
	TrackedDownloading           TrackedDownloadState = "downloading"
	TrackedDownloadFailedPending TrackedDownloadState = "downloadFailedPending"
	TrackedDownloadFailed        TrackedDownloadState = "downloadFailed"
	TrackedImporting             TrackedDownloadState = "importing"
	TrackedImportBlocked         TrackedDownloadState = "importBlocked"
	TrackedImported              TrackedDownloadState = "imported"
	TrackedFailedPending         TrackedDownloadState = "failedPending"
	TrackedIgnored               TrackedDownloadState = "ignored"
)

// Terminal reports whether no further snapshot can change the state.
func (s TrackedDownloadState) Terminal() bool {
	switch s {
	case TrackedImported, TrackedDownloadFailed, TrackedIgnored:
		return true
	}
	return false
}

// TrackedDownload correlates one grab with one external download-client item.
type TrackedDownload struct {
	DownloadID string               `json:"downloadId"`
	Client     string               `json:"client"`
	Protocol   Protocol             `json:"protocol"`
	State      TrackedDownloadState `json:"state"`
	Remote     RemoteBook           `json:"remote"`
	Item       *DownloadClientItem  `json:"item,omitempty"`
	StatusText string               `json:"statusText,omitempty"`
	Added      time.Time            `json:"added"`
}
