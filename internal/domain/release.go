// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

// Protocol identifies how a release is transferred.
type Protocol string

const (
	ProtocolUnknown Protocol = ""
	ProtocolUsenet  Protocol = "usenet"
	ProtocolTorrent Protocol = "torrent"
)

// ReleaseInfo is the indexer-supplied description of one candidate release.
// Instances are produced by indexer adapters and treated as read-only by the
// acquisition core.
type ReleaseInfo struct {
	GUID            string    `json:"guid"`
	Title           string    `json:"title"`
	Size            int64     `json:"size"`
	PublishDate     time.Time `json:"publishDate"`
	Protocol        Protocol  `json:"protocol"`
	Indexer         string    `json:"indexer"`
	IndexerID       int       `json:"indexerId"`
	IndexerPriority int       `json:"indexerPriority"`
	DownloadURL     string    `json:"downloadUrl"`
	InfoURL         string    `json:"infoUrl,omitempty"`
	Seeders         int       `json:"seeders,omitempty"`
	Peers           int       `json:"peers,omitempty"`
}

// Age returns how long ago the release was published.
func (r ReleaseInfo) Age() time.Duration {
	if r.PublishDate.IsZero() {
		return 0
	}
	return time.Since(r.PublishDate)
}

// ParsedReleaseInfo is the normalized view of a release title produced by the
// parser. Guessed fields may be empty when the title gave nothing to work with.
type ParsedReleaseInfo struct {
	Title        string  `json:"title"`
	AuthorName   string  `json:"authorName"`
	BookTitle    string  `json:"bookTitle"`
	Quality      Quality `json:"quality"`
	Revision     int     `json:"revision"`
	Discography  bool    `json:"discography"`
	ReleaseGroup string  `json:"releaseGroup,omitempty"`
	Year         int     `json:"year,omitempty"`
}

// Author is the canonical catalog entity a search runs for.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Book is one wanted work belonging to an author.
type Book struct {
	ID       int64  `json:"id"`
	AuthorID int64  `json:"authorId"`
	Title    string `json:"title"`
}

// WantedItem is one author plus the books the search cycle tries to fulfil
// for them.
type WantedItem struct {
	Author Author `json:"author"`
	Books  []Book `json:"books"`
}

// RemoteBook pairs a release with the catalog entities it was matched to.
type RemoteBook struct {
	Author  Author            `json:"author"`
	Books   []Book            `json:"books"`
	Release ReleaseInfo       `json:"release"`
	Parsed  ParsedReleaseInfo `json:"parsed"`
}

// BookIDs returns the ids of all matched books.
func (r RemoteBook) BookIDs() []int64 {
	ids := make([]int64, 0, len(r.Books))
	for _, b := range r.Books {
		ids = append(ids, b.ID)
	}
	return ids
}

// OverlapsBooks reports whether the remote's book set shares any id with ids.
func (r RemoteBook) OverlapsBooks(ids []int64) bool {
	for _, b := range r.Books {
		for _, id := range ids {
			if b.ID == id {
				return true
			}
		}
	}
	return false
}

// DelayProfile configures per-protocol grab delays and an optional protocol
// preference used as a comparator key.
type DelayProfile struct {
	Name              string        `json:"name"`
	PreferredProtocol Protocol      `json:"preferredProtocol,omitempty"`
	UsenetDelay       time.Duration `json:"usenetDelay"`
	TorrentDelay      time.Duration `json:"torrentDelay"`
}

// DelayFor returns the configured grab delay for the given protocol.
func (d DelayProfile) DelayFor(p Protocol) time.Duration {
	switch p {
	case ProtocolUsenet:
		return d.UsenetDelay
	case ProtocolTorrent:
		return d.TorrentDelay
	default:
		return 0
	}
}

// IsPreferredProtocol reports whether p matches the profile's preference.
// A profile without a preference treats every protocol as preferred.
func (d DelayProfile) IsPreferredProtocol(p Protocol) bool {
	return d.PreferredProtocol == ProtocolUnknown || d.PreferredProtocol == p
}
