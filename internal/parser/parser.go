// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package parser normalizes raw release titles into ParsedReleaseInfo using
// rls for the heavy lifting plus book-specific quality and edition detection.
package parser

import (
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"github.com/moistari/rls"

	"github.com/autobrr/fetcharr/internal/domain"
)

// cacheTTL bounds how long a parsed title stays cached. Titles repeat across
// indexers and across poll cycles, so the cache hit rate is high.
const cacheTTL = 15 * time.Minute

// Parser turns release titles into ParsedReleaseInfo. Safe for concurrent use.
type Parser struct {
	cache *ttlcache.Cache[string, domain.ParsedReleaseInfo]
}

func New() *Parser {
	return &Parser{
		cache: ttlcache.New(ttlcache.Options[string, domain.ParsedReleaseInfo]{}.
			SetDefaultTTL(cacheTTL)),
	}
}

// ParseTitle parses a raw release title. It never fails; titles that defeat
// parsing produce a ParsedReleaseInfo with empty guesses and QualityUnknown.
func (p *Parser) ParseTitle(title string) domain.ParsedReleaseInfo {
	if cached, ok := p.cache.Get(title); ok {
		return cached
	}

	parsed := parseTitle(title)
	p.cache.Set(title, parsed, cacheTTL)
	return parsed
}

func parseTitle(title string) domain.ParsedReleaseInfo {
	r := rls.ParseString(title)

	info := domain.ParsedReleaseInfo{
		Title:        title,
		ReleaseGroup: strings.TrimSpace(r.Group),
		Year:         r.Year,
		Quality:      detectQuality(title),
		Revision:     detectRevision(title),
		Discography:  detectDiscography(title),
	}

	// Book releases are conventionally "Author - Title [metadata]". rls is
	// tuned for video and music scene names, so split the author off the raw
	// title and fall back to rls guesses when the convention is absent.
	author, book := splitAuthorTitle(title)
	if author == "" {
		author = strings.TrimSpace(r.Artist)
	}
	if book == "" {
		book = strings.TrimSpace(r.Title)
	}
	info.AuthorName = author
	info.BookTitle = book

	return info
}

// splitAuthorTitle splits "Author - Title (Year) FORMAT" on the first " - "
// separator, after cutting off bracketed or parenthesized metadata.
func splitAuthorTitle(title string) (author, book string) {
	head := title
	if i := strings.IndexAny(head, "(["); i >= 0 {
		head = head[:i]
	}
	author, book, ok := strings.Cut(head, " - ")
	if !ok {
		return "", ""
	}
	return strings.TrimSpace(author), strings.TrimSpace(trimTrailingMetadata(book))
}

// trimTrailingMetadata drops trailing format, revision and year tokens left
// over after the bracket cut, e.g. "Mort EPUB PROPER" -> "Mort".
func trimTrailingMetadata(s string) string {
	fields := strings.Fields(s)
	for len(fields) > 0 {
		last := strings.ToLower(strings.Trim(fields[len(fields)-1], ".,-"))
		if !isMetadataToken(last) {
			break
		}
		fields = fields[:len(fields)-1]
	}
	return strings.Join(fields, " ")
}

func isMetadataToken(token string) bool {
	switch token {
	case "proper", "repack", "retail", "unabridged", "abridged":
		return true
	}
	for _, qt := range qualityTokens {
		if token == qt.token {
			return true
		}
	}
	if len(token) == 4 && token >= "1900" && token <= "2099" {
		return true
	}
	return false
}

// qualityTokens maps title tokens to qualities, checked in declaration order
// so lossless audio outranks the generic MP3 token.
var qualityTokens = []struct {
	token   string
	quality domain.Quality
}{
	{"flac", domain.QualityFLAC},
	{"mp3-320", domain.QualityMP3320},
	{"mp3 320", domain.QualityMP3320},
	{"320kbps", domain.QualityMP3320},
	{"mp3", domain.QualityMP3320},
	{"m4b", domain.QualityMP3320},
	{"epub", domain.QualityEPUB},
	{"azw3", domain.QualityAZW3},
	{"azw", domain.QualityAZW3},
	{"mobi", domain.QualityMOBI},
	{"pdf", domain.QualityPDF},
}

func detectQuality(title string) domain.Quality {
	lower := strings.ToLower(title)
	for _, qt := range qualityTokens {
		if strings.Contains(lower, qt.token) {
			return qt.quality
		}
	}
	return domain.QualityUnknown
}

// detectRevision returns 1 for an original release, 2+ for proper/repack.
func detectRevision(title string) int {
	lower := strings.ToLower(title)
	revision := 1
	if strings.Contains(lower, "proper") {
		revision++
	}
	if strings.Contains(lower, "repack") {
		revision++
	}
	return revision
}

var discographyTokens = []string{
	"discography",
	"collection",
	"anthology",
	"complete works",
	"bibliography",
	"omnibus",
}

func detectDiscography(title string) bool {
	lower := strings.ToLower(title)
	for _, token := range discographyTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
