// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/fetcharr/internal/domain"
)

func TestParseTitle_AuthorAndBook(t *testing.T) {
	t.Parallel()

	p := New()
	info := p.ParseTitle("Brandon Sanderson - The Way of Kings (2010) EPUB")

	assert.Equal(t, "Brandon Sanderson", info.AuthorName)
	assert.Equal(t, "The Way of Kings", info.BookTitle)
	assert.Equal(t, domain.QualityEPUB, info.Quality)
	assert.Equal(t, 2010, info.Year)
	assert.False(t, info.Discography)
}

func TestParseTitle_Quality(t *testing.T) {
	t.Parallel()

	tests := []struct {
		title string
		want  domain.Quality
	}{
		{"Author - Book EPUB", domain.QualityEPUB},
		{"Author - Book [MOBI]", domain.QualityMOBI},
		{"Author - Book AZW3", domain.QualityAZW3},
		{"Author - Book.pdf", domain.QualityPDF},
		{"Author - Book MP3-320", domain.QualityMP3320},
		{"Author - Book [FLAC]", domain.QualityFLAC},
		{"Author - Book FLAC MP3", domain.QualityFLAC},
		{"Author - Book", domain.QualityUnknown},
	}

	p := New()
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.ParseTitle(tt.title).Quality, tt.title)
	}
}

func TestParseTitle_Revision(t *testing.T) {
	t.Parallel()

	p := New()
	assert.Equal(t, 1, p.ParseTitle("Author - Book EPUB").Revision)
	assert.Equal(t, 2, p.ParseTitle("Author - Book PROPER EPUB").Revision)
	assert.Equal(t, 2, p.ParseTitle("Author - Book REPACK EPUB").Revision)
	assert.Equal(t, 3, p.ParseTitle("Author - Book PROPER REPACK EPUB").Revision)
}

func TestParseTitle_Discography(t *testing.T) {
	t.Parallel()

	p := New()
	assert.True(t, p.ParseTitle("Terry Pratchett Discography EPUB").Discography)
	assert.True(t, p.ParseTitle("Terry Pratchett Complete Works Collection").Discography)
	assert.False(t, p.ParseTitle("Terry Pratchett - Mort EPUB").Discography)
}

func TestParseTitle_Cached(t *testing.T) {
	t.Parallel()

	p := New()
	title := "Ursula K. Le Guin - The Dispossessed EPUB"
	first := p.ParseTitle(title)
	second := p.ParseTitle(title)
	assert.Equal(t, first, second)
}

func TestParseTitle_GarbageTitle(t *testing.T) {
	t.Parallel()

	p := New()
	info := p.ParseTitle("!!!")
	assert.Equal(t, "!!!", info.Title)
	assert.Equal(t, domain.QualityUnknown, info.Quality)
}
