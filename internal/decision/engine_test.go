// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package decision

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/parser"
)

type fakeBlocklist struct {
	blocked map[string]bool
}

func (f *fakeBlocklist) Blocked(_ context.Context, release domain.ReleaseInfo) (bool, error) {
	return f.blocked[release.Title], nil
}

func testEngine(t *testing.T, block *fakeBlocklist, delay domain.DelayProfile, minimumAge time.Duration) *Engine {
	t.Helper()

	scorer, err := NewFormatScorer(nil)
	require.NoError(t, err)

	return NewEngine(zerolog.Nop(), parser.New(), scorer, block,
		domain.DefaultQualityProfile(), delay, minimumAge)
}

var wantedBooks = []domain.Book{
	{ID: 11, AuthorID: 1, Title: "The Way of Kings"},
	{ID: 12, AuthorID: 1, Title: "Words of Radiance"},
}

var wantedAuthor = domain.Author{ID: 1, Name: "Brandon Sanderson"}

func release(title string, protocol domain.Protocol, age time.Duration) domain.ReleaseInfo {
	return domain.ReleaseInfo{
		GUID:        "guid-" + title,
		Title:       title,
		Protocol:    protocol,
		PublishDate: time.Now().Add(-age),
		Size:        10 * 1024 * 1024,
	}
}

func TestEvaluate_ApprovesMatchingRelease(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - The Way of Kings EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.True(t, d.Approved(), "rejections: %v", d.Rejections)
	require.Len(t, d.Remote.Books, 1)
	assert.Equal(t, int64(11), d.Remote.Books[0].ID)
	assert.Equal(t, domain.QualityEPUB, d.Remote.Parsed.Quality)
}

func TestEvaluate_ToleratesCorruptedTitle(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sandersson - The Way of Kings EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Approved(), "rejections: %v", decisions[0].Rejections)
}

func TestEvaluate_DropsUnrelatedRelease(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Stephen King - The Shining EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	assert.Empty(t, decisions, "releases naming another author are noise")
}

func TestEvaluate_DropsAuthorEmbeddedMidWord(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	author := domain.Author{ID: 2, Name: "Art"}
	books := []domain.Book{{ID: 21, AuthorID: 2, Title: "Art of War"}}

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Heartland Stories Collection EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, author, books)

	assert.Empty(t, decisions, "author name inside another word is not a match")
}

func TestEvaluate_FindsAuthorPastEmbeddedOccurrence(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	author := domain.Author{ID: 2, Name: "Art"}
	books := []domain.Book{{ID: 21, AuthorID: 2, Title: "Art of War"}}

	// "Art" first appears inside "Heart"; the whole-word occurrence later in
	// the title must still count.
	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Heart - Art of War EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, author, books)

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.True(t, d.Approved(), "rejections: %v", d.Rejections)
	require.Len(t, d.Remote.Books, 1)
	assert.Equal(t, int64(21), d.Remote.Books[0].ID)
}

func TestEvaluate_RejectsUnwantedQuality(t *testing.T) {
	t.Parallel()

	profile := domain.QualityProfile{
		Name:    "epub-only",
		Allowed: []domain.Quality{domain.QualityEPUB},
		Cutoff:  domain.QualityEPUB,
	}
	scorer, err := NewFormatScorer(nil)
	require.NoError(t, err)
	e := NewEngine(zerolog.Nop(), parser.New(), scorer, &fakeBlocklist{},
		profile, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - The Way of Kings MOBI", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Approved())
	assert.False(t, decisions[0].TemporarilyRejected(), "quality rejection is permanent")
}

func TestEvaluate_RejectsBlocklisted(t *testing.T) {
	t.Parallel()

	title := "Brandon Sanderson - The Way of Kings EPUB"
	e := testEngine(t, &fakeBlocklist{blocked: map[string]bool{title: true}}, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release(title, domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.False(t, decisions[0].Approved())
	assert.False(t, decisions[0].TemporarilyRejected())
}

func TestEvaluate_DelayIsTemporary(t *testing.T) {
	t.Parallel()

	delay := domain.DelayProfile{TorrentDelay: 2 * time.Hour}
	e := testEngine(t, &fakeBlocklist{}, delay, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - The Way of Kings EPUB", domain.ProtocolTorrent, time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].TemporarilyRejected())
}

func TestEvaluate_YoungUsenetIsTemporary(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 30*time.Minute)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - The Way of Kings EPUB", domain.ProtocolUsenet, 10*time.Minute),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].TemporarilyRejected())

	// Torrents do not propagate; the minimum age never applies to them.
	decisions = e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - Words of Radiance EPUB", domain.ProtocolTorrent, 10*time.Minute),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.True(t, decisions[0].Approved())
}

func TestEvaluate_DiscographyMatchesAllBooks(t *testing.T) {
	t.Parallel()

	e := testEngine(t, &fakeBlocklist{}, domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson Discography EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.Len(t, decisions[0].Remote.Books, 2)
	assert.True(t, decisions[0].Remote.Parsed.Discography)
}

func TestEvaluate_CustomFormatScore(t *testing.T) {
	t.Parallel()

	scorer, err := NewFormatScorer([]domain.CustomFormatConfig{
		{Name: "prefer epub", Score: 100, Expression: `quality == "EPUB"`},
		{Name: "avoid dumps", Score: -50, Expression: `discography`},
	})
	require.NoError(t, err)

	e := NewEngine(zerolog.Nop(), parser.New(), scorer, &fakeBlocklist{},
		domain.DefaultQualityProfile(), domain.DelayProfile{}, 0)

	decisions := e.Evaluate(context.Background(), []domain.ReleaseInfo{
		release("Brandon Sanderson - The Way of Kings EPUB", domain.ProtocolTorrent, 48*time.Hour),
	}, wantedAuthor, wantedBooks)

	require.Len(t, decisions, 1)
	assert.Equal(t, 100, decisions[0].Score)
}

func TestNewFormatScorer_CompileError(t *testing.T) {
	t.Parallel()

	_, err := NewFormatScorer([]domain.CustomFormatConfig{
		{Name: "broken", Score: 1, Expression: `quality ==`},
	})
	assert.Error(t, err)
}
