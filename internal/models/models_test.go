// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/fetcharr/internal/database"
	"github.com/autobrr/fetcharr/internal/domain"
)

func testDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRemote(authorID int64, title string) domain.RemoteBook {
	return domain.RemoteBook{
		Author: domain.Author{ID: authorID, Name: "Author"},
		Books:  []domain.Book{{ID: authorID*10 + 1, AuthorID: authorID, Title: "Book"}},
		Release: domain.ReleaseInfo{
			GUID:     "guid-" + title,
			Title:    title,
			Size:     1024,
			Protocol: domain.ProtocolTorrent,
			Indexer:  "indexer-a",
		},
	}
}

func TestPendingReleaseStore_InsertAndList(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewPendingReleaseStore(db)
	ctx := context.Background()

	first, err := store.Insert(ctx, &PendingRelease{
		AuthorID: 1,
		Title:    "Author - Book EPUB",
		Remote:   testRemote(1, "Author - Book EPUB"),
		Reason:   PendingReasonDelay,
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)

	_, err = store.Insert(ctx, &PendingRelease{
		AuthorID: 2,
		Title:    "Other - Book EPUB",
		Remote:   testRemote(2, "Other - Book EPUB"),
		Reason:   PendingReasonClientUnavailable,
	})
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Author - Book EPUB", all[0].Title)
	assert.Equal(t, PendingReasonDelay, all[0].Reason)
	assert.Equal(t, "guid-Author - Book EPUB", all[0].Remote.Release.GUID)

	byAuthor, err := store.AllByAuthorID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, int64(2), byAuthor[0].AuthorID)
}

func TestPendingReleaseStore_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewPendingReleaseStore(db)
	ctx := context.Background()

	pr, err := store.Insert(ctx, &PendingRelease{
		AuthorID: 1,
		Title:    "Author - Book EPUB",
		Remote:   testRemote(1, "Author - Book EPUB"),
		Reason:   PendingReasonDelay,
	})
	require.NoError(t, err)

	pr.Reason = PendingReasonFallback
	require.NoError(t, store.Update(ctx, pr))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, PendingReasonFallback, all[0].Reason)

	require.NoError(t, store.Delete(ctx, pr.ID))

	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPendingReleaseStore_UpdateMissing(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewPendingReleaseStore(db)

	err := store.Update(context.Background(), &PendingRelease{ID: 99})
	assert.Error(t, err)
}

func TestHistoryStore_AddAndQuery(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewHistoryStore(db)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &HistoryEntry{
		EventType:   HistoryEventGrabbed,
		DownloadID:  "abc123",
		SourceTitle: "Author - Book EPUB",
		AuthorID:    1,
		BookIDs:     []int64{11, 12},
		Data:        map[string]string{"indexer": "indexer-a"},
	}))
	require.NoError(t, store.Add(ctx, &HistoryEntry{
		EventType:   HistoryEventDownloadFailed,
		DownloadID:  "abc123",
		SourceTitle: "Author - Book EPUB",
	}))

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, HistoryEventDownloadFailed, recent[0].EventType)

	byDownload, err := store.ByDownloadID(ctx, "abc123")
	require.NoError(t, err)
	require.Len(t, byDownload, 2)
	assert.Equal(t, HistoryEventGrabbed, byDownload[0].EventType)
	assert.Equal(t, []int64{11, 12}, byDownload[0].BookIDs)
	assert.Equal(t, "indexer-a", byDownload[0].Data["indexer"])
}

func TestBlocklistStore_Blocked(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewBlocklistStore(db)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &BlocklistEntry{
		SourceTitle: "Author - Book EPUB",
		Indexer:     "indexer-a",
		Size:        1000,
		Protocol:    domain.ProtocolTorrent,
	}))

	blocked, err := store.Blocked(ctx, domain.ReleaseInfo{
		Title:    "Author - Book EPUB",
		Size:     5000,
		Protocol: domain.ProtocolTorrent,
	})
	require.NoError(t, err)
	assert.True(t, blocked, "torrent matches blocklist on title alone")

	blocked, err = store.Blocked(ctx, domain.ReleaseInfo{
		Title:    "Author - Other Book EPUB",
		Protocol: domain.ProtocolTorrent,
	})
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestBlocklistStore_UsenetSizeMismatch(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewBlocklistStore(db)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &BlocklistEntry{
		SourceTitle: "Author - Book EPUB",
		Size:        1_000_000,
		Protocol:    domain.ProtocolUsenet,
	}))

	// Same name, clearly different upload.
	blocked, err := store.Blocked(ctx, domain.ReleaseInfo{
		Title:    "Author - Book EPUB",
		Size:     5_000_000,
		Protocol: domain.ProtocolUsenet,
	})
	require.NoError(t, err)
	assert.False(t, blocked)

	// Same name, size within drift.
	blocked, err = store.Blocked(ctx, domain.ReleaseInfo{
		Title:    "Author - Book EPUB",
		Size:     1_010_000,
		Protocol: domain.ProtocolUsenet,
	})
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestBlocklistStore_AllAndDelete(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	store := NewBlocklistStore(db)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, &BlocklistEntry{SourceTitle: "a", Protocol: domain.ProtocolTorrent}))
	require.NoError(t, store.Add(ctx, &BlocklistEntry{SourceTitle: "b", Protocol: domain.ProtocolUsenet}))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	require.NoError(t, store.Delete(ctx, all[0].ID))

	all, err = store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}
