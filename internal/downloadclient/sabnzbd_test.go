// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/fetcharr/internal/domain"
)

func sabServer(t *testing.T, handler func(mode string, r *http.Request) string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "key", r.URL.Query().Get("apikey"))
		require.Equal(t, "json", r.URL.Query().Get("output"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(handler(r.URL.Query().Get("mode"), r)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSABnzbd_Submit(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, func(mode string, r *http.Request) string {
		require.Equal(t, "addurl", mode)
		assert.Equal(t, "https://indexer.test/dl/1.nzb", r.URL.Query().Get("name"))
		assert.Equal(t, "books", r.URL.Query().Get("cat"))
		return `{"status": true, "nzo_ids": ["SABnzbd_nzo_x1"]}`
	})

	sab := NewSABnzbd(zerolog.Nop(), SABnzbdConfig{
		Name: "sab", Host: srv.URL, APIKey: "key", Category: "books",
	})

	id, err := sab.Submit(context.Background(), domain.RemoteBook{
		Release: domain.ReleaseInfo{
			Title:       "Author - Book EPUB",
			DownloadURL: "https://indexer.test/dl/1.nzb",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "SABnzbd_nzo_x1", id)
}

func TestSABnzbd_SubmitRejected(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, func(mode string, r *http.Request) string {
		return `{"status": false, "error": "no api key"}`
	})

	sab := NewSABnzbd(zerolog.Nop(), SABnzbdConfig{Name: "sab", Host: srv.URL, APIKey: "key"})

	_, err := sab.Submit(context.Background(), domain.RemoteBook{
		Release: domain.ReleaseInfo{Title: "x", DownloadURL: "u"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no api key")
}

func TestSABnzbd_GetItems(t *testing.T) {
	t.Parallel()

	srv := sabServer(t, func(mode string, r *http.Request) string {
		switch mode {
		case "queue":
			return `{"queue": {"slots": [
				{"nzo_id": "nzo_dl", "filename": "Author - Book", "status": "Downloading",
				 "mb": "100.0", "mbleft": "40.0", "timeleft": "0:05:30"}
			]}}`
		case "history":
			return `{"history": {"slots": [
				{"nzo_id": "nzo_done", "name": "Author - Other", "status": "Completed",
				 "storage": "/data/done/Author - Other", "bytes": 1048576},
				{"nzo_id": "nzo_enc", "name": "Author - Bad", "status": "Failed",
				 "fail_message": "Aborted, encrypted RAR archive"}
			]}}`
		default:
			t.Fatalf("unexpected mode %s", mode)
			return ""
		}
	})

	sab := NewSABnzbd(zerolog.Nop(), SABnzbdConfig{Name: "sab", Host: srv.URL, APIKey: "key"})

	items, err := sab.GetItems(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	dl := items[0]
	assert.Equal(t, "nzo_dl", dl.DownloadID)
	assert.Equal(t, domain.DownloadItemDownloading, dl.Status)
	assert.Equal(t, int64(100*1024*1024), dl.TotalSize)
	assert.Equal(t, int64(40*1024*1024), dl.RemainingSize)
	assert.Equal(t, 5*time.Minute+30*time.Second, dl.RemainingTime)

	done := items[1]
	assert.Equal(t, domain.DownloadItemCompleted, done.Status)
	assert.Equal(t, "/data/done/Author - Other", done.OutputPath)
	assert.False(t, done.IsEncrypted)

	enc := items[2]
	assert.Equal(t, domain.DownloadItemFailed, enc.Status)
	assert.True(t, enc.IsEncrypted)
	assert.Contains(t, enc.Message, "encrypted")
}

func TestSABnzbd_RemoveItem(t *testing.T) {
	t.Parallel()

	var deletes []string
	srv := sabServer(t, func(mode string, r *http.Request) string {
		require.Equal(t, "delete", r.URL.Query().Get("name"))
		assert.Equal(t, "1", r.URL.Query().Get("del_files"))
		deletes = append(deletes, mode+":"+r.URL.Query().Get("value"))
		return `{"status": true}`
	})

	sab := NewSABnzbd(zerolog.Nop(), SABnzbdConfig{Name: "sab", Host: srv.URL, APIKey: "key"})

	require.NoError(t, sab.RemoveItem(context.Background(), "nzo_x", true))
	assert.Equal(t, []string{"queue:nzo_x", "history:nzo_x"}, deletes)
}

func TestMagnetHash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ABCDEF0123456789ABCDEF0123456789ABCDEF01",
		magnetHash("magnet:?xt=urn:btih:abcdef0123456789abcdef0123456789abcdef01&dn=book"))
	assert.Empty(t, magnetHash("https://indexer.test/dl/1.torrent"))
	assert.Empty(t, magnetHash("magnet:?dn=no-hash"))
}

func TestNewRegistry_BuildsConfiguredClients(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop(), []domain.DownloadClientConfig{
		{Name: "qb", Type: "qbittorrent", URL: "http://qb", Enabled: true},
		{Name: "sab", Type: "sabnzbd", URL: "http://sab", Enabled: true},
		{Name: "off", Type: "qbittorrent", URL: "http://off", Enabled: false},
		{Name: "weird", Type: "rtorrent", URL: "http://x", Enabled: true},
	}, 10*time.Second)

	require.Len(t, r.Adapters(), 2)
	assert.Equal(t, "qb", r.ForProtocol(domain.ProtocolTorrent).Name())
	assert.Equal(t, "sab", r.ForProtocol(domain.ProtocolUsenet).Name())
	assert.Nil(t, r.ByName("missing"))
	assert.NotNil(t, r.ByName("sab"))
}
