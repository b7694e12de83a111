// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"net/url"
	"strings"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
)

// QBittorrentConfig configures one qBittorrent backend.
type QBittorrentConfig struct {
	Name     string
	Host     string
	Username string
	Password string
	Category string
	Timeout  time.Duration
}

// QBittorrent submits and tracks torrents through the qBittorrent Web API.
type QBittorrent struct {
	log    zerolog.Logger
	cfg    QBittorrentConfig
	client *qbt.Client
}

func NewQBittorrent(log zerolog.Logger, cfg QBittorrentConfig) *QBittorrent {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Category == "" {
		cfg.Category = "fetcharr"
	}

	client := qbt.NewClient(qbt.Config{
		Host:     cfg.Host,
		Username: cfg.Username,
		Password: cfg.Password,
		Timeout:  int(cfg.Timeout.Seconds()),
	})

	return &QBittorrent{
		log:    log.With().Str("client", cfg.Name).Logger(),
		cfg:    cfg,
		client: client,
	}
}

func (q *QBittorrent) Name() string              { return q.cfg.Name }
func (q *QBittorrent) Protocol() domain.Protocol { return domain.ProtocolTorrent }

func (q *QBittorrent) Submit(ctx context.Context, remote domain.RemoteBook) (string, error) {
	if err := q.client.LoginCtx(ctx); err != nil {
		return "", errors.Wrap(err, "qbittorrent login failed")
	}

	downloadURL := remote.Release.DownloadURL
	options := map[string]string{
		"category": q.cfg.Category,
	}

	before, err := q.hashes(ctx)
	if err != nil {
		return "", err
	}

	if err := q.client.AddTorrentFromUrlCtx(ctx, downloadURL, options); err != nil {
		return "", errors.Wrapf(err, "add torrent %s", remote.Release.Title)
	}

	// Magnet links carry the infohash; for .torrent URLs the hash only shows
	// up once the client has fetched the metadata.
	if hash := magnetHash(downloadURL); hash != "" {
		return hash, nil
	}

	hash, err := q.waitForNewHash(ctx, before)
	if err != nil {
		return "", errors.Wrapf(err, "resolve hash for %s", remote.Release.Title)
	}
	return hash, nil
}

func (q *QBittorrent) GetItems(ctx context.Context) ([]domain.DownloadClientItem, error) {
	if err := q.client.LoginCtx(ctx); err != nil {
		return nil, errors.Wrap(err, "qbittorrent login failed")
	}

	torrents, err := q.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{
		Category: q.cfg.Category,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list torrents")
	}

	items := make([]domain.DownloadClientItem, 0, len(torrents))
	for _, t := range torrents {
		items = append(items, domain.DownloadClientItem{
			DownloadID:    strings.ToUpper(t.Hash),
			Title:         t.Name,
			Status:        mapTorrentState(t.State),
			TotalSize:     t.Size,
			RemainingSize: t.AmountLeft,
			RemainingTime: time.Duration(t.ETA) * time.Second,
			OutputPath:    t.ContentPath,
		})
	}
	return items, nil
}

func (q *QBittorrent) RemoveItem(ctx context.Context, id string, deleteData bool) error {
	if err := q.client.LoginCtx(ctx); err != nil {
		return errors.Wrap(err, "qbittorrent login failed")
	}
	if err := q.client.DeleteTorrentsCtx(ctx, []string{strings.ToLower(id)}, deleteData); err != nil {
		return errors.Wrapf(err, "delete torrent %s", id)
	}
	return nil
}

func (q *QBittorrent) hashes(ctx context.Context) (map[string]struct{}, error) {
	torrents, err := q.client.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{
		Category: q.cfg.Category,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list torrents")
	}
	set := make(map[string]struct{}, len(torrents))
	for _, t := range torrents {
		set[strings.ToUpper(t.Hash)] = struct{}{}
	}
	return set, nil
}

// waitForNewHash polls the category until a torrent not present before the
// add shows up.
func (q *QBittorrent) waitForNewHash(ctx context.Context, before map[string]struct{}) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for attempt := 0; attempt < 10; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}

		after, err := q.hashes(ctx)
		if err != nil {
			return "", err
		}
		for hash := range after {
			if _, seen := before[hash]; !seen {
				return hash, nil
			}
		}
	}
	return "", errors.New("added torrent did not appear in client")
}

func mapTorrentState(state qbt.TorrentState) domain.DownloadItemStatus {
	switch state {
	case qbt.TorrentStateError, qbt.TorrentStateMissingFiles:
		return domain.DownloadItemFailed
	case qbt.TorrentStatePausedDl, qbt.TorrentStateStoppedDl:
		return domain.DownloadItemPaused
	case qbt.TorrentStateQueuedDl, qbt.TorrentStateAllocating:
		return domain.DownloadItemQueued
	case qbt.TorrentStateDownloading, qbt.TorrentStateMetaDl,
		qbt.TorrentStateStalledDl, qbt.TorrentStateCheckingDl,
		qbt.TorrentStateForcedDl:
		return domain.DownloadItemDownloading
	case qbt.TorrentStateUploading, qbt.TorrentStatePausedUp,
		qbt.TorrentStateStoppedUp, qbt.TorrentStateQueuedUp,
		qbt.TorrentStateStalledUp, qbt.TorrentStateCheckingUp,
		qbt.TorrentStateForcedUp, qbt.TorrentStateMoving:
		return domain.DownloadItemCompleted
	default:
		return domain.DownloadItemWarning
	}
}

// magnetHash extracts the btih infohash from a magnet link.
func magnetHash(raw string) string {
	if !strings.HasPrefix(raw, "magnet:") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if rest, ok := strings.CutPrefix(xt, "urn:btih:"); ok && rest != "" {
			return strings.ToUpper(rest)
		}
	}
	return ""
}
