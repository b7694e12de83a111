// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package downloadclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/buildinfo"
	"github.com/autobrr/fetcharr/internal/domain"
)

// SABnzbdConfig configures one SABnzbd backend.
type SABnzbdConfig struct {
	Name     string
	Host     string
	APIKey   string
	Category string
	Timeout  time.Duration
}

// SABnzbd submits and tracks NZBs through the SABnzbd JSON API.
type SABnzbd struct {
	log        zerolog.Logger
	cfg        SABnzbdConfig
	httpClient *http.Client
}

func NewSABnzbd(log zerolog.Logger, cfg SABnzbdConfig) *SABnzbd {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Category == "" {
		cfg.Category = "fetcharr"
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")

	return &SABnzbd{
		log:        log.With().Str("client", cfg.Name).Logger(),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *SABnzbd) Name() string              { return s.cfg.Name }
func (s *SABnzbd) Protocol() domain.Protocol { return domain.ProtocolUsenet }

func (s *SABnzbd) Submit(ctx context.Context, remote domain.RemoteBook) (string, error) {
	params := url.Values{}
	params.Set("mode", "addurl")
	params.Set("name", remote.Release.DownloadURL)
	params.Set("nzbname", remote.Release.Title)
	params.Set("cat", s.cfg.Category)

	var resp struct {
		Status bool     `json:"status"`
		NzoIDs []string `json:"nzo_ids"`
		Error  string   `json:"error"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		return "", err
	}
	if !resp.Status || len(resp.NzoIDs) == 0 {
		return "", errors.Errorf("sabnzbd rejected %s: %s", remote.Release.Title, resp.Error)
	}

	return resp.NzoIDs[0], nil
}

func (s *SABnzbd) GetItems(ctx context.Context) ([]domain.DownloadClientItem, error) {
	queue, err := s.queueItems(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.historyItems(ctx)
	if err != nil {
		return nil, err
	}
	return append(queue, history...), nil
}

func (s *SABnzbd) RemoveItem(ctx context.Context, id string, deleteData bool) error {
	// An item lives in either the queue or the history; deleting from both is
	// idempotent.
	for _, mode := range []string{"queue", "history"} {
		params := url.Values{}
		params.Set("mode", mode)
		params.Set("name", "delete")
		params.Set("value", id)
		if deleteData {
			params.Set("del_files", "1")
		}

		var resp struct {
			Status bool `json:"status"`
		}
		if err := s.call(ctx, params, &resp); err != nil {
			return err
		}
	}
	return nil
}

func (s *SABnzbd) queueItems(ctx context.Context) ([]domain.DownloadClientItem, error) {
	params := url.Values{}
	params.Set("mode", "queue")

	var resp struct {
		Queue struct {
			Slots []struct {
				NzoID    string `json:"nzo_id"`
				Filename string `json:"filename"`
				Status   string `json:"status"`
				MB       string `json:"mb"`
				MBLeft   string `json:"mbleft"`
				TimeLeft string `json:"timeleft"`
			} `json:"slots"`
		} `json:"queue"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.DownloadClientItem, 0, len(resp.Queue.Slots))
	for _, slot := range resp.Queue.Slots {
		item := domain.DownloadClientItem{
			DownloadID:    slot.NzoID,
			Title:         slot.Filename,
			TotalSize:     megabytesToBytes(slot.MB),
			RemainingSize: megabytesToBytes(slot.MBLeft),
			RemainingTime: parseTimeLeft(slot.TimeLeft),
		}
		switch strings.ToLower(slot.Status) {
		case "paused":
			item.Status = domain.DownloadItemPaused
		case "queued", "grabbing", "propagating":
			item.Status = domain.DownloadItemQueued
		default:
			item.Status = domain.DownloadItemDownloading
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SABnzbd) historyItems(ctx context.Context) ([]domain.DownloadClientItem, error) {
	params := url.Values{}
	params.Set("mode", "history")
	params.Set("category", s.cfg.Category)

	var resp struct {
		History struct {
			Slots []struct {
				NzoID       string `json:"nzo_id"`
				Name        string `json:"name"`
				Status      string `json:"status"`
				FailMessage string `json:"fail_message"`
				Storage     string `json:"storage"`
				Bytes       int64  `json:"bytes"`
			} `json:"slots"`
		} `json:"history"`
	}
	if err := s.call(ctx, params, &resp); err != nil {
		return nil, err
	}

	items := make([]domain.DownloadClientItem, 0, len(resp.History.Slots))
	for _, slot := range resp.History.Slots {
		item := domain.DownloadClientItem{
			DownloadID: slot.NzoID,
			Title:      slot.Name,
			TotalSize:  slot.Bytes,
			OutputPath: slot.Storage,
			Message:    slot.FailMessage,
		}
		switch strings.ToLower(slot.Status) {
		case "completed":
			item.Status = domain.DownloadItemCompleted
		case "failed":
			item.Status = domain.DownloadItemFailed
		default:
			item.Status = domain.DownloadItemDownloading
		}
		if encryptedMessage(slot.FailMessage) {
			item.IsEncrypted = true
			item.Status = domain.DownloadItemFailed
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SABnzbd) call(ctx context.Context, params url.Values, out any) error {
	params.Set("apikey", s.cfg.APIKey)
	params.Set("output", "json")

	endpoint := s.cfg.Host + "/api?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.Wrap(err, "build sabnzbd request")
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "sabnzbd %s", s.cfg.Name)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("sabnzbd %s returned status %d", s.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return errors.Wrap(err, "read sabnzbd response")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "decode sabnzbd response")
	}
	return nil
}

func encryptedMessage(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "encrypted") ||
		strings.Contains(strings.ToLower(msg), "wrong password")
}

func megabytesToBytes(raw string) int64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return int64(v * 1024 * 1024)
}

// parseTimeLeft parses SABnzbd's "H:MM:SS" countdown.
func parseTimeLeft(raw string) time.Duration {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 3 {
		return 0
	}
	var total time.Duration
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total += time.Duration(v) * units[i]
	}
	return total
}
