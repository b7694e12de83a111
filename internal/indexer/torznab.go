// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package indexer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/buildinfo"
	"github.com/autobrr/fetcharr/internal/domain"
)

// Book-shaped Torznab categories requested by default: 7000 (books),
// 7020 (ebook), 7030 (comics) plus 3030 (audiobook).
var defaultCategories = []int{7000, 7020, 7030, 3030}

// 8 MiB is far beyond any sane torznab response.
const maxResponseBytes int64 = 8 << 20

// TorznabConfig configures one Torznab/Newznab endpoint.
type TorznabConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Protocol   domain.Protocol
	Priority   int
	Categories []int
	Timeout    time.Duration
}

// Torznab queries a single Torznab/Newznab API endpoint.
type Torznab struct {
	cfg        TorznabConfig
	httpClient *http.Client
}

func NewTorznab(cfg TorznabConfig) *Torznab {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultCategories
	}
	if cfg.Protocol == domain.ProtocolUnknown {
		cfg.Protocol = domain.ProtocolTorrent
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Torznab{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (t *Torznab) Name() string              { return t.cfg.Name }
func (t *Torznab) Protocol() domain.Protocol { return t.cfg.Protocol }
func (t *Torznab) Priority() int             { return t.cfg.Priority }

// Search runs a book search against the endpoint and maps the RSS response
// into ReleaseInfo.
func (t *Torznab) Search(ctx context.Context, criteria SearchCriteria) ([]domain.ReleaseInfo, error) {
	params := url.Values{}
	params.Set("t", "book")
	params.Set("q", criteria.Query())
	params.Set("apikey", t.cfg.APIKey)
	params.Set("cat", joinCategories(t.cfg.Categories))

	endpoint := t.cfg.BaseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer %s: %w", t.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer %s returned status %d", t.cfg.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read indexer %s response: %w", t.cfg.Name, err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode indexer %s response: %w", t.cfg.Name, err)
	}

	if feed.ErrorCode != 0 {
		return nil, fmt.Errorf("indexer %s error %d: %s", t.cfg.Name, feed.ErrorCode, feed.ErrorDescription)
	}

	releases := make([]domain.ReleaseInfo, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		release, ok := t.convertItem(item)
		if !ok {
			continue
		}
		releases = append(releases, release)
	}

	return releases, nil
}

func (t *Torznab) convertItem(item rssItem) (domain.ReleaseInfo, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.ReleaseInfo{}, false
	}

	release := domain.ReleaseInfo{
		GUID:            strings.TrimSpace(item.GUID.Value),
		Title:           title,
		Size:            item.Size,
		Protocol:        t.cfg.Protocol,
		Indexer:         t.cfg.Name,
		IndexerPriority: t.cfg.Priority,
		DownloadURL:     strings.TrimSpace(item.Link),
		InfoURL:         strings.TrimSpace(item.Comments),
	}
	if release.GUID == "" {
		release.GUID = release.DownloadURL
	}
	if release.GUID == "" {
		return domain.ReleaseInfo{}, false
	}

	if ts, err := parsePubDate(item.PubDate); err == nil {
		release.PublishDate = ts
	} else {
		log.Debug().Str("indexer", t.cfg.Name).Str("pubDate", item.PubDate).
			Msg("unparseable pubDate on torznab item")
	}

	// Torznab attrs override the plain RSS fields when present.
	for _, attr := range item.Attrs {
		value := strings.TrimSpace(attr.Value)
		switch strings.ToLower(attr.Name) {
		case "size":
			if v, err := strconv.ParseInt(value, 10, 64); err == nil {
				release.Size = v
			}
		case "seeders":
			if v, err := strconv.Atoi(value); err == nil {
				release.Seeders = v
			}
		case "peers", "leechers":
			if v, err := strconv.Atoi(value); err == nil {
				release.Peers = v
			}
		case "magneturl":
			if release.DownloadURL == "" {
				release.DownloadURL = value
			}
		}
	}

	return release, true
}

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC3339,
}

func parsePubDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty pubDate")
	}
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized pubDate %q", raw)
}

func joinCategories(cats []int) string {
	parts := make([]string, 0, len(cats))
	for _, c := range cats {
		parts = append(parts, strconv.Itoa(c))
	}
	return strings.Join(parts, ",")
}

// rssFeed deliberately has no XMLName so it also decodes the bare
// <error code=".." description=".."/> document torznab APIs return on
// failure.
type rssFeed struct {
	Channel          rssChannel `xml:"channel"`
	ErrorCode        int        `xml:"code,attr"`
	ErrorDescription string     `xml:"description,attr"`
}

type rssChannel struct {
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title    string    `xml:"title"`
	GUID     rssGUID   `xml:"guid"`
	Link     string    `xml:"link"`
	Comments string    `xml:"comments"`
	PubDate  string    `xml:"pubDate"`
	Size     int64     `xml:"size"`
	Attrs    []rssAttr `xml:"attr"`
}

type rssGUID struct {
	Value string `xml:",chardata"`
}

type rssAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}
