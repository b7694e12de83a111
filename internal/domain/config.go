// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "time"

// Config is the unmarshaled application configuration.
type Config struct {
	Version string

	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	LogLevel      string `mapstructure:"logLevel"`
	LogPath       string `mapstructure:"logPath"`
	LogMaxSize    int    `mapstructure:"logMaxSize"`
	LogMaxBackups int    `mapstructure:"logMaxBackups"`
	DataDir       string `mapstructure:"dataDir"`

	SearchIntervalMinutes  int  `mapstructure:"searchIntervalMinutes"`
	TrackerIntervalSeconds int  `mapstructure:"trackerIntervalSeconds"`
	AdapterTimeoutSeconds  int  `mapstructure:"adapterTimeoutSeconds"`
	MaxSearchWorkers       int  `mapstructure:"maxSearchWorkers"`
	DeleteFailedData       bool `mapstructure:"deleteFailedData"`
	PreferProperRepack     bool `mapstructure:"preferProperRepack"`
	MinimumAgeMinutes      int  `mapstructure:"minimumAgeMinutes"`

	Wanted          []WantedConfig         `mapstructure:"wanted"`
	Indexers        []IndexerConfig        `mapstructure:"indexers"`
	DownloadClients []DownloadClientConfig `mapstructure:"downloadClients"`
	QualityProfiles []QualityProfileConfig `mapstructure:"qualityProfiles"`
	DelayProfiles   []DelayProfileConfig   `mapstructure:"delayProfiles"`
	CustomFormats   []CustomFormatConfig   `mapstructure:"customFormats"`
}

// WantedConfig declares one wanted author and their books.
type WantedConfig struct {
	AuthorID   int64              `mapstructure:"authorId"`
	AuthorName string             `mapstructure:"authorName"`
	Books      []WantedBookConfig `mapstructure:"books"`
}

// WantedBookConfig is one wanted book under a WantedConfig entry.
type WantedBookConfig struct {
	ID    int64  `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

// Item converts the config form into a domain WantedItem.
func (c WantedConfig) Item() WantedItem {
	item := WantedItem{
		Author: Author{ID: c.AuthorID, Name: c.AuthorName},
	}
	for _, b := range c.Books {
		item.Books = append(item.Books, Book{ID: b.ID, AuthorID: c.AuthorID, Title: b.Title})
	}
	return item
}

// IndexerConfig declares one Torznab/Newznab endpoint.
type IndexerConfig struct {
	Name       string `mapstructure:"name"`
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"apiKey"`
	Protocol   string `mapstructure:"protocol"`
	Priority   int    `mapstructure:"priority"`
	Categories []int  `mapstructure:"categories"`
	Enabled    bool   `mapstructure:"enabled"`
}

// DownloadClientConfig declares one download client backend.
type DownloadClientConfig struct {
	Name     string `mapstructure:"name"`
	Type     string `mapstructure:"type"` // qbittorrent, sabnzbd
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	APIKey   string `mapstructure:"apiKey"`
	Category string `mapstructure:"category"`
	Enabled  bool   `mapstructure:"enabled"`
}

// QualityProfileConfig is the config-file form of a QualityProfile.
type QualityProfileConfig struct {
	Name            string   `mapstructure:"name"`
	Qualities       []string `mapstructure:"qualities"` // worst to best
	Cutoff          string   `mapstructure:"cutoff"`
	UpgradesAllowed bool     `mapstructure:"upgradesAllowed"`
}

// Profile converts the config form into a domain QualityProfile.
func (c QualityProfileConfig) Profile() QualityProfile {
	p := QualityProfile{
		Name:            c.Name,
		Cutoff:          ParseQualityName(c.Cutoff),
		UpgradesAllowed: c.UpgradesAllowed,
	}
	for _, name := range c.Qualities {
		if q := ParseQualityName(name); q != QualityUnknown {
			p.Allowed = append(p.Allowed, q)
		}
	}
	if len(p.Allowed) == 0 {
		return DefaultQualityProfile()
	}
	return p
}

// DelayProfileConfig is the config-file form of a DelayProfile.
type DelayProfileConfig struct {
	Name                string `mapstructure:"name"`
	PreferredProtocol   string `mapstructure:"preferredProtocol"`
	UsenetDelayMinutes  int    `mapstructure:"usenetDelayMinutes"`
	TorrentDelayMinutes int    `mapstructure:"torrentDelayMinutes"`
}

// Profile converts the config form into a domain DelayProfile.
func (c DelayProfileConfig) Profile() DelayProfile {
	return DelayProfile{
		Name:              c.Name,
		PreferredProtocol: Protocol(c.PreferredProtocol),
		UsenetDelay:       time.Duration(c.UsenetDelayMinutes) * time.Minute,
		TorrentDelay:      time.Duration(c.TorrentDelayMinutes) * time.Minute,
	}
}

// CustomFormatConfig declares one scored expression rule evaluated against
// parsed releases.
type CustomFormatConfig struct {
	Name       string `mapstructure:"name"`
	Score      int    `mapstructure:"score"`
	Expression string `mapstructure:"expression"`
}
