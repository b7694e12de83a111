// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataDirResolution(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(t *testing.T, tmpDir string) (configPath string, envDataDir string, expectedDataDir string)
	}{
		{
			name: "default_next_to_config",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				content := "host = \"localhost\"\nport = 7454\n"
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, "", tmpDir
			},
		},
		{
			name: "explicit_data_dir_in_config",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				dataDir := filepath.Join(tmpDir, "data")
				require.NoError(t, os.MkdirAll(dataDir, 0o755))
				content := fmt.Sprintf("host = \"localhost\"\nport = 7454\ndataDir = %q\n", dataDir)
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, "", dataDir
			},
		},
		{
			name: "env_var_override",
			prepare: func(t *testing.T, tmpDir string) (string, string, string) {
				configPath := filepath.Join(tmpDir, "config.toml")
				configDataDir := filepath.Join(tmpDir, "config-data")
				envDataDir := filepath.Join(tmpDir, "env-data")
				require.NoError(t, os.MkdirAll(configDataDir, 0o755))
				require.NoError(t, os.MkdirAll(envDataDir, 0o755))
				content := fmt.Sprintf("host = \"localhost\"\nport = 7454\ndataDir = %q\n", configDataDir)
				require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
				return configPath, envDataDir, envDataDir
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath, envValue, expectedDataDir := tt.prepare(t, tmpDir)
			if envValue != "" {
				t.Setenv(envPrefix+"DATA_DIR", envValue)
			}

			cfg, err := New(configPath)
			require.NoError(t, err)

			assert.Equal(t, filepath.Clean(expectedDataDir), filepath.Clean(cfg.GetDataDir()))
		})
	}
}

func TestDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("host = \"localhost\"\n"), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, 7454, cfg.Config.Port)
	assert.Equal(t, 60, cfg.Config.SearchIntervalMinutes)
	assert.Equal(t, 30, cfg.Config.TrackerIntervalSeconds)
	assert.Equal(t, 60, cfg.Config.AdapterTimeoutSeconds)
	assert.Equal(t, 5, cfg.Config.MaxSearchWorkers)
	assert.True(t, cfg.Config.DeleteFailedData)
	assert.True(t, cfg.Config.PreferProperRepack)
}

func TestEnvOverrides(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("port = 7454\nmaxSearchWorkers = 5\n"), 0o644))

	t.Setenv(envPrefix+"PORT", "9999")
	t.Setenv(envPrefix+"MAX_SEARCH_WORKERS", "2")
	t.Setenv(envPrefix+"PREFER_PROPER_REPACK", "false")

	cfg, err := New(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Config.Port)
	assert.Equal(t, 2, cfg.Config.MaxSearchWorkers)
	assert.False(t, cfg.Config.PreferProperRepack)
}

func TestWriteDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	require.NoError(t, WriteDefaultConfig(configPath))

	content, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), "port = 7454")
	assert.Contains(t, string(content), "searchIntervalMinutes")

	// New loads the generated file cleanly.
	cfg, err := New(configPath)
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Config.Host)
}

func TestConfigSections(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	content := `
port = 7454

[[wanted]]
authorId = 7
authorName = "Brandon Sanderson"

  [[wanted.books]]
  id = 11
  title = "The Way of Kings"

[[indexers]]
name = "mock"
url = "https://indexer.example.com/torznab"
apiKey = "key"
protocol = "torrent"
priority = 25
enabled = true

[[downloadClients]]
name = "qbit"
type = "qbittorrent"
url = "http://localhost:8080"
username = "admin"
password = "adminadmin"
enabled = true

[[qualityProfiles]]
name = "ebook"
qualities = ["MOBI", "EPUB"]
cutoff = "EPUB"
upgradesAllowed = true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

	cfg, err := New(configPath)
	require.NoError(t, err)

	require.Len(t, cfg.Config.Wanted, 1)
	item := cfg.Config.Wanted[0].Item()
	assert.Equal(t, int64(7), item.Author.ID)
	require.Len(t, item.Books, 1)
	assert.Equal(t, "The Way of Kings", item.Books[0].Title)
	assert.Equal(t, int64(7), item.Books[0].AuthorID)

	require.Len(t, cfg.Config.Indexers, 1)
	assert.Equal(t, "mock", cfg.Config.Indexers[0].Name)
	assert.Equal(t, 25, cfg.Config.Indexers[0].Priority)

	require.Len(t, cfg.Config.DownloadClients, 1)
	assert.Equal(t, "qbittorrent", cfg.Config.DownloadClients[0].Type)

	require.Len(t, cfg.Config.QualityProfiles, 1)
	profile := cfg.Config.QualityProfiles[0].Profile()
	assert.Equal(t, "ebook", profile.Name)
	assert.Len(t, profile.Allowed, 2)
}
