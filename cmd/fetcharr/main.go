// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/autobrr/fetcharr/internal/api"
	"github.com/autobrr/fetcharr/internal/buildinfo"
	"github.com/autobrr/fetcharr/internal/config"
	"github.com/autobrr/fetcharr/internal/database"
	"github.com/autobrr/fetcharr/internal/decision"
	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/downloadclient"
	"github.com/autobrr/fetcharr/internal/events"
	"github.com/autobrr/fetcharr/internal/indexer"
	"github.com/autobrr/fetcharr/internal/metrics"
	"github.com/autobrr/fetcharr/internal/models"
	"github.com/autobrr/fetcharr/internal/parser"
	"github.com/autobrr/fetcharr/internal/services/download"
	"github.com/autobrr/fetcharr/internal/services/failed"
	"github.com/autobrr/fetcharr/internal/services/pending"
	"github.com/autobrr/fetcharr/internal/services/search"
	"github.com/autobrr/fetcharr/internal/services/tracker"
)

func main() {
	config.InitDefaultLogger(buildinfo.Version)

	var rootCmd = &cobra.Command{
		Use:   "fetcharr",
		Short: "Book release acquisition and download tracking service",
		Long: `fetcharr - searches Torznab/Newznab indexers for wanted books,
picks the best release, hands it to a download client and tracks the
download until it is imported or failed.`,
	}

	rootCmd.Version = buildinfo.Version

	rootCmd.AddCommand(RunServeCommand())
	rootCmd.AddCommand(RunVersionCommand(buildinfo.Version))
	rootCmd.AddCommand(RunGenerateConfigCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func RunServeCommand() *cobra.Command {
	var (
		configDir string
		dataDir   string
		logPath   string
	)

	var command = &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
	}

	command.Flags().StringVar(&configDir, "config-dir", "", "config directory path (default is OS-specific: ~/.config/fetcharr/). For backward compatibility, can also be a direct path to a .toml file")
	command.Flags().StringVar(&dataDir, "data-dir", "", "data directory for database and other files (default is next to config file)")
	command.Flags().StringVar(&logPath, "log-path", "", "log file path (default is stdout)")

	command.Run = func(cmd *cobra.Command, args []string) {
		app := NewApplication(configDir, dataDir, logPath)
		app.runServer()
	}

	return command
}

func RunVersionCommand(version string) *cobra.Command {
	var command = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of fetcharr",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	return command
}

func RunGenerateConfigCommand() *cobra.Command {
	var configDir string

	command := &cobra.Command{
		Use:   "generate-config",
		Short: "Generate a default configuration file",
		Long: `Generate a default configuration file without starting the server.

If no --config-dir is specified, uses the OS-specific default location:
- Linux/macOS: ~/.config/fetcharr/config.toml
- Windows: %APPDATA%\fetcharr\config.toml

You can specify either a directory path or a direct file path:
- Directory: fetcharr generate-config --config-dir /path/to/config/
- File: fetcharr generate-config --config-dir /path/to/myconfig.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var configPath string
			if configDir != "" {
				if strings.HasSuffix(strings.ToLower(configDir), ".toml") {
					configPath = configDir
				} else if info, err := os.Stat(configDir); err == nil && !info.IsDir() {
					configPath = configDir
				} else {
					configPath = filepath.Join(configDir, "config.toml")
				}
			} else {
				defaultDir := config.GetDefaultConfigDir()
				configPath = filepath.Join(defaultDir, "config.toml")
			}

			if _, err := os.Stat(configPath); err == nil {
				cmd.Printf("Configuration file already exists at: %s\n", configPath)
				cmd.Println("Skipping generation to avoid overwriting existing configuration.")
				return nil
			}

			if err := config.WriteDefaultConfig(configPath); err != nil {
				return fmt.Errorf("failed to create configuration file: %w", err)
			}

			cmd.Printf("Configuration file created successfully at: %s\n", configPath)
			return nil
		},
	}

	command.Flags().StringVar(&configDir, "config-dir", "",
		"config directory or file path (defaults to OS-specific location)")

	return command
}

type Application struct {
	configDir string
	dataDir   string
	logPath   string
}

func NewApplication(configDir, dataDir, logPath string) *Application {
	return &Application{
		configDir: configDir,
		dataDir:   dataDir,
		logPath:   logPath,
	}
}

// grabberFunc adapts a function to the pending.Grabber interface.
type grabberFunc func(ctx context.Context, d domain.CandidateDecision) error

func (f grabberFunc) Grab(ctx context.Context, d domain.CandidateDecision) error {
	return f(ctx, d)
}

// historyImporter fulfils the tracker's import hook by recording the import
// in history. The on-disk import mechanics live outside this service.
type historyImporter struct {
	history *models.HistoryStore
}

func (i *historyImporter) Import(ctx context.Context, td *domain.TrackedDownload) error {
	return i.history.Add(ctx, &models.HistoryEntry{
		EventType:   models.HistoryEventImported,
		DownloadID:  td.DownloadID,
		SourceTitle: td.Remote.Release.Title,
		AuthorID:    td.Remote.Author.ID,
		BookIDs:     td.Remote.BookIDs(),
	})
}

func (app *Application) runServer() {
	cfg, err := config.New(app.configDir, buildinfo.Version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize configuration")
	}

	// Override with CLI flags if provided
	if app.dataDir != "" {
		os.Setenv("FETCHARR__DATA_DIR", app.dataDir)
		cfg.SetDataDir(app.dataDir)
	}
	if app.logPath != "" {
		os.Setenv("FETCHARR__LOG_PATH", app.logPath)
		cfg.Config.LogPath = app.logPath
	}

	cfg.ApplyLogConfig()

	log.Info().Str("version", buildinfo.Version).Msg("Starting fetcharr")

	db, err := database.Open(cfg.GetDataDir())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	pendingStore := models.NewPendingReleaseStore(db)
	historyStore := models.NewHistoryStore(db)
	blocklistStore := models.NewBlocklistStore(db)

	adapterTimeout := time.Duration(cfg.Config.AdapterTimeoutSeconds) * time.Second
	indexerRegistry := indexer.NewRegistry(log.Logger, cfg.Config.Indexers, adapterTimeout)
	clientRegistry := downloadclient.NewRegistry(log.Logger, cfg.Config.DownloadClients, adapterTimeout)

	profile := domain.DefaultQualityProfile()
	if len(cfg.Config.QualityProfiles) > 0 {
		profile = cfg.Config.QualityProfiles[0].Profile()
	}
	var delayProfile domain.DelayProfile
	if len(cfg.Config.DelayProfiles) > 0 {
		delayProfile = cfg.Config.DelayProfiles[0].Profile()
	}

	scorer, err := decision.NewFormatScorer(cfg.Config.CustomFormats)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compile custom formats")
	}

	minimumAge := time.Duration(cfg.Config.MinimumAgeMinutes) * time.Minute
	engine := decision.NewEngine(log.Logger, parser.New(), scorer, blocklistStore, profile, delayProfile, minimumAge)
	comparator := decision.NewComparator(profile, delayProfile, cfg.Config.PreferProperRepack)

	metricsReg := prometheus.NewRegistry()
	m := metrics.New(metricsReg)

	bus := events.NewBus(log.Logger)
	detector := tracker.NewFailedDownloadDetector(log.Logger, bus)
	trackerService := tracker.NewService(log.Logger, clientRegistry, bus, detector,
		&historyImporter{history: historyStore})

	submitter := download.NewSubmitter(log.Logger, clientRegistry, trackerService, historyStore, bus)

	searchService := search.NewService(log.Logger, indexerRegistry, engine, comparator,
		submitter, nil, m,
		func() []domain.WantedItem {
			items := make([]domain.WantedItem, 0, len(cfg.Config.Wanted))
			for _, w := range cfg.Config.Wanted {
				items = append(items, w.Item())
			}
			return items
		},
		adapterTimeout, cfg.Config.MaxSearchWorkers)

	pendingService := pending.NewService(log.Logger, pendingStore, comparator, profile,
		searchService,
		grabberFunc(func(ctx context.Context, d domain.CandidateDecision) error {
			if err := submitter.Grab(ctx, d); err != nil {
				return err
			}
			m.PendingPromotions.Inc()
			return nil
		}))
	searchService.SetHolder(pendingService)

	failedHandler := failed.NewHandler(log.Logger, blocklistStore, historyStore, trackerService,
		func(ctx context.Context, ev events.DownloadFailedEvent) {
			m.DownloadsFailed.Inc()
			searchService.OnDownloadFailed(ctx, ev.Remote)
		},
		cfg.Config.DeleteFailedData)
	failedHandler.Register(bus)

	bus.OnGrab(func(ev events.GrabEvent) {
		pendingService.OnGrabbed(context.Background(), ev.Remote)
	})
	bus.OnDownloadCompleted(func(events.DownloadCompletedEvent) {
		m.DownloadsCompleted.Inc()
	})

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	trackerInterval := time.Duration(cfg.Config.TrackerIntervalSeconds) * time.Second
	go trackerService.Run(rootCtx, trackerInterval)

	searchInterval := time.Duration(cfg.Config.SearchIntervalMinutes) * time.Minute
	go searchService.Run(rootCtx, searchInterval)

	// Pending promotion and gauge refresh ride the tracker interval.
	go func() {
		ticker := time.NewTicker(trackerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				pendingService.PromoteDue(rootCtx)

				m.TrackedDownloads.Set(float64(len(trackerService.All())))
				if held, err := pendingStore.All(rootCtx); err == nil {
					m.PendingHeld.Set(float64(len(held)))
				}
			}
		}
	}()

	httpServer := api.NewServer(&api.Dependencies{
		Config:         cfg,
		Version:        buildinfo.Version,
		Tracker:        trackerService,
		SearchService:  searchService,
		PendingStore:   pendingStore,
		HistoryStore:   historyStore,
		BlocklistStore: blocklistStore,
		MetricsReg:     metricsReg,
	})

	errorChannel := make(chan error)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errorChannel <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Msgf("got signal %v, shutting down server", sig.String())
	case err := <-errorChannel:
		log.Error().Err(err).Msg("got unexpected error from server")
	}

	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("got error during graceful http shutdown")
		os.Exit(1)
	}

	os.Exit(0)
}
