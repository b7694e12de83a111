// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package api serves the REST surface: queue, pending, history, blocklist,
// a manual search trigger and the Prometheus metrics endpoint.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/api/handlers"
	"github.com/autobrr/fetcharr/internal/config"
	"github.com/autobrr/fetcharr/internal/models"
	"github.com/autobrr/fetcharr/internal/services/search"
	"github.com/autobrr/fetcharr/internal/services/tracker"
)

type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	config  *config.AppConfig
	version string

	tracker        *tracker.Service
	searchService  *search.Service
	pendingStore   *models.PendingReleaseStore
	historyStore   *models.HistoryStore
	blocklistStore *models.BlocklistStore
	metricsReg     *prometheus.Registry
}

type Dependencies struct {
	Config         *config.AppConfig
	Version        string
	Tracker        *tracker.Service
	SearchService  *search.Service
	PendingStore   *models.PendingReleaseStore
	HistoryStore   *models.HistoryStore
	BlocklistStore *models.BlocklistStore
	MetricsReg     *prometheus.Registry
}

func NewServer(deps *Dependencies) *Server {
	s := Server{
		server: &http.Server{
			ReadHeaderTimeout: time.Second * 15,
			ReadTimeout:       60 * time.Second,
			WriteTimeout:      120 * time.Second,
			IdleTimeout:       180 * time.Second,
		},
		logger:         log.Logger.With().Str("module", "api").Logger(),
		config:         deps.Config,
		version:        deps.Version,
		tracker:        deps.Tracker,
		searchService:  deps.SearchService,
		pendingStore:   deps.PendingStore,
		historyStore:   deps.HistoryStore,
		blocklistStore: deps.BlocklistStore,
		metricsReg:     deps.MetricsReg,
	}

	return &s
}

func (s *Server) ListenAndServe() error {
	return s.open(nil)
}

// ListenAndServeReady behaves like ListenAndServe but signals once the listener is active.
func (s *Server) ListenAndServeReady(ready chan<- struct{}) error {
	return s.open(ready)
}

func (s *Server) open(ready chan<- struct{}) error {
	addr := fmt.Sprintf("%s:%d", s.config.Config.Host, s.config.Config.Port)

	var lastErr error
	for _, proto := range []string{"tcp", "tcp4", "tcp6"} {
		err := s.tryToServe(addr, proto, ready)
		if err == nil {
			return nil
		}

		if errors.Is(err, http.ErrServerClosed) {
			return err
		}

		s.logger.Error().Err(err).Str("addr", addr).Str("proto", proto).Msgf("Failed to start server")
		lastErr = err
	}

	return lastErr
}

func (s *Server) tryToServe(addr, protocol string, ready chan<- struct{}) error {
	listener, err := net.Listen(protocol, addr)
	if err != nil {
		return err
	}

	host := listener.Addr().String()
	// Replace 0.0.0.0 or :: with localhost for clickable links
	if strings.HasPrefix(host, "0.0.0.0:") || strings.HasPrefix(host, "[::]:") {
		host = strings.Replace(host, "0.0.0.0:", "localhost:", 1)
		host = strings.Replace(host, "[::]:", "localhost:", 1)
	}

	s.logger.Info().
		Str("protocol", protocol).
		Str("addr", listener.Addr().String()).
		Msgf("Starting API server - Open: http://%s", host)

	s.server.Handler = s.Handler()

	if ready != nil {
		select {
		case ready <- struct{}{}:
		default:
		}
	}

	return s.server.Serve(listener)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) Handler() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)

	corsMiddleware := cors.New(cors.Options{
		AllowCredentials: true,
		AllowedMethods:   []string{"HEAD", "OPTIONS", "GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowOriginFunc:  func(origin string) bool { return true },
		MaxAge:           300,
	})
	r.Use(corsMiddleware.Handler)

	healthHandler := handlers.NewHealthHandler(s.version)
	queueHandler := handlers.NewQueueHandler(s.tracker)
	pendingHandler := handlers.NewPendingHandler(s.pendingStore)
	historyHandler := handlers.NewHistoryHandler(s.historyStore)
	blocklistHandler := handlers.NewBlocklistHandler(s.blocklistStore)
	searchHandler := handlers.NewSearchHandler(s.searchService)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", queueHandler.List)
			r.Delete("/{downloadID}", queueHandler.Remove)
		})

		r.Get("/pending", pendingHandler.List)
		r.Get("/history", historyHandler.List)

		r.Route("/blocklist", func(r chi.Router) {
			r.Get("/", blocklistHandler.List)
			r.Delete("/{entryID}", blocklistHandler.Delete)
		})

		r.Post("/search", searchHandler.Trigger)
	})

	if s.metricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metricsReg, promhttp.HandlerOpts{}))
	}

	return r
}
