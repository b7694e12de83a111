// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package search runs the acquisition cycle: query every indexer, decide,
// rank and grab or hold the results.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/autobrr/fetcharr/internal/decision"
	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/downloadclient"
	"github.com/autobrr/fetcharr/internal/indexer"
	"github.com/autobrr/fetcharr/internal/metrics"
	"github.com/autobrr/fetcharr/internal/models"
	"github.com/autobrr/fetcharr/internal/services/pending"
)

// Grabber submits an approved candidate for download.
type Grabber interface {
	Grab(ctx context.Context, d domain.CandidateDecision) error
}

// Holder queues a temporarily rejected candidate for later promotion.
type Holder interface {
	Add(ctx context.Context, d domain.CandidateDecision, reason models.PendingReleaseReason) error
}

// WantedProvider returns the author/book sets the next cycle searches for.
type WantedProvider func() []domain.WantedItem

// Service drives the search cycle and re-searches on download failure.
type Service struct {
	log        zerolog.Logger
	indexers   *indexer.Registry
	engine     *decision.Engine
	comparator *decision.Comparator
	grabber    Grabber
	holder     Holder
	metrics    *metrics.Metrics
	wanted     WantedProvider

	adapterTimeout time.Duration
	workers        int
}

func NewService(log zerolog.Logger, indexers *indexer.Registry, engine *decision.Engine,
	comparator *decision.Comparator, grabber Grabber, holder Holder, m *metrics.Metrics,
	wanted WantedProvider, adapterTimeout time.Duration, workers int,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		log:            log.With().Str("component", "search").Logger(),
		indexers:       indexers,
		engine:         engine,
		comparator:     comparator,
		grabber:        grabber,
		holder:         holder,
		metrics:        m,
		wanted:         wanted,
		adapterTimeout: adapterTimeout,
		workers:        workers,
	}
}

// SetHolder wires the pending queue in after construction. The queue's
// admission check points back at this service, so one of the two is always
// built first.
func (s *Service) SetHolder(h Holder) {
	s.holder = h
}

// SearchAll runs one full cycle over every wanted item.
func (s *Service) SearchAll(ctx context.Context) {
	started := time.Now()
	defer func() {
		s.metrics.SearchCycleSeconds.Observe(time.Since(started).Seconds())
	}()

	for _, item := range s.wanted() {
		if ctx.Err() != nil {
			return
		}
		if err := s.SearchItem(ctx, item); err != nil {
			s.log.Error().Err(err).Str("author", item.Author.Name).Msg("search failed")
		}
	}
}

// SearchItem searches every indexer for one wanted item, grabs the best
// approved candidate and holds the temporarily rejected ones.
func (s *Service) SearchItem(ctx context.Context, item domain.WantedItem) error {
	releases := s.fetchReleases(ctx, indexer.SearchCriteria{Author: item.Author.Name})
	if len(releases) == 0 {
		s.log.Debug().Str("author", item.Author.Name).Msg("no releases found")
		return nil
	}

	decisions := s.engine.Evaluate(ctx, releases, item.Author, item.Books)
	s.comparator.Sort(decisions)

	grabbed := false
	for _, d := range decisions {
		switch {
		case d.Approved():
			if grabbed {
				continue
			}
			if err := s.grab(ctx, d); err != nil {
				return err
			}
			grabbed = true

		case d.TemporarilyRejected():
			if err := s.holder.Add(ctx, d, models.PendingReasonDelay); err != nil {
				s.log.Error().Err(err).Str("release", d.Remote.Release.Title).
					Msg("holding release failed")
			}

		default:
			s.log.Debug().Str("release", d.Remote.Release.Title).
				Str("reason", d.FirstRejection()).Msg("rejected release")
		}
	}

	return nil
}

func (s *Service) grab(ctx context.Context, d domain.CandidateDecision) error {
	err := s.grabber.Grab(ctx, d)
	if err == nil {
		s.metrics.GrabsTotal.WithLabelValues(string(d.Remote.Release.Protocol)).Inc()
		return nil
	}
	if errors.Is(err, downloadclient.ErrNoClient) {
		// Keep the winner around until a client for its protocol comes back.
		return s.holder.Add(ctx, d, models.PendingReasonClientUnavailable)
	}
	return err
}

// Reevaluate re-runs the decision rules for a single held release. Implements
// the pending queue's admission check.
func (s *Service) Reevaluate(ctx context.Context, remote domain.RemoteBook) domain.CandidateDecision {
	decisions := s.engine.Evaluate(ctx, []domain.ReleaseInfo{remote.Release}, remote.Author, remote.Books)
	if len(decisions) == 0 {
		// The release no longer matches the author at all.
		return domain.CandidateDecision{
			Remote:     remote,
			Rejections: []domain.Rejection{domain.PermanentRejection("release no longer matches a wanted book")},
		}
	}
	return decisions[0]
}

// OnDownloadFailed re-searches the author whose download just failed so a
// replacement is grabbed without waiting for the next interval.
func (s *Service) OnDownloadFailed(ctx context.Context, remote domain.RemoteBook) {
	item := domain.WantedItem{Author: remote.Author, Books: remote.Books}
	if err := s.SearchItem(ctx, item); err != nil {
		s.log.Error().Err(err).Str("author", remote.Author.Name).
			Msg("re-search after failed download failed")
	}
}

// Run executes SearchAll on the given interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.SearchAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SearchAll(ctx)
		}
	}
}

// fetchReleases fans the search out across all adapters with bounded
// concurrency. A failing adapter is logged and its results omitted; the
// others still contribute.
func (s *Service) fetchReleases(ctx context.Context, criteria indexer.SearchCriteria) []domain.ReleaseInfo {
	var (
		mu       sync.Mutex
		releases []domain.ReleaseInfo
	)

	g := errgroup.Group{}
	g.SetLimit(s.workers)

	for _, adapter := range s.indexers.Adapters() {
		g.Go(func() error {
			s.metrics.SearchesTotal.WithLabelValues(adapter.Name()).Inc()

			searchCtx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
			defer cancel()

			found, err := adapter.Search(searchCtx, criteria)
			if err != nil {
				s.metrics.SearchesFailed.WithLabelValues(adapter.Name()).Inc()
				s.log.Warn().Err(err).Str("indexer", adapter.Name()).Msg("indexer search failed")
				return nil
			}

			mu.Lock()
			releases = append(releases, found...)
			mu.Unlock()
			return nil
		})
	}

	g.Wait() //nolint:errcheck // workers never return errors

	return releases
}

var _ pending.Admission = (*Service)(nil)
