// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package pending owns the persisted holding queue for temporarily rejected
// releases. All reads and writes of pending rows go through this service.
package pending

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/decision"
	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/models"
)

// Grabber submits a promoted candidate for download.
type Grabber interface {
	Grab(ctx context.Context, d domain.CandidateDecision) error
}

// Admission re-evaluates a held release against the current rules.
type Admission interface {
	Reevaluate(ctx context.Context, remote domain.RemoteBook) domain.CandidateDecision
}

// Service implements the pending release queue. Mutations are serialized per
// author id; operations on different authors run concurrently.
type Service struct {
	log        zerolog.Logger
	store      *models.PendingReleaseStore
	comparator *decision.Comparator
	profile    domain.QualityProfile
	admission  Admission
	grabber    Grabber

	locks authorLocks
}

func NewService(log zerolog.Logger, store *models.PendingReleaseStore, comparator *decision.Comparator,
	profile domain.QualityProfile, admission Admission, grabber Grabber,
) *Service {
	return &Service{
		log:        log.With().Str("component", "pending").Logger(),
		store:      store,
		comparator: comparator,
		profile:    profile,
		admission:  admission,
		grabber:    grabber,
	}
}

// Add holds a temporarily rejected decision. An equivalent existing hold for
// the same author, book set and quality is replaced only when the new
// candidate ranks higher; a strictly worse duplicate is never stacked.
func (s *Service) Add(ctx context.Context, d domain.CandidateDecision, reason models.PendingReleaseReason) error {
	authorID := d.Remote.Author.ID
	unlock := s.locks.lock(authorID)
	defer unlock()

	existing, err := s.store.AllByAuthorID(ctx, authorID)
	if err != nil {
		return err
	}

	for _, held := range existing {
		if !held.Remote.OverlapsBooks(d.Remote.BookIDs()) {
			continue
		}
		if held.Remote.Parsed.Quality != d.Remote.Parsed.Quality {
			continue
		}

		heldDecision := domain.CandidateDecision{Remote: held.Remote}
		if s.comparator.Compare(d, heldDecision) > 0 {
			held.Remote = d.Remote
			held.Title = d.Remote.Release.Title
			held.Reason = reason
			s.log.Debug().Str("release", d.Remote.Release.Title).
				Msg("replacing pending release with better candidate")
			return s.store.Update(ctx, held)
		}

		s.log.Debug().Str("release", d.Remote.Release.Title).
			Msg("equivalent pending release already held")
		return nil
	}

	_, err = s.store.Insert(ctx, &models.PendingRelease{
		AuthorID: authorID,
		Title:    d.Remote.Release.Title,
		Remote:   d.Remote,
		Reason:   reason,
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("release", d.Remote.Release.Title).Str("reason", string(reason)).
		Msg("holding release")
	return nil
}

// OnGrabbed drops holds made redundant by a grab: entries for the same author
// whose books overlap the grabbed release and whose quality does not beat the
// grabbed quality. A strictly better held quality survives as a future
// upgrade.
func (s *Service) OnGrabbed(ctx context.Context, grabbed domain.RemoteBook) {
	authorID := grabbed.Author.ID
	unlock := s.locks.lock(authorID)
	defer unlock()

	held, err := s.store.AllByAuthorID(ctx, authorID)
	if err != nil {
		s.log.Error().Err(err).Int64("authorId", authorID).
			Msg("pending cleanup after grab failed")
		return
	}

	for _, entry := range held {
		if !entry.Remote.OverlapsBooks(grabbed.BookIDs()) {
			continue
		}
		if s.profile.CompareQuality(grabbed.Parsed.Quality, entry.Remote.Parsed.Quality) < 0 {
			continue
		}
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			s.log.Error().Err(err).Int64("id", entry.ID).Msg("delete superseded pending release failed")
			continue
		}
		s.log.Info().Str("release", entry.Title).
			Msg("dropped pending release superseded by grab")
	}
}

// PromoteDue re-runs admission for every held release. Entries that now pass
// are grabbed and removed; entries rejected permanently are discarded; the
// rest stay queued with a refreshed reason.
func (s *Service) PromoteDue(ctx context.Context) {
	all, err := s.store.All(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("pending promotion scan failed")
		return
	}

	for _, entry := range all {
		s.promote(ctx, entry)
	}
}

func (s *Service) promote(ctx context.Context, entry *models.PendingRelease) {
	unlock := s.locks.lock(entry.AuthorID)
	defer unlock()

	d := s.admission.Reevaluate(ctx, entry.Remote)

	switch {
	case d.Approved():
		if err := s.grabber.Grab(ctx, d); err != nil {
			s.log.Error().Err(err).Str("release", entry.Title).Msg("promoting pending release failed")
			return
		}
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			s.log.Error().Err(err).Int64("id", entry.ID).Msg("delete promoted pending release failed")
		}

	case d.TemporarilyRejected():
		s.log.Debug().Str("release", entry.Title).Str("reason", d.FirstRejection()).
			Msg("pending release still delayed")

	default:
		// Rules changed underneath the hold; it can never pass now.
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			s.log.Error().Err(err).Int64("id", entry.ID).Msg("delete rejected pending release failed")
			return
		}
		s.log.Info().Str("release", entry.Title).Str("reason", d.FirstRejection()).
			Msg("discarded pending release, now permanently rejected")
	}
}

// authorLocks serializes queue mutations per author id.
type authorLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func (l *authorLocks) lock(authorID int64) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[int64]*sync.Mutex)
	}
	entry, ok := l.m[authorID]
	if !ok {
		entry = &sync.Mutex{}
		l.m[authorID] = entry
	}
	l.mu.Unlock()

	entry.Lock()
	return entry.Unlock
}
