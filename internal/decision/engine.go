// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package decision

import (
	"context"
	"strings"
	"time"

	fuzzysearch "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/rs/zerolog"

	"github.com/autobrr/fetcharr/internal/domain"
	"github.com/autobrr/fetcharr/internal/fuzzy"
)

// matchThreshold caps the edit fraction tolerated when verifying that a
// release title names the wanted author or book.
const matchThreshold = 0.3

// wordDelimiters are the characters treated as word boundaries in release
// titles.
const wordDelimiters = " .-_"

// Blocklist is the subset of the blocklist store the engine consults.
type Blocklist interface {
	Blocked(ctx context.Context, release domain.ReleaseInfo) (bool, error)
}

// Parser normalizes release titles.
type Parser interface {
	ParseTitle(title string) domain.ParsedReleaseInfo
}

// Engine turns raw indexer releases into ranked candidate decisions.
type Engine struct {
	log     zerolog.Logger
	parser  Parser
	scorer  *FormatScorer
	block   Blocklist
	profile domain.QualityProfile
	delay   domain.DelayProfile

	minimumAge time.Duration
}

func NewEngine(log zerolog.Logger, parser Parser, scorer *FormatScorer, block Blocklist,
	profile domain.QualityProfile, delay domain.DelayProfile, minimumAge time.Duration,
) *Engine {
	return &Engine{
		log:        log.With().Str("component", "decision").Logger(),
		parser:     parser,
		scorer:     scorer,
		block:      block,
		profile:    profile,
		delay:      delay,
		minimumAge: minimumAge,
	}
}

// Evaluate builds a decision for every release against the wanted author and
// books. A panic while evaluating one candidate rejects that candidate only.
func (e *Engine) Evaluate(ctx context.Context, releases []domain.ReleaseInfo, author domain.Author, books []domain.Book) []domain.CandidateDecision {
	decisions := make([]domain.CandidateDecision, 0, len(releases))
	for _, release := range releases {
		decision := e.evaluateOne(ctx, release, author, books)
		if decision != nil {
			decisions = append(decisions, *decision)
		}
	}
	return decisions
}

// evaluateOne returns nil when the release does not name the wanted author at
// all; such releases are noise, not rejections worth reporting.
func (e *Engine) evaluateOne(ctx context.Context, release domain.ReleaseInfo, author domain.Author, books []domain.Book) (decision *domain.CandidateDecision) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error().Interface("panic", r).Str("release", release.Title).
				Msg("candidate evaluation panicked")
			decision = &domain.CandidateDecision{
				Remote: domain.RemoteBook{Release: release},
				Rejections: []domain.Rejection{
					domain.PermanentRejection("evaluation error"),
				},
			}
		}
	}()

	parsed := e.parser.ParseTitle(release.Title)

	if !e.titleNamesAuthor(release.Title, author.Name) {
		return nil
	}

	matched := e.matchBooks(release.Title, parsed, books)
	remote := domain.RemoteBook{
		Author:  author,
		Books:   matched,
		Release: release,
		Parsed:  parsed,
	}

	d := domain.CandidateDecision{Remote: remote}

	if len(matched) == 0 {
		d.Rejections = append(d.Rejections,
			domain.PermanentRejection("no wanted book matched in title"))
	}

	if !e.profile.IsAllowed(parsed.Quality) {
		d.Rejections = append(d.Rejections,
			domain.PermanentRejection("quality "+parsed.Quality.String()+" is not wanted"))
	}

	if blocked, err := e.block.Blocked(ctx, release); err != nil {
		e.log.Error().Err(err).Str("release", release.Title).Msg("blocklist lookup failed")
	} else if blocked {
		d.Rejections = append(d.Rejections,
			domain.PermanentRejection("release is blocklisted"))
	}

	if release.Protocol == domain.ProtocolUsenet && e.minimumAge > 0 && release.Age() < e.minimumAge {
		d.Rejections = append(d.Rejections,
			domain.TemporaryRejection("release is too young, propagation may be incomplete"))
	}

	if delay := e.delay.DelayFor(release.Protocol); delay > 0 && release.Age() < delay {
		d.Rejections = append(d.Rejections,
			domain.TemporaryRejection("waiting for delay profile to elapse"))
	}

	if d.Approved() || d.TemporarilyRejected() {
		d.Score = e.scorer.Score(remote)
	}

	return &d
}

// titleNamesAuthor verifies the author's name occurs in the release title as
// whole words. The cheap subsequence prefilter discards obvious mismatches
// before the bounded edit-distance pass runs; the word-boundary search is the
// verifier, so a name embedded mid-word never counts.
func (e *Engine) titleNamesAuthor(title, author string) bool {
	if author == "" {
		return false
	}
	if !fuzzysearch.MatchNormalizedFold(author, title) {
		return false
	}
	idx, _, _ := fuzzy.Match(normalize(title), normalize(author), matchThreshold, wordDelimiters)
	return idx >= 0
}

// matchBooks returns the wanted books named by the title. A discography
// release matches every wanted book.
func (e *Engine) matchBooks(title string, parsed domain.ParsedReleaseInfo, books []domain.Book) []domain.Book {
	if parsed.Discography {
		return books
	}

	var matched []domain.Book
	for _, book := range books {
		idx, _, _ := fuzzy.Match(normalize(title), normalize(book.Title), matchThreshold, wordDelimiters)
		if idx >= 0 {
			matched = append(matched, book)
		}
	}
	return matched
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
