// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package decision evaluates and ranks candidate releases for a wanted item.
package decision

import (
	"math"
	"sort"
	"time"

	"github.com/autobrr/fetcharr/internal/domain"
)

// sizeBucket groups near-equal sizes so the size tiebreak ignores small
// packaging differences.
const sizeBucket = 200 * 1024 * 1024

// Comparator totally orders candidate decisions for one wanted item. The
// first sub-comparator returning non-zero decides; later ones only break
// ties.
type Comparator struct {
	profile            domain.QualityProfile
	delay              domain.DelayProfile
	preferProperRepack bool
}

func NewComparator(profile domain.QualityProfile, delay domain.DelayProfile, preferProperRepack bool) *Comparator {
	return &Comparator{
		profile:            profile,
		delay:              delay,
		preferProperRepack: preferProperRepack,
	}
}

// Compare returns a positive value when a ranks above b, negative when below
// and zero when the chain exhausts without a winner.
func (c *Comparator) Compare(a, b domain.CandidateDecision) int {
	if cmp := c.compareQuality(a, b); cmp != 0 {
		return cmp
	}
	if cmp := a.Score - b.Score; cmp != 0 {
		return cmp
	}
	if cmp := c.compareProtocol(a, b); cmp != 0 {
		return cmp
	}
	// Lower configured priority number is the better indexer.
	if cmp := b.Remote.Release.IndexerPriority - a.Remote.Release.IndexerPriority; cmp != 0 {
		return cmp
	}
	if cmp := comparePeers(a, b); cmp != 0 {
		return cmp
	}
	if cmp := compareBooks(a, b); cmp != 0 {
		return cmp
	}
	if cmp := compareAge(a, b); cmp != 0 {
		return cmp
	}
	return compareSize(a, b)
}

// Sort orders decisions best first. The sort is stable so equal candidates
// keep their arrival order.
func (c *Comparator) Sort(decisions []domain.CandidateDecision) {
	sort.SliceStable(decisions, func(i, j int) bool {
		return c.Compare(decisions[i], decisions[j]) > 0
	})
}

func (c *Comparator) compareQuality(a, b domain.CandidateDecision) int {
	if cmp := c.profile.CompareQuality(a.Remote.Parsed.Quality, b.Remote.Parsed.Quality); cmp != 0 {
		return cmp
	}
	if c.preferProperRepack {
		return a.Remote.Parsed.Revision - b.Remote.Parsed.Revision
	}
	return 0
}

func (c *Comparator) compareProtocol(a, b domain.CandidateDecision) int {
	return boolCompare(
		c.delay.IsPreferredProtocol(a.Remote.Release.Protocol),
		c.delay.IsPreferredProtocol(b.Remote.Release.Protocol),
	)
}

// comparePeers only applies when both candidates are torrents. Raw counts are
// compressed to round(log10(n)) so 50 vs 60 seeders is a tie but 50 vs 5 is
// not.
func comparePeers(a, b domain.CandidateDecision) int {
	if a.Remote.Release.Protocol != domain.ProtocolTorrent || b.Remote.Release.Protocol != domain.ProtocolTorrent {
		return 0
	}
	if cmp := peerTier(a.Remote.Release.Seeders) - peerTier(b.Remote.Release.Seeders); cmp != 0 {
		return cmp
	}
	return peerTier(a.Remote.Release.Peers) - peerTier(b.Remote.Release.Peers)
}

func peerTier(n int) int {
	if n <= 0 {
		return 0
	}
	return int(math.Round(math.Log10(float64(n))))
}

// compareBooks prefers single-work releases over discography dumps, then more
// matched books.
func compareBooks(a, b domain.CandidateDecision) int {
	if cmp := boolCompare(!a.Remote.Parsed.Discography, !b.Remote.Parsed.Discography); cmp != 0 {
		return cmp
	}
	return len(a.Remote.Books) - len(b.Remote.Books)
}

// compareAge only applies when both candidates are usenet; fresher posts
// retain better completion.
func compareAge(a, b domain.CandidateDecision) int {
	if a.Remote.Release.Protocol != domain.ProtocolUsenet || b.Remote.Release.Protocol != domain.ProtocolUsenet {
		return 0
	}
	return ageTier(a.Remote.Release.Age()) - ageTier(b.Remote.Release.Age())
}

func ageTier(age time.Duration) int {
	switch {
	case age < time.Hour:
		return 1000
	case age <= 24*time.Hour:
		return 100
	case age <= 7*24*time.Hour:
		return 10
	default:
		return 1
	}
}

func compareSize(a, b domain.CandidateDecision) int {
	return int(a.Remote.Release.Size/sizeBucket - b.Remote.Release.Size/sizeBucket)
}

func boolCompare(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}
