// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package fuzzy implements bounded approximate substring search used to
// correlate noisy release titles with canonical catalog names. The core is a
// bitap bounded edit-distance search; patterns longer than a machine word
// fall back to a dynamic-programming scan with the same semantics.
package fuzzy

import (
	"math"
	"sort"
	"strings"
)

// matchDistance weights how far a match may sit from the expected location
// before the proximity penalty starts deciding ties. Only affects which of
// several equally-good locations wins, never whether a location qualifies.
const matchDistance = 1000

// maxBitapPattern is the longest pattern the single-word bitap handles.
const maxBitapPattern = 63

// Find returns the left-most best start index of an approximate occurrence
// of pattern inside text, or -1 when either string is empty or no location
// needs at most threshold*len(pattern) character edits. Ties break toward
// the left-most, closest-to-start match.
func Find(text, pattern string, threshold float64) int {
	t := []rune(text)
	p := []rune(pattern)
	if len(t) == 0 || len(p) == 0 {
		return -1
	}
	loc, _ := search(t, p, threshold)
	return loc
}

// Contains runs the same search with no error bound and reports a normalized
// goodness score: 1.0 for an exact substring, degrading toward 0 as the
// required edits approach the pattern length, 0 for empty inputs.
func Contains(text, pattern string) float64 {
	t := []rune(text)
	p := []rune(pattern)
	if len(t) == 0 || len(p) == 0 {
		return 0
	}
	loc, errs := search(t, p, 1.0)
	if loc < 0 {
		return 0
	}
	score := 1.0 - float64(errs)/float64(len(p))
	if score < 0 {
		return 0
	}
	return score
}

// Match is the word-boundary-aware variant. A candidate occurrence only
// counts when its start and end fall on a delimiter boundary (or the string
// edge); each misaligned edge costs one extra edit, so an exact match inside
// an unrelated word fails a near-zero threshold and scores below an
// equal-distance whole-word match. Every candidate location competes with
// its boundary penalty applied, so an embedded occurrence early in the text
// cannot shadow a whole-word occurrence later. Returns the start index in
// text, the span length consumed (insertions and deletions shift it away
// from the pattern length), and the normalized score; (-1, 0, 0) when
// nothing qualifies.
func Match(text, pattern string, threshold float64, wordDelimiters string) (int, int, float64) {
	t := []rune(text)
	p := []rune(pattern)
	if len(t) == 0 || len(p) == 0 {
		return -1, 0, 0
	}

	// Widen the search bound by the worst-case boundary penalty; a location
	// over the raw bound can still qualify once a cleaner-edged competitor
	// is unavailable, and vice versa.
	m := len(p)
	cands := searchAll(t, p, boundErrors(m, threshold)+2)

	bestLoc, bestEnd := -1, 0
	bestFrac := 0.0
	bestScore := math.Inf(1)
	for _, c := range cands {
		end, dist := bestSpan(t, p, c.loc)

		edits := dist
		if !onBoundary(t, c.loc-1, wordDelimiters) {
			edits++
		}
		if !onBoundary(t, end, wordDelimiters) {
			edits++
		}

		frac := float64(edits) / float64(m)
		if frac > threshold+1e-9 {
			continue
		}
		score := frac + float64(c.loc)/matchDistance
		if score < bestScore {
			bestScore = score
			bestLoc, bestEnd, bestFrac = c.loc, end, frac
		}
	}
	if bestLoc < 0 {
		return -1, 0, 0
	}

	score := 1.0 - bestFrac
	if score < 0 {
		score = 0
	}
	return bestLoc, bestEnd - bestLoc, score
}

// onBoundary reports whether text index i is outside the string or holds a
// delimiter rune.
func onBoundary(text []rune, i int, delimiters string) bool {
	if i < 0 || i >= len(text) {
		return true
	}
	return strings.ContainsRune(delimiters, text[i])
}

// candidate is one start location where the pattern occurs within the error
// bound, with the minimal edit count for that location.
type candidate struct {
	loc  int
	errs int
}

// boundErrors converts a fractional threshold into an absolute edit bound.
func boundErrors(patternLen int, threshold float64) int {
	maxErrors := int(threshold*float64(patternLen) + 1e-9)
	if maxErrors > patternLen {
		maxErrors = patternLen
	}
	return maxErrors
}

// search locates the single best approximate occurrence of pattern in text
// allowing at most threshold*len(pattern) edits. Returns the start index and
// the edit count of the winning location, or (-1, 0).
func search(text, pattern []rune, threshold float64) (int, int) {
	m := len(pattern)
	bestLoc := -1
	bestErrs := 0
	bestScore := math.Inf(1)
	for _, c := range searchAll(text, pattern, boundErrors(m, threshold)) {
		score := float64(c.errs)/float64(m) + float64(c.loc)/matchDistance
		if score < bestScore {
			bestScore = score
			bestLoc = c.loc
			bestErrs = c.errs
		}
	}
	return bestLoc, bestErrs
}

// searchAll returns every start location where pattern occurs within
// maxErrors edits, sorted by location, minimal edit count per location.
func searchAll(text, pattern []rune, maxErrors int) []candidate {
	if maxErrors > len(pattern) {
		maxErrors = len(pattern)
	}
	var byLoc map[int]int
	if len(pattern) <= maxBitapPattern {
		byLoc = bitap(text, pattern, maxErrors)
	} else {
		byLoc = dpSearch(text, pattern, maxErrors)
	}

	cands := make([]candidate, 0, len(byLoc))
	for loc, errs := range byLoc {
		cands = append(cands, candidate{loc: loc, errs: errs})
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].loc < cands[j].loc })
	return cands
}

// bitap is the Wu-Manber bit-parallel bounded search. One round per allowed
// error count d; rd[j] bit k set means pattern[k:] matches text ending just
// before j with at most d errors. Rounds run in ascending d, so the first
// round that reports a location records its minimal edit count.
func bitap(text, pattern []rune, maxErrors int) map[int]int {
	m := len(pattern)
	n := len(text)

	alphabet := make(map[rune]uint64, m)
	for i, c := range pattern {
		alphabet[c] |= 1 << uint(m-i-1)
	}

	matchMask := uint64(1) << uint(m-1)
	found := make(map[int]int)

	var lastRd []uint64
	finish := n + m
	for d := 0; d <= maxErrors; d++ {
		rd := make([]uint64, finish+2)
		rd[finish+1] = (1 << uint(d)) - 1
		for j := finish; j >= 1; j-- {
			var charMatch uint64
			if j-1 < n {
				charMatch = alphabet[text[j-1]]
			}
			if d == 0 {
				rd[j] = ((rd[j+1] << 1) | 1) & charMatch
			} else {
				rd[j] = (((rd[j+1] << 1) | 1) & charMatch) |
					(((lastRd[j+1] | lastRd[j]) << 1) | 1) |
					lastRd[j+1]
			}
			if rd[j]&matchMask == 0 {
				continue
			}
			x := j - 1
			if x >= n {
				continue
			}
			if _, ok := found[x]; !ok {
				found[x] = d
			}
		}
		lastRd = rd
	}

	return found
}

// dpSearch is the Sellers algorithm: classic edit-distance DP where any text
// position may start a match for free. Slower than bitap but unbounded in
// pattern length.
func dpSearch(text, pattern []rune, maxErrors int) map[int]int {
	m := len(pattern)
	n := len(text)

	dist := make([]int, n+1)
	start := make([]int, n+1)
	for j := 0; j <= n; j++ {
		start[j] = j
	}

	for i := 1; i <= m; i++ {
		prevDiag := dist[0]
		prevDiagStart := start[0]
		dist[0] = i
		start[0] = 0
		for j := 1; j <= n; j++ {
			curDiag := dist[j]
			curDiagStart := start[j]

			sub := prevDiag
			if text[j-1] != pattern[i-1] {
				sub++
			}
			del := dist[j] + 1   // skip pattern rune
			ins := dist[j-1] + 1 // consume extra text rune

			best := sub
			bestStart := prevDiagStart
			if del < best || (del == best && start[j] < bestStart) {
				best = del
				bestStart = start[j]
			}
			if ins < best || (ins == best && start[j-1] < bestStart) {
				best = ins
				bestStart = start[j-1]
			}

			dist[j] = best
			start[j] = bestStart
			prevDiag = curDiag
			prevDiagStart = curDiagStart
		}
	}

	found := make(map[int]int)
	for j := 1; j <= n; j++ {
		if dist[j] > maxErrors {
			continue
		}
		x := start[j]
		if prev, ok := found[x]; !ok || dist[j] < prev {
			found[x] = dist[j]
		}
	}
	return found
}

// bestSpan finds how much of text, starting at loc, the pattern actually
// consumed: the end offset minimizing prefix-anchored edit distance, with
// ties resolved toward spans closest to the pattern length.
func bestSpan(text, pattern []rune, loc int) (int, int) {
	m := len(pattern)
	window := text[loc:]
	if len(window) > 2*m {
		window = window[:2*m]
	}
	n := len(window)

	row := make([]int, n+1)
	for j := 0; j <= n; j++ {
		row[j] = j
	}
	for i := 1; i <= m; i++ {
		prevDiag := row[0]
		row[0] = i
		for j := 1; j <= n; j++ {
			cur := row[j]
			sub := prevDiag
			if window[j-1] != pattern[i-1] {
				sub++
			}
			del := row[j] + 1
			ins := row[j-1] + 1
			best := sub
			if del < best {
				best = del
			}
			if ins < best {
				best = ins
			}
			row[j] = best
			prevDiag = cur
		}
	}

	bestEnd := 0
	bestDist := row[0]
	for j := 1; j <= n; j++ {
		if row[j] < bestDist || (row[j] == bestDist && abs(j-m) < abs(bestEnd-m)) {
			bestDist = row[j]
			bestEnd = j
		}
	}
	return loc + bestEnd, bestDist
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
