// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package decision

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/fetcharr/internal/domain"
)

// FormatEnv is the expression environment a custom format is evaluated
// against. Field names are what users reference in format expressions.
type FormatEnv struct {
	Title        string  `expr:"title"`
	SizeMB       float64 `expr:"sizeMb"`
	Protocol     string  `expr:"protocol"`
	Indexer      string  `expr:"indexer"`
	Quality      string  `expr:"quality"`
	ReleaseGroup string  `expr:"releaseGroup"`
	Year         int     `expr:"year"`
	Discography  bool    `expr:"discography"`
	Seeders      int     `expr:"seeders"`
	AgeHours     float64 `expr:"ageHours"`
}

type customFormat struct {
	name    string
	score   int
	program *vm.Program
}

// FormatScorer evaluates configured custom formats against a release and
// produces the release's total format score.
type FormatScorer struct {
	formats []customFormat
}

// NewFormatScorer compiles the configured format expressions. A format that
// fails to compile aborts startup; a broken expression silently scoring zero
// would be much harder to notice.
func NewFormatScorer(configs []domain.CustomFormatConfig) (*FormatScorer, error) {
	formats := make([]customFormat, 0, len(configs))
	for _, cfg := range configs {
		program, err := expr.Compile(cfg.Expression, expr.Env(FormatEnv{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "compile custom format %q", cfg.Name)
		}
		formats = append(formats, customFormat{
			name:    cfg.Name,
			score:   cfg.Score,
			program: program,
		})
	}
	return &FormatScorer{formats: formats}, nil
}

// Score sums the scores of every format matching the release.
func (s *FormatScorer) Score(remote domain.RemoteBook) int {
	if len(s.formats) == 0 {
		return 0
	}

	env := FormatEnv{
		Title:        remote.Release.Title,
		SizeMB:       float64(remote.Release.Size) / (1024 * 1024),
		Protocol:     string(remote.Release.Protocol),
		Indexer:      remote.Release.Indexer,
		Quality:      remote.Parsed.Quality.String(),
		ReleaseGroup: remote.Parsed.ReleaseGroup,
		Year:         remote.Parsed.Year,
		Discography:  remote.Parsed.Discography,
		Seeders:      remote.Release.Seeders,
		AgeHours:     remote.Release.Age().Hours(),
	}

	total := 0
	for _, f := range s.formats {
		result, err := expr.Run(f.program, env)
		if err != nil {
			log.Error().Err(err).Str("format", f.name).Str("release", remote.Release.Title).
				Msg("custom format evaluation failed")
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			total += f.score
		}
	}
	return total
}
