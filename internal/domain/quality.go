// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import "strings"

// Quality identifies a book release format. The numeric value carries no
// ordering on its own; ranking always goes through a QualityProfile.
type Quality int

const (
	QualityUnknown Quality = iota
	QualityPDF
	QualityMOBI
	QualityAZW3
	QualityEPUB
	QualityMP3320
	QualityFLAC
)

var qualityNames = map[Quality]string{
	QualityUnknown: "Unknown",
	QualityPDF:     "PDF",
	QualityMOBI:    "MOBI",
	QualityAZW3:    "AZW3",
	QualityEPUB:    "EPUB",
	QualityMP3320:  "MP3-320",
	QualityFLAC:    "FLAC",
}

func (q Quality) String() string {
	if name, ok := qualityNames[q]; ok {
		return name
	}
	return "Unknown"
}

// ParseQualityName maps a config/profile token to a Quality. Unrecognized
// tokens map to QualityUnknown.
func ParseQualityName(name string) Quality {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PDF":
		return QualityPDF
	case "MOBI":
		return QualityMOBI
	case "AZW3", "AZW":
		return QualityAZW3
	case "EPUB":
		return QualityEPUB
	case "MP3-320", "MP3_320", "MP3320", "MP3":
		return QualityMP3320
	case "FLAC":
		return QualityFLAC
	default:
		return QualityUnknown
	}
}

// QualityProfile defines which qualities a wanted item accepts and how they
// rank. Allowed is ordered worst to best.
type QualityProfile struct {
	Name            string
	Allowed         []Quality
	Cutoff          Quality
	UpgradesAllowed bool
}

// IndexOf returns the position of q in the allowed list, or -1 when the
// profile does not accept it.
func (p QualityProfile) IndexOf(q Quality) int {
	for i, allowed := range p.Allowed {
		if allowed == q {
			return i
		}
	}
	return -1
}

func (p QualityProfile) IsAllowed(q Quality) bool {
	return p.IndexOf(q) >= 0
}

// CompareQuality returns a positive value when a ranks above b in this
// profile, negative when below, zero when equal. Qualities outside the
// profile rank below every allowed quality.
func (p QualityProfile) CompareQuality(a, b Quality) int {
	return p.IndexOf(a) - p.IndexOf(b)
}

// IsUpgrade reports whether candidate would improve on current under this
// profile, honouring the cutoff.
func (p QualityProfile) IsUpgrade(current, candidate Quality) bool {
	if !p.UpgradesAllowed {
		return false
	}
	cutoffIdx := p.IndexOf(p.Cutoff)
	currentIdx := p.IndexOf(current)
	if cutoffIdx >= 0 && currentIdx >= cutoffIdx {
		return false
	}
	return p.CompareQuality(candidate, current) > 0
}

// DefaultQualityProfile accepts every known quality, ebooks below audio.
func DefaultQualityProfile() QualityProfile {
	return QualityProfile{
		Name:            "default",
		Allowed:         []Quality{QualityPDF, QualityMOBI, QualityAZW3, QualityEPUB, QualityMP3320, QualityFLAC},
		Cutoff:          QualityEPUB,
		UpgradesAllowed: true,
	}
}
