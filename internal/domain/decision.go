// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

// RejectionType distinguishes rejections that can never clear from ones that
// may clear later (delay not elapsed, release too early).
type RejectionType int

const (
	RejectionPermanent RejectionType = iota
	RejectionTemporary
)

func (t RejectionType) String() string {
	if t == RejectionTemporary {
		return "temporary"
	}
	return "permanent"
}

// Rejection is one reason a candidate was turned down. Reasons stay free-text
// so new rule modules can add their own without touching the core.
type Rejection struct {
	Type   RejectionType `json:"type"`
	Reason string        `json:"reason"`
}

func PermanentRejection(reason string) Rejection {
	return Rejection{Type: RejectionPermanent, Reason: reason}
}

func TemporaryRejection(reason string) Rejection {
	return Rejection{Type: RejectionTemporary, Reason: reason}
}

// CandidateDecision is the ephemeral result of evaluating one release against
// a wanted item. It is rebuilt on every search cycle and never persisted.
type CandidateDecision struct {
	Remote     RemoteBook  `json:"remote"`
	Score      int         `json:"score"`
	Rejections []Rejection `json:"rejections,omitempty"`
}

// Approved reports whether the candidate passed every rule.
func (d CandidateDecision) Approved() bool {
	return len(d.Rejections) == 0
}

// TemporarilyRejected reports whether the candidate was rejected only by
// rules that may clear later. Such candidates are worth holding.
func (d CandidateDecision) TemporarilyRejected() bool {
	if len(d.Rejections) == 0 {
		return false
	}
	for _, r := range d.Rejections {
		if r.Type == RejectionPermanent {
			return false
		}
	}
	return true
}

// FirstRejection returns the leading rejection reason, or "" when approved.
func (d CandidateDecision) FirstRejection() string {
	if len(d.Rejections) == 0 {
		return ""
	}
	return d.Rejections[0].Reason
}
