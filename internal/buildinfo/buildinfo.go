// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package buildinfo carries version metadata injected at build time.
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = ""
	Date    = ""

	// UserAgent identifies fetcharr to indexers and download clients.
	UserAgent = fmt.Sprintf("fetcharr/%s", Version)
)
