// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package dbinterface defines the narrow database interfaces the stores
// depend on, so tests can hand them a bare *sql.DB or a transaction.
package dbinterface

import (
	"context"
	"database/sql"
)

// Querier is the subset of *sql.DB the stores use.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxQuerier is satisfied by both *sql.DB and *sql.Tx; helpers that must work
// inside and outside transactions take this.
type TxQuerier interface {
	Querier
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}
