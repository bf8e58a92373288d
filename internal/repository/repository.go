// Package repository contains the database access layer.
//
// Queries are hand-written SQL over database/sql (pgx stdlib driver). The
// surface mirrors a generated-query style: one method per statement with
// typed params and row structs, plus WithTx for transaction scoping.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of *sql.DB / *sql.Tx that queries need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries holds the prepared query surface bound to a DB or transaction.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to the given database handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Store combines the query surface with multi-statement operations that
// must own their transaction (e.g., the atomic subscription change).
type Store struct {
	*Queries
	db *sql.DB
}

// NewStore creates a Store over the given database.
func NewStore(db *sql.DB) *Store {
	return &Store{Queries: New(db), db: db}
}

// DB exposes the underlying handle for callers that manage their own
// transactions (the worker's dequeue loop).
func (s *Store) DB() *sql.DB {
	return s.db
}
