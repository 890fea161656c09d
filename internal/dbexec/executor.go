// Package dbexec provides database query execution abstractions so the store
// can run against a live handle or a test double.
package dbexec

import (
	"context"
	"database/sql"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Row abstracts sql.Row for single-row lookups. Errors surface at Scan time,
// matching the sql.Row contract.
type Row interface {
	Scan(dest ...any) error
}

// QueryExecutor abstracts SQL execution for the store layer.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries directly against the database.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

func (e *StandardExecutor) QueryRowContext(ctx context.Context, query string, args ...any) Row {
	if e.db == nil {
		return errRow{err: sql.ErrConnDone}
	}
	return e.db.QueryRowContext(ctx, query, args...)
}

func (e *StandardExecutor) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.ExecContext(ctx, query, args...)
}

// errRow defers a query-time failure to Scan, the way sql.Row does.
type errRow struct {
	err error
}

func (r errRow) Scan(dest ...any) error { return r.err }
