package store

import (
	"context"
	"database/sql"
)

// Visibility controls whether soft-deleted rows are returned by a query.
type Visibility int

const (
	// ActiveOnly hides rows whose deleted_at is set.
	ActiveOnly Visibility = iota
	// IncludeDeleted returns rows regardless of deleted_at.
	IncludeDeleted
)

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction and commits only if fn succeeds.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
