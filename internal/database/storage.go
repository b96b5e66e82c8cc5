package database

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/protomem/census-registry/internal/census"
)

// Storage implements census.Repo on postgres. All queries run through ext so
// the same code executes inside or outside a transaction.
type Storage struct {
	Logger *slog.Logger
	db     *DB
	ext    sqlx.ExtContext
}

var _ census.Repo = (*Storage)(nil)

func NewStorage(logger *slog.Logger, db *DB) *Storage {
	return &Storage{
		Logger: logger.With("module", "storage"),
		db:     db,
		ext:    db.DB,
	}
}

// WithTx runs fn against a transaction-bound Storage; fn's error rolls the
// whole unit back. A nested call joins the open transaction.
func (s *Storage) WithTx(ctx context.Context, fn func(repo census.Repo) error) error {
	if _, open := s.ext.(*sqlx.Tx); open {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	bound := &Storage{Logger: s.Logger, db: s.db, ext: tx}
	if err := fn(bound); err != nil {
		return err
	}

	return tx.Commit()
}
