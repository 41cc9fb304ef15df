// Package postgres implements the demand directory on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rezkam/demand/internal/application/demand"
)

// Store is a PostgreSQL-backed demand.Directory.
type Store struct {
	pool *pgxpool.Pool
}

var _ demand.Directory = (*Store)(nil)

// NewStore creates a store on an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// finalizeTx rolls back when *err is set and commits otherwise.
func finalizeTx(ctx context.Context, tx pgx.Tx, err *error) {
	if *err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed",
				"original_error", *err,
				"rollback_error", rbErr)
			*err = fmt.Errorf("transaction failed: %w (rollback error: %v)", *err, rbErr)
		}
		return
	}
	if *err = tx.Commit(ctx); *err != nil {
		slog.ErrorContext(ctx, "Transaction commit failed", "error", *err)
	}
}

// executeInTransaction runs fn inside a transaction, rolling back on error or panic.
func (s *Store) executeInTransaction(ctx context.Context, operation string, fn func(tx pgx.Tx) error) (err error) {
	start := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "Transaction panic, rolling back", "operation", operation, "panic", p)
			_ = tx.Rollback(ctx)
			panic(p)
		}

		finalizeTx(ctx, tx, &err)
		if err == nil {
			slog.DebugContext(ctx, "Transaction completed",
				"operation", operation,
				"duration_ms", time.Since(start).Milliseconds())
		}
	}()

	return fn(tx)
}
