// Package postgres implements the storage ports on PostgreSQL. Every state
// transition is an UPDATE guarded by its precondition in the WHERE clause.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/chris/donation-broker/pkg/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

const (
	uniqueViolation  = "23505"
	openRequestIndex = "funding_requests_one_open_per_ngo"
)

// DB is the subset of pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements storage.Storage on PostgreSQL.
type Store struct {
	DB DB
}

var _ storage.Storage = (*Store)(nil)

// New creates a Store on db.
func New(db DB) *Store {
	return &Store{DB: db}
}

// Connect opens a pool and verifies it can reach the database.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func uniqueViolationOn(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// guardFailed classifies an UPDATE that matched no row.
func (s *Store) guardFailed(ctx context.Context, table, id string) error {
	var exists bool
	err := s.DB.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", table, err)
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrConditionFailed
}

// guarded maps the error from a guarded UPDATE ... RETURNING.
func (s *Store) guarded(ctx context.Context, err error, table, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return s.guardFailed(ctx, table, id)
	}
	return fmt.Errorf("failed to update %s %s: %w", table, id, err)
}

func notFound(err error, table, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("failed to get %s %s: %w", table, id, err)
}

func collect[T any](rows pgx.Rows, scan func(func(...any) error) (*T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}
