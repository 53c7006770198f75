// Package repository is the PostgreSQL storage of the service. Every statement
// touching user data carries the owner id either as a filter or as the
// assigned value.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrConflict is returned when a row exists but is not in the state the
	// statement requires.
	ErrConflict = errors.New("record state conflict")
	// ErrQuotaExhausted is returned when the conditional quota increment matched nothing.
	ErrQuotaExhausted = errors.New("quota exhausted")
	// ErrAlreadyPremium is returned when a code is redeemed for an account that
	// is already premium.
	ErrAlreadyPremium = errors.New("user already premium")
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised for ids that are not UUIDs.
	invalidTextRepresentation = "22P02"
)

// Storage wraps the PostgreSQL connection pool.
type Storage struct {
	DB *sqlx.DB
}

// New opens the connection pool and checks it with a ping.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sqlx.Connect("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Storage{DB: db}, nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sqlx.DB) *Storage {
	return &Storage{DB: db}
}

// Close releases the pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

// CheckDatabaseReady verifies that migrations have created the schema.
func CheckDatabaseReady(ctx context.Context, storage *Storage) error {
	const op = "storage.CheckDatabaseReady"

	var exists bool
	err := storage.DB.QueryRowContext(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables WHERE table_name = 'devis'
	)`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: required table devis missing", op)
	}
	return nil
}

// Ping checks the connection.
func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func mapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return ErrAlreadyExists
		case invalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}

func checkContext(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// withTx runs fn in a transaction, committing on success.
func (s *Storage) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
