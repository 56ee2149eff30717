// Package sqlite provides a SQLite-backed implementation of the
// storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// querier is satisfied by both *sql.DB and *sql.Tx, letting every store
// method run either standalone or inside a WithTx scope.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	q  querier
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Required for the ON DELETE actions on audit_log and the membership
	// cascades.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, q: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a single database transaction. Calls made on the
// Store passed to fn share that transaction. Nested calls reuse the ambient
// transaction rather than opening a second one.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(storage.Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLiteStore{db: s.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// mapErr translates driver-level constraint failures into the typed ledger
// errors the service layer works with.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "audit log entries are immutable"):
		return fmt.Errorf("%w", ledger.ErrImmutableAuditLog)
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return &ledger.IntegrityError{Constraint: "unique", Detail: msg}
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &ledger.IntegrityError{Constraint: "foreign_key", Detail: msg}
	case strings.Contains(msg, "CHECK constraint failed"):
		return &ledger.IntegrityError{Constraint: "check", Detail: msg}
	}
	return err
}

// fetchDeletedAt reads the lifecycle column for one row.
func (s *SQLiteStore) fetchDeletedAt(ctx context.Context, table string, entity models.EntityType, id string) (sql.NullInt64, error) {
	var deletedAt sql.NullInt64
	err := s.q.QueryRowContext(ctx, "SELECT deleted_at FROM "+table+" WHERE id = ?", id).Scan(&deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return deletedAt, &ledger.NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return deletedAt, fmt.Errorf("failed to read %s %s: %w", entity, id, err)
	}
	return deletedAt, nil
}

// softDelete marks a row deleted. Calling it on an already soft-deleted row
// is a no-op.
func (s *SQLiteStore) softDelete(ctx context.Context, table string, entity models.EntityType, id string) error {
	deletedAt, err := s.fetchDeletedAt(ctx, table, entity, id)
	if err != nil {
		return err
	}
	if deletedAt.Valid {
		return nil
	}

	now := time.Now().Unix()
	if _, err := s.q.ExecContext(ctx,
		"UPDATE "+table+" SET deleted_at = ?, updated_at = ? WHERE id = ?",
		now, now, id,
	); err != nil {
		return fmt.Errorf("failed to soft-delete %s %s: %w", entity, id, mapErr(err))
	}
	return nil
}

// restore clears the deletion mark. Calling it on an active row is a no-op.
func (s *SQLiteStore) restore(ctx context.Context, table string, entity models.EntityType, id string) error {
	deletedAt, err := s.fetchDeletedAt(ctx, table, entity, id)
	if err != nil {
		return err
	}
	if !deletedAt.Valid {
		return nil
	}

	if _, err := s.q.ExecContext(ctx,
		"UPDATE "+table+" SET deleted_at = NULL, updated_at = ? WHERE id = ?",
		time.Now().Unix(), id,
	); err != nil {
		return fmt.Errorf("failed to restore %s %s: %w", entity, id, mapErr(err))
	}
	return nil
}

// hardDelete permanently removes a row. Only soft-deleted rows may be
// removed; attempting this on an active row fails with a LifecycleError.
func (s *SQLiteStore) hardDelete(ctx context.Context, table string, entity models.EntityType, id string) error {
	deletedAt, err := s.fetchDeletedAt(ctx, table, entity, id)
	if err != nil {
		return err
	}
	if !deletedAt.Valid {
		return &ledger.LifecycleError{Entity: entity, ID: id, State: models.StateActive}
	}

	if _, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to hard-delete %s %s: %w", entity, id, mapErr(err))
	}
	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// deletedAtValue maps the model's zero-means-active convention to SQL NULL.
func deletedAtValue(ts int64) any {
	if ts == 0 {
		return nil
	}
	return ts
}
