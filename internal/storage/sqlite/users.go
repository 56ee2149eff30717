package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
)

const userColumns = "id, email, display_name, password_hash, currency, language, created_at, updated_at, deleted_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var deletedAt sql.NullInt64
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Currency,
		&user.Language,
		&user.CreatedAt,
		&user.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	user.DeletedAt = deletedAt.Int64
	return user, nil
}

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if user.CreatedAt == 0 {
		user.CreatedAt = now
	}
	if user.UpdatedAt == 0 {
		user.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash,
		user.Currency, user.Language, user.CreatedAt, user.UpdatedAt,
		deletedAtValue(user.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapErr(err))
	}
	return nil
}

// GetUser retrieves a user by ID, regardless of lifecycle state.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityUser, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityUser, ID: email}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListActiveUsers retrieves all users that are not soft-deleted.
func (s *SQLiteStore) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY display_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// UpdateUser updates an existing user's profile fields.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().Unix()
	res, err := s.q.ExecContext(ctx,
		`UPDATE users SET email = ?, display_name = ?, password_hash = ?, currency = ?, language = ?, updated_at = ?
		 WHERE id = ?`,
		user.Email, user.DisplayName, user.PasswordHash, user.Currency, user.Language,
		user.UpdatedAt, user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Entity: models.EntityUser, ID: user.ID}
	}
	return nil
}

// SoftDeleteUser marks a user deleted. No-op if already soft-deleted.
func (s *SQLiteStore) SoftDeleteUser(ctx context.Context, id string) error {
	return s.softDelete(ctx, "users", models.EntityUser, id)
}

// RestoreUser clears a user's deletion mark.
func (s *SQLiteStore) RestoreUser(ctx context.Context, id string) error {
	return s.restore(ctx, "users", models.EntityUser, id)
}

// HardDeleteUser permanently removes a soft-deleted user. Audit entries
// referencing the user keep their denormalized snapshot; their actor_id is
// nulled by the schema's ON DELETE action.
func (s *SQLiteStore) HardDeleteUser(ctx context.Context, id string) error {
	return s.hardDelete(ctx, "users", models.EntityUser, id)
}
