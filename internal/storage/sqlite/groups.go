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

const groupColumns = "id, name, currency, created_by, created_at, updated_at, deleted_at"

func scanGroup(row interface{ Scan(...any) error }) (*models.Group, error) {
	group := &models.Group{}
	var createdBy sql.NullString
	var deletedAt sql.NullInt64
	err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Currency,
		&createdBy,
		&group.CreatedAt,
		&group.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}
	group.CreatedBy = createdBy.String
	group.DeletedAt = deletedAt.Int64
	return group, nil
}

// CreateGroup inserts a new group.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	if group.UpdatedAt == 0 {
		group.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		group.ID, group.Name, group.Currency, nullable(group.CreatedBy),
		group.CreatedAt, group.UpdatedAt, deletedAtValue(group.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", mapErr(err))
	}
	return nil
}

// GetGroup retrieves a group by ID, regardless of lifecycle state.
func (s *SQLiteStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	group, err := scanGroup(s.q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityGroup, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListActiveGroups retrieves all groups that are not soft-deleted.
func (s *SQLiteStore) ListActiveGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// UpdateGroup updates a group's name and currency.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().Unix()
	res, err := s.q.ExecContext(ctx,
		`UPDATE groups SET name = ?, currency = ?, updated_at = ? WHERE id = ?`,
		group.Name, group.Currency, group.UpdatedAt, group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Entity: models.EntityGroup, ID: group.ID}
	}
	return nil
}

// SoftDeleteGroup marks a group deleted. No-op if already soft-deleted.
func (s *SQLiteStore) SoftDeleteGroup(ctx context.Context, id string) error {
	return s.softDelete(ctx, "groups", models.EntityGroup, id)
}

// RestoreGroup clears a group's deletion mark.
func (s *SQLiteStore) RestoreGroup(ctx context.Context, id string) error {
	return s.restore(ctx, "groups", models.EntityGroup, id)
}

// HardDeleteGroup permanently removes a soft-deleted group and, via
// cascades, its memberships, expenses and payments. Audit entries keep their
// snapshots with group_id nulled.
func (s *SQLiteStore) HardDeleteGroup(ctx context.Context, id string) error {
	return s.hardDelete(ctx, "groups", models.EntityGroup, id)
}

// AddMember inserts a membership row. Duplicate (group, user) pairs fail
// with an IntegrityError.
func (s *SQLiteStore) AddMember(ctx context.Context, m *models.Membership) error {
	now := time.Now().Unix()
	if m.JoinedAt == 0 {
		m.JoinedAt = now
	}
	if m.UpdatedAt == 0 {
		m.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, role, joined_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		m.GroupID, m.UserID, string(m.Role), m.JoinedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", mapErr(err))
	}
	return nil
}

// GetMember retrieves one membership row.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	m := &models.Membership{}
	err := s.q.QueryRowContext(ctx,
		`SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at, gm.updated_at, u.display_name
		 FROM group_members gm JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ? AND gm.user_id = ?`,
		groupID, userID,
	).Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.UpdatedAt, &m.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ledger.NotFoundError{Entity: models.EntityGroupMember, ID: groupID + "/" + userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return m, nil
}

// ListMembers retrieves the group's members whose user account is active,
// ordered by user id for deterministic balance output.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID string) ([]models.Membership, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT gm.group_id, gm.user_id, gm.role, gm.joined_at, gm.updated_at, u.display_name
		 FROM group_members gm JOIN users u ON u.id = gm.user_id
		 WHERE gm.group_id = ? AND u.deleted_at IS NULL
		 ORDER BY gm.user_id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt, &m.UpdatedAt, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}
	return members, nil
}

// UpdateMemberRole changes a member's role.
func (s *SQLiteStore) UpdateMemberRole(ctx context.Context, groupID, userID string, role models.Role) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE group_members SET role = ?, updated_at = ? WHERE group_id = ? AND user_id = ?`,
		string(role), time.Now().Unix(), groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member role: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Entity: models.EntityGroupMember, ID: groupID + "/" + userID}
	}
	return nil
}

// RemoveMember deletes a membership row.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM group_members WHERE group_id = ? AND user_id = ?`,
		groupID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", mapErr(err))
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &ledger.NotFoundError{Entity: models.EntityGroupMember, ID: groupID + "/" + userID}
	}
	return nil
}
