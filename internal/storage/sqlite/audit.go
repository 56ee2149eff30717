package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// AppendAuditEntry persists an audit log entry. This is the only write the
// audit_log table accepts; the schema's triggers abort updates and deletes.
func (s *SQLiteStore) AppendAuditEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	var before, after any
	if entry.Before != nil {
		before = string(entry.Before)
	}
	if entry.After != nil {
		after = string(entry.After)
	}

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO audit_log (id, entity, entity_id, action, actor_id, actor_email, actor_name, group_id, before_state, after_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Entity), entry.EntityID, string(entry.Action),
		nullable(entry.ActorID), entry.ActorEmail, entry.ActorName,
		nullable(entry.GroupID), before, after, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", mapErr(err))
	}
	return nil
}

// ListAuditEntries retrieves audit entries matching the filter, oldest
// first. Zero-value filter fields are ignored.
func (s *SQLiteStore) ListAuditEntries(ctx context.Context, filter storage.AuditFilter) ([]models.AuditLogEntry, error) {
	query := `SELECT id, entity, entity_id, action, actor_id, actor_email, actor_name, group_id, before_state, after_state, created_at
		 FROM audit_log WHERE 1=1`
	var args []any
	if filter.Entity != "" {
		query += " AND entity = ?"
		args = append(args, string(filter.Entity))
	}
	if filter.EntityID != "" {
		query += " AND entity_id = ?"
		args = append(args, filter.EntityID)
	}
	if filter.GroupID != "" {
		query += " AND group_id = ?"
		args = append(args, filter.GroupID)
	}
	if filter.ActorID != "" {
		query += " AND actor_id = ?"
		args = append(args, filter.ActorID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditLogEntry
	for rows.Next() {
		var e models.AuditLogEntry
		var actorID, groupID, before, after sql.NullString
		if err := rows.Scan(&e.ID, &e.Entity, &e.EntityID, &e.Action,
			&actorID, &e.ActorEmail, &e.ActorName, &groupID,
			&before, &after, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ActorID = actorID.String
		e.GroupID = groupID.String
		if before.Valid {
			e.Before = []byte(before.String)
		}
		if after.Valid {
			e.After = []byte(after.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}
	return entries, nil
}
