package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitbook/splitbook/internal/models"
)

// Actor is the acting user captured by value at mutation time. Copying the
// email and display name into every entry keeps the audit trail readable even
// after the user row is gone.
type Actor struct {
	ID          string
	Email       string
	DisplayName string
}

// ActorFromUser snapshots a user into an Actor.
func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// NewAuditEntry builds and validates an audit log entry for one mutation.
//
// The before/after snapshots must match the action: create carries only an
// after state, delete only a before state, update both. The snapshots are
// marshaled to JSON here so the entry is self-contained. groupID may be empty
// for user-level mutations.
//
// The caller is responsible for persisting the entry in the same transaction
// as the mutation it records.
func NewAuditEntry(entity models.EntityType, entityID string, action models.AuditAction, actor Actor, groupID string, before, after any) (*models.AuditLogEntry, error) {
	if !entity.Valid() {
		return nil, &ValidationError{Field: "entity", Reason: fmt.Sprintf("unknown entity type %q", entity)}
	}
	if !action.Valid() {
		return nil, &ValidationError{Field: "action", Reason: fmt.Sprintf("unknown action %q", action)}
	}
	if entityID == "" {
		return nil, &ValidationError{Field: "entity_id", Reason: "must not be empty"}
	}
	if actor.ID == "" {
		return nil, &ValidationError{Field: "actor", Reason: "must identify a known user"}
	}

	switch action {
	case models.ActionCreate:
		if before != nil {
			return nil, &ValidationError{Field: "before", Reason: "must be absent for create"}
		}
		if after == nil {
			return nil, &ValidationError{Field: "after", Reason: "required for create"}
		}
	case models.ActionDelete:
		if before == nil {
			return nil, &ValidationError{Field: "before", Reason: "required for delete"}
		}
		if after != nil {
			return nil, &ValidationError{Field: "after", Reason: "must be absent for delete"}
		}
	case models.ActionUpdate:
		if before == nil || after == nil {
			return nil, &ValidationError{Field: "state", Reason: "update requires both before and after"}
		}
	}

	entry := &models.AuditLogEntry{
		ID:         uuid.New().String(),
		Entity:     entity,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actor.ID,
		ActorEmail: actor.Email,
		ActorName:  actor.DisplayName,
		GroupID:    groupID,
		CreatedAt:  time.Now().Unix(),
	}

	var err error
	if before != nil {
		entry.Before, err = json.Marshal(before)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal before state: %w", err)
		}
	}
	if after != nil {
		entry.After, err = json.Marshal(after)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal after state: %w", err)
		}
	}

	return entry, nil
}
