package service

import (
	"context"

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// AuditService exposes read access to the audit log. There is no write
// surface here: entries are appended by the mutating services inside their
// own transactions.
type AuditService struct {
	store storage.Store
}

// NewAuditService creates a new AuditService.
func NewAuditService(store storage.Store) *AuditService {
	return &AuditService{store: store}
}

// ForEntity returns the history of one entity, oldest first.
func (s *AuditService) ForEntity(ctx context.Context, entity models.EntityType, entityID string) ([]models.AuditLogEntry, error) {
	if !entity.Valid() {
		return nil, &ledger.ValidationError{Field: "entity", Reason: "unknown entity type"}
	}
	return s.store.ListAuditEntries(ctx, storage.AuditFilter{Entity: entity, EntityID: entityID})
}

// ForGroup returns every entry recorded against a group, oldest first.
func (s *AuditService) ForGroup(ctx context.Context, groupID string) ([]models.AuditLogEntry, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.store.ListAuditEntries(ctx, storage.AuditFilter{GroupID: groupID})
}

// ByActor returns every entry a user has produced, oldest first.
func (s *AuditService) ByActor(ctx context.Context, actorID string) ([]models.AuditLogEntry, error) {
	return s.store.ListAuditEntries(ctx, storage.AuditFilter{ActorID: actorID})
}
