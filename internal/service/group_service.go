package service

import (
	"context"
	"log/slog"

	"github.com/splitbook/splitbook/internal/events"
	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// GroupService manages groups and memberships, and exposes the group-level
// ledger queries: balances and settlement plans.
type GroupService struct {
	store storage.Store
	pub   events.Publisher
}

// NewGroupService creates a new GroupService.
func NewGroupService(store storage.Store, pub events.Publisher) *GroupService {
	return &GroupService{store: store, pub: pub}
}

// Create creates a group with the actor as its administrator. The group row,
// the creator's membership and both audit entries commit atomically.
func (s *GroupService) Create(ctx context.Context, actor ledger.Actor, name, currency string) (*models.Group, error) {
	slog.Info("CreateGroup request received", "name", name, "actor_id", actor.ID)

	if name == "" {
		return nil, &ledger.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if !validCurrency(currency) {
		return nil, &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter uppercase code"}
	}

	group := &models.Group{Name: name, Currency: currency, CreatedBy: actor.ID}
	member := &models.Membership{UserID: actor.ID, Role: models.RoleAdministrator}

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateGroup(ctx, group); err != nil {
			return err
		}
		member.GroupID = group.ID
		if err := tx.AddMember(ctx, member); err != nil {
			return err
		}

		groupEntry, err := ledger.NewAuditEntry(models.EntityGroup, group.ID, models.ActionCreate,
			actor, group.ID, nil, snapshotGroup(group))
		if err != nil {
			return err
		}
		if err := tx.AppendAuditEntry(ctx, groupEntry); err != nil {
			return err
		}

		memberEntry, err := ledger.NewAuditEntry(models.EntityGroupMember, memberEntityID(member), models.ActionCreate,
			actor, group.ID, nil, snapshotMember(member))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, memberEntry)
	})
	if err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityGroup, group.ID, models.ActionCreate, group.ID)
	notify(ctx, s.pub, models.EntityGroupMember, memberEntityID(member), models.ActionCreate, group.ID)
	slog.Info("Group created", "group_id", group.ID)
	return group, nil
}

// memberEntityID is the audit identifier for a membership row, which has a
// composite key.
func memberEntityID(m *models.Membership) string {
	return m.GroupID + "/" + m.UserID
}

// Get retrieves a group by id, regardless of lifecycle state.
func (s *GroupService) Get(ctx context.Context, id string) (*models.Group, error) {
	return s.store.GetGroup(ctx, id)
}

// ListActive returns all groups that are not soft-deleted.
func (s *GroupService) ListActive(ctx context.Context) ([]*models.Group, error) {
	return s.store.ListActiveGroups(ctx)
}

// Update changes a group's name and currency.
func (s *GroupService) Update(ctx context.Context, actor ledger.Actor, id, name, currency string) (*models.Group, error) {
	if currency != "" && !validCurrency(currency) {
		return nil, &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter uppercase code"}
	}

	var group *models.Group
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		updated := *before
		if name != "" {
			updated.Name = name
		}
		if currency != "" {
			updated.Currency = currency
		}
		if err := tx.UpdateGroup(ctx, &updated); err != nil {
			return err
		}
		group = &updated

		entry, err := ledger.NewAuditEntry(models.EntityGroup, id, models.ActionUpdate,
			actor, id, snapshotGroup(before), snapshotGroup(&updated))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("UpdateGroup failed", "group_id", id, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityGroup, id, models.ActionUpdate, id)
	return group, nil
}

// AddMember adds a user to a group with the given role.
func (s *GroupService) AddMember(ctx context.Context, actor ledger.Actor, groupID, userID string, role models.Role) (*models.Membership, error) {
	if !role.Valid() {
		return nil, &ledger.ValidationError{Field: "role", Reason: "must be administrator, editor or viewer"}
	}

	member := &models.Membership{GroupID: groupID, UserID: userID, Role: role}
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		group, err := tx.GetGroup(ctx, groupID)
		if err != nil {
			return err
		}
		if group.State() != models.StateActive {
			return &ledger.ValidationError{Field: "group_id", Reason: "group is deleted"}
		}
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.State() != models.StateActive {
			return &ledger.ValidationError{Field: "user_id", Reason: "user is deleted"}
		}

		if err := tx.AddMember(ctx, member); err != nil {
			return err
		}

		entry, err := ledger.NewAuditEntry(models.EntityGroupMember, memberEntityID(member), models.ActionCreate,
			actor, groupID, nil, snapshotMember(member))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("AddMember failed", "group_id", groupID, "user_id", userID, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityGroupMember, memberEntityID(member), models.ActionCreate, groupID)
	slog.Info("Member added", "group_id", groupID, "user_id", userID, "role", role)
	return member, nil
}

// UpdateMemberRole changes a member's role.
func (s *GroupService) UpdateMemberRole(ctx context.Context, actor ledger.Actor, groupID, userID string, role models.Role) error {
	if !role.Valid() {
		return &ledger.ValidationError{Field: "role", Reason: "must be administrator, editor or viewer"}
	}

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetMember(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if err := tx.UpdateMemberRole(ctx, groupID, userID, role); err != nil {
			return err
		}
		after := *before
		after.Role = role

		entry, err := ledger.NewAuditEntry(models.EntityGroupMember, memberEntityID(before), models.ActionUpdate,
			actor, groupID, snapshotMember(before), snapshotMember(&after))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("UpdateMemberRole failed", "group_id", groupID, "user_id", userID, "error", err)
		return err
	}

	notify(ctx, s.pub, models.EntityGroupMember, groupID+"/"+userID, models.ActionUpdate, groupID)
	return nil
}

// RemoveMember removes a user from a group.
func (s *GroupService) RemoveMember(ctx context.Context, actor ledger.Actor, groupID, userID string) error {
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetMember(ctx, groupID, userID)
		if err != nil {
			return err
		}
		if err := tx.RemoveMember(ctx, groupID, userID); err != nil {
			return err
		}

		entry, err := ledger.NewAuditEntry(models.EntityGroupMember, memberEntityID(before), models.ActionDelete,
			actor, groupID, snapshotMember(before), nil)
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("RemoveMember failed", "group_id", groupID, "user_id", userID, "error", err)
		return err
	}

	notify(ctx, s.pub, models.EntityGroupMember, groupID+"/"+userID, models.ActionDelete, groupID)
	return nil
}

// SoftDelete marks a group deleted. A no-op on an already deleted group.
func (s *GroupService) SoftDelete(ctx context.Context, actor ledger.Actor, id string) error {
	var mutated bool
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if before.State() == models.StateSoftDeleted {
			return nil
		}
		if err := tx.SoftDeleteGroup(ctx, id); err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityGroup, id, models.ActionDelete,
			actor, id, snapshotGroup(before), nil)
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Soft-delete group failed", "group_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityGroup, id, models.ActionDelete, id)
		slog.Info("Group soft-deleted", "group_id", id)
	}
	return nil
}

// Restore clears a group's deletion mark. A no-op on an active group.
func (s *GroupService) Restore(ctx context.Context, actor ledger.Actor, id string) error {
	var mutated bool
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if before.State() == models.StateActive {
			return nil
		}
		if err := tx.RestoreGroup(ctx, id); err != nil {
			return err
		}
		after, err := tx.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityGroup, id, models.ActionUpdate,
			actor, id, snapshotGroup(before), snapshotGroup(after))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Restore group failed", "group_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityGroup, id, models.ActionUpdate, id)
	}
	return nil
}

// HardDelete permanently removes a soft-deleted group and its contents.
// Audit entries keep their snapshots with the group reference nulled.
func (s *GroupService) HardDelete(ctx context.Context, actor ledger.Actor, id string) error {
	if err := s.store.HardDeleteGroup(ctx, id); err != nil {
		slog.Error("Hard-delete group failed", "group_id", id, "error", err)
		return err
	}
	slog.Info("Group hard-deleted", "group_id", id, "actor_id", actor.ID)
	return nil
}

// Balances computes the group's member balances from one consistent
// transaction snapshot, so a concurrent write cannot produce a mixed view.
// Every current member gets a row, zero-activity members included.
func (s *GroupService) Balances(ctx context.Context, groupID string) ([]ledger.MemberBalance, error) {
	var balances []ledger.MemberBalance
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if _, err := tx.GetGroup(ctx, groupID); err != nil {
			return err
		}
		members, err := tx.ListMembers(ctx, groupID)
		if err != nil {
			return err
		}
		expenses, err := tx.ListGroupExpenses(ctx, groupID)
		if err != nil {
			return err
		}
		shares, err := tx.ListGroupShares(ctx, groupID)
		if err != nil {
			return err
		}
		payments, err := tx.ListGroupPayments(ctx, groupID)
		if err != nil {
			return err
		}
		balances = ledger.CalculateGroupBalances(members, expenses, shares, payments)
		return nil
	})
	if err != nil {
		slog.Error("Balances failed", "group_id", groupID, "error", err)
		return nil, err
	}
	return balances, nil
}

// SettlementPlan derives the minimal transfer list that zeroes the group's
// balances, computed against the same snapshot as the balances themselves.
func (s *GroupService) SettlementPlan(ctx context.Context, groupID string) ([]ledger.Transfer, error) {
	balances, err := s.Balances(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return ledger.PlanSettlement(balances), nil
}
