package service

import (
	"context"
	"log/slog"

	"github.com/splitbook/splitbook/internal/auth"
	"github.com/splitbook/splitbook/internal/events"
	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

// UserService manages user accounts and their lifecycle.
type UserService struct {
	store storage.Store
	jwt   *auth.JWTManager
	pub   events.Publisher
}

// NewUserService creates a new UserService.
func NewUserService(store storage.Store, jwt *auth.JWTManager, pub events.Publisher) *UserService {
	return &UserService{store: store, jwt: jwt, pub: pub}
}

// Register creates a user account and returns it with a session token.
// The account creation and its audit entry commit atomically; the new user
// is recorded as their own actor.
func (s *UserService) Register(ctx context.Context, email, displayName, password string) (*models.User, string, error) {
	slog.Info("Register request received", "email", email)

	var user *models.User
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		authn := auth.NewPasswordAuthenticator(tx)
		u, err := authn.Register(ctx, email, displayName, password)
		if err != nil {
			return err
		}
		user = u

		entry, err := ledger.NewAuditEntry(models.EntityUser, u.ID, models.ActionCreate,
			ledger.ActorFromUser(u), "", nil, snapshotUser(u))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Register failed", "email", email, "error", err)
		return nil, "", err
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, "", err
	}

	notify(ctx, s.pub, models.EntityUser, user.ID, models.ActionCreate, "")
	slog.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a user and returns a session token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	authn := auth.NewPasswordAuthenticator(s.store)
	user, err := authn.Authenticate(ctx, email, password)
	if err != nil {
		slog.Warn("Login failed", "email", email)
		return nil, "", err
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		return nil, "", err
	}
	slog.Info("User logged in", "user_id", user.ID)
	return user, token, nil
}

// Get retrieves a user by id, regardless of lifecycle state.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListActive returns all users that are not soft-deleted.
func (s *UserService) ListActive(ctx context.Context) ([]*models.User, error) {
	return s.store.ListActiveUsers(ctx)
}

// Update changes a user's profile fields (display name, currency, language).
func (s *UserService) Update(ctx context.Context, actor ledger.Actor, id, displayName, currency, language string) (*models.User, error) {
	if currency != "" && !validCurrency(currency) {
		return nil, &ledger.ValidationError{Field: "currency", Reason: "must be a 3-letter uppercase code"}
	}

	var user *models.User
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		updated := *before
		if displayName != "" {
			updated.DisplayName = displayName
		}
		if currency != "" {
			updated.Currency = currency
		}
		if language != "" {
			updated.Language = language
		}
		if err := tx.UpdateUser(ctx, &updated); err != nil {
			return err
		}
		user = &updated

		entry, err := ledger.NewAuditEntry(models.EntityUser, id, models.ActionUpdate,
			actor, "", snapshotUser(before), snapshotUser(&updated))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Update user failed", "user_id", id, "error", err)
		return nil, err
	}

	notify(ctx, s.pub, models.EntityUser, id, models.ActionUpdate, "")
	return user, nil
}

// SoftDelete marks a user deleted and records the deletion. Calling it on an
// already soft-deleted user is a no-op and records nothing.
func (s *UserService) SoftDelete(ctx context.Context, actor ledger.Actor, id string) error {
	var mutated bool
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if before.State() == models.StateSoftDeleted {
			return nil
		}
		if err := tx.SoftDeleteUser(ctx, id); err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityUser, id, models.ActionDelete,
			actor, "", snapshotUser(before), nil)
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Soft-delete user failed", "user_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityUser, id, models.ActionDelete, "")
		slog.Info("User soft-deleted", "user_id", id)
	}
	return nil
}

// Restore clears a user's deletion mark. A no-op on an active user.
func (s *UserService) Restore(ctx context.Context, actor ledger.Actor, id string) error {
	var mutated bool
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		before, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if before.State() == models.StateActive {
			return nil
		}
		if err := tx.RestoreUser(ctx, id); err != nil {
			return err
		}
		after, err := tx.GetUser(ctx, id)
		if err != nil {
			return err
		}
		mutated = true

		entry, err := ledger.NewAuditEntry(models.EntityUser, id, models.ActionUpdate,
			actor, "", snapshotUser(before), snapshotUser(after))
		if err != nil {
			return err
		}
		return tx.AppendAuditEntry(ctx, entry)
	})
	if err != nil {
		slog.Error("Restore user failed", "user_id", id, "error", err)
		return err
	}

	if mutated {
		notify(ctx, s.pub, models.EntityUser, id, models.ActionUpdate, "")
		slog.Info("User restored", "user_id", id)
	}
	return nil
}

// HardDelete permanently removes a soft-deleted user. The user's audit
// entries survive with their denormalized snapshots; only the live actor
// reference is nulled. No new audit entry is written: the deletion itself
// was recorded when the user was soft-deleted, and the purge leaves no row
// for an entry to describe.
func (s *UserService) HardDelete(ctx context.Context, actor ledger.Actor, id string) error {
	if err := s.store.HardDeleteUser(ctx, id); err != nil {
		slog.Error("Hard-delete user failed", "user_id", id, "error", err)
		return err
	}
	slog.Info("User hard-deleted", "user_id", id, "actor_id", actor.ID)
	return nil
}
