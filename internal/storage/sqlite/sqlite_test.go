package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStore, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func createTestGroup(t *testing.T, store *SQLiteStore, creator *models.User, memberIDs ...string) *models.Group {
	t.Helper()
	ctx := context.Background()
	group := &models.Group{Name: "trip", Currency: "USD", CreatedBy: creator.ID}
	require.NoError(t, store.CreateGroup(ctx, group))
	for _, id := range append([]string{creator.ID}, memberIDs...) {
		require.NoError(t, store.AddMember(ctx, &models.Membership{
			GroupID: group.ID, UserID: id, Role: models.RoleEditor,
		}))
	}
	return group
}

func testEntry(entity models.EntityType, entityID string, action models.AuditAction, actor *models.User, groupID string, before, after any) *models.AuditLogEntry {
	entry, err := ledger.NewAuditEntry(entity, entityID, action, ledger.ActorFromUser(actor), groupID, before, after)
	if err != nil {
		panic(err)
	}
	return entry
}

func TestUserLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := createTestUser(t, store, "alice@example.com", "Alice")

	t.Run("round-trips and defaults", func(t *testing.T) {
		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
		assert.Equal(t, "USD", got.Currency)
		assert.NotZero(t, got.CreatedAt)
		assert.Equal(t, models.StateActive, got.State())

		byEmail, err := store.GetUserByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)
	})

	t.Run("duplicate email is an integrity violation", func(t *testing.T) {
		dup := models.NewUser("alice@example.com", "Impostor", "hash")
		err := store.CreateUser(ctx, dup)
		assert.ErrorIs(t, err, ledger.ErrIntegrity)
	})

	t.Run("missing user is not found", func(t *testing.T) {
		_, err := store.GetUser(ctx, "nope")
		assert.True(t, ledger.IsNotFound(err))
	})

	t.Run("hard delete of an active user is rejected", func(t *testing.T) {
		err := store.HardDeleteUser(ctx, user.ID)
		var lifecycle *ledger.LifecycleError
		require.ErrorAs(t, err, &lifecycle)
		assert.Equal(t, models.StateActive, lifecycle.State)
		assert.ErrorIs(t, err, ledger.ErrNotSoftDeleted)
	})

	t.Run("soft delete marks and hides the user", func(t *testing.T) {
		require.NoError(t, store.SoftDeleteUser(ctx, user.ID))

		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateSoftDeleted, got.State())

		active, err := store.ListActiveUsers(ctx)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("soft delete again is a no-op", func(t *testing.T) {
		before, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		require.NoError(t, store.SoftDeleteUser(ctx, user.ID))
		after, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, before.DeletedAt, after.DeletedAt)
	})

	t.Run("restore reactivates the user", func(t *testing.T) {
		require.NoError(t, store.RestoreUser(ctx, user.ID))
		got, err := store.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateActive, got.State())
		// Restoring an active user changes nothing.
		require.NoError(t, store.RestoreUser(ctx, user.ID))
	})

	t.Run("hard delete removes a soft-deleted user", func(t *testing.T) {
		require.NoError(t, store.SoftDeleteUser(ctx, user.ID))
		require.NoError(t, store.HardDeleteUser(ctx, user.ID))
		_, err := store.GetUser(ctx, user.ID)
		assert.True(t, ledger.IsNotFound(err))
	})
}

func TestGroupMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	bob := createTestUser(t, store, "bob@example.com", "Bob")
	group := createTestGroup(t, store, alice, bob.ID)

	t.Run("members come back with display names ordered by user id", func(t *testing.T) {
		got, err := store.ListMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		names := map[string]string{}
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1].UserID, got[i].UserID)
		}
		for _, m := range got {
			names[m.UserID] = m.DisplayName
		}
		assert.Equal(t, "Alice", names[alice.ID])
		assert.Equal(t, "Bob", names[bob.ID])
	})

	t.Run("membership of an unknown user is an integrity violation", func(t *testing.T) {
		err := store.AddMember(ctx, &models.Membership{
			GroupID: group.ID, UserID: "ghost", Role: models.RoleViewer,
		})
		assert.ErrorIs(t, err, ledger.ErrIntegrity)
	})

	t.Run("role updates persist", func(t *testing.T) {
		require.NoError(t, store.UpdateMemberRole(ctx, group.ID, bob.ID, models.RoleAdministrator))
		m, err := store.GetMember(ctx, group.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdministrator, m.Role)
	})

	t.Run("members of soft-deleted users disappear from listings", func(t *testing.T) {
		require.NoError(t, store.SoftDeleteUser(ctx, bob.ID))
		got, err := store.ListMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, alice.ID, got[0].UserID)
		require.NoError(t, store.RestoreUser(ctx, bob.ID))
	})

	t.Run("removal deletes the membership row", func(t *testing.T) {
		require.NoError(t, store.RemoveMember(ctx, group.ID, bob.ID))
		_, err := store.GetMember(ctx, group.ID, bob.ID)
		assert.True(t, ledger.IsNotFound(err))
	})
}

func TestExpenseStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	bob := createTestUser(t, store, "bob@example.com", "Bob")
	group := createTestGroup(t, store, alice, bob.ID)

	amount := decimal.RequireFromString("90.00")
	expense := &models.Expense{
		GroupID:     group.ID,
		PayerID:     alice.ID,
		Amount:      amount,
		Currency:    "USD",
		Description: "groceries",
		SplitMethod: models.SplitEqual,
		ExpenseDate: 1700000000,
	}
	shares, err := ledger.EqualShares("", amount, []string{alice.ID, bob.ID})
	require.NoError(t, err)

	t.Run("create persists the expense with its shares", func(t *testing.T) {
		require.NoError(t, store.CreateExpense(ctx, expense, shares))
		require.NotEmpty(t, expense.ID)

		got, err := store.GetExpense(ctx, expense.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(amount), "amount must survive the round trip exactly")
		assert.Equal(t, models.SplitEqual, got.SplitMethod)

		gotShares, err := store.ListExpenseShares(ctx, expense.ID)
		require.NoError(t, err)
		require.Len(t, gotShares, 2)
		assert.True(t, ledger.ShareSum(gotShares).Equal(amount))
	})

	t.Run("update replaces the share set", func(t *testing.T) {
		updated := *expense
		updated.Amount = decimal.RequireFromString("100.00")
		newShares, err := ledger.PercentageShares(expense.ID, updated.Amount, []ledger.PercentageShare{
			{UserID: alice.ID, Percentage: decimal.RequireFromString("70")},
			{UserID: bob.ID, Percentage: decimal.RequireFromString("30")},
		})
		require.NoError(t, err)
		updated.SplitMethod = models.SplitPercentage
		require.NoError(t, store.UpdateExpense(ctx, &updated, newShares))

		gotShares, err := store.ListExpenseShares(ctx, expense.ID)
		require.NoError(t, err)
		require.Len(t, gotShares, 2)
		assert.True(t, ledger.ShareSum(gotShares).Equal(updated.Amount))
		for _, s := range gotShares {
			assert.True(t, s.Percentage.Valid)
		}
	})

	t.Run("group share listing skips soft-deleted expenses", func(t *testing.T) {
		groupShares, err := store.ListGroupShares(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, groupShares, 2)

		require.NoError(t, store.SoftDeleteExpense(ctx, expense.ID))
		groupShares, err = store.ListGroupShares(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, groupShares)

		active, err := store.ListGroupExpenses(ctx, group.ID)
		require.NoError(t, err)
		assert.Empty(t, active)
	})

	t.Run("hard delete destroys the shares with the expense", func(t *testing.T) {
		require.NoError(t, store.HardDeleteExpense(ctx, expense.ID))
		_, err := store.GetExpense(ctx, expense.ID)
		assert.True(t, ledger.IsNotFound(err))

		var count int
		require.NoError(t, store.db.QueryRow(
			"SELECT COUNT(*) FROM expense_shares WHERE expense_id = ?", expense.ID).Scan(&count))
		assert.Zero(t, count)
	})
}

func TestPaymentStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	bob := createTestUser(t, store, "bob@example.com", "Bob")
	group := createTestGroup(t, store, alice, bob.ID)

	t.Run("round-trips", func(t *testing.T) {
		payment := &models.Payment{
			GroupID:     group.ID,
			PayerID:     bob.ID,
			RecipientID: alice.ID,
			Amount:      decimal.RequireFromString("12.34"),
			Currency:    "USD",
			PaymentDate: 1700000000,
		}
		require.NoError(t, store.CreatePayment(ctx, payment))

		got, err := store.GetPayment(ctx, payment.ID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(payment.Amount))

		listed, err := store.ListGroupPayments(ctx, group.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("self-payment violates the schema check", func(t *testing.T) {
		err := store.CreatePayment(ctx, &models.Payment{
			GroupID:     group.ID,
			PayerID:     bob.ID,
			RecipientID: bob.ID,
			Amount:      decimal.RequireFromString("5.00"),
			Currency:    "USD",
		})
		assert.ErrorIs(t, err, ledger.ErrIntegrity)
	})
}

func TestAuditLogImmutability(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	group := createTestGroup(t, store, alice)
	entry := testEntry(models.EntityGroup, group.ID, models.ActionCreate, alice, group.ID,
		nil, map[string]string{"name": "trip"})
	require.NoError(t, store.AppendAuditEntry(ctx, entry))

	t.Run("updates are aborted", func(t *testing.T) {
		_, err := store.db.Exec("UPDATE audit_log SET action = 'update' WHERE id = ?", entry.ID)
		assert.ErrorIs(t, mapErr(err), ledger.ErrImmutableAuditLog)

		_, err = store.db.Exec("UPDATE audit_log SET after_state = '{}' WHERE id = ?", entry.ID)
		assert.ErrorIs(t, mapErr(err), ledger.ErrImmutableAuditLog)
	})

	t.Run("deletes are aborted", func(t *testing.T) {
		_, err := store.db.Exec("DELETE FROM audit_log WHERE id = ?", entry.ID)
		assert.ErrorIs(t, mapErr(err), ledger.ErrImmutableAuditLog)

		var count int
		require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count))
		assert.Equal(t, 1, count)
	})
}

func TestAuditEntriesSurviveHardDeletes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	group := createTestGroup(t, store, alice)

	entry := testEntry(models.EntityGroup, group.ID, models.ActionCreate, alice, group.ID,
		nil, map[string]string{"name": "trip"})
	require.NoError(t, store.AppendAuditEntry(ctx, entry))

	// Purge both referenced rows.
	require.NoError(t, store.SoftDeleteGroup(ctx, group.ID))
	require.NoError(t, store.HardDeleteGroup(ctx, group.ID))
	require.NoError(t, store.SoftDeleteUser(ctx, alice.ID))
	require.NoError(t, store.HardDeleteUser(ctx, alice.ID))

	entries, err := store.ListAuditEntries(ctx, storage.AuditFilter{Entity: models.EntityGroup, EntityID: group.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Empty(t, got.ActorID, "live actor reference is nulled")
	assert.Empty(t, got.GroupID, "live group reference is nulled")
	assert.Equal(t, "alice@example.com", got.ActorEmail, "denormalized actor survives")
	assert.Equal(t, "Alice", got.ActorName)
	assert.JSONEq(t, `{"name":"trip"}`, string(got.After), "snapshot survives")
}

func TestListAuditEntriesFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := createTestUser(t, store, "alice@example.com", "Alice")
	bob := createTestUser(t, store, "bob@example.com", "Bob")
	group := createTestGroup(t, store, alice, bob.ID)
	other := createTestGroup(t, store, bob)

	require.NoError(t, store.AppendAuditEntry(ctx, testEntry(
		models.EntityGroup, group.ID, models.ActionCreate, alice, group.ID, nil, map[string]string{"n": "1"})))
	require.NoError(t, store.AppendAuditEntry(ctx, testEntry(
		models.EntityGroup, other.ID, models.ActionCreate, bob, other.ID, nil, map[string]string{"n": "2"})))
	require.NoError(t, store.AppendAuditEntry(ctx, testEntry(
		models.EntityGroup, group.ID, models.ActionUpdate, bob, group.ID, map[string]string{"n": "1"}, map[string]string{"n": "3"})))

	t.Run("by group", func(t *testing.T) {
		entries, err := store.ListAuditEntries(ctx, storage.AuditFilter{GroupID: group.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("by actor", func(t *testing.T) {
		entries, err := store.ListAuditEntries(ctx, storage.AuditFilter{ActorID: bob.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("by entity and id, oldest first", func(t *testing.T) {
		entries, err := store.ListAuditEntries(ctx, storage.AuditFilter{
			Entity: models.EntityGroup, EntityID: group.ID,
		})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, models.ActionCreate, entries[0].Action)
		assert.Equal(t, models.ActionUpdate, entries[1].Action)
	})
}

func TestWithTx(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("rolls back on error", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := store.WithTx(ctx, func(tx storage.Store) error {
			if err := tx.CreateUser(ctx, models.NewUser("tx@example.com", "Tx", "hash")); err != nil {
				return err
			}
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)

		_, err = store.GetUserByEmail(ctx, "tx@example.com")
		assert.True(t, ledger.IsNotFound(err))
	})

	t.Run("commits on success and reuses nested scopes", func(t *testing.T) {
		err := store.WithTx(ctx, func(tx storage.Store) error {
			if err := tx.CreateUser(ctx, models.NewUser("tx@example.com", "Tx", "hash")); err != nil {
				return err
			}
			// Nested WithTx must run in the same transaction.
			return tx.WithTx(ctx, func(inner storage.Store) error {
				_, err := inner.GetUserByEmail(ctx, "tx@example.com")
				return err
			})
		})
		require.NoError(t, err)

		_, err = store.GetUserByEmail(ctx, "tx@example.com")
		assert.NoError(t, err)
	})
}
