package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/auth"
	"github.com/splitbook/splitbook/internal/events"
	"github.com/splitbook/splitbook/internal/ledger"
	"github.com/splitbook/splitbook/internal/models"
	"github.com/splitbook/splitbook/internal/storage"
	"github.com/splitbook/splitbook/internal/storage/sqlite"
)

// capturePublisher records published changes for assertions.
type capturePublisher struct {
	mu      sync.Mutex
	changes []events.Change
}

func (p *capturePublisher) Publish(_ context.Context, change events.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func (p *capturePublisher) all() []events.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Change(nil), p.changes...)
}

type testEnv struct {
	store    storage.Store
	pub      *capturePublisher
	users    *UserService
	groups   *GroupService
	expenses *ExpenseService
	payments *PaymentService
	audit    *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	pub := &capturePublisher{}
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	return &testEnv{
		store:    store,
		pub:      pub,
		users:    NewUserService(store, jwt, pub),
		groups:   NewGroupService(store, pub),
		expenses: NewExpenseService(store, pub),
		payments: NewPaymentService(store, pub),
		audit:    NewAuditService(store),
	}
}

func (e *testEnv) register(t *testing.T, email, name string) (*models.User, ledger.Actor) {
	t.Helper()
	user, token, err := e.users.Register(context.Background(), email, name, "correct horse battery")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user, ledger.ActorFromUser(user)
}

func (e *testEnv) trail(t *testing.T, entity models.EntityType, entityID string) []models.AuditLogEntry {
	t.Helper()
	entries, err := e.audit.ForEntity(context.Background(), entity, entityID)
	require.NoError(t, err)
	return entries
}

func TestUserRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("register records the user as their own creator", func(t *testing.T) {
		user, _ := env.register(t, "alice@example.com", "Alice")

		entries := env.trail(t, models.EntityUser, user.ID)
		require.Len(t, entries, 1)
		assert.Equal(t, models.ActionCreate, entries[0].Action)
		assert.Equal(t, user.ID, entries[0].ActorID)
		assert.Nil(t, entries[0].Before)
		require.NotNil(t, entries[0].After)
		assert.NotContains(t, string(entries[0].After), "hash",
			"password material must never reach the audit log")
	})

	t.Run("weak passwords are rejected without a user row", func(t *testing.T) {
		_, _, err := env.users.Register(ctx, "short@example.com", "Short", "short")
		assert.ErrorIs(t, err, auth.ErrWeakPassword)

		_, err = env.store.GetUserByEmail(ctx, "short@example.com")
		assert.True(t, ledger.IsNotFound(err))
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		_, _, err := env.users.Register(ctx, "alice@example.com", "Alice Again", "correct horse battery")
		assert.ErrorIs(t, err, auth.ErrEmailExists)
	})

	t.Run("soft-deleted users cannot log in", func(t *testing.T) {
		user, actor := env.register(t, "gone@example.com", "Gone")
		require.NoError(t, env.users.SoftDelete(ctx, actor, user.ID))

		_, _, err := env.users.Login(ctx, "gone@example.com", "correct horse battery")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

		require.NoError(t, env.users.Restore(ctx, actor, user.ID))
		_, _, err = env.users.Login(ctx, "gone@example.com", "correct horse battery")
		assert.NoError(t, err)
	})
}

func TestGroupCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, actor := env.register(t, "alice@example.com", "Alice")

	group, err := env.groups.Create(ctx, actor, "Ski Trip", "EUR")
	require.NoError(t, err)

	t.Run("creator becomes administrator", func(t *testing.T) {
		member, err := env.store.GetMember(ctx, group.ID, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleAdministrator, member.Role)
	})

	t.Run("group and membership are both audited", func(t *testing.T) {
		groupTrail := env.trail(t, models.EntityGroup, group.ID)
		require.Len(t, groupTrail, 1)
		assert.Equal(t, models.ActionCreate, groupTrail[0].Action)

		memberTrail := env.trail(t, models.EntityGroupMember, group.ID+"/"+actor.ID)
		require.Len(t, memberTrail, 1)
		assert.Equal(t, models.ActionCreate, memberTrail[0].Action)
	})

	t.Run("invalid currency is rejected", func(t *testing.T) {
		_, err := env.groups.Create(ctx, actor, "Bad", "euros")
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestMembershipAudit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, alice := env.register(t, "alice@example.com", "Alice")
	bob, _ := env.register(t, "bob@example.com", "Bob")
	group, err := env.groups.Create(ctx, alice, "Roommates", "USD")
	require.NoError(t, err)

	_, err = env.groups.AddMember(ctx, alice, group.ID, bob.ID, models.RoleViewer)
	require.NoError(t, err)
	require.NoError(t, env.groups.UpdateMemberRole(ctx, alice, group.ID, bob.ID, models.RoleEditor))
	require.NoError(t, env.groups.RemoveMember(ctx, alice, group.ID, bob.ID))

	entries := env.trail(t, models.EntityGroupMember, group.ID+"/"+bob.ID)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActionCreate, entries[0].Action)
	assert.Equal(t, models.ActionUpdate, entries[1].Action)
	assert.Equal(t, models.ActionDelete, entries[2].Action)
	// Update carries both states, delete only the prior one.
	assert.NotNil(t, entries[1].Before)
	assert.NotNil(t, entries[1].After)
	assert.NotNil(t, entries[2].Before)
	assert.Nil(t, entries[2].After)
}

func TestExpenseAuditChain(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, alice := env.register(t, "alice@example.com", "Alice")
	bob, _ := env.register(t, "bob@example.com", "Bob")
	group, err := env.groups.Create(ctx, alice, "Trip", "USD")
	require.NoError(t, err)
	_, err = env.groups.AddMember(ctx, alice, group.ID, bob.ID, models.RoleEditor)
	require.NoError(t, err)

	input := ExpenseInput{
		GroupID:      group.ID,
		PayerID:      alice.ID,
		Amount:       decimal.RequireFromString("90.00"),
		Currency:     "USD",
		Description:  "hotel",
		Method:       models.SplitEqual,
		Participants: []string{alice.ID, bob.ID},
	}
	expense, err := env.expenses.Create(ctx, alice, input)
	require.NoError(t, err)

	t.Run("create audits the expense and each share", func(t *testing.T) {
		expenseTrail := env.trail(t, models.EntityExpense, expense.ID)
		require.Len(t, expenseTrail, 1)
		assert.Equal(t, models.ActionCreate, expenseTrail[0].Action)

		for _, uid := range []string{alice.ID, bob.ID} {
			shareTrail := env.trail(t, models.EntityExpenseParticipant, expense.ID+"/"+uid)
			require.Len(t, shareTrail, 1, "share for %s must be audited", uid)
			assert.Equal(t, models.ActionCreate, shareTrail[0].Action)
		}
	})

	t.Run("update, delete and restore extend the chain in order", func(t *testing.T) {
		updated := input
		updated.Amount = decimal.RequireFromString("120.00")
		_, err := env.expenses.Update(ctx, alice, expense.ID, updated)
		require.NoError(t, err)

		require.NoError(t, env.expenses.SoftDelete(ctx, alice, expense.ID))
		// Second soft delete is a no-op and must not add an entry.
		require.NoError(t, env.expenses.SoftDelete(ctx, alice, expense.ID))
		require.NoError(t, env.expenses.Restore(ctx, alice, expense.ID))

		entries := env.trail(t, models.EntityExpense, expense.ID)
		require.Len(t, entries, 4)
		assert.Equal(t, models.ActionCreate, entries[0].Action)
		assert.Equal(t, models.ActionUpdate, entries[1].Action)
		assert.Equal(t, models.ActionDelete, entries[2].Action)
		assert.Equal(t, models.ActionUpdate, entries[3].Action)
	})

	t.Run("hard delete purges the row but not the trail", func(t *testing.T) {
		require.NoError(t, env.expenses.SoftDelete(ctx, alice, expense.ID))
		require.NoError(t, env.expenses.HardDelete(ctx, alice, expense.ID))

		_, err := env.expenses.Get(ctx, expense.ID)
		assert.True(t, ledger.IsNotFound(err))

		entries := env.trail(t, models.EntityExpense, expense.ID)
		assert.Len(t, entries, 5, "purging must add no entry beyond the recorded deletion")
	})

	t.Run("mismatched exact split is rejected", func(t *testing.T) {
		_, err := env.expenses.Create(ctx, alice, ExpenseInput{
			GroupID:  group.ID,
			PayerID:  alice.ID,
			Amount:   decimal.RequireFromString("50.00"),
			Currency: "USD",
			Method:   models.SplitExact,
			Exact: []models.ExpenseShare{
				{UserID: alice.ID, Amount: decimal.RequireFromString("20.00")},
				{UserID: bob.ID, Amount: decimal.RequireFromString("20.00")},
			},
		})
		var mismatch *ledger.SplitMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("non-member payer is rejected", func(t *testing.T) {
		carol, _ := env.register(t, "carol@example.com", "Carol")
		outsider := input
		outsider.PayerID = carol.ID
		outsider.Participants = []string{carol.ID}
		_, err := env.expenses.Create(ctx, alice, outsider)
		assert.True(t, ledger.IsNotFound(err))
	})
}

func TestBalancesAndSettlement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, alice := env.register(t, "alice@example.com", "Alice")
	bob, bobActor := env.register(t, "bob@example.com", "Bob")
	carol, _ := env.register(t, "carol@example.com", "Carol")

	group, err := env.groups.Create(ctx, alice, "Trip", "USD")
	require.NoError(t, err)
	for _, u := range []*models.User{bob, carol} {
		_, err = env.groups.AddMember(ctx, alice, group.ID, u.ID, models.RoleEditor)
		require.NoError(t, err)
	}

	_, err = env.expenses.Create(ctx, alice, ExpenseInput{
		GroupID:      group.ID,
		PayerID:      alice.ID,
		Amount:       decimal.RequireFromString("90.00"),
		Currency:     "USD",
		Description:  "hotel",
		Method:       models.SplitEqual,
		Participants: []string{alice.ID, bob.ID, carol.ID},
	})
	require.NoError(t, err)

	_, err = env.payments.Create(ctx, alice, PaymentInput{
		GroupID:     group.ID,
		PayerID:     alice.ID,
		RecipientID: bob.ID,
		Amount:      decimal.RequireFromString("30.00"),
		Currency:    "USD",
	})
	require.NoError(t, err)

	t.Run("balances sum to zero and reflect the payment", func(t *testing.T) {
		balances, err := env.groups.Balances(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, balances, 3)

		sum := decimal.Zero
		byID := map[string]ledger.MemberBalance{}
		for _, b := range balances {
			sum = sum.Add(b.Balance)
			byID[b.UserID] = b
		}
		assert.True(t, sum.IsZero())
		assert.True(t, byID[alice.ID].Balance.Equal(decimal.RequireFromString("30.00")))
		assert.True(t, byID[bob.ID].Balance.IsZero(), "payment offsets bob's share")
		assert.True(t, byID[carol.ID].Balance.Equal(decimal.RequireFromString("-30.00")))
	})

	t.Run("settlement plan clears the remaining debt", func(t *testing.T) {
		plan, err := env.groups.SettlementPlan(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, plan, 1)
		assert.Equal(t, carol.ID, plan[0].PayerID)
		assert.Equal(t, alice.ID, plan[0].RecipientID)
		assert.True(t, plan[0].Amount.Equal(decimal.RequireFromString("30.00")))
	})

	t.Run("split check confirms stored shares reconcile", func(t *testing.T) {
		expenses, err := env.expenses.ListActive(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, expenses, 1)

		ok, err := env.expenses.CheckSplit(ctx, expenses[0].ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("self-payment is rejected", func(t *testing.T) {
		_, err := env.payments.Create(ctx, bobActor, PaymentInput{
			GroupID:     group.ID,
			PayerID:     bob.ID,
			RecipientID: bob.ID,
			Amount:      decimal.RequireFromString("5.00"),
			Currency:    "USD",
		})
		assert.ErrorIs(t, err, ledger.ErrValidation)
	})
}

func TestChangeEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, alice := env.register(t, "alice@example.com", "Alice")
	group, err := env.groups.Create(ctx, alice, "Trip", "USD")
	require.NoError(t, err)
	require.NoError(t, env.groups.SoftDelete(ctx, alice, group.ID))
	// No-op deletions publish nothing.
	require.NoError(t, env.groups.SoftDelete(ctx, alice, group.ID))

	var groupChanges []events.Change
	for _, c := range env.pub.all() {
		if c.Entity == models.EntityGroup {
			groupChanges = append(groupChanges, c)
		}
	}
	require.Len(t, groupChanges, 2)
	assert.Equal(t, models.ActionCreate, groupChanges[0].Action)
	assert.Equal(t, models.ActionDelete, groupChanges[1].Action)
}

func TestDeletedGroupRejectsWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, alice := env.register(t, "alice@example.com", "Alice")
	bob, _ := env.register(t, "bob@example.com", "Bob")
	group, err := env.groups.Create(ctx, alice, "Trip", "USD")
	require.NoError(t, err)
	require.NoError(t, env.groups.SoftDelete(ctx, alice, group.ID))

	_, err = env.groups.AddMember(ctx, alice, group.ID, bob.ID, models.RoleEditor)
	assert.ErrorIs(t, err, ledger.ErrValidation)

	_, err = env.expenses.Create(ctx, alice, ExpenseInput{
		GroupID:      group.ID,
		PayerID:      alice.ID,
		Amount:       decimal.RequireFromString("10.00"),
		Currency:     "USD",
		Method:       models.SplitEqual,
		Participants: []string{alice.ID},
	})
	assert.ErrorIs(t, err, ledger.ErrValidation)
}
