package ledger

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitbook/splitbook/internal/models"
)

var testActor = Actor{ID: "user-1", Email: "alice@example.com", DisplayName: "Alice"}

type snapshot struct {
	Name string `json:"name"`
}

func TestNewAuditEntry(t *testing.T) {
	t.Run("create carries only an after state", func(t *testing.T) {
		entry, err := NewAuditEntry(models.EntityGroup, "grp-1", models.ActionCreate,
			testActor, "grp-1", nil, snapshot{Name: "trip"})
		require.NoError(t, err)

		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, models.EntityGroup, entry.Entity)
		assert.Equal(t, models.ActionCreate, entry.Action)
		assert.Equal(t, "user-1", entry.ActorID)
		assert.Equal(t, "alice@example.com", entry.ActorEmail)
		assert.Equal(t, "Alice", entry.ActorName)
		assert.NotZero(t, entry.CreatedAt)
		assert.Nil(t, entry.Before)

		var after snapshot
		require.NoError(t, json.Unmarshal(entry.After, &after))
		assert.Equal(t, "trip", after.Name)
	})

	t.Run("delete carries only a before state", func(t *testing.T) {
		entry, err := NewAuditEntry(models.EntityExpense, "exp-1", models.ActionDelete,
			testActor, "grp-1", snapshot{Name: "dinner"}, nil)
		require.NoError(t, err)
		assert.NotNil(t, entry.Before)
		assert.Nil(t, entry.After)
	})

	t.Run("update carries both states", func(t *testing.T) {
		entry, err := NewAuditEntry(models.EntityUser, "user-1", models.ActionUpdate,
			testActor, "", snapshot{Name: "old"}, snapshot{Name: "new"})
		require.NoError(t, err)
		assert.NotNil(t, entry.Before)
		assert.NotNil(t, entry.After)
	})

	t.Run("state presence must match the action", func(t *testing.T) {
		cases := []struct {
			name          string
			action        models.AuditAction
			before, after any
		}{
			{name: "create with before", action: models.ActionCreate, before: snapshot{}, after: snapshot{}},
			{name: "create without after", action: models.ActionCreate},
			{name: "delete with after", action: models.ActionDelete, before: snapshot{}, after: snapshot{}},
			{name: "delete without before", action: models.ActionDelete},
			{name: "update without before", action: models.ActionUpdate, after: snapshot{}},
			{name: "update without after", action: models.ActionUpdate, before: snapshot{}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewAuditEntry(models.EntityGroup, "grp-1", tc.action,
					testActor, "", tc.before, tc.after)
				assert.ErrorIs(t, err, ErrValidation)
			})
		}
	})

	t.Run("rejects unknown entity and action", func(t *testing.T) {
		_, err := NewAuditEntry("widget", "w-1", models.ActionCreate, testActor, "", nil, snapshot{})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = NewAuditEntry(models.EntityGroup, "grp-1", "upsert", testActor, "", nil, snapshot{})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("rejects empty entity id and anonymous actor", func(t *testing.T) {
		_, err := NewAuditEntry(models.EntityGroup, "", models.ActionCreate, testActor, "", nil, snapshot{})
		assert.ErrorIs(t, err, ErrValidation)

		_, err = NewAuditEntry(models.EntityGroup, "grp-1", models.ActionCreate, Actor{}, "", nil, snapshot{})
		assert.ErrorIs(t, err, ErrValidation)
	})
}
