// Package service orchestrates the core operations over the storage layer:
// every write validates its input, applies the mutation and captures its
// audit entry inside one transaction, then publishes a change event.
package service

import (
	"context"

	"github.com/splitbook/splitbook/internal/events"
	"github.com/splitbook/splitbook/internal/metrics"
	"github.com/splitbook/splitbook/internal/models"
)

// notify publishes a committed change and bumps the mutation counter.
// Called after the transaction commits, never inside it.
func notify(ctx context.Context, pub events.Publisher, entity models.EntityType, entityID string, action models.AuditAction, groupID string) {
	metrics.Mutations.WithLabelValues(string(entity), string(action)).Inc()
	if pub != nil {
		pub.Publish(ctx, events.Change{
			Entity:   entity,
			EntityID: entityID,
			Action:   action,
			GroupID:  groupID,
		})
	}
}

// validCurrency reports whether code is a well-formed ISO 4217 code:
// exactly three uppercase ASCII letters.
func validCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
