// Package events defines the change-notification boundary. Every committed
// mutation is published as one discrete Change so external sinks (websocket
// fan-out, webhooks, caches) can observe the ledger without polling.
package events

import (
	"context"
	"log/slog"

	"github.com/splitbook/splitbook/internal/models"
)

// Change describes one committed mutation. One Change per mutation; batches
// are never collapsed, so intermediate states stay observable.
type Change struct {
	Entity   models.EntityType
	EntityID string
	Action   models.AuditAction
	GroupID  string
}

// Publisher delivers committed changes to an external sink. Publishing is
// fire-and-forget: it runs after commit and its failure never rolls back the
// mutation it describes.
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// LogPublisher writes every change to the structured log. It is the default
// sink and a reference implementation for real fan-out backends.
type LogPublisher struct{}

// Publish logs the change at debug level.
func (LogPublisher) Publish(ctx context.Context, change Change) {
	slog.DebugContext(ctx, "change published",
		"entity", change.Entity,
		"entity_id", change.EntityID,
		"action", change.Action,
		"group_id", change.GroupID,
	)
}

// Multi fans a change out to several publishers in order.
type Multi []Publisher

// Publish delivers the change to every publisher.
func (m Multi) Publish(ctx context.Context, change Change) {
	for _, p := range m {
		p.Publish(ctx, change)
	}
}
