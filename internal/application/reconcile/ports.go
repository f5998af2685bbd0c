package reconcile

import (
	"context"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// OutcomePublisher fans reconciliation outcomes out to downstream consumers.
// Publication is best effort: a failed publish never fails the delivery.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, out reconciliation.Outcome, ev notification.Event) error
}

// Processor is the single entry point consumed by the transport layer and the
// orphan sweeper.
type Processor interface {
	ProcessNotification(ctx context.Context, ev notification.Event) (reconciliation.Outcome, error)
}
