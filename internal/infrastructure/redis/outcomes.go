package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

const OutcomeStream = "reconciliation:outcomes"

// OutcomeProducer publishes reconciliation outcomes to a Redis stream so
// downstream consumers (dunning, analytics) can react to gateway activity.
type OutcomeProducer struct {
	client *redis.Client
}

func NewOutcomeProducer(client *redis.Client) *OutcomeProducer {
	return &OutcomeProducer{client: client}
}

func (p *OutcomeProducer) PublishOutcome(ctx context.Context, out reconciliation.Outcome, ev notification.Event) error {
	payload, err := json.Marshal(map[string]any{
		"event_code":         ev.EventCode,
		"psp_reference":      ev.PSPReference,
		"merchant_reference": ev.MerchantReference,
		"amount":             ev.Amount.String(),
		"currency":           ev.Currency,
		"success":            ev.Success,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outcome payload: %w", err)
	}

	values := map[string]any{
		"action":    string(out.Action),
		"payload":   string(payload),
		"timestamp": time.Now().Unix(),
	}
	if out.AccountID != nil {
		values["account_id"] = out.AccountID.String()
	}
	if out.PaymentID != nil {
		values["payment_id"] = out.PaymentID.String()
	}
	if out.TransactionID != nil {
		values["transaction_id"] = out.TransactionID.String()
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: OutcomeStream,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish outcome: %w", err)
	}

	return nil
}
