// Package reconciliation holds the types produced while mapping gateway
// notifications onto ledger entities, and the durable store port backing them.
package reconciliation

import (
	"time"

	"github.com/google/uuid"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
)

// CorrelationKind tags which lookup tier resolved the event.
type CorrelationKind int

const (
	// Unresolved means neither lookup matched; the event has no operational
	// counterpart in the ledger.
	Unresolved CorrelationKind = iota
	// ExistingTransaction means a stored gateway response matched the event's
	// psp reference. Payment and transaction ids are always present.
	ExistingTransaction
	// PendingRequest means a pending hosted-page request matched the event's
	// merchant reference. Payment and transaction ids may not exist yet.
	PendingRequest
)

// Correlation is the result of resolving one event against the ledger.
type Correlation struct {
	Kind          CorrelationKind
	AccountID     uuid.UUID
	TenantID      uuid.UUID
	PaymentID     *uuid.UUID
	TransactionID *uuid.UUID
}

// Resolved reports whether any ledger entity was found for the event.
func (c Correlation) Resolved() bool {
	return c.Kind != Unresolved
}

// FromHostedRequest reports whether the correlation came from the
// pending-request tier.
func (c Correlation) FromHostedRequest() bool {
	return c.Kind == PendingRequest
}

// Action is the reconciliation action taken for one event.
type Action string

const (
	ActionUpdatedTransaction Action = "updated_transaction"
	ActionCreatedPayment     Action = "created_payment"
	ActionCreatedChargeback  Action = "created_chargeback"
	ActionJournaledOnly      Action = "journaled_only"
)

// Outcome describes what happened to one event. Identifier fields are nil
// when the event did not correlate.
type Outcome struct {
	Action        Action
	AccountID     *uuid.UUID
	TenantID      *uuid.UUID
	PaymentID     *uuid.UUID
	TransactionID *uuid.UUID
}

// ResponseRecord is a stored gateway response row: the durable trace of a
// previously executed operation, keyed by its psp reference.
type ResponseRecord struct {
	PSPReference  string
	AccountID     uuid.UUID
	TenantID      uuid.UUID
	PaymentID     uuid.UUID
	TransactionID uuid.UUID
}

// HostedRequestRecord is a pending hosted-page request, keyed by the merchant
// reference chosen when the hosted form was built. Payment and transaction ids
// are attached only once the hosted flow has produced a payment.
type HostedRequestRecord struct {
	MerchantReference string
	AccountID         uuid.UUID
	TenantID          uuid.UUID
	PaymentID         *uuid.UUID
	TransactionID     *uuid.UUID
}

// JournalEntry is the append-only audit record of one processed delivery.
// Identifier and intent fields are nil when the event did not resolve.
// Duplicate deliveries produce duplicate entries by design.
type JournalEntry struct {
	ID            uuid.UUID
	AccountID     *uuid.UUID
	TenantID      *uuid.UUID
	PaymentID     *uuid.UUID
	TransactionID *uuid.UUID
	Intent        *notification.Intent
	Event         notification.Event
	RecordedAt    time.Time
}
