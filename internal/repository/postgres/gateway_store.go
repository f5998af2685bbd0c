package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// GatewayStore implements reconciliation.Store using PostgreSQL. It backs the
// three gateway tables: stored responses, pending hosted-page requests and the
// append-only notification journal.
type GatewayStore struct {
	pool *pgxpool.Pool
}

// NewGatewayStore creates a new GatewayStore.
func NewGatewayStore(pool *pgxpool.Pool) *GatewayStore {
	return &GatewayStore{pool: pool}
}

func (s *GatewayStore) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, s.pool)
}

// ResponseByReference returns the most recent stored response for a psp
// reference, or (nil, nil) when none exists.
func (s *GatewayStore) ResponseByReference(ctx context.Context, pspReference string) (*reconciliation.ResponseRecord, error) {
	rec := &reconciliation.ResponseRecord{}
	err := s.db(ctx).QueryRow(ctx,
		`SELECT psp_reference, account_id, tenant_id, payment_id, transaction_id
		 FROM gateway_responses
		 WHERE psp_reference = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, pspReference,
	).Scan(&rec.PSPReference, &rec.AccountID, &rec.TenantID, &rec.PaymentID, &rec.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query gateway response: %w", err)
	}
	return rec, nil
}

// HostedRequestByMerchantReference returns the pending hosted-page request for
// a merchant reference, or (nil, nil) when none exists.
func (s *GatewayStore) HostedRequestByMerchantReference(ctx context.Context, merchantReference string) (*reconciliation.HostedRequestRecord, error) {
	rec := &reconciliation.HostedRequestRecord{}
	err := s.db(ctx).QueryRow(ctx,
		`SELECT merchant_reference, account_id, tenant_id, payment_id, transaction_id
		 FROM gateway_hosted_requests
		 WHERE merchant_reference = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, merchantReference,
	).Scan(&rec.MerchantReference, &rec.AccountID, &rec.TenantID, &rec.PaymentID, &rec.TransactionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query hosted request: %w", err)
	}
	return rec, nil
}

// UpdateTransactionMetadata merges plugin properties into the stored response
// row of a transaction. Matching no row is a no-op: a pending-request
// correlation can carry transaction ids whose response row was never stored,
// and the delivery still has to be accepted.
func (s *GatewayStore) UpdateTransactionMetadata(ctx context.Context, transactionID uuid.UUID, properties map[string]string, tenantID uuid.UUID) error {
	props, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	_, err = s.db(ctx).Exec(ctx,
		`UPDATE gateway_responses
		 SET properties = properties || $1::jsonb, updated_at = NOW()
		 WHERE transaction_id = $2 AND tenant_id = $3`,
		props, transactionID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("update transaction metadata: %w", err)
	}
	return nil
}

// AppendJournal records one processed delivery. Duplicate deliveries produce
// duplicate rows.
func (s *GatewayStore) AppendJournal(ctx context.Context, entry *reconciliation.JournalEntry) error {
	event, err := json.Marshal(toJournalEvent(entry.Event))
	if err != nil {
		return fmt.Errorf("marshal journal event: %w", err)
	}

	var intent *string
	if entry.Intent != nil {
		s := string(*entry.Intent)
		intent = &s
	}

	_, err = s.db(ctx).Exec(ctx,
		`INSERT INTO gateway_notifications
		 (id, account_id, tenant_id, payment_id, transaction_id, intent, event, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.AccountID, entry.TenantID, entry.PaymentID, entry.TransactionID,
		intent, event, entry.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// ListUnresolvedJournal returns entries recorded after the given instant that
// carried a mapped intent but resolved to no ledger entity, oldest first.
func (s *GatewayStore) ListUnresolvedJournal(ctx context.Context, after time.Time, limit int) ([]*reconciliation.JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db(ctx).Query(ctx,
		`SELECT id, account_id, tenant_id, payment_id, transaction_id, intent, event, recorded_at
		 FROM gateway_notifications
		 WHERE recorded_at > $1 AND intent IS NOT NULL AND account_id IS NULL
		 ORDER BY recorded_at ASC
		 LIMIT $2`, after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list unresolved journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*reconciliation.JournalEntry
	for rows.Next() {
		entry := &reconciliation.JournalEntry{}
		var (
			intent *string
			event  []byte
		)
		if err := rows.Scan(
			&entry.ID, &entry.AccountID, &entry.TenantID, &entry.PaymentID, &entry.TransactionID,
			&intent, &event, &entry.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		if intent != nil {
			i := notification.Intent(*intent)
			entry.Intent = &i
		}
		var je journalEvent
		if err := json.Unmarshal(event, &je); err != nil {
			return nil, fmt.Errorf("unmarshal journal event: %w", err)
		}
		ev, err := je.toDomain()
		if err != nil {
			return nil, fmt.Errorf("rebuild journal event: %w", err)
		}
		entry.Event = ev
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// journalEvent is the jsonb shape of a journaled notification. It keeps the
// full event so the sweeper can replay it without the original delivery.
type journalEvent struct {
	EventCode           string            `json:"event_code"`
	PSPReference        string            `json:"psp_reference"`
	OriginalReference   string            `json:"original_reference,omitempty"`
	MerchantReference   string            `json:"merchant_reference,omitempty"`
	MerchantAccountCode string            `json:"merchant_account_code,omitempty"`
	Amount              string            `json:"amount"`
	Currency            string            `json:"currency,omitempty"`
	Success             *bool             `json:"success,omitempty"`
	Reason              string            `json:"reason,omitempty"`
	PaymentMethod       string            `json:"payment_method,omitempty"`
	Operations          []string          `json:"operations,omitempty"`
	AdditionalData      map[string]string `json:"additional_data,omitempty"`
	EventDate           time.Time         `json:"event_date"`
}

func toJournalEvent(ev notification.Event) journalEvent {
	return journalEvent{
		EventCode:           ev.EventCode,
		PSPReference:        ev.PSPReference,
		OriginalReference:   ev.OriginalReference,
		MerchantReference:   ev.MerchantReference,
		MerchantAccountCode: ev.MerchantAccountCode,
		Amount:              ev.Amount.String(),
		Currency:            ev.Currency,
		Success:             ev.Success,
		Reason:              ev.Reason,
		PaymentMethod:       ev.PaymentMethod,
		Operations:          ev.Operations,
		AdditionalData:      ev.AdditionalData,
		EventDate:           ev.EventDate,
	}
}

func (je journalEvent) toDomain() (notification.Event, error) {
	amount, err := decimal.NewFromString(je.Amount)
	if err != nil {
		return notification.Event{}, fmt.Errorf("malformed amount %q: %w", je.Amount, err)
	}
	return notification.Event{
		EventCode:           je.EventCode,
		PSPReference:        je.PSPReference,
		OriginalReference:   je.OriginalReference,
		MerchantReference:   je.MerchantReference,
		MerchantAccountCode: je.MerchantAccountCode,
		Amount:              amount,
		Currency:            je.Currency,
		Success:             je.Success,
		Reason:              je.Reason,
		PaymentMethod:       je.PaymentMethod,
		Operations:          je.Operations,
		AdditionalData:      je.AdditionalData,
		EventDate:           je.EventDate,
	}, nil
}
