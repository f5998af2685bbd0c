package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
)

// execRecorder satisfies pgx.Tx for the Exec path only, recording the
// command tag the store is handed back.
type execRecorder struct {
	pgx.Tx
	tag   pgconn.CommandTag
	execs int
}

func (e *execRecorder) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.execs++
	return e.tag, nil
}

func TestUpdateTransactionMetadataZeroRowsIsNoOp(t *testing.T) {
	rec := &execRecorder{tag: pgconn.NewCommandTag("UPDATE 0")}
	ctx := context.WithValue(context.Background(), txKey, pgx.Tx(rec))

	store := NewGatewayStore(nil)
	err := store.UpdateTransactionMetadata(ctx, uuid.New(), map[string]string{"pspReference": "psp-9"}, uuid.New())

	require.NoError(t, err)
	assert.Equal(t, 1, rec.execs)
}

func TestJournalEventRoundTrip(t *testing.T) {
	success := true
	original := notification.Event{
		EventCode:           "AUTHORISATION",
		PSPReference:        "psp-123",
		OriginalReference:   "psp-000",
		MerchantReference:   "order-42",
		MerchantAccountCode: "AcmeECOM",
		Amount:              decimal.RequireFromString("10.50"),
		Currency:            "EUR",
		Success:             &success,
		Reason:              "approved",
		PaymentMethod:       "visa",
		Operations:          []string{"CAPTURE", "REFUND"},
		AdditionalData:      map[string]string{"authCode": "1234"},
		EventDate:           time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}

	rebuilt, err := toJournalEvent(original).toDomain()
	require.NoError(t, err)

	assert.Equal(t, original.EventCode, rebuilt.EventCode)
	assert.Equal(t, original.PSPReference, rebuilt.PSPReference)
	assert.Equal(t, original.OriginalReference, rebuilt.OriginalReference)
	assert.Equal(t, original.MerchantReference, rebuilt.MerchantReference)
	assert.True(t, original.Amount.Equal(rebuilt.Amount))
	assert.Equal(t, original.Currency, rebuilt.Currency)
	require.NotNil(t, rebuilt.Success)
	assert.True(t, *rebuilt.Success)
	assert.Equal(t, original.Operations, rebuilt.Operations)
	assert.Equal(t, original.AdditionalData, rebuilt.AdditionalData)
	assert.True(t, original.EventDate.Equal(rebuilt.EventDate))
}

func TestJournalEventMalformedAmount(t *testing.T) {
	je := journalEvent{EventCode: "CAPTURE", Amount: "not-a-number"}

	_, err := je.toDomain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed amount")
}
