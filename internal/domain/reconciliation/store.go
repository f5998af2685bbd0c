package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable gateway store: prior responses, pending hosted-page
// requests and the notification journal. Lookups return (nil, nil) when no
// row matches; any error is infrastructure trouble the caller classifies as
// retryable.
type Store interface {
	// ResponseByReference finds the latest stored response for a gateway
	// psp reference.
	ResponseByReference(ctx context.Context, pspReference string) (*ResponseRecord, error)

	// HostedRequestByMerchantReference finds the pending hosted-page request
	// registered under a merchant reference.
	HostedRequestByMerchantReference(ctx context.Context, merchantReference string) (*HostedRequestRecord, error)

	// UpdateTransactionMetadata merges plugin properties into the stored
	// response row of a transaction.
	UpdateTransactionMetadata(ctx context.Context, transactionID uuid.UUID, properties map[string]string, tenantID uuid.UUID) error

	// AppendJournal records one processed delivery. The journal is append-only.
	AppendJournal(ctx context.Context, entry *JournalEntry) error

	// ListUnresolvedJournal returns journal entries recorded after the given
	// instant that carried a mapped intent but resolved to no ledger entity,
	// oldest first. Used to replay orphans once out-of-order state arrives.
	ListUnresolvedJournal(ctx context.Context, after time.Time, limit int) ([]*JournalEntry, error)
}
