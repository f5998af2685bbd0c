package reconcile

import (
	"context"

	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// Resolver finds the ledger entity a notification refers to, if any.
type Resolver struct {
	store reconciliation.Store
}

// NewResolver creates a new Resolver.
func NewResolver(store reconciliation.Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve runs the two-tier lookup: a stored response keyed by psp reference
// wins over a pending hosted-page request keyed by merchant reference. At most
// one correlation is chosen per event. Store errors abort resolution and are
// retryable.
func (r *Resolver) Resolve(ctx context.Context, ev notification.Event) (reconciliation.Correlation, error) {
	rec, err := r.store.ResponseByReference(ctx, ev.PSPReference)
	if err != nil {
		return reconciliation.Correlation{}, apperrors.Retryable("lookup response for pspReference "+ev.PSPReference, err)
	}
	if rec != nil {
		paymentID := rec.PaymentID
		transactionID := rec.TransactionID
		return reconciliation.Correlation{
			Kind:          reconciliation.ExistingTransaction,
			AccountID:     rec.AccountID,
			TenantID:      rec.TenantID,
			PaymentID:     &paymentID,
			TransactionID: &transactionID,
		}, nil
	}

	hpp, err := r.store.HostedRequestByMerchantReference(ctx, ev.MerchantReference)
	if err != nil {
		return reconciliation.Correlation{}, apperrors.Retryable("lookup hosted request for merchantReference "+ev.MerchantReference, err)
	}
	if hpp != nil {
		return reconciliation.Correlation{
			Kind:          reconciliation.PendingRequest,
			AccountID:     hpp.AccountID,
			TenantID:      hpp.TenantID,
			PaymentID:     hpp.PaymentID,
			TransactionID: hpp.TransactionID,
		}, nil
	}

	return reconciliation.Correlation{Kind: reconciliation.Unresolved}, nil
}
