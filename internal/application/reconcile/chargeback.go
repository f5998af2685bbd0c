package reconcile

import (
	"context"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// processChargeback handles the gateway-initiated reversal path. It resolves
// the original operation through the response store only, never the
// pending-request store, and always creates a new chargeback transaction
// rather than updating an existing one.
func (e *Engine) processChargeback(ctx context.Context, ev notification.Event) (out reconciliation.Outcome, err error) {
	now := e.now().UTC()
	out = reconciliation.Outcome{Action: reconciliation.ActionJournaledOnly}
	var ids journalIDs
	defer e.journal(ctx, &ids, notification.IntentChargeback, ev, now, &err)

	rec, err := e.store.ResponseByReference(ctx, ev.OriginalReference)
	if err != nil {
		return out, apperrors.Retryable("lookup response for originalReference "+ev.OriginalReference, err)
	}
	if rec == nil {
		// No original operation on record. Journal with null ids and stop.
		return out, nil
	}

	accountID, tenantID, paymentID := rec.AccountID, rec.TenantID, rec.PaymentID
	ids.accountID = &accountID
	ids.tenantID = &tenantID
	ids.paymentID = &paymentID

	cctx := billing.NewCallContext(tenantID, now)
	account, err := e.getAccount(ctx, accountID, cctx)
	if err != nil {
		return out, err
	}

	currency, err := billing.ParseCurrency(ev.Currency)
	if err != nil {
		return out, err
	}

	payment, cbErr := e.billing.CreateChargeback(ctx, account, paymentID, ev.Amount, currency, ev.Reason, cctx)
	if cbErr != nil {
		err = apperrors.Retryable("create chargeback for "+ev.OriginalReference, cbErr)
		return out, err
	}

	// The platform appends the chargeback to the payment's transaction list.
	// Correlate the journal entry to the last transaction only when it really
	// is a chargeback.
	if last := payment.LastTransaction(); last != nil && last.Type == billing.TransactionChargeback {
		transactionID := last.ID
		ids.transactionID = &transactionID
	}

	out = ids.outcome(reconciliation.ActionCreatedChargeback)
	e.publish(ctx, out, ev)
	return out, nil
}
