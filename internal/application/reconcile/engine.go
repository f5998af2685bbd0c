package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
	"github.com/cassiomorais/gateway-reconciler/internal/infrastructure/observability"
)

// Engine reconciles one gateway notification at a time against the ledger:
// classification, correlation, action selection, execution. It guarantees a
// journal write on every exit path and maps failures onto the retry taxonomy.
type Engine struct {
	store      reconciliation.Store
	resolver   *Resolver
	billing    billing.API
	publisher  OutcomePublisher
	pluginName string
	metrics    *observability.Metrics
	logger     zerolog.Logger
	now        func() time.Time
}

// NewEngine creates a reconciliation engine. publisher may be nil.
func NewEngine(
	store reconciliation.Store,
	billingAPI billing.API,
	publisher OutcomePublisher,
	pluginName string,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		store:      store,
		resolver:   NewResolver(store),
		billing:    billingAPI,
		publisher:  publisher,
		pluginName: pluginName,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the engine clock. Tests only.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// WithMetrics enables per-notification instrumentation. metrics may be nil.
func (e *Engine) WithMetrics(metrics *observability.Metrics) *Engine {
	e.metrics = metrics
	return e
}

// ProcessNotification processes a single delivery to completion, including
// the unconditional journal write. A non-nil error with IsRetryable true
// means the transport must ask the gateway to redeliver.
func (e *Engine) ProcessNotification(ctx context.Context, ev notification.Event) (reconciliation.Outcome, error) {
	intent := notification.Classify(ev.EventCode)
	start := time.Now()

	var (
		out reconciliation.Outcome
		err error
	)
	if notification.CreatesChargeback(ev.EventCode) {
		out, err = e.processChargeback(ctx, ev)
	} else {
		out, err = e.process(ctx, ev, intent)
	}
	e.observe(intent, out, err, time.Since(start))
	return out, err
}

func (e *Engine) observe(intent notification.Intent, out reconciliation.Outcome, err error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	intentLabel := string(intent)
	if !intent.Mapped() {
		intentLabel = "unmapped"
	}
	action := string(out.Action)
	if err != nil {
		action = "error"
	}
	e.metrics.NotificationsTotal.WithLabelValues(intentLabel, action).Inc()
	e.metrics.ReconcileDuration.WithLabelValues(intentLabel).Observe(elapsed.Seconds())
}

// journalIDs collects whatever identifiers were resolved before a failure, so
// the deferred journal write can record partial state.
type journalIDs struct {
	accountID     *uuid.UUID
	tenantID      *uuid.UUID
	paymentID     *uuid.UUID
	transactionID *uuid.UUID
}

func (ids *journalIDs) fromCorrelation(corr reconciliation.Correlation) {
	accountID, tenantID := corr.AccountID, corr.TenantID
	ids.accountID = &accountID
	ids.tenantID = &tenantID
	ids.paymentID = corr.PaymentID
	ids.transactionID = corr.TransactionID
}

func (ids *journalIDs) outcome(action reconciliation.Action) reconciliation.Outcome {
	return reconciliation.Outcome{
		Action:        action,
		AccountID:     ids.accountID,
		TenantID:      ids.tenantID,
		PaymentID:     ids.paymentID,
		TransactionID: ids.transactionID,
	}
}

func (e *Engine) process(ctx context.Context, ev notification.Event, intent notification.Intent) (out reconciliation.Outcome, err error) {
	now := e.now().UTC()
	out = reconciliation.Outcome{Action: reconciliation.ActionJournaledOnly}
	var ids journalIDs
	defer e.journal(ctx, &ids, intent, ev, now, &err)

	// Report-family events carry no operational reference in the fields used
	// for correlation. Journal and stop.
	if notification.Informational(ev.EventCode) {
		return out, nil
	}

	corr, err := e.resolver.Resolve(ctx, ev)
	if err != nil {
		return out, err
	}
	if !corr.Resolved() {
		return out, nil
	}
	ids.fromCorrelation(corr)

	cctx := billing.NewCallContext(corr.TenantID, now)
	account, err := e.getAccount(ctx, corr.AccountID, cctx)
	if err != nil {
		return out, err
	}

	success := ev.Succeeded()
	if corr.TransactionID != nil {
		if err = e.updateStoredResponse(ctx, *corr.TransactionID, ev, success, corr, cctx); err != nil {
			return out, err
		}
		if err = e.notifyStateChanged(ctx, account, *corr.TransactionID, success, cctx); err != nil {
			return out, err
		}
		out = ids.outcome(reconciliation.ActionUpdatedTransaction)
	} else {
		payment, perr := e.recordPayment(ctx, account, ev, success, corr.FromHostedRequest(), cctx)
		if perr != nil {
			err = perr
			return out, err
		}
		paymentID := payment.ID
		ids.paymentID = &paymentID
		if len(payment.Transactions) > 0 {
			transactionID := payment.Transactions[0].ID
			ids.transactionID = &transactionID
		}
		out = ids.outcome(reconciliation.ActionCreatedPayment)
	}

	e.publish(ctx, out, ev)
	return out, nil
}

// journal is the guaranteed-cleanup step: it runs on every exit path and a
// failed write forces gateway redelivery, never silent loss.
func (e *Engine) journal(ctx context.Context, ids *journalIDs, intent notification.Intent, ev notification.Event, now time.Time, errp *error) {
	entry := &reconciliation.JournalEntry{
		ID:            uuid.New(),
		AccountID:     ids.accountID,
		TenantID:      ids.tenantID,
		PaymentID:     ids.paymentID,
		TransactionID: ids.transactionID,
		Event:         ev,
		RecordedAt:    now,
	}
	if intent.Mapped() {
		i := intent
		entry.Intent = &i
	}

	if jerr := e.store.AppendJournal(ctx, entry); jerr != nil {
		if e.metrics != nil {
			e.metrics.JournalFailures.Inc()
		}
		e.logger.Error().Err(jerr).
			Str("event_code", ev.EventCode).
			Str("psp_reference", ev.PSPReference).
			Msg("failed to journal notification")
		*errp = apperrors.Retryable("record notification "+ev.PSPReference, jerr)
	}
}

func (e *Engine) getAccount(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) (*billing.Account, error) {
	account, err := e.billing.Account(ctx, accountID, cctx)
	if err != nil {
		return nil, apperrors.Retryable("retrieve account "+accountID.String(), err)
	}
	return account, nil
}

// updateStoredResponse persists the delivery's psp reference (and, for hosted
// flows, the terminal hosted-page status) onto the stored response row before
// the platform is notified.
func (e *Engine) updateStoredResponse(ctx context.Context, transactionID uuid.UUID, ev notification.Event, success bool, corr reconciliation.Correlation, cctx billing.CallContext) error {
	props := map[string]string{
		billing.PropPSPReference: ev.PSPReference,
	}
	if corr.FromHostedRequest() {
		props[billing.PropFromHPPTransactionStatus] = hppStatus(success)
	}
	if err := e.store.UpdateTransactionMetadata(ctx, transactionID, props, cctx.TenantID); err != nil {
		return apperrors.Retryable("update response for transaction "+transactionID.String(), err)
	}
	return nil
}

func (e *Engine) notifyStateChanged(ctx context.Context, account *billing.Account, transactionID uuid.UUID, success bool, cctx billing.CallContext) error {
	err := e.billing.NotifyTransactionStateChanged(ctx, account, transactionID, success, cctx)
	if err == nil {
		return nil
	}
	// Not-pending is the platform's way of saying there is nothing to update,
	// e.g. an authorization that completed synchronously. Accepted as a no-op.
	if errors.Is(err, apperrors.ErrTransactionNotPending) {
		e.logger.Debug().
			Str("transaction_id", transactionID.String()).
			Msg("transaction not pending, state change skipped")
		return nil
	}
	return apperrors.Retryable("notify state change for transaction "+transactionID.String(), err)
}

func (e *Engine) recordPayment(ctx context.Context, account *billing.Account, ev notification.Event, success, fromHPP bool, cctx billing.CallContext) (*billing.Payment, error) {
	paymentMethodID, err := e.gatewayPaymentMethod(ctx, account.ID, cctx)
	if err != nil {
		return nil, err
	}

	currency, err := billing.ParseCurrency(ev.Currency)
	if err != nil {
		return nil, err
	}

	payment, err := e.billing.CreatePurchase(ctx, billing.PurchaseRequest{
		Account:                account.ID,
		PaymentMethodID:        paymentMethodID,
		Amount:                 ev.Amount,
		Currency:               currency,
		ExternalKey:            ev.MerchantReference,
		TransactionExternalKey: ev.MerchantReference,
		Properties:             purchaseProperties(ev, success, fromHPP),
	}, cctx)
	if err != nil {
		return nil, apperrors.Retryable("record purchase for "+ev.MerchantReference, err)
	}
	return payment, nil
}

// gatewayPaymentMethod finds the payment method registered under this
// integration's plugin identity for the account.
func (e *Engine) gatewayPaymentMethod(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) (uuid.UUID, error) {
	methods, err := e.billing.AccountPaymentMethods(ctx, accountID, cctx)
	if err != nil {
		return uuid.Nil, apperrors.Retryable("list payment methods for account "+accountID.String(), err)
	}
	for _, pm := range methods {
		if pm.PluginName == e.pluginName {
			return pm.ID, nil
		}
	}
	return uuid.Nil, apperrors.Retryable("locate payment method for account "+accountID.String(), apperrors.ErrNoGatewayPaymentMethod)
}

func (e *Engine) publish(ctx context.Context, out reconciliation.Outcome, ev notification.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.PublishOutcome(ctx, out, ev); err != nil {
		e.logger.Warn().Err(err).
			Str("psp_reference", ev.PSPReference).
			Str("action", string(out.Action)).
			Msg("failed to publish reconciliation outcome")
	}
}

func hppStatus(success bool) string {
	if success {
		return billing.HPPStatusProcessed
	}
	return billing.HPPStatusError
}

// purchaseProperties builds the structured property bag recorded on payments
// created from a notification, from every non-null notification field.
func purchaseProperties(ev notification.Event, success, fromHPP bool) map[string]string {
	props := map[string]string{
		billing.PropFromHPP:           strconv.FormatBool(fromHPP),
		billing.PropMerchantReference: ev.MerchantReference,
		billing.PropPSPReference:      ev.PSPReference,
		billing.PropAmount:            ev.Amount.String(),
		billing.PropCurrency:          ev.Currency,
	}
	if fromHPP {
		props[billing.PropFromHPPTransactionStatus] = hppStatus(success)
	}
	if len(ev.AdditionalData) > 0 {
		if data, err := json.Marshal(ev.AdditionalData); err == nil {
			props[billing.PropAdditionalData] = string(data)
		}
	}
	if ev.EventCode != "" {
		props[billing.PropEventCode] = ev.EventCode
	}
	if !ev.EventDate.IsZero() {
		props[billing.PropEventDate] = ev.EventDate.UTC().Format(time.RFC3339)
	}
	if ev.MerchantAccountCode != "" {
		props[billing.PropMerchantAccountCode] = ev.MerchantAccountCode
	}
	if len(ev.Operations) > 0 {
		props[billing.PropOperations] = strings.Join(ev.Operations, ",")
	}
	if ev.OriginalReference != "" {
		props[billing.PropOriginalReference] = ev.OriginalReference
	}
	if ev.PaymentMethod != "" {
		props[billing.PropPaymentMethod] = ev.PaymentMethod
	}
	if ev.Reason != "" {
		props[billing.PropReason] = ev.Reason
	}
	if ev.Success != nil {
		props[billing.PropSuccess] = strconv.FormatBool(*ev.Success)
	}
	return props
}
