// Package billing defines the billing platform entities the reconciler
// references and the capability port it calls. The platform owns these
// entities; the reconciler only reads them and requests state changes.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the type of a ledger payment transaction.
type TransactionType string

const (
	TransactionAuthorize  TransactionType = "AUTHORIZE"
	TransactionCapture    TransactionType = "CAPTURE"
	TransactionVoid       TransactionType = "VOID"
	TransactionRefund     TransactionType = "REFUND"
	TransactionChargeback TransactionType = "CHARGEBACK"
	TransactionPurchase   TransactionType = "PURCHASE"
)

// Account is a billing platform account, referenced by id.
type Account struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	ExternalKey string
	Name        string
	Currency    Currency
}

// PaymentTransaction is one transaction on a ledger payment.
type PaymentTransaction struct {
	ID          uuid.UUID
	ExternalKey string
	Type        TransactionType
	Amount      decimal.Decimal
	Currency    Currency
	Status      string
}

// Payment is a ledger payment with its transaction list, in creation order.
type Payment struct {
	ID           uuid.UUID
	AccountID    uuid.UUID
	ExternalKey  string
	Transactions []PaymentTransaction
}

// LastTransaction returns the final transaction in list order, or nil for a
// payment with no transactions.
func (p *Payment) LastTransaction() *PaymentTransaction {
	if len(p.Transactions) == 0 {
		return nil
	}
	return &p.Transactions[len(p.Transactions)-1]
}

// PaymentMethod is a payment method registered on an account.
type PaymentMethod struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	PluginName string
	IsDefault  bool
}

// CallContext carries the tenant scope and timestamp for one platform call.
type CallContext struct {
	TenantID  uuid.UUID
	CreatedAt time.Time
}

// NewCallContext builds a call context for the given tenant.
func NewCallContext(tenantID uuid.UUID, now time.Time) CallContext {
	return CallContext{TenantID: tenantID, CreatedAt: now}
}

// PurchaseRequest is the input for recording a new purchase payment.
type PurchaseRequest struct {
	Account                uuid.UUID
	PaymentMethodID        uuid.UUID
	Amount                 decimal.Decimal
	Currency               Currency
	ExternalKey            string
	TransactionExternalKey string
	Properties             map[string]string
}

// API is the billing platform capability the reconciler consumes.
type API interface {
	// Account retrieves an account by id.
	Account(ctx context.Context, accountID uuid.UUID, cctx CallContext) (*Account, error)

	// NotifyTransactionStateChanged tells the platform the outcome of a
	// pending transaction. When the transaction is not pending the platform
	// signals errors.ErrTransactionNotPending, which callers treat as a no-op.
	NotifyTransactionStateChanged(ctx context.Context, account *Account, transactionID uuid.UUID, success bool, cctx CallContext) error

	// CreatePurchase records a new purchase payment with its plugin properties.
	CreatePurchase(ctx context.Context, req PurchaseRequest, cctx CallContext) (*Payment, error)

	// CreateChargeback creates a chargeback transaction against an existing payment.
	CreateChargeback(ctx context.Context, account *Account, paymentID uuid.UUID, amount decimal.Decimal, currency Currency, reason string, cctx CallContext) (*Payment, error)

	// AccountPaymentMethods lists the payment methods registered on an account.
	AccountPaymentMethods(ctx context.Context, accountID uuid.UUID, cctx CallContext) ([]PaymentMethod, error)
}
