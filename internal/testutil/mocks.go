package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// --- Gateway Store Mock ---

// MetadataUpdate records one UpdateTransactionMetadata call.
type MetadataUpdate struct {
	TransactionID uuid.UUID
	Properties    map[string]string
	TenantID      uuid.UUID
}

// MockStore is a mock implementation of reconciliation.Store.
type MockStore struct {
	mu             sync.Mutex
	responses      map[string]*reconciliation.ResponseRecord
	hostedRequests map[string]*reconciliation.HostedRequestRecord

	Journal         []*reconciliation.JournalEntry
	MetadataUpdates []MetadataUpdate

	ResponseByReferenceFunc              func(ctx context.Context, pspReference string) (*reconciliation.ResponseRecord, error)
	HostedRequestByMerchantReferenceFunc func(ctx context.Context, merchantReference string) (*reconciliation.HostedRequestRecord, error)
	UpdateTransactionMetadataFunc        func(ctx context.Context, transactionID uuid.UUID, properties map[string]string, tenantID uuid.UUID) error
	AppendJournalFunc                    func(ctx context.Context, entry *reconciliation.JournalEntry) error
	ListUnresolvedJournalFunc            func(ctx context.Context, after time.Time, limit int) ([]*reconciliation.JournalEntry, error)
}

func NewMockStore() *MockStore {
	return &MockStore{
		responses:      make(map[string]*reconciliation.ResponseRecord),
		hostedRequests: make(map[string]*reconciliation.HostedRequestRecord),
	}
}

// AddResponse registers a stored response record for lookups.
func (m *MockStore) AddResponse(rec *reconciliation.ResponseRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[rec.PSPReference] = rec
}

// AddHostedRequest registers a pending hosted-page request for lookups.
func (m *MockStore) AddHostedRequest(rec *reconciliation.HostedRequestRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hostedRequests[rec.MerchantReference] = rec
}

func (m *MockStore) ResponseByReference(ctx context.Context, pspReference string) (*reconciliation.ResponseRecord, error) {
	if m.ResponseByReferenceFunc != nil {
		return m.ResponseByReferenceFunc(ctx, pspReference)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responses[pspReference], nil
}

func (m *MockStore) HostedRequestByMerchantReference(ctx context.Context, merchantReference string) (*reconciliation.HostedRequestRecord, error) {
	if m.HostedRequestByMerchantReferenceFunc != nil {
		return m.HostedRequestByMerchantReferenceFunc(ctx, merchantReference)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hostedRequests[merchantReference], nil
}

func (m *MockStore) UpdateTransactionMetadata(ctx context.Context, transactionID uuid.UUID, properties map[string]string, tenantID uuid.UUID) error {
	if m.UpdateTransactionMetadataFunc != nil {
		return m.UpdateTransactionMetadataFunc(ctx, transactionID, properties, tenantID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MetadataUpdates = append(m.MetadataUpdates, MetadataUpdate{
		TransactionID: transactionID,
		Properties:    properties,
		TenantID:      tenantID,
	})
	return nil
}

func (m *MockStore) AppendJournal(ctx context.Context, entry *reconciliation.JournalEntry) error {
	if m.AppendJournalFunc != nil {
		return m.AppendJournalFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Journal = append(m.Journal, entry)
	return nil
}

func (m *MockStore) ListUnresolvedJournal(ctx context.Context, after time.Time, limit int) ([]*reconciliation.JournalEntry, error) {
	if m.ListUnresolvedJournalFunc != nil {
		return m.ListUnresolvedJournalFunc(ctx, after, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*reconciliation.JournalEntry
	for _, e := range m.Journal {
		if e.AccountID == nil && e.Intent != nil && e.RecordedAt.After(after) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// LastJournalEntry returns the most recently appended journal entry, or nil.
func (m *MockStore) LastJournalEntry() *reconciliation.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Journal) == 0 {
		return nil
	}
	return m.Journal[len(m.Journal)-1]
}

// --- Billing API Mock ---

// NotifyCall records one NotifyTransactionStateChanged call.
type NotifyCall struct {
	AccountID     uuid.UUID
	TransactionID uuid.UUID
	Success       bool
	TenantID      uuid.UUID
}

// ChargebackCall records one CreateChargeback call.
type ChargebackCall struct {
	AccountID uuid.UUID
	PaymentID uuid.UUID
	Amount    decimal.Decimal
	Currency  billing.Currency
	Reason    string
}

// MockBillingAPI is a mock implementation of billing.API.
type MockBillingAPI struct {
	mu             sync.Mutex
	accounts       map[uuid.UUID]*billing.Account
	paymentMethods map[uuid.UUID][]billing.PaymentMethod

	NotifyCalls     []NotifyCall
	PurchaseCalls   []billing.PurchaseRequest
	ChargebackCalls []ChargebackCall

	// PurchaseResult and ChargebackResult override the default synthesized
	// payments when set.
	PurchaseResult   *billing.Payment
	ChargebackResult *billing.Payment

	AccountFunc                       func(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) (*billing.Account, error)
	NotifyTransactionStateChangedFunc func(ctx context.Context, account *billing.Account, transactionID uuid.UUID, success bool, cctx billing.CallContext) error
	CreatePurchaseFunc                func(ctx context.Context, req billing.PurchaseRequest, cctx billing.CallContext) (*billing.Payment, error)
	CreateChargebackFunc              func(ctx context.Context, account *billing.Account, paymentID uuid.UUID, amount decimal.Decimal, currency billing.Currency, reason string, cctx billing.CallContext) (*billing.Payment, error)
	AccountPaymentMethodsFunc         func(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) ([]billing.PaymentMethod, error)
}

func NewMockBillingAPI() *MockBillingAPI {
	return &MockBillingAPI{
		accounts:       make(map[uuid.UUID]*billing.Account),
		paymentMethods: make(map[uuid.UUID][]billing.PaymentMethod),
	}
}

// AddAccount registers an account for retrieval.
func (m *MockBillingAPI) AddAccount(a *billing.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
}

// AddPaymentMethod registers a payment method on an account.
func (m *MockBillingAPI) AddPaymentMethod(pm billing.PaymentMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paymentMethods[pm.AccountID] = append(m.paymentMethods[pm.AccountID], pm)
}

func (m *MockBillingAPI) Account(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) (*billing.Account, error) {
	if m.AccountFunc != nil {
		return m.AccountFunc(ctx, accountID, cctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[accountID]; ok {
		return a, nil
	}
	return &billing.Account{ID: accountID, TenantID: cctx.TenantID}, nil
}

func (m *MockBillingAPI) NotifyTransactionStateChanged(ctx context.Context, account *billing.Account, transactionID uuid.UUID, success bool, cctx billing.CallContext) error {
	if m.NotifyTransactionStateChangedFunc != nil {
		return m.NotifyTransactionStateChangedFunc(ctx, account, transactionID, success, cctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = append(m.NotifyCalls, NotifyCall{
		AccountID:     account.ID,
		TransactionID: transactionID,
		Success:       success,
		TenantID:      cctx.TenantID,
	})
	return nil
}

func (m *MockBillingAPI) CreatePurchase(ctx context.Context, req billing.PurchaseRequest, cctx billing.CallContext) (*billing.Payment, error) {
	if m.CreatePurchaseFunc != nil {
		return m.CreatePurchaseFunc(ctx, req, cctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PurchaseCalls = append(m.PurchaseCalls, req)
	if m.PurchaseResult != nil {
		return m.PurchaseResult, nil
	}
	return &billing.Payment{
		ID:          uuid.New(),
		AccountID:   req.Account,
		ExternalKey: req.ExternalKey,
		Transactions: []billing.PaymentTransaction{
			{ID: uuid.New(), ExternalKey: req.TransactionExternalKey, Type: billing.TransactionPurchase, Amount: req.Amount, Currency: req.Currency},
		},
	}, nil
}

func (m *MockBillingAPI) CreateChargeback(ctx context.Context, account *billing.Account, paymentID uuid.UUID, amount decimal.Decimal, currency billing.Currency, reason string, cctx billing.CallContext) (*billing.Payment, error) {
	if m.CreateChargebackFunc != nil {
		return m.CreateChargebackFunc(ctx, account, paymentID, amount, currency, reason, cctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChargebackCalls = append(m.ChargebackCalls, ChargebackCall{
		AccountID: account.ID,
		PaymentID: paymentID,
		Amount:    amount,
		Currency:  currency,
		Reason:    reason,
	})
	if m.ChargebackResult != nil {
		return m.ChargebackResult, nil
	}
	return &billing.Payment{
		ID:        paymentID,
		AccountID: account.ID,
		Transactions: []billing.PaymentTransaction{
			{ID: uuid.New(), Type: billing.TransactionPurchase},
			{ID: uuid.New(), Type: billing.TransactionChargeback, Amount: amount, Currency: currency},
		},
	}, nil
}

func (m *MockBillingAPI) AccountPaymentMethods(ctx context.Context, accountID uuid.UUID, cctx billing.CallContext) ([]billing.PaymentMethod, error) {
	if m.AccountPaymentMethodsFunc != nil {
		return m.AccountPaymentMethodsFunc(ctx, accountID, cctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paymentMethods[accountID], nil
}

// --- Outcome Publisher Mock ---

// PublishedOutcome records one PublishOutcome call.
type PublishedOutcome struct {
	Outcome reconciliation.Outcome
	Event   notification.Event
}

// MockPublisher is a mock implementation of reconcile.OutcomePublisher.
type MockPublisher struct {
	mu        sync.Mutex
	Published []PublishedOutcome

	PublishOutcomeFunc func(ctx context.Context, out reconciliation.Outcome, ev notification.Event) error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishOutcome(ctx context.Context, out reconciliation.Outcome, ev notification.Event) error {
	if m.PublishOutcomeFunc != nil {
		return m.PublishOutcomeFunc(ctx, out, ev)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Published = append(m.Published, PublishedOutcome{Outcome: out, Event: ev})
	return nil
}
