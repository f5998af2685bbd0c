package testutil

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

// PluginName is the gateway plugin identity used across tests.
const PluginName = "gateway-reconciler"

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}

// NewTestEvent builds a plausible gateway notification with the given code
// and psp reference. Callers override fields as needed.
func NewTestEvent(eventCode, pspReference string) notification.Event {
	return notification.Event{
		EventCode:           eventCode,
		PSPReference:        pspReference,
		MerchantReference:   "order-" + pspReference,
		MerchantAccountCode: "TestMerchant",
		Amount:              decimal.NewFromFloat(10.00),
		Currency:            "EUR",
		Success:             BoolPtr(true),
		EventDate:           time.Date(2024, 5, 12, 9, 30, 0, 0, time.UTC),
	}
}

// NewResponseRecord builds a stored response record for the given psp
// reference with fresh identifiers.
func NewResponseRecord(pspReference string) *reconciliation.ResponseRecord {
	return &reconciliation.ResponseRecord{
		PSPReference:  pspReference,
		AccountID:     uuid.New(),
		TenantID:      uuid.New(),
		PaymentID:     uuid.New(),
		TransactionID: uuid.New(),
	}
}

// NewHostedRequest builds a pending hosted-page request. When withPayment is
// true the request already carries payment and transaction ids.
func NewHostedRequest(merchantReference string, withPayment bool) *reconciliation.HostedRequestRecord {
	rec := &reconciliation.HostedRequestRecord{
		MerchantReference: merchantReference,
		AccountID:         uuid.New(),
		TenantID:          uuid.New(),
	}
	if withPayment {
		paymentID := uuid.New()
		transactionID := uuid.New()
		rec.PaymentID = &paymentID
		rec.TransactionID = &transactionID
	}
	return rec
}

// NewTestAccount builds a billing account under the given tenant.
func NewTestAccount(accountID, tenantID uuid.UUID) *billing.Account {
	return &billing.Account{
		ID:          accountID,
		TenantID:    tenantID,
		ExternalKey: "acct-" + accountID.String()[:8],
		Name:        "Test Account",
		Currency:    "EUR",
	}
}

// NewGatewayPaymentMethod builds a payment method owned by the gateway plugin.
func NewGatewayPaymentMethod(accountID uuid.UUID) billing.PaymentMethod {
	return billing.PaymentMethod{
		ID:         uuid.New(),
		AccountID:  accountID,
		PluginName: PluginName,
		IsDefault:  true,
	}
}
