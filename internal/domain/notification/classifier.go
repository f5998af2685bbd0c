package notification

// Intent is the canonical transaction category a gateway event maps onto.
type Intent string

const (
	IntentAuthorize  Intent = "AUTHORIZE"
	IntentCapture    Intent = "CAPTURE"
	IntentVoid       Intent = "VOID"
	IntentRefund     Intent = "REFUND"
	IntentChargeback Intent = "CHARGEBACK"

	// IntentUnmapped is the bucket for events that carry no transaction-type
	// semantics: reports, fraud notices, disputes, recurring lifecycle events.
	IntentUnmapped Intent = ""
)

// Mapped reports whether the intent carries transaction-type semantics.
func (i Intent) Mapped() bool {
	return i != IntentUnmapped
}

// Gateway event codes. The set follows the gateway's published catalogue;
// codes not listed here classify as unmapped.
const (
	CodeAuthorisation            = "AUTHORISATION"
	CodeCapture                  = "CAPTURE"
	CodeCaptureFailed            = "CAPTURE_FAILED"
	CodeCancellation             = "CANCELLATION"
	CodeRefund                   = "REFUND"
	CodeRefundFailed             = "REFUND_FAILED"
	CodeRefundedReversed         = "REFUNDED_REVERSED"
	CodeCancelOrRefund           = "CANCEL_OR_REFUND"
	CodeChargeback               = "CHARGEBACK"
	CodeChargebackReversed       = "CHARGEBACK_REVERSED"
	CodeNotificationOfChargeback = "NOTIFICATION_OF_CHARGEBACK"
	CodeNotificationOfFraud      = "NOTIFICATION_OF_FRAUD"
	CodeRequestForInformation    = "REQUEST_FOR_INFORMATION"
	CodeDispute                  = "DISPUTE"
	CodeReportAvailable          = "REPORT_AVAILABLE"
	CodeNotificationTest         = "NOTIFICATIONTEST"
	CodeRecurringContract        = "RECURRING_CONTRACT"
	CodeRecurringDetailDisabled  = "RECURRING_DETAIL_DISABLED"
	CodeRecurringForUserDisabled = "RECURRING_FOR_USER_DISABLED"
)

var intentByCode = map[string]Intent{
	CodeAuthorisation:            IntentAuthorize,
	CodeCapture:                  IntentCapture,
	CodeCaptureFailed:            IntentCapture,
	CodeCancellation:             IntentVoid,
	CodeRefund:                   IntentRefund,
	CodeRefundFailed:             IntentRefund,
	CodeRefundedReversed:         IntentRefund,
	CodeChargeback:               IntentChargeback,
	CodeChargebackReversed:       IntentChargeback,
	CodeNotificationOfChargeback: IntentChargeback,
}

// chargebackCreatingCodes are the events that always create a new chargeback
// transaction against the original reference. CHARGEBACK_REVERSED is excluded:
// it reacts to an already-recorded chargeback and follows the generic path.
var chargebackCreatingCodes = map[string]struct{}{
	CodeChargeback:               {},
	CodeNotificationOfChargeback: {},
}

// informationalCodes carry no operational reference in the fields used for
// correlation. They are journaled without any lookup or platform call.
var informationalCodes = map[string]struct{}{
	CodeReportAvailable:          {},
	CodeNotificationOfFraud:      {},
	CodeRequestForInformation:    {},
	CodeDispute:                  {},
	CodeNotificationTest:         {},
	CodeRecurringContract:        {},
	CodeRecurringDetailDisabled:  {},
	CodeRecurringForUserDisabled: {},
}

// Classify maps a gateway event code to its transaction intent. Unknown or
// future codes classify as unmapped rather than failing, so gateway additions
// never break delivery.
func Classify(eventCode string) Intent {
	return intentByCode[eventCode]
}

// CreatesChargeback reports whether the event must go through the chargeback
// path instead of the generic correlation path.
func CreatesChargeback(eventCode string) bool {
	_, ok := chargebackCreatingCodes[eventCode]
	return ok
}

// Informational reports whether the event is journal-only by design.
func Informational(eventCode string) bool {
	_, ok := informationalCodes[eventCode]
	return ok
}
