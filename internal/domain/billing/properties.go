package billing

// Plugin property keys attached to payments and stored gateway responses.
const (
	PropFromHPP                  = "fromHPP"
	PropFromHPPTransactionStatus = "fromHPPTransactionStatus"
	PropMerchantReference        = "merchantReference"
	PropPSPReference             = "pspReference"
	PropAmount                   = "amount"
	PropCurrency                 = "currency"
	PropAdditionalData           = "additionalData"
	PropEventCode                = "eventCode"
	PropEventDate                = "eventDate"
	PropMerchantAccountCode      = "merchantAccountCode"
	PropOperations               = "operations"
	PropOriginalReference        = "originalReference"
	PropPaymentMethod            = "paymentMethod"
	PropReason                   = "reason"
	PropSuccess                  = "success"
)

// Hosted-page transaction statuses recorded on payments created from a
// hosted flow.
const (
	HPPStatusProcessed = "PROCESSED"
	HPPStatusError     = "ERROR"
)
