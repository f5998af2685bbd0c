package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		code   string
		intent Intent
	}{
		{CodeAuthorisation, IntentAuthorize},
		{CodeCapture, IntentCapture},
		{CodeCaptureFailed, IntentCapture},
		{CodeCancellation, IntentVoid},
		{CodeRefund, IntentRefund},
		{CodeRefundFailed, IntentRefund},
		{CodeRefundedReversed, IntentRefund},
		{CodeChargeback, IntentChargeback},
		{CodeChargebackReversed, IntentChargeback},
		{CodeNotificationOfChargeback, IntentChargeback},
		{CodeReportAvailable, IntentUnmapped},
		{CodeNotificationOfFraud, IntentUnmapped},
		{CodeRequestForInformation, IntentUnmapped},
		{CodeDispute, IntentUnmapped},
		{CodeNotificationTest, IntentUnmapped},
		{CodeRecurringContract, IntentUnmapped},
		{CodeCancelOrRefund, IntentUnmapped},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.intent, Classify(tt.code))
		})
	}
}

func TestClassify_UnknownCodesAreUnmapped(t *testing.T) {
	// Forward compatibility: the gateway adds codes without notice.
	assert.Equal(t, IntentUnmapped, Classify("SOME_FUTURE_CODE"))
	assert.Equal(t, IntentUnmapped, Classify(""))
	assert.False(t, Classify("SOME_FUTURE_CODE").Mapped())
}

func TestCreatesChargeback(t *testing.T) {
	assert.True(t, CreatesChargeback(CodeChargeback))
	assert.True(t, CreatesChargeback(CodeNotificationOfChargeback))

	// A reversal reacts to an existing chargeback, it does not create one.
	assert.False(t, CreatesChargeback(CodeChargebackReversed))
	assert.False(t, CreatesChargeback(CodeCapture))
}

func TestInformational(t *testing.T) {
	assert.True(t, Informational(CodeReportAvailable))
	assert.True(t, Informational(CodeNotificationTest))
	assert.False(t, Informational(CodeAuthorisation))
	assert.False(t, Informational(CodeChargeback))
}

func TestEvent_Succeeded(t *testing.T) {
	assert.False(t, Event{}.Succeeded())

	v := false
	assert.False(t, Event{Success: &v}.Succeeded())

	v = true
	assert.True(t, Event{Success: &v}.Succeeded())
}
