// Package notification models the asynchronous events delivered by the
// payment gateway and their mapping onto transaction intents.
package notification

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is one gateway notification, parsed from the raw payload.
// It is created once per delivery and never mutated.
type Event struct {
	EventCode           string
	PSPReference        string
	OriginalReference   string
	MerchantReference   string
	MerchantAccountCode string
	Amount              decimal.Decimal
	Currency            string
	Success             *bool
	Reason              string
	PaymentMethod       string
	Operations          []string
	AdditionalData      map[string]string
	EventDate           time.Time
}

// Succeeded reports the success flag, defaulting to false when absent.
func (e Event) Succeeded() bool {
	return e.Success != nil && *e.Success
}
