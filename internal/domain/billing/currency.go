package billing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
)

// Currency is an ISO 4217 code the billing platform supports.
type Currency string

// minorUnitExponents maps supported currencies to their minor-unit exponent.
// The gateway reports amounts in minor units; the platform works in decimals.
var minorUnitExponents = map[Currency]int32{
	"AUD": 2,
	"BRL": 2,
	"CAD": 2,
	"CHF": 2,
	"CLP": 0,
	"CNY": 2,
	"CZK": 2,
	"DKK": 2,
	"EUR": 2,
	"GBP": 2,
	"HKD": 2,
	"IDR": 2,
	"INR": 2,
	"ISK": 0,
	"JPY": 0,
	"KRW": 0,
	"MXN": 2,
	"NOK": 2,
	"NZD": 2,
	"PLN": 2,
	"SEK": 2,
	"SGD": 2,
	"THB": 2,
	"TND": 3,
	"USD": 2,
	"VND": 0,
	"ZAR": 2,
}

// ParseCurrency validates a notification currency code against the platform's
// supported set. An unknown code is fatal: the event is malformed upstream and
// redelivery cannot fix it.
func ParseCurrency(code string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(code)))
	if _, ok := minorUnitExponents[c]; !ok {
		return "", apperrors.Fatal(fmt.Sprintf("parse currency %q", code), apperrors.ErrUnknownCurrency)
	}
	return c, nil
}

// MinorUnitsToDecimal converts a gateway minor-unit value to a decimal amount.
// Unknown currencies fall back to two decimal places so malformed events can
// still be journaled with a usable amount.
func MinorUnitsToDecimal(value int64, code string) decimal.Decimal {
	exp := int32(2)
	if e, ok := minorUnitExponents[Currency(strings.ToUpper(strings.TrimSpace(code)))]; ok {
		exp = e
	}
	return decimal.New(value, -exp)
}
