package controller

import (
	"strings"
	"time"

	"github.com/cassiomorais/gateway-reconciler/internal/domain/billing"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
)

// NotificationRequest is the gateway's webhook envelope. One delivery can
// batch several notification items.
type NotificationRequest struct {
	Live              string                    `json:"live"`
	NotificationItems []NotificationItemWrapper `json:"notificationItems" validate:"required,min=1,dive"`
}

type NotificationItemWrapper struct {
	NotificationRequestItem NotificationItem `json:"NotificationRequestItem" validate:"required"`
}

// NotificationItem is one gateway event inside the envelope. Amounts arrive
// in minor units.
type NotificationItem struct {
	EventCode           string            `json:"eventCode" validate:"required"`
	PSPReference        string            `json:"pspReference"`
	OriginalReference   string            `json:"originalReference"`
	MerchantReference   string            `json:"merchantReference"`
	MerchantAccountCode string            `json:"merchantAccountCode"`
	Amount              AmountDTO         `json:"amount"`
	Success             string            `json:"success"`
	Reason              string            `json:"reason"`
	PaymentMethod       string            `json:"paymentMethod"`
	Operations          []string          `json:"operations"`
	AdditionalData      map[string]string `json:"additionalData"`
	EventDate           time.Time         `json:"eventDate"`
}

type AmountDTO struct {
	Value    int64  `json:"value"`
	Currency string `json:"currency"`
}

// NotificationResponse is the acknowledgement body the gateway expects.
type NotificationResponse struct {
	NotificationResponse string `json:"notificationResponse"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// toEvent converts a wire item to a domain event. The minor-unit amount is
// converted here so the rest of the pipeline works in decimals.
func (i NotificationItem) toEvent() notification.Event {
	var success *bool
	switch strings.ToLower(i.Success) {
	case "true":
		v := true
		success = &v
	case "false":
		v := false
		success = &v
	}

	return notification.Event{
		EventCode:           i.EventCode,
		PSPReference:        i.PSPReference,
		OriginalReference:   i.OriginalReference,
		MerchantReference:   i.MerchantReference,
		MerchantAccountCode: i.MerchantAccountCode,
		Amount:              billing.MinorUnitsToDecimal(i.Amount.Value, i.Amount.Currency),
		Currency:            i.Amount.Currency,
		Success:             success,
		Reason:              i.Reason,
		PaymentMethod:       i.PaymentMethod,
		Operations:          i.Operations,
		AdditionalData:      i.AdditionalData,
		EventDate:           i.EventDate,
	}
}
