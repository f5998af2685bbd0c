package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/notification"
	"github.com/cassiomorais/gateway-reconciler/internal/domain/reconciliation"
)

type processorStub struct {
	events  []notification.Event
	outcome reconciliation.Outcome
	err     error
}

func (p *processorStub) ProcessNotification(ctx context.Context, ev notification.Event) (reconciliation.Outcome, error) {
	p.events = append(p.events, ev)
	return p.outcome, p.err
}

func webhookBody(t *testing.T, items ...map[string]any) *bytes.Buffer {
	t.Helper()

	wrapped := make([]map[string]any, 0, len(items))
	for _, item := range items {
		wrapped = append(wrapped, map[string]any{"NotificationRequestItem": item})
	}
	body, err := json.Marshal(map[string]any{
		"live":              "true",
		"notificationItems": wrapped,
	})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func authorisationItem() map[string]any {
	return map[string]any{
		"eventCode":           "AUTHORISATION",
		"pspReference":        "psp-1",
		"merchantReference":   "order-1",
		"merchantAccountCode": "AcmeECOM",
		"amount":              map[string]any{"value": 1050, "currency": "EUR"},
		"success":             "true",
		"eventDate":           "2026-08-01T12:00:00Z",
	}
}

func TestHandleAcceptsDelivery(t *testing.T) {
	stub := &processorStub{outcome: reconciliation.Outcome{Action: reconciliation.ActionUpdatedTransaction}}
	ctrl := NewNotificationController(stub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", webhookBody(t, authorisationItem()))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "[accepted]", resp.NotificationResponse)

	require.Len(t, stub.events, 1)
	ev := stub.events[0]
	assert.Equal(t, "AUTHORISATION", ev.EventCode)
	assert.Equal(t, "psp-1", ev.PSPReference)
	assert.Equal(t, "10.5", ev.Amount.String())
	assert.Equal(t, "EUR", ev.Currency)
	require.NotNil(t, ev.Success)
	assert.True(t, *ev.Success)
}

func TestHandleZeroDecimalCurrency(t *testing.T) {
	stub := &processorStub{}
	ctrl := NewNotificationController(stub, zerolog.Nop())

	item := authorisationItem()
	item["amount"] = map[string]any{"value": 1050, "currency": "JPY"}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", webhookBody(t, item))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.events, 1)
	assert.Equal(t, "1050", stub.events[0].Amount.String())
}

func TestHandleRetryableFailureAnswers503(t *testing.T) {
	stub := &processorStub{err: domainErrors.Retryable("lookup response", errors.New("db down"))}
	ctrl := NewNotificationController(stub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", webhookBody(t, authorisationItem()))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "retry_later", resp.Code)
}

func TestHandleFatalFailureStillAcknowledges(t *testing.T) {
	stub := &processorStub{err: domainErrors.Fatal("parse currency", domainErrors.ErrUnknownCurrency)}
	ctrl := NewNotificationController(stub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", webhookBody(t, authorisationItem()))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp NotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "[accepted]", resp.NotificationResponse)
}

func TestHandleProcessesItemsInOrder(t *testing.T) {
	stub := &processorStub{}
	ctrl := NewNotificationController(stub, zerolog.Nop())

	first := authorisationItem()
	second := authorisationItem()
	second["eventCode"] = "CAPTURE"
	second["pspReference"] = "psp-2"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", webhookBody(t, first, second))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stub.events, 2)
	assert.Equal(t, "AUTHORISATION", stub.events[0].EventCode)
	assert.Equal(t, "CAPTURE", stub.events[1].EventCode)
}

func TestHandleRejectsInvalidBody(t *testing.T) {
	ctrl := NewNotificationController(&processorStub{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRejectsEmptyEnvelope(t *testing.T) {
	ctrl := NewNotificationController(&processorStub{}, zerolog.Nop())

	body, err := json.Marshal(map[string]any{"live": "true", "notificationItems": []any{}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewBuffer(body))
	rec := httptest.NewRecorder()

	ctrl.Handle(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
