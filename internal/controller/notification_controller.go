package controller

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/cassiomorais/gateway-reconciler/internal/application/reconcile"
	domainErrors "github.com/cassiomorais/gateway-reconciler/internal/domain/errors"
)

const ackBody = "[accepted]"

// NotificationController receives gateway webhook deliveries and feeds each
// item through the reconciliation pipeline.
type NotificationController struct {
	processor reconcile.Processor
	logger    zerolog.Logger
}

func NewNotificationController(processor reconcile.Processor, logger zerolog.Logger) *NotificationController {
	return &NotificationController{
		processor: processor,
		logger:    logger.With().Str("component", "notification_controller").Logger(),
	}
}

// Handle processes one webhook delivery. Items are processed in order. A
// retryable failure on any item answers 503 so the gateway redelivers the
// whole batch; fatal failures are acknowledged and left to the journal.
func (c *NotificationController) Handle(w http.ResponseWriter, r *http.Request) {
	var req NotificationRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	for _, item := range req.NotificationItems {
		ev := item.NotificationRequestItem.toEvent()

		outcome, err := c.processor.ProcessNotification(r.Context(), ev)
		if err != nil {
			if domainErrors.IsRetryable(err) {
				c.logger.Warn().Err(err).
					Str("event_code", ev.EventCode).
					Str("psp_reference", ev.PSPReference).
					Msg("notification processing failed, requesting redelivery")
				writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
					Error: "notification processing failed, please redeliver",
					Code:  "retry_later",
				})
				return
			}

			c.logger.Error().Err(err).
				Str("event_code", ev.EventCode).
				Str("psp_reference", ev.PSPReference).
				Msg("dropping malformed notification")
			continue
		}

		c.logger.Info().
			Str("event_code", ev.EventCode).
			Str("psp_reference", ev.PSPReference).
			Str("action", string(outcome.Action)).
			Msg("notification reconciled")
	}

	writeJSON(w, http.StatusOK, NotificationResponse{NotificationResponse: ackBody})
}
