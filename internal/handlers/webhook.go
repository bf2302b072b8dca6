package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pablop76/hikashop-fakturownia/internal/events"
	"github.com/pablop76/hikashop-fakturownia/internal/logger"
	"github.com/pablop76/hikashop-fakturownia/internal/processor"
)

// maxBodyBytes caps webhook bodies.
const maxBodyBytes = 1 << 20

// OrderProcessor runs the invoicing pipeline inline.
type OrderProcessor interface {
	Process(ctx context.Context, t processor.Trigger) processor.Outcome
}

// Publisher hands events to a queue for asynchronous processing.
type Publisher interface {
	Publish(ctx context.Context, body []byte, correlationID string) (string, error)
}

// WebhookResponse is the body returned to the shop.
type WebhookResponse struct {
	Status        string `json:"status"`
	OrderID       int64  `json:"order_id,omitempty"`
	InvoiceID     int64  `json:"invoice_id,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// WebhookHandler receives "order updated" notifications from the shop.
type WebhookHandler struct {
	processor OrderProcessor
	publisher Publisher
}

// NewWebhookHandler creates a handler. When publisher is non-nil events are
// queued; otherwise they are processed inline by proc.
func NewWebhookHandler(proc OrderProcessor, publisher Publisher) *WebhookHandler {
	return &WebhookHandler{processor: proc, publisher: publisher}
}

// OrderUpdated handles POST /webhooks/hikashop/order-updated.
func (h *WebhookHandler) OrderUpdated(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		sendError(c, http.StatusBadRequest, "failed to read body", err)
		return
	}

	ev, err := events.DecodeWithCorrelation(body, c.GetString(requestIDKey))
	switch {
	case errors.Is(err, events.ErrMissingOrderID):
		logger.Debug("Order event without order id ignored", zap.String("request_id", c.GetString(requestIDKey)))
		c.JSON(http.StatusAccepted, WebhookResponse{Status: "ignored"})
		return
	case err != nil:
		sendError(c, http.StatusBadRequest, "invalid order event", err)
		return
	}

	if h.publisher != nil {
		h.enqueue(c, ev)
		return
	}

	out := h.processor.Process(c.Request.Context(), ev.Trigger())
	resp := WebhookResponse{
		Status:        string(out.State),
		OrderID:       out.OrderID,
		InvoiceID:     out.InvoiceID,
		CorrelationID: ev.CorrelationID,
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	// Failures were already logged and reported to the administrator; the
	// shop only needs to know the call was received.
	c.JSON(http.StatusOK, resp)
}

func (h *WebhookHandler) enqueue(c *gin.Context, ev events.OrderUpdated) {
	payload, err := ev.Encode()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to encode order event", err)
		return
	}
	msgID, err := h.publisher.Publish(c.Request.Context(), payload, ev.CorrelationID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "failed to queue order event", err)
		return
	}

	logger.Info("Order event queued",
		zap.Int64("order_id", ev.OrderID),
		zap.String("message_id", msgID),
		zap.String("correlation_id", ev.CorrelationID))
	c.JSON(http.StatusAccepted, WebhookResponse{
		Status:        "queued",
		OrderID:       ev.OrderID,
		MessageID:     msgID,
		CorrelationID: ev.CorrelationID,
	})
}
