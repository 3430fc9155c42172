package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/NotJalaAl00/Flint/internal/payments"
	"github.com/NotJalaAl00/Flint/pkg/ctxmanage"
	"github.com/NotJalaAl00/Flint/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// webhookBodyLimit caps the raw webhook payload; gateway events are small.
const webhookBodyLimit = 5 * 1024

// RazorpayWebhook receives asynchronous payment events from the gateway.
// The raw body is HMAC-verified before anything is parsed; unknown event
// types are acknowledged untouched so the gateway stops retrying them.
func (h *Handler) RazorpayWebhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, webhookBodyLimit)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	signature := c.GetHeader("x-razorpay-signature")
	if signature == "" || !h.reconciler.VerifySignature(body, signature) {
		slog.Error("webhook signature verification failed", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Bad Request"})
		return
	}

	entity := event.Payload.Payment.Entity
	slog.Info("webhook event received",
		slog.String(logkey.TraceID, traceId),
		slog.String(logkey.EventType, event.Event),
		slog.String(logkey.GatewayOrderID, entity.OrderID),
		slog.String(logkey.GatewayPaymentID, entity.ID))

	switch event.Event {
	case payments.EventPaymentCaptured:
		err = h.reconciler.HandleCaptured(c.Request.Context(), entity)
	case payments.EventPaymentFailed:
		err = h.reconciler.HandleFailed(c.Request.Context(), entity)
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, payments.ErrAlreadyReconciled):
		// duplicate delivery of an already applied event
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, payments.ErrNotReconcilable):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No pending payment for order"})
	default:
		slog.Error("webhook reconciliation failed",
			slog.String(logkey.TraceID, traceId),
			slog.String(logkey.GatewayOrderID, entity.OrderID),
			slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
