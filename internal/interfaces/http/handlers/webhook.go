// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/domain/payment"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// WebhookHandler receives payment gateway callbacks
type WebhookHandler struct {
	processor *payment.WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor *payment.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Razorpay handles POST /webhooks/razorpay. The signature covers the raw body.
func (h *WebhookHandler) Razorpay(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperror.Validation("handlers.Razorpay", "failed to read body"), false)
		return
	}

	if err := h.processor.Process(c.Request.Context(), body, c.GetHeader("X-Razorpay-Signature")); err != nil {
		respondError(c, err, false)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
