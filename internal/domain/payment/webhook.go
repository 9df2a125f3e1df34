// internal/domain/payment/webhook.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// Razorpay webhook events the store reacts to
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

// ResultHandler receives verified payment outcomes
type ResultHandler interface {
	HandlePaymentResult(ctx context.Context, res order.PaymentResult) (*order.Order, error)
}

// WebhookProcessor verifies and dispatches Razorpay webhooks
type WebhookProcessor struct {
	secret  string
	results ResultHandler
	logger  logrus.FieldLogger
}

// NewWebhookProcessor creates a webhook processor signing with secret
func NewWebhookProcessor(secret string, results ResultHandler, logger logrus.FieldLogger) *WebhookProcessor {
	return &WebhookProcessor{secret: secret, results: results, logger: logger}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity paymentEntity `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID    string          `json:"id"`
				Notes json.RawMessage `json:"notes"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

type paymentEntity struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	Status           string          `json:"status"`
	Notes            json.RawMessage `json:"notes"`
	ErrorCode        string          `json:"error_code"`
	ErrorDescription string          `json:"error_description"`
}

// VerifySignature checks the X-Razorpay-Signature header against the raw body
func (p *WebhookProcessor) VerifySignature(body []byte, signature string) bool {
	if p.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(p.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}

// Process verifies a webhook delivery and applies it to the matching order.
// Unknown events are acknowledged and ignored.
func (p *WebhookProcessor) Process(ctx context.Context, body []byte, signature string) error {
	const op = "payment.Webhook"

	if !p.VerifySignature(body, signature) {
		return apperror.Validation(op, "invalid webhook signature")
	}

	var evt webhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return apperror.Validation(op, "invalid webhook payload")
	}

	log := p.logger.WithField("event", evt.Event)

	var res order.PaymentResult
	switch evt.Event {
	case EventPaymentCaptured, EventOrderPaid:
		res.Success = true
	case EventPaymentFailed:
		// Razorpay lets the buyer retry on the same order after a failed attempt.
		res.Attempt = true
		res.Reason = evt.Payload.Payment.Entity.ErrorDescription
		if res.Reason == "" {
			res.Reason = "Payment failed"
		}
	default:
		log.Debug("ignoring webhook event")
		return nil
	}

	payment := evt.Payload.Payment.Entity
	res.Reference = payment.OrderID
	if res.Reference == "" {
		res.Reference = evt.Payload.Order.Entity.ID
	}
	res.OrderID = orderIDFromNotes(payment.Notes)
	if res.OrderID == 0 {
		res.OrderID = orderIDFromNotes(evt.Payload.Order.Entity.Notes)
	}
	if res.OrderID == 0 && res.Reference == "" {
		return apperror.Validation(op, "webhook does not reference an order")
	}

	o, err := p.results.HandlePaymentResult(ctx, res)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"order_id":   o.ID,
		"payment_id": payment.ID,
		"status":     o.Status,
	}).Info("payment webhook applied")
	return nil
}

// Razorpay sends notes as an object, or as an empty array when unset.
func orderIDFromNotes(raw json.RawMessage) uint {
	if len(raw) == 0 {
		return 0
	}
	var notes map[string]interface{}
	if err := json.Unmarshal(raw, &notes); err != nil {
		return 0
	}
	switch v := notes["order_id"].(type) {
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0
		}
		return uint(id)
	case float64:
		return uint(v)
	}
	return 0
}
