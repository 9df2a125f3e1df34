// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/order"
)

// RazorpayGateway starts payments through the Razorpay orders API
type RazorpayGateway struct {
	keyID       string
	keySecret   string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      logrus.FieldLogger
}

// NewRazorpayGateway creates a new Razorpay gateway
func NewRazorpayGateway(cfg *config.Config, logger logrus.FieldLogger) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:       cfg.Payment.RazorpayKeyID,
		keySecret:   cfg.Payment.RazorpayKeySecret,
		baseURL:     cfg.Payment.RazorpayBaseURL,
		callbackURL: cfg.Payment.CallbackURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// RazorpayOrder is the order object returned by the API
type RazorpayOrder struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

// CreateOrderRequest is the body of POST /orders. Amount is in minor units.
type CreateOrderRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// InitiatePayment creates a Razorpay order for o and returns where to send the buyer
func (g *RazorpayGateway) InitiatePayment(ctx context.Context, o *order.Order) (*order.PaymentSession, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, fmt.Errorf("razorpay API credentials not configured")
	}

	createReq := CreateOrderRequest{
		Amount:   o.TotalAmount.Shift(2).Round(0).IntPart(),
		Currency: o.Currency,
		Receipt:  o.OrderNumber,
		Notes: map[string]string{
			"order_id": strconv.FormatUint(uint64(o.ID), 10),
		},
	}

	var rzpOrder RazorpayOrder
	if err := g.makeAPICall(ctx, http.MethodPost, "/orders", createReq, &rzpOrder); err != nil {
		return nil, fmt.Errorf("failed to create Razorpay order: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"order_id":          o.ID,
		"razorpay_order_id": rzpOrder.ID,
		"amount":            createReq.Amount,
	}).Info("razorpay order created")

	return &order.PaymentSession{
		Reference:   rzpOrder.ID,
		RedirectURL: g.redirectURL(o, rzpOrder.ID),
	}, nil
}

func (g *RazorpayGateway) redirectURL(o *order.Order, razorpayOrderID string) string {
	q := url.Values{}
	q.Set("order_id", strconv.FormatUint(uint64(o.ID), 10))
	q.Set("order_number", o.OrderNumber)
	q.Set("razorpay_order_id", razorpayOrderID)
	q.Set("key_id", g.keyID)
	return g.callbackURL + "?" + q.Encode()
}

// makeAPICall makes HTTP calls to Razorpay API
func (g *RazorpayGateway) makeAPICall(ctx context.Context, method, endpoint string, data, out interface{}) error {
	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make API call: %w", err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("API call failed with status %d: %s", resp.StatusCode, respBody.String())
	}

	if out != nil {
		if err := json.Unmarshal(respBody.Bytes(), out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
