package email

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
)

func completedOrder() *order.Order {
	return &order.Order{
		ID:       7,
		Email:    "buyer@example.com",
		Status:   order.StatusCompleted,
		Currency: "USD",
		Items: []order.Item{
			{
				ID:             1,
				ProductName:    "Steam",
				Value:          decimal.NewFromInt(50),
				RecipientEmail: "friend@example.com",
				RecipientName:  "Alex",
				GiftMessage:    "Happy birthday",
				Codes:          []order.RevealedCode{{Code: "STEAM-1111"}},
			},
			{
				ID:          2,
				ProductName: "Xbox",
				Value:       decimal.NewFromInt(10),
				Codes:       []order.RevealedCode{{Code: "XBOX-2222"}},
			},
		},
	}
}

func TestOrderCompletedSendsOneEmailPerRecipient(t *testing.T) {
	var (
		mu       sync.Mutex
		requests []ResendEmailRequest
		auth     string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ResendEmailRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		requests = append(requests, req)
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer server.Close()

	cfg := &config.Config{
		Email:   config.EmailConfig{Provider: "resend", APIKey: "re_test", APIURL: server.URL, FromEmail: "gifts@example.com", FromName: "Gifts"},
		Company: config.CompanyConfig{Name: "GiftBox", Email: "help@example.com"},
	}
	svc := NewEmailService(cfg, logger.Discard())

	require.NoError(t, svc.OrderCompleted(context.Background(), completedOrder()))

	require.Len(t, requests, 1)
	assert.Equal(t, "Bearer re_test", auth)
	assert.Equal(t, []string{"friend@example.com"}, requests[0].To)
	assert.Equal(t, "Gifts <gifts@example.com>", requests[0].From)
	assert.Contains(t, requests[0].HTML, "STEAM-1111")
	assert.Contains(t, requests[0].HTML, "Happy birthday")
	assert.NotContains(t, requests[0].HTML, "XBOX-2222")
}

func TestOrderCompletedReportsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	cfg := &config.Config{Email: config.EmailConfig{Provider: "resend", APIKey: "re_test", APIURL: server.URL}}
	svc := NewEmailService(cfg, logger.Discard())

	err := svc.OrderCompleted(context.Background(), completedOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestSendEmailProviders(t *testing.T) {
	ctx := context.Background()
	msg := &Email{To: []string{"a@example.com"}, Subject: "hi"}

	disabled := NewEmailService(&config.Config{Email: config.EmailConfig{Provider: "none"}}, logger.Discard())
	assert.NoError(t, disabled.SendEmail(ctx, msg))

	unknown := NewEmailService(&config.Config{Email: config.EmailConfig{Provider: "pigeon"}}, logger.Discard())
	assert.Error(t, unknown.SendEmail(ctx, msg))

	noKey := NewEmailService(&config.Config{Email: config.EmailConfig{Provider: "resend"}}, logger.Discard())
	assert.Error(t, noKey.SendEmail(ctx, msg))

	noHost := NewEmailService(&config.Config{Email: config.EmailConfig{Provider: "smtp"}}, logger.Discard())
	assert.Error(t, noHost.SendEmail(ctx, msg))
}

func TestBuildMessageHeaders(t *testing.T) {
	msg := string(buildMessage("Gifts <g@example.com>", "help@example.com", &Email{
		To:          []string{"a@example.com", "b@example.com"},
		Subject:     "Your gift",
		HTMLContent: "<p>hi</p>",
	}))
	assert.Contains(t, msg, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, msg, "Reply-To: help@example.com\r\n")
	assert.Contains(t, msg, "\r\n\r\n<p>hi</p>")
}
