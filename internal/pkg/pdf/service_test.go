package pdf

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

func TestVoucherHTML(t *testing.T) {
	svc := NewService(&config.Config{Company: config.CompanyConfig{Name: "GiftBox", Email: "help@giftbox.test"}})
	completed := time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)
	expires := time.Date(2027, time.May, 4, 0, 0, 0, 0, time.UTC)

	o := &order.Order{
		ID:          3,
		OrderNumber: "GC-20260504-000003",
		Status:      order.StatusCompleted,
		Currency:    "USD",
		CompletedAt: &completed,
		Items: []order.Item{{
			ProductName:   "Steam",
			Value:         decimal.NewFromInt(20),
			RecipientName: "Sam",
			GiftMessage:   "<b>enjoy</b>",
			Codes:         []order.RevealedCode{{Code: "AAAA-BBBB", Serial: "S1", ExpiresAt: &expires}},
		}},
	}

	html, err := svc.VoucherHTML(o)
	require.NoError(t, err)
	assert.Contains(t, html, "VCH-GC-20260504-000003")
	assert.Contains(t, html, "May 4, 2026")
	assert.Contains(t, html, "Steam &middot; 20.00 USD")
	assert.Contains(t, html, "AAAA-BBBB")
	assert.Contains(t, html, "May 4, 2027")
	assert.Contains(t, html, "&lt;b&gt;enjoy&lt;/b&gt;")
	assert.NotContains(t, html, "<b>enjoy</b>")
}

func TestVoucherRequiresCompletedOrder(t *testing.T) {
	svc := NewService(&config.Config{})
	for _, status := range []order.Status{order.StatusPending, order.StatusRefunded, order.StatusCancelled} {
		_, err := svc.VoucherHTML(&order.Order{ID: 1, Status: status})
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition, status)
	}
}
