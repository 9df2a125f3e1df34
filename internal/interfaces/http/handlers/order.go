// internal/interfaces/http/handlers/order.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/middleware"
	"github.com/your-org/giftcard-backend/internal/pkg/pdf"
)

// OrderHandler handles customer order endpoints
type OrderHandler struct {
	orders *order.Service
	pdf    *pdf.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *order.Service, pdfSvc *pdf.Service) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		pdf:    pdfSvc,
	}
}

// CreateOrder handles POST /orders. The user's cart is turned into an order.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req order.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	email, _ := middleware.GetUserEmailFromContext(c)

	result, err := h.orders.Create(c.Request.Context(), userID, email, cart.UserKey(userID), &req)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusCreated, "Order placed successfully", result)
}

// ListOrders handles GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	filter := listFilterFromQuery(c)
	filter.UserID = userID

	res, err := h.orders.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", res)
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orders.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// CancelOrder handles POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orders.CancelForUser(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Order cancelled successfully", o)
}

// DownloadVoucher handles GET /orders/:id/voucher
func (h *OrderHandler) DownloadVoucher(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	o, err := h.orders.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, err, false)
		return
	}
	buf, err := h.pdf.GenerateVoucher(o)
	if err != nil {
		respondError(c, err, false)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=voucher-%s.pdf", o.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// requireUser returns the authenticated customer id
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "User authentication required",
			"code":  "unauthorized",
		})
		return 0, false
	}
	return userID, true
}

// listFilterFromQuery reads page, limit and status
func listFilterFromQuery(c *gin.Context) order.ListFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	return order.ListFilter{
		Status: order.Status(c.Query("status")),
		Page:   page,
		Limit:  limit,
	}
}
