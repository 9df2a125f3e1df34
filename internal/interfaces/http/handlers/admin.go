// internal/interfaces/http/handlers/admin.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/domain/admin"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/middleware"
)

// AdminHandler handles inventory and order administration
type AdminHandler struct {
	admin *admin.Service
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminSvc *admin.Service) *AdminHandler {
	return &AdminHandler{admin: adminSvc}
}

func operator(c *gin.Context) string {
	email, _ := middleware.GetUserEmailFromContext(c)
	return email
}

// DeleteVariant handles DELETE /admin/variants/:id
func (h *AdminHandler) DeleteVariant(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteVariant(c.Request.Context(), id); err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Variant deleted successfully", nil)
}

// ImportStock handles POST /admin/variants/:id/stock
func (h *AdminHandler) ImportStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req admin.ImportStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := h.admin.ImportStock(c.Request.Context(), id, &req, operator(c))
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusCreated, "Stock imported successfully", res)
}

// ListCodes handles GET /admin/variants/:id/codes?status=
func (h *AdminHandler) ListCodes(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	codes, err := h.admin.ListCodes(c.Request.Context(), id, c.Query("status"))
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Codes retrieved successfully", codes)
}

// DeleteCode handles DELETE /admin/codes/:id
func (h *AdminHandler) DeleteCode(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.DeleteCode(c.Request.Context(), id, operator(c)); err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Code deleted successfully", nil)
}

// MarkCodeError handles POST /admin/codes/:id/error
func (h *AdminHandler) MarkCodeError(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.admin.MarkCodeError(c.Request.Context(), id, operator(c)); err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Code marked as error", nil)
}

// InventorySummary handles GET /admin/inventory/summary
func (h *AdminHandler) InventorySummary(c *gin.Context) {
	summary, err := h.admin.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Inventory summary retrieved successfully", summary)
}

// VariantStock handles GET /admin/inventory/variants/:id
func (h *AdminHandler) VariantStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	stock, err := h.admin.VariantStock(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Variant stock retrieved successfully", stock)
}

// ListOrders handles GET /admin/orders
func (h *AdminHandler) ListOrders(c *gin.Context) {
	res, err := h.admin.ListOrders(c.Request.Context(), listFilterFromQuery(c))
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Orders retrieved successfully", res)
}

// GetOrder handles GET /admin/orders/:id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	o, err := h.admin.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Order retrieved successfully", o)
}

// ChangeOrderStatus handles PUT /admin/orders/:id/status
func (h *AdminHandler) ChangeOrderStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req order.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	o, err := h.admin.ChangeOrderStatus(c.Request.Context(), id, &req, operator(c))
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Order status updated successfully", o)
}

// RefundOrder handles POST /admin/orders/:id/refund
func (h *AdminHandler) RefundOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req admin.RefundRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	o, err := h.admin.RefundOrder(c.Request.Context(), id, &req, operator(c))
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Order refunded successfully", o)
}
