// internal/interfaces/http/handlers/cart.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/middleware"
)

const sessionCookie = "session_id"

// CartHandler handles cart endpoints
type CartHandler struct {
	carts  *cart.Service
	config *config.Config
	logger logrus.FieldLogger
}

// NewCartHandler creates a new cart handler
func NewCartHandler(carts *cart.Service, cfg *config.Config, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		config: cfg,
		logger: logger,
	}
}

// GetCart handles GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	key, ok := h.cartKey(c)
	if !ok {
		return
	}
	current, err := h.carts.GetCart(c.Request.Context(), key)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Cart retrieved successfully", current)
}

// AddItem handles POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cart.AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	key, ok := h.cartKey(c)
	if !ok {
		return
	}

	updated, err := h.carts.AddItem(c.Request.Context(), key, &req)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Item added to cart successfully", updated)
}

// UpdateQuantity handles PUT /cart/items/:itemId
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	var req cart.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	key, ok := h.cartKey(c)
	if !ok {
		return
	}

	updated, err := h.carts.UpdateQuantity(c.Request.Context(), key, c.Param("itemId"), req.Quantity)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Cart item updated successfully", updated)
}

// UpdateRecipient handles PUT /cart/items/:itemId/recipient
func (h *CartHandler) UpdateRecipient(c *gin.Context) {
	var req cart.Recipient
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	key, ok := h.cartKey(c)
	if !ok {
		return
	}

	updated, err := h.carts.UpdateRecipient(c.Request.Context(), key, c.Param("itemId"), req)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Recipient updated successfully", updated)
}

// RemoveItem handles DELETE /cart/items/:itemId
func (h *CartHandler) RemoveItem(c *gin.Context) {
	key, ok := h.cartKey(c)
	if !ok {
		return
	}
	updated, err := h.carts.RemoveItem(c.Request.Context(), key, c.Param("itemId"))
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Item removed from cart successfully", updated)
}

// ClearCart handles DELETE /cart
func (h *CartHandler) ClearCart(c *gin.Context) {
	key, ok := h.cartKey(c)
	if !ok {
		return
	}
	if err := h.carts.Clear(c.Request.Context(), key); err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Cart cleared successfully", nil)
}

// cartKey resolves the cart of the caller. An authenticated caller owns the
// user cart; a guest session cart it still carries is merged into it once.
func (h *CartHandler) cartKey(c *gin.Context) (string, bool) {
	sessionID, _ := c.Cookie(sessionCookie)

	if userID, ok := middleware.GetUserIDFromContext(c); ok && userID != 0 {
		key := cart.UserKey(userID)
		if sessionID != "" {
			if _, err := h.carts.Merge(c.Request.Context(), cart.SessionKey(sessionID), key); err != nil {
				respondError(c, err, false)
				return "", false
			}
			c.SetCookie(sessionCookie, "", -1, "/", "", h.config.IsProduction(), true)
			h.logger.WithField("user_id", userID).Debug("Merged guest cart into user cart")
		}
		return key, true
	}

	if _, err := uuid.Parse(sessionID); err != nil {
		sessionID = uuid.NewString()
		c.SetCookie(sessionCookie, sessionID, int(h.config.Store.CartTTL.Seconds()), "/", "", h.config.IsProduction(), true)
	}
	return cart.SessionKey(sessionID), true
}
