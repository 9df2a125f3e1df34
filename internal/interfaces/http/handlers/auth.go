// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/domain/user"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/middleware"
	"github.com/your-org/giftcard-backend/internal/pkg/auth"
)

// AuthHandler handles customer accounts and operator tokens
type AuthHandler struct {
	users     *user.Service
	carts     *cart.Service
	jwt       *auth.JWTManager
	passwords *auth.PasswordManager
	config    *config.Config
	logger    logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *user.Service, carts *cart.Service, jwt *auth.JWTManager, passwords *auth.PasswordManager, cfg *config.Config, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		carts:     carts,
		jwt:       jwt,
		passwords: passwords,
		config:    cfg,
		logger:    logger,
	}
}

// AdminTokenRequest represents operator login data
type AdminTokenRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an access token
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthResponse represents a customer authentication response
type AuthResponse struct {
	User  *user.User    `json:"user"`
	Token TokenResponse `json:"token"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, false)
		return
	}

	token, ok := h.customerToken(c, u)
	if !ok {
		return
	}
	respond(c, http.StatusCreated, "User registered successfully", AuthResponse{User: u, Token: token})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u, err := h.users.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.logger.WithField("client_ip", c.ClientIP()).Warn("Rejected customer login")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid email or password",
				"code":  "unauthorized",
			})
			return
		}
		respondError(c, err, false)
		return
	}

	token, ok := h.customerToken(c, u)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "Login successful", AuthResponse{User: u, Token: token})
}

// Logout handles POST /auth/logout. Tokens are stateless, so logging out
// empties the user's cart and drops any guest session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
			"code":  "unauthorized",
		})
		return
	}

	if err := h.carts.Clear(c.Request.Context(), cart.UserKey(userID)); err != nil {
		respondError(c, err, false)
		return
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", h.config.IsProduction(), true)

	h.logger.WithField("user_id", userID).Info("User logged out")
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok || userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
			"code":  "unauthorized",
		})
		return
	}

	u, err := h.users.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully", u)
}

func (h *AuthHandler) customerToken(c *gin.Context, u *user.User) (TokenResponse, bool) {
	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, false)
	if err != nil {
		respondError(c, err, false)
		return TokenResponse{}, false
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().UTC().Add(h.config.JWT.AccessTokenExpiry),
	}, true
}

// IssueAdminToken handles POST /auth/admin/token
func (h *AuthHandler) IssueAdminToken(c *gin.Context) {
	var req AdminTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.passwords.VerifyOperator(req.Email, req.Password); err != nil {
		h.logger.WithField("client_ip", c.ClientIP()).Warn("Rejected operator login")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid credentials",
			"code":  "unauthorized",
		})
		return
	}

	token, err := h.jwt.GenerateAccessToken(0, h.config.Admin.Email, true)
	if err != nil {
		respondError(c, err, false)
		return
	}

	respond(c, http.StatusOK, "Token issued", TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().UTC().Add(h.config.JWT.AccessTokenExpiry),
	})
}
