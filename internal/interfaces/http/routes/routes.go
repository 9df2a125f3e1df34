// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/handlers"
	"github.com/your-org/giftcard-backend/internal/interfaces/http/middleware"
	"github.com/your-org/giftcard-backend/internal/pkg/auth"
)

// Handlers groups every handler mounted under /api/v1
type Handlers struct {
	Auth    *handlers.AuthHandler
	Catalog *handlers.CatalogHandler
	Cart    *handlers.CartHandler
	Order   *handlers.OrderHandler
	Webhook *handlers.WebhookHandler
	Admin   *handlers.AdminHandler
}

// SetupRoutes mounts every route group
func SetupRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	SetupAuthRoutes(rg, h, jwtManager)
	SetupCatalogRoutes(rg, h)
	SetupCartRoutes(rg, h, jwtManager)
	SetupOrderRoutes(rg, h, jwtManager)
	SetupWebhookRoutes(rg, h)
	SetupAdminRoutes(rg, h, jwtManager)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	authGroup := rg.Group("/auth")
	{
		authGroup.POST("/register", h.Auth.Register)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/admin/token", h.Auth.IssueAdminToken)
	}

	protected := authGroup.Group("")
	protected.Use(middleware.AuthMiddleware(jwtManager))
	{
		protected.POST("/logout", h.Auth.Logout)
		protected.GET("/me", h.Auth.Me)
	}
}

// SetupCatalogRoutes sets up storefront catalog routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Catalog.ListProducts)
		products.GET("/:id", h.Catalog.GetProduct)
	}
	rg.GET("/variants/:id", h.Catalog.GetVariant)
}

// SetupCartRoutes sets up cart routes. Guests are identified by session cookie.
func SetupCartRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	cartGroup := rg.Group("/cart")
	cartGroup.Use(middleware.OptionalAuthMiddleware(jwtManager))
	{
		cartGroup.GET("", h.Cart.GetCart)
		cartGroup.DELETE("", h.Cart.ClearCart)
		cartGroup.POST("/items", h.Cart.AddItem)
		cartGroup.PUT("/items/:itemId", h.Cart.UpdateQuantity)
		cartGroup.DELETE("/items/:itemId", h.Cart.RemoveItem)
		cartGroup.PUT("/items/:itemId/recipient", h.Cart.UpdateRecipient)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	orders := rg.Group("/orders")
	orders.Use(middleware.AuthMiddleware(jwtManager))
	{
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
		orders.GET("/:id/voucher", h.Order.DownloadVoucher)
	}
}

// SetupWebhookRoutes sets up payment gateway callbacks
func SetupWebhookRoutes(rg *gin.RouterGroup, h Handlers) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/razorpay", h.Webhook.Razorpay)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h Handlers, jwtManager *auth.JWTManager) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager))
	admin.Use(middleware.AdminMiddleware())
	{
		products := admin.Group("/products")
		{
			products.GET("", h.Catalog.AdminListProducts)
			products.GET("/:id", h.Catalog.AdminGetProduct)
			products.POST("", h.Catalog.AdminCreateProduct)
			products.PUT("/:id", h.Catalog.AdminUpdateProduct)
			products.DELETE("/:id", h.Catalog.AdminDeleteProduct)
			products.POST("/:id/variants", h.Catalog.AdminCreateVariant)
		}

		variants := admin.Group("/variants")
		{
			variants.PUT("/:id", h.Catalog.AdminUpdateVariant)
			variants.DELETE("/:id", h.Admin.DeleteVariant)
			variants.POST("/:id/stock", h.Admin.ImportStock)
			variants.GET("/:id/codes", h.Admin.ListCodes)
		}

		codes := admin.Group("/codes")
		{
			codes.DELETE("/:id", h.Admin.DeleteCode)
			codes.POST("/:id/error", h.Admin.MarkCodeError)
		}

		inventory := admin.Group("/inventory")
		{
			inventory.GET("/summary", h.Admin.InventorySummary)
			inventory.GET("/variants/:id", h.Admin.VariantStock)
		}

		orders := admin.Group("/orders")
		{
			orders.GET("", h.Admin.ListOrders)
			orders.GET("/:id", h.Admin.GetOrder)
			orders.PUT("/:id/status", h.Admin.ChangeOrderStatus)
			orders.POST("/:id/refund", h.Admin.RefundOrder)
		}
	}
}
