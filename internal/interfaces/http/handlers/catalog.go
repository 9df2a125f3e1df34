// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// CatalogHandler serves products and variants
type CatalogHandler struct {
	catalog *catalog.Service
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogSvc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{catalog: catalogSvc}
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), true)
	if err != nil {
		respondError(c, err, false)
		return
	}
	for i := range products {
		products[i].Variants = liveVariants(products[i].Variants)
	}
	respond(c, http.StatusOK, "Products retrieved successfully", products)
}

// GetProduct handles GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err == nil && !p.IsActive {
		err = apperror.NotFound("handlers.GetProduct", "product %d not found", id)
	}
	if err != nil {
		respondError(c, err, false)
		return
	}
	p.Variants = liveVariants(p.Variants)
	respond(c, http.StatusOK, "Product retrieved successfully", p)
}

// GetVariant handles GET /variants/:id
func (h *CatalogHandler) GetVariant(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	v, err := h.catalog.GetLiveVariant(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, false)
		return
	}
	respond(c, http.StatusOK, "Variant retrieved successfully", v)
}

func liveVariants(variants []catalog.Variant) []catalog.Variant {
	live := make([]catalog.Variant, 0, len(variants))
	for _, v := range variants {
		if v.IsActive {
			live = append(live, v)
		}
	}
	return live
}

// AdminListProducts handles GET /admin/products
func (h *CatalogHandler) AdminListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), false)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", products)
}

// AdminGetProduct handles GET /admin/products/:id
func (h *CatalogHandler) AdminGetProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Product retrieved successfully", p)
}

// AdminCreateProduct handles POST /admin/products
func (h *CatalogHandler) AdminCreateProduct(c *gin.Context) {
	var req catalog.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	p, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", p)
}

// AdminUpdateProduct handles PUT /admin/products/:id
func (h *CatalogHandler) AdminUpdateProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	p, err := h.catalog.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", p)
}

// AdminDeleteProduct handles DELETE /admin/products/:id
func (h *CatalogHandler) AdminDeleteProduct(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.catalog.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

// AdminCreateVariant handles POST /admin/products/:id/variants
func (h *CatalogHandler) AdminCreateVariant(c *gin.Context) {
	productID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	v, err := h.catalog.CreateVariant(c.Request.Context(), productID, &req)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusCreated, "Variant created successfully", v)
}

// AdminUpdateVariant handles PUT /admin/variants/:id
func (h *CatalogHandler) AdminUpdateVariant(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req catalog.VariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	v, err := h.catalog.UpdateVariant(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, true)
		return
	}
	respond(c, http.StatusOK, "Variant updated successfully", v)
}
