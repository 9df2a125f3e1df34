// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// Service handles catalog business logic
type Service struct {
	repo            Repository
	defaultCurrency string
	logger          logrus.FieldLogger
}

// NewService creates a new catalog service
func NewService(repo Repository, defaultCurrency string, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:            repo,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// ProductRequest represents product create/update data
type ProductRequest struct {
	Name        string `json:"name" binding:"required,max=255"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url" binding:"omitempty,max=500"`
	Brand       string `json:"brand" binding:"max=255"`
	IsActive    *bool  `json:"is_active"`
}

// VariantRequest represents variant create/update data
type VariantRequest struct {
	Value    decimal.Decimal `json:"value"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	IsActive *bool           `json:"is_active"`
}

// GetVariant returns the variant with its product loaded
func (s *Service) GetVariant(ctx context.Context, id uint) (*Variant, error) {
	return s.repo.GetVariant(ctx, id)
}

// GetLiveVariant returns the variant only if it can currently be sold
func (s *Service) GetLiveVariant(ctx context.Context, id uint) (*Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.IsLive() {
		return nil, apperror.NotFound("catalog.GetLiveVariant", "variant %d is not available", id)
	}
	return v, nil
}

// GetProduct returns a product with its variants
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// ListProducts lists products; the storefront only sees active ones
func (s *Service) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.ListProducts(ctx, activeOnly)
}

// CreateProduct creates a new product
func (s *Service) CreateProduct(ctx context.Context, req *ProductRequest) (*Product, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("catalog.CreateProduct", "product name is required")
	}

	p := &Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Brand:       strings.TrimSpace(req.Brand),
		IsActive:    req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}

	s.logger.WithField("product_id", p.ID).Info("product created")
	return p, nil
}

// UpdateProduct updates product details
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductRequest) (*Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("catalog.UpdateProduct", "product name is required")
	}

	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.ImageURL = req.ImageURL
	p.Brand = strings.TrimSpace(req.Brand)
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

// DeleteProduct removes a product that has no variants left
func (s *Service) DeleteProduct(ctx context.Context, id uint) error {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if len(p.Variants) > 0 {
		return apperror.Validation("catalog.DeleteProduct", "product %d still has %d variants", id, len(p.Variants))
	}
	return s.repo.DeleteProduct(ctx, id)
}

// CreateVariant adds a denomination to a product
func (s *Service) CreateVariant(ctx context.Context, productID uint, req *VariantRequest) (*Variant, error) {
	if _, err := s.repo.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	currency, err := s.validateVariant("catalog.CreateVariant", req)
	if err != nil {
		return nil, err
	}

	v := &Variant{
		ProductID: productID,
		Value:     req.Value,
		Price:     req.Price,
		Currency:  currency,
		IsActive:  req.IsActive == nil || *req.IsActive,
	}
	if err := s.repo.CreateVariant(ctx, v); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"variant_id": v.ID,
		"price":      v.Price.String(),
	}).Info("variant created")
	return s.repo.GetVariant(ctx, v.ID)
}

// UpdateVariant changes price, value or currency. Existing order lines keep their snapshot.
func (s *Service) UpdateVariant(ctx context.Context, id uint, req *VariantRequest) (*Variant, error) {
	v, err := s.repo.GetVariant(ctx, id)
	if err != nil {
		return nil, err
	}
	currency, err := s.validateVariant("catalog.UpdateVariant", req)
	if err != nil {
		return nil, err
	}

	v.Value = req.Value
	v.Price = req.Price
	v.Currency = currency
	if req.IsActive != nil {
		v.IsActive = *req.IsActive
	}
	if err := s.repo.UpdateVariant(ctx, v); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": id,
		"price":      v.Price.String(),
		"value":      v.Value.String(),
	}).Info("variant updated")
	return s.repo.GetVariant(ctx, id)
}

// DeleteVariant removes a variant. Callers must make sure no codes are bound to it.
func (s *Service) DeleteVariant(ctx context.Context, id uint) error {
	return s.repo.DeleteVariant(ctx, id)
}

func (s *Service) validateVariant(op string, req *VariantRequest) (string, error) {
	if !req.Value.IsPositive() {
		return "", apperror.Validation(op, "value must be positive")
	}
	if !req.Price.IsPositive() {
		return "", apperror.Validation(op, "price must be positive")
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if len(currency) != 3 {
		return "", apperror.Validation(op, "currency must be a 3-letter code")
	}
	return currency, nil
}
