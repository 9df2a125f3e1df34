// internal/domain/admin/service.go
package admin

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/domain/order"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// Service is the operator facade over catalog, inventory and orders. It adds
// no rules of its own beyond guarding variant deletion.
type Service struct {
	catalog   *catalog.Service
	inventory *inventory.Service
	orders    *order.Service
	logger    logrus.FieldLogger
}

// NewService creates a new admin service
func NewService(catalogSvc *catalog.Service, inventorySvc *inventory.Service, orderSvc *order.Service, logger logrus.FieldLogger) *Service {
	return &Service{
		catalog:   catalogSvc,
		inventory: inventorySvc,
		orders:    orderSvc,
		logger:    logger,
	}
}

// ImportResult is returned by ImportStock
type ImportResult struct {
	VariantID uint                       `json:"variant_id"`
	Imported  int                        `json:"imported"`
	Stock     *inventory.VariantStock    `json:"stock"`
	Codes     []inventory.ActivationCode `json:"codes"`
}

// ImportStock adds a pasted block of codes to a variant
func (s *Service) ImportStock(ctx context.Context, variantID uint, req *ImportStockRequest, actor string) (*ImportResult, error) {
	if _, err := s.catalog.GetVariant(ctx, variantID); err != nil {
		return nil, err
	}

	stockReq, err := buildStockRequest(variantID, req)
	if err != nil {
		return nil, err
	}
	codes, err := s.inventory.AddStock(ctx, stockReq)
	if err != nil {
		return nil, err
	}
	stock, err := s.inventory.Status(ctx, variantID)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": variantID,
		"count":      len(codes),
		"actor":      actor,
	}).Info("stock imported")

	return &ImportResult{VariantID: variantID, Imported: len(codes), Stock: stock, Codes: codes}, nil
}

// DeleteVariant removes a variant that has no codes bound to it
func (s *Service) DeleteVariant(ctx context.Context, id uint) error {
	if _, err := s.catalog.GetVariant(ctx, id); err != nil {
		return err
	}
	stock, err := s.inventory.Status(ctx, id)
	if err != nil {
		return err
	}
	if bound := stock.Total + stock.Counts.Error; bound > 0 {
		return apperror.CodeInUse("admin.DeleteVariant", "variant %d still has %d activation codes", id, bound)
	}
	return s.catalog.DeleteVariant(ctx, id)
}

// VariantStock returns the stock view of one variant
func (s *Service) VariantStock(ctx context.Context, id uint) (*inventory.VariantStock, error) {
	if _, err := s.catalog.GetVariant(ctx, id); err != nil {
		return nil, err
	}
	return s.inventory.Status(ctx, id)
}

// Dashboard aggregates stock over every catalog variant
func (s *Service) Dashboard(ctx context.Context) (*inventory.Summary, error) {
	products, err := s.catalog.ListProducts(ctx, false)
	if err != nil {
		return nil, err
	}
	var ids []uint
	for _, p := range products {
		for _, v := range p.Variants {
			ids = append(ids, v.ID)
		}
	}
	return s.inventory.Summary(ctx, ids)
}

// ListCodes lists the codes of a variant, optionally filtered by status
func (s *Service) ListCodes(ctx context.Context, variantID uint, status string) ([]inventory.ActivationCode, error) {
	if _, err := s.catalog.GetVariant(ctx, variantID); err != nil {
		return nil, err
	}
	return s.inventory.ListCodes(ctx, variantID, inventory.CodeStatus(strings.ToUpper(strings.TrimSpace(status))))
}

// DeleteCode hard-deletes a free code
func (s *Service) DeleteCode(ctx context.Context, id uint, actor string) error {
	if err := s.inventory.DeleteCode(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"code_id": id, "actor": actor}).Info("code deleted by operator")
	return nil
}

// MarkCodeError takes a faulty code out of circulation
func (s *Service) MarkCodeError(ctx context.Context, id uint, actor string) error {
	if err := s.inventory.MarkError(ctx, []uint{id}); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"code_id": id, "actor": actor}).Warn("code flagged by operator")
	return nil
}

// ListOrders lists every order
func (s *Service) ListOrders(ctx context.Context, filter order.ListFilter) (*order.ListResponse, error) {
	return s.orders.List(ctx, filter)
}

// GetOrder returns any order
func (s *Service) GetOrder(ctx context.Context, id uint) (*order.Order, error) {
	return s.orders.Get(ctx, id)
}

// ChangeOrderStatus forces an order transition through the shared table
func (s *Service) ChangeOrderStatus(ctx context.Context, id uint, req *order.ChangeStatusRequest, operator string) (*order.Order, error) {
	return s.orders.ChangeStatus(ctx, id, req, order.AdminActor(operator))
}

// RefundRequest carries the operator's reason
type RefundRequest struct {
	Reason string `json:"reason"`
}

// RefundOrder refunds a COMPLETED order
func (s *Service) RefundOrder(ctx context.Context, id uint, req *RefundRequest, operator string) (*order.Order, error) {
	return s.orders.Refund(ctx, id, order.AdminActor(operator), req.Reason)
}
