// internal/domain/inventory/service.go
package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
)

// Service exposes allocation primitives and stock reporting over a Store
type Service struct {
	store             Store
	lowStockThreshold int
	logger            logrus.FieldLogger
}

// NewService creates a new inventory service
func NewService(store Store, lowStockThreshold int, logger logrus.FieldLogger) *Service {
	return &Service{
		store:             store,
		lowStockThreshold: lowStockThreshold,
		logger:            logger,
	}
}

// AddStock bulk-inserts UNUSED codes for a variant
func (s *Service) AddStock(ctx context.Context, req AddStockRequest) ([]ActivationCode, error) {
	codes, err := s.store.AddStock(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": req.VariantID,
		"count":      len(codes),
	}).Info("stock added")
	dbtx.AfterCommit(ctx, func(ctx context.Context) { s.checkAndUpdateAlerts(ctx, req.VariantID) })
	return codes, nil
}

// Allocate reserves quantity codes of a variant for an order, all or nothing
func (s *Service) Allocate(ctx context.Context, variantID uint, quantity int) ([]ActivationCode, error) {
	codes, err := s.store.Allocate(ctx, variantID, quantity)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"variant_id": variantID,
		"count":      len(codes),
	}).Debug("codes allocated")
	dbtx.AfterCommit(ctx, func(ctx context.Context) { s.checkAndUpdateAlerts(ctx, variantID) })
	return codes, nil
}

// Confirm consumes reserved codes once their order completes
func (s *Service) Confirm(ctx context.Context, ids []uint) error {
	if err := s.store.Transition(ctx, ids, CodeStatusPendingPayment, CodeStatusUsed); err != nil {
		return err
	}
	s.logger.WithField("count", len(ids)).Debug("codes confirmed")
	return nil
}

// Release returns reserved codes to the pool
func (s *Service) Release(ctx context.Context, ids []uint) error {
	if err := s.store.Transition(ctx, ids, CodeStatusPendingPayment, CodeStatusUnused); err != nil {
		return err
	}
	s.logger.WithField("count", len(ids)).Debug("codes released")
	return nil
}

// MarkError flags codes as faulty regardless of their current status
func (s *Service) MarkError(ctx context.Context, ids []uint) error {
	if err := s.store.MarkError(ctx, ids); err != nil {
		return err
	}
	s.logger.WithField("code_ids", ids).Warn("codes marked as error")
	return nil
}

// DeleteCode hard-deletes a code that is not tied to a live or fulfilled order
func (s *Service) DeleteCode(ctx context.Context, id uint) error {
	if err := s.store.DeleteCode(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("code_id", id).Info("code deleted")
	return nil
}

// GetCodes loads codes by id
func (s *Service) GetCodes(ctx context.Context, ids []uint) ([]ActivationCode, error) {
	return s.store.GetCodes(ctx, ids)
}

// ListCodes lists the codes of a variant, optionally filtered by status
func (s *Service) ListCodes(ctx context.Context, variantID uint, status CodeStatus) ([]ActivationCode, error) {
	if status != "" && !status.IsValid() {
		return nil, apperror.Validation("inventory.ListCodes", "unknown code status %q", status)
	}
	return s.store.ListCodes(ctx, variantID, status)
}

// Status returns the stock view of one variant
func (s *Service) Status(ctx context.Context, variantID uint) (*VariantStock, error) {
	counts, err := s.store.Counts(ctx, variantID)
	if err != nil {
		return nil, err
	}
	stock := s.stockOf(variantID, counts)
	return &stock, nil
}

// Summary aggregates stock over every variant holding codes plus the given
// variant ids, so denominations without any code show up as out of stock.
func (s *Service) Summary(ctx context.Context, variantIDs []uint) (*Summary, error) {
	all, err := s.store.AllCounts(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range variantIDs {
		if _, ok := all[id]; !ok {
			all[id] = StatusCounts{}
		}
	}

	summary := &Summary{Variants: make([]VariantStock, 0, len(all))}
	for id, counts := range all {
		stock := s.stockOf(id, counts)
		summary.Variants = append(summary.Variants, stock)
		summary.TotalAvailable += counts.Unused
		summary.TotalPending += counts.PendingPayment
		summary.TotalUsed += counts.Used
		summary.TotalError += counts.Error
		if stock.LowStock {
			summary.LowStockCount++
		}
		if stock.OutOfStock {
			summary.OutOfStockCount++
		}
	}
	sort.Slice(summary.Variants, func(i, j int) bool {
		return summary.Variants[i].VariantID < summary.Variants[j].VariantID
	})

	alerts, err := s.store.OpenAlerts(ctx, 0)
	if err != nil {
		return nil, err
	}
	summary.OpenAlerts = alerts
	return summary, nil
}

func (s *Service) stockOf(variantID uint, counts StatusCounts) VariantStock {
	return VariantStock{
		VariantID:  variantID,
		Counts:     counts,
		Total:      counts.InStock(),
		Available:  counts.Unused,
		LowStock:   counts.Unused > 0 && counts.Unused <= int64(s.lowStockThreshold),
		OutOfStock: counts.Unused == 0,
	}
}

// checkAndUpdateAlerts opens an alert when a variant runs low and resolves
// open alerts once it is restocked. It reads committed stock only, so callers
// schedule it after their transaction. Failures are logged, never returned.
func (s *Service) checkAndUpdateAlerts(ctx context.Context, variantID uint) {
	log := s.logger.WithField("variant_id", variantID)

	stock, err := s.Status(ctx, variantID)
	if err != nil {
		log.WithError(err).Warn("failed to read stock for alerts")
		return
	}
	open, err := s.store.OpenAlerts(ctx, variantID)
	if err != nil {
		log.WithError(err).Warn("failed to read stock alerts")
		return
	}

	var alertType, message string
	switch {
	case stock.OutOfStock:
		alertType = AlertOutOfStock
		message = fmt.Sprintf("Variant %d is out of stock", variantID)
	case stock.LowStock:
		alertType = AlertLowStock
		message = fmt.Sprintf("Variant %d is running low (available: %d, threshold: %d)", variantID, stock.Available, s.lowStockThreshold)
	}

	if alertType == "" {
		if len(open) > 0 {
			if err := s.store.ResolveAlerts(ctx, variantID); err != nil {
				log.WithError(err).Warn("failed to resolve stock alerts")
			}
		}
		return
	}
	for _, a := range open {
		if a.AlertType == alertType {
			return
		}
	}
	if len(open) > 0 {
		if err := s.store.ResolveAlerts(ctx, variantID); err != nil {
			log.WithError(err).Warn("failed to resolve stock alerts")
		}
	}
	if err := s.store.CreateAlert(ctx, &StockAlert{VariantID: variantID, AlertType: alertType, Message: message}); err != nil {
		log.WithError(err).Warn("failed to create stock alert")
		return
	}
	log.WithField("alert_type", alertType).Warn(message)
}
