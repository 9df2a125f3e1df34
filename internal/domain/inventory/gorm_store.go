// internal/domain/inventory/gorm_store.go
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	insertBatchSize = 500

	// A short read is retried while enough UNUSED codes exist but are held
	// by allocations that have not committed yet.
	allocateRetries    = 3
	allocateRetryDelay = 50 * time.Millisecond
)

// GormStore is the postgres-backed code store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) AddStock(ctx context.Context, req AddStockRequest) ([]ActivationCode, error) {
	req, err := normalizeBatch("inventory.AddStock", req)
	if err != nil {
		return nil, err
	}

	values := make([]string, len(req.Codes))
	codes := make([]ActivationCode, len(req.Codes))
	for i, in := range req.Codes {
		values[i] = in.Code
		codes[i] = ActivationCode{
			VariantID:   req.VariantID,
			Serial:      in.Serial,
			Code:        in.Code,
			ExpiresAt:   req.ExpiresAt,
			ActivatedAt: req.ActivatedAt,
			Status:      CodeStatusUnused,
		}
	}

	err = dbtx.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		var existing []string
		for start := 0; start < len(values); start += insertBatchSize {
			end := min(start+insertBatchSize, len(values))
			var chunk []string
			if err := tx.Model(&ActivationCode{}).Where("code IN ?", values[start:end]).Pluck("code", &chunk).Error; err != nil {
				return fmt.Errorf("failed to check existing codes: %w", err)
			}
			existing = append(existing, chunk...)
		}
		if len(existing) > 0 {
			return apperror.DuplicateCode("inventory.AddStock", "codes already in stock: %s", strings.Join(existing, ", "))
		}

		if err := tx.CreateInBatches(&codes, insertBatchSize).Error; err != nil {
			// A concurrent import may win the race past the check above.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.DuplicateCode("inventory.AddStock", "codes collided with a concurrent import")
			}
			return fmt.Errorf("failed to insert codes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *GormStore) Allocate(ctx context.Context, variantID uint, quantity int) ([]ActivationCode, error) {
	if quantity < 1 {
		return nil, apperror.Validation("inventory.Allocate", "quantity must be at least 1")
	}

	var codes []ActivationCode
	err := dbtx.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; ; attempt++ {
			codes = nil
			// Rows locked by a concurrent allocation are skipped, so two requests never hold the same code.
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
				Where("variant_id = ? AND status = ?", variantID, CodeStatusUnused).
				Order("id ASC").
				Limit(quantity).
				Find(&codes).Error; err != nil {
				return fmt.Errorf("failed to select codes: %w", err)
			}
			if len(codes) >= quantity {
				break
			}

			var unused int64
			if err := tx.Model(&ActivationCode{}).
				Where("variant_id = ? AND status = ?", variantID, CodeStatusUnused).
				Count(&unused).Error; err != nil {
				return fmt.Errorf("failed to count codes: %w", err)
			}
			if unused < int64(quantity) || attempt >= allocateRetries {
				return apperror.InsufficientStock("inventory.Allocate",
					"variant %d: requested %d, available %d", variantID, quantity, len(codes))
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(allocateRetryDelay):
			}
		}

		ids := make([]uint, len(codes))
		for i := range codes {
			ids[i] = codes[i].ID
		}
		now := time.Now().UTC()
		result := tx.Model(&ActivationCode{}).
			Where("id IN ? AND status = ?", ids, CodeStatusUnused).
			Updates(map[string]interface{}{"status": CodeStatusPendingPayment, "updated_at": now})
		if result.Error != nil {
			return fmt.Errorf("failed to reserve codes: %w", result.Error)
		}
		if result.RowsAffected != int64(len(ids)) {
			return apperror.InsufficientStock("inventory.Allocate", "variant %d: stock changed during allocation", variantID)
		}
		for i := range codes {
			codes[i].Status = CodeStatusPendingPayment
			codes[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *GormStore) Transition(ctx context.Context, ids []uint, from, to CodeStatus) error {
	if !from.CanTransitionTo(to) {
		return apperror.InvalidTransition("inventory.Transition", "codes cannot move from %s to %s", from, to)
	}
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	return dbtx.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ActivationCode{}).
			Where("id IN ? AND status = ?", ids, from).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return fmt.Errorf("failed to move codes to %s: %w", to, result.Error)
		}
		if result.RowsAffected != int64(len(ids)) {
			return apperror.InvalidTransition("inventory.Transition",
				"%d of %d codes are not %s", int64(len(ids))-result.RowsAffected, len(ids), from)
		}
		return nil
	})
}

func (s *GormStore) MarkError(ctx context.Context, ids []uint) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	return dbtx.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ActivationCode{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": CodeStatusError, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return fmt.Errorf("failed to mark codes as error: %w", result.Error)
		}
		if result.RowsAffected != int64(len(ids)) {
			return apperror.NotFound("inventory.MarkError", "%d of %d codes not found", int64(len(ids))-result.RowsAffected, len(ids))
		}
		return nil
	})
}

func (s *GormStore) DeleteCode(ctx context.Context, id uint) error {
	return dbtx.Conn(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		var code ActivationCode
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&code, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("inventory.DeleteCode", "activation code %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("failed to load code %d: %w", id, err)
		}
		if code.Status == CodeStatusPendingPayment || code.Status == CodeStatusUsed {
			return apperror.CodeInUse("inventory.DeleteCode", "activation code %d is %s", id, code.Status)
		}
		if err := tx.Delete(&code).Error; err != nil {
			return fmt.Errorf("failed to delete code %d: %w", id, err)
		}
		return nil
	})
}

func (s *GormStore) GetCodes(ctx context.Context, ids []uint) ([]ActivationCode, error) {
	var codes []ActivationCode
	if len(ids) == 0 {
		return codes, nil
	}
	if err := dbtx.Conn(ctx, s.db).Where("id IN ?", ids).Order("id ASC").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to load codes: %w", err)
	}
	return codes, nil
}

func (s *GormStore) ListCodes(ctx context.Context, variantID uint, status CodeStatus) ([]ActivationCode, error) {
	query := dbtx.Conn(ctx, s.db).Where("variant_id = ?", variantID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var codes []ActivationCode
	if err := query.Order("id ASC").Find(&codes).Error; err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	return codes, nil
}

type statusCountRow struct {
	VariantID uint
	Status    CodeStatus
	Count     int64
}

func (s *GormStore) Counts(ctx context.Context, variantID uint) (StatusCounts, error) {
	var rows []statusCountRow
	err := dbtx.Conn(ctx, s.db).Model(&ActivationCode{}).
		Select("variant_id, status, COUNT(*) AS count").
		Where("variant_id = ?", variantID).
		Group("variant_id, status").
		Scan(&rows).Error
	if err != nil {
		return StatusCounts{}, fmt.Errorf("failed to count codes: %w", err)
	}

	var counts StatusCounts
	for _, row := range rows {
		counts.add(row.Status, row.Count)
	}
	return counts, nil
}

func (s *GormStore) AllCounts(ctx context.Context) (map[uint]StatusCounts, error) {
	var rows []statusCountRow
	err := dbtx.Conn(ctx, s.db).Model(&ActivationCode{}).
		Select("variant_id, status, COUNT(*) AS count").
		Group("variant_id, status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count codes: %w", err)
	}

	out := make(map[uint]StatusCounts)
	for _, row := range rows {
		counts := out[row.VariantID]
		counts.add(row.Status, row.Count)
		out[row.VariantID] = counts
	}
	return out, nil
}

// Alerts are written outside any caller transaction.

func (s *GormStore) OpenAlerts(ctx context.Context, variantID uint) ([]StockAlert, error) {
	query := s.db.WithContext(ctx).Where("is_resolved = ?", false)
	if variantID != 0 {
		query = query.Where("variant_id = ?", variantID)
	}

	var alerts []StockAlert
	if err := query.Order("created_at DESC").Find(&alerts).Error; err != nil {
		return nil, fmt.Errorf("failed to load stock alerts: %w", err)
	}
	return alerts, nil
}

func (s *GormStore) CreateAlert(ctx context.Context, alert *StockAlert) error {
	if err := s.db.WithContext(ctx).Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}
	return nil
}

func (s *GormStore) ResolveAlerts(ctx context.Context, variantID uint) error {
	err := s.db.WithContext(ctx).Model(&StockAlert{}).
		Where("variant_id = ? AND is_resolved = ?", variantID, false).
		Updates(map[string]interface{}{"is_resolved": true, "resolved_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to resolve stock alerts: %w", err)
	}
	return nil
}
