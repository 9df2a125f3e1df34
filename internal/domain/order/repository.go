// internal/domain/order/repository.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"gorm.io/gorm"
)

// ListFilter narrows order listings. Zero values mean no filter.
type ListFilter struct {
	UserID uint
	Status Status
	Page   int
	Limit  int
}

func (f ListFilter) normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	return f
}

// Repository persists orders with their items, transaction and history
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Get(ctx context.Context, id uint) (*Order, error)
	FindByPaymentCode(ctx context.Context, paymentCode string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
	// UpdateStatus moves the order only if it is still in from.
	UpdateStatus(ctx context.Context, id uint, from, to Status, at time.Time) error
	UpdateTransaction(ctx context.Context, orderID uint, status TransactionStatus, paymentCode string, paidAt *time.Time) error
	AppendHistory(ctx context.Context, h *StatusHistory) error
	// RelinkCode points an item code link at another activation code.
	RelinkCode(ctx context.Context, linkID, codeID uint) error
	ListStale(ctx context.Context, before time.Time, limit int) ([]uint, error)
}

// GormRepository stores orders in PostgreSQL
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a gorm backed order repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Create(ctx context.Context, o *Order) error {
	db := dbtx.Conn(ctx, r.db)

	// The real number depends on the row id.
	o.OrderNumber = "tmp-" + uuid.NewString()
	if err := db.Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	o.OrderNumber = o.GenerateOrderNumber()
	if err := db.Model(o).Update("order_number", o.OrderNumber).Error; err != nil {
		return fmt.Errorf("failed to update order number: %w", err)
	}
	return nil
}

func (r *GormRepository) preloaded(ctx context.Context) *gorm.DB {
	return dbtx.Conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.CodeLinks", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Transaction").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

func (r *GormRepository) Get(ctx context.Context, id uint) (*Order, error) {
	var o Order
	if err := r.preloaded(ctx).First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order.Get", "order %d not found", id)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &o, nil
}

func (r *GormRepository) FindByPaymentCode(ctx context.Context, paymentCode string) (*Order, error) {
	var txn Transaction
	err := dbtx.Conn(ctx, r.db).Where("payment_code = ?", paymentCode).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("order.FindByPaymentCode", "no order for payment %q", paymentCode)
		}
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return r.Get(ctx, txn.OrderID)
}

func (r *GormRepository) List(ctx context.Context, filter ListFilter) ([]Order, int64, error) {
	filter = filter.normalize()

	query := dbtx.Conn(ctx, r.db).Model(&Order{})
	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Transaction").
		Order("created_at DESC, id DESC").
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id uint, from, to Status, at time.Time) error {
	updates := map[string]interface{}{"status": to, "updated_at": at}
	if to == StatusCompleted {
		updates["completed_at"] = at
	}

	result := dbtx.Conn(ctx, r.db).Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.InvalidTransition("order.UpdateStatus", "order %d is no longer %s", id, from)
	}
	return nil
}

func (r *GormRepository) UpdateTransaction(ctx context.Context, orderID uint, status TransactionStatus, paymentCode string, paidAt *time.Time) error {
	updates := map[string]interface{}{"status": status, "updated_at": time.Now().UTC()}
	if paymentCode != "" {
		updates["payment_code"] = paymentCode
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}

	result := dbtx.Conn(ctx, r.db).Model(&Transaction{}).Where("order_id = ?", orderID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("order.UpdateTransaction", "transaction of order %d not found", orderID)
	}
	return nil
}

func (r *GormRepository) AppendHistory(ctx context.Context, h *StatusHistory) error {
	if err := dbtx.Conn(ctx, r.db).Create(h).Error; err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}
	return nil
}

func (r *GormRepository) RelinkCode(ctx context.Context, linkID, codeID uint) error {
	result := dbtx.Conn(ctx, r.db).Model(&ItemCode{}).Where("id = ?", linkID).Update("code_id", codeID)
	if result.Error != nil {
		return fmt.Errorf("failed to relink item code: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("order.RelinkCode", "item code link %d not found", linkID)
	}
	return nil
}

func (r *GormRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]uint, error) {
	var ids []uint
	err := dbtx.Conn(ctx, r.db).Model(&Order{}).
		Where("status = ? AND created_at < ?", StatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stale orders: %w", err)
	}
	return ids, nil
}
