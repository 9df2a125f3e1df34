// internal/domain/catalog/repository.go
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"gorm.io/gorm"
)

// Repository persists products and variants
type Repository interface {
	GetVariant(ctx context.Context, id uint) (*Variant, error)
	GetProduct(ctx context.Context, id uint) (*Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uint) error
	CreateVariant(ctx context.Context, v *Variant) error
	UpdateVariant(ctx context.Context, v *Variant) error
	DeleteVariant(ctx context.Context, id uint) error
}

// GormRepository is the postgres-backed catalog
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a catalog repository over db
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) GetVariant(ctx context.Context, id uint) (*Variant, error) {
	var v Variant
	err := dbtx.Conn(ctx, r.db).Preload("Product").First(&v, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("catalog.GetVariant", "variant %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load variant %d: %w", id, err)
	}
	return &v, nil
}

func (r *GormRepository) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var p Product
	err := dbtx.Conn(ctx, r.db).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("catalog.GetProduct", "product %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", id, err)
	}
	return &p, nil
}

func (r *GormRepository) ListProducts(ctx context.Context, activeOnly bool) ([]Product, error) {
	query := dbtx.Conn(ctx, r.db).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		if activeOnly {
			db = db.Where("is_active = ?", true)
		}
		return db.Order("price ASC")
	})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var products []Product
	if err := query.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *GormRepository) CreateProduct(ctx context.Context, p *Product) error {
	if err := dbtx.Conn(ctx, r.db).Omit("Variants").Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateProduct(ctx context.Context, p *Product) error {
	result := dbtx.Conn(ctx, r.db).Model(&Product{ID: p.ID}).Updates(map[string]interface{}{
		"name":        p.Name,
		"description": p.Description,
		"image_url":   p.ImageURL,
		"brand":       p.Brand,
		"is_active":   p.IsActive,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update product %d: %w", p.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("catalog.UpdateProduct", "product %d not found", p.ID)
	}
	return nil
}

func (r *GormRepository) DeleteProduct(ctx context.Context, id uint) error {
	result := dbtx.Conn(ctx, r.db).Delete(&Product{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("catalog.DeleteProduct", "product %d not found", id)
	}
	return nil
}

func (r *GormRepository) CreateVariant(ctx context.Context, v *Variant) error {
	if err := dbtx.Conn(ctx, r.db).Omit("Product").Create(v).Error; err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

func (r *GormRepository) UpdateVariant(ctx context.Context, v *Variant) error {
	result := dbtx.Conn(ctx, r.db).Model(&Variant{ID: v.ID}).Updates(map[string]interface{}{
		"value":     v.Value,
		"price":     v.Price,
		"currency":  v.Currency,
		"is_active": v.IsActive,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update variant %d: %w", v.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("catalog.UpdateVariant", "variant %d not found", v.ID)
	}
	return nil
}

func (r *GormRepository) DeleteVariant(ctx context.Context, id uint) error {
	result := dbtx.Conn(ctx, r.db).Delete(&Variant{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete variant %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("catalog.DeleteVariant", "variant %d not found", id)
	}
	return nil
}
