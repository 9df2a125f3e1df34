// internal/domain/catalog/memory.go
package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// MemoryRepository keeps the catalog in process memory
type MemoryRepository struct {
	mu            sync.RWMutex
	products      map[uint]Product
	variants      map[uint]Variant
	nextProductID uint
	nextVariantID uint
}

// NewMemoryRepository creates an empty in-memory catalog
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[uint]Product),
		variants: make(map[uint]Variant),
	}
}

func (r *MemoryRepository) GetVariant(_ context.Context, id uint) (*Variant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.variants[id]
	if !ok {
		return nil, apperror.NotFound("catalog.GetVariant", "variant %d not found", id)
	}
	if p, ok := r.products[v.ProductID]; ok {
		p.Variants = nil
		v.Product = &p
	}
	return &v, nil
}

func (r *MemoryRepository) GetProduct(_ context.Context, id uint) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperror.NotFound("catalog.GetProduct", "product %d not found", id)
	}
	p.Variants = r.variantsOf(id, false)
	return &p, nil
}

func (r *MemoryRepository) ListProducts(_ context.Context, activeOnly bool) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	products := make([]Product, 0, len(r.products))
	for _, p := range r.products {
		if activeOnly && !p.IsActive {
			continue
		}
		p.Variants = r.variantsOf(p.ID, activeOnly)
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Name < products[j].Name })
	return products, nil
}

func (r *MemoryRepository) CreateProduct(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextProductID++
	now := time.Now().UTC()
	p.ID = r.nextProductID
	p.CreatedAt, p.UpdatedAt = now, now
	stored := *p
	stored.Variants = nil
	r.products[p.ID] = stored
	return nil
}

func (r *MemoryRepository) UpdateProduct(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[p.ID]
	if !ok {
		return apperror.NotFound("catalog.UpdateProduct", "product %d not found", p.ID)
	}
	existing.Name = p.Name
	existing.Description = p.Description
	existing.ImageURL = p.ImageURL
	existing.Brand = p.Brand
	existing.IsActive = p.IsActive
	existing.UpdatedAt = time.Now().UTC()
	r.products[p.ID] = existing
	return nil
}

func (r *MemoryRepository) DeleteProduct(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return apperror.NotFound("catalog.DeleteProduct", "product %d not found", id)
	}
	delete(r.products, id)
	return nil
}

func (r *MemoryRepository) CreateVariant(_ context.Context, v *Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[v.ProductID]; !ok {
		return apperror.NotFound("catalog.CreateVariant", "product %d not found", v.ProductID)
	}
	r.nextVariantID++
	now := time.Now().UTC()
	v.ID = r.nextVariantID
	v.CreatedAt, v.UpdatedAt = now, now
	stored := *v
	stored.Product = nil
	r.variants[v.ID] = stored
	return nil
}

func (r *MemoryRepository) UpdateVariant(_ context.Context, v *Variant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.variants[v.ID]
	if !ok {
		return apperror.NotFound("catalog.UpdateVariant", "variant %d not found", v.ID)
	}
	existing.Value = v.Value
	existing.Price = v.Price
	existing.Currency = v.Currency
	existing.IsActive = v.IsActive
	existing.UpdatedAt = time.Now().UTC()
	r.variants[v.ID] = existing
	return nil
}

func (r *MemoryRepository) DeleteVariant(_ context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.variants[id]; !ok {
		return apperror.NotFound("catalog.DeleteVariant", "variant %d not found", id)
	}
	delete(r.variants, id)
	return nil
}

func (r *MemoryRepository) variantsOf(productID uint, activeOnly bool) []Variant {
	var out []Variant
	for _, v := range r.variants {
		if v.ProductID != productID || (activeOnly && !v.IsActive) {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
