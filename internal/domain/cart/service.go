// internal/domain/cart/service.go
package cart

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// VariantLookup resolves sellable variants
type VariantLookup interface {
	GetLiveVariant(ctx context.Context, id uint) (*catalog.Variant, error)
}

// Service is the cart manager: it loads a snapshot, applies one mutation and saves the result.
type Service struct {
	repo     Repository
	variants VariantLookup
	validate *validator.Validate
	logger   logrus.FieldLogger

	Now   func() time.Time
	NewID func() string
}

// NewService creates a new cart service
func NewService(repo Repository, variants VariantLookup, logger logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		variants: variants,
		validate: validator.New(),
		logger:   logger,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
	}
}

// AddItemRequest represents add to cart request
type AddItemRequest struct {
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity"`
	Recipient
}

// UpdateQuantityRequest represents update cart item request
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the stored cart or a fresh empty one
func (s *Service) GetCart(ctx context.Context, key string) (Cart, error) {
	stored, err := s.repo.Load(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	if stored == nil {
		return NewCart(key, s.Now()), nil
	}
	return *stored, nil
}

// AddItem adds a variant to the cart, merging with an identical line
func (s *Service) AddItem(ctx context.Context, key string, req *AddItemRequest) (Cart, error) {
	c, err := s.GetCart(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	if req.Quantity < 1 {
		return c, nil
	}
	recipient, err := s.normalizeRecipient("cart.AddItem", req.Recipient)
	if err != nil {
		return Cart{}, err
	}

	v, err := s.variants.GetLiveVariant(ctx, req.VariantID)
	if err != nil {
		return Cart{}, err
	}

	item := Item{
		ID:          s.NewID(),
		ProductID:   v.ProductID,
		VariantID:   v.ID,
		ProductName: v.ProductName(),
		Price:       v.Price,
		Value:       v.Value,
		Currency:    v.Currency,
		Quantity:    req.Quantity,
		Recipient:   recipient,
	}
	if v.Product != nil {
		item.Brand = v.Product.Brand
		item.ImageURL = v.Product.ImageURL
	}

	next, err := c.AddItem(item, s.Now())
	if err != nil {
		return Cart{}, err
	}
	return s.save(ctx, next)
}

// UpdateQuantity sets an item's quantity; values below 1 leave the cart unchanged
func (s *Service) UpdateQuantity(ctx context.Context, key, itemID string, quantity int) (Cart, error) {
	c, err := s.GetCart(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	next, err := c.UpdateQuantity(itemID, quantity, s.Now())
	if err != nil {
		return Cart{}, err
	}
	if quantity < 1 {
		return c, nil
	}
	return s.save(ctx, next)
}

// RemoveItem removes an item
func (s *Service) RemoveItem(ctx context.Context, key, itemID string) (Cart, error) {
	c, err := s.GetCart(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	next, err := c.RemoveItem(itemID, s.Now())
	if err != nil {
		return Cart{}, err
	}
	return s.save(ctx, next)
}

// UpdateRecipient sets gift metadata of an item
func (s *Service) UpdateRecipient(ctx context.Context, key, itemID string, r Recipient) (Cart, error) {
	r, err := s.normalizeRecipient("cart.UpdateRecipient", r)
	if err != nil {
		return Cart{}, err
	}
	c, err := s.GetCart(ctx, key)
	if err != nil {
		return Cart{}, err
	}
	next, err := c.UpdateRecipient(itemID, r, s.Now())
	if err != nil {
		return Cart{}, err
	}
	return s.save(ctx, next)
}

// Clear empties the cart. Called after order placement and on logout.
func (s *Service) Clear(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.logger.WithField("cart", key).Debug("cart cleared")
	return nil
}

// Merge moves the lines of cart from into cart into and deletes from.
// Used when a guest session logs in. A guest line whose recipient clashes
// with a user line is kept as a separate line.
func (s *Service) Merge(ctx context.Context, from, into string) (Cart, error) {
	src, err := s.repo.Load(ctx, from)
	if err != nil {
		return Cart{}, err
	}
	dst, err := s.GetCart(ctx, into)
	if err != nil {
		return Cart{}, err
	}
	if src == nil || src.IsEmpty() {
		return dst, nil
	}

	now := s.Now()
	for _, item := range src.Items {
		next, err := dst.AddItem(item, now)
		if err != nil {
			next = dst.appendItem(item, now)
		}
		dst = next
	}
	merged, err := s.save(ctx, dst)
	if err != nil {
		return Cart{}, err
	}
	if err := s.repo.Delete(ctx, from); err != nil {
		return Cart{}, err
	}
	return merged, nil
}

func (s *Service) save(ctx context.Context, c Cart) (Cart, error) {
	if err := s.repo.Save(ctx, c); err != nil {
		return Cart{}, err
	}
	return c, nil
}

// A recipient email is required once a name or message is given.
func (s *Service) normalizeRecipient(op string, r Recipient) (Recipient, error) {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Message = strings.TrimSpace(r.Message)

	if r.Email == "" {
		if r.Name != "" || r.Message != "" {
			return r, apperror.Validation(op, "recipient email is required")
		}
		return r, nil
	}
	if err := s.validate.Var(r.Email, "email"); err != nil {
		return r, apperror.Validation(op, "recipient email %q is invalid", r.Email)
	}
	if len(r.Message) > 500 {
		return r, apperror.Validation(op, "gift message must be at most 500 characters")
	}
	return r, nil
}
