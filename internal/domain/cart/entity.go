// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// Item is a cart line. Product fields are denormalized at add time.
type Item struct {
	ID          string          `json:"id"`
	ProductID   uint            `json:"product_id"`
	VariantID   uint            `json:"variant_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand"`
	ImageURL    string          `json:"image_url"`
	Price       decimal.Decimal `json:"price"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
	Recipient
	AddedAt time.Time `json:"added_at"`
}

// Recipient is the optional gift metadata of an item
type Recipient struct {
	Email   string `json:"recipient_email,omitempty"`
	Name    string `json:"recipient_name,omitempty"`
	Message string `json:"gift_message,omitempty"`
}

// Subtotal is price times quantity
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) sameLine(other Item) bool {
	return i.ProductID == other.ProductID && i.VariantID == other.VariantID && i.Price.Equal(other.Price)
}

// Cart is a session scoped snapshot. Mutations return a new Cart and never
// touch the receiver's items.
type Cart struct {
	Key         string          `json:"key"`
	Items       []Item          `json:"items"`
	TotalItems  int             `json:"total_items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewCart returns an empty cart for key
func NewCart(key string, now time.Time) Cart {
	return Cart{Key: key, Items: []Item{}, TotalAmount: decimal.Zero, CreatedAt: now, UpdatedAt: now}
}

// IsEmpty reports whether the cart has no items
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// AddItem merges item into an existing line with the same product, variant
// and price, or appends it. A quantity below 1 is a no-op. An item without
// recipient data merges into the existing line; one whose recipient differs
// from that line's is rejected rather than overwriting either.
func (c Cart) AddItem(item Item, now time.Time) (Cart, error) {
	if item.Quantity < 1 {
		return c, nil
	}

	next := c.clone()
	for i := range next.Items {
		if !next.Items[i].sameLine(item) {
			continue
		}
		if item.Recipient != (Recipient{}) && item.Recipient != next.Items[i].Recipient {
			return c, apperror.Validation("cart.AddItem",
				"cart item %s already has a different recipient, update it or remove it first", next.Items[i].ID)
		}
		next.Items[i].Quantity += item.Quantity
		return next.touch(now), nil
	}
	return next.appendItem(item, now), nil
}

// appendItem adds item as its own line
func (c Cart) appendItem(item Item, now time.Time) Cart {
	next := c.clone()
	item.AddedAt = now
	next.Items = append(next.Items, item)
	return next.touch(now)
}

// UpdateQuantity replaces an item's quantity. A quantity below 1 is a no-op.
func (c Cart) UpdateQuantity(itemID string, quantity int, now time.Time) (Cart, error) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return c, apperror.NotFound("cart.UpdateQuantity", "cart item %s not found", itemID)
	}
	if quantity < 1 {
		return c, nil
	}

	next := c.clone()
	next.Items[idx].Quantity = quantity
	return next.touch(now), nil
}

// RemoveItem drops an item
func (c Cart) RemoveItem(itemID string, now time.Time) (Cart, error) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return c, apperror.NotFound("cart.RemoveItem", "cart item %s not found", itemID)
	}

	next := c.clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	return next.touch(now), nil
}

// UpdateRecipient replaces gift metadata. Totals are untouched.
func (c Cart) UpdateRecipient(itemID string, r Recipient, now time.Time) (Cart, error) {
	idx := c.indexOf(itemID)
	if idx < 0 {
		return c, apperror.NotFound("cart.UpdateRecipient", "cart item %s not found", itemID)
	}

	next := c.clone()
	next.Items[idx].Recipient = r
	next.UpdatedAt = now
	return next, nil
}

// Clear empties the cart and resets totals
func (c Cart) Clear(now time.Time) Cart {
	next := NewCart(c.Key, c.CreatedAt)
	next.UpdatedAt = now
	return next
}

func (c Cart) indexOf(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

func (c Cart) clone() Cart {
	next := c
	next.Items = make([]Item, len(c.Items), len(c.Items)+1)
	copy(next.Items, c.Items)
	return next
}

func (c Cart) touch(now time.Time) Cart {
	c.TotalItems = 0
	c.TotalAmount = decimal.Zero
	for _, item := range c.Items {
		c.TotalItems += item.Quantity
		c.TotalAmount = c.TotalAmount.Add(item.Subtotal())
	}
	c.UpdatedAt = now
	return c
}
