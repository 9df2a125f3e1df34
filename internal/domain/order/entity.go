// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the order status
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// transitions is the single order transition table. Customer flows, payment
// callbacks, the expiry job and admin overrides all go through it.
var transitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled, StatusFailed},
	StatusCompleted: {StatusRefunded},
	StatusCancelled: nil,
	StatusFailed:    nil,
	StatusRefunded:  nil,
}

// CanTransitionTo reports whether an order may move from s to target
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known status
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// TransactionStatus represents payment status of the linked transaction
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionPaid     TransactionStatus = "PAID"
	TransactionFailed   TransactionStatus = "FAILED"
	TransactionRefunded TransactionStatus = "REFUNDED"
)

// transactionStatusFor maps an order status onto its payment record
func transactionStatusFor(s Status) TransactionStatus {
	switch s {
	case StatusCompleted:
		return TransactionPaid
	case StatusCancelled, StatusFailed:
		return TransactionFailed
	case StatusRefunded:
		return TransactionRefunded
	default:
		return TransactionPending
	}
}

// Order represents the order entity
type Order struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderNumber   string          `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Email         string          `gorm:"size:255" json:"email"`
	PaymentMethod string          `gorm:"not null;size:50" json:"payment_method"`
	Status        Status          `gorm:"not null;size:20;index" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	Items         []Item          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
	Transaction   *Transaction    `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"transaction,omitempty"`
	StatusHistory []StatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"status_history,omitempty"`
}

// Item is one order line. Prices are copied from the catalog at checkout.
type Item struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderID        uint            `gorm:"not null;index" json:"order_id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	VariantID      uint            `gorm:"not null;index" json:"variant_id"`
	ProductName    string          `gorm:"not null;size:255" json:"product_name"`
	Value          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"value"`
	UnitPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Quantity       int             `gorm:"not null" json:"quantity"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	RecipientEmail string          `gorm:"size:255" json:"recipient_email,omitempty"`
	RecipientName  string          `gorm:"size:255" json:"recipient_name,omitempty"`
	GiftMessage    string          `gorm:"type:text" json:"gift_message,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`

	// Allocated codes are referenced, not owned.
	CodeLinks []ItemCode   `gorm:"foreignKey:OrderItemID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Codes     []RevealedCode `gorm:"-" json:"codes,omitempty"`
}

// ItemCode links an order item to an activation code held by the inventory
type ItemCode struct {
	ID          uint `gorm:"primaryKey"`
	OrderItemID uint `gorm:"not null;index"`
	CodeID      uint `gorm:"not null;index"`
}

// RevealedCode is what a customer sees once the order is completed
type RevealedCode struct {
	Code        string     `json:"code"`
	Serial      string     `json:"serial,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
}

// Transaction is the payment record of an order
type Transaction struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	OrderID       uint              `gorm:"not null;uniqueIndex" json:"order_id"`
	TransactionID string            `gorm:"not null;uniqueIndex;size:36" json:"transaction_id"`
	PaymentMethod string            `gorm:"not null;size:50" json:"payment_method"`
	PaymentCode   string            `gorm:"size:255;index" json:"payment_code,omitempty"` // gateway reference
	Status        TransactionStatus `gorm:"not null;size:20" json:"status"`
	Amount        decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency      string            `gorm:"size:3;not null" json:"currency"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// StatusHistory tracks order status changes
type StatusHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Status    Status    `gorm:"not null;size:20" json:"status"`
	Comment   string    `gorm:"type:text" json:"comment"`
	Actor     string    `gorm:"size:100" json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides
func (Order) TableName() string         { return "orders" }
func (Item) TableName() string          { return "order_items" }
func (ItemCode) TableName() string      { return "order_item_codes" }
func (Transaction) TableName() string   { return "transactions" }
func (StatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber builds the public order number from the row id
func (o *Order) GenerateOrderNumber() string {
	// Format: GC-YYYYMMDD-XXXXXX
	return fmt.Sprintf("GC-%s-%06d", o.CreatedAt.UTC().Format("20060102"), o.ID)
}

// CodeIDs returns every activation code allocated to the order
func (o *Order) CodeIDs() []uint {
	var ids []uint
	for _, item := range o.Items {
		for _, link := range item.CodeLinks {
			ids = append(ids, link.CodeID)
		}
	}
	return ids
}

// TotalQuantity is the number of codes the order holds
func (o *Order) TotalQuantity() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// IsOwnedBy reports whether userID placed the order
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}
