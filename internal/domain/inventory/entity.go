// internal/domain/inventory/entity.go
package inventory

import (
	"fmt"
	"time"
)

// CodeStatus is the lifecycle state of an activation code
type CodeStatus string

const (
	CodeStatusUnused         CodeStatus = "UNUSED"
	CodeStatusPendingPayment CodeStatus = "PENDING_PAYMENT"
	CodeStatusUsed           CodeStatus = "USED"
	CodeStatusError          CodeStatus = "ERROR"
)

// codeTransitions is the only place code status legality is defined.
var codeTransitions = map[CodeStatus][]CodeStatus{
	CodeStatusUnused:         {CodeStatusPendingPayment, CodeStatusError},
	CodeStatusPendingPayment: {CodeStatusUsed, CodeStatusUnused, CodeStatusError},
	CodeStatusUsed:           {CodeStatusError},
	CodeStatusError:          {CodeStatusError},
}

// CanTransitionTo reports whether a code may move from s to target
func (s CodeStatus) CanTransitionTo(target CodeStatus) bool {
	for _, allowed := range codeTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known status
func (s CodeStatus) IsValid() bool {
	_, ok := codeTransitions[s]
	return ok
}

// ParseCodeStatus converts a caller supplied string into a CodeStatus
func ParseCodeStatus(raw string) (CodeStatus, error) {
	s := CodeStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown code status %q", raw)
	}
	return s, nil
}

// ActivationCode is a single redeemable secret bound to one variant
type ActivationCode struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	VariantID   uint       `gorm:"not null;index:idx_activation_codes_variant_status,priority:1" json:"variant_id"`
	Serial      string     `gorm:"size:100" json:"serial"`
	Code        string     `gorm:"uniqueIndex;not null;size:255" json:"code"`
	ExpiresAt   *time.Time `json:"expires_at"`
	ActivatedAt *time.Time `json:"activated_at"`
	Status      CodeStatus `gorm:"not null;size:20;index:idx_activation_codes_variant_status,priority:2" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// StockAlert records a variant crossing the low or out of stock line
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	VariantID  uint       `gorm:"not null;index" json:"variant_id"`
	AlertType  string     `gorm:"not null;size:20" json:"alert_type"` // low_stock, out_of_stock
	Message    string     `gorm:"size:255" json:"message"`
	IsResolved bool       `gorm:"not null;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName overrides
func (ActivationCode) TableName() string { return "activation_codes" }
func (StockAlert) TableName() string     { return "stock_alerts" }

// Alert types
const (
	AlertLowStock   = "low_stock"
	AlertOutOfStock = "out_of_stock"
)

// CodeInput is one code line of a stock import
type CodeInput struct {
	Code   string `json:"code"`
	Serial string `json:"serial"`
}

// AddStockRequest represents a bulk code insert for one variant
type AddStockRequest struct {
	VariantID   uint        `json:"variant_id"`
	Codes       []CodeInput `json:"codes"`
	ExpiresAt   *time.Time  `json:"expires_at"`
	ActivatedAt *time.Time  `json:"activated_at"`
}

// StatusCounts holds the number of codes of a variant per status
type StatusCounts struct {
	Unused         int64 `json:"unused"`
	PendingPayment int64 `json:"pending_payment"`
	Used           int64 `json:"used"`
	Error          int64 `json:"error"`
}

// InStock is UNUSED + PENDING_PAYMENT + USED: the quantity only AddStock and DeleteCode change.
func (c StatusCounts) InStock() int64 {
	return c.Unused + c.PendingPayment + c.Used
}

func (c *StatusCounts) add(status CodeStatus, n int64) {
	switch status {
	case CodeStatusUnused:
		c.Unused += n
	case CodeStatusPendingPayment:
		c.PendingPayment += n
	case CodeStatusUsed:
		c.Used += n
	case CodeStatusError:
		c.Error += n
	}
}

// VariantStock is the dashboard view of one variant
type VariantStock struct {
	VariantID  uint         `json:"variant_id"`
	Counts     StatusCounts `json:"counts"`
	Total      int64        `json:"total"`
	Available  int64        `json:"available"`
	LowStock   bool         `json:"low_stock"`
	OutOfStock bool         `json:"out_of_stock"`
}

// Summary aggregates stock over variants
type Summary struct {
	Variants        []VariantStock `json:"variants"`
	TotalAvailable  int64          `json:"total_available"`
	TotalPending    int64          `json:"total_pending"`
	TotalUsed       int64          `json:"total_used"`
	TotalError      int64          `json:"total_error"`
	LowStockCount   int            `json:"low_stock_count"`
	OutOfStockCount int            `json:"out_of_stock_count"`
	OpenAlerts      []StockAlert   `json:"open_alerts"`
}
