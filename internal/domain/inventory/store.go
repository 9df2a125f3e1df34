// internal/domain/inventory/store.go
package inventory

import (
	"context"
	"strings"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// Store persists activation codes. Every method is atomic: it either applies
// to all given codes or to none.
type Store interface {
	// AddStock inserts codes as UNUSED; any collision rejects the whole batch.
	AddStock(ctx context.Context, req AddStockRequest) ([]ActivationCode, error)
	// Allocate moves quantity UNUSED codes of a variant, oldest first, to PENDING_PAYMENT.
	Allocate(ctx context.Context, variantID uint, quantity int) ([]ActivationCode, error)
	// Transition moves codes from one status to another, failing if any is not in from.
	Transition(ctx context.Context, ids []uint, from, to CodeStatus) error
	// MarkError moves codes from any status to ERROR.
	MarkError(ctx context.Context, ids []uint) error
	DeleteCode(ctx context.Context, id uint) error
	GetCodes(ctx context.Context, ids []uint) ([]ActivationCode, error)
	ListCodes(ctx context.Context, variantID uint, status CodeStatus) ([]ActivationCode, error)
	Counts(ctx context.Context, variantID uint) (StatusCounts, error)
	AllCounts(ctx context.Context) (map[uint]StatusCounts, error)

	OpenAlerts(ctx context.Context, variantID uint) ([]StockAlert, error)
	CreateAlert(ctx context.Context, alert *StockAlert) error
	ResolveAlerts(ctx context.Context, variantID uint) error
}

// normalizeBatch trims codes, drops blank ones and rejects in-batch duplicates.
func normalizeBatch(op string, req AddStockRequest) (AddStockRequest, error) {
	if req.VariantID == 0 {
		return req, apperror.Validation(op, "variant id is required")
	}
	if req.ExpiresAt != nil && req.ActivatedAt != nil && req.ExpiresAt.Before(*req.ActivatedAt) {
		return req, apperror.Validation(op, "expiration date is before activation date")
	}

	seen := make(map[string]struct{}, len(req.Codes))
	var dups []string
	codes := make([]CodeInput, 0, len(req.Codes))
	for _, in := range req.Codes {
		code := strings.TrimSpace(in.Code)
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			dups = append(dups, code)
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, CodeInput{Code: code, Serial: strings.TrimSpace(in.Serial)})
	}
	if len(dups) > 0 {
		return req, apperror.DuplicateCode(op, "codes repeated in batch: %s", strings.Join(dups, ", "))
	}
	if len(codes) == 0 {
		return req, apperror.Validation(op, "no activation codes given")
	}

	req.Codes = codes
	return req, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
