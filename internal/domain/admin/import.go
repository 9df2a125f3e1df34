// internal/domain/admin/import.go
package admin

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// ImportStockRequest is the operator's stock upload: one code per line,
// optionally followed by a comma and a serial number.
type ImportStockRequest struct {
	Codes       string `json:"codes" binding:"required"`
	ExpiresAt   string `json:"expires_at"`
	ActivatedAt string `json:"activated_at"`
}

// ParseCodeBlock splits a pasted code block into code inputs. Blank lines are
// dropped; duplicates are left for the inventory store to reject.
func ParseCodeBlock(block string) []inventory.CodeInput {
	lines := strings.Split(strings.ReplaceAll(block, "\r\n", "\n"), "\n")

	out := make([]inventory.CodeInput, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		code, serial, _ := strings.Cut(line, ",")
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		out = append(out, inventory.CodeInput{Code: code, Serial: strings.TrimSpace(serial)})
	}
	return out
}

// ParseCalendarDate accepts any common date layout and normalizes it to
// midnight UTC of that calendar day. An empty string yields nil.
func ParseCalendarDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := dateparse.ParseIn(raw, time.UTC)
	if err != nil {
		return nil, apperror.Validation("admin.ImportStock", "%s %q is not a recognizable date", field, raw)
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

// buildStockRequest turns an upload into an inventory request
func buildStockRequest(variantID uint, req *ImportStockRequest) (inventory.AddStockRequest, error) {
	expiresAt, err := ParseCalendarDate("expiration date", req.ExpiresAt)
	if err != nil {
		return inventory.AddStockRequest{}, err
	}
	activatedAt, err := ParseCalendarDate("activation date", req.ActivatedAt)
	if err != nil {
		return inventory.AddStockRequest{}, err
	}
	return inventory.AddStockRequest{
		VariantID:   variantID,
		Codes:       ParseCodeBlock(req.Codes),
		ExpiresAt:   expiresAt,
		ActivatedAt: activatedAt,
	}, nil
}
