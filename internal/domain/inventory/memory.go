// internal/domain/inventory/memory.go
package inventory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// MemoryStore keeps codes in process memory. A single mutex is the
// serialization point for every variant.
type MemoryStore struct {
	mu          sync.Mutex
	codes       map[uint]*ActivationCode
	byCode      map[string]uint
	alerts      []StockAlert
	nextID      uint
	nextAlertID uint
	now         func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		codes:  make(map[uint]*ActivationCode),
		byCode: make(map[string]uint),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) AddStock(_ context.Context, req AddStockRequest) ([]ActivationCode, error) {
	req, err := normalizeBatch("inventory.AddStock", req)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []string
	for _, in := range req.Codes {
		if _, ok := s.byCode[in.Code]; ok {
			existing = append(existing, in.Code)
		}
	}
	if len(existing) > 0 {
		return nil, apperror.DuplicateCode("inventory.AddStock", "codes already in stock: %s", strings.Join(existing, ", "))
	}

	now := s.now()
	out := make([]ActivationCode, 0, len(req.Codes))
	for _, in := range req.Codes {
		s.nextID++
		code := &ActivationCode{
			ID:          s.nextID,
			VariantID:   req.VariantID,
			Serial:      in.Serial,
			Code:        in.Code,
			ExpiresAt:   req.ExpiresAt,
			ActivatedAt: req.ActivatedAt,
			Status:      CodeStatusUnused,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		s.codes[code.ID] = code
		s.byCode[code.Code] = code.ID
		out = append(out, *code)
	}
	return out, nil
}

func (s *MemoryStore) Allocate(_ context.Context, variantID uint, quantity int) ([]ActivationCode, error) {
	if quantity < 1 {
		return nil, apperror.Validation("inventory.Allocate", "quantity must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []*ActivationCode
	for _, c := range s.codes {
		if c.VariantID == variantID && c.Status == CodeStatusUnused {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) < quantity {
		return nil, apperror.InsufficientStock("inventory.Allocate",
			"variant %d: requested %d, available %d", variantID, quantity, len(candidates))
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	now := s.now()
	out := make([]ActivationCode, quantity)
	for i, c := range candidates[:quantity] {
		c.Status = CodeStatusPendingPayment
		c.UpdatedAt = now
		out[i] = *c
	}
	return out, nil
}

func (s *MemoryStore) Transition(_ context.Context, ids []uint, from, to CodeStatus) error {
	if !from.CanTransitionTo(to) {
		return apperror.InvalidTransition("inventory.Transition", "codes cannot move from %s to %s", from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids = uniqueIDs(ids)
	for _, id := range ids {
		c, ok := s.codes[id]
		if !ok {
			return apperror.NotFound("inventory.Transition", "activation code %d not found", id)
		}
		if c.Status != from {
			return apperror.InvalidTransition("inventory.Transition",
				"activation code %d is %s, expected %s", id, c.Status, from)
		}
	}

	now := s.now()
	for _, id := range ids {
		s.codes[id].Status = to
		s.codes[id].UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) MarkError(_ context.Context, ids []uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids = uniqueIDs(ids)
	for _, id := range ids {
		if _, ok := s.codes[id]; !ok {
			return apperror.NotFound("inventory.MarkError", "activation code %d not found", id)
		}
	}
	now := s.now()
	for _, id := range ids {
		s.codes[id].Status = CodeStatusError
		s.codes[id].UpdatedAt = now
	}
	return nil
}

func (s *MemoryStore) DeleteCode(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.codes[id]
	if !ok {
		return apperror.NotFound("inventory.DeleteCode", "activation code %d not found", id)
	}
	if c.Status == CodeStatusPendingPayment || c.Status == CodeStatusUsed {
		return apperror.CodeInUse("inventory.DeleteCode", "activation code %d is %s", id, c.Status)
	}
	delete(s.byCode, c.Code)
	delete(s.codes, id)
	return nil
}

func (s *MemoryStore) GetCodes(_ context.Context, ids []uint) ([]ActivationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ActivationCode, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.codes[id]; ok {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListCodes(_ context.Context, variantID uint, status CodeStatus) ([]ActivationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ActivationCode
	for _, c := range s.codes {
		if c.VariantID != variantID || (status != "" && c.Status != status) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) Counts(_ context.Context, variantID uint) (StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts StatusCounts
	for _, c := range s.codes {
		if c.VariantID == variantID {
			counts.add(c.Status, 1)
		}
	}
	return counts, nil
}

func (s *MemoryStore) AllCounts(_ context.Context) (map[uint]StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[uint]StatusCounts)
	for _, c := range s.codes {
		counts := out[c.VariantID]
		counts.add(c.Status, 1)
		out[c.VariantID] = counts
	}
	return out, nil
}

func (s *MemoryStore) OpenAlerts(_ context.Context, variantID uint) ([]StockAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StockAlert
	for _, a := range s.alerts {
		if !a.IsResolved && (variantID == 0 || a.VariantID == variantID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAlert(_ context.Context, alert *StockAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAlertID++
	alert.ID = s.nextAlertID
	alert.CreatedAt = s.now()
	s.alerts = append(s.alerts, *alert)
	return nil
}

func (s *MemoryStore) ResolveAlerts(_ context.Context, variantID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for i := range s.alerts {
		if s.alerts[i].VariantID == variantID && !s.alerts[i].IsResolved {
			s.alerts[i].IsResolved = true
			s.alerts[i].ResolvedAt = &now
		}
	}
	return nil
}
