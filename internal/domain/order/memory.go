// internal/domain/order/memory.go
package order

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
)

// MemoryRepository keeps orders in process memory
type MemoryRepository struct {
	mu      sync.RWMutex
	orders  map[uint]*Order
	nextIDs map[string]uint
}

// NewMemoryRepository creates an empty in-memory order repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:  make(map[uint]*Order),
		nextIDs: make(map[string]uint),
	}
}

func (r *MemoryRepository) next(table string) uint {
	r.nextIDs[table]++
	return r.nextIDs[table]
}

func (r *MemoryRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	o.ID = r.next("orders")
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	o.OrderNumber = o.GenerateOrderNumber()

	for i := range o.Items {
		item := &o.Items[i]
		item.ID = r.next("items")
		item.OrderID = o.ID
		item.CreatedAt = o.CreatedAt
		for j := range item.CodeLinks {
			item.CodeLinks[j].ID = r.next("item_codes")
			item.CodeLinks[j].OrderItemID = item.ID
		}
	}
	if o.Transaction != nil {
		o.Transaction.ID = r.next("transactions")
		o.Transaction.OrderID = o.ID
		o.Transaction.CreatedAt = o.CreatedAt
		o.Transaction.UpdatedAt = o.CreatedAt
	}
	for i := range o.StatusHistory {
		o.StatusHistory[i].ID = r.next("history")
		o.StatusHistory[i].OrderID = o.ID
		if o.StatusHistory[i].CreatedAt.IsZero() {
			o.StatusHistory[i].CreatedAt = o.CreatedAt
		}
	}

	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id uint) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperror.NotFound("order.Get", "order %d not found", id)
	}
	return cloneOrder(o), nil
}

func (r *MemoryRepository) FindByPaymentCode(_ context.Context, paymentCode string) (*Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.Transaction != nil && paymentCode != "" && o.Transaction.PaymentCode == paymentCode {
			return cloneOrder(o), nil
		}
	}
	return nil, apperror.NotFound("order.FindByPaymentCode", "no order for payment %q", paymentCode)
}

func (r *MemoryRepository) List(_ context.Context, filter ListFilter) ([]Order, int64, error) {
	filter = filter.normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Order
	for _, o := range r.orders {
		if filter.UserID != 0 && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		matched = append(matched, o)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]Order, 0, end-start)
	for _, o := range matched[start:end] {
		out = append(out, *cloneOrder(o))
	}
	return out, total, nil
}

func (r *MemoryRepository) UpdateStatus(_ context.Context, id uint, from, to Status, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return apperror.NotFound("order.UpdateStatus", "order %d not found", id)
	}
	if o.Status != from {
		return apperror.InvalidTransition("order.UpdateStatus", "order %d is no longer %s", id, from)
	}
	o.Status = to
	o.UpdatedAt = at
	if to == StatusCompleted {
		completed := at
		o.CompletedAt = &completed
	}
	return nil
}

func (r *MemoryRepository) UpdateTransaction(_ context.Context, orderID uint, status TransactionStatus, paymentCode string, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[orderID]
	if !ok || o.Transaction == nil {
		return apperror.NotFound("order.UpdateTransaction", "transaction of order %d not found", orderID)
	}
	o.Transaction.Status = status
	o.Transaction.UpdatedAt = time.Now().UTC()
	if paymentCode != "" {
		o.Transaction.PaymentCode = paymentCode
	}
	if paidAt != nil {
		paid := *paidAt
		o.Transaction.PaidAt = &paid
	}
	return nil
}

func (r *MemoryRepository) AppendHistory(_ context.Context, h *StatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[h.OrderID]
	if !ok {
		return apperror.NotFound("order.AppendHistory", "order %d not found", h.OrderID)
	}
	h.ID = r.next("history")
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	o.StatusHistory = append(o.StatusHistory, *h)
	return nil
}

func (r *MemoryRepository) RelinkCode(_ context.Context, linkID, codeID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, o := range r.orders {
		for i := range o.Items {
			for j := range o.Items[i].CodeLinks {
				if o.Items[i].CodeLinks[j].ID == linkID {
					o.Items[i].CodeLinks[j].CodeID = codeID
					return nil
				}
			}
		}
	}
	return apperror.NotFound("order.RelinkCode", "item code link %d not found", linkID)
}

func (r *MemoryRepository) ListStale(_ context.Context, before time.Time, limit int) ([]uint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*Order
	for _, o := range r.orders {
		if o.Status == StatusPending && o.CreatedAt.Before(before) {
			stale = append(stale, o)
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].CreatedAt.Before(stale[j].CreatedAt) })
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}

	ids := make([]uint, len(stale))
	for i, o := range stale {
		ids[i] = o.ID
	}
	return ids, nil
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Items = make([]Item, len(o.Items))
	for i, item := range o.Items {
		item.CodeLinks = append([]ItemCode(nil), item.CodeLinks...)
		item.Codes = append([]RevealedCode(nil), item.Codes...)
		c.Items[i] = item
	}
	if o.Transaction != nil {
		txn := *o.Transaction
		c.Transaction = &txn
	}
	c.StatusHistory = append([]StatusHistory(nil), o.StatusHistory...)
	return &c
}
