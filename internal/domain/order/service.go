// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
)

const staleBatchSize = 100

// Inventory is the allocation surface the orchestrator drives
type Inventory interface {
	Allocate(ctx context.Context, variantID uint, quantity int) ([]inventory.ActivationCode, error)
	Confirm(ctx context.Context, ids []uint) error
	Release(ctx context.Context, ids []uint) error
	MarkError(ctx context.Context, ids []uint) error
	GetCodes(ctx context.Context, ids []uint) ([]inventory.ActivationCode, error)
}

// Carts loads and clears the cart being checked out
type Carts interface {
	GetCart(ctx context.Context, key string) (cart.Cart, error)
	Clear(ctx context.Context, key string) error
}

// VariantLookup resolves sellable variants at checkout time
type VariantLookup interface {
	GetLiveVariant(ctx context.Context, id uint) (*catalog.Variant, error)
}

// PaymentSession is returned by a gateway for asynchronous methods
type PaymentSession struct {
	Reference   string
	RedirectURL string
}

// PaymentInitiator starts a payment for a freshly placed order
type PaymentInitiator interface {
	InitiatePayment(ctx context.Context, o *Order) (*PaymentSession, error)
}

// Notifier is told about completed orders. Failures never undo the completion.
type Notifier interface {
	OrderCompleted(ctx context.Context, o *Order) error
}

// Service is the order orchestrator
type Service struct {
	tx        dbtx.Transactor
	repo      Repository
	inventory Inventory
	carts     Carts
	variants  VariantLookup
	payments  PaymentInitiator
	notifier  Notifier
	config    *config.Config
	logger    logrus.FieldLogger
	locks     *keyedMutex

	Now func() time.Time
}

// NewService creates a new order service
func NewService(
	tx dbtx.Transactor,
	repo Repository,
	inv Inventory,
	carts Carts,
	variants VariantLookup,
	cfg *config.Config,
	logger logrus.FieldLogger,
) *Service {
	return &Service{
		tx:        tx,
		repo:      repo,
		inventory: inv,
		carts:     carts,
		variants:  variants,
		config:    cfg,
		logger:    logger,
		locks:     newKeyedMutex(),
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetPaymentInitiator wires the gateway used for asynchronous payment methods
func (s *Service) SetPaymentInitiator(p PaymentInitiator) { s.payments = p }

// SetNotifier wires recipient delivery
func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

// CreateRequest represents order creation data
type CreateRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required"`
}

// PlaceResult is returned by Create
type PlaceResult struct {
	Order       *Order `json:"order"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// ChangeStatusRequest represents an administrative status override
type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

// PaymentResult is the outcome reported by a payment callback. A failed
// Attempt leaves the gateway order open for another try.
type PaymentResult struct {
	OrderID   uint
	Reference string
	Success   bool
	Attempt   bool
	Reason    string
}

// ListResponse represents order list with pagination
type ListResponse struct {
	Orders     []Order    `json:"orders"`
	Pagination Pagination `json:"pagination"`
}

// Pagination represents pagination information
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// Actors recorded in the status history
const ActorSystem = "system"

// UserActor names a customer in the status history
func UserActor(userID uint) string { return fmt.Sprintf("user:%d", userID) }

// AdminActor names an operator in the status history
func AdminActor(email string) string { return "admin:" + email }

// Create converts the cart into a PENDING order. Every line is allocated or
// none is, and the cart is only cleared once the order exists.
func (s *Service) Create(ctx context.Context, userID uint, email, cartKey string, req *CreateRequest) (*PlaceResult, error) {
	const op = "order.Create"

	method := strings.ToLower(strings.TrimSpace(req.PaymentMethod))
	if method == "" {
		return nil, apperror.Validation(op, "payment method is required")
	}

	c, err := s.carts.GetCart(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, apperror.Validation(op, "cart is empty")
	}

	var created *Order
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		o, err := s.place(ctx, c, userID, email, method)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"order_id":     created.ID,
		"order_number": created.OrderNumber,
		"user_id":      userID,
	})
	log.WithField("total", created.TotalAmount.StringFixed(2)).Info("order placed")

	result := &PlaceResult{Order: created}
	if s.payments != nil && s.config.IsAsyncPaymentMethod(method) {
		session, err := s.payments.InitiatePayment(ctx, created)
		if err != nil {
			log.WithError(err).Warn("payment initiation failed")
			if _, ferr := s.transition(ctx, created.ID, StatusFailed, ActorSystem, "payment initiation failed"); ferr != nil {
				log.WithError(ferr).Error("failed to mark order failed after payment initiation error")
			}
			return nil, apperror.Internal(op, fmt.Errorf("failed to initiate payment: %w", err))
		}
		if session.Reference != "" {
			if err := s.repo.UpdateTransaction(ctx, created.ID, TransactionPending, session.Reference, nil); err != nil {
				return nil, err
			}
			created.Transaction.PaymentCode = session.Reference
		}
		result.RedirectURL = session.RedirectURL
	}

	if err := s.carts.Clear(ctx, cartKey); err != nil {
		log.WithError(err).Warn("failed to clear cart after order placement")
	}
	return result, nil
}

// place allocates every cart line and persists the order. Codes reserved
// for earlier lines are released when a later step fails.
func (s *Service) place(ctx context.Context, c cart.Cart, userID uint, email, method string) (*Order, error) {
	const op = "order.Create"

	var allocated []uint
	fail := func(err error) (*Order, error) {
		if len(allocated) > 0 {
			if rerr := s.inventory.Release(ctx, allocated); rerr != nil {
				s.logger.WithError(rerr).WithField("code_ids", allocated).Error("failed to release codes of aborted order")
			}
		}
		return nil, err
	}

	var currency string
	total := decimal.Zero
	items := make([]Item, 0, len(c.Items))
	for _, line := range c.Items {
		if line.Quantity < 1 {
			return fail(apperror.Validation(op, "cart item %s has quantity %d", line.ID, line.Quantity))
		}

		v, err := s.variants.GetLiveVariant(ctx, line.VariantID)
		if err != nil {
			return fail(err)
		}
		if currency == "" {
			currency = v.Currency
		} else if v.Currency != currency {
			return fail(apperror.Validation(op, "cart mixes %s and %s", currency, v.Currency))
		}

		codes, err := s.inventory.Allocate(ctx, v.ID, line.Quantity)
		if err != nil {
			return fail(err)
		}
		links := make([]ItemCode, len(codes))
		for i, code := range codes {
			links[i] = ItemCode{CodeID: code.ID}
			allocated = append(allocated, code.ID)
		}

		subtotal := v.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		items = append(items, Item{
			ProductID:      v.ProductID,
			VariantID:      v.ID,
			ProductName:    v.ProductName(),
			Value:          v.Value,
			UnitPrice:      v.Price,
			Quantity:       line.Quantity,
			Subtotal:       subtotal,
			RecipientEmail: line.Email,
			RecipientName:  line.Name,
			GiftMessage:    line.Message,
			CodeLinks:      links,
		})
	}

	now := s.Now()
	o := &Order{
		UserID:        userID,
		Email:         email,
		PaymentMethod: method,
		Status:        StatusPending,
		TotalAmount:   total,
		Currency:      currency,
		CreatedAt:     now,
		Items:         items,
		Transaction: &Transaction{
			TransactionID: uuid.NewString(),
			PaymentMethod: method,
			Status:        TransactionPending,
			Amount:        total,
			Currency:      currency,
		},
		StatusHistory: []StatusHistory{{
			Status:    StatusPending,
			Comment:   "Order created",
			Actor:     UserActor(userID),
			CreatedAt: now,
		}},
	}
	if err := s.repo.Create(ctx, o); err != nil {
		return fail(err)
	}
	return o, nil
}

// MarkCompleted confirms the reserved codes and completes a PENDING order
func (s *Service) MarkCompleted(ctx context.Context, id uint, actor string) (*Order, error) {
	return s.transition(ctx, id, StatusCompleted, actor, "Payment confirmed")
}

// Cancel releases the reserved codes of a PENDING order
func (s *Service) Cancel(ctx context.Context, id uint, actor string) (*Order, error) {
	return s.transition(ctx, id, StatusCancelled, actor, "Order cancelled")
}

// CancelForUser cancels an order on behalf of the customer who placed it
func (s *Service) CancelForUser(ctx context.Context, id, userID uint) (*Order, error) {
	if _, err := s.ownedBy(ctx, "order.CancelForUser", id, userID); err != nil {
		return nil, err
	}
	return s.transition(ctx, id, StatusCancelled, UserActor(userID), "Cancelled by customer")
}

// MarkFailed releases the reserved codes of a PENDING order whose payment failed
func (s *Service) MarkFailed(ctx context.Context, id uint, reason string) (*Order, error) {
	if reason == "" {
		reason = "Payment failed"
	}
	return s.transition(ctx, id, StatusFailed, ActorSystem, reason)
}

// Refund records a refund of a COMPLETED order. Revealed codes never return to stock.
func (s *Service) Refund(ctx context.Context, id uint, actor, reason string) (*Order, error) {
	if reason == "" {
		reason = "Order refunded"
	}
	return s.transition(ctx, id, StatusRefunded, actor, reason)
}

// ChangeStatus is the administrative override. It is bound by the same
// transition table and side effects as every other path.
func (s *Service) ChangeStatus(ctx context.Context, id uint, req *ChangeStatusRequest, actor string) (*Order, error) {
	target := Status(strings.ToUpper(strings.TrimSpace(req.Status)))
	if !target.IsValid() {
		return nil, apperror.Validation("order.ChangeStatus", "unknown order status %q", req.Status)
	}
	comment := req.Comment
	if comment == "" {
		comment = fmt.Sprintf("Status changed to %s", target)
	}
	return s.transition(ctx, id, target, actor, comment)
}

// HandlePaymentResult applies a gateway callback. Repeated deliveries of the
// same outcome are accepted without effect.
func (s *Service) HandlePaymentResult(ctx context.Context, res PaymentResult) (*Order, error) {
	var (
		o   *Order
		err error
	)
	if res.OrderID != 0 {
		o, err = s.repo.Get(ctx, res.OrderID)
	} else {
		o, err = s.repo.FindByPaymentCode(ctx, res.Reference)
	}
	if err != nil {
		return nil, err
	}

	if !res.Success && res.Attempt {
		return s.recordFailedAttempt(ctx, o.ID, res.Reason)
	}

	target := StatusFailed
	if res.Success {
		target = StatusCompleted
	}
	if o.Status == target {
		return o, nil
	}

	if res.Success {
		return s.MarkCompleted(ctx, o.ID, ActorSystem)
	}
	return s.MarkFailed(ctx, o.ID, res.Reason)
}

// recordFailedAttempt marks the payment record FAILED while the order stays
// PENDING, so a retry can still complete it. The expiry job or an operator
// closes orders that are never paid. Attempts reported after the order left
// PENDING change nothing.
func (s *Service) recordFailedAttempt(ctx context.Context, id uint, reason string) (*Order, error) {
	if reason == "" {
		reason = "Payment failed"
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var current *Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			current = o
			return nil
		}

		if err := s.repo.UpdateTransaction(ctx, id, TransactionFailed, "", nil); err != nil {
			return err
		}
		if err := s.repo.AppendHistory(ctx, &StatusHistory{
			OrderID:   id,
			Status:    StatusPending,
			Comment:   "Payment attempt failed: " + reason,
			Actor:     ActorSystem,
			CreatedAt: s.Now(),
		}); err != nil {
			return err
		}

		current, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   current.Status,
		"reason":   reason,
	}).Info("payment attempt failed")
	return current, nil
}

// transition runs one status change and its code side effects as a single
// unit of work, serialized per order.
func (s *Service) transition(ctx context.Context, id uint, target Status, actor, comment string) (*Order, error) {
	const op = "order.transition"

	unlock := s.locks.Lock(id)
	defer unlock()

	var (
		from    Status
		updated *Order
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		o, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		from = o.Status
		if !o.Status.CanTransitionTo(target) {
			return apperror.InvalidTransition(op, "order %d cannot move from %s to %s", id, o.Status, target)
		}

		if err := s.applyCodeEffects(ctx, o, target); err != nil {
			return err
		}

		now := s.Now()
		if err := s.repo.UpdateStatus(ctx, id, o.Status, target, now); err != nil {
			return err
		}
		var paidAt *time.Time
		if target == StatusCompleted {
			paidAt = &now
		}
		if err := s.repo.UpdateTransaction(ctx, id, transactionStatusFor(target), "", paidAt); err != nil {
			return err
		}
		if err := s.repo.AppendHistory(ctx, &StatusHistory{
			OrderID:   id,
			Status:    target,
			Comment:   comment,
			Actor:     actor,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		updated, err = s.repo.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"from":     from,
		"to":       target,
		"actor":    actor,
	}).Info("order status changed")

	if target == StatusCompleted {
		if err := s.reveal(ctx, updated); err != nil {
			return nil, err
		}
		s.notifyCompleted(ctx, updated)
	}
	return updated, nil
}

func (s *Service) applyCodeEffects(ctx context.Context, o *Order, target Status) error {
	switch target {
	case StatusCompleted, StatusCancelled, StatusFailed:
		ids, flagged, err := s.reservedCodes(ctx, o)
		if err != nil {
			return err
		}
		if target == StatusCompleted && len(flagged) > 0 {
			replacements, err := s.replaceFlagged(ctx, o, flagged)
			if err != nil {
				return err
			}
			ids = append(ids, replacements...)
		}
		if len(ids) == 0 {
			return nil
		}
		if target == StatusCompleted {
			return s.inventory.Confirm(ctx, ids)
		}
		return s.inventory.Release(ctx, ids)

	case StatusRefunded:
		if s.config.Store.RefundCodePolicy != config.RefundMarkError {
			return nil
		}
		ids := o.CodeIDs()
		if len(ids) == 0 {
			return nil
		}
		return s.inventory.MarkError(ctx, ids)
	}
	return nil
}

// reservedCodes splits the order's codes into those still awaiting payment
// and those an operator flagged as ERROR. Flagged codes stay out of circulation.
func (s *Service) reservedCodes(ctx context.Context, o *Order) ([]uint, map[uint]bool, error) {
	ids := o.CodeIDs()
	if len(ids) == 0 {
		return nil, nil, nil
	}
	codes, err := s.inventory.GetCodes(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	reserved := make([]uint, 0, len(codes))
	flagged := make(map[uint]bool)
	for _, c := range codes {
		switch c.Status {
		case inventory.CodeStatusPendingPayment:
			reserved = append(reserved, c.ID)
		case inventory.CodeStatusError:
			flagged[c.ID] = true
		default:
			return nil, nil, apperror.InvalidTransition("order.transition",
				"activation code %d of order %d is %s", c.ID, o.ID, c.Status)
		}
	}
	return reserved, flagged, nil
}

// replaceFlagged allocates a fresh code of the same variant for every flagged
// code and moves the item's link onto it, so the buyer receives the full
// quantity. Without enough stock the completion fails and nothing is relinked.
func (s *Service) replaceFlagged(ctx context.Context, o *Order, flagged map[uint]bool) ([]uint, error) {
	var taken []uint
	fail := func(err error) ([]uint, error) {
		if len(taken) > 0 {
			if rerr := s.inventory.Release(ctx, taken); rerr != nil {
				s.logger.WithError(rerr).WithField("code_ids", taken).Error("failed to release replacement codes")
			}
		}
		return nil, err
	}

	type relink struct{ linkID, codeID uint }
	var relinks []relink
	for _, item := range o.Items {
		var links []ItemCode
		for _, link := range item.CodeLinks {
			if flagged[link.CodeID] {
				links = append(links, link)
			}
		}
		if len(links) == 0 {
			continue
		}

		codes, err := s.inventory.Allocate(ctx, item.VariantID, len(links))
		if err != nil {
			return fail(err)
		}
		for i, code := range codes {
			taken = append(taken, code.ID)
			relinks = append(relinks, relink{linkID: links[i].ID, codeID: code.ID})
		}
	}

	for _, r := range relinks {
		if err := s.repo.RelinkCode(ctx, r.linkID, r.codeID); err != nil {
			return fail(err)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"count":    len(taken),
	}).Warn("replaced activation codes flagged as error")
	return taken, nil
}

func (s *Service) notifyCompleted(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderCompleted(ctx, o); err != nil {
		s.logger.WithError(err).WithField("order_id", o.ID).Warn("failed to deliver gift notifications")
	}
}

// Get returns an order. Codes are attached only once it is COMPLETED.
func (s *Service) Get(ctx context.Context, id uint) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reveal(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetForUser returns an order placed by userID
func (s *Service) GetForUser(ctx context.Context, id, userID uint) (*Order, error) {
	o, err := s.ownedBy(ctx, "order.GetForUser", id, userID)
	if err != nil {
		return nil, err
	}
	if err := s.reveal(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ownedBy(ctx context.Context, op string, id, userID uint) (*Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsOwnedBy(userID) {
		return nil, apperror.NotFound(op, "order %d not found", id)
	}
	return o, nil
}

func (s *Service) reveal(ctx context.Context, o *Order) error {
	if o.Status != StatusCompleted {
		return nil
	}
	ids := o.CodeIDs()
	if len(ids) == 0 {
		return nil
	}
	codes, err := s.inventory.GetCodes(ctx, ids)
	if err != nil {
		return err
	}

	byID := make(map[uint]inventory.ActivationCode, len(codes))
	for _, c := range codes {
		byID[c.ID] = c
	}
	for i := range o.Items {
		item := &o.Items[i]
		item.Codes = make([]RevealedCode, 0, len(item.CodeLinks))
		for _, link := range item.CodeLinks {
			c, ok := byID[link.CodeID]
			if !ok || c.Status == inventory.CodeStatusError {
				continue
			}
			item.Codes = append(item.Codes, RevealedCode{
				Code:        c.Code,
				Serial:      c.Serial,
				ExpiresAt:   c.ExpiresAt,
				ActivatedAt: c.ActivatedAt,
			})
		}
	}
	return nil
}

// List returns orders matching filter, newest first
func (s *Service) List(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if filter.Status != "" {
		filter.Status = Status(strings.ToUpper(string(filter.Status)))
		if !filter.Status.IsValid() {
			return nil, apperror.Validation("order.List", "unknown order status %q", filter.Status)
		}
	}
	filter = filter.normalize()

	orders, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(filter.Limit) - 1) / int64(filter.Limit))
	return &ListResponse{
		Orders: orders,
		Pagination: Pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    filter.Page < totalPages,
			HasPrev:    filter.Page > 1,
		},
	}, nil
}

// ExpireStale fails PENDING orders older than the payment window. Orders
// that changed state meanwhile are skipped.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	before := s.Now().Add(-s.config.Store.OrderPaymentTTL)
	ids, err := s.repo.ListStale(ctx, before, staleBatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		_, err := s.transition(ctx, id, StatusFailed, ActorSystem, "Payment window expired")
		switch {
		case err == nil:
			expired++
		case errors.Is(err, apperror.ErrInvalidTransition):
			s.logger.WithField("order_id", id).Debug("order left PENDING before expiry")
		default:
			s.logger.WithError(err).WithField("order_id", id).Error("failed to expire order")
		}
	}
	return expired, nil
}
