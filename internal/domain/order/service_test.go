package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/config"
	"github.com/your-org/giftcard-backend/internal/domain/cart"
	"github.com/your-org/giftcard-backend/internal/domain/catalog"
	"github.com/your-org/giftcard-backend/internal/domain/inventory"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/dbtx"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
)

type fakeGateway struct {
	err   error
	calls int
}

func (g *fakeGateway) InitiatePayment(_ context.Context, o *Order) (*PaymentSession, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	ref := fmt.Sprintf("pay_%d", o.ID)
	return &PaymentSession{Reference: ref, RedirectURL: "https://pay.example.com/" + ref}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []*Order
}

func (n *recordingNotifier) OrderCompleted(_ context.Context, o *Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, o)
	return nil
}

type fixture struct {
	svc       *Service
	catalog   *catalog.Service
	inventory *inventory.Service
	carts     *cart.Service
	gateway   *fakeGateway
	notifier  *recordingNotifier
	cfg       *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := logger.Discard()

	cfg := &config.Config{
		Store: config.StoreConfig{
			OrderPaymentTTL:  30 * time.Minute,
			RefundCodePolicy: config.RefundKeepUsed,
		},
		Payment: config.PaymentConfig{AsyncMethods: []string{"razorpay"}},
	}

	catalogSvc := catalog.NewService(catalog.NewMemoryRepository(), "USD", log)
	inventorySvc := inventory.NewService(inventory.NewMemoryStore(), 2, log)
	cartSvc := cart.NewService(cart.NewMemoryRepository(), catalogSvc, log)

	svc := NewService(dbtx.NopTransactor{}, NewMemoryRepository(), inventorySvc, cartSvc, catalogSvc, cfg, log)
	gateway := &fakeGateway{}
	notifier := &recordingNotifier{}
	svc.SetPaymentInitiator(gateway)
	svc.SetNotifier(notifier)

	return &fixture{
		svc:       svc,
		catalog:   catalogSvc,
		inventory: inventorySvc,
		carts:     cartSvc,
		gateway:   gateway,
		notifier:  notifier,
		cfg:       cfg,
	}
}

var codeSeq int

// variant creates a live variant holding stock UNUSED codes
func (f *fixture) variant(t *testing.T, price string, stock int) uint {
	t.Helper()
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, &catalog.ProductRequest{Name: "Steam", Brand: "Valve"})
	require.NoError(t, err)
	v, err := f.catalog.CreateVariant(ctx, p.ID, &catalog.VariantRequest{
		Value: decimal.NewFromInt(10),
		Price: decimal.RequireFromString(price),
	})
	require.NoError(t, err)

	if stock > 0 {
		in := make([]inventory.CodeInput, stock)
		for i := range in {
			codeSeq++
			in[i] = inventory.CodeInput{Code: fmt.Sprintf("CODE-%05d", codeSeq)}
		}
		_, err = f.inventory.AddStock(ctx, inventory.AddStockRequest{VariantID: v.ID, Codes: in})
		require.NoError(t, err)
	}
	return v.ID
}

func (f *fixture) addToCart(t *testing.T, key string, variantID uint, quantity int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), key, &cart.AddItemRequest{VariantID: variantID, Quantity: quantity})
	require.NoError(t, err)
}

func (f *fixture) counts(t *testing.T, variantID uint) inventory.StatusCounts {
	t.Helper()
	stock, err := f.inventory.Status(context.Background(), variantID)
	require.NoError(t, err)
	return stock.Counts
}

func (f *fixture) place(t *testing.T, variantID uint, quantity int, method string) *Order {
	t.Helper()
	key := cart.UserKey(1)
	f.addToCart(t, key, variantID, quantity)
	res, err := f.svc.Create(context.Background(), 1, "buyer@example.com", key, &CreateRequest{PaymentMethod: method})
	require.NoError(t, err)
	return res.Order
}

func TestStatusTransitionTable(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusCompleted))
	assert.True(t, StatusPending.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusPending.CanTransitionTo(StatusFailed))
	assert.True(t, StatusCompleted.CanTransitionTo(StatusRefunded))

	assert.False(t, StatusPending.CanTransitionTo(StatusRefunded))
	assert.False(t, StatusPending.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusFailed.CanTransitionTo(StatusCompleted))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusPending))
	assert.False(t, StatusRefunded.CanTransitionTo(StatusCompleted))
}

func TestCreateAllocatesAndCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "9.99", 5)

	o := f.place(t, variantID, 2, "cod")
	assert.Equal(t, StatusPending, o.Status)
	assert.Regexp(t, `^GC-\d{8}-\d{6}$`, o.OrderNumber)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("19.98")))
	require.NotNil(t, o.Transaction)
	assert.Equal(t, TransactionPending, o.Transaction.Status)
	assert.Len(t, o.CodeIDs(), 2)

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.PendingPayment)
	assert.EqualValues(t, 3, counts.Unused)

	// The cart is cleared once the order exists.
	c, err := f.carts.GetCart(ctx, cart.UserKey(1))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	// Codes stay hidden until completion.
	got, err := f.svc.GetForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Empty(t, got.Items[0].Codes)

	completed, err := f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, TransactionPaid, completed.Transaction.Status)
	assert.NotNil(t, completed.Transaction.PaidAt)
	assert.Len(t, completed.Items[0].Codes, 2)
	assert.Len(t, completed.StatusHistory, 2)

	counts = f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.Used)
	assert.EqualValues(t, 3, counts.Unused)
	assert.Zero(t, counts.PendingPayment)

	require.Len(t, f.notifier.orders, 1)
	assert.Equal(t, o.ID, f.notifier.orders[0].ID)
}

func TestCancelBeforeCompletionReturnsStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 5)

	o := f.place(t, variantID, 2, "cod")
	cancelled, err := f.svc.CancelForUser(ctx, o.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, TransactionFailed, cancelled.Transaction.Status)

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 5, counts.Unused)
	assert.Zero(t, counts.PendingPayment)

	_, err = f.svc.CancelForUser(ctx, o.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestCancelOtherUsersOrderIsNotFound(t *testing.T) {
	f := newFixture(t)
	o := f.place(t, f.variant(t, "5.00", 1), 1, "cod")

	_, err := f.svc.CancelForUser(context.Background(), o.ID, 2)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCheckoutWithInsufficientStockKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	plenty := f.variant(t, "5.00", 4)
	scarce := f.variant(t, "7.00", 2)

	key := cart.UserKey(1)
	f.addToCart(t, key, plenty, 2)
	f.addToCart(t, key, scarce, 3)

	_, err := f.svc.Create(ctx, 1, "buyer@example.com", key, &CreateRequest{PaymentMethod: "cod"})
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	// Codes reserved for the first line were released.
	assert.EqualValues(t, 4, f.counts(t, plenty).Unused)
	assert.EqualValues(t, 2, f.counts(t, scarce).Unused)

	c, err := f.carts.GetCart(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 5, c.TotalItems)

	list, err := f.svc.List(ctx, ListFilter{UserID: 1})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestCreateRejectsEmptyCartAndMissingMethod(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.Create(ctx, 1, "", cart.UserKey(1), &CreateRequest{PaymentMethod: "cod"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.Create(ctx, 1, "", cart.UserKey(1), &CreateRequest{PaymentMethod: " "})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestOrderPricesAreSnapshots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "10.00", 3)

	o := f.place(t, variantID, 1, "cod")

	_, err := f.catalog.UpdateVariant(ctx, variantID, &catalog.VariantRequest{
		Value: decimal.NewFromInt(10),
		Price: decimal.RequireFromString("12.00"),
	})
	require.NoError(t, err)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(10)))
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(10)))
}

func TestAsyncPaymentRedirectAndCallback(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 2)

	key := cart.UserKey(1)
	f.addToCart(t, key, variantID, 1)
	res, err := f.svc.Create(ctx, 1, "buyer@example.com", key, &CreateRequest{PaymentMethod: "Razorpay"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.gateway.calls)
	ref := fmt.Sprintf("pay_%d", res.Order.ID)
	assert.Equal(t, "https://pay.example.com/"+ref, res.RedirectURL)

	completed, err := f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Success: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)

	// Redelivery of the same outcome is accepted.
	again, err := f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Success: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.EqualValues(t, 1, f.counts(t, variantID).Used)

	_, err = f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Success: false})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestPaymentInitiationFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gateway.err = errors.New("gateway down")
	variantID := f.variant(t, "5.00", 2)

	key := cart.UserKey(1)
	f.addToCart(t, key, variantID, 1)
	_, err := f.svc.Create(ctx, 1, "buyer@example.com", key, &CreateRequest{PaymentMethod: "razorpay"})
	require.Error(t, err)

	c, err := f.carts.GetCart(ctx, key)
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())
	assert.EqualValues(t, 2, f.counts(t, variantID).Unused)

	list, err := f.svc.List(ctx, ListFilter{Status: StatusFailed})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
}

func TestRefundOnlyFromCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 3)

	o := f.place(t, variantID, 1, "cod")
	_, err := f.svc.Refund(ctx, o.ID, AdminActor("ops@example.com"), "")
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.EqualValues(t, 1, f.counts(t, variantID).PendingPayment)

	_, err = f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	refunded, err := f.svc.Refund(ctx, o.ID, AdminActor("ops@example.com"), "customer complaint")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, refunded.Status)
	assert.Equal(t, TransactionRefunded, refunded.Transaction.Status)
	assert.Empty(t, refunded.Items[0].Codes)

	// Revealed codes never return to stock.
	counts := f.counts(t, variantID)
	assert.EqualValues(t, 1, counts.Used)
	assert.EqualValues(t, 2, counts.Unused)

	_, err = f.svc.Cancel(ctx, o.ID, ActorSystem)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestRefundMarkErrorPolicy(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.cfg.Store.RefundCodePolicy = config.RefundMarkError
	variantID := f.variant(t, "5.00", 2)

	o := f.place(t, variantID, 2, "cod")
	_, err := f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	_, err = f.svc.Refund(ctx, o.ID, ActorSystem, "")
	require.NoError(t, err)

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.Error)
	assert.Zero(t, counts.Used)
}

func TestChangeStatusFollowsTransitionTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 4)
	admin := AdminActor("ops@example.com")

	o := f.place(t, variantID, 2, "cod")

	_, err := f.svc.ChangeStatus(ctx, o.ID, &ChangeStatusRequest{Status: "shipped"}, admin)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.ChangeStatus(ctx, o.ID, &ChangeStatusRequest{Status: "PENDING"}, admin)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)

	// A forced cancellation still releases codes.
	forced, err := f.svc.ChangeStatus(ctx, o.ID, &ChangeStatusRequest{Status: "cancelled", Comment: "fraud"}, admin)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, forced.Status)
	assert.EqualValues(t, 4, f.counts(t, variantID).Unused)
	last := forced.StatusHistory[len(forced.StatusHistory)-1]
	assert.Equal(t, "fraud", last.Comment)
	assert.Equal(t, admin, last.Actor)

	for _, target := range []string{"COMPLETED", "FAILED", "REFUNDED", "PENDING"} {
		_, err := f.svc.ChangeStatus(ctx, o.ID, &ChangeStatusRequest{Status: target}, admin)
		assert.ErrorIsf(t, err, apperror.ErrInvalidTransition, "target %s", target)
	}
	assert.EqualValues(t, 4, f.counts(t, variantID).Unused)
}

func TestCompletionReplacesCodesFlaggedAsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 3)

	o := f.place(t, variantID, 2, "cod")
	flaggedID := o.CodeIDs()[0]
	require.NoError(t, f.inventory.MarkError(ctx, []uint{flaggedID}))
	flagged, err := f.inventory.GetCodes(ctx, []uint{flaggedID})
	require.NoError(t, err)
	require.Len(t, flagged, 1)

	completed, err := f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.NotContains(t, completed.CodeIDs(), flaggedID)

	require.Len(t, completed.Items, 1)
	require.Len(t, completed.Items[0].Codes, 2)
	for _, c := range completed.Items[0].Codes {
		assert.NotEqual(t, flagged[0].Code, c.Code)
	}

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.Used)
	assert.EqualValues(t, 1, counts.Error)
	assert.EqualValues(t, 0, counts.Unused)

	require.Len(t, f.notifier.orders, 1)
	assert.Len(t, f.notifier.orders[0].Items[0].Codes, 2)
}

func TestCompletionWithoutReplacementStockStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 2)

	o := f.place(t, variantID, 2, "cod")
	require.NoError(t, f.inventory.MarkError(ctx, o.CodeIDs()[:1]))

	_, err := f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	assert.ErrorIs(t, err, apperror.ErrInsufficientStock)

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, o.CodeIDs(), got.CodeIDs())

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 1, counts.PendingPayment)
	assert.EqualValues(t, 1, counts.Error)
	assert.Empty(t, f.notifier.orders)

	// Cancelling still returns the healthy code and keeps the flagged one out.
	_, err = f.svc.Cancel(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	counts = f.counts(t, variantID)
	assert.EqualValues(t, 1, counts.Unused)
	assert.EqualValues(t, 1, counts.Error)
}

func TestRevealHidesCodesFlaggedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 2)

	o := f.place(t, variantID, 2, "cod")
	_, err := f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
	require.NoError(t, err)
	require.NoError(t, f.inventory.MarkError(ctx, o.CodeIDs()[:1]))

	got, err := f.svc.Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items[0].Codes, 1)
}

func TestFailedPaymentAttemptAllowsRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 2)

	key := cart.UserKey(1)
	f.addToCart(t, key, variantID, 2)
	res, err := f.svc.Create(ctx, 1, "buyer@example.com", key, &CreateRequest{PaymentMethod: "razorpay"})
	require.NoError(t, err)
	ref := fmt.Sprintf("pay_%d", res.Order.ID)

	pending, err := f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Attempt: true, Reason: "card declined"})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, pending.Status)
	require.NotNil(t, pending.Transaction)
	assert.Equal(t, TransactionFailed, pending.Transaction.Status)
	assert.EqualValues(t, 2, f.counts(t, variantID).PendingPayment)

	completed, err := f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Success: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
	assert.Equal(t, TransactionPaid, completed.Transaction.Status)
	assert.EqualValues(t, 2, f.counts(t, variantID).Used)

	// A late report of the earlier attempt changes nothing.
	late, err := f.svc.HandlePaymentResult(ctx, PaymentResult{Reference: ref, Attempt: true})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, late.Status)
	assert.Equal(t, TransactionPaid, late.Transaction.Status)
}

func TestExpireStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 3)

	now := time.Now().UTC()
	f.svc.Now = func() time.Time { return now.Add(-time.Hour) }
	old := f.place(t, variantID, 1, "cod")
	f.svc.Now = func() time.Time { return now }
	fresh := f.place(t, variantID, 1, "cod")

	expired, err := f.svc.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)

	got, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	counts := f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.Unused)
	assert.EqualValues(t, 1, counts.PendingPayment)
}

func TestConcurrentTransitionsOnOneOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "5.00", 2)
	o := f.place(t, variantID, 2, "cod")

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.svc.MarkCompleted(ctx, o.ID, ActorSystem)
			} else {
				_, err = f.svc.Cancel(ctx, o.ID, ActorSystem)
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	counts := f.counts(t, variantID)
	assert.EqualValues(t, 2, counts.InStock())
	assert.Zero(t, counts.PendingPayment)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	variantID := f.variant(t, "1.00", 5)
	for i := 0; i < 5; i++ {
		f.place(t, variantID, 1, "cod")
	}

	page, err := f.svc.List(ctx, ListFilter{UserID: 1, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Orders, 2)
	assert.EqualValues(t, 5, page.Pagination.Total)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)

	_, err = f.svc.List(ctx, ListFilter{Status: "lost"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
