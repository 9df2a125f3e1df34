package inventory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/giftcard-backend/internal/pkg/apperror"
	"github.com/your-org/giftcard-backend/internal/pkg/logger"
)

func newTestService(threshold int) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	return NewService(store, threshold, logger.Discard()), store
}

func codes(values ...string) []CodeInput {
	out := make([]CodeInput, len(values))
	for i, v := range values {
		out[i] = CodeInput{Code: v}
	}
	return out
}

var codeSeq atomic.Int64

func seed(t *testing.T, svc *Service, variantID uint, n int) []ActivationCode {
	t.Helper()
	in := make([]CodeInput, n)
	for i := range in {
		seq := codeSeq.Add(1)
		in[i] = CodeInput{Code: fmt.Sprintf("V%d-CODE-%05d", variantID, seq), Serial: fmt.Sprintf("S%05d", seq)}
	}
	added, err := svc.AddStock(context.Background(), AddStockRequest{VariantID: variantID, Codes: in})
	require.NoError(t, err)
	return added
}

func ids(codes []ActivationCode) []uint {
	out := make([]uint, len(codes))
	for i, c := range codes {
		out[i] = c.ID
	}
	return out
}

func TestCodeStatusTransitions(t *testing.T) {
	assert.True(t, CodeStatusUnused.CanTransitionTo(CodeStatusPendingPayment))
	assert.True(t, CodeStatusPendingPayment.CanTransitionTo(CodeStatusUsed))
	assert.True(t, CodeStatusPendingPayment.CanTransitionTo(CodeStatusUnused))
	assert.True(t, CodeStatusUsed.CanTransitionTo(CodeStatusError))
	assert.True(t, CodeStatusUnused.CanTransitionTo(CodeStatusError))

	assert.False(t, CodeStatusUnused.CanTransitionTo(CodeStatusUsed))
	assert.False(t, CodeStatusUsed.CanTransitionTo(CodeStatusUnused))
	assert.False(t, CodeStatusError.CanTransitionTo(CodeStatusUnused))

	_, err := ParseCodeStatus("SOLD")
	assert.Error(t, err)
}

func TestAddStockRejectsInBatchDuplicates(t *testing.T) {
	svc, store := newTestService(2)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockRequest{VariantID: 7, Codes: codes("A1", "A2", "A1")})
	require.ErrorIs(t, err, apperror.ErrDuplicateCode)

	counts, err := store.Counts(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, counts.InStock())
}

func TestAddStockRejectsExistingCodeAtomically(t *testing.T) {
	svc, store := newTestService(2)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockRequest{VariantID: 1, Codes: codes("A1")})
	require.NoError(t, err)

	// Collides with a code of another variant: codes are unique system-wide.
	_, err = svc.AddStock(ctx, AddStockRequest{VariantID: 7, Codes: codes("B1", "A1", "B2")})
	require.ErrorIs(t, err, apperror.ErrDuplicateCode)

	counts, err := store.Counts(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, counts.InStock())
}

func TestAddStockValidation(t *testing.T) {
	svc, _ := newTestService(2)
	ctx := context.Background()

	_, err := svc.AddStock(ctx, AddStockRequest{VariantID: 1, Codes: codes("  ", "")})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	activated := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	expires := activated.AddDate(0, -1, 0)
	_, err = svc.AddStock(ctx, AddStockRequest{VariantID: 1, Codes: codes("X"), ActivatedAt: &activated, ExpiresAt: &expires})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestAllocateOldestFirstAllOrNothing(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	added := seed(t, svc, 3, 5)

	got, err := svc.Allocate(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, ids(added[:2]), ids(got))
	for _, c := range got {
		assert.Equal(t, CodeStatusPendingPayment, c.Status)
	}

	_, err = svc.Allocate(ctx, 3, 4)
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)

	stock, err := svc.Status(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stock.Counts.Unused)
	assert.Equal(t, int64(2), stock.Counts.PendingPayment)
}

func TestAllocateRejectsNonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(1)
	seed(t, svc, 1, 2)

	_, err := svc.Allocate(context.Background(), 1, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestInStockInvariantAcrossAllocateConfirmRelease(t *testing.T) {
	svc, store := newTestService(1)
	ctx := context.Background()
	seed(t, svc, 9, 6)

	total := func() int64 {
		c, err := store.Counts(ctx, 9)
		require.NoError(t, err)
		return c.InStock()
	}
	require.Equal(t, int64(6), total())

	first, err := svc.Allocate(ctx, 9, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total())

	require.NoError(t, svc.Confirm(ctx, ids(first[:2])))
	assert.Equal(t, int64(6), total())

	require.NoError(t, svc.Release(ctx, ids(first[2:])))
	assert.Equal(t, int64(6), total())

	second, err := svc.Allocate(ctx, 9, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Release(ctx, ids(second)))
	assert.Equal(t, int64(6), total())

	counts, err := store.Counts(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Unused: 4, Used: 2}, counts)
}

func TestConfirmAndReleaseRequirePendingPayment(t *testing.T) {
	svc, store := newTestService(1)
	ctx := context.Background()
	added := seed(t, svc, 2, 3)

	reserved, err := svc.Allocate(ctx, 2, 1)
	require.NoError(t, err)

	// One unused code in the batch rejects the whole confirm.
	err = svc.Confirm(ctx, []uint{reserved[0].ID, added[2].ID})
	require.ErrorIs(t, err, apperror.ErrInvalidTransition)

	got, err := store.GetCodes(ctx, []uint{reserved[0].ID})
	require.NoError(t, err)
	assert.Equal(t, CodeStatusPendingPayment, got[0].Status)

	require.NoError(t, svc.Confirm(ctx, ids(reserved)))
	assert.ErrorIs(t, svc.Release(ctx, ids(reserved)), apperror.ErrInvalidTransition)
}

func TestDeleteCode(t *testing.T) {
	svc, _ := newTestService(1)
	ctx := context.Background()
	added := seed(t, svc, 4, 3)

	reserved, err := svc.Allocate(ctx, 4, 1)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteCode(ctx, reserved[0].ID), apperror.ErrCodeInUse)

	require.NoError(t, svc.Confirm(ctx, ids(reserved)))
	assert.ErrorIs(t, svc.DeleteCode(ctx, reserved[0].ID), apperror.ErrCodeInUse)

	require.NoError(t, svc.DeleteCode(ctx, added[2].ID))
	assert.ErrorIs(t, svc.DeleteCode(ctx, added[2].ID), apperror.ErrNotFound)

	require.NoError(t, svc.MarkError(ctx, []uint{added[1].ID}))
	assert.NoError(t, svc.DeleteCode(ctx, added[1].ID))

	// A deleted code string can be imported again.
	_, err = svc.AddStock(ctx, AddStockRequest{VariantID: 4, Codes: codes(added[2].Code)})
	assert.NoError(t, err)
}

func TestConcurrentAllocateNeverOverdraws(t *testing.T) {
	svc, store := newTestService(1)
	ctx := context.Background()
	const stock = 10
	seed(t, svc, 5, stock)

	const workers = 16
	var (
		wg        sync.WaitGroup
		granted   atomic.Int64
		mu        sync.Mutex
		allocated = make(map[uint]int)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			got, err := svc.Allocate(ctx, 5, n)
			if err != nil {
				assert.ErrorIs(t, err, apperror.ErrInsufficientStock)
				return
			}
			granted.Add(int64(len(got)))
			mu.Lock()
			for _, c := range got {
				allocated[c.ID]++
			}
			mu.Unlock()
		}(1 + i%3)
	}
	wg.Wait()

	assert.LessOrEqual(t, granted.Load(), int64(stock))
	for id, n := range allocated {
		assert.Equalf(t, 1, n, "code %d allocated %d times", id, n)
	}

	counts, err := store.Counts(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, granted.Load(), counts.PendingPayment)
	assert.Equal(t, int64(stock), counts.InStock())
}

func TestSummaryAndAlerts(t *testing.T) {
	svc, store := newTestService(2)
	ctx := context.Background()
	seed(t, svc, 1, 3)
	seed(t, svc, 2, 1)

	summary, err := svc.Summary(ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, summary.Variants, 3)
	assert.False(t, summary.Variants[0].LowStock)
	assert.True(t, summary.Variants[1].LowStock)
	assert.True(t, summary.Variants[2].OutOfStock)
	assert.Equal(t, int64(4), summary.TotalAvailable)
	assert.Equal(t, 1, summary.LowStockCount)
	assert.Equal(t, 1, summary.OutOfStockCount)

	_, err = svc.Allocate(ctx, 2, 1)
	require.NoError(t, err)
	alerts, err := store.OpenAlerts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertOutOfStock, alerts[0].AlertType)

	seed(t, svc, 2, 5)
	alerts, err = store.OpenAlerts(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}
