package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/chris/donation-broker/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)

// conflictingStore loses the first n commits to a concurrent allocation.
type conflictingStore struct {
	*memory.Store
	mu        sync.Mutex
	conflicts int
	commits   int
}

func (s *conflictingStore) CommitAllocation(ctx context.Context, c models.AllocationCommit) (*models.FundingRequest, error) {
	s.mu.Lock()
	s.commits++
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return nil, storage.ErrPoolVersionConflict
	}
	s.mu.Unlock()
	return s.Store.CommitAllocation(ctx, c)
}

func newAccountant(store Store) *Accountant {
	a := NewAccountant(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.Now = func() time.Time { return clock }
	return a
}

func fund(t *testing.T, a *Accountant, amount int64) {
	t.Helper()
	_, err := a.RecordContribution(context.Background(), &models.MonetaryDonation{
		DonorId: "donor-1",
		Amount:  amount,
		Status:  models.ContributionCompleted,
	})
	require.NoError(t, err)
}

func TestApproveAllocation(t *testing.T) {
	ctx := context.Background()

	t.Run("Pool Cannot Go Negative", func(t *testing.T) {
		// Arrange
		a := newAccountant(memory.NewStore())
		fund(t, a, 10_000)
		first, err := a.SubmitRequest(ctx, "ngo-silver", 2, 4_000, "school kits")
		require.NoError(t, err)

		// Act
		approved, err := a.ApproveAllocation(ctx, first.Id, 4_000)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, models.FundingApproved, approved.AdminStatus)
		assert.Equal(t, int64(4_000), approved.ApprovedAmount)
		balance, err := a.AvailableBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(6_000), balance)

		second, err := a.SubmitRequest(ctx, "ngo-silver", 2, 7_000, "winter relief")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, second.Id, 7_000)

		var ipb *apperrors.InsufficientPoolBalanceError
		require.True(t, errors.As(err, &ipb))
		assert.Equal(t, int64(7_000), ipb.Requested)
		assert.Equal(t, int64(6_000), ipb.Available)

		unchanged, err := a.Get(ctx, second.Id)
		require.NoError(t, err)
		assert.Equal(t, models.FundingPending, unchanged.AdminStatus)
		balance, _ = a.AvailableBalance(ctx)
		assert.Equal(t, int64(6_000), balance)
	})

	t.Run("Monthly Cap", func(t *testing.T) {
		a := newAccountant(memory.NewStore())
		fund(t, a, 100_000)
		first, err := a.SubmitRequest(ctx, "ngo-silver", 2, 15_000, "rent")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, first.Id, 15_000)
		require.NoError(t, err)

		second, err := a.SubmitRequest(ctx, "ngo-silver", 2, 6_000, "utilities")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, second.Id, 6_000)

		var capErr *apperrors.MonthlyFundingCapExceededError
		require.True(t, errors.As(err, &capErr))
		assert.Equal(t, int64(20_000), capErr.Cap)
		assert.Equal(t, int64(15_000), capErr.AlreadyApproved)

		// A partial amount inside the remaining cap is fine.
		_, err = a.ApproveAllocation(ctx, second.Id, 5_000)
		assert.NoError(t, err)
	})

	t.Run("Cap Resets With Calendar Month", func(t *testing.T) {
		store := memory.NewStore()
		a := newAccountant(store)
		fund(t, a, 100_000)
		first, err := a.SubmitRequest(ctx, "ngo-silver", 2, 20_000, "rent")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, first.Id, 20_000)
		require.NoError(t, err)

		a.Now = func() time.Time { return clock.AddDate(0, 1, 0) }
		second, err := a.SubmitRequest(ctx, "ngo-silver", 2, 20_000, "rent")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, second.Id, 20_000)
		assert.NoError(t, err)
	})

	t.Run("Amount Bounds", func(t *testing.T) {
		a := newAccountant(memory.NewStore())
		fund(t, a, 10_000)
		req, err := a.SubmitRequest(ctx, "ngo-gold", 3, 1_000, "books")
		require.NoError(t, err)

		_, err = a.ApproveAllocation(ctx, req.Id, 0)
		assert.ErrorIs(t, err, apperrors.ErrValidation)

		_, err = a.ApproveAllocation(ctx, req.Id, 1_001)
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("Approved Twice", func(t *testing.T) {
		a := newAccountant(memory.NewStore())
		fund(t, a, 10_000)
		req, err := a.SubmitRequest(ctx, "ngo-gold", 3, 1_000, "books")
		require.NoError(t, err)
		_, err = a.ApproveAllocation(ctx, req.Id, 1_000)
		require.NoError(t, err)

		_, err = a.ApproveAllocation(ctx, req.Id, 1_000)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	})

	t.Run("Retries Version Conflicts", func(t *testing.T) {
		store := &conflictingStore{Store: memory.NewStore(), conflicts: 2}
		a := newAccountant(store)
		fund(t, a, 10_000)
		req, err := a.SubmitRequest(ctx, "ngo-gold", 3, 1_000, "books")
		require.NoError(t, err)

		_, err = a.ApproveAllocation(ctx, req.Id, 1_000)

		assert.NoError(t, err)
		assert.Equal(t, 3, store.commits)
	})

	t.Run("Gives Up After Bounded Attempts", func(t *testing.T) {
		store := &conflictingStore{Store: memory.NewStore(), conflicts: MaxCommitAttempts}
		a := newAccountant(store)
		fund(t, a, 10_000)
		req, err := a.SubmitRequest(ctx, "ngo-gold", 3, 1_000, "books")
		require.NoError(t, err)

		_, err = a.ApproveAllocation(ctx, req.Id, 1_000)

		assert.ErrorIs(t, err, storage.ErrConcurrentModification)
		got, _ := a.Get(ctx, req.Id)
		assert.Equal(t, models.FundingPending, got.AdminStatus)
	})
}

func TestConcurrentApprovalsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	a := newAccountant(memory.NewStore())
	fund(t, a, 10_000)

	const n = 12
	ids := make([]string, n)
	for i := range ids {
		req, err := a.SubmitRequest(ctx, fmt.Sprintf("ngo-%d", i), 4, 3_000, "relief")
		require.NoError(t, err)
		ids[i] = req.Id
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = a.ApproveAllocation(ctx, id, 3_000)
		}(i, id)
	}
	wg.Wait()

	approved := 0
	for _, err := range errs {
		switch {
		case err == nil:
			approved++
		case errors.Is(err, apperrors.ErrInsufficientPoolBalance), errors.Is(err, storage.ErrConcurrentModification):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	balance, err := a.AvailableBalance(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, balance, int64(0))
	assert.LessOrEqual(t, approved, 3)
	assert.Equal(t, int64(10_000-3_000*approved), balance)
}

func TestSubmitRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("Basic Tier Not Permitted", func(t *testing.T) {
		_, err := newAccountant(memory.NewStore()).SubmitRequest(ctx, "ngo-basic", 1, 100, "food")
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("One Open Request Per NGO", func(t *testing.T) {
		a := newAccountant(memory.NewStore())
		first, err := a.SubmitRequest(ctx, "ngo-1", 2, 100, "food")
		require.NoError(t, err)

		_, err = a.SubmitRequest(ctx, "ngo-1", 2, 100, "more food")
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

		_, err = a.MarkUnderReview(ctx, first.Id)
		require.NoError(t, err)
		_, err = a.Reject(ctx, first.Id, "missing budget")
		require.NoError(t, err)

		_, err = a.SubmitRequest(ctx, "ngo-1", 2, 100, "more food")
		assert.NoError(t, err)
	})

	t.Run("Validation", func(t *testing.T) {
		a := newAccountant(memory.NewStore())
		_, err := a.SubmitRequest(ctx, "ngo-1", 2, 0, "food")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		_, err = a.SubmitRequest(ctx, "ngo-1", 2, 10, " ")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		_, err = a.SubmitRequest(ctx, "ngo-1", 0, 10, "food")
		assert.ErrorIs(t, err, apperrors.ErrUnknownTier)
	})
}

func TestFundingTransitions(t *testing.T) {
	ctx := context.Background()
	a := newAccountant(memory.NewStore())
	fund(t, a, 5_000)
	req, err := a.SubmitRequest(ctx, "ngo-1", 3, 2_000, "clinic")
	require.NoError(t, err)

	_, err = a.Complete(ctx, req.Id)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	_, err = a.Reject(ctx, req.Id, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = a.ApproveAllocation(ctx, req.Id, 2_000)
	require.NoError(t, err)

	_, err = a.MarkUnderReview(ctx, req.Id)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	done, err := a.Complete(ctx, req.Id)
	require.NoError(t, err)
	assert.Equal(t, models.FundingCompleted, done.AdminStatus)

	// Completed allocations still count against the pool.
	balance, _ := a.AvailableBalance(ctx)
	assert.Equal(t, int64(3_000), balance)

	_, err = a.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRecordContribution(t *testing.T) {
	ctx := context.Background()
	a := newAccountant(memory.NewStore())

	d := &models.MonetaryDonation{Id: "pay-1", DonorId: "donor-1", Amount: 500, Status: models.ContributionCompleted}
	created, err := a.RecordContribution(ctx, d)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.ContributionsPartition, d.GSI1PK)

	created, err = a.RecordContribution(ctx, &models.MonetaryDonation{Id: "pay-1", DonorId: "donor-1", Amount: 500, Status: models.ContributionCompleted})
	require.NoError(t, err)
	assert.False(t, created)

	_, err = a.RecordContribution(ctx, &models.MonetaryDonation{Id: "pay-2", DonorId: "donor-1", Amount: 300, Status: models.ContributionPending})
	require.NoError(t, err)

	_, err = a.RecordContribution(ctx, &models.MonetaryDonation{DonorId: "donor-1", Amount: -1, Status: models.ContributionCompleted})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	balance, _ := a.AvailableBalance(ctx)
	assert.Equal(t, int64(500), balance)
}
