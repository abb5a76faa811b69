package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func approvedDonation(t *testing.T, s *Store, id string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.CreateDonation(ctx, &models.DonationRecord{
		Id:          id,
		DonorId:     "donor-1",
		Items:       []models.DonationItem{{Name: "rice", Quantity: 2, EstimatedValue: 100}},
		Category:    "food",
		AdminStatus: models.AdminPending,
		CreatedAt:   t0,
	}))
	_, err := s.ReviewDonation(ctx, id, models.AdminApproved, "", t0)
	require.NoError(t, err)
}

func TestAcceptDonation(t *testing.T) {
	t.Run("Exactly One Winner", func(t *testing.T) {
		s := NewStore()
		approvedDonation(t, s, "d1")

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				_, err := s.AcceptDonation(context.Background(), "d1", "ngo-"+string(rune('a'+n)), t0)
				if err == nil {
					wins.Add(1)
					return
				}
				assert.ErrorIs(t, err, storage.ErrConditionFailed)
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		d, err := s.GetDonation(context.Background(), "d1")
		require.NoError(t, err)
		assert.True(t, d.IsAccepted())
		assert.Equal(t, models.DeliveryNotPickedUp, d.DeliveryStatus)
		assert.False(t, d.IsActive)
	})

	t.Run("Pending Donation", func(t *testing.T) {
		s := NewStore()
		require.NoError(t, s.CreateDonation(context.Background(), &models.DonationRecord{Id: "d2", AdminStatus: models.AdminPending}))

		_, err := s.AcceptDonation(context.Background(), "d2", "ngo-a", t0)
		assert.ErrorIs(t, err, storage.ErrConditionFailed)
	})

	t.Run("Not Found", func(t *testing.T) {
		_, err := NewStore().AcceptDonation(context.Background(), "missing", "ngo-a", t0)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestAdvanceDelivery(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	approvedDonation(t, s, "d1")
	_, err := s.AcceptDonation(ctx, "d1", "ngo-a", t0)
	require.NoError(t, err)

	_, err = s.AdvanceDelivery(ctx, "d1", "ngo-b", models.DeliveryNotPickedUp, models.DeliveryPickedUp, t0)
	assert.ErrorIs(t, err, storage.ErrConditionFailed)

	d, err := s.AdvanceDelivery(ctx, "d1", "ngo-a", models.DeliveryNotPickedUp, models.DeliveryPickedUp, t0)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryPickedUp, d.DeliveryStatus)
	require.NotNil(t, d.PickupDate)

	_, err = s.AdvanceDelivery(ctx, "d1", "ngo-a", models.DeliveryNotPickedUp, models.DeliveryPickedUp, t0)
	assert.ErrorIs(t, err, storage.ErrConditionFailed)
}

func TestFundingSlot(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateFundingRequest(ctx, &models.FundingRequest{Id: "f1", NgoId: "ngo-a", AdminStatus: models.FundingPending}))

	err := s.CreateFundingRequest(ctx, &models.FundingRequest{Id: "f2", NgoId: "ngo-a", AdminStatus: models.FundingPending})
	assert.ErrorIs(t, err, storage.ErrOpenRequestExists)

	_, err = s.RejectFundingRequest(ctx, "f1", "no receipts", t0)
	require.NoError(t, err)

	assert.NoError(t, s.CreateFundingRequest(ctx, &models.FundingRequest{Id: "f2", NgoId: "ngo-a", AdminStatus: models.FundingPending}))
}

func TestCommitAllocation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.RecordContribution(ctx, &models.MonetaryDonation{Id: "c1", Amount: 10_000, Status: models.ContributionCompleted}))
	require.NoError(t, s.RecordContribution(ctx, &models.MonetaryDonation{Id: "c2", Amount: 500, Status: models.ContributionPending}))
	require.NoError(t, s.CreateFundingRequest(ctx, &models.FundingRequest{Id: "f1", NgoId: "ngo-a", RequestedAmount: 5000, AdminStatus: models.FundingPending}))

	snap, err := s.PoolSnapshot(ctx, "ngo-a", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(10_000), snap.Balance())

	t.Run("Stale Version", func(t *testing.T) {
		_, err := s.CommitAllocation(ctx, models.AllocationCommit{RequestId: "f1", Amount: 4000, ExpectedVersion: snap.Version + 1, At: t0})
		assert.ErrorIs(t, err, storage.ErrPoolVersionConflict)
	})

	t.Run("Success", func(t *testing.T) {
		r, err := s.CommitAllocation(ctx, models.AllocationCommit{RequestId: "f1", Amount: 4000, ExpectedVersion: snap.Version, At: t0})
		require.NoError(t, err)
		assert.Equal(t, models.FundingApproved, r.AdminStatus)

		after, err := s.PoolSnapshot(ctx, "ngo-a", t0)
		require.NoError(t, err)
		assert.Equal(t, snap.Version+1, after.Version)
		assert.Equal(t, int64(6000), after.Balance())
		assert.Equal(t, int64(4000), after.NgoAllocatedInMonth)

		u, err := s.GetUsage(ctx, "ngo-a")
		require.NoError(t, err)
		assert.Empty(t, u.OpenFundingRequestId)
	})

	t.Run("Already Approved", func(t *testing.T) {
		cur, err := s.PoolSnapshot(ctx, "", t0)
		require.NoError(t, err)
		_, err = s.CommitAllocation(ctx, models.AllocationCommit{RequestId: "f1", Amount: 1, ExpectedVersion: cur.Version, At: t0})
		assert.ErrorIs(t, err, storage.ErrConditionFailed)
	})
}

func TestUsageCounters(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.DecrementCounter(ctx, "ngo-a", models.LimitActiveRequests))
	u, _ := s.GetUsage(ctx, "ngo-a")
	assert.Equal(t, 0, u.ActiveRequests)

	require.NoError(t, s.IncrementCounter(ctx, "ngo-a", models.LimitMonthlyAccepted))
	require.NoError(t, s.IncrementCounter(ctx, "ngo-a", models.LimitActiveRequests))

	t.Run("Reset Exactly Once", func(t *testing.T) {
		var resets atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.ResetUsage(ctx, "ngo-a", time.Time{}, t0)
				assert.NoError(t, err)
				if ok {
					resets.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), resets.Load())
		u, _ := s.GetUsage(ctx, "ngo-a")
		assert.Equal(t, 0, u.MonthlyAcceptedItems)
		assert.Equal(t, 1, u.ActiveRequests)
		assert.True(t, u.LastResetDate.Equal(t0))
	})
}

func TestCloseItemRequest(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.CreateItemRequest(ctx, &models.ItemRequest{Id: "r1", Status: models.ItemRequestOpen}))

	r, err := s.CloseItemRequest(ctx, "r1", models.ItemRequestFulfilled, t0)
	require.NoError(t, err)
	assert.Equal(t, models.ItemRequestFulfilled, r.Status)

	_, err = s.CloseItemRequest(ctx, "r1", models.ItemRequestCancelled, t0)
	assert.ErrorIs(t, err, storage.ErrConditionFailed)
}
