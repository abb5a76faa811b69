// Package memory is a single-writer, in-process implementation of the
// storage ports. Every write holds one mutex, which makes each conditional
// write atomic with respect to every other.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

// Store implements storage.Storage in memory.
type Store struct {
	mu            sync.Mutex
	donations     map[string]models.DonationRecord
	funding       map[string]models.FundingRequest
	usage         map[string]models.SubscriptionUsage
	itemRequests  map[string]models.ItemRequest
	contributions map[string]models.MonetaryDonation
	poolVersion   int64
}

var _ storage.Storage = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		donations:     make(map[string]models.DonationRecord),
		funding:       make(map[string]models.FundingRequest),
		usage:         make(map[string]models.SubscriptionUsage),
		itemRequests:  make(map[string]models.ItemRequest),
		contributions: make(map[string]models.MonetaryDonation),
	}
}

func ptr[T any](v T) *T { return &v }

// cloneDonation copies the slices and pointers so callers never share state with the store.
func cloneDonation(d models.DonationRecord) *models.DonationRecord {
	out := d
	out.Items = append([]models.DonationItem(nil), d.Items...)
	out.MediaRefs = append([]string(nil), d.MediaRefs...)
	if d.AcceptedBy != nil {
		out.AcceptedBy = ptr(*d.AcceptedBy)
	}
	return &out
}

// --- donations ---

func (s *Store) CreateDonation(_ context.Context, d *models.DonationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.donations[d.Id]; ok {
		return storage.ErrDuplicate
	}
	s.donations[d.Id] = *cloneDonation(*d)
	return nil
}

func (s *Store) GetDonation(_ context.Context, id string) (*models.DonationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneDonation(d), nil
}

func (s *Store) ListDonationsByDonor(_ context.Context, donorID string) ([]models.DonationRecord, error) {
	return s.listDonations(func(d models.DonationRecord) bool { return d.DonorId == donorID }), nil
}

func (s *Store) ListAvailableDonations(_ context.Context) ([]models.DonationRecord, error) {
	return s.listDonations(func(d models.DonationRecord) bool {
		return d.AdminStatus == models.AdminApproved && !d.IsAccepted()
	}), nil
}

func (s *Store) listDonations(keep func(models.DonationRecord) bool) []models.DonationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DonationRecord, 0)
	for _, d := range s.donations {
		if keep(d) {
			out = append(out, *cloneDonation(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) ReviewDonation(_ context.Context, id string, status models.AdminStatus, reason string, at time.Time) (*models.DonationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if d.AdminStatus != models.AdminPending {
		return nil, storage.ErrConditionFailed
	}
	d.AdminStatus = status
	d.IsActive = status == models.AdminApproved
	d.RejectionReason = reason
	d.ReviewedAt = ptr(at)
	d.UpdatedAt = at
	s.donations[id] = d
	return cloneDonation(d), nil
}

func (s *Store) AcceptDonation(_ context.Context, id, ngoID string, at time.Time) (*models.DonationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if d.AdminStatus != models.AdminApproved || d.IsAccepted() {
		return nil, storage.ErrConditionFailed
	}
	d.AcceptedBy = ptr(ngoID)
	d.AcceptedAt = ptr(at)
	d.IsActive = false
	d.DeliveryStatus = models.DeliveryNotPickedUp
	d.UpdatedAt = at
	s.donations[id] = d
	return cloneDonation(d), nil
}

func (s *Store) AdvanceDelivery(_ context.Context, id, ngoID string, from, to models.DeliveryStatus, at time.Time) (*models.DonationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.donations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !d.IsAccepted() || *d.AcceptedBy != ngoID || d.DeliveryStatus != from {
		return nil, storage.ErrConditionFailed
	}
	d.DeliveryStatus = to
	switch to {
	case models.DeliveryPickedUp:
		d.PickupDate = ptr(at)
	case models.DeliveryReceived:
		d.ReceivedDate = ptr(at)
	case models.DeliveryNotPickedUp:
	}
	d.UpdatedAt = at
	s.donations[id] = d
	return cloneDonation(d), nil
}

// --- funding ---

func (s *Store) GetFundingRequest(_ context.Context, id string) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.funding[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) ListFundingRequestsByNGO(_ context.Context, ngoID string) ([]models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.FundingRequest, 0)
	for _, r := range s.funding {
		if r.NgoId == ngoID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) CreateFundingRequest(_ context.Context, req *models.FundingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.funding[req.Id]; ok {
		return storage.ErrDuplicate
	}
	u := s.usageLocked(req.NgoId)
	if u.OpenFundingRequestId != "" {
		return storage.ErrOpenRequestExists
	}
	u.OpenFundingRequestId = req.Id
	s.usage[req.NgoId] = u
	s.funding[req.Id] = *req
	return nil
}

func (s *Store) MarkFundingUnderReview(_ context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.funding[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.AdminStatus != models.FundingPending {
		return nil, storage.ErrConditionFailed
	}
	r.AdminStatus = models.FundingUnderReview
	r.UpdatedAt = at
	s.funding[id] = r
	return &r, nil
}

func (s *Store) RejectFundingRequest(_ context.Context, id, reason string, at time.Time) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.funding[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !r.AdminStatus.IsOpen() {
		return nil, storage.ErrConditionFailed
	}
	r.AdminStatus = models.FundingRejected
	r.RejectionReason = reason
	r.AdminReviewedAt = ptr(at)
	r.UpdatedAt = at
	s.funding[id] = r
	s.releaseSlotLocked(r.NgoId, r.Id)
	return &r, nil
}

func (s *Store) CompleteFundingRequest(_ context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.funding[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.AdminStatus != models.FundingApproved {
		return nil, storage.ErrConditionFailed
	}
	r.AdminStatus = models.FundingCompleted
	r.CompletedAt = ptr(at)
	r.UpdatedAt = at
	s.funding[id] = r
	return &r, nil
}

func (s *Store) CommitAllocation(_ context.Context, c models.AllocationCommit) (*models.FundingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poolVersion != c.ExpectedVersion {
		return nil, storage.ErrPoolVersionConflict
	}
	r, ok := s.funding[c.RequestId]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !r.AdminStatus.IsOpen() {
		return nil, storage.ErrConditionFailed
	}
	r.AdminStatus = models.FundingApproved
	r.ApprovedAmount = c.Amount
	r.AdminReviewedAt = ptr(c.At)
	r.UpdatedAt = c.At
	s.funding[r.Id] = r
	s.releaseSlotLocked(r.NgoId, r.Id)
	s.poolVersion++
	return &r, nil
}

func (s *Store) releaseSlotLocked(ngoID, requestID string) {
	u, ok := s.usage[ngoID]
	if ok && u.OpenFundingRequestId == requestID {
		u.OpenFundingRequestId = ""
		s.usage[ngoID] = u
	}
}

// --- pool ---

func (s *Store) PoolSnapshot(_ context.Context, ngoID string, monthStart time.Time) (models.PoolSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := models.PoolSnapshot{Version: s.poolVersion}
	for _, c := range s.contributions {
		if c.Status == models.ContributionCompleted {
			snap.TotalDonations += c.Amount
		}
	}
	for _, r := range s.funding {
		if !r.AdminStatus.CountsAsAllocation() {
			continue
		}
		snap.TotalAllocations += r.ApprovedAmount
		if ngoID != "" && r.NgoId == ngoID && r.AdminReviewedAt != nil && !r.AdminReviewedAt.Before(monthStart) {
			snap.NgoAllocatedInMonth += r.ApprovedAmount
		}
	}
	return snap, nil
}

func (s *Store) RecordContribution(_ context.Context, d *models.MonetaryDonation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.contributions[d.Id]; ok {
		return storage.ErrDuplicate
	}
	s.contributions[d.Id] = *d
	return nil
}

func (s *Store) ListContributions(_ context.Context, limit int32) ([]models.MonetaryDonation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MonetaryDonation, 0, len(s.contributions))
	for _, c := range s.contributions {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// --- usage ---

func (s *Store) usageLocked(ngoID string) models.SubscriptionUsage {
	u, ok := s.usage[ngoID]
	if !ok {
		u = models.SubscriptionUsage{NgoId: ngoID}
	}
	return u
}

func (s *Store) GetUsage(_ context.Context, ngoID string) (*models.SubscriptionUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usageLocked(ngoID)
	return &u, nil
}

func (s *Store) ResetUsage(_ context.Context, ngoID string, observed, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usageLocked(ngoID)
	if !u.LastResetDate.Equal(observed) {
		return false, nil
	}
	u.MonthlyAcceptedItems = 0
	u.FinancialRequestsThisMonth = 0
	u.LastResetDate = now
	s.usage[ngoID] = u
	return true, nil
}

func (s *Store) IncrementCounter(_ context.Context, ngoID string, limit models.LimitType) error {
	return s.addCounter(ngoID, limit, 1)
}

func (s *Store) DecrementCounter(_ context.Context, ngoID string, limit models.LimitType) error {
	return s.addCounter(ngoID, limit, -1)
}

func (s *Store) addCounter(ngoID string, limit models.LimitType, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usageLocked(ngoID)
	var c *int
	switch limit {
	case models.LimitActiveRequests:
		c = &u.ActiveRequests
	case models.LimitMonthlyAccepted:
		c = &u.MonthlyAcceptedItems
	case models.LimitFinancialRequests:
		c = &u.FinancialRequestsThisMonth
	default:
		return storage.ErrConditionFailed
	}
	if *c+delta < 0 {
		return nil
	}
	*c += delta
	s.usage[ngoID] = u
	return nil
}

// SetUsage overwrites an NGO's usage record. Intended for seeding and tests.
func (s *Store) SetUsage(u models.SubscriptionUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[u.NgoId] = u
}

// --- item requests ---

func (s *Store) CreateItemRequest(_ context.Context, r *models.ItemRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.itemRequests[r.Id]; ok {
		return storage.ErrDuplicate
	}
	s.itemRequests[r.Id] = *r
	return nil
}

func (s *Store) GetItemRequest(_ context.Context, id string) (*models.ItemRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.itemRequests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return &r, nil
}

func (s *Store) CloseItemRequest(_ context.Context, id string, status models.ItemRequestStatus, at time.Time) (*models.ItemRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.itemRequests[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if r.Status != models.ItemRequestOpen {
		return nil, storage.ErrConditionFailed
	}
	r.Status = status
	r.ClosedAt = ptr(at)
	r.UpdatedAt = at
	s.itemRequests[id] = r
	return &r, nil
}
