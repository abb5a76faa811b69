package storage

import (
	"context"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// FundingReader defines the interface for reading funding requests.
type FundingReader interface {
	GetFundingRequest(ctx context.Context, id string) (*models.FundingRequest, error)
	ListFundingRequestsByNGO(ctx context.Context, ngoID string) ([]models.FundingRequest, error)
}

// FundingManager defines the state-changing funding operations.
type FundingManager interface {
	// CreateFundingRequest stores req and claims the NGO's open-request slot in
	// one atomic write. Returns ErrOpenRequestExists when the slot is taken.
	CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error

	// MarkFundingUnderReview moves a pending request to under_review.
	MarkFundingUnderReview(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error)

	// RejectFundingRequest rejects an open request and releases the NGO's slot.
	RejectFundingRequest(ctx context.Context, id, reason string, at time.Time) (*models.FundingRequest, error)

	// CompleteFundingRequest marks an approved request completed.
	CompleteFundingRequest(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error)

	// CommitAllocation approves an open request iff the pool version still equals
	// c.ExpectedVersion, advancing the version and releasing the NGO's slot in
	// the same atomic write. Returns ErrPoolVersionConflict or ErrConditionFailed.
	CommitAllocation(ctx context.Context, c models.AllocationCommit) (*models.FundingRequest, error)
}

// FundingStore combines the reader and manager interfaces.
type FundingStore interface {
	FundingReader
	FundingManager
}
