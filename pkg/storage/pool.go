package storage

import (
	"context"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// PoolReader computes the shared pool aggregates at call time.
type PoolReader interface {
	// PoolSnapshot reads the pool version first and then the sums, so any
	// allocation that lands in between is caught by CommitAllocation.
	// ngoID may be empty, in which case NgoAllocatedInMonth is zero.
	PoolSnapshot(ctx context.Context, ngoID string, monthStart time.Time) (models.PoolSnapshot, error)
}

// ContributionStore is the append-only ledger of money donations.
type ContributionStore interface {
	// RecordContribution inserts d. A second insert with the same ID returns ErrDuplicate.
	RecordContribution(ctx context.Context, d *models.MonetaryDonation) error

	// ListContributions retrieves the most recent contributions.
	ListContributions(ctx context.Context, limit int32) ([]models.MonetaryDonation, error)
}
