package storage

import (
	"context"
	"time"

	"github.com/chris/donation-broker/pkg/models"
)

// DonationReader defines the interface for reading item donations.
type DonationReader interface {
	// GetDonation retrieves a donation by its ID.
	GetDonation(ctx context.Context, id string) (*models.DonationRecord, error)

	// ListDonationsByDonor retrieves every donation submitted by a donor.
	ListDonationsByDonor(ctx context.Context, donorID string) ([]models.DonationRecord, error)

	// ListAvailableDonations retrieves approved donations no NGO has accepted yet.
	ListAvailableDonations(ctx context.Context) ([]models.DonationRecord, error)
}

// DonationManager defines the state-changing donation operations. Every
// transition is a conditional write; a guard that no longer holds yields
// ErrConditionFailed and leaves the record untouched.
type DonationManager interface {
	// CreateDonation stores a new pending donation.
	CreateDonation(ctx context.Context, d *models.DonationRecord) error

	// ReviewDonation moves a pending donation to approved or rejected.
	ReviewDonation(ctx context.Context, id string, status models.AdminStatus, reason string, at time.Time) (*models.DonationRecord, error)

	// AcceptDonation assigns an approved, unaccepted donation to ngoID.
	AcceptDonation(ctx context.Context, id, ngoID string, at time.Time) (*models.DonationRecord, error)

	// AdvanceDelivery moves delivery from one status to the next for the accepting NGO.
	AdvanceDelivery(ctx context.Context, id, ngoID string, from, to models.DeliveryStatus, at time.Time) (*models.DonationRecord, error)
}

// DonationStore combines the reader and manager interfaces.
type DonationStore interface {
	DonationReader
	DonationManager
}
