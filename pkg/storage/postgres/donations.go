package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

const donationCols = `id, donor_id, items, category, media_refs, admin_status,
	COALESCE(rejection_reason, ''), is_active, accepted_by, accepted_at,
	COALESCE(delivery_status, ''), pickup_date, received_date, reviewed_at,
	created_at, updated_at`

func scanDonation(scan func(dest ...any) error) (*models.DonationRecord, error) {
	var d models.DonationRecord
	err := scan(
		&d.Id, &d.DonorId, &d.Items, &d.Category, &d.MediaRefs, &d.AdminStatus,
		&d.RejectionReason, &d.IsActive, &d.AcceptedBy, &d.AcceptedAt,
		&d.DeliveryStatus, &d.PickupDate, &d.ReceivedDate, &d.ReviewedAt,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDonation(ctx context.Context, d *models.DonationRecord) error {
	mediaRefs := d.MediaRefs
	if mediaRefs == nil {
		mediaRefs = []string{}
	}
	_, err := s.DB.Exec(ctx, `
		INSERT INTO donations (id, donor_id, items, category, media_refs, admin_status,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.Id, d.DonorId, d.Items, d.Category, mediaRefs, d.AdminStatus,
		d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if _, dup := uniqueViolationOn(err); dup {
		return storage.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert donation: %w", err)
	}
	return nil
}

func (s *Store) GetDonation(ctx context.Context, id string) (*models.DonationRecord, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+donationCols+` FROM donations WHERE id = $1`, id)
	d, err := scanDonation(row.Scan)
	if err != nil {
		return nil, notFound(err, "donations", id)
	}
	return d, nil
}

func (s *Store) ListDonationsByDonor(ctx context.Context, donorID string) ([]models.DonationRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+donationCols+` FROM donations
		WHERE donor_id = $1
		ORDER BY created_at`, donorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations for donor %s: %w", donorID, err)
	}
	return collect(rows, scanDonation)
}

func (s *Store) ListAvailableDonations(ctx context.Context) ([]models.DonationRecord, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT `+donationCols+` FROM donations
		WHERE admin_status = $1 AND accepted_by IS NULL
		ORDER BY created_at`, models.AdminApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to list available donations: %w", err)
	}
	return collect(rows, scanDonation)
}

func (s *Store) ReviewDonation(ctx context.Context, id string, status models.AdminStatus, reason string, at time.Time) (*models.DonationRecord, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE donations
		SET admin_status = $2, is_active = $3, rejection_reason = NULLIF($4::text, ''),
			reviewed_at = $5, updated_at = $5
		WHERE id = $1 AND admin_status = $6
		RETURNING `+donationCols,
		id, status, status == models.AdminApproved, reason, at, models.AdminPending,
	)
	d, err := scanDonation(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "donations", id)
	}
	return d, nil
}

func (s *Store) AcceptDonation(ctx context.Context, id, ngoID string, at time.Time) (*models.DonationRecord, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE donations
		SET accepted_by = $2, accepted_at = $3, is_active = FALSE,
			delivery_status = $4, updated_at = $3
		WHERE id = $1 AND admin_status = $5 AND accepted_by IS NULL
		RETURNING `+donationCols,
		id, ngoID, at, models.DeliveryNotPickedUp, models.AdminApproved,
	)
	d, err := scanDonation(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "donations", id)
	}
	return d, nil
}

func (s *Store) AdvanceDelivery(ctx context.Context, id, ngoID string, from, to models.DeliveryStatus, at time.Time) (*models.DonationRecord, error) {
	row := s.DB.QueryRow(ctx, `
		UPDATE donations
		SET delivery_status = $4,
			pickup_date = CASE WHEN $4::text = 'picked_up' THEN $5::timestamptz ELSE pickup_date END,
			received_date = CASE WHEN $4::text = 'received' THEN $5::timestamptz ELSE received_date END,
			updated_at = $5
		WHERE id = $1 AND accepted_by = $2 AND delivery_status = $3
		RETURNING `+donationCols,
		id, ngoID, from, string(to), at,
	)
	d, err := scanDonation(row.Scan)
	if err != nil {
		return nil, s.guarded(ctx, err, "donations", id)
	}
	return d, nil
}
