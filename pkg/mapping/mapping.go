package mapping

import (
	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/quota"
)

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ToApiDonation converts a domain DonationRecord model to an API Donation model.
func ToApiDonation(d *models.DonationRecord) *api.Donation {
	items := make([]api.DonationItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = api.DonationItem{Name: item.Name, Quantity: item.Quantity, EstimatedValue: item.EstimatedValue}
	}
	return &api.Donation{
		Id:              d.Id,
		DonorId:         d.DonorId,
		Items:           items,
		Category:        d.Category,
		MediaRefs:       d.MediaRefs,
		AdminStatus:     string(d.AdminStatus),
		RejectionReason: optionalString(d.RejectionReason),
		IsActive:        d.IsActive,
		AcceptedBy:      d.AcceptedBy,
		AcceptedAt:      d.AcceptedAt,
		DeliveryStatus:  optionalString(string(d.DeliveryStatus)),
		PickupDate:      d.PickupDate,
		ReceivedDate:    d.ReceivedDate,
		ReviewedAt:      d.ReviewedAt,
		TotalValue:      d.TotalValue(),
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}

// ToApiDonations converts a list of donations.
func ToApiDonations(ds []models.DonationRecord) []*api.Donation {
	out := make([]*api.Donation, len(ds))
	for i := range ds {
		out[i] = ToApiDonation(&ds[i])
	}
	return out
}

// ToDomainItems converts the item lines of an API NewDonation.
func ToDomainItems(items []api.DonationItem) []models.DonationItem {
	out := make([]models.DonationItem, len(items))
	for i, item := range items {
		out[i] = models.DonationItem{Name: item.Name, Quantity: item.Quantity, EstimatedValue: item.EstimatedValue}
	}
	return out
}

// ToApiFundingRequest converts a domain FundingRequest model to an API FundingRequest model.
// The approved amount is only shown once an amount was actually allocated.
func ToApiFundingRequest(fr *models.FundingRequest) *api.FundingRequest {
	out := &api.FundingRequest{
		Id:              fr.Id,
		NgoId:           fr.NgoId,
		Purpose:         fr.Purpose,
		RequestedAmount: fr.RequestedAmount,
		AdminStatus:     string(fr.AdminStatus),
		RejectionReason: optionalString(fr.RejectionReason),
		AdminReviewedAt: fr.AdminReviewedAt,
		CompletedAt:     fr.CompletedAt,
		CreatedAt:       fr.CreatedAt,
		UpdatedAt:       fr.UpdatedAt,
	}
	if fr.AdminStatus.CountsAsAllocation() {
		amount := fr.ApprovedAmount
		out.ApprovedAmount = &amount
	}
	return out
}

// ToApiQuotaStatus converts a ledger status to an API QuotaStatus model.
func ToApiQuotaStatus(s quota.Status) *api.QuotaStatus {
	out := &api.QuotaStatus{
		LimitType: string(s.LimitType),
		Limit:     s.Limit,
		Current:   s.Current,
		Remaining: s.Remaining(),
	}
	if !s.ResetsOn.IsZero() {
		resetsOn := s.ResetsOn
		out.ResetsOn = &resetsOn
	}
	return out
}

// ToApiItemRequest converts a domain ItemRequest model to an API ItemRequest model.
func ToApiItemRequest(r *models.ItemRequest) *api.ItemRequest {
	return &api.ItemRequest{
		Id:             r.Id,
		NgoId:          r.NgoId,
		Category:       r.Category,
		Title:          r.Title,
		Quantity:       r.Quantity,
		EstimatedValue: r.EstimatedValue,
		Status:         string(r.Status),
		ClosedAt:       r.ClosedAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

// ToApiContribution converts a domain MonetaryDonation model to an API Contribution model.
func ToApiContribution(d *models.MonetaryDonation) *api.Contribution {
	return &api.Contribution{
		Id:          d.Id,
		DonorId:     d.DonorId,
		Amount:      d.Amount,
		Status:      string(d.Status),
		CompletedAt: d.CompletedAt,
		CreatedAt:   d.CreatedAt,
	}
}

// ToDomainContribution converts an API NewContribution model to a domain MonetaryDonation model.
// A missing status means the payment already settled.
func ToDomainContribution(c *api.NewContribution) *models.MonetaryDonation {
	d := &models.MonetaryDonation{
		DonorId: c.DonorId,
		Amount:  c.Amount,
		Status:  models.ContributionCompleted,
	}
	if c.Id != nil {
		d.Id = *c.Id
	}
	if c.Status != nil {
		d.Status = models.ContributionStatus(*c.Status)
	}
	return d
}
