package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/donation-broker/pkg/models"
)

const (
	donorIDIndex     = "donor_id-created_at-index"
	adminStatusIndex = "admin_status-created_at-index"
)

// CreateDonation stores a new donation record.
func (s *Store) CreateDonation(ctx context.Context, d *models.DonationRecord) error {
	if err := putNew(ctx, s.Client, s.Tables.Donations, "id", d); err != nil {
		return fmt.Errorf("failed to create donation in DynamoDB: %w", err)
	}
	return nil
}

// GetDonation retrieves a donation by its ID.
func (s *Store) GetDonation(ctx context.Context, id string) (*models.DonationRecord, error) {
	d, err := getItem[models.DonationRecord](ctx, s.Client, s.Tables.Donations, keyOf("id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get donation from DynamoDB: %w", err)
	}
	return d, nil
}

// ListDonationsByDonor retrieves every donation a donor submitted, oldest first.
func (s *Store) ListDonationsByDonor(ctx context.Context, donorID string) ([]models.DonationRecord, error) {
	out, err := queryAll[models.DonationRecord](ctx, s.Client, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Donations),
		IndexName:              aws.String(donorIDIndex),
		KeyConditionExpression: aws.String("donor_id = :donorID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":donorID": strAV(donorID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query donations by donor: %w", err)
	}
	return out, nil
}

// ListAvailableDonations retrieves approved donations that no NGO holds.
func (s *Store) ListAvailableDonations(ctx context.Context) ([]models.DonationRecord, error) {
	out, err := queryAll[models.DonationRecord](ctx, s.Client, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Donations),
		IndexName:              aws.String(adminStatusIndex),
		KeyConditionExpression: aws.String("admin_status = :approved"),
		FilterExpression:       aws.String("attribute_not_exists(accepted_by)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":approved": strAV(string(models.AdminApproved)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query available donations: %w", err)
	}
	return out, nil
}

// ReviewDonation moves a pending donation to approved or rejected.
func (s *Store) ReviewDonation(ctx context.Context, id string, status models.AdminStatus, reason string, at time.Time) (*models.DonationRecord, error) {
	update := "SET admin_status = :status, is_active = :active, reviewed_at = :at, updated_at = :at"
	values := map[string]types.AttributeValue{
		":status":  strAV(string(status)),
		":active":  &types.AttributeValueMemberBOOL{Value: status == models.AdminApproved},
		":at":      timeAV(at),
		":pending": strAV(string(models.AdminPending)),
	}
	if reason != "" {
		update += ", rejection_reason = :reason"
		values[":reason"] = strAV(reason)
	}

	d, err := updateItem[models.DonationRecord](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Tables.Donations),
		Key:                       keyOf("id", id),
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("admin_status = :pending"),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to review donation: %w", err)
	}
	return d, nil
}

// AcceptDonation assigns an approved donation to ngoID. The guard on
// accepted_by makes this the single linearization point for acceptance.
func (s *Store) AcceptDonation(ctx context.Context, id, ngoID string, at time.Time) (*models.DonationRecord, error) {
	d, err := updateItem[models.DonationRecord](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.Donations),
		Key:                 keyOf("id", id),
		UpdateExpression:    aws.String("SET accepted_by = :ngo, accepted_at = :at, is_active = :inactive, delivery_status = :delivery, updated_at = :at"),
		ConditionExpression: aws.String("admin_status = :approved AND attribute_not_exists(accepted_by)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ngo":      strAV(ngoID),
			":at":       timeAV(at),
			":inactive": &types.AttributeValueMemberBOOL{Value: false},
			":delivery": strAV(string(models.DeliveryNotPickedUp)),
			":approved": strAV(string(models.AdminApproved)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept donation: %w", err)
	}
	return d, nil
}

// AdvanceDelivery moves delivery from one status to the next.
func (s *Store) AdvanceDelivery(ctx context.Context, id, ngoID string, from, to models.DeliveryStatus, at time.Time) (*models.DonationRecord, error) {
	update := "SET delivery_status = :to, updated_at = :at"
	switch to {
	case models.DeliveryPickedUp:
		update += ", pickup_date = :at"
	case models.DeliveryReceived:
		update += ", received_date = :at"
	case models.DeliveryNotPickedUp:
	}

	d, err := updateItem[models.DonationRecord](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.Donations),
		Key:                 keyOf("id", id),
		UpdateExpression:    aws.String(update),
		ConditionExpression: aws.String("accepted_by = :ngo AND delivery_status = :from"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":to":   strAV(string(to)),
			":from": strAV(string(from)),
			":ngo":  strAV(ngoID),
			":at":   timeAV(at),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance delivery: %w", err)
	}
	return d, nil
}
