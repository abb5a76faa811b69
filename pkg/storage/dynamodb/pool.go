package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

const (
	poolMetaID       = "POOL#META"
	contributionsGSI = "gsi1pk-created_at-index"
)

// poolMeta is the single item that fences allocations. It holds nothing but
// the version; every total is summed from the ledgers at read time.
type poolMeta struct {
	Id      string `dynamodbav:"id"`
	Version int64  `dynamodbav:"version"`
}

// contributionAmount and allocation are the projections summed by PoolSnapshot.
type contributionAmount struct {
	Amount int64 `dynamodbav:"amount"`
}

type allocation struct {
	NgoId           string     `dynamodbav:"ngo_id"`
	ApprovedAmount  int64      `dynamodbav:"approved_amount"`
	AdminReviewedAt *time.Time `dynamodbav:"admin_reviewed_at,omitempty"`
}

// PoolSnapshot reads the pool version first and then sums both ledgers with
// strongly consistent scans. An allocation that lands after the version read
// moves the version, so a commit made from a stale sum fails its fence.
func (s *Store) PoolSnapshot(ctx context.Context, ngoID string, monthStart time.Time) (models.PoolSnapshot, error) {
	meta, err := getItem[poolMeta](ctx, s.Client, s.Tables.Pool, keyOf("id", poolMetaID))
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.PoolSnapshot{}, fmt.Errorf("failed to read pool meta: %w", err)
	}
	snap := models.PoolSnapshot{}
	if meta != nil {
		snap.Version = meta.Version
	}

	donations, err := scanAll[contributionAmount](ctx, s.Client, &dynamodb.ScanInput{
		TableName:                aws.String(s.Tables.Contributions),
		ConsistentRead:           aws.Bool(true),
		FilterExpression:         aws.String("#status = :completed"),
		ProjectionExpression:     aws.String("#amount"),
		ExpressionAttributeNames: map[string]string{"#status": "status", "#amount": "amount"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": strAV(string(models.ContributionCompleted)),
		},
	})
	if err != nil {
		return models.PoolSnapshot{}, fmt.Errorf("failed to sum contributions: %w", err)
	}
	for _, d := range donations {
		snap.TotalDonations += d.Amount
	}

	allocations, err := scanAll[allocation](ctx, s.Client, &dynamodb.ScanInput{
		TableName:            aws.String(s.Tables.Funding),
		ConsistentRead:       aws.Bool(true),
		FilterExpression:     aws.String("admin_status IN (:approved, :completed)"),
		ProjectionExpression: aws.String("ngo_id, approved_amount, admin_reviewed_at"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":approved":  strAV(string(models.FundingApproved)),
			":completed": strAV(string(models.FundingCompleted)),
		},
	})
	if err != nil {
		return models.PoolSnapshot{}, fmt.Errorf("failed to sum allocations: %w", err)
	}
	for _, a := range allocations {
		snap.TotalAllocations += a.ApprovedAmount
		if ngoID != "" && a.NgoId == ngoID && a.AdminReviewedAt != nil && !a.AdminReviewedAt.Before(monthStart) {
			snap.NgoAllocatedInMonth += a.ApprovedAmount
		}
	}
	return snap, nil
}

// RecordContribution inserts d once. The pool balance picks it up on the
// next snapshot when it is completed.
func (s *Store) RecordContribution(ctx context.Context, d *models.MonetaryDonation) error {
	if err := putNew(ctx, s.Client, s.Tables.Contributions, "id", d); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return err
		}
		return fmt.Errorf("failed to record contribution: %w", err)
	}
	return nil
}

// ListContributions retrieves the most recent contributions, newest first.
func (s *Store) ListContributions(ctx context.Context, limit int32) ([]models.MonetaryDonation, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Contributions),
		IndexName:              aws.String(contributionsGSI),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": strAV(models.ContributionsPartition),
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            &limit,
	}

	result, err := s.Client.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to query for contributions: %w", err)
	}

	var out []models.MonetaryDonation
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contributions: %w", err)
	}
	return out, nil
}
