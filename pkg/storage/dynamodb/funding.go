package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

const ngoIDIndex = "ngo_id-created_at-index"

// GetFundingRequest retrieves a funding request by its ID.
func (s *Store) GetFundingRequest(ctx context.Context, id string) (*models.FundingRequest, error) {
	r, err := getItem[models.FundingRequest](ctx, s.Client, s.Tables.Funding, keyOf("id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get funding request from DynamoDB: %w", err)
	}
	return r, nil
}

// ListFundingRequestsByNGO retrieves an NGO's funding requests, oldest first.
func (s *Store) ListFundingRequestsByNGO(ctx context.Context, ngoID string) ([]models.FundingRequest, error) {
	out, err := queryAll[models.FundingRequest](ctx, s.Client, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Funding),
		IndexName:              aws.String(ngoIDIndex),
		KeyConditionExpression: aws.String("ngo_id = :ngoID"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ngoID": strAV(ngoID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query funding requests by NGO: %w", err)
	}
	return out, nil
}

// CreateFundingRequest stores req and claims the NGO's open-request slot atomically.
func (s *Store) CreateFundingRequest(ctx context.Context, req *models.FundingRequest) error {
	av, err := attributevalue.MarshalMap(req)
	if err != nil {
		return fmt.Errorf("failed to marshal funding request: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Create the funding request record.
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Funding),
					Item:                av,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				// Operation 2: Claim the NGO's single open-request slot.
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Usage),
					Key:                 keyOf("ngo_id", req.NgoId),
					UpdateExpression:    aws.String("SET open_funding_request_id = :id"),
					ConditionExpression: aws.String("attribute_not_exists(open_funding_request_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":id": strAV(req.Id),
					},
				},
			},
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if reasons, ok := cancelled(err); ok {
			switch {
			case failedAt(reasons, 0):
				return storage.ErrDuplicate
			case failedAt(reasons, 1):
				return storage.ErrOpenRequestExists
			}
		}
		return fmt.Errorf("failed to create funding request: %w", err)
	}
	return nil
}

// MarkFundingUnderReview moves a pending request to under_review.
func (s *Store) MarkFundingUnderReview(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	r, err := updateItem[models.FundingRequest](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.Funding),
		Key:                 keyOf("id", id),
		UpdateExpression:    aws.String("SET admin_status = :review, updated_at = :at"),
		ConditionExpression: aws.String("admin_status = :pending"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":review":  strAV(string(models.FundingUnderReview)),
			":pending": strAV(string(models.FundingPending)),
			":at":      timeAV(at),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to mark funding request under review: %w", err)
	}
	return r, nil
}

// CompleteFundingRequest marks an approved request completed.
func (s *Store) CompleteFundingRequest(ctx context.Context, id string, at time.Time) (*models.FundingRequest, error) {
	r, err := updateItem[models.FundingRequest](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.Tables.Funding),
		Key:                 keyOf("id", id),
		UpdateExpression:    aws.String("SET admin_status = :completed, completed_at = :at, updated_at = :at"),
		ConditionExpression: aws.String("admin_status = :approved"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":completed": strAV(string(models.FundingCompleted)),
			":approved":  strAV(string(models.FundingApproved)),
			":at":        timeAV(at),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete funding request: %w", err)
	}
	return r, nil
}

// openStatusValues are the placeholders for "admin_status IN (:pending, :review)".
func openStatusValues(values map[string]types.AttributeValue) map[string]types.AttributeValue {
	values[":pending"] = strAV(string(models.FundingPending))
	values[":review"] = strAV(string(models.FundingUnderReview))
	return values
}

// releaseSlot clears the NGO's open-request slot.
func (s *Store) releaseSlot(ngoID string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Update: &types.Update{
			TableName:        aws.String(s.Tables.Usage),
			Key:              keyOf("ngo_id", ngoID),
			UpdateExpression: aws.String("REMOVE open_funding_request_id"),
		},
	}
}

// RejectFundingRequest rejects an open request and releases the NGO's slot.
func (s *Store) RejectFundingRequest(ctx context.Context, id, reason string, at time.Time) (*models.FundingRequest, error) {
	current, err := s.GetFundingRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Funding),
					Key:                 keyOf("id", id),
					UpdateExpression:    aws.String("SET admin_status = :rejected, rejection_reason = :reason, admin_reviewed_at = :at, updated_at = :at"),
					ConditionExpression: aws.String("admin_status IN (:pending, :review)"),
					ExpressionAttributeValues: openStatusValues(map[string]types.AttributeValue{
						":rejected": strAV(string(models.FundingRejected)),
						":reason":   strAV(reason),
						":at":       timeAV(at),
					}),
				},
			},
			s.releaseSlot(current.NgoId),
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if reasons, ok := cancelled(err); ok && failedAt(reasons, 0) {
			return nil, storage.ErrConditionFailed
		}
		return nil, fmt.Errorf("failed to reject funding request: %w", err)
	}
	return s.GetFundingRequest(ctx, id)
}

// CommitAllocation approves an open request iff the pool version still
// equals c.ExpectedVersion. The version bump, the request update and the
// slot release commit together or not at all.
func (s *Store) CommitAllocation(ctx context.Context, c models.AllocationCommit) (*models.FundingRequest, error) {
	versionGuard := "version = :expected"
	if c.ExpectedVersion == 0 {
		versionGuard = "attribute_not_exists(version) OR version = :expected"
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				// Operation 1: Advance the pool version.
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Pool),
					Key:                 keyOf("id", poolMetaID),
					UpdateExpression:    aws.String("SET version = :next"),
					ConditionExpression: aws.String(versionGuard),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":expected": numAV(c.ExpectedVersion),
						":next":     numAV(c.ExpectedVersion + 1),
					},
				},
			},
			{
				// Operation 2: Approve the request while it is still open.
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Funding),
					Key:                 keyOf("id", c.RequestId),
					UpdateExpression:    aws.String("SET admin_status = :approved, approved_amount = :amount, admin_reviewed_at = :at, updated_at = :at"),
					ConditionExpression: aws.String("admin_status IN (:pending, :review)"),
					ExpressionAttributeValues: openStatusValues(map[string]types.AttributeValue{
						":approved": strAV(string(models.FundingApproved)),
						":amount":   numAV(c.Amount),
						":at":       timeAV(c.At),
					}),
					ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
				},
			},
			// Operation 3: Release the NGO's open-request slot.
			s.releaseSlot(c.NgoId),
		},
	}

	if _, err := s.Client.TransactWriteItems(ctx, input); err != nil {
		if reasons, ok := cancelled(err); ok {
			switch {
			case failedAt(reasons, 0):
				return nil, storage.ErrPoolVersionConflict
			case failedAt(reasons, 1) && len(reasons[1].Item) == 0:
				return nil, storage.ErrNotFound
			case failedAt(reasons, 1):
				return nil, storage.ErrConditionFailed
			}
		}
		return nil, fmt.Errorf("failed to commit allocation: %w", err)
	}
	return s.GetFundingRequest(ctx, c.RequestId)
}
