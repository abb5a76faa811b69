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

// CreateItemRequest stores a new item request.
func (s *Store) CreateItemRequest(ctx context.Context, r *models.ItemRequest) error {
	if err := putNew(ctx, s.Client, s.Tables.ItemRequests, "id", r); err != nil {
		return fmt.Errorf("failed to create item request in DynamoDB: %w", err)
	}
	return nil
}

// GetItemRequest retrieves an item request by its ID.
func (s *Store) GetItemRequest(ctx context.Context, id string) (*models.ItemRequest, error) {
	r, err := getItem[models.ItemRequest](ctx, s.Client, s.Tables.ItemRequests, keyOf("id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to get item request from DynamoDB: %w", err)
	}
	return r, nil
}

// CloseItemRequest moves an open request to status.
func (s *Store) CloseItemRequest(ctx context.Context, id string, status models.ItemRequestStatus, at time.Time) (*models.ItemRequest, error) {
	r, err := updateItem[models.ItemRequest](ctx, s.Client, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.Tables.ItemRequests),
		Key:                      keyOf("id", id),
		UpdateExpression:         aws.String("SET #status = :status, closed_at = :at, updated_at = :at"),
		ConditionExpression:      aws.String("#status = :open"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": strAV(string(status)),
			":open":   strAV(string(models.ItemRequestOpen)),
			":at":     timeAV(at),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to close item request: %w", err)
	}
	return r, nil
}
