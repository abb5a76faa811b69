package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/storage"
)

// GetUsage returns the NGO's usage, or a zero usage when none is stored.
func (s *Store) GetUsage(ctx context.Context, ngoID string) (*models.SubscriptionUsage, error) {
	u, err := getItem[models.SubscriptionUsage](ctx, s.Client, s.Tables.Usage, keyOf("ngo_id", ngoID))
	if errors.Is(err, storage.ErrNotFound) {
		return &models.SubscriptionUsage{NgoId: ngoID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage from DynamoDB: %w", err)
	}
	return u, nil
}

// ResetUsage zeroes the monthly counters iff last_reset_date still equals observed.
func (s *Store) ResetUsage(ctx context.Context, ngoID string, observed, now time.Time) (bool, error) {
	values := map[string]types.AttributeValue{
		":zero": numAV(0),
		":now":  timeAV(now),
	}
	guard := "attribute_not_exists(last_reset_date)"
	if !observed.IsZero() {
		guard = "last_reset_date = :observed"
		values[":observed"] = timeAV(observed)
	}

	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.Tables.Usage),
		Key:                       keyOf("ngo_id", ngoID),
		UpdateExpression:          aws.String("SET monthly_accepted_items = :zero, financial_requests_this_month = :zero, last_reset_date = :now"),
		ConditionExpression:       aws.String(guard),
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return false, nil
		}
		return false, fmt.Errorf("failed to reset usage: %w", err)
	}
	return true, nil
}

// IncrementCounter atomically adds one to the counter behind limit.
func (s *Store) IncrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error {
	attr := limit.Attribute()
	if attr == "" {
		return fmt.Errorf("limit %s has no counter", limit)
	}
	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.Tables.Usage),
		Key:                      keyOf("ngo_id", ngoID),
		UpdateExpression:         aws.String("ADD #counter :one"),
		ExpressionAttributeNames: map[string]string{"#counter": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": numAV(1),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", attr, err)
	}
	return nil
}

// DecrementCounter atomically subtracts one. A counter already at zero is left alone.
func (s *Store) DecrementCounter(ctx context.Context, ngoID string, limit models.LimitType) error {
	attr := limit.Attribute()
	if attr == "" {
		return fmt.Errorf("limit %s has no counter", limit)
	}
	_, err := s.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.Tables.Usage),
		Key:                      keyOf("ngo_id", ngoID),
		UpdateExpression:         aws.String("ADD #counter :minusOne"),
		ConditionExpression:      aws.String("#counter > :zero"),
		ExpressionAttributeNames: map[string]string{"#counter": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":minusOne": numAV(-1),
			":zero":     numAV(0),
		},
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return nil
		}
		return fmt.Errorf("failed to decrement %s: %w", attr, err)
	}
	return nil
}
