package dynamodb

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGetUsage(t *testing.T) {
	t.Run("Missing Record Is Zero", func(t *testing.T) {
		store, client := newTestStore()
		client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		u, err := store.GetUsage(context.Background(), "ngo-1")

		require.NoError(t, err)
		assert.Equal(t, "ngo-1", u.NgoId)
		assert.Zero(t, u.ActiveRequests)
		assert.True(t, u.LastResetDate.IsZero())
	})

	t.Run("Record Without Reset Date", func(t *testing.T) {
		store, client := newTestStore()
		client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
			"ngo_id":          strAV("ngo-1"),
			"active_requests": numAV(3),
		}}, nil)

		u, err := store.GetUsage(context.Background(), "ngo-1")

		require.NoError(t, err)
		assert.Equal(t, 3, u.ActiveRequests)
		assert.True(t, u.NeedsReset(testNow))
	})
}

func TestResetUsage(t *testing.T) {
	observed := testNow.Add(-31 * 24 * time.Hour)

	t.Run("First Reset", func(t *testing.T) {
		store, client := newTestStore()
		client.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return *in.ConditionExpression == "attribute_not_exists(last_reset_date)"
		})).Return(&dynamodb.UpdateItemOutput{}, nil)

		ok, err := store.ResetUsage(context.Background(), "ngo-1", time.Time{}, testNow)

		require.NoError(t, err)
		assert.True(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("Guards On Observed Date", func(t *testing.T) {
		store, client := newTestStore()
		client.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			got := in.ExpressionAttributeValues[":observed"].(*types.AttributeValueMemberS).Value
			return *in.ConditionExpression == "last_reset_date = :observed" && got == observed.Format(time.RFC3339Nano)
		})).Return(&dynamodb.UpdateItemOutput{}, nil)

		ok, err := store.ResetUsage(context.Background(), "ngo-1", observed, testNow)

		require.NoError(t, err)
		assert.True(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("Lost Race", func(t *testing.T) {
		store, client := newTestStore()
		client.On("UpdateItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")})

		ok, err := store.ResetUsage(context.Background(), "ngo-1", observed, testNow)

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestCounters(t *testing.T) {
	t.Run("Increment Uses Counter Attribute", func(t *testing.T) {
		store, client := newTestStore()
		client.On("UpdateItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.UpdateItemInput) bool {
			return in.ExpressionAttributeNames["#counter"] == "monthly_accepted_items"
		})).Return(&dynamodb.UpdateItemOutput{}, nil)

		err := store.IncrementCounter(context.Background(), "ngo-1", models.LimitMonthlyAccepted)

		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("Decrement At Zero Is A No-Op", func(t *testing.T) {
		store, client := newTestStore()
		client.On("UpdateItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: aws.String("failed")})

		err := store.DecrementCounter(context.Background(), "ngo-1", models.LimitActiveRequests)

		assert.NoError(t, err)
	})

	t.Run("Max Item Value Has No Counter", func(t *testing.T) {
		store, client := newTestStore()

		err := store.IncrementCounter(context.Background(), "ngo-1", models.LimitMaxItemValue)

		assert.Error(t, err)
		client.AssertNotCalled(t, "UpdateItem", mock.Anything, mock.Anything)
	})
}
