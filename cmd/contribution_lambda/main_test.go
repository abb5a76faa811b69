package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/broker/mocks"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHandler(svc *mocks.Service) *contributionHandler {
	return &contributionHandler{Service: svc, Logger: slog.New(slog.NewJSONHandler(io.Discard, nil))}
}

func TestHandle(t *testing.T) {
	t.Run("Records Each Message", func(t *testing.T) {
		svc := new(mocks.Service)
		svc.On("RecordContribution", mock.Anything, ingestCaller, mock.MatchedBy(func(d *models.MonetaryDonation) bool {
			return d.Id == "c-1" && d.Amount == 250 && d.Status == models.ContributionCompleted
		})).Return(true, nil).Once()
		svc.On("RecordContribution", mock.Anything, ingestCaller, mock.MatchedBy(func(d *models.MonetaryDonation) bool {
			return d.Id == "msg-2"
		})).Return(false, nil).Once()

		resp, err := newHandler(svc).Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
			{MessageId: "msg-1", Body: `{"id":"c-1","donor_id":"donor-1","amount":250}`},
			{MessageId: "msg-2", Body: `{"donor_id":"donor-2","amount":75}`},
		}})

		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
		svc.AssertExpectations(t)
	})

	t.Run("Malformed And Invalid Are Dropped", func(t *testing.T) {
		svc := new(mocks.Service)
		svc.On("RecordContribution", mock.Anything, ingestCaller, mock.Anything).
			Return(false, apperrors.Validation("amount", "must be positive")).Once()

		resp, err := newHandler(svc).Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
			{MessageId: "msg-1", Body: `not json`},
			{MessageId: "msg-2", Body: `{"donor_id":"donor-1","amount":0}`},
		}})

		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
		svc.AssertExpectations(t)
	})

	t.Run("Store Failure Is Retried", func(t *testing.T) {
		svc := new(mocks.Service)
		svc.On("RecordContribution", mock.Anything, ingestCaller, mock.Anything).
			Return(false, errors.New("throttled")).Once()

		resp, err := newHandler(svc).Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{
			{MessageId: "msg-9", Body: `{"donor_id":"donor-1","amount":10}`},
		}})

		require.NoError(t, err)
		assert.Equal(t, []events.SQSBatchItemFailure{{ItemIdentifier: "msg-9"}}, resp.BatchItemFailures)
	})
}

func TestRunReturnsConfigError(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "cassandra")

	err := run()

	assert.ErrorContains(t, err, "invalid configuration")
}
