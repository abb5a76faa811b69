package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/donation-broker/pkg/api"
	"github.com/chris/donation-broker/pkg/apperrors"
	"github.com/chris/donation-broker/pkg/bootstrap"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/config"
	"github.com/chris/donation-broker/pkg/logging"
	"github.com/chris/donation-broker/pkg/mapping"
	"github.com/chris/donation-broker/pkg/models"
)

// ingestCaller is the identity queue-delivered contributions are recorded under.
var ingestCaller = models.Caller{Id: "system:contribution-ingest", Role: models.RoleAdmin}

type contributionHandler struct {
	Service broker.FundingService
	Logger  *slog.Logger
}

// Handle records every contribution in the batch. Malformed and invalid
// messages are dropped; anything else is reported back so SQS redelivers
// only the failed records.
func (h *contributionHandler) Handle(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range event.Records {
		logger := h.Logger.With(slog.String("message_id", msg.MessageId))

		var body api.NewContribution
		if err := json.Unmarshal([]byte(msg.Body), &body); err != nil {
			logger.Error("dropping malformed contribution message", slog.Any("error", err))
			continue
		}
		d := mapping.ToDomainContribution(&body)
		if d.Id == "" {
			d.Id = msg.MessageId
		}

		created, err := h.Service.RecordContribution(ctx, ingestCaller, d)
		switch {
		case err == nil:
			logger.Info("contribution processed",
				slog.String("contribution_id", d.Id),
				slog.Bool("created", created),
			)
		case errors.Is(err, apperrors.ErrValidation):
			logger.Error("dropping invalid contribution", slog.Any("error", err))
		default:
			logger.Error("failed to record contribution", slog.Any("error", err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: msg.MessageId})
		}
	}
	return resp, nil
}

func main() {
	if err := run(); err != nil {
		logging.Fatal(slog.Default(), "contribution lambda exited", slog.Any("error", err))
	}
}

// run hands the handler to the Lambda runtime. lambda.Start never returns, so
// dependencies are released from the runtime's SIGTERM hook instead of a defer.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger := logging.Setup(cfg.LogLevel)

	deps, err := bootstrap.Open(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open dependencies: %w", err)
	}

	h := &contributionHandler{Service: broker.New(deps.Store, deps.Notifier, logger), Logger: logger}
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(deps.Close))
	return nil
}
