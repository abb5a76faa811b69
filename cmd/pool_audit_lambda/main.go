package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/chris/donation-broker/pkg/bootstrap"
	"github.com/chris/donation-broker/pkg/broker"
	"github.com/chris/donation-broker/pkg/config"
	"github.com/chris/donation-broker/pkg/logging"
	"github.com/chris/donation-broker/pkg/models"
	"github.com/chris/donation-broker/pkg/notify"
)

var auditCaller = models.Caller{Id: "system:pool-audit", Role: models.RoleAdmin}

type auditHandler struct {
	Service  broker.FundingService
	Notifier notify.Notifier
	Logger   *slog.Logger
	Now      func() time.Time
}

// Handle is triggered by an EventBridge schedule. A negative balance means
// allocations outran contributions and is raised as an event.
func (h *auditHandler) Handle(ctx context.Context, event events.CloudWatchEvent) error {
	logger := h.Logger.With(slog.String("trigger_id", event.ID))

	balance, err := h.Service.GetPoolBalance(ctx, auditCaller)
	if err != nil {
		logger.Error("failed to read pool balance", slog.Any("error", err))
		return fmt.Errorf("failed to read pool balance: %w", err)
	}

	if balance >= 0 {
		logger.Info("pool balance audited", slog.Int64("balance", balance))
		return nil
	}

	logger.Error("pool balance is negative", slog.Int64("balance", balance))
	err = h.Notifier.Publish(ctx, notify.Event{
		Type:       notify.PoolBalanceNegative,
		EntityId:   "pool",
		ActorId:    auditCaller.Id,
		Amount:     balance,
		OccurredAt: h.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish pool alert: %w", err)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		logging.Fatal(slog.Default(), "pool audit lambda exited", slog.Any("error", err))
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

	h := &auditHandler{
		Service:  broker.New(deps.Store, deps.Notifier, logger),
		Notifier: deps.Notifier,
		Logger:   logger,
		Now:      time.Now,
	}
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(deps.Close))
	return nil
}
