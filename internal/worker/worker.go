package worker

import (
	"context"

	"sales-service/internal/broker"
	"sales-service/internal/models"
	"sales-service/internal/redisclient"
	"sales-service/internal/util"

	"go.uber.org/zap"
)

// ReportWorker consumes order events and keeps the cached daily sales
// counters in redis up to date. The SQL report stays the source of truth;
// this is a read-side accelerator only.
type ReportWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewReportWorker creates a new report worker
func NewReportWorker(consumer *broker.Consumer, cache *redisclient.Client) *ReportWorker {
	logger := util.NamedLogger("report-worker")

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderFinished(func(ctx context.Context, event *models.OrderFinishedEvent) error {
		if err := cache.IncrDailyReport(ctx, event.Timestamp, event.TotalValue); err != nil {
			logger.Error("failed to update daily report counters",
				zap.Int64("order_id", event.OrderID),
				zap.Error(err))
			return err
		}
		logger.Debug("daily report counters updated",
			zap.Int64("order_id", event.OrderID),
			zap.Int64("total_value", event.TotalValue))
		return nil
	})

	return &ReportWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       logger,
	}
}

// Start starts the worker
func (w *ReportWorker) Start(ctx context.Context) error {
	w.logger.Info("starting report worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ReportWorker) Stop() error {
	w.logger.Info("stopping report worker")
	return w.consumer.Close()
}
