package worker

import (
	"context"

	"promoter-dashboard/internal/broker"
	"promoter-dashboard/internal/models"
	"promoter-dashboard/internal/service"
	"promoter-dashboard/internal/util"

	"go.uber.org/zap"
)

// RankingWorker keeps promoter ranks current: it consumes sale events and
// runs the full ranking recomputation after each recorded sale. Rank
// freshness is eventually consistent with ingest.
type RankingWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	analytics    *service.AnalyticsService
}

// NewRankingWorker creates a new ranking worker
func NewRankingWorker(consumer *broker.Consumer, analytics *service.AnalyticsService) *RankingWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSaleRecorded(func(ctx context.Context, event *models.SaleRecordedEvent) error {
		util.GetLogger().Debug("Recalculating rankings after sale",
			zap.String("order_number", event.OrderNumber))
		return analytics.RecalculateRankings(ctx)
	})

	return &RankingWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		analytics:    analytics,
	}
}

// Start starts the worker
func (w *RankingWorker) Start(ctx context.Context) error {
	util.GetLogger().Info("Starting ranking worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RankingWorker) Stop() error {
	util.GetLogger().Info("Stopping ranking worker")
	return w.consumer.Close()
}
