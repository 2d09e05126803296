package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kasirpos/kasirpos/internal/jobs"
	"github.com/kasirpos/kasirpos/internal/stock"
)

// StockReconcileJob replays movement ledgers and repairs diverged snapshots.
// The replayed snapshot always wins: the ledger is authoritative and the
// cached snapshot is only a cache of the fold over it.
type StockReconcileJob struct {
	Stock   *stock.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewStockReconcileJob initialises the reconcile handler.
func NewStockReconcileJob(svc *stock.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	return &StockReconcileJob{Stock: svc, Logger: logger, Metrics: metrics}
}

// Handle executes one reconcile run.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("stock reconcile: handler not configured")
	}
	var payload StockReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskStockReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	ids := []int64{payload.ProductID}
	if payload.ProductID == 0 {
		var err error
		ids, err = j.Stock.ProductIDs(ctx)
		if err != nil {
			resultErr = err
			j.logger().Error("reconcile sweep failed to list products", slog.Any("error", err))
			return resultErr
		}
	}

	repaired := 0
	diverged := 0
	for _, id := range ids {
		report, err := j.Stock.Reconcile(ctx, id, true)
		if err != nil {
			if stock.IsNotFound(err) {
				continue
			}
			resultErr = err
			j.logger().Error("reconcile failed",
				slog.Int64("product_id", id),
				slog.Any("error", err))
			return resultErr
		}
		switch {
		case report.Repaired:
			repaired++
			diverged++
			j.Metrics.CountReconcile("repaired")
			j.logger().Warn("snapshot repaired from ledger",
				slog.Int64("product_id", id),
				slog.Float64("stored_pcs", report.Stored.StockPcs),
				slog.Float64("replayed_pcs", report.Replayed.StockPcs))
		case !report.Consistent:
			diverged++
			j.Metrics.CountReconcile("diverged")
		default:
			j.Metrics.CountReconcile("consistent")
		}
	}

	j.logger().Info("stock reconcile completed",
		slog.Int("products", len(ids)),
		slog.Int("diverged", diverged),
		slog.Int("repaired", repaired),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *StockReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
