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

// LowStockScanJob reports products sitting at or under their minimum stock
// level so replenishment can be planned before the register runs dry.
type LowStockScanJob struct {
	Stock   *stock.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLowStockScanJob initialises the scan handler.
func NewLowStockScanJob(svc *stock.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Stock: svc, Logger: logger, Metrics: metrics}
}

// Handle executes the low-stock scan.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskLowStockScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	infos, err := j.Stock.LowStock(ctx, payload.Limit)
	if err != nil {
		resultErr = err
		j.logger().Error("low stock scan failed", slog.Any("error", err))
		return resultErr
	}

	for _, info := range infos {
		j.logger().Warn("product below minimum stock",
			slog.Int64("product_id", info.ProductID),
			slog.String("sku", info.SKU),
			slog.String("name", info.Name),
			slog.Float64("stock_pcs", info.StockPcs),
			slog.Float64("min_stock_level", info.MinStockLevel))
	}
	j.Metrics.SetLowStockCount(len(infos))

	j.logger().Info("low stock scan completed",
		slog.Int("low_stock_products", len(infos)),
		slog.Duration("duration", time.Since(start)))
	return resultErr
}

func (j *LowStockScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
