package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStockReconcile replays the movement ledger for one product (or all
	// products when the payload carries no id) and repairs diverged snapshots.
	TaskStockReconcile = "stock:reconcile"
	// TaskLowStockScan walks the catalog and reports products at or under
	// their minimum stock level.
	TaskLowStockScan = "stock:lowstock_scan"
)

// StockReconcilePayload scopes a reconcile run. ProductID zero means a full
// sweep over every live product.
type StockReconcilePayload struct {
	ProductID int64 `json:"product_id"`
}

// LowStockScanPayload bounds the scan result size.
type LowStockScanPayload struct {
	Limit int `json:"limit"`
}

// NewStockReconcileTask constructs an Asynq task for snapshot reconciliation.
func NewStockReconcileTask(payload StockReconcilePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStockReconcile, data), nil
}

// NewLowStockScanTask constructs an Asynq task for the low-stock scan.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}
