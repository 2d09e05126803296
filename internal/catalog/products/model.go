package products

import "time"

// Product represents one catalog entry. The stock snapshot columns are a
// cache owned by the stock module; catalog edits may seed them at entry time
// but every later change flows through the movement ledger.
type Product struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	Description    string  `json:"description,omitempty"`
	CategoryID     *int64  `json:"category_id,omitempty"`
	BaseUnit       string  `json:"base_unit"`
	PcsPerBaseUnit float64 `json:"pcs_per_base_unit"`
	Price          float64 `json:"price"`
	PricePerPiece  float64 `json:"price_per_piece"`

	StockQuantity float64 `json:"stock_quantity"`
	StockPcs      float64 `json:"stock_pcs"`
	MinStockLevel float64 `json:"min_stock_level"`

	InitialStockQuantity float64 `json:"initial_stock_quantity"`
	InitialStockPcs      float64 `json:"initial_stock_pcs"`
	TotalStockAdded      float64 `json:"total_stock_added"`
	TotalStockReduced    float64 `json:"total_stock_reduced"`
	StockMovementCount   int64   `json:"stock_movement_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
