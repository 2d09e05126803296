package products

// ProductForm carries the writable catalog fields. Stock quantities here are
// the manually entered snapshot allowed only at catalog entry; the pair is
// stored as given and is not required to be mutually consistent until the
// ledger drives it.
type ProductForm struct {
	Name           string  `json:"name" validate:"required,max=255"`
	SKU            string  `json:"sku" validate:"required,max=64"`
	Description    string  `json:"description" validate:"max=2000"`
	CategoryID     *int64  `json:"category_id" validate:"omitempty,gt=0"`
	BaseUnit       string  `json:"base_unit" validate:"required,max=32"`
	PcsPerBaseUnit float64 `json:"pcs_per_base_unit" validate:"required,gt=0"`
	Price          float64 `json:"price" validate:"gte=0"`
	PricePerPiece  float64 `json:"price_per_piece" validate:"gte=0"`
	StockQuantity  float64 `json:"stock_quantity" validate:"gte=0"`
	StockPcs       float64 `json:"stock_pcs" validate:"gte=0"`
	MinStockLevel  float64 `json:"min_stock_level" validate:"gte=0"`
}
