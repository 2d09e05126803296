package units

import (
	"errors"
	"time"
)

// ProductUnit is an alternate named unit for a product, with a conversion
// factor relative to whichever unit is flagged base. Independent of the
// piece/base-unit duality the stock ledger books in.
type ProductUnit struct {
	ID               int64     `json:"id"`
	ProductID        int64     `json:"product_id"`
	UnitName         string    `json:"unit_name"`
	ConversionFactor float64   `json:"conversion_factor"`
	IsBaseUnit       bool      `json:"is_base_unit"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
}

// UnitView decorates a unit with its display conversion example.
type UnitView struct {
	ProductUnit
	ConversionExample string `json:"conversion_example"`
}

// ErrCannotRemoveBaseUnit rejects deactivating a unit flagged base.
var ErrCannotRemoveBaseUnit = errors.New("units: base unit cannot be removed")

// ErrUnitNotFound indicates a missing or inactive unit row.
var ErrUnitNotFound = errors.New("units: unit not found")
