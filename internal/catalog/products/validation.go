package products

import (
	"fmt"
	"strings"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

func (s *Service) validate(form ProductForm) error {
	if strings.TrimSpace(form.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if strings.TrimSpace(form.SKU) == "" {
		return fmt.Errorf("%w: sku", shared.ErrRequiredField)
	}
	if strings.TrimSpace(form.BaseUnit) == "" {
		return fmt.Errorf("%w: base_unit", shared.ErrRequiredField)
	}
	if !stock.ValidFactor(form.PcsPerBaseUnit) {
		return stock.ErrInvalidConversionFactor
	}
	if form.Price < 0 || form.PricePerPiece < 0 {
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	}
	if form.StockQuantity < 0 || form.StockPcs < 0 || form.MinStockLevel < 0 {
		return fmt.Errorf("%w: stock values must not be negative", shared.ErrValidation)
	}
	return nil
}
