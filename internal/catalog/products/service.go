package products

import (
	"context"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters.Normalize()
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Create inserts a product with its one-time initial stock snapshot. When the
// form fills only one of the coupled quantities the other is derived: base
// quantity converts to pieces exactly, pieces convert to base units with
// floor rounding.
func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	if err := s.validate(form); err != nil {
		return Product{}, err
	}
	product, err := productFromForm(form)
	if err != nil {
		return Product{}, err
	}
	product.InitialStockQuantity = product.StockQuantity
	product.InitialStockPcs = product.StockPcs
	return s.repo.Create(ctx, product)
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(form); err != nil {
		return err
	}
	product, err := productFromForm(form)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, id, product)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.SoftDelete(ctx, id)
}

func productFromForm(form ProductForm) (Product, error) {
	product := Product{
		Name:           form.Name,
		SKU:            form.SKU,
		Description:    form.Description,
		CategoryID:     form.CategoryID,
		BaseUnit:       form.BaseUnit,
		PcsPerBaseUnit: form.PcsPerBaseUnit,
		Price:          form.Price,
		PricePerPiece:  form.PricePerPiece,
		StockQuantity:  form.StockQuantity,
		StockPcs:       form.StockPcs,
		MinStockLevel:  form.MinStockLevel,
	}
	if product.StockPcs == 0 && product.StockQuantity > 0 {
		pcs, err := stock.ToPieces(product.StockQuantity, product.PcsPerBaseUnit)
		if err != nil {
			return Product{}, err
		}
		product.StockPcs = pcs
	} else if product.StockQuantity == 0 && product.StockPcs > 0 {
		qty, err := stock.ToBaseUnits(product.StockPcs, product.PcsPerBaseUnit)
		if err != nil {
			return Product{}, err
		}
		product.StockQuantity = qty
	}
	return product, nil
}
