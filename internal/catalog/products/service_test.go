package products

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

type memoryRepo struct {
	nextID   int64
	products map[int64]Product
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, products: map[int64]Product{}}
}

func (m *memoryRepo) List(_ context.Context, filters shared.ListFilters) ([]Product, int, error) {
	out := []Product{}
	for _, p := range m.products {
		if filters.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filters.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryRepo) Create(_ context.Context, product Product) (Product, error) {
	for _, existing := range m.products {
		if existing.SKU == product.SKU {
			return Product{}, shared.ErrDuplicate
		}
	}
	product.ID = m.nextID
	m.nextID++
	m.products[product.ID] = product
	return product, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, product Product) error {
	current, ok := m.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	product.ID = id
	product.StockQuantity = current.StockQuantity
	product.StockPcs = current.StockPcs
	m.products[id] = product
	return nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func validForm() ProductForm {
	return ProductForm{
		Name:           "Indomie Goreng",
		SKU:            "IDM-001",
		BaseUnit:       "dus",
		PcsPerBaseUnit: 12,
		Price:          48000,
		PricePerPiece:  4500,
	}
}

func TestCreateDerivesPiecesFromBaseQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo())

	form := validForm()
	form.StockQuantity = 5

	created, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	require.Equal(t, 60.0, created.StockPcs)
	require.Equal(t, 5.0, created.StockQuantity)
	require.Equal(t, 60.0, created.InitialStockPcs)
	require.Equal(t, 5.0, created.InitialStockQuantity)
}

func TestCreateDerivesBaseQuantityFromPieces(t *testing.T) {
	svc := NewService(newMemoryRepo())

	form := validForm()
	form.StockPcs = 83

	created, err := svc.Create(context.Background(), form)
	require.NoError(t, err)
	require.Equal(t, 83.0, created.StockPcs)
	require.Equal(t, 6.0, created.StockQuantity)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	form := validForm()
	form.Name = " "
	_, err := svc.Create(ctx, form)
	require.ErrorIs(t, err, shared.ErrRequiredField)

	form = validForm()
	form.SKU = ""
	_, err = svc.Create(ctx, form)
	require.ErrorIs(t, err, shared.ErrRequiredField)

	form = validForm()
	form.PcsPerBaseUnit = 0
	_, err = svc.Create(ctx, form)
	require.ErrorIs(t, err, stock.ErrInvalidConversionFactor)

	form = validForm()
	form.Price = -1
	_, err = svc.Create(ctx, form)
	require.ErrorIs(t, err, shared.ErrValidation)

	form = validForm()
	form.StockPcs = -10
	_, err = svc.Create(ctx, form)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateDuplicateSKU(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, validForm())
	require.NoError(t, err)

	_, err = svc.Create(ctx, validForm())
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestUpdatePreservesStockSnapshot(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	form := validForm()
	form.StockQuantity = 5
	created, err := svc.Create(ctx, form)
	require.NoError(t, err)

	form.Name = "Indomie Goreng Jumbo"
	form.StockQuantity = 0
	require.NoError(t, svc.Update(ctx, created.ID, form))

	updated, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Indomie Goreng Jumbo", updated.Name)
	require.Equal(t, 60.0, updated.StockPcs)
	require.Equal(t, 5.0, updated.StockQuantity)
}

func TestGetAndDeleteInvalidID(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Get(ctx, 0)
	require.ErrorIs(t, err, shared.ErrInvalidID)

	require.ErrorIs(t, svc.Delete(ctx, -1), shared.ErrInvalidID)
	require.ErrorIs(t, svc.Delete(ctx, 99), shared.ErrNotFound)
}

func TestListNormalizesFilters(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, total, err := svc.List(context.Background(), shared.ListFilters{Page: -3, Limit: 0})
	require.NoError(t, err)
	require.Equal(t, 0, total)
}
