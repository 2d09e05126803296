package products

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	SoftDelete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, name, sku, COALESCE(description, ''), category_id, base_unit, pcs_per_base_unit,
price, price_per_piece, stock_quantity, stock_pcs, min_stock_level,
initial_stock_quantity, initial_stock_pcs, total_stock_added, total_stock_reduced, stock_movement_count,
created_at, updated_at`

// List uses dynamic query due to filter complexity
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE deleted_at IS NULL`
	countQuery := `SELECT COUNT(*) FROM products WHERE deleted_at IS NULL`
	args := []interface{}{}
	countArgs := []interface{}{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		clause := ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + `)`
		query += clause
		countQuery += clause
		args = append(args, "%"+filters.Search+"%")
		countArgs = append(countArgs, "%"+filters.Search+"%")
	}
	if filters.CategoryID != nil {
		argCount++
		clause := ` AND category_id = $` + strconv.Itoa(argCount)
		query += clause
		countQuery += clause
		args = append(args, *filters.CategoryID)
		countArgs = append(countArgs, *filters.CategoryID)
	}
	if filters.LowStock != nil && *filters.LowStock {
		clause := ` AND stock_pcs <= min_stock_level`
		query += clause
		countQuery += clause
	}

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY ` + sortOrder(filters.SortBy, filters.SortDir)

	if filters.Limit > 0 {
		argCount++
		query += ` LIMIT $` + strconv.Itoa(argCount)
		args = append(args, filters.Limit)

		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset())
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 AND deleted_at IS NULL`, id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO products
(name, sku, description, category_id, base_unit, pcs_per_base_unit, price, price_per_piece,
 stock_quantity, stock_pcs, min_stock_level, initial_stock_quantity, initial_stock_pcs,
 total_stock_added, total_stock_reduced, stock_movement_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,0,0,0,NOW(),NOW())
RETURNING `+productColumns,
		product.Name, product.SKU, product.Description, product.CategoryID, product.BaseUnit,
		product.PcsPerBaseUnit, product.Price, product.PricePerPiece,
		product.StockQuantity, product.StockPcs, product.MinStockLevel,
		product.InitialStockQuantity, product.InitialStockPcs)
	created, err := scanProduct(row)
	if err != nil {
		return Product{}, mapPgError(err)
	}
	return created, nil
}

// Update writes the static catalog fields. The stock snapshot is owned by the
// movement ledger after entry, so it is never touched here.
func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products
SET name=$2, sku=$3, description=$4, category_id=$5, base_unit=$6, pcs_per_base_unit=$7,
    price=$8, price_per_piece=$9, min_stock_level=$10, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL`,
		id, product.Name, product.SKU, product.Description, product.CategoryID, product.BaseUnit,
		product.PcsPerBaseUnit, product.Price, product.PricePerPiece, product.MinStockLevel)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.Description, &p.CategoryID, &p.BaseUnit, &p.PcsPerBaseUnit,
		&p.Price, &p.PricePerPiece, &p.StockQuantity, &p.StockPcs, &p.MinStockLevel,
		&p.InitialStockQuantity, &p.InitialStockPcs, &p.TotalStockAdded, &p.TotalStockReduced, &p.StockMovementCount,
		&p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == shared.SortDesc {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "stock":
		return "stock_pcs " + dir
	case "created":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
