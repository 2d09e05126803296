package units

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/platform/db"
)

// Repository persists product units in PostgreSQL.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListActive(ctx context.Context, productID int64) ([]ProductUnit, error)
	Get(ctx context.Context, unitID int64) (ProductUnit, error)
	Deactivate(ctx context.Context, unitID int64) error
}

// TxRepository exposes the operations a base-unit promotion runs atomically.
type TxRepository interface {
	Get(ctx context.Context, unitID int64) (ProductUnit, error)
	DemoteBase(ctx context.Context, productID int64) error
	Insert(ctx context.Context, unit ProductUnit) (ProductUnit, error)
	Update(ctx context.Context, unitID int64, unit ProductUnit) error
}

type repository struct {
	pool *pgxpool.Pool
}

type txRepository struct {
	tx pgx.Tx
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const unitColumns = `id, product_id, unit_name, conversion_factor, is_base_unit, is_active, created_at`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// ListActive returns active units, base unit first, then creation order.
func (r *repository) ListActive(ctx context.Context, productID int64) ([]ProductUnit, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+unitColumns+` FROM product_units
WHERE product_id=$1 AND is_active
ORDER BY is_base_unit DESC, created_at ASC, id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := []ProductUnit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

func (r *repository) Get(ctx context.Context, unitID int64) (ProductUnit, error) {
	return getUnit(ctx, r.pool, unitID)
}

// Deactivate soft-deletes the unit. The base-unit guard lives in the service.
func (r *repository) Deactivate(ctx context.Context, unitID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE product_units SET is_active=FALSE WHERE id=$1 AND is_active`, unitID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

func (r *txRepository) Get(ctx context.Context, unitID int64) (ProductUnit, error) {
	return getUnit(ctx, r.tx, unitID)
}

// DemoteBase clears the base flag on the product's current base unit.
func (r *txRepository) DemoteBase(ctx context.Context, productID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE product_units SET is_base_unit=FALSE WHERE product_id=$1 AND is_base_unit AND is_active`, productID)
	return err
}

func (r *txRepository) Insert(ctx context.Context, unit ProductUnit) (ProductUnit, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO product_units (product_id, unit_name, conversion_factor, is_base_unit, is_active, created_at)
VALUES ($1,$2,$3,$4,TRUE,NOW()) RETURNING `+unitColumns,
		unit.ProductID, unit.UnitName, unit.ConversionFactor, unit.IsBaseUnit)
	return scanUnit(row)
}

func (r *txRepository) Update(ctx context.Context, unitID int64, unit ProductUnit) error {
	tag, err := r.tx.Exec(ctx, `UPDATE product_units SET unit_name=$2, conversion_factor=$3, is_base_unit=$4 WHERE id=$1 AND is_active`,
		unitID, unit.UnitName, unit.ConversionFactor, unit.IsBaseUnit)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUnitNotFound
	}
	return nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getUnit(ctx context.Context, q queryRower, unitID int64) (ProductUnit, error) {
	row := q.QueryRow(ctx, `SELECT `+unitColumns+` FROM product_units WHERE id=$1 AND is_active`, unitID)
	u, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductUnit{}, ErrUnitNotFound
		}
		return ProductUnit{}, err
	}
	return u, nil
}

func scanUnit(row pgx.Row) (ProductUnit, error) {
	var u ProductUnit
	err := row.Scan(&u.ID, &u.ProductID, &u.UnitName, &u.ConversionFactor, &u.IsBaseUnit, &u.IsActive, &u.CreatedAt)
	return u, err
}
