package stock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/platform/db"
)

// Repository persists the stock ledger and product snapshots in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. The
// movement append and the snapshot update always run through the same
// transaction so the pair cannot half-commit.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error)
	InsertMovement(ctx context.Context, m Movement) (int64, error)
	UpdateSnapshot(ctx context.Context, productID int64, snap Snapshot) error
}

type txRepository struct {
	tx pgx.Tx
}

const productStateColumns = `id, name, sku, base_unit, pcs_per_base_unit, min_stock_level,
initial_stock_quantity, initial_stock_pcs, stock_quantity, stock_pcs,
total_stock_added, total_stock_reduced, stock_movement_count`

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetProduct loads the stock-relevant product state.
func (r *Repository) GetProduct(ctx context.Context, productID int64) (ProductState, error) {
	if r == nil {
		return ProductState{}, errors.New("stock repository not initialised")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+productStateColumns+` FROM products WHERE id=$1 AND deleted_at IS NULL`, productID)
	return scanProductState(row)
}

// ListMovements returns the movement history for a product, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, direction, quantity, unit_type, reference_number, notes, COALESCE(ref_id::text, ''), created_by, created_at
FROM stock_movements
WHERE product_id=$1 AND created_at BETWEEN COALESCE($2::timestamptz, '-infinity') AND COALESCE($3::timestamptz, 'infinity')
ORDER BY created_at DESC, id DESC
LIMIT $4`, filter.ProductID, nullTime(filter.From), nullTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListMovementsForReplay returns the complete history oldest first, the order
// the aggregation fold consumes it in.
func (r *Repository) ListMovementsForReplay(ctx context.Context, productID int64) ([]Movement, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, direction, quantity, unit_type, reference_number, notes, COALESCE(ref_id::text, ''), created_by, created_at
FROM stock_movements
WHERE product_id=$1
ORDER BY created_at ASC, id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ReplaceSnapshot overwrites the cached snapshot outside the write path. Used
// by the replay-based reconciliation; the write is idempotent.
func (r *Repository) ReplaceSnapshot(ctx context.Context, productID int64, snap Snapshot) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `UPDATE products
SET stock_quantity=$2, stock_pcs=$3, total_stock_added=$4, total_stock_reduced=$5, stock_movement_count=$6, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL`, productID, snap.StockQuantity, snap.StockPcs, snap.TotalAdded, snap.TotalReduced, snap.MovementCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// ListBelowMinimum returns products whose piece stock is at or under the
// configured minimum.
func (r *Repository) ListBelowMinimum(ctx context.Context, limit int) ([]ProductState, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productStateColumns+` FROM products
WHERE deleted_at IS NULL AND stock_pcs <= min_stock_level
ORDER BY stock_pcs ASC, id ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	states := []ProductState{}
	for rows.Next() {
		state, err := scanProductState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, rows.Err()
}

// ListProductIDs returns ids of all live products, for the reconcile sweep.
func (r *Repository) ListProductIDs(ctx context.Context) ([]int64, error) {
	if r == nil {
		return nil, errors.New("stock repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *txRepository) GetProductForUpdate(ctx context.Context, productID int64) (ProductState, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+productStateColumns+` FROM products WHERE id=$1 AND deleted_at IS NULL FOR UPDATE`, productID)
	return scanProductState(row)
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, direction, quantity, unit_type, reference_number, notes, ref_id, created_by, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING id`,
		m.ProductID, string(m.Direction), m.Quantity, string(m.UnitType), m.ReferenceNumber, m.Notes, nullString(m.RefID), nullInt(m.CreatedBy), m.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateSnapshot(ctx context.Context, productID int64, snap Snapshot) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products
SET stock_quantity=$2, stock_pcs=$3, total_stock_added=$4, total_stock_reduced=$5, stock_movement_count=$6, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL`, productID, snap.StockQuantity, snap.StockPcs, snap.TotalAdded, snap.TotalReduced, snap.MovementCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func scanProductState(row pgx.Row) (ProductState, error) {
	var state ProductState
	err := row.Scan(&state.ID, &state.Name, &state.SKU, &state.BaseUnit, &state.PcsPerBaseUnit, &state.MinStockLevel,
		&state.InitialQuantity, &state.InitialPcs, &state.Snapshot.StockQuantity, &state.Snapshot.StockPcs,
		&state.Snapshot.TotalAdded, &state.Snapshot.TotalReduced, &state.Snapshot.MovementCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductState{}, ErrProductNotFound
		}
		return ProductState{}, err
	}
	return state, nil
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		var direction, unitType string
		if err := rows.Scan(&m.ID, &m.ProductID, &direction, &m.Quantity, &unitType, &m.ReferenceNumber, &m.Notes, &m.RefID, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Direction = Direction(direction)
		m.UnitType = UnitType(unitType)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}

func nullString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
