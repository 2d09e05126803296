package stock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// Reference number prefixes, one per direction. Human-auditable and unique in
// practice (millisecond timestamp), not enforced unique.
const (
	referencePrefixInbound  = "STOCK-"
	referencePrefixOutbound = "REDUCE-"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, productID int64) (ProductState, error)
	ListMovements(ctx context.Context, filter HistoryFilter) ([]Movement, error)
	ListMovementsForReplay(ctx context.Context, productID int64) ([]Movement, error)
	ReplaceSnapshot(ctx context.Context, productID int64, snap Snapshot) error
	ListBelowMinimum(ctx context.Context, limit int) ([]ProductState, error)
	ListProductIDs(ctx context.Context) ([]int64, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ReconcileScheduler enqueues a background replay for a product whose
// snapshot write failed.
type ReconcileScheduler interface {
	ScheduleReconcile(ctx context.Context, productID int64) error
}

// MovementCounter records each accepted movement for the metrics surface.
type MovementCounter interface {
	CountMovement(direction string)
}

// Service coordinates stock writes and reads.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	cache       *StatusCache
	scheduler   ReconcileScheduler
	metrics     MovementCounter
	clock       func() time.Time
}

// NewService builds Service. Audit, idempotency, cache, scheduler and metrics
// are all optional collaborators.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore, cache *StatusCache, scheduler ReconcileScheduler, metrics MovementCounter) *Service {
	return &Service{
		repo:        repo,
		audit:       audit,
		idempotency: idem,
		cache:       cache,
		scheduler:   scheduler,
		metrics:     metrics,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

// MovementInput describes a stock-change request.
type MovementInput struct {
	ProductID      int64
	Quantity       float64
	UnitType       UnitType
	Notes          string
	RefID          string
	IdempotencyKey string
}

// MovementResult couples the stored movement with the snapshot it produced.
type MovementResult struct {
	Movement Movement `json:"movement"`
	Snapshot Snapshot `json:"snapshot"`
}

// AddStock validates and appends an inbound movement.
func (s *Service) AddStock(ctx context.Context, input MovementInput) (MovementResult, error) {
	return s.postMovement(ctx, DirectionInbound, input)
}

// ReduceStock validates sufficiency and appends an outbound movement.
func (s *Service) ReduceStock(ctx context.Context, input MovementInput) (MovementResult, error) {
	return s.postMovement(ctx, DirectionOutbound, input)
}

func (s *Service) postMovement(ctx context.Context, direction Direction, input MovementInput) (MovementResult, error) {
	if input.ProductID <= 0 {
		return MovementResult{}, ErrProductNotFound
	}
	if input.Quantity <= 0 || math.IsNaN(input.Quantity) || math.IsInf(input.Quantity, 0) {
		return MovementResult{}, ErrInvalidQuantity
	}
	if !ValidUnitType(input.UnitType) || !ValidDirection(direction) {
		return MovementResult{}, ErrInvalidMovementData
	}
	if input.RefID != "" {
		if _, err := uuid.Parse(input.RefID); err != nil {
			return MovementResult{}, fmt.Errorf("stock: invalid ref id: %w", err)
		}
	}

	now := s.now()
	actor := shared.ActorFromContext(ctx)
	prefix := referencePrefixInbound
	if direction == DirectionOutbound {
		prefix = referencePrefixOutbound
	}
	movement := Movement{
		ProductID:       input.ProductID,
		Direction:       direction,
		Quantity:        input.Quantity,
		UnitType:        input.UnitType,
		ReferenceNumber: prefix + strconv.FormatInt(now.UnixMilli(), 10),
		Notes:           input.Notes,
		RefID:           input.RefID,
		CreatedBy:       actor.ID,
		CreatedAt:       now,
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "stock"); err != nil {
			return MovementResult{}, err
		}
		insertedKey = true
	}

	var result MovementResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		state, err := tx.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		next, err := Apply(state.Snapshot, movement, state.PcsPerBaseUnit)
		if err != nil {
			return err
		}
		id, err := tx.InsertMovement(ctx, movement)
		if err != nil {
			return err
		}
		movement.ID = id
		if err := tx.UpdateSnapshot(ctx, input.ProductID, next); err != nil {
			// The append went in but the snapshot did not. The transaction
			// rolls the pair back; surface the condition loudly and hand the
			// product to the replay-based repair.
			recErr := &SnapshotReconciliationError{ProductID: input.ProductID, Err: err}
			if s.scheduler != nil {
				_ = s.scheduler.ScheduleReconcile(ctx, input.ProductID)
			}
			return recErr
		}
		result = MovementResult{Movement: movement, Snapshot: next}
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return MovementResult{}, err
	}

	if s.metrics != nil {
		s.metrics.CountMovement(string(direction))
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   fmt.Sprintf("stock:%s", direction),
			Entity:   "stock_movement",
			EntityID: strconv.FormatInt(result.Movement.ID, 10),
			Meta: map[string]any{
				"product_id": input.ProductID,
				"quantity":   input.Quantity,
				"unit_type":  string(input.UnitType),
				"reference":  result.Movement.ReferenceNumber,
			},
		})
	}
	return result, nil
}

// History returns the movement history for a product, newest first.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]Movement, error) {
	if filter.ProductID <= 0 {
		return nil, ErrProductNotFound
	}
	if _, err := s.repo.GetProduct(ctx, filter.ProductID); err != nil {
		return nil, err
	}
	return s.repo.ListMovements(ctx, filter)
}

// StatusInfo is the read-side stock position of one product.
type StatusInfo struct {
	ProductID     int64   `json:"product_id"`
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	BaseUnit      string  `json:"base_unit"`
	StockQuantity float64 `json:"stock_quantity"`
	StockPcs      float64 `json:"stock_pcs"`
	MinStockLevel float64 `json:"min_stock_level"`
	Status        Status  `json:"status"`
}

// Status derives the low-stock classification for a product. Served through
// the versioned cache when one is configured; staleness is bounded by the
// version bump on every successful write.
func (s *Service) Status(ctx context.Context, productID int64) (StatusInfo, error) {
	if productID <= 0 {
		return StatusInfo{}, ErrProductNotFound
	}
	load := func(ctx context.Context) (StatusInfo, error) {
		state, err := s.repo.GetProduct(ctx, productID)
		if err != nil {
			return StatusInfo{}, err
		}
		return statusFromState(state), nil
	}
	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.Status(ctx, productID, load)
}

// LowStock lists products at or under their minimum stock level.
func (s *Service) LowStock(ctx context.Context, limit int) ([]StatusInfo, error) {
	states, err := s.repo.ListBelowMinimum(ctx, limit)
	if err != nil {
		return nil, err
	}
	infos := make([]StatusInfo, 0, len(states))
	for _, state := range states {
		infos = append(infos, statusFromState(state))
	}
	return infos, nil
}

// ReconcileReport describes the outcome of a replay verification.
type ReconcileReport struct {
	ProductID  int64    `json:"product_id"`
	Stored     Snapshot `json:"stored"`
	Replayed   Snapshot `json:"replayed"`
	Consistent bool     `json:"consistent"`
	Repaired   bool     `json:"repaired"`
}

// Reconcile replays the full ledger from the initial snapshot and compares
// the result with the cached snapshot. With repair set, a diverged snapshot
// is overwritten with the replayed one; the operation is idempotent.
func (s *Service) Reconcile(ctx context.Context, productID int64, repair bool) (ReconcileReport, error) {
	state, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return ReconcileReport{}, err
	}
	movements, err := s.repo.ListMovementsForReplay(ctx, productID)
	if err != nil {
		return ReconcileReport{}, err
	}
	replayed, err := Replay(state, movements)
	if err != nil {
		return ReconcileReport{}, err
	}
	report := ReconcileReport{
		ProductID:  productID,
		Stored:     state.Snapshot,
		Replayed:   replayed,
		Consistent: state.Snapshot.Equal(replayed),
	}
	if report.Consistent || !repair {
		return report, nil
	}
	if err := s.repo.ReplaceSnapshot(ctx, productID, replayed); err != nil {
		return report, err
	}
	report.Repaired = true
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
	if s.audit != nil {
		actor := shared.ActorFromContext(ctx)
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.ID,
			Action:   "stock:reconcile",
			Entity:   "product",
			EntityID: strconv.FormatInt(productID, 10),
			Meta: map[string]any{
				"stored_pcs":   report.Stored.StockPcs,
				"replayed_pcs": report.Replayed.StockPcs,
			},
		})
	}
	return report, nil
}

// ProductIDs lists live product ids for the reconcile sweep.
func (s *Service) ProductIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListProductIDs(ctx)
}

func (s *Service) now() time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return time.Now().UTC()
}

func statusFromState(state ProductState) StatusInfo {
	return StatusInfo{
		ProductID:     state.ID,
		SKU:           state.SKU,
		Name:          state.Name,
		BaseUnit:      state.BaseUnit,
		StockQuantity: state.Snapshot.StockQuantity,
		StockPcs:      state.Snapshot.StockPcs,
		MinStockLevel: state.MinStockLevel,
		Status:        Evaluate(state.Snapshot.StockPcs, state.MinStockLevel),
	}
}

// IsNotFound reports whether err maps to a missing product.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}
