package units

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	internalShared "github.com/kasirpos/kasirpos/internal/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

// UnitForm carries create/update payloads for a product unit.
type UnitForm struct {
	UnitName         string  `json:"unit_name" validate:"required,max=50"`
	ConversionFactor float64 `json:"conversion_factor" validate:"required,gt=0"`
	IsBaseUnit       bool    `json:"is_base_unit"`
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// Service implements the product unit registry.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService constructs Service. The audit port is optional.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

func validateForm(form UnitForm) error {
	if strings.TrimSpace(form.UnitName) == "" {
		return fmt.Errorf("%w: unit_name", shared.ErrRequiredField)
	}
	if !stock.ValidFactor(form.ConversionFactor) {
		return stock.ErrInvalidConversionFactor
	}
	return nil
}

// Create registers a unit for the product. When the new unit is flagged as
// base, the product's current base unit is demoted in the same transaction so
// at most one base unit exists at any point.
func (s *Service) Create(ctx context.Context, productID int64, form UnitForm) (ProductUnit, error) {
	if s == nil || s.repo == nil {
		return ProductUnit{}, fmt.Errorf("unit service is not initialized")
	}
	if productID <= 0 {
		return ProductUnit{}, shared.ErrInvalidID
	}
	if err := validateForm(form); err != nil {
		return ProductUnit{}, err
	}

	var created ProductUnit
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if form.IsBaseUnit {
			if err := tx.DemoteBase(ctx, productID); err != nil {
				return err
			}
		}
		unit, err := tx.Insert(ctx, ProductUnit{
			ProductID:        productID,
			UnitName:         strings.TrimSpace(form.UnitName),
			ConversionFactor: form.ConversionFactor,
			IsBaseUnit:       form.IsBaseUnit,
		})
		if err != nil {
			return err
		}
		created = unit
		return nil
	})
	if err != nil {
		return ProductUnit{}, err
	}

	s.logger.Info("product unit created",
		slog.Int64("product_id", productID),
		slog.Int64("unit_id", created.ID),
		slog.String("unit_name", created.UnitName),
		slog.Bool("is_base_unit", created.IsBaseUnit))
	if created.IsBaseUnit {
		s.recordPromotion(ctx, created)
	}
	return created, nil
}

// Update changes name, factor, or base flag of an existing unit. Promoting a
// non-base unit demotes the previous base unit transactionally. Clearing the
// base flag on the current base unit is permitted and leaves the product
// without a base unit until another is promoted; listings then fall back to
// the neutral conversion placeholder.
func (s *Service) Update(ctx context.Context, unitID int64, form UnitForm) (ProductUnit, error) {
	if s == nil || s.repo == nil {
		return ProductUnit{}, fmt.Errorf("unit service is not initialized")
	}
	if unitID <= 0 {
		return ProductUnit{}, shared.ErrInvalidID
	}
	if err := validateForm(form); err != nil {
		return ProductUnit{}, err
	}

	var (
		updated  ProductUnit
		promoted bool
		demoted  bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, unitID)
		if err != nil {
			return err
		}
		promoted = form.IsBaseUnit && !current.IsBaseUnit
		demoted = current.IsBaseUnit && !form.IsBaseUnit
		if promoted {
			if err := tx.DemoteBase(ctx, current.ProductID); err != nil {
				return err
			}
		}
		updated = current
		updated.UnitName = strings.TrimSpace(form.UnitName)
		updated.ConversionFactor = form.ConversionFactor
		updated.IsBaseUnit = form.IsBaseUnit
		return tx.Update(ctx, unitID, updated)
	})
	if err != nil {
		return ProductUnit{}, err
	}

	s.logger.Info("product unit updated",
		slog.Int64("unit_id", unitID),
		slog.String("unit_name", updated.UnitName))
	if promoted {
		s.recordPromotion(ctx, updated)
	}
	if demoted {
		s.logger.Warn("product left without base unit",
			slog.Int64("product_id", updated.ProductID),
			slog.Int64("unit_id", unitID))
	}
	return updated, nil
}

// recordPromotion writes an audit row for a base unit change. Audit failures
// are logged, never surfaced to the caller.
func (s *Service) recordPromotion(ctx context.Context, unit ProductUnit) {
	if s.audit == nil {
		return
	}
	actor := internalShared.ActorFromContext(ctx)
	err := s.audit.Record(ctx, internalShared.AuditLog{
		ActorID:  actor.ID,
		Action:   "units:promote_base",
		Entity:   "product_unit",
		EntityID: strconv.FormatInt(unit.ID, 10),
		Meta: map[string]any{
			"product_id":        unit.ProductID,
			"unit_name":         unit.UnitName,
			"conversion_factor": unit.ConversionFactor,
		},
	})
	if err != nil {
		s.logger.Warn("audit record failed",
			slog.Int64("unit_id", unit.ID),
			slog.String("error", err.Error()))
	}
}

// Deactivate removes a unit from active listings. The base unit can never be
// deactivated while the product still references it for conversions.
func (s *Service) Deactivate(ctx context.Context, unitID int64) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("unit service is not initialized")
	}
	if unitID <= 0 {
		return shared.ErrInvalidID
	}
	unit, err := s.repo.Get(ctx, unitID)
	if err != nil {
		return err
	}
	if unit.IsBaseUnit {
		return ErrCannotRemoveBaseUnit
	}
	if err := s.repo.Deactivate(ctx, unitID); err != nil {
		return err
	}
	s.logger.Info("product unit deactivated",
		slog.Int64("unit_id", unitID),
		slog.String("unit_name", unit.UnitName))
	return nil
}

// List returns the product's active units, base unit first, each annotated
// with a human-readable conversion example relative to the base unit.
func (s *Service) List(ctx context.Context, productID int64) ([]UnitView, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("unit service is not initialized")
	}
	if productID <= 0 {
		return nil, shared.ErrInvalidID
	}
	units, err := s.repo.ListActive(ctx, productID)
	if err != nil {
		return nil, err
	}

	baseName := ""
	for _, u := range units {
		if u.IsBaseUnit {
			baseName = u.UnitName
			break
		}
	}
	if baseName == "" && len(units) > 0 {
		s.logger.Warn("product has no base unit", slog.Int64("product_id", productID))
		baseName = "unit"
	}

	views := make([]UnitView, 0, len(units))
	for _, u := range units {
		views = append(views, UnitView{
			ProductUnit:       u,
			ConversionExample: conversionExample(u, baseName),
		})
	}
	return views, nil
}

func conversionExample(u ProductUnit, baseName string) string {
	factor := strconv.FormatFloat(u.ConversionFactor, 'f', -1, 64)
	return fmt.Sprintf("1 %s = %s %s", u.UnitName, factor, baseName)
}
