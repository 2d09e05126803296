package units

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/catalog/shared"
	internalShared "github.com/kasirpos/kasirpos/internal/shared"
	"github.com/kasirpos/kasirpos/internal/stock"
)

type memoryRepo struct {
	nextID int64
	units  map[int64]ProductUnit
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, units: map[int64]ProductUnit{}}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: m})
}

func (m *memoryRepo) ListActive(_ context.Context, productID int64) ([]ProductUnit, error) {
	out := []ProductUnit{}
	for _, u := range m.units {
		if u.ProductID == productID && u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsBaseUnit != out[j].IsBaseUnit {
			return out[i].IsBaseUnit
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryRepo) Get(_ context.Context, unitID int64) (ProductUnit, error) {
	u, ok := m.units[unitID]
	if !ok || !u.IsActive {
		return ProductUnit{}, ErrUnitNotFound
	}
	return u, nil
}

func (m *memoryRepo) Deactivate(_ context.Context, unitID int64) error {
	u, ok := m.units[unitID]
	if !ok || !u.IsActive {
		return ErrUnitNotFound
	}
	u.IsActive = false
	m.units[unitID] = u
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (m *memoryTx) Get(ctx context.Context, unitID int64) (ProductUnit, error) {
	return m.repo.Get(ctx, unitID)
}

func (m *memoryTx) DemoteBase(_ context.Context, productID int64) error {
	for id, u := range m.repo.units {
		if u.ProductID == productID && u.IsActive && u.IsBaseUnit {
			u.IsBaseUnit = false
			m.repo.units[id] = u
		}
	}
	return nil
}

func (m *memoryTx) Insert(_ context.Context, unit ProductUnit) (ProductUnit, error) {
	unit.ID = m.repo.nextID
	m.repo.nextID++
	unit.IsActive = true
	unit.CreatedAt = time.Now()
	m.repo.units[unit.ID] = unit
	return unit, nil
}

func (m *memoryTx) Update(_ context.Context, unitID int64, unit ProductUnit) error {
	current, ok := m.repo.units[unitID]
	if !ok || !current.IsActive {
		return ErrUnitNotFound
	}
	current.UnitName = unit.UnitName
	current.ConversionFactor = unit.ConversionFactor
	current.IsBaseUnit = unit.IsBaseUnit
	m.repo.units[unitID] = current
	return nil
}

type memoryAudit struct {
	logs []internalShared.AuditLog
}

func (m *memoryAudit) Record(_ context.Context, log internalShared.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newTestService() (*Service, *memoryRepo) {
	repo := newMemoryRepo()
	return NewService(repo, &memoryAudit{}, slog.Default()), repo
}

func TestCreateListsBaseUnitFirstWithConversionExample(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	base, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)
	require.True(t, base.IsBaseUnit)

	dus, err := svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 12})
	require.NoError(t, err)
	require.False(t, dus.IsBaseUnit)

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, "pcs", views[0].UnitName)
	require.Equal(t, "1 pcs = 1 pcs", views[0].ConversionExample)
	require.Equal(t, "dus", views[1].UnitName)
	require.Equal(t, "1 dus = 12 pcs", views[1].ConversionExample)
}

func TestCreateBaseUnitDemotesPreviousBase(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	old, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)

	_, err = svc.Create(ctx, 1, UnitForm{UnitName: "gram", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)

	require.False(t, repo.units[old.ID].IsBaseUnit)

	baseCount := 0
	for _, u := range repo.units {
		if u.IsBaseUnit {
			baseCount++
		}
	}
	require.Equal(t, 1, baseCount)
}

func TestCreateRejectsInvalidForm(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, UnitForm{UnitName: "  ", ConversionFactor: 12})
	require.ErrorIs(t, err, shared.ErrRequiredField)

	_, err = svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 0})
	require.ErrorIs(t, err, stock.ErrInvalidConversionFactor)

	_, err = svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: -3})
	require.ErrorIs(t, err, stock.ErrInvalidConversionFactor)
}

func TestUpdatePromotionDemotesOldBase(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	base, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)
	dus, err := svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 12})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, dus.ID, UnitForm{UnitName: "dus", ConversionFactor: 12, IsBaseUnit: true})
	require.NoError(t, err)
	require.True(t, updated.IsBaseUnit)
	require.False(t, repo.units[base.ID].IsBaseUnit)
}

func TestBasePromotionWritesAuditRow(t *testing.T) {
	repo := newMemoryRepo()
	audit := &memoryAudit{}
	svc := NewService(repo, audit, slog.Default())
	ctx := internalShared.ContextWithActor(context.Background(), internalShared.Actor{ID: 42, Role: "admin"})

	base, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)
	dus, err := svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 12})
	require.NoError(t, err)

	_, err = svc.Update(ctx, dus.ID, UnitForm{UnitName: "dus", ConversionFactor: 12, IsBaseUnit: true})
	require.NoError(t, err)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "units:promote_base", audit.logs[0].Action)
	require.Equal(t, strconv.FormatInt(base.ID, 10), audit.logs[0].EntityID)
	require.Equal(t, strconv.FormatInt(dus.ID, 10), audit.logs[1].EntityID)
	require.EqualValues(t, 42, audit.logs[1].ActorID)
	require.Equal(t, float64(12), audit.logs[1].Meta["conversion_factor"])
}

func TestUpdateDemotesSoleBaseUnitLeavingNone(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	base, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, base.ID, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: false})
	require.NoError(t, err)
	require.False(t, updated.IsBaseUnit)
	require.False(t, repo.units[base.ID].IsBaseUnit)

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "1 pcs = 1 unit", views[0].ConversionExample)
}

func TestDeactivateRejectsBaseUnit(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	base, err := svc.Create(ctx, 1, UnitForm{UnitName: "pcs", ConversionFactor: 1, IsBaseUnit: true})
	require.NoError(t, err)
	dus, err := svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 12})
	require.NoError(t, err)

	err = svc.Deactivate(ctx, base.ID)
	require.ErrorIs(t, err, ErrCannotRemoveBaseUnit)

	require.NoError(t, svc.Deactivate(ctx, dus.ID))
	require.False(t, repo.units[dus.ID].IsActive)

	err = svc.Deactivate(ctx, dus.ID)
	require.ErrorIs(t, err, ErrUnitNotFound)
}

func TestListWithoutBaseUnitUsesNeutralPlaceholder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, UnitForm{UnitName: "dus", ConversionFactor: 12})
	require.NoError(t, err)

	views, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "1 dus = 12 unit", views[0].ConversionExample)
}
