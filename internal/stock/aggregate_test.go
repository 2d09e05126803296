package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func inbound(qty float64, unit UnitType) Movement {
	return Movement{ProductID: 1, Direction: DirectionInbound, Quantity: qty, UnitType: unit, CreatedAt: time.Now()}
}

func outbound(qty float64, unit UnitType) Movement {
	return Movement{ProductID: 1, Direction: DirectionOutbound, Quantity: qty, UnitType: unit, CreatedAt: time.Now()}
}

func TestApplyInboundBaseUnits(t *testing.T) {
	snap, err := Apply(Snapshot{}, inbound(5, UnitBase), 12)
	require.NoError(t, err)
	require.Equal(t, 60.0, snap.StockPcs)
	require.Equal(t, 5.0, snap.StockQuantity)
	require.Equal(t, 60.0, snap.TotalAdded)
	require.Equal(t, int64(1), snap.MovementCount)
}

func TestApplyOutboundFloorsDerivedQuantity(t *testing.T) {
	snap, err := Apply(Snapshot{StockPcs: 60, StockQuantity: 5, TotalAdded: 60, MovementCount: 1}, outbound(13, UnitPieces), 12)
	require.NoError(t, err)
	require.Equal(t, 47.0, snap.StockPcs)
	require.Equal(t, 3.0, snap.StockQuantity)
	require.Equal(t, 13.0, snap.TotalReduced)
	require.Equal(t, int64(2), snap.MovementCount)
}

func TestApplyRejectsInvalidMovement(t *testing.T) {
	_, err := Apply(Snapshot{}, inbound(0, UnitPieces), 12)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Apply(Snapshot{}, inbound(-5, UnitPieces), 12)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	m := inbound(5, "carton")
	_, err = Apply(Snapshot{}, m, 12)
	require.ErrorIs(t, err, ErrInvalidMovementData)

	m = inbound(5, UnitPieces)
	m.Direction = "sideways"
	_, err = Apply(Snapshot{}, m, 12)
	require.ErrorIs(t, err, ErrInvalidMovementData)
}

func TestApplyInsufficientStockReportsAvailableInRequestedUnit(t *testing.T) {
	start := Snapshot{StockPcs: 84, StockQuantity: 7}

	_, err := Apply(start, outbound(90, UnitPieces), 12)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 90.0, insufficient.Requested)
	require.Equal(t, 84.0, insufficient.Available)
	require.Equal(t, 84.0, insufficient.AvailablePcs)
	require.Equal(t, UnitPieces, insufficient.UnitType)

	// Requested in base units: available is floored to whole base units.
	_, err = Apply(Snapshot{StockPcs: 83}, outbound(7, UnitBase), 12)
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 7.0, insufficient.Requested)
	require.Equal(t, 6.0, insufficient.Available)
	require.Equal(t, 83.0, insufficient.AvailablePcs)
	require.Equal(t, UnitBase, insufficient.UnitType)
}

func TestApplyDrainToExactlyZero(t *testing.T) {
	snap, err := Apply(Snapshot{StockPcs: 60, StockQuantity: 5}, outbound(5, UnitBase), 12)
	require.NoError(t, err)
	require.Equal(t, 0.0, snap.StockPcs)
	require.Equal(t, 0.0, snap.StockQuantity)
}

// Mixed-unit flow from a fresh product: add 5 base units (60 pcs), add 24 pcs
// (84 pcs), then a 90 pcs reduction is rejected with the exact available
// amount and leaves the snapshot untouched.
func TestMixedUnitFlow(t *testing.T) {
	state := ProductState{ID: 1, PcsPerBaseUnit: 12}

	snap, err := Apply(Snapshot{}, inbound(5, UnitBase), state.PcsPerBaseUnit)
	require.NoError(t, err)
	require.Equal(t, 60.0, snap.StockPcs)

	snap, err = Apply(snap, inbound(24, UnitPieces), state.PcsPerBaseUnit)
	require.NoError(t, err)
	require.Equal(t, 84.0, snap.StockPcs)
	require.Equal(t, 7.0, snap.StockQuantity)

	_, err = Apply(snap, outbound(90, UnitPieces), state.PcsPerBaseUnit)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, 84.0, insufficient.Available)
	require.Equal(t, 84.0, snap.StockPcs)
}

// The incremental fold and the full replay must land on the same snapshot for
// any accepted movement sequence.
func TestReplayMatchesIncrementalApply(t *testing.T) {
	state := ProductState{ID: 1, PcsPerBaseUnit: 12, InitialQuantity: 2, InitialPcs: 24}
	movements := []Movement{
		inbound(5, UnitBase),
		outbound(13, UnitPieces),
		inbound(100, UnitPieces),
		outbound(3, UnitBase),
		inbound(0.5, UnitBase),
		outbound(1, UnitPieces),
	}

	incremental := Snapshot{StockQuantity: state.InitialQuantity, StockPcs: state.InitialPcs}
	for _, m := range movements {
		next, err := Apply(incremental, m, state.PcsPerBaseUnit)
		require.NoError(t, err)
		incremental = next
	}

	replayed, err := Replay(state, movements)
	require.NoError(t, err)
	require.True(t, replayed.Equal(incremental), "replayed %+v incremental %+v", replayed, incremental)
	require.Equal(t, int64(len(movements)), replayed.MovementCount)
}

func TestReplayTotalsAreMonotonic(t *testing.T) {
	state := ProductState{ID: 1, PcsPerBaseUnit: 12}
	movements := []Movement{
		inbound(10, UnitBase),
		outbound(30, UnitPieces),
		inbound(2, UnitBase),
		outbound(1, UnitBase),
	}

	snap := Snapshot{}
	prevAdded, prevReduced := 0.0, 0.0
	for _, m := range movements {
		next, err := Apply(snap, m, state.PcsPerBaseUnit)
		require.NoError(t, err)
		require.GreaterOrEqual(t, next.TotalAdded, prevAdded)
		require.GreaterOrEqual(t, next.TotalReduced, prevReduced)
		require.GreaterOrEqual(t, next.StockPcs, 0.0)
		prevAdded, prevReduced = next.TotalAdded, next.TotalReduced
		snap = next
	}
	require.InDelta(t, snap.StockPcs, snap.TotalAdded-snap.TotalReduced, 1e-9)
}

func TestSnapshotEqualTolerance(t *testing.T) {
	a := Snapshot{StockQuantity: 5, StockPcs: 60, TotalAdded: 60, MovementCount: 1}
	b := a
	b.StockPcs += 1e-12
	require.True(t, a.Equal(b))

	b.StockPcs = 60.5
	require.False(t, a.Equal(b))

	b = a
	b.MovementCount = 2
	require.False(t, a.Equal(b))
}

func TestEvaluateLowStockBoundary(t *testing.T) {
	require.Equal(t, StatusLowStock, Evaluate(10, 10))
	require.Equal(t, StatusLowStock, Evaluate(9, 10))
	require.Equal(t, StatusInStock, Evaluate(11, 10))
	require.Equal(t, StatusLowStock, Evaluate(0, 0))
}
