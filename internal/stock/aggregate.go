package stock

import "math"

// Tolerance for float comparisons on piece quantities.
const epsilon = 1e-9

// PieceEquivalent converts a movement quantity to pieces using the product
// conversion factor when the movement is denominated in base units.
func PieceEquivalent(m Movement, pcsPerBaseUnit float64) (float64, error) {
	switch m.UnitType {
	case UnitPieces:
		return m.Quantity, nil
	case UnitBase:
		return ToPieces(m.Quantity, pcsPerBaseUnit)
	default:
		return 0, ErrInvalidMovementData
	}
}

// Apply folds one movement into a snapshot. The same update runs on the
// incremental path for every accepted movement and on the replay path when
// the snapshot is rebuilt from history, so both must stay byte-identical.
func Apply(s Snapshot, m Movement, pcsPerBaseUnit float64) (Snapshot, error) {
	if m.Quantity <= 0 || math.IsNaN(m.Quantity) || math.IsInf(m.Quantity, 0) {
		return Snapshot{}, ErrInvalidQuantity
	}
	if !ValidDirection(m.Direction) || !ValidUnitType(m.UnitType) {
		return Snapshot{}, ErrInvalidMovementData
	}

	pcs, err := PieceEquivalent(m, pcsPerBaseUnit)
	if err != nil {
		return Snapshot{}, err
	}

	next := s
	switch m.Direction {
	case DirectionInbound:
		next.StockPcs += pcs
		next.TotalAdded += pcs
	case DirectionOutbound:
		if next.StockPcs-pcs < -epsilon {
			available := next.StockPcs
			if m.UnitType == UnitBase {
				available, err = ToBaseUnits(next.StockPcs, pcsPerBaseUnit)
				if err != nil {
					return Snapshot{}, err
				}
			}
			return Snapshot{}, &InsufficientStockError{
				ProductID:    m.ProductID,
				Requested:    m.Quantity,
				Available:    available,
				AvailablePcs: next.StockPcs,
				UnitType:     m.UnitType,
			}
		}
		next.StockPcs -= pcs
		if next.StockPcs < 0 {
			next.StockPcs = 0
		}
		next.TotalReduced += pcs
	}

	next.StockQuantity, err = ToBaseUnits(next.StockPcs, pcsPerBaseUnit)
	if err != nil {
		return Snapshot{}, err
	}
	next.MovementCount++
	return next, nil
}

// Replay rebuilds the snapshot from the initial stock over the full ordered
// movement list (oldest first). The cached snapshot is only ever a cache of
// this fold; the ledger stays authoritative.
func Replay(state ProductState, movements []Movement) (Snapshot, error) {
	snap := Snapshot{
		StockQuantity: state.InitialQuantity,
		StockPcs:      state.InitialPcs,
	}
	for _, m := range movements {
		next, err := Apply(snap, m, state.PcsPerBaseUnit)
		if err != nil {
			return Snapshot{}, err
		}
		snap = next
	}
	return snap, nil
}

// Equal compares two snapshots within float tolerance.
func (s Snapshot) Equal(other Snapshot) bool {
	return math.Abs(s.StockQuantity-other.StockQuantity) < epsilon &&
		math.Abs(s.StockPcs-other.StockPcs) < epsilon &&
		math.Abs(s.TotalAdded-other.TotalAdded) < epsilon &&
		math.Abs(s.TotalReduced-other.TotalReduced) < epsilon &&
		s.MovementCount == other.MovementCount
}

// Evaluate classifies piece stock against the minimum level. Recomputed fresh
// on every read; the classification carries no memory of prior state.
func Evaluate(stockPcs, minStockLevel float64) Status {
	if stockPcs <= minStockLevel {
		return StatusLowStock
	}
	return StatusInStock
}
