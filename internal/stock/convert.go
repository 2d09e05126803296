package stock

import "math"

// Unit conversion between base-unit and piece quantities. Piece count is the
// higher-fidelity representation: deriving base units from pieces floors the
// result, and the fractional remainder is intentionally discarded.

// ValidFactor reports whether f can be used as a conversion factor.
func ValidFactor(f float64) bool {
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ToPieces converts a base-unit quantity to pieces. Exact multiply, no rounding.
func ToPieces(baseQty, factor float64) (float64, error) {
	if !ValidFactor(factor) {
		return 0, ErrInvalidConversionFactor
	}
	return baseQty * factor, nil
}

// ToBaseUnits converts a piece quantity to whole base units, truncating the
// remainder toward zero.
func ToBaseUnits(pieceQty, factor float64) (float64, error) {
	if !ValidFactor(factor) {
		return 0, ErrInvalidConversionFactor
	}
	return math.Floor(pieceQty / factor), nil
}
