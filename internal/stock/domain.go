package stock

import (
	"errors"
	"fmt"
	"time"
)

// Direction enumerates supported movement directions.
type Direction string

const (
	// DirectionInbound represents stock coming in.
	DirectionInbound Direction = "inbound"
	// DirectionOutbound represents stock going out.
	DirectionOutbound Direction = "outbound"
)

// UnitType enumerates the unit a movement quantity is denominated in.
type UnitType string

const (
	// UnitPieces is the indivisible smallest sale unit.
	UnitPieces UnitType = "pieces"
	// UnitBase is the product-defined base unit (box, liter, kilogram).
	UnitBase UnitType = "base_unit"
)

// Movement is one immutable stock-changing event. Corrections are new
// movements in the opposite direction, never edits.
type Movement struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"product_id"`
	Direction       Direction `json:"direction"`
	Quantity        float64   `json:"quantity"`
	UnitType        UnitType  `json:"unit_type"`
	ReferenceNumber string    `json:"reference_number"`
	Notes           string    `json:"notes,omitempty"`
	RefID           string    `json:"ref_id,omitempty"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// Snapshot is the cached stock position derived from the initial stock plus
// the movement history. Piece count is canonical; the base-unit quantity is
// always re-derived with floor rounding.
type Snapshot struct {
	StockQuantity float64 `json:"stock_quantity"`
	StockPcs      float64 `json:"stock_pcs"`
	TotalAdded    float64 `json:"total_stock_added"`
	TotalReduced  float64 `json:"total_stock_reduced"`
	MovementCount int64   `json:"stock_movement_count"`
}

// ProductState is the stock-relevant view of a product row.
type ProductState struct {
	ID              int64
	Name            string
	SKU             string
	BaseUnit        string
	PcsPerBaseUnit  float64
	MinStockLevel   float64
	InitialQuantity float64
	InitialPcs      float64
	Snapshot        Snapshot
}

// Status classifies current stock against the configured minimum.
type Status string

const (
	// StatusInStock means piece stock is above the minimum level.
	StatusInStock Status = "in_stock"
	// StatusLowStock means piece stock is at or under the minimum level.
	StatusLowStock Status = "low_stock"
)

// HistoryFilter filters movement history reads.
type HistoryFilter struct {
	ProductID int64
	From      time.Time
	To        time.Time
	Limit     int
}

// ErrInvalidQuantity indicates a non-positive or non-finite movement quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrInvalidMovementData indicates an unrecognised direction or unit type.
var ErrInvalidMovementData = errors.New("stock: invalid movement data")

// ErrInvalidConversionFactor indicates a non-positive or non-finite factor.
var ErrInvalidConversionFactor = errors.New("stock: conversion factor must be positive and finite")

// ErrProductNotFound indicates a missing product row.
var ErrProductNotFound = errors.New("stock: product not found")

// InsufficientStockError rejects an outbound movement that would drive piece
// stock negative. Available carries the current stock expressed in the unit
// the caller asked for.
type InsufficientStockError struct {
	ProductID    int64
	Requested    float64
	Available    float64
	AvailablePcs float64
	UnitType     UnitType
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %d: requested %g %s, available %g %s", e.ProductID, e.Requested, e.UnitType, e.Available, e.UnitType)
}

// SnapshotReconciliationError signals that the ledger and the cached snapshot
// disagree. This is the one failure that must never be swallowed: the remedy
// is a replay from the initial snapshot, not a retry of the partial write.
type SnapshotReconciliationError struct {
	ProductID int64
	Stored    Snapshot
	Replayed  Snapshot
	Err       error
}

func (e *SnapshotReconciliationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stock: snapshot reconciliation required for product %d: %v", e.ProductID, e.Err)
	}
	return fmt.Sprintf("stock: snapshot diverged from ledger for product %d: stored pcs %g, replayed pcs %g", e.ProductID, e.Stored.StockPcs, e.Replayed.StockPcs)
}

func (e *SnapshotReconciliationError) Unwrap() error { return e.Err }

// ValidDirection reports whether d is a recognised direction.
func ValidDirection(d Direction) bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// ValidUnitType reports whether u is a recognised unit type.
func ValidUnitType(u UnitType) bool {
	return u == UnitPieces || u == UnitBase
}
