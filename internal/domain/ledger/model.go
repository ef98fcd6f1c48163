// Package ledger implements the two-warehouse stock transaction register.
// Every stock movement is an immutable, append-only Transaction row;
// current stock is always derived by summing the register.
package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Type classifies a stock transaction.
type Type string

const (
	TypeIn            Type = "IN"
	TypeOut           Type = "OUT"
	TypeAdjustment    Type = "ADJUSTMENT"
	TypeOpening       Type = "OPENING"
	TypeConversionIn  Type = "CONVERSION_IN"
	TypeConversionOut Type = "CONVERSION_OUT"
)

// typeSigns maps each transaction type to its effect on stock.
// ADJUSTMENT carries a signed quantity directly, so its sign is 0 here
// and SignedQuantity returns the stored value unchanged.
var typeSigns = map[Type]int64{
	TypeIn:            1,
	TypeOut:           -1,
	TypeAdjustment:    0,
	TypeOpening:       1,
	TypeConversionIn:  1,
	TypeConversionOut: -1,
}

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	_, ok := typeSigns[t]
	return ok
}

// Warehouse identifies one of the two parallel stock scopes.
type Warehouse string

const (
	WarehouseExport Warehouse = "export"
	WarehouseLocal  Warehouse = "local"
)

// Warehouses lists all known warehouse scopes.
var Warehouses = []Warehouse{WarehouseExport, WarehouseLocal}

// Valid reports whether w is a known warehouse.
func (w Warehouse) Valid() bool {
	return w == WarehouseExport || w == WarehouseLocal
}

// Transaction is one immutable row of the stock register.
// Rows are never updated or deleted after posting; corrections are
// expressed as new ADJUSTMENT rows.
type Transaction struct {
	ID        id.ID     `db:"id" json:"id"`
	ProductID id.ID     `db:"product_id" json:"productId"`
	Warehouse Warehouse `db:"warehouse" json:"warehouse"`
	Type      Type      `db:"type" json:"type"`

	// Quantity is stored unsigned for all types except ADJUSTMENT,
	// which stores the signed delta.
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Date is the business date of the movement (not the insert time).
	Date time.Time `db:"date" json:"date"`

	BatchNo     string `db:"batch_no" json:"batchNo,omitempty"`
	ReferenceNo string `db:"reference_no" json:"referenceNo,omitempty"`
	Notes       string `db:"notes" json:"notes,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns the transaction's effect on stock:
// positive for inflows, negative for outflows, the stored signed
// delta for adjustments.
func (t *Transaction) SignedQuantity() types.Quantity {
	if t.Type == TypeAdjustment {
		return t.Quantity
	}
	sign := typeSigns[t.Type]
	return types.Quantity(int64(t.Quantity) * sign)
}

// Validate checks row invariants before posting.
func (t *Transaction) Validate(ctx context.Context) error {
	if id.IsNil(t.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	if !t.Warehouse.Valid() {
		return apperror.NewValidation("unknown warehouse").
			WithDetail("field", "warehouse").
			WithDetail("value", string(t.Warehouse))
	}

	if !t.Type.Valid() {
		return apperror.NewValidation("unknown transaction type").
			WithDetail("field", "type").
			WithDetail("value", string(t.Type))
	}

	if t.Type != TypeAdjustment && !t.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", t.Quantity.String())
	}

	if t.Date.IsZero() {
		return apperror.NewValidation("transaction date is required").
			WithDetail("field", "date")
	}

	return nil
}
