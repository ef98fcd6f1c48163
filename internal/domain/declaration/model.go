// Package declaration implements the customs declaration and archived
// shipment workflow: a declaration is saved as pending, its outbound is
// submitted through the stock register, and the shipped state is frozen
// into an archived shipment with an activity log.
package declaration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// Status is the declaration lifecycle state. Transitions are forward
// only; a completed declaration is never reopened.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Item is one line of a declaration. Manual items carry no product
// reference; they appear on the declaration and the archive but never
// touch the stock register.
type Item struct {
	ID            id.ID `db:"id" json:"id"`
	DeclarationID id.ID `db:"declaration_id" json:"-"`

	// SerialNo runs densely 1..N within the declaration.
	SerialNo int `db:"serial_no" json:"serialNo"`

	ProductID    id.ID          `db:"product_id" json:"productId,omitempty"`
	CustomerCode string         `db:"customer_code" json:"customerCode,omitempty"`
	BatchNo      string         `db:"batch_no" json:"batchNo"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`

	// UnitWeight is kilograms per packing unit, snapshotted from the
	// product master at creation time.
	UnitWeight types.Weight `db:"unit_weight" json:"unitWeight"`

	// TotalWeight = Quantity * UnitWeight, stored, not recomputed.
	TotalWeight types.Weight `db:"total_weight" json:"totalWeight"`

	Manual bool `db:"manual" json:"manual"`
}

// Declaration is a customs declaration with snapshotted totals.
type Declaration struct {
	ID       id.ID  `db:"id" json:"id"`
	PONumber string `db:"po_number" json:"poNumber"`

	Date   time.Time `db:"date" json:"date"`
	Status Status    `db:"status" json:"status"`

	// Totals are a snapshot taken at creation time.
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	NetWeight     types.Weight   `db:"net_weight" json:"netWeight"`
	CartonWeight  types.Weight   `db:"carton_weight" json:"cartonWeight"`
	GrossWeight   types.Weight   `db:"gross_weight" json:"grossWeight"`

	Version   int       `db:"version" json:"version"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Items []*Item `db:"-" json:"items,omitempty"`
}

// SnapshotTotals computes and stores the aggregate totals from the
// items. Carton weight is a fixed coefficient of the net weight.
func (d *Declaration) SnapshotTotals() {
	var totalQty types.Quantity
	net := decimal.Zero
	for _, item := range d.Items {
		item.TotalWeight = item.Quantity.Decimal().Mul(item.UnitWeight)
		totalQty += item.Quantity
		net = net.Add(item.TotalWeight)
	}
	d.TotalQuantity = totalQty
	d.NetWeight = net
	d.CartonWeight = types.CartonWeight(net)
	d.GrossWeight = types.GrossWeight(net)
}

// Validate checks declaration invariants before persisting.
func (d *Declaration) Validate(ctx context.Context) error {
	if d.PONumber == "" {
		return apperror.NewValidation("PO number is required").
			WithDetail("field", "poNumber")
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("declaration date is required").
			WithDetail("field", "date")
	}
	if len(d.Items) == 0 {
		return apperror.NewValidation("declaration needs at least one item")
	}

	for i, item := range d.Items {
		if item.SerialNo != i+1 {
			return apperror.NewValidation("item serial numbers must run 1..N").
				WithDetail("line", i+1).
				WithDetail("serialNo", item.SerialNo)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("item quantity must be positive").
				WithDetail("line", i+1)
		}
		if item.BatchNo == "" {
			return apperror.NewValidation("item batch number is required").
				WithDetail("line", i+1)
		}
		if !item.Manual && id.IsNil(item.ProductID) {
			return apperror.NewValidation("item needs a product or the manual flag").
				WithDetail("line", i+1)
		}
	}

	return nil
}

// ArchivedItem is a frozen copy of a shipped line.
type ArchivedItem struct {
	ID         id.ID `db:"id" json:"id"`
	ShipmentID id.ID `db:"shipment_id" json:"-"`
	SerialNo   int   `db:"serial_no" json:"serialNo"`

	ProductID    id.ID          `db:"product_id" json:"productId,omitempty"`
	ProductCode  string         `db:"product_code" json:"productCode,omitempty"`
	CustomerCode string         `db:"customer_code" json:"customerCode,omitempty"`
	BatchNo      string         `db:"batch_no" json:"batchNo"`
	Quantity     types.Quantity `db:"quantity" json:"quantity"`
	TotalWeight  types.Weight   `db:"total_weight" json:"totalWeight"`
	Manual       bool           `db:"manual" json:"manual"`

	// TransactionID links the line to its OUT register row. Nil for
	// manual items, which never generate ledger transactions.
	TransactionID id.ID `db:"transaction_id" json:"transactionId,omitempty"`
}

// ShipmentMeta is the caller-supplied shipment header.
type ShipmentMeta struct {
	ShipmentName string           `json:"shipmentName"`
	ContainerNo  string           `json:"containerNo"`
	SealNo       string           `json:"sealNo"`
	ETD          *time.Time       `json:"etd,omitempty"`
	ETA          *time.Time       `json:"eta,omitempty"`
	Warehouse    ledger.Warehouse `json:"warehouse"`
}

// ArchivedShipment is the immutable record of one processed outbound.
// Created exactly once per completed declaration; only its activity log
// grows afterwards.
type ArchivedShipment struct {
	ID id.ID `db:"id" json:"id"`

	// Reference is the generated shipment number (SHP-YYYY-NNNNN).
	Reference string `db:"reference" json:"reference"`

	ShipmentName string     `db:"shipment_name" json:"shipmentName"`
	ContainerNo  string     `db:"container_no" json:"containerNo,omitempty"`
	SealNo       string     `db:"seal_no" json:"sealNo,omitempty"`
	ETD          *time.Time `db:"etd" json:"etd,omitempty"`
	ETA          *time.Time `db:"eta" json:"eta,omitempty"`

	PONumber      string `db:"po_number" json:"poNumber,omitempty"`
	DeclarationID id.ID  `db:"declaration_id" json:"declarationId,omitempty"`

	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Items []*ArchivedItem `db:"-" json:"items,omitempty"`
}

// ActivityNote is one entry of a shipment's free-text activity log.
type ActivityNote struct {
	Seq       int       `json:"seq"`
	Note      string    `json:"note"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
