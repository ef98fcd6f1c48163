package dto

import (
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/declaration"
	"stockbook/internal/domain/ledger"
)

// DeclarationItemRequest is one line of a new declaration.
type DeclarationItemRequest struct {
	ProductID    string  `json:"productId,omitempty"`
	CustomerCode string  `json:"customerCode,omitempty"`
	BatchNo      string  `json:"batchNo" binding:"required"`
	Quantity     float64 `json:"quantity" binding:"required,gt=0"`

	// Manual marks a free-text line with no product master entry.
	Manual bool `json:"manual,omitempty"`

	// UnitWeight is only honored for manual items; product-backed items
	// snapshot their weight from the master.
	UnitWeight string `json:"unitWeight,omitempty"`
}

// CreateDeclarationRequest creates a pending customs declaration.
type CreateDeclarationRequest struct {
	PONumber string                   `json:"poNumber" binding:"required"`
	Date     time.Time                `json:"date" binding:"required"`
	Items    []DeclarationItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToEntity converts the request to a domain declaration.
func (r *CreateDeclarationRequest) ToEntity() (*declaration.Declaration, error) {
	d := &declaration.Declaration{
		PONumber: r.PONumber,
		Date:     r.Date,
	}

	for i, itemReq := range r.Items {
		item := &declaration.Item{
			CustomerCode: itemReq.CustomerCode,
			BatchNo:      itemReq.BatchNo,
			Quantity:     types.NewQuantityFromFloat64(itemReq.Quantity),
			Manual:       itemReq.Manual,
		}

		if itemReq.ProductID != "" {
			productID, err := id.Parse(itemReq.ProductID)
			if err != nil {
				return nil, apperror.NewValidation("invalid product id").
					WithDetail("line", i+1).
					WithDetail("value", itemReq.ProductID)
			}
			item.ProductID = productID
		}

		if itemReq.Manual && itemReq.UnitWeight != "" {
			w, err := types.NewWeightFromString(itemReq.UnitWeight)
			if err != nil {
				return nil, apperror.NewValidation("invalid unit weight").
					WithDetail("line", i+1).
					WithDetail("value", itemReq.UnitWeight)
			}
			item.UnitWeight = w
		}

		d.Items = append(d.Items, item)
	}

	return d, nil
}

// SubmitOutboundRequest processes the outbound shipment of a pending
// declaration.
type SubmitOutboundRequest struct {
	TransactionDate time.Time  `json:"transactionDate" binding:"required"`
	ShipmentName    string     `json:"shipmentName,omitempty"`
	ContainerNo     string     `json:"containerNo,omitempty"`
	SealNo          string     `json:"sealNo,omitempty"`
	ETD             *time.Time `json:"etd,omitempty"`
	ETA             *time.Time `json:"eta,omitempty"`
	Warehouse       string     `json:"warehouse,omitempty"`
}

// ToMeta converts the request to shipment metadata.
func (r *SubmitOutboundRequest) ToMeta() declaration.ShipmentMeta {
	return declaration.ShipmentMeta{
		ShipmentName: r.ShipmentName,
		ContainerNo:  r.ContainerNo,
		SealNo:       r.SealNo,
		ETD:          r.ETD,
		ETA:          r.ETA,
		Warehouse:    ledger.Warehouse(r.Warehouse),
	}
}

// AnnotateShipmentRequest appends an activity note to an archive.
type AnnotateShipmentRequest struct {
	Note string `json:"note" binding:"required"`
}

// DeclarationListQuery filters declaration listings.
type DeclarationListQuery struct {
	Status   string `form:"status"`
	PONumber string `form:"poNumber"`
	PaginationRequest
}

// ArchiveListQuery filters archived shipment listings.
type ArchiveListQuery struct {
	PONumber string `form:"poNumber"`
	PaginationRequest
}

// ArchiveResponse bundles an archived shipment with its activity log.
type ArchiveResponse struct {
	Shipment *declaration.ArchivedShipment `json:"shipment"`
	Activity []*declaration.ActivityNote   `json:"activity"`
}
