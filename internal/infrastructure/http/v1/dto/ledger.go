package dto

import (
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// PostInboundRequest records a goods receipt.
type PostInboundRequest struct {
	ProductID   string    `json:"productId" binding:"required"`
	Warehouse   string    `json:"warehouse" binding:"required"`
	Quantity    float64   `json:"quantity" binding:"required,gt=0"`
	Date        time.Time `json:"date" binding:"required"`
	BatchNo     string    `json:"batchNo,omitempty"`
	ReferenceNo string    `json:"referenceNo,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// ToInput converts the request to a service input.
func (r *PostInboundRequest) ToInput() (ledger.InboundInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return ledger.InboundInput{}, apperror.NewValidation("invalid product id").
			WithDetail("value", r.ProductID)
	}
	return ledger.InboundInput{
		ProductID:   productID,
		Warehouse:   ledger.Warehouse(r.Warehouse),
		Quantity:    types.NewQuantityFromFloat64(r.Quantity),
		Date:        r.Date,
		BatchNo:     r.BatchNo,
		ReferenceNo: r.ReferenceNo,
		Notes:       r.Notes,
	}, nil
}

// PostAdjustmentRequest corrects stock to a counted quantity.
type PostAdjustmentRequest struct {
	ProductID string    `json:"productId" binding:"required"`
	Warehouse string    `json:"warehouse" binding:"required"`
	NewCount  float64   `json:"newCount" binding:"gte=0"`
	Date      time.Time `json:"date" binding:"required"`
	Reason    string    `json:"reason,omitempty"`
}

// ToInput converts the request to a service input.
func (r *PostAdjustmentRequest) ToInput() (ledger.AdjustmentInput, error) {
	productID, err := id.Parse(r.ProductID)
	if err != nil {
		return ledger.AdjustmentInput{}, apperror.NewValidation("invalid product id").
			WithDetail("value", r.ProductID)
	}
	return ledger.AdjustmentInput{
		ProductID: productID,
		Warehouse: ledger.Warehouse(r.Warehouse),
		NewCount:  types.NewQuantityFromFloat64(r.NewCount),
		Date:      r.Date,
		Reason:    r.Reason,
	}, nil
}

// PostConversionRequest repackages stock between two products.
type PostConversionRequest struct {
	SourceProductID string    `json:"sourceProductId" binding:"required"`
	TargetProductID string    `json:"targetProductId" binding:"required"`
	Warehouse       string    `json:"warehouse" binding:"required"`
	Quantity        float64   `json:"quantity" binding:"required,gt=0"`
	Date            time.Time `json:"date" binding:"required"`
	Notes           string    `json:"notes,omitempty"`
}

// ToInput converts the request to a service input.
func (r *PostConversionRequest) ToInput() (ledger.ConversionInput, error) {
	sourceID, err := id.Parse(r.SourceProductID)
	if err != nil {
		return ledger.ConversionInput{}, apperror.NewValidation("invalid source product id").
			WithDetail("value", r.SourceProductID)
	}
	targetID, err := id.Parse(r.TargetProductID)
	if err != nil {
		return ledger.ConversionInput{}, apperror.NewValidation("invalid target product id").
			WithDetail("value", r.TargetProductID)
	}
	return ledger.ConversionInput{
		SourceProductID: sourceID,
		TargetProductID: targetID,
		Warehouse:       ledger.Warehouse(r.Warehouse),
		Quantity:        types.NewQuantityFromFloat64(r.Quantity),
		Date:            r.Date,
		Notes:           r.Notes,
	}, nil
}

// ConversionResponse reports both sides of a posted conversion.
type ConversionResponse struct {
	OutTransactionID string `json:"outTransactionId"`
	InTransactionID  string `json:"inTransactionId"`
}

// AdjustmentResponse reports a posted adjustment, or a no-op when the
// counted quantity already matched.
type AdjustmentResponse struct {
	TransactionID string         `json:"transactionId,omitempty"`
	Delta         types.Quantity `json:"delta"`
	Noop          bool           `json:"noop"`
}

// TransactionListQuery filters register listings.
type TransactionListQuery struct {
	ProductID string `form:"productId"`
	Warehouse string `form:"warehouse"`
	Type      string `form:"type"`
	DateFrom  string `form:"dateFrom"`
	DateTo    string `form:"dateTo"`
	BatchNo   string `form:"batchNo"`
	PaginationRequest
}
