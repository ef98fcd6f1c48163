// Package stock derives current stock levels from the transaction
// register. There is no stored balance table; every figure is a sum
// over ledger rows at read time.
package stock

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
	"stockbook/internal/domain/ledger"
)

// Level is a derived stock figure for one product.
type Level struct {
	ProductID id.ID            `json:"productId"`
	Warehouse ledger.Warehouse `json:"warehouse,omitempty"`
	Quantity  types.Quantity   `json:"quantity"`
}

// Reader is the subset of the register used for aggregation.
type Reader interface {
	SumByProduct(ctx context.Context, productID id.ID, warehouse ledger.Warehouse) (types.Quantity, error)
	SumByProducts(ctx context.Context, productIDs []id.ID, warehouse ledger.Warehouse) (map[id.ID]types.Quantity, error)
}

// Service answers current-stock queries.
type Service struct {
	reader Reader
}

func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// CurrentStock returns the derived stock of one product. An empty
// warehouse sums both scopes. Products with no register rows report
// zero, not an error.
func (s *Service) CurrentStock(ctx context.Context, productID id.ID, warehouse ledger.Warehouse) (*Level, error) {
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if warehouse != "" && !warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(warehouse))
	}

	qty, err := s.reader.SumByProduct(ctx, productID, warehouse)
	if err != nil {
		return nil, err
	}

	return &Level{
		ProductID: productID,
		Warehouse: warehouse,
		Quantity:  qty,
	}, nil
}

// CurrentStockBulk returns derived stock for several products at once.
// Every requested product appears in the result, zero-filled when it
// has no register rows.
func (s *Service) CurrentStockBulk(ctx context.Context, productIDs []id.ID, warehouse ledger.Warehouse) ([]*Level, error) {
	if len(productIDs) == 0 {
		return nil, apperror.NewValidation("at least one product is required")
	}
	if warehouse != "" && !warehouse.Valid() {
		return nil, apperror.NewValidation("unknown warehouse").
			WithDetail("value", string(warehouse))
	}

	sums, err := s.reader.SumByProducts(ctx, productIDs, warehouse)
	if err != nil {
		return nil, err
	}

	levels := make([]*Level, 0, len(productIDs))
	for _, pid := range productIDs {
		levels = append(levels, &Level{
			ProductID: pid,
			Warehouse: warehouse,
			Quantity:  sums[pid],
		})
	}

	return levels, nil
}
