package ledger

import (
	"context"
	"time"

	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Filter narrows register queries.
type Filter struct {
	ProductID id.ID
	Warehouse Warehouse
	Type      Type
	DateFrom  time.Time
	DateTo    time.Time
	BatchNo   string
	Limit     int
	Offset    int
}

// Repository is the persistence port for the transaction register.
//
// CreateBatch and LockProducts must be called inside a transaction;
// the postgres implementation relies on the transaction carried in
// context by tx.Manager.
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	CreateBatch(ctx context.Context, txs []*Transaction) error
	GetByID(ctx context.Context, txID id.ID) (*Transaction, error)
	List(ctx context.Context, filter Filter) ([]*Transaction, error)

	// LockProducts takes row locks on the given products, serializing
	// concurrent stock checks against the same product.
	LockProducts(ctx context.Context, productIDs []id.ID) error

	// SumByProduct returns the signed sum of all register rows for a
	// product, optionally scoped to one warehouse (empty = both).
	SumByProduct(ctx context.Context, productID id.ID, warehouse Warehouse) (types.Quantity, error)

	// SumByProducts is the bulk form of SumByProduct. Products with no
	// rows are absent from the result map.
	SumByProducts(ctx context.Context, productIDs []id.ID, warehouse Warehouse) (map[id.ID]types.Quantity, error)

	// HasOpeningWithReference reports whether any OPENING row carries
	// the given reference number. Used as the closing idempotency guard.
	HasOpeningWithReference(ctx context.Context, referenceNo string) (bool, error)
}
