package product

import (
	"context"

	"stockbook/internal/core/id"
)

// Filter narrows List results. Zero values mean "no filter".
type Filter struct {
	Status      Status
	Country     string
	Vendor      string
	AccountCode string
	WIPOnly     bool

	// Search matches code, name or local name (case-insensitive substring).
	Search string

	Limit  int
	Offset int
}

// Repository is the persistence port for the product master.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByCode(ctx context.Context, code string) (*Product, error)
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error)
	List(ctx context.Context, filter Filter) ([]*Product, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
}

// Lookup is the read-only view other domains depend on.
type Lookup interface {
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
	GetByIDs(ctx context.Context, ids []id.ID) ([]*Product, error)
}
