package declaration

import (
	"context"
	"time"

	"stockbook/internal/core/id"
)

// Filter narrows declaration listings.
type Filter struct {
	Status   Status
	PONumber string
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	Offset   int
}

// Repository is the persistence port for declarations and their items.
type Repository interface {
	Create(ctx context.Context, d *Declaration) error
	GetByID(ctx context.Context, declarationID id.ID) (*Declaration, error)
	List(ctx context.Context, filter Filter) ([]*Declaration, error)

	// UpdateStatus flips the lifecycle state with an optimistic version
	// check; a stale version returns a conflict error.
	UpdateStatus(ctx context.Context, declarationID id.ID, status Status, version int) error

	// Delete removes a declaration and its items. Callers only invoke
	// this for pending declarations.
	Delete(ctx context.Context, declarationID id.ID) error
}

// ArchiveFilter narrows archived shipment listings.
type ArchiveFilter struct {
	PONumber string
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	Offset   int
}

// ArchiveRepository is the persistence port for archived shipments.
type ArchiveRepository interface {
	Create(ctx context.Context, a *ArchivedShipment) error
	GetByID(ctx context.Context, shipmentID id.ID) (*ArchivedShipment, error)
	List(ctx context.Context, filter ArchiveFilter) ([]*ArchivedShipment, error)
}

// ActivityLog records free-text annotations against an archived
// shipment. Entries are append-only and returned in insertion order.
type ActivityLog interface {
	Append(ctx context.Context, shipmentID id.ID, note string) (*ActivityNote, error)
	List(ctx context.Context, shipmentID id.ID) ([]*ActivityNote, error)
}
