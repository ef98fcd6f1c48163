// Package product provides the product master-data catalog.
// The ledger only reads products; code generation and bulk imports are
// handled by external tooling.
package product

import (
	"context"
	"time"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/id"
	"stockbook/internal/core/types"
)

// Status is the product lifecycle status.
// Transitions between statuses are free-form; products are never hard-deleted.
type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDiscontinued Status = "discontinued"
)

// Product represents an item in the product master.
type Product struct {
	ID id.ID `db:"id" json:"id"`

	// Code is the system code, a unique, immutable business key.
	Code string `db:"code" json:"code"`

	// Name is the display name.
	Name string `db:"name" json:"name"`

	// LocalName is the localized display name.
	LocalName string `db:"local_name" json:"localName,omitempty"`

	Country string `db:"country" json:"country,omitempty"`
	Vendor  string `db:"vendor" json:"vendor,omitempty"`
	Type    string `db:"type" json:"type,omitempty"`

	// UnitWeight is the weight in kilograms per packing unit.
	UnitWeight types.Weight `db:"unit_weight" json:"unitWeight"`

	// PackingSize describes the packing (e.g. "12x500g").
	PackingSize string `db:"packing_size" json:"packingSize,omitempty"`

	// WIP marks the product as eligible for package conversion.
	WIP bool `db:"wip" json:"wip"`

	Status Status `db:"status" json:"status"`

	// AccountCode groups products for weight-based financial reporting.
	// Optional; products without one fall out of weight reports.
	AccountCode string `db:"account_code" json:"accountCode,omitempty"`

	// Version for optimistic locking (incremented on each update).
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// New creates a new Product with generated ID.
func New(code, name string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Status:    StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
	p.Version++
}

// IsActive reports whether the product accepts new transactions.
func (p *Product) IsActive() bool {
	return p.Status == StatusActive
}

// Validate checks entity invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Code == "" {
		return apperror.NewValidation("system code is required").
			WithDetail("field", "code")
	}

	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}

	if !isValidStatus(p.Status) {
		return apperror.NewValidation("invalid status").
			WithDetail("field", "status").
			WithDetail("value", string(p.Status))
	}

	if p.UnitWeight.IsNegative() {
		return apperror.NewValidation("unit weight cannot be negative").
			WithDetail("field", "unitWeight")
	}

	return nil
}

func isValidStatus(s Status) bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}
