package dto

import (
	"github.com/shopspring/decimal"

	"stockbook/internal/domain/product"
)

// CreateProductRequest creates a product master record.
type CreateProductRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	LocalName   string `json:"localName,omitempty"`
	Country     string `json:"country,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	Type        string `json:"type,omitempty"`
	UnitWeight  string `json:"unitWeight,omitempty"`
	PackingSize string `json:"packingSize,omitempty"`
	WIP         bool   `json:"wip,omitempty"`
	AccountCode string `json:"accountCode,omitempty"`
}

// ToEntity converts the request to a domain product.
func (r *CreateProductRequest) ToEntity() (*product.Product, error) {
	p := product.New(r.Code, r.Name)
	p.LocalName = r.LocalName
	p.Country = r.Country
	p.Vendor = r.Vendor
	p.Type = r.Type
	p.PackingSize = r.PackingSize
	p.WIP = r.WIP
	p.AccountCode = r.AccountCode

	if r.UnitWeight != "" {
		w, err := decimal.NewFromString(r.UnitWeight)
		if err != nil {
			return nil, err
		}
		p.UnitWeight = w
	}

	return p, nil
}

// UpdateProductRequest applies partial changes to a product.
type UpdateProductRequest struct {
	Name        *string `json:"name,omitempty"`
	LocalName   *string `json:"localName,omitempty"`
	Country     *string `json:"country,omitempty"`
	Vendor      *string `json:"vendor,omitempty"`
	Type        *string `json:"type,omitempty"`
	UnitWeight  *string `json:"unitWeight,omitempty"`
	PackingSize *string `json:"packingSize,omitempty"`
	WIP         *bool   `json:"wip,omitempty"`
	AccountCode *string `json:"accountCode,omitempty"`
}

// ApplyTo mutates the existing product with the provided fields.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) error {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.LocalName != nil {
		p.LocalName = *r.LocalName
	}
	if r.Country != nil {
		p.Country = *r.Country
	}
	if r.Vendor != nil {
		p.Vendor = *r.Vendor
	}
	if r.Type != nil {
		p.Type = *r.Type
	}
	if r.UnitWeight != nil {
		w, err := decimal.NewFromString(*r.UnitWeight)
		if err != nil {
			return err
		}
		p.UnitWeight = w
	}
	if r.PackingSize != nil {
		p.PackingSize = *r.PackingSize
	}
	if r.WIP != nil {
		p.WIP = *r.WIP
	}
	if r.AccountCode != nil {
		p.AccountCode = *r.AccountCode
	}
	return nil
}

// SetProductStatusRequest changes the lifecycle status.
type SetProductStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
