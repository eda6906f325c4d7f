package catalog

import (
	"context"
	"errors"
)

// Product is an orderable catalog item. UnitPrice is expressed in the smallest currency unit.
type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Unit      string `json:"unit"`
	PackSize  int    `json:"pack_size"`
	UnitPrice Money  `json:"unit_price"`
}

// Supplier describes a vendor that purchase orders are addressed to.
type Supplier struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	PaymentTerms   string `json:"payment_terms"`
	MinOrderAmount Money  `json:"min_order_amount"`
}

// Branch is a destination outlet for deliveries.
type Branch struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Provider supplies the full reference lists used by the PO builder.
type Provider interface {
	Products(ctx context.Context) ([]Product, error)
	Suppliers(ctx context.Context) ([]Supplier, error)
	Branches(ctx context.Context) ([]Branch, error)
}

var (
	// ErrNotFound indicates a catalog entry is missing.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidEntry indicates a provider returned an unusable record.
	ErrInvalidEntry = errors.New("catalog: invalid entry")
)
