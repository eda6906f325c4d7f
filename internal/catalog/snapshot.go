package catalog

import (
	"context"
	"fmt"
)

// Snapshot is an immutable, fully loaded view of the catalog.
type Snapshot struct {
	products  []Product
	suppliers []Supplier
	branches  []Branch

	productByID  map[string]int
	supplierByID map[string]int
	branchByID   map[string]int
}

// Load queries the provider once and indexes the results.
func Load(ctx context.Context, provider Provider) (*Snapshot, error) {
	products, err := provider.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load products: %w", err)
	}
	suppliers, err := provider.Suppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load suppliers: %w", err)
	}
	branches, err := provider.Branches(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: load branches: %w", err)
	}
	return NewSnapshot(products, suppliers, branches)
}

// NewSnapshot indexes the given lists. Duplicate ids and negative amounts are rejected.
func NewSnapshot(products []Product, suppliers []Supplier, branches []Branch) (*Snapshot, error) {
	s := &Snapshot{
		products:     append([]Product(nil), products...),
		suppliers:    append([]Supplier(nil), suppliers...),
		branches:     append([]Branch(nil), branches...),
		productByID:  make(map[string]int, len(products)),
		supplierByID: make(map[string]int, len(suppliers)),
		branchByID:   make(map[string]int, len(branches)),
	}
	for i, p := range s.products {
		if p.ID == "" || p.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: product %q", ErrInvalidEntry, p.ID)
		}
		if _, dup := s.productByID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate product %q", ErrInvalidEntry, p.ID)
		}
		s.productByID[p.ID] = i
	}
	for i, sup := range s.suppliers {
		if sup.ID == "" || sup.MinOrderAmount < 0 {
			return nil, fmt.Errorf("%w: supplier %q", ErrInvalidEntry, sup.ID)
		}
		if _, dup := s.supplierByID[sup.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate supplier %q", ErrInvalidEntry, sup.ID)
		}
		s.supplierByID[sup.ID] = i
	}
	for i, b := range s.branches {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: branch without id", ErrInvalidEntry)
		}
		if _, dup := s.branchByID[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate branch %q", ErrInvalidEntry, b.ID)
		}
		s.branchByID[b.ID] = i
	}
	return s, nil
}

// Product looks up a product by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	if s == nil {
		return Product{}, false
	}
	i, ok := s.productByID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Supplier looks up a supplier by id.
func (s *Snapshot) Supplier(id string) (Supplier, bool) {
	if s == nil {
		return Supplier{}, false
	}
	i, ok := s.supplierByID[id]
	if !ok {
		return Supplier{}, false
	}
	return s.suppliers[i], true
}

// Branch looks up a branch by id.
func (s *Snapshot) Branch(id string) (Branch, bool) {
	if s == nil {
		return Branch{}, false
	}
	i, ok := s.branchByID[id]
	if !ok {
		return Branch{}, false
	}
	return s.branches[i], true
}

func (s *Snapshot) Products() []Product {
	if s == nil {
		return nil
	}
	return append([]Product(nil), s.products...)
}

func (s *Snapshot) Suppliers() []Supplier {
	if s == nil {
		return nil
	}
	return append([]Supplier(nil), s.suppliers...)
}

func (s *Snapshot) Branches() []Branch {
	if s == nil {
		return nil
	}
	return append([]Branch(nil), s.branches...)
}
