package catalog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the catalog from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Products lists active products ordered by id.
func (r *Repository) Products(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, sku, unit, pack_size, unit_price FROM products WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var price int64
		if err := rows.Scan(&p.ID, &p.Name, &p.SKU, &p.Unit, &p.PackSize, &price); err != nil {
			return nil, err
		}
		p.UnitPrice = Money(price)
		products = append(products, p)
	}
	return products, rows.Err()
}

// Suppliers lists suppliers ordered by id.
func (r *Repository) Suppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, payment_terms, min_order_amount FROM suppliers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		var minimum int64
		if err := rows.Scan(&s.ID, &s.Name, &s.PaymentTerms, &minimum); err != nil {
			return nil, err
		}
		s.MinOrderAmount = Money(minimum)
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// Branches lists branches ordered by id.
func (r *Repository) Branches(ctx context.Context) ([]Branch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		var b Branch
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}
