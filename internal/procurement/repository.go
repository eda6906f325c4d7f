package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/db"
)

// ListFilters narrows purchase order listings.
type ListFilters struct {
	Status     string
	SupplierID string
	BranchID   string
	Search     string
	SortBy     string
	SortDir    string
}

// POListItem is a purchase order row for listings.
type POListItem struct {
	PONumber             string     `json:"po_number"`
	SupplierID           string     `json:"supplier_id"`
	SupplierName         string     `json:"supplier_name"`
	BranchID             string     `json:"branch_id"`
	Status               POStatus   `json:"status"`
	OrderDate            time.Time  `json:"order_date"`
	ExpectedDeliveryDate *time.Time `json:"expected_delivery_date,omitempty"`
	TotalAmount          Money      `json:"total_amount"`
	ItemCount            int        `json:"item_count"`
	DispatchedAt         *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	GetPOForUpdate(ctx context.Context, number string) (StoredOrder, error)
	InsertPO(ctx context.Context, po PurchaseOrder) error
	UpdatePO(ctx context.Context, po PurchaseOrder) error
	ReplaceLines(ctx context.Context, number string, items []LineItem) error
	MarkDispatched(ctx context.Context, number string, at time.Time) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const selectPO = `SELECT po_number, supplier_id, branch_id, order_date, expected_delivery_date, notes,
	total_amount, status, dispatched_at, created_at, updated_at
FROM purchase_orders WHERE po_number = $1`

// GetPO returns a stored purchase order with its lines.
func (r *Repository) GetPO(ctx context.Context, number string) (StoredOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, selectPO, number))
	if err != nil {
		return StoredOrder{}, err
	}
	items, err := loadLines(ctx, r.pool, number)
	if err != nil {
		return StoredOrder{}, err
	}
	po.Items = items
	return po, nil
}

// ListPOs returns purchase orders with supplier name and item counts.
func (r *Repository) ListPOs(ctx context.Context, limit, offset int, filters ListFilters) ([]POListItem, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND p.status = $` + itoa(len(args))
	}
	if filters.SupplierID != "" {
		args = append(args, filters.SupplierID)
		where += ` AND p.supplier_id = $` + itoa(len(args))
	}
	if filters.BranchID != "" {
		args = append(args, filters.BranchID)
		where += ` AND p.branch_id = $` + itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND p.po_number ILIKE $` + itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_orders p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT p.po_number, p.supplier_id, COALESCE(s.name, '') AS supplier_name, p.branch_id,
		p.status, p.order_date, p.expected_delivery_date, p.total_amount,
		(SELECT COUNT(*) FROM purchase_order_lines l WHERE l.po_number = p.po_number) AS item_count,
		p.dispatched_at, p.created_at
	FROM purchase_orders p
	LEFT JOIN suppliers s ON s.id = p.supplier_id` + where +
		` ORDER BY ` + sortOrderPO(filters.SortBy, filters.SortDir) +
		` LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []POListItem
	for rows.Next() {
		var item POListItem
		var status string
		var amount int64
		if err := rows.Scan(&item.PONumber, &item.SupplierID, &item.SupplierName, &item.BranchID,
			&status, &item.OrderDate, &item.ExpectedDeliveryDate, &amount,
			&item.ItemCount, &item.DispatchedAt, &item.CreatedAt); err != nil {
			return nil, 0, err
		}
		item.Status = POStatus(status)
		item.TotalAmount = Money(amount)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (t *txRepo) GetPOForUpdate(ctx context.Context, number string) (StoredOrder, error) {
	po, err := scanPO(t.tx.QueryRow(ctx, selectPO+` FOR UPDATE`, number))
	if err != nil {
		return StoredOrder{}, err
	}
	items, err := loadLines(ctx, t.tx, number)
	if err != nil {
		return StoredOrder{}, err
	}
	po.Items = items
	return po, nil
}

func (t *txRepo) InsertPO(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO purchase_orders
		(po_number, supplier_id, branch_id, order_date, expected_delivery_date, notes, total_amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		po.PONumber, po.SupplierID, po.BranchID, po.OrderDate, nullableTime(po.ExpectedDeliveryDate),
		po.Notes, int64(po.TotalAmount), string(po.Status))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, po.PONumber)
	}
	return err
}

func (t *txRepo) UpdatePO(ctx context.Context, po PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET supplier_id = $2, branch_id = $3, order_date = $4,
		expected_delivery_date = $5, notes = $6, total_amount = $7, status = $8, updated_at = NOW()
		WHERE po_number = $1`,
		po.PONumber, po.SupplierID, po.BranchID, po.OrderDate, nullableTime(po.ExpectedDeliveryDate),
		po.Notes, int64(po.TotalAmount), string(po.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) ReplaceLines(ctx context.Context, number string, items []LineItem) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM purchase_order_lines WHERE po_number = $1`, number); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for i, item := range items {
		batch.Queue(`INSERT INTO purchase_order_lines
			(line_id, po_number, position, product_id, product_name, sku, unit, quantity, unit_price, total_price, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			item.ID, number, i+1, item.ProductID, item.ProductName, item.SKU, item.Unit,
			item.Quantity, int64(item.UnitPrice), int64(item.TotalPrice), item.Notes)
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepo) MarkDispatched(ctx context.Context, number string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET dispatched_at = $2, updated_at = NOW() WHERE po_number = $1`, number, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPO(row pgx.Row) (StoredOrder, error) {
	var po StoredOrder
	var expected *time.Time
	var amount int64
	var status string
	err := row.Scan(&po.PONumber, &po.SupplierID, &po.BranchID, &po.OrderDate, &expected, &po.Notes,
		&amount, &status, &po.DispatchedAt, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredOrder{}, ErrNotFound
		}
		return StoredOrder{}, err
	}
	if expected != nil {
		po.ExpectedDeliveryDate = *expected
	}
	po.TotalAmount = Money(amount)
	po.Status = POStatus(status)
	return po, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadLines(ctx context.Context, q querier, number string) ([]LineItem, error) {
	rows, err := q.Query(ctx, `SELECT line_id, product_id, product_name, sku, unit, quantity, unit_price, total_price, notes
		FROM purchase_order_lines WHERE po_number = $1 ORDER BY position`, number)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []LineItem{}
	for rows.Next() {
		var item LineItem
		var unitPrice, totalPrice int64
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.SKU, &item.Unit,
			&item.Quantity, &unitPrice, &totalPrice, &item.Notes); err != nil {
			return nil, err
		}
		item.UnitPrice = Money(unitPrice)
		item.TotalPrice = Money(totalPrice)
		items = append(items, item)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func itoa(i int) string {
	return fmt.Sprintf("%d", i)
}

// sortOrderPO returns a safe ORDER BY clause for PO queries.
func sortOrderPO(sortBy, sortDir string) string {
	dir := "DESC"
	if sortDir == "asc" {
		dir = "ASC"
	}
	switch sortBy {
	case "number":
		return "p.po_number " + dir
	case "supplier":
		return "supplier_name " + dir
	case "total":
		return "p.total_amount " + dir
	case "order_date":
		return "p.order_date " + dir
	default:
		return "p.created_at " + dir
	}
}
