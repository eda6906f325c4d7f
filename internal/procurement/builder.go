package procurement

import (
	"fmt"
	"math"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
)

// DefaultBranchID is the destination branch of a fresh draft.
const DefaultBranchID = "B001"

// Builder owns one purchase order draft and applies edits to it. It is a plain
// synchronous reducer and must not be shared between goroutines.
type Builder struct {
	catalog       *catalog.Snapshot
	ids           IDGenerator
	now           func() time.Time
	defaultBranch string
	draft         Draft
}

// BuilderOption customises a Builder.
type BuilderOption func(*Builder)

// WithIDGenerator overrides line id and PO number generation.
func WithIDGenerator(ids IDGenerator) BuilderOption {
	return func(b *Builder) {
		if ids != nil {
			b.ids = ids
		}
	}
}

// WithClock overrides the time source used for default dates.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// WithDefaultBranch overrides the branch assigned to fresh drafts.
func WithDefaultBranch(branchID string) BuilderOption {
	return func(b *Builder) {
		if branchID != "" {
			b.defaultBranch = branchID
		}
	}
}

func newBuilder(snapshot *catalog.Snapshot, opts []BuilderOption) *Builder {
	b := &Builder{
		catalog:       snapshot,
		ids:           NewUUIDGenerator(),
		now:           time.Now,
		defaultBranch: DefaultBranchID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBuilder starts a fresh draft with a generated PO number.
func NewBuilder(snapshot *catalog.Snapshot, opts ...BuilderOption) *Builder {
	b := newBuilder(snapshot, opts)
	now := b.now()
	b.draft = Draft{
		Header: Header{
			PONumber:  b.ids.PONumber(now),
			BranchID:  b.defaultBranch,
			OrderDate: now,
		},
		Items: []LineItem{},
	}
	return b
}

// EditBuilder hydrates a draft from a previously stored purchase order, keeping its number.
// Orders already sent to a supplier cannot be reopened.
func EditBuilder(snapshot *catalog.Snapshot, existing PurchaseOrder, opts ...BuilderOption) (*Builder, error) {
	if existing.Status == POStatusSent {
		return nil, fmt.Errorf("%w: %s already sent", ErrInvalidState, existing.PONumber)
	}
	b := newBuilder(snapshot, opts)
	b.draft = Draft{
		Header:  existing.Header,
		Items:   copyItems(existing.Items),
		Editing: true,
	}
	if b.draft.BranchID == "" {
		b.draft.BranchID = b.defaultBranch
	}
	if b.draft.OrderDate.IsZero() {
		b.draft.OrderDate = b.now()
	}
	for i := range b.draft.Items {
		b.draft.Items[i].recompute()
	}
	return b, nil
}

// RestoreBuilder rebuilds a builder from a stored session snapshot.
func RestoreBuilder(snapshot *catalog.Snapshot, draft Draft, opts ...BuilderOption) *Builder {
	b := newBuilder(snapshot, opts)
	b.draft = draft
	b.draft.Items = copyItems(draft.Items)
	for i := range b.draft.Items {
		b.draft.Items[i].recompute()
	}
	return b
}

// Snapshot returns a deep copy of the current draft.
func (b *Builder) Snapshot() Draft {
	d := b.draft
	d.Items = copyItems(b.draft.Items)
	return d
}

// Header returns the current header fields.
func (b *Builder) Header() Header {
	return b.draft.Header
}

// Items returns a copy of the line items in insertion order.
func (b *Builder) Items() []LineItem {
	return copyItems(b.draft.Items)
}

// AddProducts appends one line per product id in the given order. Ids already on the draft
// are skipped silently; ids missing from the catalog are skipped and reported as warnings.
func (b *Builder) AddProducts(productIDs ...string) []Warning {
	var warnings []Warning
	for _, id := range productIDs {
		if b.lineForProduct(id) >= 0 {
			continue
		}
		product, ok := b.catalog.Product(id)
		if !ok {
			warnings = append(warnings, Warning{
				Kind:      WarningUnknownProduct,
				ProductID: id,
				Message:   fmt.Sprintf("product %s is not in the catalog", id),
			})
			continue
		}
		line := LineItem{
			ID:          b.ids.LineID(),
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Unit:        product.Unit,
			Quantity:    1,
			UnitPrice:   product.UnitPrice,
		}
		line.recompute()
		if _, ok := addMoney(b.TotalAmount(), line.TotalPrice); !ok {
			warnings = append(warnings, Warning{
				Kind:      WarningAmountLimit,
				ProductID: id,
				Message:   fmt.Sprintf("product %s would push the order total past the limit", id),
			})
			continue
		}
		b.draft.Items = append(b.draft.Items, line)
	}
	return warnings
}

// UpdateQuantity sets a line quantity, clamped to at least 1. A quantity whose line or order
// total does not fit in Money is rejected with ErrAmountOverflow and the line is left as is.
func (b *Builder) UpdateQuantity(lineID string, quantity int) error {
	i := b.line(lineID)
	if i < 0 {
		return nil
	}
	if quantity < 1 {
		quantity = 1
	}
	line := b.draft.Items[i]
	line.Quantity = quantity
	return b.replaceLine(i, line)
}

// UpdateUnitPrice overrides a line unit price, clamped to at least 0. Overflowing totals are
// rejected like in UpdateQuantity.
func (b *Builder) UpdateUnitPrice(lineID string, price Money) error {
	i := b.line(lineID)
	if i < 0 {
		return nil
	}
	if price < 0 {
		price = 0
	}
	line := b.draft.Items[i]
	line.UnitPrice = price
	return b.replaceLine(i, line)
}

func (b *Builder) replaceLine(i int, line LineItem) error {
	total, ok := lineTotal(line.Quantity, line.UnitPrice)
	if !ok {
		return fmt.Errorf("%w: line %s", ErrAmountOverflow, line.ID)
	}
	line.TotalPrice = total
	sum := total
	for j, item := range b.draft.Items {
		if j == i {
			continue
		}
		if sum, ok = addMoney(sum, item.TotalPrice); !ok {
			return fmt.Errorf("%w: order total", ErrAmountOverflow)
		}
	}
	b.draft.Items[i] = line
	return nil
}

// UpdateNotes replaces a line annotation.
func (b *Builder) UpdateNotes(lineID string, notes string) {
	i := b.line(lineID)
	if i < 0 {
		return
	}
	b.draft.Items[i].Notes = notes
}

// RemoveLine drops a line. Unknown ids are ignored.
func (b *Builder) RemoveLine(lineID string) {
	i := b.line(lineID)
	if i < 0 {
		return
	}
	b.draft.Items = append(b.draft.Items[:i], b.draft.Items[i+1:]...)
}

// TotalAmount sums the line totals of the current draft.
func (b *Builder) TotalAmount() Money {
	return totalOf(b.draft.Items)
}

// SetSupplier selects the supplier. An empty id clears the selection.
func (b *Builder) SetSupplier(supplierID string) error {
	if supplierID != "" {
		if _, ok := b.catalog.Supplier(supplierID); !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSupplier, supplierID)
		}
	}
	b.draft.SupplierID = supplierID
	return nil
}

// SetBranch selects the destination branch.
func (b *Builder) SetBranch(branchID string) error {
	if _, ok := b.catalog.Branch(branchID); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBranch, branchID)
	}
	b.draft.BranchID = branchID
	return nil
}

// SetOrderDate changes the order date.
func (b *Builder) SetOrderDate(at time.Time) {
	b.draft.OrderDate = at
}

// SetExpectedDeliveryDate sets the expected delivery date. A zero time clears it.
func (b *Builder) SetExpectedDeliveryDate(at time.Time) error {
	if !at.IsZero() && dateOnly(at).Before(dateOnly(b.draft.OrderDate)) {
		return ErrDeliveryBeforeOrder
	}
	b.draft.ExpectedDeliveryDate = at
	return nil
}

// SetNotes replaces the header notes.
func (b *Builder) SetNotes(notes string) {
	b.draft.Notes = notes
}

// Warnings reports informational notices about the current draft.
func (b *Builder) Warnings() []Warning {
	if b.draft.SupplierID == "" {
		return nil
	}
	supplier, ok := b.catalog.Supplier(b.draft.SupplierID)
	if !ok || supplier.MinOrderAmount == 0 {
		return nil
	}
	total := b.TotalAmount()
	if total >= supplier.MinOrderAmount {
		return nil
	}
	return []Warning{{
		Kind:      WarningBelowSupplierMinimum,
		Shortfall: supplier.MinOrderAmount - total,
		Message:   fmt.Sprintf("order total is below the %s minimum order amount", supplier.Name),
	}}
}

// Submit validates the draft and produces the purchase order record. The supplier check runs
// before the item check. The builder is left untouched, so a failed submission can be retried.
func (b *Builder) Submit(asDraft bool) (PurchaseOrder, error) {
	if b.draft.SupplierID == "" {
		return PurchaseOrder{}, ErrMissingSupplier
	}
	if len(b.draft.Items) == 0 {
		return PurchaseOrder{}, ErrEmptyOrder
	}
	status := POStatusSent
	if asDraft {
		status = POStatusDraft
	}
	items := copyItems(b.draft.Items)
	return PurchaseOrder{
		Header:      b.draft.Header,
		Items:       items,
		TotalAmount: totalOf(items),
		Status:      status,
	}, nil
}

func (b *Builder) line(lineID string) int {
	for i := range b.draft.Items {
		if b.draft.Items[i].ID == lineID {
			return i
		}
	}
	return -1
}

func (b *Builder) lineForProduct(productID string) int {
	for i := range b.draft.Items {
		if b.draft.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// recompute saturates at math.MaxInt64 for lines restored from outside the builder.
func (l *LineItem) recompute() {
	total, ok := lineTotal(l.Quantity, l.UnitPrice)
	if !ok {
		total = math.MaxInt64
	}
	l.TotalPrice = total
}

func lineTotal(quantity int, price Money) (Money, bool) {
	if quantity <= 0 || price <= 0 {
		return 0, true
	}
	if int64(price) > math.MaxInt64/int64(quantity) {
		return 0, false
	}
	return Money(quantity) * price, true
}

func addMoney(a, b Money) (Money, bool) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

func totalOf(items []LineItem) Money {
	var total Money
	for _, item := range items {
		next, ok := addMoney(total, item.TotalPrice)
		if !ok {
			return math.MaxInt64
		}
		total = next
	}
	return total
}

func copyItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
