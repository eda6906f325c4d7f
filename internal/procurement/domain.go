package procurement

import (
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
)

// Money is an amount in the smallest currency unit.
type Money = catalog.Money

// POStatus is the status a purchase order is submitted with.
type POStatus string

const (
	POStatusDraft POStatus = "draft"
	POStatusSent  POStatus = "sent"
)

// LineItem is one product line of a purchase order. ProductName, SKU and Unit are copied
// from the catalog when the line is created and are not re-synced afterwards.
type LineItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Unit        string `json:"unit"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Money  `json:"unit_price"`
	TotalPrice  Money  `json:"total_price"`
	Notes       string `json:"notes"`
}

// Header carries the purchase order header fields.
type Header struct {
	PONumber             string    `json:"po_number"`
	SupplierID           string    `json:"supplier_id"`
	BranchID             string    `json:"branch_id"`
	OrderDate            time.Time `json:"order_date"`
	ExpectedDeliveryDate time.Time `json:"expected_delivery_date"`
	Notes                string    `json:"notes"`
}

// Draft is the value snapshot of an editing session.
type Draft struct {
	Header
	Items   []LineItem `json:"items"`
	Version int64      `json:"version"`
	// Editing is set when the draft was opened from a stored purchase order.
	Editing bool `json:"editing"`
	// SubmittedAs holds the PO number once a submission has claimed the session.
	SubmittedAs string `json:"submitted_as,omitempty"`
}

// PurchaseOrder is the record produced by a successful submission.
type PurchaseOrder struct {
	Header
	Items       []LineItem `json:"items"`
	TotalAmount Money      `json:"total_amount"`
	Status      POStatus   `json:"status"`
}

// StoredOrder is a persisted purchase order with bookkeeping timestamps.
type StoredOrder struct {
	PurchaseOrder
	DispatchedAt *time.Time `json:"dispatched_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ValidationCode identifies why a submission was rejected.
type ValidationCode string

const (
	CodeMissingSupplier ValidationCode = "MISSING_SUPPLIER"
	CodeEmptyOrder      ValidationCode = "EMPTY_ORDER"
)

var (
	// ErrMissingSupplier is returned when submitting without a supplier.
	ErrMissingSupplier = &ValidationError{Code: CodeMissingSupplier, Message: "supplier must be selected"}
	// ErrEmptyOrder is returned when submitting without line items.
	ErrEmptyOrder = &ValidationError{Code: CodeEmptyOrder, Message: "purchase order has no items"}
)

// ValidationError blocks a submission. The draft stays editable.
type ValidationError struct {
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("procurement: %s", e.Message)
}

// Is matches validation errors by code so callers can use errors.Is with the sentinels.
func (e *ValidationError) Is(target error) bool {
	var other *ValidationError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

var (
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("procurement: not found")
	// ErrDraftNotFound indicates the editing session expired or never existed.
	ErrDraftNotFound = errors.New("procurement: draft session not found")
	// ErrDraftConflict indicates the session was modified concurrently.
	ErrDraftConflict = errors.New("procurement: draft modified concurrently")
	// ErrDuplicateNumber indicates the PO number is already taken.
	ErrDuplicateNumber = errors.New("procurement: duplicate po number")
	// ErrUnknownSupplier indicates the supplier is not in the catalog.
	ErrUnknownSupplier = errors.New("procurement: unknown supplier")
	// ErrUnknownBranch indicates the branch is not in the catalog.
	ErrUnknownBranch = errors.New("procurement: unknown branch")
	// ErrDeliveryBeforeOrder indicates an expected delivery date earlier than the order date.
	ErrDeliveryBeforeOrder = errors.New("procurement: expected delivery precedes order date")
	// ErrAmountOverflow indicates a line or order total too large to represent.
	ErrAmountOverflow = errors.New("procurement: amount out of range")
	// ErrDraftSubmitted indicates the session was already submitted.
	ErrDraftSubmitted = fmt.Errorf("%w: session already submitted", ErrDraftConflict)
)

// WarningKind classifies non-blocking notices raised while editing.
type WarningKind string

const (
	WarningUnknownProduct       WarningKind = "UNKNOWN_PRODUCT"
	WarningBelowSupplierMinimum WarningKind = "BELOW_SUPPLIER_MINIMUM"
	WarningAmountLimit          WarningKind = "AMOUNT_LIMIT"
)

// Warning is an informational notice that never blocks submission.
type Warning struct {
	Kind      WarningKind `json:"kind"`
	ProductID string      `json:"product_id,omitempty"`
	Shortfall Money       `json:"shortfall,omitempty"`
	Message   string      `json:"message"`
}
