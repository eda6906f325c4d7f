package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

const previewDateLayout = "2006-01-02"

// PreviewScript is a recorded sequence of builder edits.
type PreviewScript struct {
	SupplierID           string        `json:"supplier_id"`
	BranchID             string        `json:"branch_id"`
	OrderDate            string        `json:"order_date"`
	ExpectedDeliveryDate string        `json:"expected_delivery_date"`
	Notes                string        `json:"notes"`
	Steps                []PreviewStep `json:"steps"`
	Submit               bool          `json:"submit"`
	AsDraft              bool          `json:"as_draft"`
}

// PreviewStep is one line edit. Lines are addressed by product id.
type PreviewStep struct {
	Op        string   `json:"op"`
	Products  []string `json:"products,omitempty"`
	ProductID string   `json:"product_id,omitempty"`
	Quantity  int      `json:"quantity,omitempty"`
	Price     string   `json:"price,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// PreviewOptions defines flags for the preview command.
type PreviewOptions struct {
	JSONOutput     bool
	Formatter      *catalog.MoneyFormatter
	BuilderOptions []procurement.BuilderOption
	Stdout         io.Writer
	Stderr         io.Writer
}

// PreviewSummary is the JSON result of a preview run.
type PreviewSummary struct {
	Draft          procurement.Draft          `json:"draft"`
	TotalAmount    procurement.Money          `json:"total_amount"`
	TotalFormatted string                     `json:"total_formatted"`
	Warnings       []procurement.Warning      `json:"warnings"`
	Order          *procurement.PurchaseOrder `json:"order,omitempty"`
	Rejection      *PreviewRejection          `json:"rejection,omitempty"`
}

// PreviewRejection reports why the scripted submission failed.
type PreviewRejection struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PreviewCommand replays script against the catalog without persisting anything.
// It exits 0 on success, 1 on script errors and 2 when the submission is rejected.
func PreviewCommand(ctx context.Context, script io.Reader, provider catalog.Provider, opts PreviewOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	var parsed PreviewScript
	decoder := json.NewDecoder(script)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&parsed); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "preview: invalid script: %v\n", err)
		return 1
	}
	snapshot, err := catalog.Load(ctx, provider)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "preview: load catalog: %v\n", err)
		return 1
	}
	if opts.Formatter == nil {
		opts.Formatter, err = catalog.NewMoneyFormatter("IDR", "id-ID")
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "preview: %v\n", err)
			return 1
		}
	}

	builder := procurement.NewBuilder(snapshot, opts.BuilderOptions...)
	warnings, err := replay(builder, parsed)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "preview: %v\n", err)
		return 1
	}
	warnings = append(warnings, builder.Warnings()...)

	summary := PreviewSummary{
		Draft:          builder.Snapshot(),
		TotalAmount:    builder.TotalAmount(),
		TotalFormatted: opts.Formatter.Format(builder.TotalAmount()),
		Warnings:       warnings,
	}
	if summary.Warnings == nil {
		summary.Warnings = []procurement.Warning{}
	}
	exit := 0
	if parsed.Submit {
		order, err := builder.Submit(parsed.AsDraft)
		var verr *procurement.ValidationError
		switch {
		case errors.As(err, &verr):
			summary.Rejection = &PreviewRejection{Code: string(verr.Code), Message: verr.Message}
			exit = 2
		case err != nil:
			_, _ = fmt.Fprintf(opts.Stderr, "preview: submit: %v\n", err)
			return 1
		default:
			summary.Order = &order
		}
	}

	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(summary); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "preview: encode json: %v\n", err)
			return 1
		}
		return exit
	}
	renderPreviewHuman(opts.Stdout, snapshot, opts.Formatter, summary)
	return exit
}

func replay(b *procurement.Builder, script PreviewScript) ([]procurement.Warning, error) {
	if script.OrderDate != "" {
		at, err := time.Parse(previewDateLayout, script.OrderDate)
		if err != nil {
			return nil, fmt.Errorf("order_date: %w", err)
		}
		b.SetOrderDate(at)
	}
	if script.SupplierID != "" {
		if err := b.SetSupplier(script.SupplierID); err != nil {
			return nil, err
		}
	}
	if script.BranchID != "" {
		if err := b.SetBranch(script.BranchID); err != nil {
			return nil, err
		}
	}
	if script.ExpectedDeliveryDate != "" {
		at, err := time.Parse(previewDateLayout, script.ExpectedDeliveryDate)
		if err != nil {
			return nil, fmt.Errorf("expected_delivery_date: %w", err)
		}
		if err := b.SetExpectedDeliveryDate(at); err != nil {
			return nil, err
		}
	}
	b.SetNotes(script.Notes)

	var warnings []procurement.Warning
	for i, step := range script.Steps {
		if step.Op == "add" {
			warnings = append(warnings, b.AddProducts(step.Products...)...)
			continue
		}
		lineID := lineFor(b, step.ProductID)
		if lineID == "" {
			return nil, fmt.Errorf("step %d: product %q is not on the order", i+1, step.ProductID)
		}
		switch step.Op {
		case "quantity":
			if err := b.UpdateQuantity(lineID, step.Quantity); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		case "price":
			price, err := catalog.ParseMoney(step.Price)
			if err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
			if err := b.UpdateUnitPrice(lineID, price); err != nil {
				return nil, fmt.Errorf("step %d: %w", i+1, err)
			}
		case "notes":
			b.UpdateNotes(lineID, step.Notes)
		case "remove":
			b.RemoveLine(lineID)
		default:
			return nil, fmt.Errorf("step %d: unknown op %q", i+1, step.Op)
		}
	}
	return warnings, nil
}

func lineFor(b *procurement.Builder, productID string) string {
	for _, item := range b.Items() {
		if item.ProductID == productID {
			return item.ID
		}
	}
	return ""
}

func renderPreviewHuman(out io.Writer, snapshot *catalog.Snapshot, formatter *catalog.MoneyFormatter, summary PreviewSummary) {
	draft := summary.Draft
	supplier := "(none)"
	if s, ok := snapshot.Supplier(draft.SupplierID); ok {
		supplier = s.Name
	}
	branch := draft.BranchID
	if br, ok := snapshot.Branch(draft.BranchID); ok {
		branch = br.Name
	}
	_, _ = fmt.Fprintf(out, "Purchase order %s dated %s\n", draft.PONumber, draft.OrderDate.Format(previewDateLayout))
	_, _ = fmt.Fprintf(out, "Supplier: %s\nBranch:   %s\n", supplier, branch)
	if len(draft.Items) == 0 {
		_, _ = fmt.Fprintln(out, "No items.")
	}
	for i, item := range draft.Items {
		_, _ = fmt.Fprintf(out, "%2d. %-10s %-28s %4d %-6s x %s = %s\n", i+1, item.SKU, item.ProductName,
			item.Quantity, item.Unit, formatter.Format(item.UnitPrice), formatter.Format(item.TotalPrice))
	}
	_, _ = fmt.Fprintf(out, "Total: %s\n", summary.TotalFormatted)
	for _, w := range summary.Warnings {
		_, _ = fmt.Fprintf(out, "Warning [%s]: %s\n", w.Kind, w.Message)
	}
	switch {
	case summary.Rejection != nil:
		_, _ = fmt.Fprintf(out, "Rejected [%s]: %s\n", summary.Rejection.Code, summary.Rejection.Message)
	case summary.Order != nil:
		_, _ = fmt.Fprintf(out, "Submitted with status %s, total %s\n", summary.Order.Status, formatter.Format(summary.Order.TotalAmount))
	}
}
