package report

import (
	"bytes"
	"html/template"
	"time"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

const purchaseOrderTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Order.PONumber}}</title>
<style>
body { font-family: sans-serif; font-size: 12px; margin: 32px; }
h1 { font-size: 20px; margin-bottom: 4px; }
table { width: 100%; border-collapse: collapse; margin-top: 16px; }
th, td { border-bottom: 1px solid #ddd; padding: 6px; text-align: left; }
td.num, th.num { text-align: right; }
.meta td { border: none; padding: 2px 6px 2px 0; }
</style>
</head>
<body>
<h1>Purchase Order {{.Order.PONumber}}</h1>
<table class="meta">
<tr><td>Supplier</td><td>{{.SupplierName}}{{if .PaymentTerms}} ({{.PaymentTerms}}){{end}}</td></tr>
<tr><td>Deliver to</td><td>{{.BranchName}}</td></tr>
<tr><td>Order date</td><td>{{date .Order.OrderDate}}</td></tr>
{{if not .Order.ExpectedDeliveryDate.IsZero}}<tr><td>Expected delivery</td><td>{{date .Order.ExpectedDeliveryDate}}</td></tr>{{end}}
<tr><td>Status</td><td>{{.Order.Status}}</td></tr>
</table>
<table>
<thead><tr><th>#</th><th>SKU</th><th>Product</th><th>Unit</th><th class="num">Qty</th><th class="num">Unit price</th><th class="num">Total</th><th>Notes</th></tr></thead>
<tbody>
{{range $i, $item := .Order.Items}}<tr><td>{{inc $i}}</td><td>{{$item.SKU}}</td><td>{{$item.ProductName}}</td><td>{{$item.Unit}}</td><td class="num">{{$item.Quantity}}</td><td class="num">{{money $item.UnitPrice}}</td><td class="num">{{money $item.TotalPrice}}</td><td>{{$item.Notes}}</td></tr>
{{end}}</tbody>
<tfoot><tr><th colspan="6" class="num">Total</th><th class="num">{{money .Order.TotalAmount}}</th><th></th></tr></tfoot>
</table>
{{if .Order.Notes}}<p>{{.Order.Notes}}</p>{{end}}
<p>Generated at {{.GeneratedAt.Format "02 Jan 2006 15:04 MST"}}</p>
</body>
</html>`

// PurchaseOrderDocument is the data rendered into a PO document.
type PurchaseOrderDocument struct {
	Order        procurement.StoredOrder
	SupplierName string
	PaymentTerms string
	BranchName   string
	GeneratedAt  time.Time
}

// NewPurchaseOrderDocument resolves supplier and branch names from the catalog snapshot.
func NewPurchaseOrderDocument(order procurement.StoredOrder, snapshot *catalog.Snapshot, at time.Time) PurchaseOrderDocument {
	doc := PurchaseOrderDocument{
		Order:        order,
		SupplierName: order.SupplierID,
		BranchName:   order.BranchID,
		GeneratedAt:  at,
	}
	if supplier, ok := snapshot.Supplier(order.SupplierID); ok {
		doc.SupplierName = supplier.Name
		doc.PaymentTerms = supplier.PaymentTerms
	}
	if branch, ok := snapshot.Branch(order.BranchID); ok {
		doc.BranchName = branch.Name
	}
	return doc
}

// PurchaseOrderRenderer renders purchase orders to HTML.
type PurchaseOrderRenderer struct {
	tmpl *template.Template
}

// NewPurchaseOrderRenderer parses the PO template with the given money formatter.
func NewPurchaseOrderRenderer(formatter *catalog.MoneyFormatter) (*PurchaseOrderRenderer, error) {
	tmpl, err := template.New("purchase_order").Funcs(template.FuncMap{
		"money": formatter.Format,
		"date": func(t time.Time) string {
			return t.Format("02 Jan 2006")
		},
		"inc": func(i int) int { return i + 1 },
	}).Parse(purchaseOrderTemplate)
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderRenderer{tmpl: tmpl}, nil
}

// RenderHTML executes the template.
func (r *PurchaseOrderRenderer) RenderHTML(doc PurchaseOrderDocument) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
