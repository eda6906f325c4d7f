package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

type stubOrders map[string]procurement.StoredOrder

func (s stubOrders) GetPO(_ context.Context, number string) (procurement.StoredOrder, error) {
	order, ok := s[number]
	if !ok {
		return procurement.StoredOrder{}, procurement.ErrNotFound
	}
	return order, nil
}

type stubPDF struct {
	number  string
	html    string
	err     error
	pingErr error
}

func (s *stubPDF) ConvertPurchaseOrder(_ context.Context, poNumber, html string) ([]byte, error) {
	s.number = poNumber
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.7"), nil
}

func (s *stubPDF) Ping(context.Context) error { return s.pingErr }

func sampleOrder() procurement.StoredOrder {
	return procurement.StoredOrder{PurchaseOrder: procurement.PurchaseOrder{
		Header: procurement.Header{
			PONumber:   "PO-202603-ABCD1234",
			SupplierID: "S001",
			BranchID:   "B002",
			OrderDate:  time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
			Notes:      "Deliver before noon",
		},
		Items: []procurement.LineItem{
			{ID: "l1", ProductID: "P001", ProductName: "Paracetamol 500mg", SKU: "PCM-500", Unit: "Box", Quantity: 3, UnitPrice: 35000, TotalPrice: 105000},
		},
		TotalAmount: 105000,
		Status:      procurement.POStatusSent,
	}}
}

func newTestRouter(t *testing.T, pdf *stubPDF) http.Handler {
	t.Helper()
	formatter, err := catalog.NewMoneyFormatter("IDR", "id")
	require.NoError(t, err)
	renderer, err := NewPurchaseOrderRenderer(formatter)
	require.NoError(t, err)
	orders := stubOrders{"PO-202603-ABCD1234": sampleOrder()}
	h := NewHandler(pdf, orders, catalog.SampleProvider(), renderer, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Route("/report", h.MountRoutes)
	return r
}

func TestPurchaseOrderDocumentResolvesNames(t *testing.T) {
	snapshot, err := catalog.Load(context.Background(), catalog.SampleProvider())
	require.NoError(t, err)

	doc := NewPurchaseOrderDocument(sampleOrder(), snapshot, time.Now())
	require.Equal(t, "PT Kimia Farma Trading", doc.SupplierName)
	require.Equal(t, "Net 30", doc.PaymentTerms)
	require.Equal(t, "Apotek Cabang Selatan", doc.BranchName)

	order := sampleOrder()
	order.SupplierID = "S999"
	doc = NewPurchaseOrderDocument(order, snapshot, time.Now())
	require.Equal(t, "S999", doc.SupplierName)
	require.Empty(t, doc.PaymentTerms)
}

func TestPurchaseOrderPDF(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, pdf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/PO-202603-ABCD1234.pdf", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	require.Equal(t, "%PDF-1.7", rec.Body.String())
	require.Equal(t, "PO-202603-ABCD1234", pdf.number)
	require.Contains(t, pdf.html, "PT Kimia Farma Trading")
	require.Contains(t, pdf.html, "PCM-500")
	require.Contains(t, pdf.html, "Deliver before noon")
}

func TestPurchaseOrderHTMLPreview(t *testing.T) {
	router := newTestRouter(t, &stubPDF{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/PO-202603-ABCD1234.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	require.Contains(t, rec.Body.String(), "Apotek Cabang Selatan")
}

func TestPurchaseOrderErrors(t *testing.T) {
	pdf := &stubPDF{err: errors.New("chromium crashed")}
	router := newTestRouter(t, pdf)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/PO-000000-NONE.pdf", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/PO-202603-ABCD1234.docx", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/purchase-orders/PO-202603-ABCD1234.pdf", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPing(t *testing.T) {
	pdf := &stubPDF{}
	router := newTestRouter(t, pdf)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	pdf.pingErr = errors.New("down")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/ping", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGotenbergClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/forms/chromium/convert/html":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("files")
			require.NoError(t, err)
			require.Equal(t, "index.html", header.Filename)
			body, err := io.ReadAll(file)
			require.NoError(t, err)
			require.Contains(t, string(body), "<h1>")
			require.Equal(t, "8.27", r.FormValue("paperWidth"))
			require.Equal(t, "PO-202603-ABCD1234", r.Header.Get("Gotenberg-Output-Filename"))
			_, _ = w.Write([]byte("%PDF"))
		default:
			http.Error(w, "no such route", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := NewGotenbergClient(srv.URL + "/")
	require.NoError(t, client.Ping(context.Background()))
	out, err := client.ConvertPurchaseOrder(context.Background(), "PO-202603-ABCD1234", "<h1>PO</h1>")
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(out))

	bad := NewGotenbergClient(srv.URL + "/missing")
	require.Error(t, bad.Ping(context.Background()))
	_, err = bad.ConvertPurchaseOrder(context.Background(), "PO-202603-ABCD1234", "<h1>PO</h1>")
	require.ErrorContains(t, err, "no such route")
}
