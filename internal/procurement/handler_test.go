package procurement

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type handlerFixture struct {
	serviceFixture
	router http.Handler
}

func newHandlerFixture(t *testing.T) handlerFixture {
	t.Helper()
	f := newServiceFixture(t, nil)
	r := chi.NewRouter()
	r.Route("/procurement", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc).MountRoutes)
	return handlerFixture{serviceFixture: f, router: r}
}

func (f handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type problemBody struct {
	Status int               `json:"status"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

func TestHandlerDraftFlow(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodPost, "/procurement/drafts", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	opened := decodeBody[DraftView](t, rec)
	require.NotEmpty(t, opened.SessionID)
	base := "/procurement/drafts/" + opened.SessionID

	rec = f.do(t, http.MethodPost, base+"/items", map[string]any{"product_ids": []string{"P001", "P002"}})
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[DraftView](t, rec)
	require.Len(t, view.Draft.Items, 2)
	require.EqualValues(t, 87000, view.TotalAmount)

	lineID := view.Draft.Items[0].ID
	rec = f.do(t, http.MethodPatch, base+"/items/"+lineID, map[string]any{"quantity": 4, "unit_price": 30000, "notes": "promo"})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[DraftView](t, rec)
	require.EqualValues(t, 120000, view.Draft.Items[0].TotalPrice)
	require.Equal(t, "promo", view.Draft.Items[0].Notes)

	rec = f.do(t, http.MethodDelete, base+"/items/"+view.Draft.Items[1].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[DraftView](t, rec)
	require.Len(t, view.Draft.Items, 1)

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{
		"supplier_id":            "S001",
		"expected_delivery_date": "2026-03-20",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[DraftView](t, rec)
	require.Equal(t, "S001", view.Draft.SupplierID)
	require.Len(t, view.Warnings, 1)

	rec = f.do(t, http.MethodPost, base+"/submit", map[string]any{"as_draft": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	result := decodeBody[SubmitResult](t, rec)
	require.Equal(t, POStatusSent, result.Order.Status)
	require.EqualValues(t, 120000, result.Order.TotalAmount)

	rec = f.do(t, http.MethodGet, "/procurement/orders/"+result.Order.PONumber, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stored := decodeBody[StoredOrder](t, rec)
	require.Len(t, stored.Items, 1)

	rec = f.do(t, http.MethodGet, "/procurement/orders?status=sent", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listing := decodeBody[struct {
		Orders []POListItem `json:"orders"`
		Total  int          `json:"total"`
	}](t, rec)
	require.Equal(t, 1, listing.Total)

	rec = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerSubmitValidationCodes(t *testing.T) {
	f := newHandlerFixture(t)
	opened := decodeBody[DraftView](t, f.do(t, http.MethodPost, "/procurement/drafts", nil))
	base := "/procurement/drafts/" + opened.SessionID

	rec := f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "MISSING_SUPPLIER", decodeBody[problemBody](t, rec).Code)

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{"supplier_id": "S002"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, base+"/submit", map[string]any{"as_draft": true})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "EMPTY_ORDER", decodeBody[problemBody](t, rec).Code)

	rec = f.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	f := newHandlerFixture(t)
	opened := decodeBody[DraftView](t, f.do(t, http.MethodPost, "/procurement/drafts", nil))
	base := "/procurement/drafts/" + opened.SessionID

	rec := f.do(t, http.MethodPost, base+"/items", map[string]any{"product_ids": []string{}})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	problem := decodeBody[problemBody](t, rec)
	require.Equal(t, "INVALID_REQUEST", problem.Code)
	require.Contains(t, problem.Fields, "ProductIDs")

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{"order_date": "14/03/2026"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{"supplier_id": "S404"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "UNKNOWN_SUPPLIER", decodeBody[problemBody](t, rec).Code)

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{"expected_delivery_date": "2026-03-01"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "DELIVERY_BEFORE_ORDER", decodeBody[problemBody](t, rec).Code)

	rec = f.do(t, http.MethodPatch, base+"/header", map[string]any{"unknown": true})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerNotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do(t, http.MethodGet, "/procurement/drafts/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/procurement/orders/PO-000000-NONE", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/procurement/drafts", map[string]any{"existing_po_number": "PO-000000-NONE"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerDiscardDraft(t *testing.T) {
	f := newHandlerFixture(t)
	opened := decodeBody[DraftView](t, f.do(t, http.MethodPost, "/procurement/drafts", nil))

	rec := f.do(t, http.MethodDelete, "/procurement/drafts/"+opened.SessionID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodDelete, "/procurement/drafts/"+opened.SessionID, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsOutOfRangeLines(t *testing.T) {
	f := newHandlerFixture(t)
	opened := decodeBody[DraftView](t, f.do(t, http.MethodPost, "/procurement/drafts", nil))
	base := "/procurement/drafts/" + opened.SessionID
	view := decodeBody[DraftView](t, f.do(t, http.MethodPost, base+"/items", map[string]any{"product_ids": []string{"P001"}}))
	linePath := base + "/items/" + view.Draft.Items[0].ID

	rec := f.do(t, http.MethodPatch, linePath, map[string]any{"quantity": int64(1) << 31})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, decodeBody[problemBody](t, rec).Fields, "Quantity")

	rec = f.do(t, http.MethodPatch, linePath, map[string]any{"quantity": 2147483647, "unit_price": 1000000000000000})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "AMOUNT_OUT_OF_RANGE", decodeBody[problemBody](t, rec).Code)

	view = decodeBody[DraftView](t, f.do(t, http.MethodGet, base, nil))
	require.Equal(t, 1, view.Draft.Items[0].Quantity)
	require.EqualValues(t, 35000, view.TotalAmount)
}
