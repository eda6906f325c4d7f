package catalog

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newCatalogRouter() http.Handler {
	r := chi.NewRouter()
	r.Route("/catalog", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), SampleProvider()).MountRoutes)
	return r
}

func TestHandlerListsCatalog(t *testing.T) {
	router := newCatalogRouter()

	for path, key := range map[string]string{
		"/catalog/products":  "products",
		"/catalog/suppliers": "suppliers",
		"/catalog/branches":  "branches",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string][]json.RawMessage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body[key], path)
	}
}

func TestHandlerShowProduct(t *testing.T) {
	router := newCatalogRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/products/P007", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var product Product
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &product))
	require.Equal(t, "Tablet", product.Unit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/products/NOPE", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
