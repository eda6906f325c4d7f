package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/catalog"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pharmacy/internal/procurement"
)

// OrderSource loads stored purchase orders.
type OrderSource interface {
	GetPO(ctx context.Context, number string) (procurement.StoredOrder, error)
}

// PDFRenderer converts a purchase order HTML document into PDF.
type PDFRenderer interface {
	ConvertPurchaseOrder(ctx context.Context, poNumber, html string) ([]byte, error)
	Ping(ctx context.Context) error
}

// Handler manages report endpoints.
type Handler struct {
	client   PDFRenderer
	orders   OrderSource
	catalog  catalog.Provider
	renderer *PurchaseOrderRenderer
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler creates a report handler.
func NewHandler(client PDFRenderer, orders OrderSource, provider catalog.Provider, renderer *PurchaseOrderRenderer, logger *slog.Logger) *Handler {
	return &Handler{client: client, orders: orders, catalog: provider, renderer: renderer, logger: logger, now: time.Now}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/purchase-orders/{file}", h.purchaseOrder)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// purchaseOrder serves {number}.pdf through Gotenberg and {number}.html directly.
func (h *Handler) purchaseOrder(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	number, format := strings.TrimSuffix(file, ".pdf"), "pdf"
	if strings.HasSuffix(file, ".html") {
		number, format = strings.TrimSuffix(file, ".html"), "html"
	} else if !strings.HasSuffix(file, ".pdf") {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "unsupported document format")
		return
	}

	order, err := h.orders.GetPO(r.Context(), number)
	if errors.Is(err, procurement.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("load purchase order", slog.String("po_number", number), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	snapshot, err := catalog.Load(r.Context(), h.catalog)
	if err != nil {
		h.logger.Error("load catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	html, err := h.renderer.RenderHTML(NewPurchaseOrderDocument(order, snapshot, h.now()))
	if err != nil {
		h.logger.Error("render purchase order html", slog.String("po_number", number), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if format == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
		return
	}

	pdf, err := h.client.ConvertPurchaseOrder(r.Context(), number, html)
	if err != nil {
		h.logger.Error("render purchase order pdf", slog.String("po_number", number), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+number+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
