package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pharmacy/internal/platform/httpx"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	logger   *slog.Logger
	provider Provider
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, provider Provider) *Handler {
	return &Handler{logger: logger, provider: provider}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.showProduct)
	r.Get("/suppliers", h.listSuppliers)
	r.Get("/branches", h.listBranches)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.provider.Products(r.Context())
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) showProduct(w http.ResponseWriter, r *http.Request) {
	snapshot, err := Load(r.Context(), h.provider)
	if err != nil {
		h.logger.Error("load catalog", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	product, ok := snapshot.Product(chi.URLParam(r, "id"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found", ErrNotFound.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.provider.Suppliers(r.Context())
	if err != nil {
		h.logger.Error("list suppliers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": suppliers})
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	branches, err := h.provider.Branches(r.Context())
	if err != nil {
		h.logger.Error("list branches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"branches": branches})
}
